package ledger

import (
	"reflect"

	"github.com/mattsolo1/grove-hed/pkg/models"
)

// Operations translates the ledger into one batch: a delete or update per
// changed entity in first-edit order, then a create per unsaved entity.
func (l *Ledger) Operations() []models.Operation {
	var ops []models.Operation

	for _, id := range l.order {
		if models.IsNewNodeID(id) {
			continue
		}
		c := l.changes[id]
		if c.Deleted() {
			ops = append(ops, models.Operation{
				ID:         id,
				Type:       models.OperationDelete,
				EntityType: c.EntityType,
				EntityID:   id,
			})
			continue
		}

		data := copyMap(c.EntityFields)
		data["attrib"] = copyMap(c.Attributes)
		ops = append(ops, models.Operation{
			ID:         id,
			Type:       models.OperationUpdate,
			EntityType: c.EntityType,
			EntityID:   id,
			Data:       data,
		})
	}

	for _, n := range l.newNodes {
		ops = append(ops, models.Operation{
			ID:         n.ID,
			Type:       models.OperationCreate,
			EntityType: n.EntityType,
			Data:       l.createPayload(n),
		})
	}

	return ops
}

// createPayload builds the data of a create operation. Only attributes edited
// explicitly are sent; the inherited ones stay on the client.
func (l *Ledger) createPayload(n *models.NewNode) map[string]any {
	data := map[string]any{
		"ownAttrib": append([]string{}, n.OwnAttrib...),
	}
	parent := n.ParentID
	switch n.EntityType {
	case models.EntityTask:
		data["folderId"] = parent
		data["taskType"] = n.TaskType
	default:
		if parent == models.RootID {
			data["parentId"] = nil
		} else {
			data["parentId"] = parent
		}
	}

	attrib := map[string]any{}
	if c, ok := l.changes[n.ID]; ok {
		for k, v := range c.EntityFields {
			data[k] = v
		}
		for k, v := range c.Attributes {
			attrib[k] = v
		}
	}
	data["attrib"] = attrib
	return data
}

// BranchParents returns the parent ids of every pending entity, changed and
// unsaved, deduplicated in ledger order.
func (l *Ledger) BranchParents() []string {
	seen := map[string]bool{}
	var out []string
	add := func(id string) {
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		out = append(out, id)
	}
	for _, id := range l.order {
		if models.IsNewNodeID(id) {
			continue
		}
		add(l.changes[id].ParentID)
	}
	for _, n := range l.newNodes {
		add(n.ParentID)
	}
	return out
}

// Prune removes every successfully applied operation from the ledger and
// returns the error of each failed one keyed by id. Failed entries stay
// pending for correction or retry.
//
// sent is the ledger the batch was built from. Only the values it holds are
// dropped, so edits recorded while the batch was in flight stay pending; edits
// of a created entity move to the id the server assigned. A nil sent drops
// every successful entry whole.
func (l *Ledger) Prune(result *models.BatchResult, sent *Ledger) map[string]string {
	if result == nil {
		return map[string]string{}
	}
	for _, op := range result.Operations {
		if !op.Success {
			continue
		}
		switch op.Type {
		case models.OperationDelete:
			l.deleteChange(op.ID)
		case models.OperationCreate:
			l.pruneCreated(op, sent)
		default:
			l.pruneSent(op.ID, sent)
		}
	}
	return result.Failures()
}

func (l *Ledger) pruneSent(id string, sent *Ledger) {
	c, ok := l.changes[id]
	if !ok {
		return
	}
	if sent == nil {
		l.deleteChange(id)
		return
	}
	if sc, ok := sent.changes[id]; ok {
		dropSent(c, sc)
	}
	if !c.Deleted() && c.empty() {
		l.deleteChange(id)
	}
}

func (l *Ledger) pruneCreated(op models.OperationResult, sent *Ledger) {
	n, ok := l.NewNode(op.ID)
	if !ok {
		return
	}
	kept := l.newNodes[:0:0]
	for _, nn := range l.newNodes {
		if nn.ID != op.ID {
			kept = append(kept, nn)
		}
	}
	l.newNodes = kept

	c, ok := l.changes[op.ID]
	if !ok {
		return
	}
	l.deleteChange(op.ID)
	if sent == nil || op.EntityID == "" {
		return
	}
	if sc, ok := sent.changes[op.ID]; ok {
		dropSent(c, sc)
	}
	if c.empty() {
		return
	}
	moved, err := l.entry(op.EntityID, Meta{EntityType: n.EntityType, ParentID: n.ParentID})
	if err != nil {
		return
	}
	for k, v := range c.EntityFields {
		moved.EntityFields[k] = v
	}
	for k, v := range c.Attributes {
		moved.Attributes[k] = v
	}
}

// dropSent removes the fields of c still holding the value that was sent.
func dropSent(c, sent *Change) {
	for _, pair := range [][2]map[string]any{
		{c.EntityFields, sent.EntityFields},
		{c.Attributes, sent.Attributes},
	} {
		current, submitted := pair[0], pair[1]
		for k, v := range submitted {
			if cur, ok := current[k]; ok && reflect.DeepEqual(cur, v) {
				delete(current, k)
			}
		}
	}
}
