// Package ledger tracks uncommitted edits to hierarchy entities and turns them
// into operation batches.
package ledger

import (
	"errors"
	"fmt"

	"github.com/mattsolo1/grove-hed/pkg/models"
)

var (
	// ErrDeleted is returned when editing an entity already marked for deletion.
	ErrDeleted = errors.New("entity is marked for deletion")
	// ErrMissingMeta is returned when a first edit has no entity type or parent.
	ErrMissingMeta = errors.New("entity type and parent are required")
	// ErrUnknownEntity is returned when an edited id is neither loaded nor unsaved.
	ErrUnknownEntity = errors.New("unknown entity")
)

// FieldKind routes an edited field to its group in the operation payload.
type FieldKind int

const (
	// Attribute fields go under "attrib".
	Attribute FieldKind = iota
	// EntityField fields are top-level entity properties such as name or folderType.
	EntityField
)

// Action is the pending action of a change
type Action string

const (
	ActionUpdate Action = ""
	ActionDelete Action = "delete"
)

// Meta is captured from the node at the time of the first edit.
type Meta struct {
	EntityType models.EntityType
	ParentID   string
}

// Change holds the uncommitted edits of one entity.
type Change struct {
	Meta
	Action       Action
	EntityFields map[string]any
	Attributes   map[string]any
}

// Deleted reports whether the entity is marked for deletion.
func (c *Change) Deleted() bool {
	return c.Action == ActionDelete
}

// Apply returns data with the pending edits overlaid.
func (c *Change) Apply(data models.NodeData) models.NodeData {
	out := data.Clone()
	for k, v := range c.EntityFields {
		s := fieldString(v)
		switch k {
		case "name":
			out.Name = s
		case "label":
			out.Label = s
		case "folderType":
			out.FolderType = s
		case "taskType":
			out.TaskType = s
		case "status":
			out.Status = s
		}
	}
	if len(c.Attributes) > 0 && out.Attrib == nil {
		out.Attrib = make(map[string]any, len(c.Attributes))
	}
	for k, v := range c.Attributes {
		out.Attrib[k] = v
	}
	return out
}

func (c *Change) empty() bool {
	return len(c.EntityFields) == 0 && len(c.Attributes) == 0
}

func (c *Change) clone() *Change {
	out := &Change{Meta: c.Meta, Action: c.Action}
	out.EntityFields = copyMap(c.EntityFields)
	out.Attributes = copyMap(c.Attributes)
	return out
}

// Ledger maps entity ids to uncommitted changes and keeps the list of
// locally created entities. It never touches loaded nodes.
type Ledger struct {
	changes  map[string]*Change
	order    []string
	newNodes []*models.NewNode
}

// New creates an empty ledger
func New() *Ledger {
	return &Ledger{changes: make(map[string]*Change)}
}

// entry returns the change of id, creating it from meta when absent.
func (l *Ledger) entry(id string, meta Meta) (*Change, error) {
	if c, ok := l.changes[id]; ok {
		return c, nil
	}
	if meta.EntityType == "" || meta.ParentID == "" {
		return nil, fmt.Errorf("first edit of %s: %w", id, ErrMissingMeta)
	}
	c := &Change{
		Meta:         meta,
		EntityFields: map[string]any{},
		Attributes:   map[string]any{},
	}
	l.changes[id] = c
	l.order = append(l.order, id)
	return c, nil
}

// SetField records an edit. Edits of entities marked for deletion are dropped
// and reported with ErrDeleted.
func (l *Ledger) SetField(id string, kind FieldKind, field string, value any, meta Meta) error {
	if c, ok := l.changes[id]; ok && c.Deleted() {
		return fmt.Errorf("set %s on %s: %w", field, id, ErrDeleted)
	}
	c, err := l.entry(id, meta)
	if err != nil {
		return err
	}
	switch kind {
	case EntityField:
		c.EntityFields[field] = value
	default:
		c.Attributes[field] = value
	}
	return nil
}

// MarkDeleted marks an existing entity for deletion. Other pending edits are
// kept but never sent. Unsaved entities are not deletable; drop them with
// RemoveNewNodes instead.
func (l *Ledger) MarkDeleted(id string, meta Meta) error {
	if models.IsNewNodeID(id) {
		return nil
	}
	c, err := l.entry(id, meta)
	if err != nil {
		return err
	}
	c.Action = ActionDelete
	return nil
}

// AddNewNode registers a new entity under parentID and returns its id. The
// inherited attributes are kept for display only.
func (l *Ledger) AddNewNode(entityType models.EntityType, parentID string, inherited map[string]any) *models.NewNode {
	if parentID == "" {
		parentID = models.RootID
	}
	n := &models.NewNode{
		ID:         l.nextNewID(),
		EntityType: entityType,
		ParentID:   parentID,
		Attrib:     copyMap(inherited),
		OwnAttrib:  []string{},
	}
	if entityType == models.EntityTask {
		n.TaskType = "Generic"
	}
	l.newNodes = append(l.newNodes, n)
	return n
}

// nextNewID numbers placeholders after the current list length, skipping ids
// still in use after earlier removals.
func (l *Ledger) nextNewID() string {
	used := make(map[string]bool, len(l.newNodes))
	for _, n := range l.newNodes {
		used[n.ID] = true
	}
	for i := len(l.newNodes); ; i++ {
		id := fmt.Sprintf("%s%d", models.NewNodePrefix, i)
		if !used[id] {
			if _, pending := l.changes[id]; !pending {
				return id
			}
		}
	}
}

// NewNode returns the unsaved entity with the given id.
func (l *Ledger) NewNode(id string) (*models.NewNode, bool) {
	for _, n := range l.newNodes {
		if n.ID == id {
			return n, true
		}
	}
	return nil, false
}

// NewNodes returns the unsaved entities in creation order.
func (l *Ledger) NewNodes() []*models.NewNode {
	return append([]*models.NewNode(nil), l.newNodes...)
}

// RemoveNewNodes drops unsaved entities and their edits.
func (l *Ledger) RemoveNewNodes(ids ...string) {
	drop := toSet(ids)
	kept := l.newNodes[:0:0]
	for _, n := range l.newNodes {
		if drop[n.ID] {
			l.deleteChange(n.ID)
			continue
		}
		kept = append(kept, n)
	}
	l.newNodes = kept
}

// RevertSelection removes the changes and unsaved entities of exactly the given
// ids. Everything else stays pending.
func (l *Ledger) RevertSelection(ids ...string) {
	for _, id := range ids {
		l.deleteChange(id)
	}
	l.RemoveNewNodes(ids...)
}

// RevertAll clears every change and unsaved entity.
func (l *Ledger) RevertAll() {
	l.changes = make(map[string]*Change)
	l.order = nil
	l.newNodes = nil
}

// Get returns the pending change of id.
func (l *Ledger) Get(id string) (*Change, bool) {
	c, ok := l.changes[id]
	return c, ok
}

// Has reports whether id has a pending change or is an unsaved entity.
func (l *Ledger) Has(id string) bool {
	if _, ok := l.changes[id]; ok {
		return true
	}
	_, ok := l.NewNode(id)
	return ok
}

// IDs returns the ids with pending changes in first-edit order.
func (l *Ledger) IDs() []string {
	return append([]string(nil), l.order...)
}

// Len returns the number of pending changes plus unsaved entities.
func (l *Ledger) Len() int {
	n := len(l.newNodes)
	for _, id := range l.order {
		if !models.IsNewNodeID(id) {
			n++
		}
	}
	return n
}

// IsEmpty reports whether nothing is pending.
func (l *Ledger) IsEmpty() bool {
	return len(l.changes) == 0 && len(l.newNodes) == 0
}

// Clone returns a deep copy of the ledger.
func (l *Ledger) Clone() *Ledger {
	out := &Ledger{
		changes: make(map[string]*Change, len(l.changes)),
		order:   append([]string(nil), l.order...),
	}
	for id, c := range l.changes {
		out.changes[id] = c.clone()
	}
	for _, n := range l.newNodes {
		out.newNodes = append(out.newNodes, n.Clone())
	}
	return out
}

func (l *Ledger) deleteChange(id string) {
	if _, ok := l.changes[id]; !ok {
		return
	}
	delete(l.changes, id)
	for i, v := range l.order {
		if v == id {
			l.order = append(l.order[:i:i], l.order[i+1:]...)
			break
		}
	}
}

// fieldString renders an entity field value for display. Non-string values
// such as a numeric name typed on the command line keep their text.
func fieldString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	}
	return fmt.Sprint(v)
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
