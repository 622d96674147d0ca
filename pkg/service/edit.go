package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/mattsolo1/grove-hed/pkg/ledger"
	"github.com/mattsolo1/grove-hed/pkg/models"
)

// Column names starting with an underscore address entity fields rather
// than attributes.
const (
	FieldName   = "_name"
	FieldLabel  = "_label"
	FieldStatus = "_status"
	FieldType   = "_type"
)

// RouteField maps a column name to the ledger group and payload key for an
// entity of the given type. The type column becomes folderType or taskType.
func RouteField(entityType models.EntityType, column string) (ledger.FieldKind, string) {
	if !strings.HasPrefix(column, "_") {
		return ledger.Attribute, column
	}
	field := strings.TrimPrefix(column, "_")
	switch field {
	case "type", "folderType", "taskType":
		if entityType == models.EntityTask {
			return ledger.EntityField, "taskType"
		}
		return ledger.EntityField, "folderType"
	}
	return ledger.EntityField, field
}

// Select replaces the selection. It does nothing and returns false while the
// selection is locked.
func (s *Service) Select(ids ...string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.locked {
		return false
	}
	s.selection = dedupe(ids)
	return true
}

// Selection returns the selected ids.
func (s *Service) Selection() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.selection...)
}

// SetLocked locks or unlocks the selection. Edits and commits are not
// affected by the lock.
func (s *Service) SetLocked(locked bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locked = locked
}

// Locked reports whether the selection is locked.
func (s *Service) Locked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locked
}

// SelectedFolders returns the selected folders, with each selected task
// replaced by its folder.
func (s *Service) SelectedFolders() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, id := range s.selection {
		n, ok := s.effective(id)
		if !ok {
			continue
		}
		if n.Data.EntityType == models.EntityTask {
			if n.Data.ParentID != models.RootID {
				out = append(out, n.Data.ParentID)
			}
			continue
		}
		out = append(out, id)
	}
	return dedupe(out)
}

// FutureParents returns the selected saved folders new entities can be
// added under.
func (s *Service) FutureParents() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.futureParents()
}

func (s *Service) futureParents() []string {
	var out []string
	for _, id := range s.selection {
		if models.IsNewNodeID(id) {
			continue
		}
		n, ok := s.store.Get(id)
		if !ok || n.Data.EntityType != models.EntityFolder {
			continue
		}
		if c, ok := s.ledger.Get(id); ok && c.Deleted() {
			continue
		}
		out = append(out, id)
	}
	return out
}

// CanAdd reports whether entities can be added under the selection.
func (s *Service) CanAdd() bool {
	return len(s.FutureParents()) > 0
}

// CanCommit reports whether anything is pending and no commit is running.
func (s *Service) CanCommit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.ledger.IsEmpty() && s.commitState != CommitSubmitting
}

// meta describes id for its first ledger entry. Callers hold s.mu.
func (s *Service) meta(id string) (ledger.Meta, error) {
	if nn, ok := s.ledger.NewNode(id); ok {
		return ledger.Meta{EntityType: nn.EntityType, ParentID: nn.ParentID}, nil
	}
	n, ok := s.store.Get(id)
	if !ok {
		return ledger.Meta{}, fmt.Errorf("%s: %w", id, ledger.ErrUnknownEntity)
	}
	return ledger.Meta{EntityType: n.Data.EntityType, ParentID: n.Data.ParentID}, nil
}

// EditEntity records an edit of one column of id.
func (s *Service) EditEntity(id, column string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.edit(id, column, value)
}

func (s *Service) edit(id, column string, value any) error {
	meta, err := s.meta(id)
	if err != nil {
		return err
	}
	kind, field := RouteField(meta.EntityType, column)
	if err := s.ledger.SetField(id, kind, field, value, meta); err != nil {
		return err
	}
	pendingChanges.Set(float64(s.ledger.Len()))
	return nil
}

// EditSelection applies one edit to every selected entity. Entities marked
// for deletion are skipped; their ErrDeleted errors are joined into the result.
func (s *Service) EditSelection(column string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	for _, id := range s.selection {
		if err := s.edit(id, column, value); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Rename sets the name of id.
func (s *Service) Rename(id, name string) error {
	return s.EditEntity(id, FieldName, name)
}

// SetType sets the folder or task type of id.
func (s *Service) SetType(id, typ string) error {
	return s.EditEntity(id, FieldType, typ)
}

// AddNode adds one unsaved entity under each selected folder, or a single
// folder at the top level when atRoot is set or nothing usable is selected.
// Parents are expanded; collapsed parents with unloaded children are loaded.
// The new entities become the selection unless it is locked.
func (s *Service) AddNode(ctx context.Context, entityType models.EntityType, atRoot bool) ([]string, error) {
	s.mu.Lock()
	parents := []string{models.RootID}
	if !atRoot {
		if fp := s.futureParents(); len(fp) > 0 {
			parents = fp
		} else if entityType == models.EntityTask {
			s.mu.Unlock()
			return nil, ErrNoParent
		}
	}
	if entityType == models.EntityTask && parents[0] == models.RootID {
		s.mu.Unlock()
		return nil, ErrNoParent
	}

	var ids []string
	type pendingLoad struct {
		id  string
		gen uint64
	}
	var toLoad []pendingLoad
	for _, parentID := range parents {
		inherited := map[string]any{}
		if p, ok := s.effective(parentID); ok {
			inherited = p.Data.Attrib
		}
		nn := s.ledger.AddNewNode(entityType, parentID, inherited)
		ids = append(ids, nn.ID)

		if parentID == models.RootID || s.expanded[parentID] {
			continue
		}
		s.expanded[parentID] = true
		if p, ok := s.store.Get(parentID); ok && !p.Leaf && len(s.store.Parents()[parentID]) == 0 {
			toLoad = append(toLoad, pendingLoad{id: parentID, gen: s.beginLoad(parentID, false)})
		}
	}
	if !s.locked {
		s.selection = append([]string(nil), ids...)
	}
	pendingChanges.Set(float64(s.ledger.Len()))
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"type":    entityType,
		"parents": parents,
		"ids":     ids,
	}).Debug("Added unsaved entities")

	for _, l := range toLoad {
		// Failures are notified; the new entities stay either way.
		_ = s.loadBranch(ctx, l.id, l.gen)
	}
	return ids, nil
}

// DeleteSelection drops selected unsaved entities and marks selected saved
// entities for deletion.
func (s *Service) DeleteSelection() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	var unsaved []string
	for _, id := range s.selection {
		if models.IsNewNodeID(id) {
			unsaved = append(unsaved, id)
			continue
		}
		meta, err := s.meta(id)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := s.ledger.MarkDeleted(id, meta); err != nil {
			errs = append(errs, err)
		}
	}
	s.ledger.RemoveNewNodes(unsaved...)
	for _, id := range unsaved {
		delete(s.errors, id)
	}
	pendingChanges.Set(float64(s.ledger.Len()))
	return errors.Join(errs...)
}

// RevertSelection discards the pending changes of the selected entities.
func (s *Service) RevertSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledger.RevertSelection(s.selection...)
	for _, id := range s.selection {
		delete(s.errors, id)
	}
	pendingChanges.Set(float64(s.ledger.Len()))
}

// RevertAll discards every pending change and unsaved entity.
func (s *Service) RevertAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledger.RevertAll()
	s.errors = map[string]string{}
	pendingChanges.Set(0)
}

// PendingOperations returns the batch a commit would submit now.
func (s *Service) PendingOperations() []models.Operation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Operations()
}

// PendingCount returns the number of pending changes and unsaved entities.
func (s *Service) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Len()
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
