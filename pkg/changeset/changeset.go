// Package changeset reads declarative edit files and replays them as pending
// changes so they can be reviewed and committed like interactive edits.
//
// A change set looks like:
//
//	project: demo
//	changes:
//	  - id: 7f3a
//	    type: folder
//	    set:
//	      _name: sh010
//	      fps: 24
//	  - id: 91bc
//	    type: task
//	    delete: true
//	create:
//	  - type: folder
//	    parent: root
//	    set:
//	      _name: seq020
package changeset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/mattsolo1/grove-hed/pkg/models"
)

var changeValidate *validator.Validate

func init() {
	changeValidate = validator.New()
	_ = changeValidate.RegisterValidation("columns", validateColumns)
}

// validateColumns rejects empty column names in a set block.
func validateColumns(fl validator.FieldLevel) bool {
	for _, key := range fl.Field().MapKeys() {
		if key.String() == "" {
			return false
		}
	}
	return true
}

// ErrLocked is returned when the selection cannot be changed to apply a
// create or delete.
var ErrLocked = errors.New("selection is locked")

// Change edits or deletes one saved entity.
type Change struct {
	ID     string            `mapstructure:"id" validate:"required"`
	Type   models.EntityType `mapstructure:"type" validate:"required,oneof=folder task"`
	Set    map[string]any    `mapstructure:"set" validate:"columns"`
	Delete bool              `mapstructure:"delete"`
}

// Create adds one entity under a saved folder, or a top-level folder when
// Parent is empty or root.
type Create struct {
	Type   models.EntityType `mapstructure:"type" validate:"required,oneof=folder task"`
	Parent string            `mapstructure:"parent"`
	Set    map[string]any    `mapstructure:"set" validate:"columns"`
}

// ChangeSet is a parsed change file.
type ChangeSet struct {
	Project string   `mapstructure:"project"`
	Changes []Change `mapstructure:"changes" validate:"dive"`
	Create  []Create `mapstructure:"create" validate:"dive"`
}

// Validate checks field constraints and that tasks are not created at the
// top level.
func (c *ChangeSet) Validate() error {
	if err := changeValidate.Struct(c); err != nil {
		return err
	}
	for i, cr := range c.Create {
		if cr.Type == models.EntityTask && isRoot(cr.Parent) {
			return fmt.Errorf("create[%d]: a task needs a parent folder", i)
		}
	}
	return nil
}

// Empty reports whether the set contains nothing to apply.
func (c *ChangeSet) Empty() bool {
	return len(c.Changes) == 0 && len(c.Create) == 0
}

// Parse decodes and validates a YAML change set.
func Parse(r io.Reader) (*ChangeSet, error) {
	var raw map[string]any
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return &ChangeSet{}, nil
		}
		return nil, fmt.Errorf("failed to parse change set: %w", err)
	}

	var cs ChangeSet
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cs,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("failed to decode change set: %w", err)
	}
	if err := cs.Validate(); err != nil {
		return nil, fmt.Errorf("invalid change set: %w", err)
	}
	return &cs, nil
}

// ParseFile reads a change set from path.
func ParseFile(path string) (*ChangeSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open change set: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Editor is the part of the editing service a change set is replayed on.
type Editor interface {
	Fetch(ctx context.Context, entityType models.EntityType, id string) (*models.Node, error)
	EditEntity(id, column string, value any) error
	Select(ids ...string) bool
	DeleteSelection() error
	AddNode(ctx context.Context, entityType models.EntityType, atRoot bool) ([]string, error)
}

// Summary lists the ids touched by Apply. Created holds the placeholder ids
// of unsaved entities.
type Summary struct {
	Edited  []string
	Deleted []string
	Created []string
}

// Apply replays the change set as pending changes. Edits run first, then
// deletes, then creates. Entries that also delete an entity skip their edits.
func Apply(ctx context.Context, ed Editor, cs *ChangeSet) (*Summary, error) {
	sum := &Summary{}

	var deletes []string
	for i, ch := range cs.Changes {
		if _, err := ed.Fetch(ctx, ch.Type, ch.ID); err != nil {
			return sum, fmt.Errorf("changes[%d]: %w", i, err)
		}
		if ch.Delete {
			deletes = append(deletes, ch.ID)
			continue
		}
		if err := setColumns(ed, ch.ID, ch.Set); err != nil {
			return sum, fmt.Errorf("changes[%d]: %w", i, err)
		}
		if len(ch.Set) > 0 {
			sum.Edited = append(sum.Edited, ch.ID)
		}
	}

	if len(deletes) > 0 {
		if !ed.Select(deletes...) {
			return sum, ErrLocked
		}
		if err := ed.DeleteSelection(); err != nil {
			return sum, err
		}
		sum.Deleted = deletes
	}

	for i, cr := range cs.Create {
		atRoot := isRoot(cr.Parent)
		if !atRoot {
			if _, err := ed.Fetch(ctx, models.EntityFolder, cr.Parent); err != nil {
				return sum, fmt.Errorf("create[%d]: %w", i, err)
			}
			if !ed.Select(cr.Parent) {
				return sum, ErrLocked
			}
		}
		ids, err := ed.AddNode(ctx, cr.Type, atRoot)
		if err != nil {
			return sum, fmt.Errorf("create[%d]: %w", i, err)
		}
		for _, id := range ids {
			if err := setColumns(ed, id, cr.Set); err != nil {
				return sum, fmt.Errorf("create[%d]: %w", i, err)
			}
		}
		sum.Created = append(sum.Created, ids...)
	}
	return sum, nil
}

func setColumns(ed Editor, id string, set map[string]any) error {
	columns := make([]string, 0, len(set))
	for column := range set {
		columns = append(columns, column)
	}
	sort.Strings(columns)
	for _, column := range columns {
		if err := ed.EditEntity(id, column, set[column]); err != nil {
			return err
		}
	}
	return nil
}

func isRoot(parent string) bool {
	return parent == "" || parent == models.RootID
}

// ParseValue reads a command line value as a YAML scalar, so numbers, booleans
// and null keep their type. Anything else is kept as the raw string.
func ParseValue(raw string) any {
	var v any
	if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	switch v.(type) {
	case map[string]any, []any:
		return raw
	}
	return v
}
