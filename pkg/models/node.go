package models

import (
	"strings"

	"github.com/mitchellh/mapstructure"
)

// EntityType represents the kind of hierarchy entity
type EntityType string

const (
	EntityFolder EntityType = "folder"
	EntityTask   EntityType = "task"
)

// RootID is the parent marker of top-level folders.
const RootID = "root"

// NewNodePrefix prefixes the synthetic ids of entities that were not created yet.
const NewNodePrefix = "newnode"

// IsNewNodeID reports whether id is a synthetic placeholder for an unsaved entity.
func IsNewNodeID(id string) bool {
	return strings.HasPrefix(id, NewNodePrefix)
}

// NodeData is the entity payload of a folder or task as known to the client.
type NodeData struct {
	ID         string         `json:"id" mapstructure:"id"`
	EntityType EntityType     `json:"__entityType" mapstructure:"__entityType"`
	ParentID   string         `json:"__parentId" mapstructure:"__parentId"`
	Name       string         `json:"name" mapstructure:"name"`
	Label      string         `json:"label,omitempty" mapstructure:"label"`
	FolderType string         `json:"folderType,omitempty" mapstructure:"folderType"`
	TaskType   string         `json:"taskType,omitempty" mapstructure:"taskType"`
	Status     string         `json:"status,omitempty" mapstructure:"status"`
	Attrib     map[string]any `json:"attrib,omitempty" mapstructure:"attrib"`
	OwnAttrib  []string       `json:"ownAttrib,omitempty" mapstructure:"ownAttrib"`
	Parents    []string       `json:"parents,omitempty" mapstructure:"parents"` // Folder path, used for breadcrumbs
	Extra      map[string]any `json:"extra,omitempty" mapstructure:",remain"`   // Server fields not modelled above
}

// Type returns the folder type for folders and the task type for tasks.
func (d NodeData) Type() string {
	if d.EntityType == EntityTask {
		return d.TaskType
	}
	return d.FolderType
}

// Clone returns a deep copy of the payload.
func (d NodeData) Clone() NodeData {
	out := d
	if d.Attrib != nil {
		out.Attrib = make(map[string]any, len(d.Attrib))
		for k, v := range d.Attrib {
			out.Attrib[k] = v
		}
	}
	if d.OwnAttrib != nil {
		out.OwnAttrib = append([]string(nil), d.OwnAttrib...)
	}
	if d.Parents != nil {
		out.Parents = append([]string(nil), d.Parents...)
	}
	if d.Extra != nil {
		out.Extra = make(map[string]any, len(d.Extra))
		for k, v := range d.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

// Merge overlays server-provided fields onto the payload. Keys that the payload
// does not model land in Extra; client metadata (__entityType, __parentId) is
// kept unless the server explicitly sends it.
func (d *NodeData) Merge(fields map[string]any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           d,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(fields)
}

// Node represents one folder or task entity as currently loaded.
type Node struct {
	ID   string   `json:"id"`
	Data NodeData `json:"data"`
	Leaf bool     `json:"leaf"` // True when the node has no loadable children
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	return &Node{ID: n.ID, Data: n.Data.Clone(), Leaf: n.Leaf}
}

// NewNode is a locally fabricated entity awaiting creation.
type NewNode struct {
	ID         string         `json:"id"`
	EntityType EntityType     `json:"__entityType"`
	ParentID   string         `json:"__parentId"`
	TaskType   string         `json:"taskType,omitempty"`
	Attrib     map[string]any `json:"attrib"` // Inherited from the parent, display only
	OwnAttrib  []string       `json:"ownAttrib"`
}

// Node renders the descriptor as a leaf node so it can be shown in the tree.
func (n *NewNode) Node() *Node {
	data := NodeData{
		ID:         n.ID,
		EntityType: n.EntityType,
		ParentID:   n.ParentID,
		TaskType:   n.TaskType,
		Attrib:     map[string]any{},
		OwnAttrib:  append([]string(nil), n.OwnAttrib...),
	}
	for k, v := range n.Attrib {
		data.Attrib[k] = v
	}
	return &Node{ID: n.ID, Data: data, Leaf: true}
}

// Clone returns a deep copy of the descriptor.
func (n *NewNode) Clone() *NewNode {
	out := *n
	out.Attrib = make(map[string]any, len(n.Attrib))
	for k, v := range n.Attrib {
		out.Attrib[k] = v
	}
	out.OwnAttrib = append([]string(nil), n.OwnAttrib...)
	return &out
}
