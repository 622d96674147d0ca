package tree

import (
	"sort"

	"github.com/mattsolo1/grove-hed/pkg/models"
)

// ParentIndex maps a parent id to the ordered ids of its loaded children.
type ParentIndex map[string][]string

// NodeReader gives read access to loaded nodes.
type NodeReader interface {
	Get(id string) (*models.Node, bool)
}

// Store is the flat id -> node map holding every loaded hierarchy fragment.
// The parent index is derived and rebuilt on every change.
type Store struct {
	nodes   map[string]*models.Node
	seq     map[string]uint64 // First-seen order, mirrors fetch order
	next    uint64
	parents ParentIndex
}

// NewStore creates an empty node store
func NewStore() *Store {
	return &Store{
		nodes:   make(map[string]*models.Node),
		seq:     make(map[string]uint64),
		parents: ParentIndex{},
	}
}

// Merge adds or replaces nodes. Replaced nodes keep their original position in
// the parent index; new nodes are appended in the order given.
func (s *Store) Merge(nodes ...*models.Node) {
	if len(nodes) == 0 {
		return
	}
	for _, n := range nodes {
		if n == nil || n.ID == "" {
			continue
		}
		if _, ok := s.seq[n.ID]; !ok {
			s.seq[n.ID] = s.next
			s.next++
		}
		s.nodes[n.ID] = n
	}
	s.rebuild()
}

// ApplyServerPatch merges fields into the data of a loaded node. It returns
// false and does nothing when the id is not loaded.
func (s *Store) ApplyServerPatch(id string, fields map[string]any) (bool, error) {
	n, ok := s.nodes[id]
	if !ok {
		return false, nil
	}
	patched := n.Clone()
	if err := patched.Data.Merge(fields); err != nil {
		return false, err
	}
	s.nodes[id] = patched
	s.rebuild()
	return true, nil
}

// SetLeaf updates the leaf flag of a loaded node.
func (s *Store) SetLeaf(id string, leaf bool) {
	n, ok := s.nodes[id]
	if !ok || n.Leaf == leaf {
		return
	}
	patched := n.Clone()
	patched.Leaf = leaf
	s.nodes[id] = patched
}

// Evict removes nodes from the store.
func (s *Store) Evict(ids ...string) {
	removed := false
	for _, id := range ids {
		if _, ok := s.nodes[id]; ok {
			delete(s.nodes, id)
			delete(s.seq, id)
			removed = true
		}
	}
	if removed {
		s.rebuild()
	}
}

// Descendants returns the ids of every loaded node below id, depth first.
func (s *Store) Descendants(id string) []string {
	var out []string
	var walk func(string)
	walk = func(parent string) {
		for _, child := range s.parents[parent] {
			out = append(out, child)
			walk(child)
		}
	}
	walk(id)
	return out
}

// Get returns a loaded node.
func (s *Store) Get(id string) (*models.Node, bool) {
	n, ok := s.nodes[id]
	return n, ok
}

// Has reports whether id is loaded.
func (s *Store) Has(id string) bool {
	_, ok := s.nodes[id]
	return ok
}

// Len returns the number of loaded nodes
func (s *Store) Len() int {
	return len(s.nodes)
}

// IDs returns the loaded ids in insertion order.
func (s *Store) IDs() []string {
	ids := make([]string, 0, len(s.nodes))
	for id := range s.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return s.seq[ids[i]] < s.seq[ids[j]] })
	return ids
}

// Parents returns the parent index. Callers must not modify it.
func (s *Store) Parents() ParentIndex {
	return s.parents
}

// Snapshot returns a deep copy of the store.
func (s *Store) Snapshot() *Store {
	out := &Store{
		nodes:   make(map[string]*models.Node, len(s.nodes)),
		seq:     make(map[string]uint64, len(s.seq)),
		next:    s.next,
		parents: ParentIndex{},
	}
	for id, n := range s.nodes {
		out.nodes[id] = n.Clone()
	}
	for id, q := range s.seq {
		out.seq[id] = q
	}
	out.rebuild()
	return out
}

// Overlay returns a copy of the store with extra nodes appended after the
// loaded ones. Loaded nodes are shared, not copied.
func (s *Store) Overlay(extra ...*models.Node) *Store {
	out := &Store{
		nodes:   make(map[string]*models.Node, len(s.nodes)+len(extra)),
		seq:     make(map[string]uint64, len(s.seq)+len(extra)),
		next:    s.next,
		parents: ParentIndex{},
	}
	for id, n := range s.nodes {
		out.nodes[id] = n
	}
	for id, q := range s.seq {
		out.seq[id] = q
	}
	out.Merge(extra...)
	if len(extra) == 0 {
		out.rebuild()
	}
	return out
}

// Filtered returns the parent index restricted to a search result. Folders
// outside folderIDs are dropped. Tasks are dropped only when taskNames is
// non-empty and does not list their name. An empty folderIDs disables filtering.
func (s *Store) Filtered(folderIDs, taskNames []string) ParentIndex {
	if len(folderIDs) == 0 {
		return s.parents
	}
	folders := toSet(folderIDs)
	tasks := toSet(taskNames)

	out := ParentIndex{}
	for _, id := range s.IDs() {
		n := s.nodes[id]
		if !folders[id] {
			if n.Data.EntityType != models.EntityTask {
				continue
			}
			if len(tasks) > 0 && !tasks[n.Data.Name] {
				continue
			}
		}
		out[n.Data.ParentID] = append(out[n.Data.ParentID], id)
	}
	return out
}

func (s *Store) rebuild() {
	parents := ParentIndex{}
	for _, id := range s.IDs() {
		parentID := s.nodes[id].Data.ParentID
		parents[parentID] = append(parents[parentID], id)
	}
	s.parents = parents
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
