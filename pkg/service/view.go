package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/mattsolo1/grove-hed/pkg/ledger"
	"github.com/mattsolo1/grove-hed/pkg/models"
	"github.com/mattsolo1/grove-hed/pkg/search"
	"github.com/mattsolo1/grove-hed/pkg/tree"
)

// RowState flags how a row differs from the server.
type RowState int

const (
	RowClean RowState = iota
	RowNew
	RowChanged
	RowDeleted
	RowError
)

func (r RowState) String() string {
	switch r {
	case RowNew:
		return "new"
	case RowChanged:
		return "changed"
	case RowDeleted:
		return "deleted"
	case RowError:
		return "error"
	}
	return "clean"
}

// effectiveReader overlays pending edits on the nodes it reads.
type effectiveReader struct {
	nodes  tree.NodeReader
	ledger *ledger.Ledger
}

func (r effectiveReader) Get(id string) (*models.Node, bool) {
	n, ok := r.nodes.Get(id)
	if !ok {
		return nil, false
	}
	c, ok := r.ledger.Get(id)
	if !ok {
		return n, true
	}
	out := n.Clone()
	out.Data = c.Apply(out.Data)
	return out, true
}

// view returns the store with unsaved entities added and their parents
// marked non-leaf. Callers hold s.mu.
func (s *Service) view() *tree.Store {
	newNodes := s.ledger.NewNodes()
	extra := make([]*models.Node, 0, len(newNodes))
	for _, n := range newNodes {
		extra = append(extra, n.Node())
	}
	v := s.store.Overlay(extra...)
	for _, n := range newNodes {
		v.SetLeaf(n.ParentID, false)
	}
	return v
}

// Tree builds the visible forest: loaded and unsaved entities with pending
// edits applied, restricted to the active search.
func (s *Service) Tree() []*tree.TreeNode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buildTree()
}

func (s *Service) buildTree() []*tree.TreeNode {
	v := s.view()
	parents := v.Parents()
	if !s.filter.Empty() {
		folders := append([]string(nil), s.filter.FolderIDs...)
		for _, n := range s.ledger.NewNodes() {
			folders = append(folders, n.ID)
		}
		parents = v.Filtered(folders, s.filter.TaskNames)
	}
	return tree.Build(models.RootID, parents, effectiveReader{nodes: v, ledger: s.ledger}, s.expanded)
}

// Rows returns the visible forest flattened depth first.
func (s *Service) Rows() []tree.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	return tree.Flatten(s.buildTree(), s.expanded)
}

// Effective returns a loaded or unsaved entity with pending edits applied.
func (s *Service) Effective(id string) (*models.Node, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.effective(id)
}

func (s *Service) effective(id string) (*models.Node, bool) {
	if nn, ok := s.ledger.NewNode(id); ok {
		return effectiveReader{nodes: nodeMap{id: nn.Node()}, ledger: s.ledger}.Get(id)
	}
	return effectiveReader{nodes: s.store, ledger: s.ledger}.Get(id)
}

type nodeMap map[string]*models.Node

func (m nodeMap) Get(id string) (*models.Node, bool) {
	n, ok := m[id]
	return n, ok
}

// Breadcrumbs returns the folder names from the root down to the parent of
// id, with pending renames applied. When the loaded parent chain is broken
// the server path of the last reached entity completes it.
func (s *Service) Breadcrumbs(id string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := effectiveReader{nodes: s.view(), ledger: s.ledger}
	n, ok := r.Get(id)
	if !ok {
		return nil
	}

	var chain []string
	seen := map[string]bool{id: true}
	for parent := n.Data.ParentID; parent != "" && parent != models.RootID; parent = n.Data.ParentID {
		if seen[parent] {
			break
		}
		seen[parent] = true
		p, ok := r.Get(parent)
		if !ok {
			return append(append([]string(nil), n.Data.Parents...), reversed(chain)...)
		}
		chain = append(chain, p.Data.Name)
		n = p
	}
	return reversed(chain)
}

func reversed(names []string) []string {
	out := make([]string, len(names))
	for i, name := range names {
		out[len(names)-1-i] = name
	}
	return out
}

// RowState reports the display state of id. Errors take precedence over
// deletion, deletion over edits.
func (s *Service) RowState(id string) RowState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.errors[id]; ok {
		return RowError
	}
	if models.IsNewNodeID(id) {
		return RowNew
	}
	c, ok := s.ledger.Get(id)
	switch {
	case !ok:
		return RowClean
	case c.Deleted():
		return RowDeleted
	}
	return RowChanged
}

// LoadSearchIndex builds the search index from the project summary. A cached
// summary is used first when available; the fresh one replaces it once
// fetched.
func (s *Service) LoadSearchIndex(ctx context.Context) error {
	project := s.Config.Project
	if s.cache != nil {
		summary, ok, err := s.cache.Load(project)
		if err != nil {
			s.logger.WithError(err).Warn("Ignoring unreadable summary cache")
		} else if ok {
			s.mu.Lock()
			if s.index == nil {
				s.index = search.NewIndex(summary)
			}
			s.mu.Unlock()
		}
	}

	s.mu.Lock()
	s.loading++
	s.mu.Unlock()
	summary, err := s.backend.GetHierarchy(ctx, project)
	s.mu.Lock()
	s.loading--
	s.mu.Unlock()
	if err != nil {
		s.notify(LevelError, fmt.Sprintf("Could not load the project hierarchy: %v", err))
		return fmt.Errorf("load search index: %w", err)
	}

	idx := search.NewIndex(summary)
	s.mu.Lock()
	s.index = idx
	if s.query != "" {
		s.filter = idx.Search(s.query)
	}
	s.mu.Unlock()

	if s.cache != nil {
		if err := s.cache.Store(project, summary); err != nil {
			s.logger.WithError(err).Warn("Could not cache hierarchy summary")
		}
	}
	return nil
}

// Search resolves query without changing the visible tree.
func (s *Service) Search(query string) (search.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index == nil {
		return search.Result{}, ErrNoSearchIndex
	}
	return s.index.Search(query), nil
}

// Suggest returns up to limit entries matching query.
func (s *Service) Suggest(query string, limit int) ([]*search.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index == nil {
		return nil, ErrNoSearchIndex
	}
	return s.index.Suggest(query, limit), nil
}

// ApplySearch filters the visible tree by query. A blank query clears the
// filter.
func (s *Service) ApplySearch(query string) (search.Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		s.ClearSearch()
		return search.Result{}, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index == nil {
		return search.Result{}, ErrNoSearchIndex
	}
	s.query = query
	s.filter = s.index.Search(query)
	return s.filter, nil
}

// ClearSearch removes the search filter.
func (s *Service) ClearSearch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.query = ""
	s.filter = search.Result{}
}

// Query returns the active search query.
func (s *Service) Query() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}
