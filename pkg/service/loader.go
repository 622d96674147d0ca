package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/mattsolo1/grove-hed/pkg/models"
)

// loadBranch fetches the children of id and merges them unless a newer load
// of the same branch was requested meanwhile. Callers obtain gen from
// beginLoad; loads sharing a generation share one request.
func (s *Service) loadBranch(ctx context.Context, id string, gen uint64) error {
	s.mu.Lock()
	s.loading++
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.loading--
		if s.inflight[id] == gen {
			delete(s.inflight, id)
		}
		s.mu.Unlock()
	}()

	log := s.logger.WithFields(logrus.Fields{"branch": id, "generation": gen})
	key := fmt.Sprintf("%s#%d", id, gen)
	v, err, shared := s.loads.Do(key, func() (any, error) {
		return s.backend.LoadBranch(ctx, s.Config.Project, id)
	})
	if err != nil {
		branchLoads.WithLabelValues("error").Inc()
		s.notify(LevelError, fmt.Sprintf("Could not load %s: %v", id, err))
		return fmt.Errorf("load branch %s: %w", id, err)
	}
	nodes := v.([]*models.Node)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generations[id] != gen {
		branchLoads.WithLabelValues("stale").Inc()
		log.Debug("Discarding stale branch load")
		return nil
	}
	s.store.Merge(nodes...)
	if len(nodes) > 0 {
		s.store.SetLeaf(id, false)
	}
	branchLoads.WithLabelValues("merged").Inc()
	log.WithFields(logrus.Fields{"nodes": len(nodes), "shared": shared}).Debug("Branch loaded")
	return nil
}

// beginLoad returns the generation a new load of id runs under. Unless fresh
// is set, a load of the current generation still in flight is joined instead
// of superseded. Callers hold s.mu.
func (s *Service) beginLoad(id string, fresh bool) uint64 {
	if gen, ok := s.inflight[id]; ok && !fresh && gen == s.generations[id] {
		return gen
	}
	gen := s.nextGeneration(id)
	s.inflight[id] = gen
	return gen
}

// nextGeneration invalidates every in-flight load of id. Callers hold s.mu.
func (s *Service) nextGeneration(id string) uint64 {
	s.generations[id]++
	return s.generations[id]
}

// Expand marks id expanded and loads its children. Unsaved entities have no
// children to load.
func (s *Service) Expand(ctx context.Context, id string) error {
	s.mu.Lock()
	s.expanded[id] = true
	if models.IsNewNodeID(id) {
		s.mu.Unlock()
		return nil
	}
	gen := s.beginLoad(id, false)
	s.mu.Unlock()
	return s.loadBranch(ctx, id, gen)
}

// Collapse marks id collapsed. A load of id still in flight is discarded.
func (s *Service) Collapse(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.expanded, id)
	s.nextGeneration(id)
}

// Toggle expands a collapsed node and collapses an expanded one.
func (s *Service) Toggle(ctx context.Context, id string) error {
	if s.IsExpanded(id) {
		s.Collapse(id)
		return nil
	}
	return s.Expand(ctx, id)
}

// IsExpanded reports whether id is expanded.
func (s *Service) IsExpanded(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expanded[id]
}

// Expanded returns the expanded ids, sorted.
func (s *Service) Expanded() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedKeys(s.expanded)
}

// SetExpanded replaces the expanded set and loads the root and every
// expanded branch.
func (s *Service) SetExpanded(ctx context.Context, ids []string) error {
	s.mu.Lock()
	s.expanded = make(map[string]bool, len(ids))
	for _, id := range ids {
		s.expanded[id] = true
	}
	s.mu.Unlock()
	return s.LoadExpanded(ctx)
}

// LoadExpanded loads the root and every expanded branch concurrently. A root
// failure is returned; other failures are only notified.
func (s *Service) LoadExpanded(ctx context.Context) error {
	s.mu.Lock()
	branches := []string{models.RootID}
	for _, id := range sortedKeys(s.expanded) {
		if !models.IsNewNodeID(id) && id != models.RootID {
			branches = append(branches, id)
		}
	}
	gens := make([]uint64, len(branches))
	for i, id := range branches {
		gens[i] = s.beginLoad(id, true)
	}
	s.mu.Unlock()

	var rootErr error
	g := new(errgroup.Group)
	g.SetLimit(s.Config.ReloadConcurrency)
	for i, id := range branches {
		i, id := i, id
		g.Go(func() error {
			err := s.loadBranch(ctx, id, gens[i])
			if id == models.RootID {
				rootErr = err
			}
			return nil
		})
	}
	_ = g.Wait()
	return rootErr
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k, ok := range m {
		if ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Fetch loads a single entity so it can be edited without loading its
// branch. Loaded entities are returned as they are.
func (s *Service) Fetch(ctx context.Context, entityType models.EntityType, id string) (*models.Node, error) {
	s.mu.Lock()
	if n, ok := s.store.Get(id); ok {
		s.mu.Unlock()
		return n, nil
	}
	s.mu.Unlock()

	fields, err := s.backend.GetEntity(ctx, s.Config.Project, entityType, id)
	if err != nil {
		return nil, fmt.Errorf("fetch %s %s: %w", entityType, id, err)
	}
	var data models.NodeData
	if err := data.Merge(fields); err != nil {
		return nil, fmt.Errorf("decode %s %s: %w", entityType, id, err)
	}
	data.ID = id
	data.EntityType = entityType
	data.ParentID = models.RootID
	parentKey := "parentId"
	if entityType == models.EntityTask {
		parentKey = "folderId"
	}
	if p, ok := fields[parentKey].(string); ok && p != "" {
		data.ParentID = p
	}
	n := &models.Node{ID: id, Data: data, Leaf: entityType == models.EntityTask}

	s.mu.Lock()
	defer s.mu.Unlock()
	if loaded, ok := s.store.Get(id); ok {
		return loaded, nil
	}
	s.store.Merge(n)
	return n, nil
}
