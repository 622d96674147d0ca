package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/mattsolo1/grove-hed/pkg/models"
)

// CommitResult summarizes an applied commit.
type CommitResult struct {
	Submitted int
	Failed    map[string]string
	Reloaded  []string
}

// Commit submits every pending change as one batch. Successful operations
// are removed from the ledger and their entities evicted; failed ones stay
// pending with their error available from Errors. Edits recorded while the
// batch is in flight stay pending for the next commit. Affected branches are then
// reloaded. When the batch cannot be delivered nothing changes except the
// commit state, and the wrapped error is returned.
func (s *Service) Commit(ctx context.Context) (*CommitResult, error) {
	s.mu.Lock()
	if s.commitState == CommitSubmitting {
		s.mu.Unlock()
		return nil, ErrCommitInProgress
	}
	if s.ledger.IsEmpty() {
		s.mu.Unlock()
		return nil, ErrNothingToCommit
	}
	ops := s.ledger.Operations()
	sent := s.ledger.Clone()
	candidates := s.affectedBranches()
	s.commitState = CommitSubmitting
	s.loading++
	s.mu.Unlock()

	start := time.Now()
	log := s.logger.WithFields(logrus.Fields{
		"project":    s.Config.Project,
		"operations": len(ops),
	})

	result, err := s.backend.SubmitOperations(ctx, s.Config.Project, ops)
	if err != nil {
		s.mu.Lock()
		s.loading--
		s.commitState = CommitFailed
		s.mu.Unlock()
		commitsTotal.WithLabelValues("failed").Inc()
		s.notify(LevelError, fmt.Sprintf("Commit failed: %v", err))
		return nil, fmt.Errorf("commit: %w", err)
	}

	s.mu.Lock()
	failed := s.ledger.Prune(result, sent)
	s.errors = failed

	deleted := map[string]bool{}
	var evict []string
	for _, op := range result.Operations {
		if !op.Success || models.IsNewNodeID(op.ID) {
			continue
		}
		evict = append(evict, op.ID)
		if op.Type == models.OperationDelete {
			deleted[op.ID] = true
			for _, d := range s.store.Descendants(op.ID) {
				deleted[d] = true
				evict = append(evict, d)
			}
			delete(s.expanded, op.ID)
		}
	}
	s.store.Evict(evict...)

	var branches []string
	var gens []uint64
	for _, id := range candidates {
		if deleted[id] {
			continue
		}
		branches = append(branches, id)
		gens = append(gens, s.beginLoad(id, true))
	}
	pendingChanges.Set(float64(s.ledger.Len()))
	s.mu.Unlock()

	if !result.Success {
		s.notify(LevelWarning, fmt.Sprintf("%d of %d operations failed", len(failed), len(ops)))
	}

	g := new(errgroup.Group)
	g.SetLimit(s.Config.ReloadConcurrency)
	for i, id := range branches {
		i, id := i, id
		g.Go(func() error {
			// Failures are notified by loadBranch and do not undo the commit.
			_ = s.loadBranch(ctx, id, gens[i])
			return nil
		})
	}
	_ = g.Wait()

	s.mu.Lock()
	s.loading--
	s.commitState = CommitApplied
	s.mu.Unlock()

	outcome := "applied"
	if len(failed) > 0 {
		outcome = "partial"
	}
	commitsTotal.WithLabelValues(outcome).Inc()
	commitDuration.Observe(time.Since(start).Seconds())
	log.WithFields(logrus.Fields{
		"failed":   len(failed),
		"reloaded": len(branches),
	}).Info("Commit applied")

	return &CommitResult{Submitted: len(ops), Failed: failed, Reloaded: branches}, nil
}

// affectedBranches lists the branches to reload after a commit of the
// current ledger: the parent of every pending entity, plus every pending
// entity and loaded descendant that has loaded children. Callers hold s.mu.
func (s *Service) affectedBranches() []string {
	parents := s.store.Parents()
	seen := map[string]bool{}
	var out []string
	add := func(id string) {
		if id == "" || seen[id] || models.IsNewNodeID(id) {
			return
		}
		seen[id] = true
		out = append(out, id)
	}

	for _, id := range s.ledger.BranchParents() {
		add(id)
	}
	for _, id := range s.ledger.IDs() {
		if models.IsNewNodeID(id) {
			continue
		}
		if len(parents[id]) > 0 {
			add(id)
		}
		for _, d := range s.store.Descendants(id) {
			if len(parents[d]) > 0 {
				add(d)
			}
		}
	}
	return out
}

// HandleEvent applies a live entity update and returns the patched ids. Only
// entity.update events naming this project are used, and only ids currently
// loaded are refetched and patched.
func (s *Service) HandleEvent(ctx context.Context, ev models.Event) []string {
	if ev.Topic != models.TopicEntityUpdate {
		return nil
	}
	if !strings.EqualFold(ev.Project, s.Config.Project) {
		return nil
	}

	var patched []string

	for _, id := range ev.Summary.IDs {
		s.mu.Lock()
		n, ok := s.store.Get(id)
		s.mu.Unlock()
		if !ok {
			continue
		}
		entityType := ev.Summary.EntityType
		if entityType == "" {
			entityType = n.Data.EntityType
		}

		fields, err := s.backend.GetEntity(ctx, s.Config.Project, entityType, id)
		if err != nil {
			s.notify(LevelError, fmt.Sprintf("Could not refresh %s: %v", id, err))
			continue
		}

		s.mu.Lock()
		ok, err = s.store.ApplyServerPatch(id, fields)
		s.mu.Unlock()
		if err != nil {
			s.notify(LevelWarning, fmt.Sprintf("Could not apply update of %s: %v", id, err))
			continue
		}
		if ok {
			patched = append(patched, id)
		}
		s.logger.WithField("id", id).Debug("Applied live update")
	}
	return patched
}
