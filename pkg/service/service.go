// Package service is the hierarchy editor: it owns the loaded node store, the
// pending-change ledger, the search index and the selection, and reconciles
// them with the server on commit.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/mattsolo1/grove-hed/pkg/ledger"
	"github.com/mattsolo1/grove-hed/pkg/models"
	"github.com/mattsolo1/grove-hed/pkg/search"
	"github.com/mattsolo1/grove-hed/pkg/tree"
	"github.com/mattsolo1/grove-hed/pkg/viewstate"
)

var (
	// ErrNothingToCommit is returned by Commit when the ledger is empty.
	ErrNothingToCommit = errors.New("nothing to commit")
	// ErrCommitInProgress is returned by Commit while another commit is submitting.
	ErrCommitInProgress = errors.New("commit already in progress")
	// ErrNoSearchIndex is returned when searching before the summary was loaded.
	ErrNoSearchIndex = errors.New("search index is not loaded")
	// ErrNoParent is returned when adding a task without a selected folder.
	ErrNoParent = errors.New("select a folder to add a task to")
	// ErrNoViewState is returned when no view state store is configured.
	ErrNoViewState = errors.New("view state is not persisted")
)

// Backend is the part of the server API the editor uses.
type Backend interface {
	LoadBranch(ctx context.Context, project, parentID string) ([]*models.Node, error)
	GetHierarchy(ctx context.Context, project string) ([]*models.FolderSummary, error)
	GetEntity(ctx context.Context, project string, entityType models.EntityType, id string) (map[string]any, error)
	SubmitOperations(ctx context.Context, project string, ops []models.Operation) (*models.BatchResult, error)
}

// CommitState tracks the last commit.
type CommitState int

const (
	CommitIdle CommitState = iota
	CommitSubmitting
	CommitApplied
	CommitFailed
)

func (s CommitState) String() string {
	switch s {
	case CommitSubmitting:
		return "submitting"
	case CommitApplied:
		return "applied"
	case CommitFailed:
		return "failed"
	}
	return "idle"
}

// Config holds service configuration
type Config struct {
	Project           string
	View              string
	ReloadConcurrency int
}

// Option configures a Service
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *logrus.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithNotifier replaces the default log notifier.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithSearchCache keeps hierarchy summaries on disk between runs.
func WithSearchCache(c *search.Cache) Option {
	return func(s *Service) { s.cache = c }
}

// WithViewState persists expansion, selection and columns between runs.
func WithViewState(v *viewstate.Store) Option {
	return func(s *Service) { s.views = v }
}

// Service is the hierarchy editor of one project. It is safe for concurrent
// use; network calls never hold the lock.
type Service struct {
	Config *Config

	backend  Backend
	logger   *logrus.Logger
	notifyMu sync.RWMutex
	notifier Notifier
	cache    *search.Cache
	views    *viewstate.Store

	mu          sync.Mutex
	store       *tree.Store
	ledger      *ledger.Ledger
	index       *search.Index
	query       string
	filter      search.Result
	expanded    map[string]bool
	selection   []string
	locked      bool
	errors      map[string]string
	loading     int
	commitState CommitState
	generations map[string]uint64 // Latest load request per branch
	inflight    map[string]uint64 // Generation of the newest running load per branch
	loads       singleflight.Group

	shownColumns []string
	columnOrder  []string
	columnWidths map[string]int
}

// New creates an editor for config.Project.
func New(config *Config, backend Backend, opts ...Option) (*Service, error) {
	if config == nil || config.Project == "" {
		return nil, fmt.Errorf("create service: project is required")
	}
	if backend == nil {
		return nil, fmt.Errorf("create service: backend is required")
	}
	if config.View == "" {
		config.View = viewstate.DefaultView
	}
	if config.ReloadConcurrency < 1 {
		config.ReloadConcurrency = 4
	}

	s := &Service{
		Config:      config,
		backend:     backend,
		store:       tree.NewStore(),
		ledger:      ledger.New(),
		expanded:    map[string]bool{},
		errors:      map[string]string{},
		generations: map[string]uint64{},
		inflight:    map[string]uint64{},

		columnWidths: map[string]int{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logrus.New()
		s.logger.SetLevel(logrus.WarnLevel)
	}
	if s.notifier == nil {
		s.notifier = &LogNotifier{Logger: s.logger}
	}
	return s, nil
}

// Init restores the saved view state, loads the root and every expanded
// branch, and loads the search index. Only a failed root load is returned;
// other failures are notified.
func (s *Service) Init(ctx context.Context) error {
	if s.views != nil {
		st, err := s.views.Load(s.Config.Project, s.Config.View)
		if err != nil {
			s.notify(LevelWarning, fmt.Sprintf("Could not restore view state: %v", err))
		} else {
			s.mu.Lock()
			s.expanded = st.ExpandedSet()
			s.selection = append([]string(nil), st.Selection...)
			s.shownColumns = append([]string(nil), st.ShownColumns...)
			s.columnOrder = append([]string(nil), st.ColumnOrder...)
			s.columnWidths = make(map[string]int, len(st.ColumnWidths))
			for name, w := range st.ColumnWidths {
				s.columnWidths[name] = w
			}
			s.mu.Unlock()
		}
	}

	if err := s.LoadExpanded(ctx); err != nil {
		return err
	}
	if err := s.LoadSearchIndex(ctx); err != nil {
		s.logger.WithError(err).Debug("Search index unavailable")
	}
	return nil
}

// SaveViewState persists expansion, selection and the column layout.
func (s *Service) SaveViewState() error {
	if s.views == nil {
		return nil
	}
	st, err := s.views.Load(s.Config.Project, s.Config.View)
	if err != nil {
		return err
	}
	s.mu.Lock()
	st.Expanded = sortedKeys(s.expanded)
	st.Selection = append([]string{}, s.selection...)
	st.ShownColumns = append([]string{}, s.shownColumns...)
	st.ColumnOrder = append([]string{}, s.columnOrder...)
	st.ColumnWidths = make(map[string]int, len(s.columnWidths))
	for name, w := range s.columnWidths {
		st.ColumnWidths[name] = w
	}
	s.mu.Unlock()
	return s.views.Save(st)
}

// ViewState returns the saved view of the project.
func (s *Service) ViewState() (*viewstate.State, error) {
	if s.views == nil {
		return nil, ErrNoViewState
	}
	return s.views.Load(s.Config.Project, s.Config.View)
}

// ResetViewState forgets the saved view and collapses everything.
func (s *Service) ResetViewState() error {
	if s.views == nil {
		return ErrNoViewState
	}
	if err := s.views.Reset(s.Config.Project, s.Config.View); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.expanded {
		s.nextGeneration(id)
	}
	s.expanded = map[string]bool{}
	s.selection = nil
	s.shownColumns = nil
	s.columnOrder = nil
	s.columnWidths = map[string]int{}
	return nil
}

// Loading reports whether a load or commit is outstanding.
func (s *Service) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading > 0
}

// CommitState returns the state of the last commit.
func (s *Service) CommitState() CommitState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commitState
}

// Errors returns the per-entity errors of the last commit.
func (s *Service) Errors() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.errors))
	for k, v := range s.errors {
		out[k] = v
	}
	return out
}

// Snapshot returns deep copies of the node store and the ledger.
func (s *Service) Snapshot() (*tree.Store, *ledger.Ledger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Snapshot(), s.ledger.Clone()
}

// SetNotifier replaces the notifier, for front ends created after the
// service.
func (s *Service) SetNotifier(n Notifier) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	s.notifier = n
}

func (s *Service) notify(level Level, msg string) {
	s.notifyMu.RLock()
	n := s.notifier
	s.notifyMu.RUnlock()
	n.Notify(Notification{Level: level, Message: msg})
}
