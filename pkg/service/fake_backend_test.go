package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/mattsolo1/grove-hed/pkg/models"
)

// fakeBackend serves canned branches and records every call.
type fakeBackend struct {
	mu          sync.Mutex
	branches    map[string][]*models.Node
	branchErr   map[string]error
	gates       map[string]chan struct{}
	started     chan string
	loads       []string
	entities    map[string]map[string]any
	entityCalls []string
	submitted   [][]models.Operation
	submit      func(ops []models.Operation) (*models.BatchResult, error)
	summary     []*models.FolderSummary
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		branches:  map[string][]*models.Node{},
		branchErr: map[string]error{},
		gates:     map[string]chan struct{}{},
		started:   make(chan string, 16),
		entities:  map[string]map[string]any{},
	}
}

func (f *fakeBackend) setBranch(parent string, nodes ...*models.Node) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.branches[parent] = nodes
}

func (f *fakeBackend) setGate(parent string, gate chan struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if gate == nil {
		delete(f.gates, parent)
		return
	}
	f.gates[parent] = gate
}

func (f *fakeBackend) loadCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.loads...)
}

func (f *fakeBackend) LoadBranch(ctx context.Context, project, parentID string) ([]*models.Node, error) {
	f.mu.Lock()
	f.loads = append(f.loads, parentID)
	gate := f.gates[parentID]
	f.mu.Unlock()

	if gate != nil {
		f.started <- parentID
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.branchErr[parentID]; err != nil {
		return nil, err
	}
	var out []*models.Node
	for _, n := range f.branches[parentID] {
		c := n.Clone()
		c.Data.ParentID = parentID
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeBackend) GetHierarchy(ctx context.Context, project string) ([]*models.FolderSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.summary == nil {
		return nil, fmt.Errorf("no summary")
	}
	return f.summary, nil
}

func (f *fakeBackend) GetEntity(ctx context.Context, project string, entityType models.EntityType, id string) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entityCalls = append(f.entityCalls, id)
	fields, ok := f.entities[id]
	if !ok {
		return nil, fmt.Errorf("%s %s not found", entityType, id)
	}
	return fields, nil
}

func (f *fakeBackend) SubmitOperations(ctx context.Context, project string, ops []models.Operation) (*models.BatchResult, error) {
	f.mu.Lock()
	f.submitted = append(f.submitted, ops)
	submit := f.submit
	f.mu.Unlock()
	if submit == nil {
		return allSucceeded(ops), nil
	}
	return submit(ops)
}

func allSucceeded(ops []models.Operation) *models.BatchResult {
	result := &models.BatchResult{Success: true}
	for _, op := range ops {
		result.Operations = append(result.Operations, models.OperationResult{ID: op.ID, Type: op.Type, Success: true})
	}
	return result
}

func folderNode(id, name string, leaf bool) *models.Node {
	return &models.Node{ID: id, Leaf: leaf, Data: models.NodeData{
		ID:         id,
		EntityType: models.EntityFolder,
		Name:       name,
		FolderType: "Folder",
		Attrib:     map[string]any{"fps": 25},
	}}
}

func taskNode(id, name string) *models.Node {
	return &models.Node{ID: id, Leaf: true, Data: models.NodeData{
		ID:         id,
		EntityType: models.EntityTask,
		Name:       name,
		TaskType:   "Generic",
		Attrib:     map[string]any{"fps": 25},
	}}
}

func newTestService(t *testing.T, backend Backend) (*Service, ChanNotifier) {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	notes := make(ChanNotifier, 32)
	svc, err := New(&Config{Project: "demo"}, backend, WithLogger(logger), WithNotifier(notes))
	require.NoError(t, err)
	return svc, notes
}

func drain(c ChanNotifier) []Notification {
	var out []Notification
	for {
		select {
		case n := <-c:
			out = append(out, n)
		default:
			return out
		}
	}
}
