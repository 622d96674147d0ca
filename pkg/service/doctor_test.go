package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattsolo1/grove-hed/pkg/models"
	"github.com/mattsolo1/grove-hed/pkg/search"
	"github.com/mattsolo1/grove-hed/pkg/viewstate"
)

func newDoctorService(t *testing.T, b *fakeBackend) (*Service, *viewstate.Store, string) {
	t.Helper()
	views, err := viewstate.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { views.Close() })

	cacheDir := t.TempDir()
	svc, err := New(&Config{Project: "demo"}, b,
		WithViewState(views),
		WithSearchCache(search.NewCache(cacheDir)),
		WithNotifier(make(ChanNotifier, 8)),
	)
	require.NoError(t, err)
	return svc, views, cacheDir
}

func TestDoctorHealthy(t *testing.T) {
	b := newFakeBackend()
	b.summary = []*models.FolderSummary{{ID: "a", Name: "a"}}
	svc, _, _ := newDoctorService(t, b)

	assert.Empty(t, svc.Doctor(context.Background(), false))
}

func TestDoctorServerUnreachable(t *testing.T) {
	svc, _, _ := newDoctorService(t, newFakeBackend())

	issues := svc.Doctor(context.Background(), true)
	require.Len(t, issues, 1)
	assert.Equal(t, "server", issues[0].Check)
	assert.False(t, issues[0].Fixable)
}

func TestDoctorFixesCorruptCache(t *testing.T) {
	b := newFakeBackend()
	b.summary = []*models.FolderSummary{{ID: "a", Name: "a"}}
	svc, _, cacheDir := newDoctorService(t, b)
	require.NoError(t, os.WriteFile(filepath.Join(cacheDir, "hierarchy-demo"), []byte("{"), 0644))

	issues := svc.Doctor(context.Background(), false)
	require.Len(t, issues, 1)
	assert.Equal(t, "cache", issues[0].Check)
	assert.False(t, issues[0].Fixed)

	issues = svc.Doctor(context.Background(), true)
	require.Len(t, issues, 1)
	assert.True(t, issues[0].Fixed)

	summary, ok, err := search.NewCache(cacheDir).Load("demo")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, summary, 1)
}

func TestDoctorDropsStaleViewState(t *testing.T) {
	b := newFakeBackend()
	b.summary = []*models.FolderSummary{{ID: "a", Name: "a", Children: []*models.FolderSummary{{ID: "a1", Name: "a1"}}}}
	svc, views, _ := newDoctorService(t, b)

	st, err := views.Load("demo", viewstate.DefaultView)
	require.NoError(t, err)
	st.Expanded = []string{"a", "a1", "gone", "newnode0"}
	st.Selection = []string{"a1", "newnode1"}
	require.NoError(t, views.Save(st))

	issues := svc.Doctor(context.Background(), false)
	require.Len(t, issues, 1)
	assert.Equal(t, "view state", issues[0].Check)
	assert.Equal(t, "3 saved ids no longer exist", issues[0].Message)

	issues = svc.Doctor(context.Background(), true)
	require.Len(t, issues, 1)
	assert.True(t, issues[0].Fixed)

	st, err = views.Load("demo", viewstate.DefaultView)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "a1"}, st.Expanded)
	assert.Equal(t, []string{"a1"}, st.Selection)
	assert.Empty(t, svc.Doctor(context.Background(), false))
}
