package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattsolo1/grove-hed/pkg/models"
)

// testSummary:
//
//	a1 (Episode)
//	  a2 (Sequence)
//	    f (Sequence) [compositing]
//	      d1 (Shot) [animation]
//	        d2 (Shot)
//	    g (Sequence) [compositing, lighting]
//	other (Library) [modeling]
func testSummary() []*models.FolderSummary {
	d2 := &models.FolderSummary{ID: "d2", Name: "sh020", FolderType: "Shot"}
	d1 := &models.FolderSummary{ID: "d1", Name: "sh010", FolderType: "Shot", Children: []*models.FolderSummary{d2}, TaskNames: []string{"animation"}}
	f := &models.FolderSummary{ID: "f", Name: "sq010", FolderType: "Sequence", Children: []*models.FolderSummary{d1}, TaskNames: []string{"compositing"}}
	g := &models.FolderSummary{ID: "g", Name: "sq020", FolderType: "Sequence", TaskNames: []string{"compositing", "lighting"}}
	a2 := &models.FolderSummary{ID: "a2", Name: "ep01_main", FolderType: "Sequence", Children: []*models.FolderSummary{f, g}}
	a1 := &models.FolderSummary{ID: "a1", Name: "ep01", FolderType: "Episode", Children: []*models.FolderSummary{a2}}
	other := &models.FolderSummary{ID: "other", Name: "props", FolderType: "Library", TaskNames: []string{"modeling"}}
	return []*models.FolderSummary{a1, other}
}

func TestBuildSortedByDepth(t *testing.T) {
	entries := Build(testSummary())
	require.NotEmpty(t, entries)
	for i := 1; i < len(entries); i++ {
		assert.LessOrEqual(t, entries[i-1].Depth, entries[i].Depth)
	}

	assert.Equal(t, "a1", entries[0].ID)
	assert.Equal(t, 0, entries[0].Depth)
	assert.Equal(t, []string{"ep01", "episode"}, entries[0].Keywords)
}

func TestBuildDeduplicatesTasks(t *testing.T) {
	entries := Build(testSummary())

	var compositing []*Entry
	for _, e := range entries {
		if e.IsTask && e.Value == "compositing" {
			compositing = append(compositing, e)
		}
	}
	require.Len(t, compositing, 1)
	assert.Equal(t, "fcompositing", compositing[0].ID)
	assert.Equal(t, 3, compositing[0].Depth)
}

func TestFilterMatchesSubstringOfKeywords(t *testing.T) {
	idx := NewIndex(testSummary())

	matches := idx.Filter("SQ0")
	ids := entryIDs(matches)
	assert.ElementsMatch(t, []string{"f", "g"}, ids)

	matches = idx.Filter("shot")
	assert.ElementsMatch(t, []string{"d1", "d2"}, entryIDs(matches))

	assert.Empty(t, idx.Filter("nothing-like-this"))
}

func TestResolveFolderClosure(t *testing.T) {
	idx := NewIndex(testSummary())

	var f *Entry
	for _, e := range idx.Entries() {
		if e.ID == "f" {
			f = e
		}
	}
	require.NotNil(t, f)

	result := idx.Resolve([]*Entry{f}, "sq010")
	assert.ElementsMatch(t, []string{"f", "a1", "a2", "d1", "d2"}, result.FolderIDs)
	assert.Empty(t, result.TaskNames)
}

func TestResolveTaskPullsInCarryingFolders(t *testing.T) {
	idx := NewIndex(testSummary())

	result := idx.Search("compo")
	assert.Contains(t, result.FolderIDs, "f")
	assert.Contains(t, result.FolderIDs, "g")
	assert.Contains(t, result.FolderIDs, "a1")
	assert.Contains(t, result.FolderIDs, "a2")
	assert.NotContains(t, result.FolderIDs, "other")
	assert.Equal(t, []string{"compositing"}, result.TaskNames)
}

func TestResolveIsDeduplicated(t *testing.T) {
	idx := NewIndex(testSummary())

	result := idx.Search("s")
	seen := map[string]bool{}
	for _, id := range result.FolderIDs {
		assert.False(t, seen[id], "duplicate folder id %s", id)
		seen[id] = true
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	idx := NewIndex(testSummary())
	assert.True(t, idx.Search("  ").Empty())
}

func TestSuggestLimit(t *testing.T) {
	idx := NewIndex(testSummary())
	assert.Len(t, idx.Suggest("s", 2), 2)
}

func TestCacheRoundTrip(t *testing.T) {
	cache := NewCache(t.TempDir())

	_, ok, err := cache.Load("Big Project")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Store("Big Project", testSummary()))
	summary, ok, err := cache.Load("Big Project")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, summary, 2)
	assert.Equal(t, "a1", summary[0].ID)
	assert.Equal(t, "sh020", summary[0].Children[0].Children[0].Children[0].Children[0].Name)

	require.NoError(t, cache.Erase("Big Project"))
	_, ok, err = cache.Load("Big Project")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCacheKeepsSimilarProjectNamesApart(t *testing.T) {
	assert.NotEqual(t, cacheKey("A.b"), cacheKey("a_b"))
	assert.NotEqual(t, cacheKey("Demo"), cacheKey("demo"))
	assert.Equal(t, cacheKey("demo"), cacheKey("demo"))
	assert.Regexp(t, `^hierarchy-a_b-[0-9a-f]{8}$`, cacheKey("a_b"))

	cache := NewCache(t.TempDir())
	require.NoError(t, cache.Store("A.b", testSummary()))
	_, ok, err := cache.Load("a_b")
	require.NoError(t, err)
	assert.False(t, ok)
}

func entryIDs(entries []*Entry) []string {
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	return ids
}
