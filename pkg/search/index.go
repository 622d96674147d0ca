package search

import (
	"sort"
	"strings"

	"github.com/mattsolo1/grove-hed/pkg/models"
)

// Entry is a flattened, keyword-indexed folder or task.
type Entry struct {
	ID         string
	Label      string
	Value      string
	ParentID   string
	FolderType string
	Children   []*models.FolderSummary
	TaskNames  []string
	Keywords   []string
	Depth      int
	IsTask     bool
}

// Result is the set of folders and task names a search resolves to.
type Result struct {
	FolderIDs []string `json:"folderIds"`
	TaskNames []string `json:"taskNames"`
}

// Empty reports whether the result filters nothing.
func (r Result) Empty() bool {
	return len(r.FolderIDs) == 0 && len(r.TaskNames) == 0
}

// Index manages the search entries of one hierarchy summary
type Index struct {
	entries []*Entry
	byID    map[string]*Entry
}

// NewIndex builds an index from a full-hierarchy summary.
func NewIndex(summary []*models.FolderSummary) *Index {
	entries := Build(summary)
	idx := &Index{
		entries: entries,
		byID:    make(map[string]*Entry, len(entries)),
	}
	for _, e := range entries {
		idx.byID[e.ID] = e
	}
	return idx
}

// Entries returns every entry, shallowest first.
func (idx *Index) Entries() []*Entry {
	return idx.entries
}

// Len returns the number of entries
func (idx *Index) Len() int {
	return len(idx.entries)
}

// Build flattens the summary into entries sorted by depth. Each task name is
// listed once per project, under the first folder that carries it.
func Build(summary []*models.FolderSummary) []*Entry {
	seenTasks := make(map[string]bool)
	entries := flatten(summary, "", 0, seenTasks)
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Depth < entries[j].Depth
	})
	return entries
}

func flatten(folders []*models.FolderSummary, parentID string, depth int, seenTasks map[string]bool) []*Entry {
	var out []*Entry
	for _, f := range folders {
		if f == nil {
			continue
		}
		out = append(out, &Entry{
			ID:         f.ID,
			Label:      f.Name,
			Value:      f.Name,
			ParentID:   parentID,
			FolderType: f.FolderType,
			Children:   f.Children,
			TaskNames:  f.TaskNames,
			Keywords:   keywords(f.Name, f.FolderType),
			Depth:      depth,
		})

		for _, name := range f.TaskNames {
			if seenTasks[name] {
				continue
			}
			seenTasks[name] = true
			out = append(out, &Entry{
				ID:       f.ID + name,
				Label:    name,
				Value:    name,
				Keywords: keywords(name),
				Depth:    depth + 1,
				IsTask:   true,
			})
		}

		if len(f.Children) > 0 {
			out = append(out, flatten(f.Children, f.ID, depth+1, seenTasks)...)
		}
	}
	return out
}

func keywords(words ...string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if w == "" {
			continue
		}
		out = append(out, strings.ToLower(w))
	}
	return out
}

// Filter returns the entries with a keyword containing the query.
func Filter(query string, entries []*Entry) []*Entry {
	q := strings.ToLower(strings.TrimSpace(query))
	var out []*Entry
	for _, e := range entries {
		for _, k := range e.Keywords {
			if strings.Contains(k, q) {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

// Filter returns the index entries matching the query.
func (idx *Index) Filter(query string) []*Entry {
	return Filter(query, idx.entries)
}

// Suggest returns at most limit matching entries, for completion lists.
func (idx *Index) Suggest(query string, limit int) []*Entry {
	matches := idx.Filter(query)
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// Resolve expands matched entries into the folders and task names to show.
// Matched tasks pull in every folder carrying a task of that name. Each
// resulting folder adds all its ancestors and all its descendants from the
// summary tree, so FolderIDs is closed in both directions. TaskNames holds the
// task names of those folders that contain the query.
func (idx *Index) Resolve(matches []*Entry, query string) Result {
	q := strings.ToLower(strings.TrimSpace(query))

	folders := newOrderedSet()
	tasks := newOrderedSet()

	results := append([]*Entry(nil), matches...)
	queued := make(map[string]bool, len(matches))
	for _, m := range matches {
		queued[m.ID] = true
	}
	for _, m := range matches {
		if !m.IsTask {
			continue
		}
		for _, e := range idx.entries {
			if e.IsTask || queued[e.ID] || !contains(e.TaskNames, m.Value) {
				continue
			}
			queued[e.ID] = true
			results = append(results, e)
		}
	}

	for _, f := range results {
		if f.IsTask {
			continue
		}
		folders.add(f.ID)

		for _, name := range f.TaskNames {
			if strings.Contains(strings.ToLower(name), q) {
				tasks.add(name)
			}
		}

		for parent := idx.parentOf(f.ID); parent != ""; parent = idx.parentOf(parent) {
			if !folders.add(parent) {
				break
			}
		}

		var addChildren func([]*models.FolderSummary)
		addChildren = func(children []*models.FolderSummary) {
			for _, child := range children {
				folders.add(child.ID)
				addChildren(child.Children)
			}
		}
		addChildren(f.Children)
	}

	return Result{FolderIDs: folders.items, TaskNames: tasks.items}
}

// Search filters and resolves in one step.
func (idx *Index) Search(query string) Result {
	if strings.TrimSpace(query) == "" {
		return Result{}
	}
	return idx.Resolve(idx.Filter(query), query)
}

func (idx *Index) parentOf(id string) string {
	if e, ok := idx.byID[id]; ok {
		return e.ParentID
	}
	return ""
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

type orderedSet struct {
	seen  map[string]bool
	items []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: map[string]bool{}, items: []string{}}
}

// add returns false when s was already present.
func (o *orderedSet) add(s string) bool {
	if o.seen[s] {
		return false
	}
	o.seen[s] = true
	o.items = append(o.items, s)
	return true
}
