package service

import (
	"context"
	"fmt"

	"github.com/mattsolo1/grove-hed/pkg/models"
)

// Issue is a problem found by Doctor.
type Issue struct {
	Check   string `json:"check"`
	Message string `json:"message"`
	Fixable bool   `json:"fixable"`
	Fixed   bool   `json:"fixed"`
}

// Doctor checks the server connection, the summary cache and the saved view
// state of the project. With fix set, fixable issues are repaired.
func (s *Service) Doctor(ctx context.Context, fix bool) []Issue {
	var issues []Issue
	project := s.Config.Project

	summary, serverErr := s.backend.GetHierarchy(ctx, project)
	if serverErr != nil {
		issues = append(issues, Issue{Check: "server", Message: "cannot load the project hierarchy: " + serverErr.Error()})
	}

	if s.cache != nil {
		if _, _, err := s.cache.Load(project); err != nil {
			issue := Issue{Check: "cache", Message: err.Error(), Fixable: true}
			if fix {
				issue.Fixed = s.cache.Erase(project) == nil
				if issue.Fixed && serverErr == nil {
					_ = s.cache.Store(project, summary)
				}
			}
			issues = append(issues, issue)
		}
	}

	if s.views == nil {
		return issues
	}
	st, err := s.views.Load(project, s.Config.View)
	if err != nil {
		issue := Issue{Check: "view state", Message: err.Error(), Fixable: true}
		if fix {
			issue.Fixed = s.views.Reset(project, s.Config.View) == nil
		}
		return append(issues, issue)
	}

	// Without a summary only unsaved ids are known to be stale.
	known := map[string]bool{}
	collectFolderIDs(summary, known)
	stale := func(id string) bool {
		if models.IsNewNodeID(id) {
			return true
		}
		return serverErr == nil && id != models.RootID && !known[id]
	}

	var expanded []string
	dropped := 0
	for _, id := range st.Expanded {
		if stale(id) {
			dropped++
			continue
		}
		expanded = append(expanded, id)
	}
	var selection []string
	for _, id := range st.Selection {
		if models.IsNewNodeID(id) {
			dropped++
			continue
		}
		selection = append(selection, id)
	}
	if dropped == 0 {
		return issues
	}

	issue := Issue{
		Check:   "view state",
		Message: pluralize(dropped, "saved id no longer exists", "saved ids no longer exist"),
		Fixable: true,
	}
	if fix {
		st.Expanded = append([]string{}, expanded...)
		st.Selection = append([]string{}, selection...)
		issue.Fixed = s.views.Save(st) == nil
		if issue.Fixed {
			s.mu.Lock()
			for id := range s.expanded {
				if stale(id) {
					delete(s.expanded, id)
				}
			}
			s.mu.Unlock()
		}
	}
	return append(issues, issue)
}

func collectFolderIDs(folders []*models.FolderSummary, into map[string]bool) {
	for _, f := range folders {
		if f == nil {
			continue
		}
		into[f.ID] = true
		collectFolderIDs(f.Children, into)
	}
}

func pluralize(n int, one, many string) string {
	if n == 1 {
		return "1 " + one
	}
	return fmt.Sprintf("%d %s", n, many)
}
