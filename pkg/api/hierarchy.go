package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/mattsolo1/grove-hed/pkg/models"
)

const branchQuery = `
query Branch($projectName: String!, $parentIds: [String!]!, $withTasks: Boolean!) {
  project(name: $projectName) {
    folders(parentIds: $parentIds) {
      edges {
        node {
          id
          name
          label
          folderType
          status
          parents
          hasChildren
          hasTasks
          ownAttrib
          allAttrib
        }
      }
    }
    tasks(folderIds: $parentIds) @include(if: $withTasks) {
      edges {
        node {
          id
          name
          label
          taskType
          status
          folderId
          ownAttrib
          allAttrib
        }
      }
    }
  }
}`

type connection[T any] struct {
	Edges []struct {
		Node T `json:"node"`
	} `json:"edges"`
}

type folderNode struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Label       string   `json:"label"`
	FolderType  string   `json:"folderType"`
	Status      string   `json:"status"`
	Parents     []string `json:"parents"`
	HasChildren bool     `json:"hasChildren"`
	HasTasks    bool     `json:"hasTasks"`
	OwnAttrib   []string `json:"ownAttrib"`
	AllAttrib   string   `json:"allAttrib"` // JSON encoded
}

type taskNode struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Label     string   `json:"label"`
	TaskType  string   `json:"taskType"`
	Status    string   `json:"status"`
	FolderID  string   `json:"folderId"`
	OwnAttrib []string `json:"ownAttrib"`
	AllAttrib string   `json:"allAttrib"`
}

type branchData struct {
	Project *struct {
		Folders connection[folderNode] `json:"folders"`
		Tasks   connection[taskNode]   `json:"tasks"`
	} `json:"project"`
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphQLResponse[T any] struct {
	Data   T `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// LoadBranch fetches the direct children of parentID: folders first, then the
// tasks of parentID. Children of the root are tagged with models.RootID as
// their parent. Folders without subfolders and tasks are leaves.
func (c *Client) LoadBranch(ctx context.Context, project, parentID string) ([]*models.Node, error) {
	if parentID == "" {
		parentID = models.RootID
	}
	req := graphQLRequest{
		Query: branchQuery,
		Variables: map[string]any{
			"projectName": project,
			"parentIds":   []string{parentID},
			"withTasks":   parentID != models.RootID,
		},
	}
	var resp graphQLResponse[branchData]
	if err := c.do(ctx, "branch", http.MethodPost, "/graphql", req, &resp); err != nil {
		return nil, fmt.Errorf("load branch %s: %w", parentID, err)
	}
	if len(resp.Errors) > 0 {
		msgs := make([]string, 0, len(resp.Errors))
		for _, e := range resp.Errors {
			msgs = append(msgs, e.Message)
		}
		return nil, fmt.Errorf("load branch %s: %s", parentID, strings.Join(msgs, "; "))
	}
	if resp.Data.Project == nil {
		return nil, fmt.Errorf("load branch %s: project %q not found", parentID, project)
	}

	var nodes []*models.Node
	for _, edge := range resp.Data.Project.Folders.Edges {
		f := edge.Node
		attrib, err := decodeAttrib(f.AllAttrib)
		if err != nil {
			return nil, fmt.Errorf("load branch %s: folder %s: %w", parentID, f.ID, err)
		}
		nodes = append(nodes, &models.Node{
			ID:   f.ID,
			Leaf: !f.HasChildren && !f.HasTasks,
			Data: models.NodeData{
				ID:         f.ID,
				EntityType: models.EntityFolder,
				ParentID:   parentID,
				Name:       f.Name,
				Label:      f.Label,
				FolderType: f.FolderType,
				Status:     f.Status,
				Attrib:     attrib,
				OwnAttrib:  f.OwnAttrib,
				Parents:    f.Parents,
			},
		})
	}
	for _, edge := range resp.Data.Project.Tasks.Edges {
		t := edge.Node
		attrib, err := decodeAttrib(t.AllAttrib)
		if err != nil {
			return nil, fmt.Errorf("load branch %s: task %s: %w", parentID, t.ID, err)
		}
		nodes = append(nodes, &models.Node{
			ID:   t.ID,
			Leaf: true,
			Data: models.NodeData{
				ID:         t.ID,
				EntityType: models.EntityTask,
				ParentID:   parentID,
				Name:       t.Name,
				Label:      t.Label,
				TaskType:   t.TaskType,
				Status:     t.Status,
				Attrib:     attrib,
				OwnAttrib:  t.OwnAttrib,
			},
		})
	}
	return nodes, nil
}

func decodeAttrib(raw string) (map[string]any, error) {
	attrib := map[string]any{}
	if raw == "" {
		return attrib, nil
	}
	if err := json.Unmarshal([]byte(raw), &attrib); err != nil {
		return nil, fmt.Errorf("decode attributes: %w", err)
	}
	return attrib, nil
}

// GetHierarchy fetches the folder summary of the whole project.
func (c *Client) GetHierarchy(ctx context.Context, project string) ([]*models.FolderSummary, error) {
	var resp struct {
		Hierarchy []*models.FolderSummary `json:"hierarchy"`
	}
	path := fmt.Sprintf("/api/projects/%s/hierarchy", url.PathEscape(project))
	if err := c.do(ctx, "hierarchy", http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("get hierarchy: %w", err)
	}
	return resp.Hierarchy, nil
}

// GetEntity fetches the current server state of one folder or task.
func (c *Client) GetEntity(ctx context.Context, project string, entityType models.EntityType, id string) (map[string]any, error) {
	path := fmt.Sprintf("/api/projects/%s/%ss/%s", url.PathEscape(project), entityType, url.PathEscape(id))
	fields := map[string]any{}
	if err := c.do(ctx, "entity", http.MethodGet, path, nil, &fields); err != nil {
		return nil, fmt.Errorf("get %s %s: %w", entityType, id, err)
	}
	return fields, nil
}

// SubmitOperations sends a batch in one call. Individual operations may fail;
// the returned error covers transport and server errors only.
func (c *Client) SubmitOperations(ctx context.Context, project string, ops []models.Operation) (*models.BatchResult, error) {
	body := struct {
		Operations []models.Operation `json:"operations"`
		CanFail    bool               `json:"canFail"`
	}{Operations: ops, CanFail: true}

	path := fmt.Sprintf("/api/projects/%s/operations", url.PathEscape(project))
	result := &models.BatchResult{}
	if err := c.do(ctx, "operations", http.MethodPost, path, body, result); err != nil {
		return nil, fmt.Errorf("submit %d operations: %w", len(ops), err)
	}

	for _, op := range result.Operations {
		outcome := "success"
		if !op.Success {
			outcome = "failure"
		}
		operationsSubmitted.WithLabelValues(string(op.Type), outcome).Inc()
	}
	return result, nil
}
