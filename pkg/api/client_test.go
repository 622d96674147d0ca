package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattsolo1/grove-hed/pkg/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", WithToken("secret"))
}

func TestRequestHeaders(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-Id"))
		assert.Equal(t, "/api/projects/demo%20proj/hierarchy", r.URL.EscapedPath())
		_, _ = w.Write([]byte(`{"hierarchy":[{"id":"a","name":"ep01","folderType":"Episode","taskNames":["edit"]}]}`))
	})

	summary, err := client.GetHierarchy(context.Background(), "demo proj")
	require.NoError(t, err)
	require.Len(t, summary, 1)
	assert.Equal(t, "ep01", summary[0].Name)
	assert.Equal(t, []string{"edit"}, summary[0].TaskNames)
}

func TestErrorDetail(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"Folder not found"}`))
	})

	_, err := client.GetEntity(context.Background(), "demo", models.EntityFolder, "f1")
	require.Error(t, err)

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "Folder not found", apiErr.Detail)
	assert.True(t, IsNotFound(err))
}

func TestLoadBranch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/graphql", r.URL.Path)
		var req graphQLRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "demo", req.Variables["projectName"])
		assert.Equal(t, []any{"f1"}, req.Variables["parentIds"])
		assert.Equal(t, true, req.Variables["withTasks"])

		_, _ = w.Write([]byte(`{"data":{"project":{
			"folders":{"edges":[
				{"node":{"id":"s1","name":"sh010","folderType":"Shot","hasChildren":false,"hasTasks":true,"allAttrib":"{\"fps\":25}"}},
				{"node":{"id":"s2","name":"sh020","folderType":"Shot","hasChildren":false,"hasTasks":false,"allAttrib":""}}
			]},
			"tasks":{"edges":[
				{"node":{"id":"t1","name":"comp","taskType":"Compositing","folderId":"f1","allAttrib":"{}"}}
			]}
		}}}`))
	})

	nodes, err := client.LoadBranch(context.Background(), "demo", "f1")
	require.NoError(t, err)
	require.Len(t, nodes, 3)

	assert.Equal(t, "s1", nodes[0].ID)
	assert.False(t, nodes[0].Leaf)
	assert.Equal(t, "f1", nodes[0].Data.ParentID)
	assert.Equal(t, models.EntityFolder, nodes[0].Data.EntityType)
	assert.Equal(t, float64(25), nodes[0].Data.Attrib["fps"])

	assert.True(t, nodes[1].Leaf)

	assert.Equal(t, models.EntityTask, nodes[2].Data.EntityType)
	assert.True(t, nodes[2].Leaf)
	assert.Equal(t, "Compositing", nodes[2].Data.TaskType)
}

func TestLoadBranchRootSkipsTasks(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req graphQLRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []any{"root"}, req.Variables["parentIds"])
		assert.Equal(t, false, req.Variables["withTasks"])
		_, _ = w.Write([]byte(`{"data":{"project":{"folders":{"edges":[{"node":{"id":"a","name":"ep01","hasChildren":true}}]}}}}`))
	})

	nodes, err := client.LoadBranch(context.Background(), "demo", "")
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, models.RootID, nodes[0].Data.ParentID)
}

func TestLoadBranchGraphQLErrors(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":null,"errors":[{"message":"boom"}]}`))
	})

	_, err := client.LoadBranch(context.Background(), "demo", "f1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestSubmitOperations(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/projects/demo/operations", r.URL.Path)

		var body struct {
			Operations []models.Operation `json:"operations"`
			CanFail    bool               `json:"canFail"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.True(t, body.CanFail)
		require.Len(t, body.Operations, 2)

		_, _ = w.Write([]byte(`{"success":false,"operations":[
			{"id":"a","type":"update","success":true},
			{"id":"b","type":"delete","success":false,"error":"in use"}
		]}`))
	})

	result, err := client.SubmitOperations(context.Background(), "demo", []models.Operation{
		{ID: "a", Type: models.OperationUpdate, EntityType: models.EntityFolder, EntityID: "a"},
		{ID: "b", Type: models.OperationDelete, EntityType: models.EntityFolder, EntityID: "b"},
	})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, []string{"a"}, result.Succeeded())
	assert.Equal(t, "in use", result.Failures()["b"])
}

func TestSetAddonVersionsSendsNull(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]map[string]map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		entry, ok := body["versions"]["core"]
		require.True(t, ok)
		v, present := entry["stagingVersion"]
		assert.True(t, present)
		assert.Nil(t, v)
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, client.SetAddonVersions(context.Background(), "staging", map[string]*string{"core": nil}))
}

func TestPresetOptions(t *testing.T) {
	opts := PresetOptions([]models.AnatomyPreset{
		{Name: "studio", Version: "1.0"},
		{Name: "feature", Version: "2.1", Primary: true},
	})
	require.Len(t, opts, 3)
	assert.Equal(t, "feature", opts[0].Name)
	assert.Equal(t, "<default (feature)>", opts[0].Title)
	assert.Equal(t, "studio", opts[1].Title)

	opts = PresetOptions(nil)
	require.Len(t, opts, 1)
	assert.Equal(t, DefaultPresetName, opts[0].Name)
}
