package ledger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattsolo1/grove-hed/pkg/models"
)

var folderMeta = Meta{EntityType: models.EntityFolder, ParentID: "root"}

func TestSetFieldCapturesMetaOnce(t *testing.T) {
	l := New()
	require.NoError(t, l.SetField("f1", EntityField, "name", "sq010", folderMeta))
	require.NoError(t, l.SetField("f1", Attribute, "fps", 25, Meta{EntityType: models.EntityTask, ParentID: "other"}))

	c, ok := l.Get("f1")
	require.True(t, ok)
	assert.Equal(t, folderMeta, c.Meta)
	assert.Equal(t, "sq010", c.EntityFields["name"])
	assert.Equal(t, 25, c.Attributes["fps"])
}

func TestSetFieldRequiresMeta(t *testing.T) {
	l := New()
	err := l.SetField("f1", Attribute, "fps", 25, Meta{})
	assert.True(t, errors.Is(err, ErrMissingMeta))
	assert.True(t, l.IsEmpty())
}

func TestDeleteTakesPrecedence(t *testing.T) {
	l := New()
	require.NoError(t, l.SetField("f1", Attribute, "fps", 25, folderMeta))
	require.NoError(t, l.MarkDeleted("f1", folderMeta))

	err := l.SetField("f1", EntityField, "name", "resurrected", folderMeta)
	assert.True(t, errors.Is(err, ErrDeleted))

	ops := l.Operations()
	require.Len(t, ops, 1)
	assert.Equal(t, models.OperationDelete, ops[0].Type)
	assert.Equal(t, "f1", ops[0].EntityID)
	assert.Nil(t, ops[0].Data)
}

func TestMarkDeletedIgnoresUnsavedNodes(t *testing.T) {
	l := New()
	n := l.AddNewNode(models.EntityFolder, "root", nil)
	require.NoError(t, l.MarkDeleted(n.ID, folderMeta))

	_, ok := l.Get(n.ID)
	assert.False(t, ok)
}

func TestOperationsSplitFields(t *testing.T) {
	l := New()
	require.NoError(t, l.SetField("f1", EntityField, "name", "sq020", folderMeta))
	require.NoError(t, l.SetField("f1", EntityField, "folderType", "Sequence", folderMeta))
	require.NoError(t, l.SetField("f1", Attribute, "fps", 24, folderMeta))

	ops := l.Operations()
	require.Len(t, ops, 1)
	op := ops[0]
	assert.Equal(t, models.OperationUpdate, op.Type)
	assert.Equal(t, models.EntityFolder, op.EntityType)
	assert.Equal(t, "sq020", op.Data["name"])
	assert.Equal(t, "Sequence", op.Data["folderType"])
	assert.Equal(t, map[string]any{"fps": 24}, op.Data["attrib"])
}

func TestCreateSendsOnlyExplicitAttributes(t *testing.T) {
	l := New()
	n := l.AddNewNode(models.EntityTask, "f1", map[string]any{"fps": 25, "frameStart": 1001})
	assert.Equal(t, "newnode0", n.ID)
	assert.Equal(t, "Generic", n.TaskType)

	meta := Meta{EntityType: n.EntityType, ParentID: n.ParentID}
	require.NoError(t, l.SetField(n.ID, EntityField, "name", "comp", meta))
	require.NoError(t, l.SetField(n.ID, Attribute, "frameStart", 1, meta))

	ops := l.Operations()
	require.Len(t, ops, 1)
	op := ops[0]
	assert.Equal(t, models.OperationCreate, op.Type)
	assert.Empty(t, op.EntityID)
	assert.Equal(t, "f1", op.Data["folderId"])
	assert.Equal(t, "Generic", op.Data["taskType"])
	assert.Equal(t, "comp", op.Data["name"])
	assert.Equal(t, map[string]any{"frameStart": 1}, op.Data["attrib"])
}

func TestCreateRootFolderHasNullParent(t *testing.T) {
	l := New()
	l.AddNewNode(models.EntityFolder, "", nil)

	ops := l.Operations()
	require.Len(t, ops, 1)
	parent, ok := ops[0].Data["parentId"]
	assert.True(t, ok)
	assert.Nil(t, parent)
}

func TestOperationsOrder(t *testing.T) {
	l := New()
	l.AddNewNode(models.EntityFolder, "a", nil)
	require.NoError(t, l.SetField("b", Attribute, "fps", 25, folderMeta))
	require.NoError(t, l.MarkDeleted("c", folderMeta))

	ops := l.Operations()
	require.Len(t, ops, 3)
	assert.Equal(t, "b", ops[0].ID)
	assert.Equal(t, "c", ops[1].ID)
	assert.Equal(t, "newnode0", ops[2].ID)
}

func TestNewNodeIDsStayUnique(t *testing.T) {
	l := New()
	a := l.AddNewNode(models.EntityFolder, "root", nil)
	b := l.AddNewNode(models.EntityFolder, "root", nil)
	l.RemoveNewNodes(a.ID)
	c := l.AddNewNode(models.EntityFolder, "root", nil)

	assert.Equal(t, "newnode0", a.ID)
	assert.Equal(t, "newnode1", b.ID)
	assert.NotEqual(t, b.ID, c.ID)
}

func TestRevertSelectionKeepsOthers(t *testing.T) {
	l := New()
	require.NoError(t, l.SetField("a", Attribute, "fps", 25, folderMeta))
	require.NoError(t, l.SetField("b", Attribute, "fps", 24, folderMeta))
	n1 := l.AddNewNode(models.EntityFolder, "root", nil)
	n2 := l.AddNewNode(models.EntityFolder, "root", nil)

	l.RevertSelection("a", n1.ID)

	assert.False(t, l.Has("a"))
	assert.True(t, l.Has("b"))
	assert.False(t, l.Has(n1.ID))
	assert.True(t, l.Has(n2.ID))
	assert.Equal(t, []string{"b"}, l.IDs())
}

func TestRevertAll(t *testing.T) {
	l := New()
	require.NoError(t, l.SetField("a", Attribute, "fps", 25, folderMeta))
	l.AddNewNode(models.EntityFolder, "root", nil)

	l.RevertAll()
	assert.True(t, l.IsEmpty())
	assert.Empty(t, l.Operations())
}

func TestPruneRoundTrip(t *testing.T) {
	l := New()
	require.NoError(t, l.SetField("u", Attribute, "fps", 25, folderMeta))
	require.NoError(t, l.MarkDeleted("d", folderMeta))
	n := l.AddNewNode(models.EntityFolder, "root", nil)
	require.NoError(t, l.SetField(n.ID, EntityField, "name", "sq030", Meta{EntityType: n.EntityType, ParentID: n.ParentID}))

	failed := l.Prune(&models.BatchResult{Success: true, Operations: []models.OperationResult{
		{ID: "u", Type: models.OperationUpdate, Success: true},
		{ID: "d", Type: models.OperationDelete, Success: true},
		{ID: n.ID, Type: models.OperationCreate, Success: true, EntityID: "new-folder"},
	}}, nil)

	assert.Empty(t, failed)
	assert.True(t, l.IsEmpty())
	assert.Empty(t, l.NewNodes())
}

func TestPrunePartialFailure(t *testing.T) {
	l := New()
	require.NoError(t, l.SetField("a", Attribute, "fps", 25, folderMeta))
	require.NoError(t, l.SetField("b", EntityField, "name", "", folderMeta))
	n := l.AddNewNode(models.EntityFolder, "root", nil)

	failed := l.Prune(&models.BatchResult{Success: false, Operations: []models.OperationResult{
		{ID: "a", Type: models.OperationUpdate, Success: true},
		{ID: "b", Type: models.OperationUpdate, Success: false, Error: "name must not be empty"},
		{ID: n.ID, Type: models.OperationCreate, Success: false, Error: "name must not be empty"},
	}}, nil)

	assert.False(t, l.Has("a"))
	assert.True(t, l.Has("b"))
	assert.True(t, l.Has(n.ID))
	assert.Equal(t, "name must not be empty", failed["b"])
	assert.Len(t, failed, 2)
}

func TestPruneKeepsEditsMadeAfterSubmit(t *testing.T) {
	l := New()
	require.NoError(t, l.SetField("f1", EntityField, "name", "sh020", folderMeta))
	require.NoError(t, l.SetField("f2", Attribute, "fps", 25, folderMeta))
	sent := l.Clone()

	// Recorded while the batch is in flight.
	require.NoError(t, l.SetField("f1", Attribute, "fps", 50, folderMeta))
	require.NoError(t, l.SetField("f2", Attribute, "fps", 30, folderMeta))
	require.NoError(t, l.MarkDeleted("f3", folderMeta))

	failed := l.Prune(&models.BatchResult{Success: true, Operations: []models.OperationResult{
		{ID: "f1", Type: models.OperationUpdate, Success: true},
		{ID: "f2", Type: models.OperationUpdate, Success: true},
	}}, sent)
	assert.Empty(t, failed)

	c, ok := l.Get("f1")
	require.True(t, ok)
	assert.Empty(t, c.EntityFields)
	assert.Equal(t, map[string]any{"fps": 50}, c.Attributes)

	c, ok = l.Get("f2")
	require.True(t, ok)
	assert.Equal(t, 30, c.Attributes["fps"])

	c, ok = l.Get("f3")
	require.True(t, ok)
	assert.True(t, c.Deleted())
	assert.Equal(t, []string{"f1", "f2", "f3"}, l.IDs())
}

func TestPruneKeepsDeleteMarkedDuringSubmit(t *testing.T) {
	l := New()
	require.NoError(t, l.SetField("f1", EntityField, "name", "sh020", folderMeta))
	sent := l.Clone()
	require.NoError(t, l.MarkDeleted("f1", folderMeta))

	l.Prune(&models.BatchResult{Success: true, Operations: []models.OperationResult{
		{ID: "f1", Type: models.OperationUpdate, Success: true},
	}}, sent)

	c, ok := l.Get("f1")
	require.True(t, ok)
	assert.True(t, c.Deleted())
	assert.Equal(t, models.OperationDelete, l.Operations()[0].Type)
}

func TestPruneMovesLateEditsOfCreatedEntity(t *testing.T) {
	l := New()
	n := l.AddNewNode(models.EntityFolder, "sq1", nil)
	meta := Meta{EntityType: n.EntityType, ParentID: n.ParentID}
	require.NoError(t, l.SetField(n.ID, EntityField, "name", "sh030", meta))
	sent := l.Clone()

	require.NoError(t, l.SetField(n.ID, Attribute, "fps", 24, meta))
	late := l.AddNewNode(models.EntityFolder, "sq1", nil)

	l.Prune(&models.BatchResult{Success: true, Operations: []models.OperationResult{
		{ID: n.ID, Type: models.OperationCreate, Success: true, EntityID: "f9"},
	}}, sent)

	_, pending := l.NewNode(n.ID)
	assert.False(t, pending)
	_, pending = l.NewNode(late.ID)
	assert.True(t, pending)

	c, ok := l.Get("f9")
	require.True(t, ok)
	assert.Equal(t, models.EntityFolder, c.EntityType)
	assert.Equal(t, "sq1", c.ParentID)
	assert.Empty(t, c.EntityFields)
	assert.Equal(t, map[string]any{"fps": 24}, c.Attributes)
}

func TestCloneIsDeep(t *testing.T) {
	l := New()
	require.NoError(t, l.SetField("a", Attribute, "fps", 25, folderMeta))
	l.AddNewNode(models.EntityFolder, "root", map[string]any{"fps": 25})

	clone := l.Clone()
	require.NoError(t, l.SetField("a", Attribute, "fps", 30, folderMeta))
	l.RevertSelection("newnode0")

	assert.Equal(t, 25, clone.changes["a"].Attributes["fps"])
	assert.Len(t, clone.NewNodes(), 1)
}

func TestApplyRendersNonStringFields(t *testing.T) {
	c := &Change{
		Meta:         folderMeta,
		EntityFields: map[string]any{"name": 123, "label": nil},
	}
	out := c.Apply(models.NodeData{Name: "old", Label: "old"})
	assert.Equal(t, "123", out.Name)
	assert.Equal(t, "", out.Label)
}

func TestApplyOverlaysEdits(t *testing.T) {
	c := &Change{
		Meta:         folderMeta,
		EntityFields: map[string]any{"name": "new", "folderType": "Shot"},
		Attributes:   map[string]any{"fps": 30},
	}
	data := models.NodeData{Name: "old", FolderType: "Folder", Attrib: map[string]any{"fps": 25}}

	out := c.Apply(data)
	assert.Equal(t, "new", out.Name)
	assert.Equal(t, "Shot", out.FolderType)
	assert.Equal(t, 30, out.Attrib["fps"])
	assert.Equal(t, 25, data.Attrib["fps"])
}

func TestBranchParents(t *testing.T) {
	l := New()
	require.NoError(t, l.SetField("a", Attribute, "fps", 25, folderMeta))
	require.NoError(t, l.SetField("b", Attribute, "fps", 25, Meta{EntityType: models.EntityTask, ParentID: "a"}))
	l.AddNewNode(models.EntityFolder, "root", nil)

	assert.Equal(t, []string{"root", "a"}, l.BranchParents())
}
