package portal

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/erraggy/wmtools/internal/fileutil"
	"github.com/erraggy/wmtools/internal/testutil"
	"github.com/erraggy/wmtools/webmap"
	"github.com/erraggy/wmtools/wmerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const projectsMeta = `{
  "title": "Projects",
  "layers": {
    "active": {
      "created_date": "2020-01-15T00:00:00Z",
      "service": {"capabilities": "Query,Update", "record_count": 42},
      "item_form": {"title": "Active", "formElements": [{"type": "field", "fieldName": "status", "label": "Status"}]}
    }
  }
}`

func newProjectsStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	dir := t.TempDir()
	testutil.WriteTempJSON(t, dir, "projects.json", testutil.ProjectsWebMap())
	require.NoError(t, os.WriteFile(filepath.Join(dir, "projects"+metaSuffix), []byte(projectsMeta), 0o600))
	return NewFileStore(dir, nil), dir
}

// TestFileStore_Fetch tests loading a document with its side file.
func TestFileStore_Fetch(t *testing.T) {
	store, _ := newProjectsStore(t)

	doc, err := store.Fetch(context.Background(), "projects")
	require.NoError(t, err)
	assert.Equal(t, "projects", doc.ID)
	assert.Equal(t, "Projects", doc.Title)
	assert.Equal(t, webmap.SourceFormatJSON, doc.SourceFormat)

	active := doc.FindByID("active")
	require.NotNil(t, active)
	require.NotNil(t, active.Service)
	assert.True(t, active.Service.HasCapability("update"))
	require.NotNil(t, active.Service.RecordCount)
	assert.Equal(t, 42, *active.Service.RecordCount)
	require.NotNil(t, active.CreatedDate)
	assert.Equal(t, 2020, active.CreatedDate.Year())
	assert.Equal(t, webmap.FormSourceLayer, active.FormSource())

	archive := doc.FindByID("archive")
	require.NotNil(t, archive)
	assert.Nil(t, archive.Service)
}

// TestFileStore_FetchYAML tests loading a YAML document without a side file.
func TestFileStore_FetchYAML(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteTempYAML(t, dir, "projects.yaml", testutil.ProjectsWebMap())
	store := NewFileStore(dir, nil)

	doc, err := store.Fetch(context.Background(), "projects")
	require.NoError(t, err)
	assert.Equal(t, webmap.SourceFormatYAML, doc.SourceFormat)
	assert.Empty(t, doc.Title)
	assert.NotNil(t, doc.FindByID("active"))
}

// TestFileStore_FetchErrors tests missing documents, unsafe IDs and broken side files.
func TestFileStore_FetchErrors(t *testing.T) {
	store, dir := newProjectsStore(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		id     string
		target error
	}{
		{"missing", "nope", wmerrors.ErrNotFound},
		{"empty id", "", wmerrors.ErrValidation},
		{"path traversal", "../projects", wmerrors.ErrValidation},
		{"hidden file", ".projects", wmerrors.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.Fetch(ctx, tt.id)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.target)
		})
	}

	t.Run("bad side file", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "projects"+metaSuffix), []byte("{"), 0o600))
		_, err := store.Fetch(ctx, "projects")
		assert.ErrorIs(t, err, wmerrors.ErrParse)
	})

	t.Run("canceled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := store.Fetch(cctx, "projects")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

// TestFileStore_Persist tests that a mutation is written back and survives a refetch.
func TestFileStore_Persist(t *testing.T) {
	store, dir := newProjectsStore(t)
	ctx := context.Background()

	doc, err := store.Fetch(ctx, "projects")
	require.NoError(t, err)
	doc.FindByID("active").SetDefinitionExpression("status = 'open'")
	require.NoError(t, store.Persist(ctx, doc))

	info, err := os.Stat(filepath.Join(dir, "projects.json"))
	require.NoError(t, err)
	assert.Equal(t, fileutil.OwnerReadWrite, info.Mode().Perm())

	again, err := store.Fetch(ctx, "projects")
	require.NoError(t, err)
	assert.Equal(t, "status = 'open'", again.FindByID("active").DefinitionExpression)
	assert.Equal(t, "Projects", again.Title)
}

// TestFileStore_PersistYAML tests that YAML documents stay YAML.
func TestFileStore_PersistYAML(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteTempYAML(t, dir, "projects.yml", testutil.ProjectsWebMap())
	store := NewFileStore(dir, nil)
	ctx := context.Background()

	doc, err := store.Fetch(ctx, "projects")
	require.NoError(t, err)
	doc.FindByID("archive").SetDefinitionExpression("1=0")
	require.NoError(t, store.Persist(ctx, doc))

	_, err = os.Stat(filepath.Join(dir, "projects.json"))
	assert.True(t, os.IsNotExist(err))

	again, err := store.Fetch(ctx, "projects")
	require.NoError(t, err)
	assert.Equal(t, webmap.SourceFormatYAML, again.SourceFormat)
	assert.Equal(t, "1=0", again.FindByID("archive").DefinitionExpression)
}

// TestFileStore_PersistErrors tests invalid persist input.
func TestFileStore_PersistErrors(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "missing"), nil)
	ctx := context.Background()

	assert.ErrorIs(t, store.Persist(ctx, nil), wmerrors.ErrValidation)

	doc, err := webmap.FromMap(testutil.ProjectsWebMap(), webmap.WithDocumentID("projects"))
	require.NoError(t, err)
	err = store.Persist(ctx, doc)
	assert.ErrorIs(t, err, wmerrors.ErrPersist)
}

// TestFileStore_SaveCopy tests that copies get the suffixed ID and title.
func TestFileStore_SaveCopy(t *testing.T) {
	store, dir := newProjectsStore(t)
	ctx := context.Background()

	doc, err := store.Fetch(ctx, "projects")
	require.NoError(t, err)
	doc.FindByID("active").SetDefinitionExpression("1=1")

	copyID, err := store.SaveCopy(ctx, doc, "_Copy")
	require.NoError(t, err)
	assert.Equal(t, "projects_Copy", copyID)
	assert.FileExists(t, filepath.Join(dir, "projects_Copy.json"))

	cp, err := store.Fetch(ctx, copyID)
	require.NoError(t, err)
	assert.Equal(t, "Projects_Copy", cp.Title)
	assert.Equal(t, "1=1", cp.FindByID("active").DefinitionExpression)
	assert.NotNil(t, cp.FindByID("active").Service, "layer metadata carried to the copy")

	orig, err := store.Fetch(ctx, "projects")
	require.NoError(t, err)
	assert.Empty(t, orig.FindByID("active").DefinitionExpression, "original untouched")

	_, err = store.SaveCopy(ctx, doc, "")
	assert.ErrorIs(t, err, wmerrors.ErrValidation)
	_, err = store.SaveCopy(ctx, doc, "/evil")
	assert.ErrorIs(t, err, wmerrors.ErrValidation)
}

// TestFileStore_List tests document discovery.
func TestFileStore_List(t *testing.T) {
	store, dir := newProjectsStore(t)
	testutil.WriteTempYAML(t, dir, "roads.yaml", testutil.ProjectsWebMap())
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.json"), 0o700))

	ids, err := store.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"projects", "roads"}, ids)

	_, err = NewFileStore(filepath.Join(dir, "missing"), nil).List()
	assert.Error(t, err)
}
