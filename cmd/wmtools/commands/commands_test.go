package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/erraggy/wmtools/internal/testutil"
	"github.com/erraggy/wmtools/webmap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCLI executes the root command with args and returns stdout and stderr.
func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// mapsDir writes the projects fixture as projects.json into a fresh directory.
func mapsDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	testutil.WriteTempJSON(t, dir, "projects.json", testutil.ProjectsWebMap())
	return dir
}

func readDoc(t *testing.T, path string) *webmap.Document {
	t.Helper()
	doc, err := webmap.ParseWithOptions(webmap.WithFilePath(path))
	require.NoError(t, err)
	return doc
}

// TestVersionCmd tests the version output.
func TestVersionCmd(t *testing.T) {
	out, _, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Version:")
	assert.Contains(t, out, "Go Version:")
}

// TestAnalyzeCmd tests each output format.
func TestAnalyzeCmd(t *testing.T) {
	dir := mapsDir(t)

	t.Run("text", func(t *testing.T) {
		out, _, err := runCLI(t, "analyze", "--dir", dir, "projects")
		require.NoError(t, err)
		assert.Contains(t, out, "projects\n========")
		assert.Contains(t, out, "Score: ")
		assert.Contains(t, out, "Layers: 3, tables: 0, groups: 1")
		assert.Contains(t, out, "[reserved-keyword]")
	})

	t.Run("json", func(t *testing.T) {
		out, _, err := runCLI(t, "analyze", "--dir", dir, "--format", "json", "projects")
		require.NoError(t, err)
		var reports []map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &reports))
		require.Len(t, reports, 1)
		assert.Equal(t, "projects", reports[0]["webmap_id"])
		assert.Contains(t, reports[0], "score")
	})

	t.Run("yaml", func(t *testing.T) {
		out, _, err := runCLI(t, "analyze", "--dir", dir, "-f", "yaml", "projects")
		require.NoError(t, err)
		assert.Contains(t, out, "webmap_id: projects")
	})

	t.Run("csv", func(t *testing.T) {
		out, _, err := runCLI(t, "analyze", "--dir", dir, "--format", "csv", "projects")
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(out), "\n")
		require.Greater(t, len(lines), 1)
		assert.True(t, strings.HasPrefix(lines[0], "webmap_id,category,severity"))
		assert.True(t, strings.HasPrefix(lines[1], "projects,"))
	})

	t.Run("every map in dir", func(t *testing.T) {
		out, _, err := runCLI(t, "analyze", "--dir", dir)
		require.NoError(t, err)
		assert.Contains(t, out, "Score: ")
	})
}

// TestAnalyzeCmd_Errors tests failures and invalid flags.
func TestAnalyzeCmd_Errors(t *testing.T) {
	dir := mapsDir(t)

	tests := []struct {
		name    string
		args    []string
		message string
	}{
		{"missing map", []string{"analyze", "--dir", dir, "projects", "missing"}, "1 of 2 web maps could not be analyzed"},
		{"bad format", []string{"analyze", "--dir", dir, "--format", "xml", "projects"}, "invalid format"},
		{"bad log level", []string{"analyze", "--dir", dir, "--log-level", "loud", "projects"}, "invalid log level"},
		{"missing config", []string{"analyze", "--dir", dir, "--config", filepath.Join(dir, "nope.yaml"), "projects"}, "file not found"},
		{"empty dir", []string{"analyze", "--dir", t.TempDir()}, "no web maps found"},
		{"bad portal", []string{"analyze", "--portal", "portal.example.com", "wm1"}, "portal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runCLI(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

// TestFilterCmd_DryRun tests that the default run leaves files untouched.
func TestFilterCmd_DryRun(t *testing.T) {
	dir := mapsDir(t)
	path := filepath.Join(dir, "projects.json")
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	out, _, err := runCLI(t, "filter", "--dir", dir,
		"--field", "project_number", "--expression", "project_number = '42'", "projects")
	require.NoError(t, err)
	assert.Contains(t, out, "(dry-run)")
	assert.Contains(t, out, "would write")
	assert.Contains(t, out, "0 applied, 2 skipped, 0 failed across 1 web maps")

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

// TestFilterCmd_Apply tests writing the patched document back.
func TestFilterCmd_Apply(t *testing.T) {
	dir := mapsDir(t)

	out, _, err := runCLI(t, "filter", "--dir", dir, "--apply",
		"--field", "project_number", "--expression", "project_number = '42'", "projects")
	require.NoError(t, err)
	assert.Contains(t, out, "(apply)")
	assert.Contains(t, out, "saved")

	doc := readDoc(t, filepath.Join(dir, "projects.json"))
	assert.Equal(t, "project_number = '42'", doc.FindByID("active").DefinitionExpression)
	assert.Empty(t, doc.FindByID("archive").DefinitionExpression)
}

// TestFilterCmd_Copy tests saving the result as a copy.
func TestFilterCmd_Copy(t *testing.T) {
	dir := mapsDir(t)

	out, _, err := runCLI(t, "filter", "--dir", dir, "--apply", "--copy", "--format", "json",
		"--field", "project_number", "--expression", "project_number = '42'", "projects")
	require.NoError(t, err)

	var batch map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &batch))
	docs, ok := batch["documents"].([]any)
	require.True(t, ok)
	require.Len(t, docs, 1)
	assert.Equal(t, "projects_Copy", docs[0].(map[string]any)["copy_id"])

	orig := readDoc(t, filepath.Join(dir, "projects.json"))
	assert.Empty(t, orig.FindByID("active").DefinitionExpression)
	cp := readDoc(t, filepath.Join(dir, "projects_Copy.json"))
	assert.Equal(t, "project_number = '42'", cp.FindByID("active").DefinitionExpression)
}

// TestFilterCmd_ConfigDisablesDebug tests that debug: false applies without --apply.
func TestFilterCmd_ConfigDisablesDebug(t *testing.T) {
	dir := mapsDir(t)
	cfgPath := filepath.Join(t.TempDir(), "wmtools.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("debug: false\n"), 0o600))

	_, _, err := runCLI(t, "filter", "--dir", dir, "--config", cfgPath,
		"--field", "project_number", "--expression", "project_number = '7'", "projects")
	require.NoError(t, err)

	doc := readDoc(t, filepath.Join(dir, "projects.json"))
	assert.Equal(t, "project_number = '7'", doc.FindByID("active").DefinitionExpression)
}

// TestFilterCmd_Errors tests flag validation and failed documents.
func TestFilterCmd_Errors(t *testing.T) {
	dir := mapsDir(t)

	_, _, err := runCLI(t, "filter", "--dir", dir, "--expression", "1=1", "projects")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")

	out, _, err := runCLI(t, "filter", "--dir", dir, "--field", "project_number", "--expression", "1=1", "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 1 web maps failed")
	assert.Contains(t, out, "fetch failed")
}

// TestFormUpdateCmd tests adding a form element.
func TestFormUpdateCmd(t *testing.T) {
	dir := mapsDir(t)

	out, _, err := runCLI(t, "form", "update", "--dir", dir, "--apply",
		"--field", "project_number", "--expression-name", "expr/set-project-number", "--value", "42", "projects")
	require.NoError(t, err)
	assert.Contains(t, out, "1 applied")

	doc := readDoc(t, filepath.Join(dir, "projects.json"))
	elem, parent := doc.FindByID("active").Form().FindField("project_number")
	require.NotNil(t, elem)
	require.NotNil(t, parent)
	assert.Equal(t, webmap.DefaultGroupName, parent.Label)
	assert.True(t, doc.HasExpressionInfo("expr/set-project-number"))
}

// TestFormUpdateLayersCmd tests per-layer form updates from a YAML file.
func TestFormUpdateLayersCmd(t *testing.T) {
	dir := mapsDir(t)
	layersPath := filepath.Join(t.TempDir(), "layers.yaml")
	require.NoError(t, os.WriteFile(layersPath, []byte(`active:
  field_name: status
  expression_name: expr/set-status
  group_name: Tracking
archive:
  field_name: name
  expression_name: expr/set-name
  field_label: Project Name
`), 0o600))

	out, _, err := runCLI(t, "form", "update-layers", "--dir", dir, "--layers", layersPath, "--apply", "projects")
	require.NoError(t, err)
	assert.Contains(t, out, "2 applied")

	doc := readDoc(t, filepath.Join(dir, "projects.json"))
	_, parent := doc.FindByID("active").Form().FindField("status")
	require.NotNil(t, parent)
	assert.Equal(t, "Tracking", parent.Label)
	elem, _ := doc.FindByID("archive").Form().FindField("name")
	require.NotNil(t, elem)
	assert.Equal(t, "Project Name", elem.Label)
	assert.True(t, doc.HasExpressionInfo("expr/set-status"))

	badPath := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(badPath, []byte("active:\n  field_name: status\n"), 0o600))
	_, _, err = runCLI(t, "form", "update-layers", "--dir", dir, "--layers", badPath, "projects")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expression name is required")
}

// TestFormPropagateCmd tests copying a form element between layers.
func TestFormPropagateCmd(t *testing.T) {
	dir := t.TempDir()
	source := testutil.WithForm(testutil.FeatureLayer("src", "Source", "project_number"),
		testutil.FieldElement("project_number", "Project Number", ""),
	)
	testutil.WriteTempJSON(t, dir, "wm1.json", testutil.WebMap([]map[string]any{
		source,
		testutil.FeatureLayer("t1", "T1", "project_number"),
		testutil.FeatureLayer("t2", "T2", "status"),
	}))

	_, _, err := runCLI(t, "form", "propagate", "--dir", dir, "--source", "Source", "--target", "T1", "--target", "T2", "wm1")
	require.NoError(t, err)
	assert.Nil(t, readDoc(t, filepath.Join(dir, "wm1.json")).FindByID("t1").Form())

	_, _, err = runCLI(t, "form", "propagate", "--dir", dir, "--source", "Source", "--fields", "project_number", "--apply", "wm1")
	require.NoError(t, err)
	doc := readDoc(t, filepath.Join(dir, "wm1.json"))
	elem, _ := doc.FindByID("t1").Form().FindField("project_number")
	require.NotNil(t, elem)
	assert.Equal(t, "Project Number", elem.Label)
	assert.Nil(t, doc.FindByID("t2").Form())
}

// TestParseLevel tests log level parsing.
func TestParseLevel(t *testing.T) {
	for _, s := range []string{"debug", "info", "warn", "error", "WARN"} {
		_, err := parseLevel(s)
		assert.NoError(t, err, s)
	}
	_, err := parseLevel("verbose")
	assert.Error(t, err)
}
