package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mainJSON = `{"t1": {
  "next": ["t2"]
},

"t2": {
  "next": ["t3"]
},
"t3": {}
}
`

func resource(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	file := filepath.Join(root, "pipeline", "main.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(file), 0o755))
	require.NoError(t, os.WriteFile(file, []byte(mainJSON), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "properties.json"), []byte("{}"), 0o644))
	return root
}

func call(t *testing.T, h func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	result, err := h(context.Background(), req)
	require.NoError(t, err)
	return result
}

func text(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	tc, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "content is %T", result.Content[0])
	return tc.Text
}

// decode fails the test on an error result and unmarshals a JSON one.
func decode(t *testing.T, result *mcp.CallToolResult, v any) {
	t.Helper()
	require.False(t, result.IsError, "unexpected error: %s", text(t, result))
	require.NoError(t, json.Unmarshal([]byte(text(t, result)), v))
}

type tasksOut struct {
	Count int         `json:"count"`
	Tasks []taskEntry `json:"tasks"`
}

func TestHandleTasks(t *testing.T) {
	root := resource(t)

	var out tasksOut
	decode(t, call(t, HandleTasks, map[string]any{"resource": root}), &out)
	require.Equal(t, 3, out.Count)
	assert.Equal(t, "t2", out.Tasks[1].Name)
	assert.Equal(t, 5, out.Tasks[1].Line)

	decode(t, call(t, HandleTasks, map[string]any{"resource": root, "filter": "3"}), &out)
	require.Equal(t, 1, out.Count)
	assert.Equal(t, "t3", out.Tasks[0].Name)
}

func TestHandleTasks_PipelineFileResource(t *testing.T) {
	root := resource(t)
	file := filepath.Join(root, "pipeline", "main.json")

	var out tasksOut
	decode(t, call(t, HandleTasks, map[string]any{"resource": file}), &out)
	assert.Equal(t, 3, out.Count, "a pipeline file resolves to its project root")
}

func TestHandleTasks_MissingResource(t *testing.T) {
	assert.True(t, call(t, HandleTasks, map[string]any{}).IsError, "missing resource")
	assert.True(t, call(t, HandleTasks, map[string]any{"resource": t.TempDir()}).IsError, "directory without a pipeline")
	assert.True(t, call(t, HandleTasks, map[string]any{"resource": resource(t), "dialect": "xml"}).IsError, "unknown dialect")

	stray := filepath.Join(t.TempDir(), "stray.json")
	require.NoError(t, os.WriteFile(stray, []byte("{}"), 0o644))
	assert.True(t, call(t, HandleTasks, map[string]any{"resource": stray}).IsError, "file outside any project")
}

func TestHandleLocate(t *testing.T) {
	root := resource(t)

	var out struct {
		Line       int             `json:"line"`
		Column     int             `json:"column"`
		Definition json.RawMessage `json:"definition"`
	}
	decode(t, call(t, HandleLocate, map[string]any{"resource": root, "task": "t2"}), &out)
	assert.Equal(t, 5, out.Line)
	assert.Equal(t, 1, out.Column)
	assert.Contains(t, string(out.Definition), `"t3"`)

	assert.True(t, call(t, HandleLocate, map[string]any{"resource": root, "task": "nope"}).IsError)
}

func wpfResource(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	tasks := `{"Base": {"action": "Click"}, "Fight@Base": {"next": ["Base"]}}`
	require.NoError(t, os.WriteFile(filepath.Join(root, "tasks.json"), []byte(tasks), 0o644))
	return root
}

func TestHandleResolve_WPFFallback(t *testing.T) {
	root := wpfResource(t)

	result := call(t, HandleResolve, map[string]any{"resource": root, "dialect": "wpf", "target": "Stage@Base"})
	var out struct {
		Task string `json:"task"`
	}
	decode(t, result, &out)
	assert.Equal(t, "Base", out.Task)

	assert.True(t, call(t, HandleResolve, map[string]any{"resource": root, "dialect": "wpf", "target": "Nothing"}).IsError)
}

func TestHandleReferences(t *testing.T) {
	root := resource(t)

	var out struct {
		References []struct {
			From string `json:"from"`
		} `json:"references"`
		DefaultImage *string `json:"defaultImage"`
	}
	decode(t, call(t, HandleReferences, map[string]any{"resource": root, "task": "t2"}), &out)
	require.Len(t, out.References, 1)
	assert.Equal(t, "t1", out.References[0].From)
	assert.Nil(t, out.DefaultImage, "framework tasks have no conventional image")
}

func TestHandleReferences_WPFDefaultImage(t *testing.T) {
	root := wpfResource(t)

	var out struct {
		References []struct {
			From string `json:"from"`
		} `json:"references"`
		DefaultImage string `json:"defaultImage"`
	}
	decode(t, call(t, HandleReferences, map[string]any{"resource": root, "dialect": "wpf", "task": "Base"}), &out)
	require.Len(t, out.References, 1)
	assert.Equal(t, "Fight@Base", out.References[0].From)
	assert.Equal(t, "Base.png", out.DefaultImage)
}

func TestHandleLaunchSchema(t *testing.T) {
	result := call(t, HandleLaunchSchema, nil)
	require.False(t, result.IsError)
	assert.Contains(t, text(t, result), `"resource"`)
}
