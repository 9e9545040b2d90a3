package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ormasoftchile/pipedbg/pkg/config"
	"github.com/ormasoftchile/pipedbg/pkg/pipeline"
)

func writeResource(t *testing.T, content string) string {
	t.Helper()
	root := t.TempDir()
	file := filepath.Join(root, "pipeline", "main.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(file), 0o755))
	require.NoError(t, os.WriteFile(file, []byte(content), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "properties.json"), []byte("{}"), 0o644))
	return root
}

func buildIndex(t *testing.T, content string) *pipeline.Index {
	t.Helper()
	idx, err := pipeline.Build(writeResource(t, content), pipeline.Framework{})
	require.NoError(t, err)
	return idx
}

func TestWriteIndexTableAlignsWideNames(t *testing.T) {
	idx := buildIndex(t, "{\n\"开始任务\": {\"next\": [\"Done\"]},\n\"Done\": {}\n}\n")

	var buf bytes.Buffer
	writeIndexTable(&buf, idx)
	lines := strings.Split(buf.String(), "\n")

	// 开始任务 is four runes but eight columns wide.
	want := []string{
		"TASK      FILE                LINE  REFS",
		"Done      pipeline/main.json  3:1   1",
		"开始任务  pipeline/main.json  2:1   0",
	}
	require.GreaterOrEqual(t, len(lines), len(want))
	assert.Equal(t, want, lines[:len(want)])
	assert.Contains(t, buf.String(), "2 tasks in")
}

func TestWriteIndexJSON(t *testing.T) {
	idx := buildIndex(t, `{"a": {"next": ["b"]}, "b": {}}`)

	var buf bytes.Buffer
	require.NoError(t, writeIndexJSON(&buf, idx))
	var out struct {
		Dialect string     `json:"dialect"`
		Tasks   []indexRow `json:"tasks"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "framework", out.Dialect)
	require.Len(t, out.Tasks, 2)
	assert.Equal(t, "b", out.Tasks[1].Task)
	assert.Equal(t, 1, out.Tasks[1].Refs)
}

func TestRunIndexAcceptsPipelineFile(t *testing.T) {
	root := writeResource(t, `{"a": {"next": ["b"]}, "b": {}}`)
	prev := workspace
	workspace = config.DefaultWorkspace()
	indexJSON = true
	var buf bytes.Buffer
	indexCmd.SetOut(&buf)
	t.Cleanup(func() {
		workspace = prev
		indexJSON = false
		indexCmd.SetOut(nil)
	})

	require.NoError(t, runIndex(indexCmd, []string{filepath.Join(root, "pipeline", "main.json")}))
	var out struct {
		Root  string     `json:"root"`
		Tasks []indexRow `json:"tasks"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, pipeline.NormalizePath(root), out.Root)
	assert.Len(t, out.Tasks, 2)

	err := runIndex(indexCmd, []string{filepath.Join(t.TempDir(), "missing.json")})
	assert.ErrorIs(t, err, pipeline.ErrResourceNotFound)
}
