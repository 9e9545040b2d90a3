package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ormasoftchile/pipedbg/pkg/engine"
)

func TestParseLaunchArgs(t *testing.T) {
	raw := `{
		"type": "maa",
		"request": "launch",
		"name": "Debug pipeline",
		"resource": "/res",
		"agent": "/agent",
		"task": "StartUp",
		"param": {"StartUp": {"timeout": 100}},
		"controller": {"long": 1280, "package": "com.example"},
		"customActions": ["Tap"]
	}`
	args, err := ParseLaunchArgs([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "/res", args.Resource)
	assert.Equal(t, "StartUp", args.Task)
	require.NotNil(t, args.Controller)
	assert.Equal(t, 1280, args.Controller.Long)
	assert.Equal(t, "com.example", args.Controller.Package)
	assert.Equal(t, []string{"Tap"}, args.CustomActions)
	assert.JSONEq(t, `{"StartUp":{"timeout":100}}`, string(args.ParamJSON()))
}

func TestParseLaunchArgsRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"missing task", `{"resource": "/res", "agent": ""}`},
		{"empty resource", `{"resource": "", "agent": "", "task": "A"}`},
		{"wrong type", `{"resource": "/res", "agent": "", "task": 3}`},
		{"bad controller", `{"resource": "/res", "agent": "", "task": "A", "controller": {"long": 0}}`},
		{"unknown dialect", `{"resource": "/res", "agent": "", "task": "A", "dialect": "cobol"}`},
		{"not json", `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLaunchArgs([]byte(tt.raw))
			assert.ErrorIs(t, err, ErrInvalidLaunchArgs)
		})
	}
}

func TestParamJSONDefaultsToEmptyObject(t *testing.T) {
	assert.Equal(t, "{}", string(LaunchArgs{}.ParamJSON()))
}

func TestGenerateLaunchSchema(t *testing.T) {
	data, err := GenerateLaunchSchema()
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "pipedbg launch arguments", doc["title"])
	assert.Contains(t, string(data), `"resource"`)
	assert.Contains(t, string(data), `"customActions"`)
}

func TestLoadWorkspaceDefaults(t *testing.T) {
	t.Setenv(EngineEnv, "")
	cfg, err := LoadWorkspace(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, engine.DefaultBaseURL, cfg.Engine)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Zero(t, cfg.Interval())
}

func TestLoadWorkspaceFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".pipedbg"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".pipedbg", "config.yaml"), []byte(`
engine: http://10.0.0.2:13126
dialect: wpf
pollInterval: 250ms
watch: true
`), 0o644))

	t.Setenv(EngineEnv, "")
	cfg, err := LoadWorkspace(dir)
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.2:13126", cfg.Engine)
	assert.Equal(t, "wpf", cfg.Dialect)
	assert.True(t, cfg.Watch)
	assert.Equal(t, 250*time.Millisecond, cfg.Interval())

	t.Setenv(EngineEnv, "http://override:1")
	cfg, err = LoadWorkspace(dir)
	require.NoError(t, err)
	assert.Equal(t, "http://override:1", cfg.Engine)
}

func TestLoadWorkspaceRejectsBadInterval(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".pipedbg"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".pipedbg", "config.yaml"), []byte("pollInterval: soon\n"), 0o644))
	_, err := LoadWorkspace(dir)
	assert.Error(t, err)
}
