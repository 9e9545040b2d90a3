package pipeline

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialectByName(t *testing.T) {
	for _, name := range []string{"", "framework", "MaaFW"} {
		d, ok := DialectByName(name)
		require.True(t, ok, name)
		assert.Equal(t, "framework", d.Name())
	}
	d, ok := DialectByName("wpf")
	require.True(t, ok)
	assert.Equal(t, "wpf", d.Name())

	_, ok = DialectByName("cobol")
	assert.False(t, ok)
}

func TestFrameworkPaths(t *testing.T) {
	f := Framework{}
	assert.True(t, f.IsTaskPath(JSONPath{"A", "next"}))
	assert.True(t, f.IsTaskPath(JSONPath{"A", "runout_next", 2}))
	assert.False(t, f.IsTaskPath(JSONPath{"A", "next", "x"}))
	assert.False(t, f.IsTaskPath(JSONPath{"$A", "next"}))
	assert.False(t, f.IsTaskPath(JSONPath{"A", "action"}))
	assert.True(t, f.IsImagePath(JSONPath{"A", "template", 0}))
	assert.False(t, f.IsImagePath(JSONPath{"A"}))
}

func TestFrameworkRoot(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "properties.json"), "{}")
	file := filepath.Join(root, "pipeline", "a", "b", "x.json")
	writeFile(t, file, "{}")

	got, ok := Framework{}.Root(file)
	require.True(t, ok)
	assert.Equal(t, root, got)

	deep := filepath.Join(root, "pipeline", "a", "b", "c", "d", "e", "x.json")
	writeFile(t, deep, "{}")
	_, ok = Framework{}.Root(deep)
	assert.False(t, ok, "search stops after a bounded number of levels")
}

func TestWPFPaths(t *testing.T) {
	w := WPF{}
	assert.True(t, w.IsTaskPath(JSONPath{"A", "sub", 0}))
	assert.True(t, w.IsTaskPath(JSONPath{"A", "reduceOtherTimes", 1}))
	assert.False(t, w.IsTaskPath(JSONPath{"A", "next"}))
	assert.True(t, w.IsImagePath(JSONPath{"A", "template"}))
	assert.False(t, w.IsImagePath(JSONPath{"A", "template", 0}))
}

func TestWPFTaskFallback(t *testing.T) {
	got := WPF{}.TaskFallback("A@B@C#next")
	assert.Equal(t, []TaskCandidate{
		{Task: "A@B@C", Suffix: 5},
		{Task: "B@C", Prefix: 2, Suffix: 5},
		{Task: "C", Prefix: 4, Suffix: 5},
	}, got)

	assert.Equal(t, []TaskCandidate{{Task: "Plain"}}, WPF{}.TaskFallback("Plain"))
	assert.Equal(t, "A@B.png", WPF{}.TaskImage("A@B#sub"))
}

func TestWPFFallbackRoot(t *testing.T) {
	base := t.TempDir()
	child := filepath.Join(base, "x", "y", "z")
	writeFile(t, filepath.Join(child, "tasks.json"), "{}")

	_, ok := WPF{}.FallbackRoot(child)
	assert.False(t, ok)

	writeFile(t, filepath.Join(base, "tasks.json"), "{}")
	got, ok := WPF{}.FallbackRoot(child)
	require.True(t, ok)
	assert.Equal(t, filepath.Clean(base), got)
}

func TestResolveResource(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "properties.json"), "{}")
	file := filepath.Join(root, "pipeline", "sub", "x.json")
	writeFile(t, file, "{}")

	got, err := ResolveResource(root, Framework{})
	require.NoError(t, err)
	assert.Equal(t, root, got, "directories are taken as is")

	got, err = ResolveResource(file, Framework{})
	require.NoError(t, err)
	assert.Equal(t, NormalizePath(root), got)

	tasks := filepath.Join(t.TempDir(), "tasks.json")
	writeFile(t, tasks, "{}")
	got, err = ResolveResource(tasks, WPF{})
	require.NoError(t, err)
	assert.Equal(t, NormalizePath(filepath.Dir(tasks)), got)

	stray := filepath.Join(t.TempDir(), "stray.json")
	writeFile(t, stray, "{}")
	_, err = ResolveResource(stray, Framework{})
	assert.ErrorIs(t, err, ErrResourceNotFound)

	_, err = ResolveResource(filepath.Join(root, "nowhere"), Framework{})
	assert.ErrorIs(t, err, ErrResourceNotFound)
}

func TestWPFIsImageNamer(t *testing.T) {
	var d Dialect = WPF{}
	namer, ok := d.(ImageNamer)
	require.True(t, ok)
	assert.Equal(t, "Fight.png", namer.TaskImage("Fight#next"))

	_, ok = Dialect(Framework{}).(ImageNamer)
	assert.False(t, ok)
}
