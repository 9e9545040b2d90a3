package pipeline

import (
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherRebuildsOnChange(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "pipeline", "main.json")
	writeFile(t, file, `{"t1": {}}`)

	var latest atomic.Pointer[Index]
	w := NewWatcher(root, Framework{}, func(idx *Index) { latest.Store(idx) }, WithDebounce(50*time.Millisecond))
	require.NoError(t, w.Start())
	defer func() { assert.NoError(t, w.Stop()) }()

	writeFile(t, file, `{"t1": {}, "t2": {}}`)

	require.Eventually(t, func() bool {
		idx := latest.Load()
		if idx == nil {
			return false
		}
		_, ok := idx.Lookup("t2")
		return ok
	}, 5*time.Second, 20*time.Millisecond)
}

func TestWatcherStopIsIdempotent(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "pipeline", "main.json"), `{}`)
	w := NewWatcher(root, Framework{}, func(*Index) {})
	require.NoError(t, w.Start())
	assert.NoError(t, w.Stop())
	assert.NotPanics(t, func() { _ = w.Stop() })
}
