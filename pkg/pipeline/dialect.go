// Package pipeline indexes the task declarations of a pipeline source tree.
//
// A pipeline is a set of JSON documents whose top-level keys are task
// declarations. Where the files live, which nested values reference other
// tasks and how a referenced name falls back to a declared one depends on
// the pipeline dialect.
package pipeline

import (
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"go.trai.ch/zerr"
)

// JSONPath locates a value inside a pipeline document. Object keys are
// strings and array positions are ints; the first element is the task name.
type JSONPath []any

// TaskCandidate is one step of a dialect's task fallback chain. Prefix and
// Suffix count the characters of the original reference that the candidate
// drops at each end.
type TaskCandidate struct {
	Task   string
	Prefix int
	Suffix int
}

// Dialect captures the layout and naming rules of one pipeline flavour.
type Dialect interface {
	// Name identifies the dialect in configuration.
	Name() string
	// IsTaskPath reports whether a string literal at p names another task.
	IsTaskPath(p JSONPath) bool
	// IsImagePath reports whether a string literal at p names a template image.
	IsImagePath(p JSONPath) bool
	// Root finds the project root owning the given pipeline file.
	Root(file string) (string, bool)
	// FallbackRoot returns the base project layered under root, if any.
	FallbackRoot(root string) (string, bool)
	// PipelineRoot returns the directory holding pipeline documents.
	PipelineRoot(root string) (string, bool)
	// Enumerate lists pipeline documents below the pipeline root, relative
	// to it, in a stable order.
	Enumerate(pipelineRoot string) ([]string, error)
	// TaskFallback lists the names a task reference may resolve to, most
	// specific first.
	TaskFallback(task string) []TaskCandidate
}

// ImageNamer is implemented by dialects whose tasks have a conventional
// template image name.
type ImageNamer interface {
	TaskImage(task string) string
}

// ResolveResource returns the resource directory for path. A directory is
// returned as is; a pipeline file resolves to the project root owning it.
func ResolveResource(path string, d Dialect) (string, error) {
	if isDir(path) {
		return path, nil
	}
	if !isFile(path) {
		return "", zerr.With(zerr.Wrap(ErrResourceNotFound, "no such file or directory"), "path", path)
	}
	root, ok := d.Root(NormalizePath(path))
	if !ok {
		return "", zerr.With(zerr.Wrap(ErrResourceNotFound, "no project root owns file"), "path", path)
	}
	return root, nil
}

// Dialects lists the names accepted by DialectByName.
var Dialects = []string{"framework", "wpf"}

// DialectByName returns the dialect registered under name. An empty name
// selects the framework dialect.
func DialectByName(name string) (Dialect, bool) {
	switch strings.ToLower(name) {
	case "", "framework", "maafw":
		return Framework{}, true
	case "wpf", "maa":
		return WPF{}, true
	default:
		return nil, false
	}
}

// NormalizePath cleans p and makes it absolute so that paths coming from an
// editor and paths found while scanning compare equal. Drive letters are
// lower-cased on Windows because editors disagree on their case.
func NormalizePath(p string) string {
	if p == "" {
		return ""
	}
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	p = filepath.Clean(p)
	if runtime.GOOS == "windows" && len(p) >= 2 && p[1] == ':' {
		p = strings.ToLower(p[:1]) + p[1:]
	}
	return p
}

func isDir(p string) bool {
	st, err := os.Stat(p)
	return err == nil && st.IsDir()
}

func isFile(p string) bool {
	st, err := os.Stat(p)
	return err == nil && st.Mode().IsRegular()
}

func pathShape(p JSONPath, minLen, maxLen int) (task, field string, ok bool) {
	if len(p) < minLen || len(p) > maxLen {
		return "", "", false
	}
	task, ok = p[0].(string)
	if !ok {
		return "", "", false
	}
	field, ok = p[1].(string)
	if !ok {
		return "", "", false
	}
	if len(p) == 3 {
		if _, isIndex := p[2].(int); !isIndex {
			return "", "", false
		}
	}
	return task, field, true
}

func oneOf(s string, set ...string) bool {
	for _, v := range set {
		if s == v {
			return true
		}
	}
	return false
}

func walkJSONFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".json") || !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
