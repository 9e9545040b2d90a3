package pipeline

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/tailscale/hujson"
	"go.trai.ch/zerr"
)

// ErrResourceNotFound is returned when a resource has no pipeline directory.
var ErrResourceNotFound = zerr.New("pipeline resource not found")

// maxFallbackDepth bounds how many base layers Build follows.
const maxFallbackDepth = 8

// BuildOption configures Build.
type BuildOption func(*builder)

// WithLogger sets the logger used to report skipped files.
func WithLogger(l *slog.Logger) BuildOption {
	return func(b *builder) { b.logger = l }
}

type builder struct {
	dialect Dialect
	logger  *slog.Logger
	refs    []Reference
	seen    map[string]bool
}

// Build scans the pipeline tree of root and returns its task index.
// Files that fail to parse are skipped. A file declaring a task that an
// earlier file already declared replaces it.
func Build(root string, d Dialect, opts ...BuildOption) (*Index, error) {
	b := &builder{dialect: d, logger: slog.New(slog.DiscardHandler), seen: map[string]bool{}}
	for _, opt := range opts {
		opt(b)
	}
	idx, err := b.build(NormalizePath(root), 0)
	if err != nil {
		return nil, err
	}
	idx.finish(b.refs)
	return idx, nil
}

func (b *builder) build(root string, depth int) (*Index, error) {
	b.seen[root] = true
	pipelineRoot, ok := b.dialect.PipelineRoot(root)
	if !ok {
		return nil, zerr.With(zerr.Wrap(ErrResourceNotFound, "no pipeline directory"), "root", root)
	}
	files, err := b.dialect.Enumerate(pipelineRoot)
	if err != nil {
		return nil, zerr.Wrap(err, "enumerate pipeline")
	}

	idx := newIndex(root, b.dialect)
	for _, rel := range files {
		path := NormalizePath(filepath.Join(pipelineRoot, rel))
		data, err := os.ReadFile(path)
		if err != nil {
			b.logger.Debug("skip unreadable pipeline file", "file", path, "error", err)
			continue
		}
		doc, err := scanDocument(path, data, b.dialect)
		if err != nil {
			b.logger.Debug("skip malformed pipeline file", "file", path, "error", err)
			continue
		}
		for _, decl := range doc.decls {
			idx.put(decl)
		}
		b.refs = append(b.refs, doc.refs...)
		idx.images = append(idx.images, doc.images...)
	}

	if depth >= maxFallbackDepth {
		return idx, nil
	}
	if base, ok := b.dialect.FallbackRoot(root); ok {
		base = NormalizePath(base)
		if b.seen[base] {
			return idx, nil
		}
		baseIdx, err := b.build(base, depth+1)
		if err != nil {
			b.logger.Debug("skip fallback root", "root", base, "error", err)
			return idx, nil
		}
		idx.appendLayer(baseIdx)
	}
	return idx, nil
}

type document struct {
	decls  []*TaskDeclaration
	refs   []Reference
	images []ImageRef
}

// scanDocument parses a pipeline document and records where each top-level
// key starts. Positions come from the parser's byte offsets since a decoded
// value no longer carries them.
func scanDocument(path string, data []byte, d Dialect) (*document, error) {
	root, err := hujson.Parse(data)
	if err != nil {
		return nil, err
	}
	doc := &document{}
	obj, ok := root.Value.(*hujson.Object)
	if !ok {
		return doc, nil
	}
	lines := newLineTable(data)
	for _, m := range obj.Members {
		name, ok := literalString(m.Name)
		if !ok || strings.HasPrefix(name, "$") {
			continue
		}
		line, col := lines.position(m.Name.StartOffset)
		raw, err := hujson.Standardize(m.Value.Pack())
		if err != nil {
			raw = nil
		}
		doc.decls = append(doc.decls, &TaskDeclaration{
			Name:   name,
			File:   path,
			Line:   line,
			Column: col,
			Raw:    json.RawMessage(strings.TrimSpace(string(raw))),
		})
		w := &refWalker{path: path, task: name, dialect: d, lines: lines, doc: doc}
		w.walk(m.Value, JSONPath{name})
	}
	return doc, nil
}

type refWalker struct {
	path    string
	task    string
	dialect Dialect
	lines   *lineTable
	doc     *document
}

func (w *refWalker) walk(v hujson.Value, p JSONPath) {
	switch val := v.Value.(type) {
	case *hujson.Object:
		for _, m := range val.Members {
			key, ok := literalString(m.Name)
			if !ok {
				continue
			}
			w.walk(m.Value, append(p[:len(p):len(p)], key))
		}
	case *hujson.Array:
		for i, e := range val.Elements {
			w.walk(e, append(p[:len(p):len(p)], i))
		}
	case hujson.Literal:
		s, ok := literalString(v)
		if !ok {
			return
		}
		line, col := w.lines.position(v.StartOffset)
		loc := Location{File: w.path, Line: line, Column: col}
		if w.dialect.IsTaskPath(p) {
			w.doc.refs = append(w.doc.refs, Reference{From: w.task, Target: s, Location: loc})
		}
		if w.dialect.IsImagePath(p) {
			w.doc.images = append(w.doc.images, ImageRef{Task: w.task, Image: s, Location: loc})
		}
	}
}

func literalString(v hujson.Value) (string, bool) {
	lit, ok := v.Value.(hujson.Literal)
	if !ok || len(lit) == 0 || lit[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(lit, &s); err != nil {
		return "", false
	}
	return s, true
}

// lineTable converts byte offsets into 1-based line and rune columns.
type lineTable struct {
	data   []byte
	starts []int
}

func newLineTable(data []byte) *lineTable {
	starts := []int{0}
	for i, c := range data {
		if c == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &lineTable{data: data, starts: starts}
}

func (t *lineTable) position(offset int) (line, col int) {
	i := sort.Search(len(t.starts), func(i int) bool { return t.starts[i] > offset }) - 1
	if i < 0 {
		i = 0
	}
	return i + 1, utf8.RuneCount(t.data[t.starts[i]:offset]) + 1
}
