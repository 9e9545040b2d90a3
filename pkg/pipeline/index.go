package pipeline

import (
	"encoding/json"
	"sort"
)

// Location is a 1-based position inside a pipeline file.
type Location struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

// TaskDeclaration is a top-level entry of a pipeline document.
type TaskDeclaration struct {
	Name   string          `json:"name"`
	File   string          `json:"file"`
	Line   int             `json:"line"`
	Column int             `json:"column"`
	Raw    json.RawMessage `json:"raw,omitempty"`
}

// Location returns where the declaration's key starts.
func (d *TaskDeclaration) Location() Location {
	return Location{File: d.File, Line: d.Line, Column: d.Column}
}

// Reference is a string literal that names a task, e.g. an entry of "next".
type Reference struct {
	From     string   `json:"from"`
	Target   string   `json:"target"`
	Location Location `json:"location"`
}

// ImageRef is a string literal naming a template image.
type ImageRef struct {
	Task     string   `json:"task"`
	Image    string   `json:"image"`
	Location Location `json:"location"`
}

// Index maps task names to their declarations. It is immutable once Build
// returns it.
type Index struct {
	root    string
	dialect Dialect

	// layers holds every declaration of a task, primary layer first.
	layers map[string][]*TaskDeclaration
	// byFile holds every declaration of a file sorted by line.
	byFile map[string][]*TaskDeclaration
	refs   map[string][]Reference
	images []ImageRef
}

func newIndex(root string, d Dialect) *Index {
	return &Index{
		root:    root,
		dialect: d,
		layers:  make(map[string][]*TaskDeclaration),
		byFile:  make(map[string][]*TaskDeclaration),
		refs:    make(map[string][]Reference),
	}
}

// Root is the resource directory the index was built from.
func (x *Index) Root() string { return x.root }

// Dialect is the dialect used to build the index.
func (x *Index) Dialect() Dialect { return x.dialect }

// Len reports the number of distinct task names.
func (x *Index) Len() int { return len(x.layers) }

// Lookup returns the effective declaration of a task.
func (x *Index) Lookup(name string) (*TaskDeclaration, bool) {
	if x == nil {
		return nil, false
	}
	ds := x.layers[name]
	if len(ds) == 0 {
		return nil, false
	}
	return ds[0], true
}

// Locations returns every declaration site of a task, primary layer first.
func (x *Index) Locations(name string) []Location {
	var out []Location
	for _, d := range x.layers[name] {
		out = append(out, d.Location())
	}
	return out
}

// Tasks returns the sorted task names.
func (x *Index) Tasks() []string {
	names := make([]string, 0, len(x.layers))
	for name := range x.layers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Files returns the sorted list of files that declare at least one task.
func (x *Index) Files() []string {
	files := make([]string, 0, len(x.byFile))
	for f := range x.byFile {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}

// DeclarationsIn returns the declarations of file ordered by line.
func (x *Index) DeclarationsIn(file string) []*TaskDeclaration {
	if x == nil {
		return nil
	}
	return x.byFile[NormalizePath(file)]
}

// Nearest returns the declaration of file with the greatest line not after
// line: a position inside a task body maps to the task it belongs to.
func (x *Index) Nearest(file string, line int) (*TaskDeclaration, bool) {
	decls := x.DeclarationsIn(file)
	i := sort.Search(len(decls), func(i int) bool { return decls[i].Line > line })
	if i == 0 {
		return nil, false
	}
	return decls[i-1], true
}

// Resolve follows the dialect's fallback chain until a declared task is found.
func (x *Index) Resolve(target string) (string, bool) {
	for _, c := range x.dialect.TaskFallback(target) {
		if _, ok := x.layers[c.Task]; ok {
			return c.Task, true
		}
	}
	return "", false
}

// References returns the literals that resolve to the task.
func (x *Index) References(name string) []Reference {
	return x.refs[name]
}

// Images returns every template image reference.
func (x *Index) Images() []ImageRef {
	return x.images
}

func (x *Index) put(d *TaskDeclaration) {
	x.layers[d.Name] = []*TaskDeclaration{d}
}

func (x *Index) appendLayer(base *Index) {
	for name, ds := range base.layers {
		x.layers[name] = append(x.layers[name], ds...)
	}
	x.images = append(x.images, base.images...)
}

// finish builds the per-file view and resolves references.
func (x *Index) finish(refs []Reference) {
	for _, ds := range x.layers {
		for _, d := range ds {
			x.byFile[d.File] = append(x.byFile[d.File], d)
		}
	}
	for f, ds := range x.byFile {
		sort.Slice(ds, func(i, j int) bool { return ds[i].Line < ds[j].Line })
		x.byFile[f] = ds
	}
	for _, r := range refs {
		if name, ok := x.Resolve(r.Target); ok {
			x.refs[name] = append(x.refs[name], r)
		}
	}
}
