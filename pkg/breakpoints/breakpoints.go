// Package breakpoints resolves editor breakpoints onto pipeline tasks.
//
// A breakpoint requested at any line of a pipeline file snaps to the task
// declared nearest above it. Each task carries at most one bound
// breakpoint.
package breakpoints

import (
	"fmt"
	"sort"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/ormasoftchile/pipedbg/pkg/pipeline"
)

// Spec is one breakpoint as requested by an editor.
type Spec struct {
	Line      int
	Condition string
}

// Breakpoint is a snapshot of a stored breakpoint.
type Breakpoint struct {
	ID            int
	Source        string
	RequestedLine int
	// Line is the requested line, or the line of the bound task once verified.
	Line      int
	Verified  bool
	Condition string
	Task      string
	Message   string
}

type entry struct {
	Breakpoint
	program *vm.Program
}

// ConditionEnv lists the variables a breakpoint condition may use, with
// values of the expected types.
var ConditionEnv = map[string]any{
	"id":          0,
	"entry":       "",
	"uuid":        "",
	"hash":        "",
	"name":        "",
	"latest_hit":  "",
	"recognition": map[string]any{},
	"run_times":   0,
	"status":      "",
}

// Store holds the breakpoints of every file and their task bindings. It is
// safe for concurrent use.
type Store struct {
	mu     sync.Mutex
	nextID int
	index  *pipeline.Index
	files  map[string][]*entry
	bound  map[string]*entry
}

// New returns an empty store with no index.
func New() *Store {
	return &Store{
		files: make(map[string][]*entry),
		bound: make(map[string]*entry),
	}
}

// Index returns the index breakpoints are resolved against, or nil.
func (s *Store) Index() *pipeline.Index {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

// Invalidate drops the index and every binding. All breakpoints become
// unverified until the next SetIndex.
func (s *Store) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index = nil
	s.bound = make(map[string]*entry)
	for _, list := range s.files {
		for _, e := range list {
			e.unbind()
		}
	}
}

// SetIndex installs idx and re-resolves every breakpoint from its requested
// line. It returns the breakpoints whose verification or line changed.
func (s *Store) SetIndex(idx *pipeline.Index) []Breakpoint {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := make(map[int]Breakpoint)
	for _, e := range s.all() {
		before[e.ID] = e.Breakpoint
	}

	s.index = idx
	s.bound = make(map[string]*entry)
	entries := s.all()
	for _, e := range entries {
		e.unbind()
	}
	// Oldest first, so the newest breakpoint on a task keeps the binding.
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	for _, e := range entries {
		s.resolve(e)
	}

	var changed []Breakpoint
	for _, e := range s.all() {
		old := before[e.ID]
		if old.Verified != e.Verified || old.Line != e.Line || old.Task != e.Task {
			changed = append(changed, e.Breakpoint)
		}
	}
	return changed
}

// Add creates a breakpoint at line of source and resolves it.
func (s *Store) Add(source string, line int, condition string) Breakpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	source = pipeline.NormalizePath(source)
	e := s.newEntry(source, Spec{Line: line, Condition: condition})
	s.files[source] = append(s.files[source], e)
	s.resolve(e)
	return e.Breakpoint
}

// Set replaces the breakpoints of source with specs and returns them in
// request order.
func (s *Store) Set(source string, specs []Spec) []Breakpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	source = pipeline.NormalizePath(source)
	s.clear(source)

	list := make([]*entry, 0, len(specs))
	for _, spec := range specs {
		e := s.newEntry(source, spec)
		list = append(list, e)
		s.resolve(e)
	}
	if len(list) > 0 {
		s.files[source] = list
	}

	out := make([]Breakpoint, len(list))
	for i, e := range list {
		out[i] = e.Breakpoint
	}
	return out
}

// Remove deletes one breakpoint of source: the one requested at line, or
// failing that the first one whose stored line is line. It reports whether
// a breakpoint was removed.
func (s *Store) Remove(source string, line int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	source = pipeline.NormalizePath(source)

	list := s.files[source]
	at := -1
	for i, e := range list {
		if e.RequestedLine == line {
			at = i
			break
		}
		if at < 0 && e.Line == line {
			at = i
		}
	}
	if at < 0 {
		return false
	}
	s.drop(source, at)
	return true
}

// RemoveID deletes the breakpoint with id and returns it.
func (s *Store) RemoveID(id int) (Breakpoint, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for source, list := range s.files {
		for i, e := range list {
			if e.ID == id {
				s.drop(source, i)
				return e.Breakpoint, true
			}
		}
	}
	return Breakpoint{}, false
}

// drop removes the i-th breakpoint of source and releases its task.
func (s *Store) drop(source string, i int) {
	list := s.files[source]
	s.release(list[i])
	list = append(list[:i], list[i+1:]...)
	if len(list) == 0 {
		delete(s.files, source)
		return
	}
	s.files[source] = list
}

// Clear deletes every breakpoint of source.
func (s *Store) Clear(source string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clear(pipeline.NormalizePath(source))
}

// List returns every breakpoint ordered by source and line.
func (s *Store) List() []Breakpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.all()
	out := make([]Breakpoint, len(all))
	for i, e := range all {
		out[i] = e.Breakpoint
	}
	return out
}

// Bound returns the breakpoint bound to task.
func (s *Store) Bound(task string) (Breakpoint, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.bound[task]
	if !ok {
		return Breakpoint{}, false
	}
	return e.Breakpoint, true
}

// Hit reports the id of the breakpoint bound to task if its condition holds
// for env. A condition that fails to evaluate counts as a hit.
func (s *Store) Hit(task string, env map[string]any) (int, bool) {
	s.mu.Lock()
	e, ok := s.bound[task]
	var id int
	var program *vm.Program
	if ok {
		id, program = e.ID, e.program
	}
	s.mu.Unlock()

	if !ok {
		return 0, false
	}
	if program == nil {
		return id, true
	}
	out, err := expr.Run(program, env)
	if err != nil {
		return id, true
	}
	hit, isBool := out.(bool)
	return id, !isBool || hit
}

func (s *Store) newEntry(source string, spec Spec) *entry {
	s.nextID++
	e := &entry{Breakpoint: Breakpoint{
		ID:            s.nextID,
		Source:        source,
		RequestedLine: spec.Line,
		Line:          spec.Line,
		Condition:     spec.Condition,
	}}
	if spec.Condition != "" {
		program, err := expr.Compile(spec.Condition, expr.Env(ConditionEnv), expr.AsBool())
		if err != nil {
			e.Message = fmt.Sprintf("invalid condition: %v", err)
		} else {
			e.program = program
		}
	}
	return e
}

// resolve binds e to the task declared nearest above its requested line.
func (s *Store) resolve(e *entry) {
	s.release(e)
	e.unbind()
	if e.Condition != "" && e.program == nil {
		return
	}
	e.Message = ""
	decl, ok := s.index.Nearest(e.Source, e.RequestedLine)
	if !ok {
		return
	}
	if prev, taken := s.bound[decl.Name]; taken && prev != e {
		prev.unbind()
		prev.Message = fmt.Sprintf("task %s is bound to breakpoint %d", decl.Name, e.ID)
	}
	e.Verified = true
	e.Line = decl.Line
	e.Task = decl.Name
	s.bound[decl.Name] = e
}

// release drops e's task binding, if it holds one.
func (s *Store) release(e *entry) {
	if e.Task != "" && s.bound[e.Task] == e {
		delete(s.bound, e.Task)
	}
}

func (s *Store) clear(source string) {
	for _, e := range s.files[source] {
		s.release(e)
	}
	delete(s.files, source)
}

func (s *Store) all() []*entry {
	var out []*entry
	for _, list := range s.files {
		out = append(out, list...)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Source != out[j].Source {
			return out[i].Source < out[j].Source
		}
		if out[i].Line != out[j].Line {
			return out[i].Line < out[j].Line
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (e *entry) unbind() {
	e.Verified = false
	e.Line = e.RequestedLine
	e.Task = ""
}
