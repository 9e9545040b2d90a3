package pipeline

import (
	"path/filepath"
	"regexp"
)

var (
	hashSuffix = regexp.MustCompile(`#[^#]+$`)
	atPrefix   = regexp.MustCompile(`^[^@]+@([\s\S]+)$`)
)

// WPF is the MaaAssistantArknights dialect: a single tasks.json per
// resource directory, layered over the tasks.json three levels up.
// References may carry "Prefix@" qualifiers and a "#virtual" suffix.
type WPF struct{}

func (WPF) Name() string { return "wpf" }

func (WPF) IsTaskPath(p JSONPath) bool {
	if len(p) != 3 {
		return false
	}
	_, field, ok := pathShape(p, 3, 3)
	if !ok {
		return false
	}
	return oneOf(field, "sub", "next", "onErrorNext", "exceededNext", "reduceOtherTimes")
}

func (WPF) IsImagePath(p JSONPath) bool {
	if len(p) != 2 {
		return false
	}
	_, field, ok := pathShape(p, 2, 2)
	return ok && field == "template"
}

func (WPF) Root(file string) (string, bool) {
	return filepath.Dir(file), true
}

func (WPF) FallbackRoot(root string) (string, bool) {
	base := filepath.Clean(filepath.Join(root, "..", "..", ".."))
	if base == filepath.Clean(root) || !isFile(filepath.Join(base, "tasks.json")) {
		return "", false
	}
	return base, true
}

func (WPF) PipelineRoot(root string) (string, bool) {
	if !isDir(root) {
		return "", false
	}
	return root, true
}

func (WPF) Enumerate(pipelineRoot string) ([]string, error) {
	if !isFile(filepath.Join(pipelineRoot, "tasks.json")) {
		return nil, nil
	}
	return []string{"tasks.json"}, nil
}

// TaskFallback strips the virtual-task suffix, then peels "Prefix@"
// qualifiers one at a time: "A@B@C#next" yields A@B@C, B@C and C.
func (WPF) TaskFallback(task string) []TaskCandidate {
	cleared := hashSuffix.ReplaceAllString(task, "")
	suffix := len(task) - len(cleared)
	out := []TaskCandidate{{Task: cleared, Suffix: suffix}}
	iter := cleared
	for {
		m := atPrefix.FindStringSubmatch(iter)
		if m == nil {
			break
		}
		iter = m[1]
		out = append(out, TaskCandidate{Task: iter, Prefix: len(cleared) - len(iter), Suffix: suffix})
	}
	return out
}

// TaskImage returns the template file name conventionally used by a task.
func (WPF) TaskImage(task string) string {
	return hashSuffix.ReplaceAllString(task, "") + ".png"
}
