package pipeline

import (
	"path/filepath"
	"strings"
)

// maxRootDepth bounds how far Framework.Root climbs looking for properties.json.
const maxRootDepth = 5

// Framework is the MaaFramework dialect: every *.json file below
// <root>/pipeline declares tasks, and the project root is the nearest
// ancestor holding a properties.json.
type Framework struct{}

func (Framework) Name() string { return "framework" }

func (Framework) IsTaskPath(p JSONPath) bool {
	task, field, ok := pathShape(p, 2, 3)
	if !ok || strings.HasPrefix(task, "$") {
		return false
	}
	return oneOf(field, "next", "timeout_next", "runout_next")
}

func (Framework) IsImagePath(p JSONPath) bool {
	task, field, ok := pathShape(p, 2, 3)
	if !ok || strings.HasPrefix(task, "$") {
		return false
	}
	return field == "template"
}

func (Framework) Root(file string) (string, bool) {
	dir := filepath.Dir(file)
	for i := 0; i < maxRootDepth; i++ {
		if !isDir(dir) {
			return "", false
		}
		if isFile(filepath.Join(dir, "properties.json")) {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false
}

func (Framework) FallbackRoot(string) (string, bool) { return "", false }

func (Framework) PipelineRoot(root string) (string, bool) {
	p := filepath.Join(root, "pipeline")
	if !isDir(p) {
		return "", false
	}
	return p, true
}

func (Framework) Enumerate(pipelineRoot string) ([]string, error) {
	return walkJSONFiles(pipelineRoot)
}

func (Framework) TaskFallback(task string) []TaskCandidate {
	return []TaskCandidate{{Task: task}}
}
