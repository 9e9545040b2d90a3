package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ormasoftchile/pipedbg/pkg/config"
	"github.com/ormasoftchile/pipedbg/pkg/pipeline"
)

type taskEntry struct {
	Name   string `json:"name"`
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

// HandleTasks implements the pipeline/tasks MCP tool.
func HandleTasks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	idx, fail := loadIndex(req)
	if fail != nil {
		return fail, nil
	}
	filter, _ := req.GetArguments()["filter"].(string)

	tasks := []taskEntry{}
	for _, name := range idx.Tasks() {
		if filter != "" && !strings.Contains(name, filter) {
			continue
		}
		decl, _ := idx.Lookup(name)
		tasks = append(tasks, taskEntry{Name: name, File: decl.File, Line: decl.Line, Column: decl.Column})
	}
	return jsonResult(map[string]any{"root": idx.Root(), "count": len(tasks), "tasks": tasks})
}

// HandleLocate implements the pipeline/locate MCP tool.
func HandleLocate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	task, _ := req.GetArguments()["task"].(string)
	if task == "" {
		return errorResult("task argument is required"), nil
	}
	idx, fail := loadIndex(req)
	if fail != nil {
		return fail, nil
	}

	decl, ok := idx.Lookup(task)
	if !ok {
		return errorResult(fmt.Sprintf("task %q is not declared", task)), nil
	}
	var definition json.RawMessage
	if len(decl.Raw) > 0 {
		definition = decl.Raw
	}
	return jsonResult(map[string]any{
		"name":       decl.Name,
		"file":       decl.File,
		"line":       decl.Line,
		"column":     decl.Column,
		"locations":  idx.Locations(task),
		"definition": definition,
	})
}

// HandleResolve implements the pipeline/resolve MCP tool.
func HandleResolve(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	target, _ := req.GetArguments()["target"].(string)
	if target == "" {
		return errorResult("target argument is required"), nil
	}
	idx, fail := loadIndex(req)
	if fail != nil {
		return fail, nil
	}

	name, ok := idx.Resolve(target)
	if !ok {
		return errorResult(fmt.Sprintf("%q does not resolve to a declared task", target)), nil
	}
	decl, _ := idx.Lookup(name)
	return jsonResult(map[string]any{
		"target": target,
		"task":   name,
		"file":   decl.File,
		"line":   decl.Line,
	})
}

// HandleReferences implements the pipeline/references MCP tool.
func HandleReferences(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	task, _ := req.GetArguments()["task"].(string)
	if task == "" {
		return errorResult("task argument is required"), nil
	}
	idx, fail := loadIndex(req)
	if fail != nil {
		return fail, nil
	}

	refs := idx.References(task)
	if refs == nil {
		refs = []pipeline.Reference{}
	}
	images := []pipeline.ImageRef{}
	for _, img := range idx.Images() {
		if img.Task == task {
			images = append(images, img)
		}
	}
	result := map[string]any{"task": task, "references": refs, "images": images}
	if namer, ok := idx.Dialect().(pipeline.ImageNamer); ok {
		result["defaultImage"] = namer.TaskImage(task)
	}
	return jsonResult(result)
}

// HandleLaunchSchema implements the debug/launch-schema MCP tool.
func HandleLaunchSchema(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := config.GenerateLaunchSchema()
	if err != nil {
		return errorResult(err.Error()), nil
	}
	return textResult(string(data)), nil
}

// loadIndex builds the index named by the resource and dialect arguments.
// A non-nil result reports why it could not.
func loadIndex(req mcp.CallToolRequest) (*pipeline.Index, *mcp.CallToolResult) {
	args := req.GetArguments()
	resource, _ := args["resource"].(string)
	if resource == "" {
		return nil, errorResult("resource argument is required")
	}
	name, _ := args["dialect"].(string)
	dialect, ok := pipeline.DialectByName(name)
	if !ok {
		return nil, errorResult(fmt.Sprintf("unknown dialect %q, use 'framework' or 'wpf'", name))
	}
	root, err := pipeline.ResolveResource(resource, dialect)
	if err != nil {
		return nil, errorResult(err.Error())
	}
	idx, err := pipeline.Build(root, dialect)
	if err != nil {
		return nil, errorResult(err.Error())
	}
	return idx, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(msg),
		},
		IsError: true,
	}
}
