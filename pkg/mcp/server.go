// Package mcp exposes pipeline navigation to AI agents as MCP tools.
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewServer creates an MCP server with the pipeline tools registered.
func NewServer(version string) *server.MCPServer {
	s := server.NewMCPServer(
		"pipedbg",
		version,
		server.WithToolCapabilities(true),
	)

	resource := mcp.WithString("resource", mcp.Required(), mcp.Description("Resource directory, or a pipeline file inside it"))
	dialect := mcp.WithString("dialect", mcp.Description("Pipeline dialect: framework (default) or wpf"))

	s.AddTool(
		mcp.NewTool("pipeline/tasks",
			mcp.WithDescription("List the tasks declared by a pipeline with their declaring file and line"),
			resource, dialect,
			mcp.WithString("filter", mcp.Description("Only tasks whose name contains this text")),
		),
		HandleTasks,
	)

	s.AddTool(
		mcp.NewTool("pipeline/locate",
			mcp.WithDescription("Find where a task is declared and return its definition"),
			resource, dialect,
			mcp.WithString("task", mcp.Required(), mcp.Description("Task name")),
		),
		HandleLocate,
	)

	s.AddTool(
		mcp.NewTool("pipeline/resolve",
			mcp.WithDescription("Resolve a task reference through the dialect's fallback chain"),
			resource, dialect,
			mcp.WithString("target", mcp.Required(), mcp.Description("Task reference as written in a pipeline")),
		),
		HandleResolve,
	)

	s.AddTool(
		mcp.NewTool("pipeline/references",
			mcp.WithDescription("List the places that refer to a task"),
			resource, dialect,
			mcp.WithString("task", mcp.Required(), mcp.Description("Task name")),
		),
		HandleReferences,
	)

	s.AddTool(
		mcp.NewTool("debug/launch-schema",
			mcp.WithDescription("Export the JSON Schema of debug launch arguments"),
		),
		HandleLaunchSchema,
	)

	return s
}
