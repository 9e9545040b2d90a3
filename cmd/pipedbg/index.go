package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/ormasoftchile/pipedbg/pkg/pipeline"
)

var indexJSON bool

var indexCmd = &cobra.Command{
	Use:   "index <resource|pipeline file>",
	Short: "Print the task index of a pipeline",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndex,
}

func runIndex(cmd *cobra.Command, args []string) error {
	dialect, ok := pipeline.DialectByName(workspace.Dialect)
	if !ok {
		return fmt.Errorf("unknown dialect %q", workspace.Dialect)
	}
	root, err := pipeline.ResolveResource(args[0], dialect)
	if err != nil {
		return err
	}
	idx, err := pipeline.Build(root, dialect, pipeline.WithLogger(logger))
	if err != nil {
		return err
	}
	if indexJSON {
		return writeIndexJSON(cmd.OutOrStdout(), idx)
	}
	writeIndexTable(cmd.OutOrStdout(), idx)
	return nil
}

type indexRow struct {
	Task   string `json:"task"`
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
	Refs   int    `json:"references"`
}

func indexRows(idx *pipeline.Index) []indexRow {
	rows := make([]indexRow, 0, idx.Len())
	for _, name := range idx.Tasks() {
		decl, _ := idx.Lookup(name)
		file := decl.File
		if rel, err := filepath.Rel(idx.Root(), file); err == nil && !strings.HasPrefix(rel, "..") {
			file = filepath.ToSlash(rel)
		}
		rows = append(rows, indexRow{
			Task:   name,
			File:   file,
			Line:   decl.Line,
			Column: decl.Column,
			Refs:   len(idx.References(name)),
		})
	}
	return rows
}

func writeIndexJSON(w io.Writer, idx *pipeline.Index) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"root":    idx.Root(),
		"dialect": idx.Dialect().Name(),
		"tasks":   indexRows(idx),
	})
}

// writeIndexTable aligns columns by display width so wide task names line up.
func writeIndexTable(w io.Writer, idx *pipeline.Index) {
	rows := indexRows(idx)
	taskW, fileW := runewidth.StringWidth("TASK"), runewidth.StringWidth("FILE")
	for _, r := range rows {
		taskW = max(taskW, runewidth.StringWidth(r.Task))
		fileW = max(fileW, runewidth.StringWidth(r.File))
	}

	fmt.Fprintf(w, "%s  %s  %s  %s\n", runewidth.FillRight("TASK", taskW), runewidth.FillRight("FILE", fileW), "LINE", "REFS")
	for _, r := range rows {
		loc := fmt.Sprintf("%d:%d", r.Line, r.Column)
		fmt.Fprintf(w, "%s  %s  %-4s  %d\n", runewidth.FillRight(r.Task, taskW), runewidth.FillRight(r.File, fileW), loc, r.Refs)
	}
	fmt.Fprintf(w, "\n%d tasks in %s\n", len(rows), idx.Root())
}
