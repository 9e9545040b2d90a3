package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/ormasoftchile/pipedbg/pkg/config"
	"github.com/ormasoftchile/pipedbg/pkg/dap"
	"github.com/ormasoftchile/pipedbg/pkg/debugger"
	"github.com/ormasoftchile/pipedbg/pkg/engine"
	"github.com/ormasoftchile/pipedbg/pkg/logging"
	pmcp "github.com/ormasoftchile/pipedbg/pkg/mcp"
	"github.com/ormasoftchile/pipedbg/pkg/pipeline"
	"github.com/ormasoftchile/pipedbg/pkg/session"
)

// Version is set at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// Global flags and the state they produce.
var (
	flagEngine   string
	flagLogLevel string
	flagLogFile  string
	flagDialect  string

	workspace *config.Workspace
	logger    = logging.Discard()
	closeLog  = func() error { return nil }
)

var rootCmd = &cobra.Command{
	Use:   "pipedbg",
	Short: "Debugger for MaaFramework pipelines",
	Long:  "pipedbg pauses MaaFramework pipelines running on a remote engine before each task, driven from an editor or a console.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		ws, err := config.LoadWorkspace(cwd)
		if err != nil {
			return err
		}
		if flagEngine != "" {
			ws.Engine = flagEngine
		}
		if flagDialect != "" {
			ws.Dialect = flagDialect
		}
		if flagLogLevel != "" {
			ws.LogLevel = flagLogLevel
		}
		workspace = ws

		l, closer, err := logging.Open(flagLogFile, ws.LogLevel)
		if err != nil {
			return err
		}
		logger, closeLog = l, closer
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeLog()
	},
	SilenceUsage: true,
}

// newSession returns a factory of sessions talking to the configured engine.
func newSession() func(session.Events) *session.Controller {
	return func(events session.Events) *session.Controller {
		client := engine.NewClient(workspace.Engine)
		client.Logger = logger.With("component", "engine")
		return session.New(client, events,
			session.WithLogger(logger.With("component", "session")),
			session.WithPollInterval(workspace.Interval()),
			session.WithWatch(workspace.Watch),
			session.WithDialect(workspace.Dialect),
		)
	}
}

// --- dap ---

var dapPort int

var dapCmd = &cobra.Command{
	Use:   "dap",
	Short: "Run the debug adapter (stdio, or TCP with --server)",
	Long: `Run the Debug Adapter Protocol server used by editors.
Without --server the adapter speaks over stdin/stdout, so logs go to stderr
or --log-file. With --server it accepts one session per TCP connection.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if dapPort > 0 {
			return dap.ListenAndServe(ctx, fmt.Sprintf("127.0.0.1:%d", dapPort), newSession(), logger)
		}
		s := dap.NewServer(os.Stdin, os.Stdout, newSession(), dap.WithLogger(logger.With("component", "dap")))
		return s.Run(ctx)
	},
}

// --- debug ---

var (
	debugTask    string
	debugAgent   string
	debugDevice  string
	debugParam   string
	debugLogDir  string
	debugLaunch  string
	debugActions []string
)

var debugCmd = &cobra.Command{
	Use:   "debug [resource|pipeline file]",
	Short: "Launch the interactive console debugger for a pipeline",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDebug,
}

func runDebug(cmd *cobra.Command, args []string) error {
	launch, err := debugArgs(args)
	if err != nil {
		return err
	}
	if launch.Dialect == "" {
		launch.Dialect = workspace.Dialect
	}
	dialect, ok := pipeline.DialectByName(launch.Dialect)
	if !ok {
		return fmt.Errorf("unknown dialect %q", launch.Dialect)
	}
	if launch.Resource, err = pipeline.ResolveResource(launch.Resource, dialect); err != nil {
		return err
	}

	d, err := debugger.New(launch, newSession())
	if err != nil {
		return err
	}
	return d.Run(cmd.Context())
}

// debugArgs builds launch arguments from --launch or the command flags and
// validates them like a launch request.
func debugArgs(args []string) (config.LaunchArgs, error) {
	if debugLaunch != "" {
		data, err := os.ReadFile(debugLaunch)
		if err != nil {
			return config.LaunchArgs{}, fmt.Errorf("read launch file: %w", err)
		}
		return config.ParseLaunchArgs(data)
	}

	if len(args) == 0 {
		return config.LaunchArgs{}, fmt.Errorf("a resource directory or --launch is required")
	}
	raw := map[string]any{
		"resource": args[0],
		"agent":    debugAgent,
		"task":     debugTask,
	}
	if debugDevice != "" {
		raw["device"] = debugDevice
	}
	if debugLogDir != "" {
		raw["log"] = debugLogDir
	}
	if len(debugActions) > 0 {
		raw["customActions"] = debugActions
	}
	if debugParam != "" {
		var param map[string]any
		if err := json.Unmarshal([]byte(debugParam), &param); err != nil {
			return config.LaunchArgs{}, fmt.Errorf("invalid --param: %w", err)
		}
		raw["param"] = param
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return config.LaunchArgs{}, err
	}
	return config.ParseLaunchArgs(data)
}

// --- mcp ---

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server exposing pipeline tools (stdio)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return server.ServeStdio(pmcp.NewServer(version))
	},
}

// --- schema ---

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Schema operations",
}

var schemaExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the launch arguments JSON Schema to stdout",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := config.GenerateLaunchSchema()
		if err != nil {
			return fmt.Errorf("generate schema: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

// --- version ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "pipedbg %s (build: %s)\n", version, commit)
	},
}

func init() {
	// global flags
	rootCmd.PersistentFlags().StringVar(&flagEngine, "engine", "", "Engine URL (overrides workspace config and "+config.EngineEnv+")")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&flagLogFile, "log-file", "", "Write logs to this file instead of stderr")
	rootCmd.PersistentFlags().StringVar(&flagDialect, "dialect", "", "Pipeline dialect: framework or wpf")

	// dap flags
	dapCmd.Flags().IntVar(&dapPort, "server", 0, "Listen for debug adapter connections on this TCP port")

	// debug flags
	debugCmd.Flags().StringVar(&debugTask, "task", "", "Entry task posted to the engine")
	debugCmd.Flags().StringVar(&debugAgent, "agent", "", "Path of the controller agent binaries")
	debugCmd.Flags().StringVar(&debugDevice, "device", "", "Device name or address (default: first device found)")
	debugCmd.Flags().StringVar(&debugParam, "param", "", "Task parameter overrides as JSON")
	debugCmd.Flags().StringVar(&debugLogDir, "log", "", "Engine log directory")
	debugCmd.Flags().StringVar(&debugLaunch, "launch", "", "Read launch arguments from this JSON file")
	debugCmd.Flags().StringArrayVar(&debugActions, "custom-action", nil, "Register a custom action, repeatable")

	// index flags
	indexCmd.Flags().BoolVar(&indexJSON, "json", false, "Output the index as JSON")

	// schema subcommands
	schemaCmd.AddCommand(schemaExportCmd)

	// root subcommands
	rootCmd.AddCommand(dapCmd)
	rootCmd.AddCommand(debugCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(versionCmd)
}
