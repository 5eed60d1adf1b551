package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/vthunder/early-mcp/internal/config"
	"github.com/vthunder/early-mcp/internal/integrations/early"
	"github.com/vthunder/early-mcp/internal/logging"
	"github.com/vthunder/early-mcp/internal/mcp/tools"
	"github.com/vthunder/early-mcp/internal/version"
)

// NewRootCommand creates the top-level command. Without a subcommand it
// serves MCP over stdio.
func NewRootCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "early-mcp",
		Short: "MCP server for Early (Timeular) time tracking.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (default $EARLY_CONFIG)")

	cmd.AddCommand(
		newServeCommand(&configPath),
		newToolsCommand(),
		newVersionCommand(),
	)
	return cmd
}

func newServeCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the Early tools over stdio (default).",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(*configPath)
		},
	}
}

func newToolsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the tools this server exposes.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, st := range tools.ServerTools(&tools.Dependencies{}) {
				fmt.Fprintf(out, "%s\n    %s\n", st.Tool.Name, st.Tool.Description)
			}
			return nil
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information.",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Info())
		},
	}
}

func runServe(configPath string) error {
	envFile, envLoaded := config.LoadDotEnv()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logging.Init(cfg.Debug)
	defer logging.Sync()
	if envLoaded {
		logging.Info("config", "Loaded %s", envFile)
	}

	s := server.NewMCPServer(
		"early-timeular",
		version.Version,
		server.WithToolCapabilities(true),
	)
	tools.RegisterAll(s, &tools.Dependencies{
		Session: early.NewSession(cfg.SessionOptions()),
	})

	logging.Info("mcp", "Serving Early tools on stdio (api %s)", cfg.BaseURL)
	if err := server.ServeStdio(s); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("serve stdio: %w", err)
	}
	logging.Info("mcp", "Server stopped")
	return nil
}

// Main runs the root command and exits non-zero on failure.
func Main() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
