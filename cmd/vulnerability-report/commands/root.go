package commands

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"golang.org/x/xerrors"

	"github.com/codeinsight-reports/vulnerability-report/pkg/etc"
)

const defaultEnvFile = ".env"

// NewRootCommand returns the command Code Insight runs to create the report.
// Registration lives in its subcommands.
func NewRootCommand(info etc.BuildInfo) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "vulnerability-report",
		Short:         "Create the Code Insight vulnerability report of a project",
		Version:       info.Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := cmd.PersistentFlags()
	flags.StringSlice("env-file", []string{defaultEnvFile}, "dotenv files loaded before reading the environment")
	flags.String("baseURL", "", "Code Insight base URL [$CODEINSIGHT_BASE_URL]")

	addCreateFlags(cmd)
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		return runCreate(cmd, info)
	}

	cmd.AddCommand(
		newRegisterCommand(info),
		newUnregisterCommand(info),
	)
	return cmd
}

func setupLogging(runID string) {
	opts := &slog.HandlerOptions{Level: etc.GetLogLevel()}

	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, opts)
	if etc.GetLogFormat() == "text" {
		handler = tint.NewHandler(os.Stderr, &tint.Options{
			Level:      opts.Level,
			TimeFormat: time.Kitchen,
		})
	}
	slog.SetDefault(slog.New(handler).With(slog.String("run_id", runID)))
}

// loadConfig reads the configuration from the dotenv files and the
// environment. Flags given on the command line win over both.
func loadConfig(cmd *cobra.Command, info etc.BuildInfo) (config etc.Config, runID string, err error) {
	runID = uuid.NewString()
	setupLogging(runID)
	slog.Info("Starting vulnerability-report",
		slog.String("version", info.Version),
		slog.String("commit", info.Commit),
		slog.String("built_at", info.Date),
	)

	envFiles, err := cmd.Flags().GetStringSlice("env-file")
	if err != nil {
		return
	}
	if config, err = etc.GetConfig(envFiles...); err != nil {
		return config, runID, xerrors.Errorf("getting config: %w", err)
	}

	if cmd.Flags().Changed("baseURL") {
		config.CodeInsight.BaseURL, _ = cmd.Flags().GetString("baseURL")
	}
	// links in the report are joined to the base URL
	config.CodeInsight.BaseURL = strings.TrimRight(config.CodeInsight.BaseURL, "/")
	return config, runID, nil
}

// runContext is cancelled on SIGINT or SIGTERM. It carries no deadline: each
// Code Insight request is bounded by the client timeout instead.
func runContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}
