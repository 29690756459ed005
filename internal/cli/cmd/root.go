package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"blockdock/internal/app"
	"blockdock/internal/config"
	"blockdock/internal/domain"
	"blockdock/internal/logger"
)

// App is the wired component graph, built once before any subcommand runs.
var App *app.Container

var RootCmd = &cobra.Command{
	Use:           "blockdock",
	Short:         "Manage containerized Minecraft servers",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		baseDir, err := config.BaseDir()
		if err != nil {
			return err
		}
		cfg, err := config.Load(baseDir)
		if err != nil {
			return err
		}
		logger.Setup(cfg.LogLevel)

		App, err = app.New(cfg)
		return err
	},
}

// Exit codes: 0 success, 2 for user errors (bad arguments, not found,
// disallowed state), 1 for operational failures.
const (
	ExitOK          = 0
	ExitOperational = 1
	ExitUserError   = 2
)

// Execute runs the command tree and maps the outcome to an exit code.
func Execute(ctx context.Context) int {
	if err := RootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if domain.IsUserError(err) {
			return ExitUserError
		}
		return ExitOperational
	}
	return ExitOK
}
