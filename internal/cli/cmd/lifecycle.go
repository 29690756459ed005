package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"blockdock/internal/cli/ui"
)

var startCmd = &cobra.Command{
	Use:   "start [name]",
	Short: "Start a server, or all servers when no name is given",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			if err := App.Orchestrator.Start(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Server %s is running.\n", args[0])
			return nil
		}

		started, err := App.Orchestrator.StartAll(cmd.Context())
		for _, name := range started {
			fmt.Printf("Server %s is running.\n", name)
		}
		if err == nil && len(started) == 0 {
			fmt.Println("No servers to start.")
		}
		return err
	},
}

var stopTimeout time.Duration

var stopCmd = &cobra.Command{
	Use:   "stop [name]",
	Short: "Stop a server gracefully, or all servers when no name is given",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			if err := App.Orchestrator.Stop(cmd.Context(), args[0], stopTimeout); err != nil {
				return err
			}
			fmt.Printf("Server %s is stopped.\n", args[0])
			return nil
		}

		stopped, err := App.Orchestrator.StopAll(cmd.Context(), stopTimeout)
		for _, name := range stopped {
			fmt.Printf("Server %s is stopped.\n", name)
		}
		if err == nil && len(stopped) == 0 {
			fmt.Println("No running servers.")
		}
		return err
	},
}

var removeForce bool

var removeCmd = &cobra.Command{
	Use:   "remove [name]",
	Short: "Remove a server and its data",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !removeForce {
			ok, err := ui.ConfirmRemoval(args[0])
			if err != nil {
				return err
			}
			if !ok {
				fmt.Println("Aborted.")
				return nil
			}
		}
		if err := App.Orchestrator.Remove(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Server %s removed.\n", args[0])
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status [name]",
	Short: "Show the live status of a server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := App.Orchestrator.Status(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Println(ui.RenderStatus(string(status)))
		return nil
	},
}

func init() {
	stopCmd.Flags().DurationVar(&stopTimeout, "timeout", 0,
		"Graceful shutdown window before forcing termination (default from config)")
	removeCmd.Flags().BoolVar(&removeForce, "force", false, "Skip the confirmation prompt")

	RootCmd.AddCommand(startCmd, stopCmd, removeCmd, statusCmd)
}
