package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"blockdock/internal/cli/ui"
)

var logsFollow bool

var logsCmd = &cobra.Command{
	Use:   "logs [name]",
	Short: "Show server logs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lines, err := App.Orchestrator.Logs(cmd.Context(), args[0], logsFollow)
		if err != nil {
			return err
		}

		if logsFollow {
			return ui.RunLogs(args[0], lines)
		}
		for line := range lines {
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false,
		"Follow the log in a full-screen viewer")
	RootCmd.AddCommand(logsCmd)
}
