package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"blockdock/internal/cli/ui"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all servers with their live status",
	RunE: func(cmd *cobra.Command, args []string) error {
		states, err := App.Orchestrator.List(cmd.Context())
		if err != nil {
			return err
		}
		if len(states) == 0 {
			fmt.Println("No servers. Run 'blockdock create' to add one.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tTYPE\tVERSION\tPORT\tMEMORY\tCREATED\tSTATUS")
		for _, s := range states {
			status := ui.RenderStatus(string(s.Status))
			if s.Inconsistent {
				status += " (container missing)"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
				s.Config.Name, s.Config.Type, s.Config.Version, s.Config.Port,
				s.Config.Memory, s.Config.CreatedAt.Format("2006-01-02 15:04"), status)
		}
		return w.Flush()
	},
}

func init() {
	RootCmd.AddCommand(listCmd)
}
