package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var backupCmd = &cobra.Command{
	Use:   "backup [name]",
	Short: "Back up a server's data directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rec, err := App.Orchestrator.Backup(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Backup %s written to %s (%d bytes)\n", rec.ID, rec.Path, rec.Size)
		return nil
	},
}

var backupListCmd = &cobra.Command{
	Use:   "list [name]",
	Short: "List backups, optionally for one server",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		serverName := ""
		if len(args) == 1 {
			serverName = args[0]
		}
		records, err := App.Backups.List(serverName)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("No backups.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSERVER\tCREATED\tSIZE\tARCHIVE")
		for _, r := range records {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
				r.ID, r.ServerName, r.CreatedAt.Format("2006-01-02 15:04:05"), r.Size, r.Path)
		}
		return w.Flush()
	},
}

var backupDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a backup and its archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := App.Backups.Delete(args[0]); err != nil {
			return err
		}
		fmt.Printf("Backup %s deleted.\n", args[0])
		return nil
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore [name] [archive]",
	Short: "Restore a server's data directory from a backup archive",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := App.Orchestrator.Restore(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("Server %s restored from %s.\n", args[0], args[1])
		return nil
	},
}

func init() {
	backupCmd.AddCommand(backupListCmd, backupDeleteCmd)
	RootCmd.AddCommand(backupCmd, restoreCmd)
}
