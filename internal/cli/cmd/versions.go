package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"blockdock/internal/domain"
)

var versionsCmd = &cobra.Command{
	Use:   "versions [type]",
	Short: "Show what LATEST and SNAPSHOT currently resolve to",
	Long: `Query the upstream manifests and show the concrete builds the symbolic
tags resolve to right now. With no argument every server type is queried.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		types := domain.ServerTypes()
		if len(args) == 1 {
			t := domain.ServerType(strings.ToUpper(args[0]))
			if !domain.ValidServerType(t) {
				return fmt.Errorf("%w: unsupported server type %q", domain.ErrInvalidConfig, args[0])
			}
			types = []domain.ServerType{t}
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TYPE\tLATEST\tSNAPSHOT")
		for _, t := range types {
			latest := resolveOrDash(cmd, t, domain.TagLatest)
			snapshot := resolveOrDash(cmd, t, domain.TagSnapshot)
			fmt.Fprintf(w, "%s\t%s\t%s\n", t, latest, snapshot)
		}
		return w.Flush()
	},
}

func resolveOrDash(cmd *cobra.Command, t domain.ServerType, tag string) string {
	rv, err := App.Resolver.Resolve(cmd.Context(), t, tag)
	if err != nil {
		return "-"
	}
	return rv.Version
}

func init() {
	RootCmd.AddCommand(versionsCmd)
}
