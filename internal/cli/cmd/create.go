package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"blockdock/internal/cli/ui"
	"blockdock/internal/domain"
)

var createOpts struct {
	name    string
	typ     string
	version string
	memory  string
	port    int
	jvmArgs string
	eula    bool
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new server",
	Long: `Create a new server. With no flags an interactive wizard collects the
configuration; flags prefill or bypass the wizard.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		req := domain.ServerConfig{
			Name:    createOpts.name,
			Type:    domain.ServerType(createOpts.typ),
			Version: createOpts.version,
			Memory:  createOpts.memory,
			Port:    createOpts.port,
			JVMArgs: createOpts.jvmArgs,
			EULA:    createOpts.eula,
		}

		// Anything essential missing means the user wants the wizard.
		if req.Name == "" || req.Type == "" {
			var err error
			req, err = ui.CreateServerForm(req)
			if err != nil {
				return err
			}
		}
		if req.Version == "" {
			req.Version = domain.TagLatest
		}
		if req.Memory == "" {
			req.Memory = "2G"
		}
		if req.Port == 0 {
			req.Port = 25565
		}

		created, resolved, err := App.Orchestrator.Create(cmd.Context(), req)
		if err != nil {
			return err
		}

		fmt.Printf("Created %s (%s %s) on port %d\n",
			created.Name, created.Type, resolved.Version, created.Port)
		if resolved.Tag != resolved.Version {
			fmt.Printf("%s resolved to %s\n", resolved.Tag, resolved.Version)
		}
		return nil
	},
}

func init() {
	f := createCmd.Flags()
	f.StringVar(&createOpts.name, "name", "", "Server name")
	f.StringVar(&createOpts.typ, "type", "", "Server type (VANILLA, PAPER, FORGE, FABRIC, SPIGOT, PURPUR)")
	f.StringVar(&createOpts.version, "version", "", "Version, LATEST or SNAPSHOT (default LATEST)")
	f.StringVar(&createOpts.memory, "memory", "", "Memory limit, e.g. 2G (default 2G)")
	f.IntVar(&createOpts.port, "port", 0, "Host port (default 25565)")
	f.StringVar(&createOpts.jvmArgs, "jvm-args", "", "Extra JVM arguments")
	f.BoolVar(&createOpts.eula, "eula", false, "Accept the Minecraft EULA")

	RootCmd.AddCommand(createCmd)
}
