package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var consoleCmd = &cobra.Command{
	Use:   "console [name]",
	Short: "Attach an interactive console to a running server",
	Long: `Attach stdin and stdout to the server console. Commands typed here go
straight to the server. Detach with Ctrl-C.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var in io.Reader = os.Stdin

		fd := int(os.Stdin.Fd())
		if term.IsTerminal(fd) {
			oldState, err := term.MakeRaw(fd)
			if err != nil {
				return fmt.Errorf("setting up terminal: %w", err)
			}
			defer term.Restore(fd, oldState)
			// Raw mode swallows the interrupt signal, so detach on the
			// Ctrl-C byte instead of forwarding it to the server.
			in = &detachReader{r: os.Stdin}
		}

		fmt.Printf("Attached to %s. Press Ctrl-C to detach.\r\n", args[0])
		err := App.Orchestrator.Console(cmd.Context(), args[0], in, os.Stdout)
		fmt.Printf("\r\nDetached.\r\n")
		return err
	},
}

// detachReader ends the stream when the user types Ctrl-C (0x03).
type detachReader struct {
	r io.Reader
}

func (d *detachReader) Read(p []byte) (int, error) {
	n, err := d.r.Read(p)
	for i := 0; i < n; i++ {
		if p[i] == 0x03 {
			return i, io.EOF
		}
	}
	return n, err
}

func init() {
	RootCmd.AddCommand(consoleCmd)
}
