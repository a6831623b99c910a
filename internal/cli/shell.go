package cli

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/roach88/khata/internal/shell"
)

// NewShellCommand creates the interactive shell command.
func NewShellCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Open the interactive ledger",
		Long: `Open the interactive ledger. Asks for the PIN, then shows customers
grouped by city. Type help for commands.

Examples:
  khata shell
  KHATA_BACKEND=http KHATA_REMOTE_URL=http://shop:8080 khata shell`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatterFor(rootOpts, cmd)
			a, err := newApp(rootOpts)
			if err != nil {
				return f.Fail(err)
			}
			defer a.Close()

			opts := []shell.Option{shell.WithPalette(palette())}
			if rootOpts.PIN != "" {
				if err := a.Unlock(cmd.Context(), rootOpts.PIN); err != nil {
					return f.Fail(err)
				}
			} else if cmd.InOrStdin() == os.Stdin && term.IsTerminal(int(os.Stdin.Fd())) {
				opts = append(opts, shell.WithSecretReader(func(prompt string) (string, error) {
					return readSecret(cmd.OutOrStdout(), prompt)
				}))
			}

			ctx, stop := signalContext(cmd)
			defer stop()
			if err := shell.New(a, cmd.InOrStdin(), cmd.OutOrStdout(), opts...).Run(ctx); err != nil {
				return f.Fail(err)
			}
			return nil
		},
	}
}
