package cli

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/roach88/khata/internal/config"
	"github.com/roach88/khata/internal/ledger"
)

// NewPINCommand creates the pin command group.
func NewPINCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pin",
		Short: "Manage the ledger PIN",
	}
	cmd.AddCommand(newPINSetCommand(rootOpts))
	return cmd
}

func newPINSetCommand(rootOpts *RootOptions) *cobra.Command {
	var newPIN string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set or change the PIN of the local database",
		Long: `Set or change the PIN of the local database.

The PIN is 4 to 12 digits and is stored as a bcrypt hash. When a PIN is
already set, the current one must be given with --pin or $KHATA_PIN.

Examples:
  khata pin set
  khata pin set --new-pin 2468`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatterFor(rootOpts, cmd)
			cfg := rootOpts.Config
			if cfg.Backend != config.BackendSQLite {
				return f.Fail(ledger.Validation("set pin", "pin set works on the sqlite backend only"))
			}

			db, err := openStore(cfg)
			if err != nil {
				return f.Fail(WrapExitError(ExitCommandError, "open backend", err))
			}
			defer db.Close()

			// An existing PIN must be proven first.
			current, err := pinOf(rootOpts, cmd)
			if err != nil {
				return f.Fail(err)
			}
			a := newAppOver(db, rootOpts)
			if err := a.Unlock(cmd.Context(), current); err != nil {
				return f.Fail(err)
			}

			if newPIN == "" {
				if !term.IsTerminal(int(os.Stdin.Fd())) {
					return f.Fail(ledger.Validation("set pin", "--new-pin is required when stdin is not a terminal"))
				}
				first, err := readSecret(cmd.ErrOrStderr(), "New PIN: ")
				if err != nil {
					return f.Fail(err)
				}
				again, err := readSecret(cmd.ErrOrStderr(), "Repeat PIN: ")
				if err != nil {
					return f.Fail(err)
				}
				if first != again {
					return f.Fail(ledger.Validation("set pin", "PINs do not match"))
				}
				newPIN = first
			}

			if err := db.SetPIN(cmd.Context(), newPIN); err != nil {
				return f.Fail(err)
			}
			return f.Success(map[string]bool{"pin_set": true}, "PIN set.")
		},
	}
	cmd.Flags().StringVar(&newPIN, "new-pin", "", "new PIN (prompted when omitted)")
	return cmd
}
