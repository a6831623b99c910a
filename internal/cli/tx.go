package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/khata/internal/ledger"
)

// NewTxCommand creates the tx command group.
func NewTxCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tx",
		Short: "Record or delete ledger entries",
	}
	cmd.AddCommand(newTxAddCommand(rootOpts))
	cmd.AddCommand(newTxDeleteCommand(rootOpts))
	return cmd
}

func newTxAddCommand(rootOpts *RootOptions) *cobra.Command {
	var note string

	cmd := &cobra.Command{
		Use:   "add <customer-id> <GAVE|RECEIVED> <amount>",
		Short: "Record a GAVE or RECEIVED entry",
		Long: `Record a GAVE or RECEIVED entry for a customer.

GAVE is goods or money you gave; it increases what they owe.
RECEIVED is a payment; it decreases what they owe.

Examples:
  khata tx add c-1 GAVE 500 --note "rice and dal"
  khata tx add c-1 got 200`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatterFor(rootOpts, cmd)
			kind, err := ledger.ParseKind(args[1])
			if err != nil {
				return f.Fail(err)
			}

			a, err := openSession(cmd.Context(), rootOpts, cmd)
			if err != nil {
				return f.Fail(err)
			}
			defer a.Close()

			if err := a.OpenCustomer(cmd.Context(), args[0]); err != nil {
				return f.Fail(err)
			}
			t, err := a.SubmitTransaction(cmd.Context(), args[0], kind, args[2], note)
			if err != nil {
				return f.Fail(err)
			}
			view, err := a.Detail()
			if err != nil {
				return f.Fail(err)
			}
			return f.Success(t, fmt.Sprintf("Recorded %s %s (%s). Balance: %s",
				t.Kind, a.Formatter().Amount(t.Amount), t.ID, view.Balance))
		},
	}
	cmd.Flags().StringVarP(&note, "note", "n", "", "description")
	return cmd
}

func newTxDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <customer-id> <transaction-id>",
		Short: "Delete one entry",
		Long: `Delete one entry. Asks first unless --yes.

Examples:
  khata tx delete c-1 t-2 --yes`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatterFor(rootOpts, cmd)
			a, err := openSession(cmd.Context(), rootOpts, cmd)
			if err != nil {
				return f.Fail(err)
			}
			defer a.Close()

			if err := a.OpenCustomer(cmd.Context(), args[0]); err != nil {
				return f.Fail(err)
			}
			deleted, err := a.DeleteTransaction(cmd.Context(), args[1], args[0], confirmer(cmd, yes))
			if err != nil {
				return f.Fail(err)
			}
			return f.Success(deletion{ID: args[1], Deleted: deleted}, deletedText(deleted))
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}
