package cli

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/roach88/khata/internal/app"
	"github.com/roach88/khata/internal/ledger"
	"github.com/roach88/khata/internal/reconcile"
	"github.com/roach88/khata/internal/shell"
)

// NewCustomersCommand creates the customers command.
func NewCustomersCommand(rootOpts *RootOptions) *cobra.Command {
	var search string

	cmd := &cobra.Command{
		Use:   "customers",
		Short: "List customers grouped by city",
		Long: `List customers grouped by city with their balances.

Examples:
  khata customers
  khata customers --search ra
  khata customers --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatterFor(rootOpts, cmd)
			a, err := openSession(cmd.Context(), rootOpts, cmd)
			if err != nil {
				return f.Fail(err)
			}
			defer a.Close()

			view, err := a.Home(search)
			if err != nil {
				return f.Fail(err)
			}
			var text bytes.Buffer
			shell.RenderHome(&text, view, palette())
			return f.Success(view, strings.TrimRight(text.String(), "\n"))
		},
	}

	cmd.Flags().StringVarP(&search, "search", "s", "", "only names containing this text")
	return cmd
}

// NewCustomerCommand creates the customer command group.
func NewCustomerCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "customer",
		Short: "Add, edit, delete or show one customer",
	}
	cmd.AddCommand(newCustomerAddCommand(rootOpts))
	cmd.AddCommand(newCustomerEditCommand(rootOpts))
	cmd.AddCommand(newCustomerDeleteCommand(rootOpts))
	cmd.AddCommand(newCustomerShowCommand(rootOpts))
	return cmd
}

// customerFlags binds the customer form fields.
func customerFlags(cmd *cobra.Command, f *ledger.CustomerFields) {
	cmd.Flags().StringVar(&f.Name, "name", "", "customer name")
	cmd.Flags().StringVar(&f.FatherName, "father", "", "father's name")
	cmd.Flags().StringVar(&f.City, "city", "", "city")
	cmd.Flags().StringVar(&f.Mobile, "mobile", "", "mobile number")
}

func newCustomerAddCommand(rootOpts *RootOptions) *cobra.Command {
	var fields ledger.CustomerFields

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a customer",
		Long: `Add a customer.

Examples:
  khata customer add --name "Rahul Sharma" --city Pune`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatterFor(rootOpts, cmd)
			a, err := openSession(cmd.Context(), rootOpts, cmd)
			if err != nil {
				return f.Fail(err)
			}
			defer a.Close()

			c, err := a.SubmitCustomer(cmd.Context(), "", fields)
			if err != nil {
				return f.Fail(err)
			}
			return f.Success(c, fmt.Sprintf("Added %s (%s)", c.Name, c.ID))
		},
	}
	customerFlags(cmd, &fields)
	return cmd
}

func newCustomerEditCommand(rootOpts *RootOptions) *cobra.Command {
	var fields ledger.CustomerFields

	cmd := &cobra.Command{
		Use:   "edit <customer-id>",
		Short: "Change a customer's details",
		Long: `Change a customer's details. Only the flags given are changed.

Examples:
  khata customer edit c-1 --city Mumbai
  khata customer edit c-1 --mobile ""`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatterFor(rootOpts, cmd)
			a, err := openSession(cmd.Context(), rootOpts, cmd)
			if err != nil {
				return f.Fail(err)
			}
			defer a.Close()

			current, err := a.Ledger().Customer(args[0])
			if err != nil {
				return f.Fail(err)
			}
			merged := current.Fields()
			flags := cmd.Flags()
			if flags.Changed("name") {
				merged.Name = fields.Name
			}
			if flags.Changed("father") {
				merged.FatherName = fields.FatherName
			}
			if flags.Changed("city") {
				merged.City = fields.City
			}
			if flags.Changed("mobile") {
				merged.Mobile = fields.Mobile
			}

			c, err := a.SubmitCustomer(cmd.Context(), args[0], merged)
			if err != nil {
				return f.Fail(err)
			}
			return f.Success(c, fmt.Sprintf("Updated %s (%s)", c.Name, c.ID))
		},
	}
	customerFlags(cmd, &fields)
	return cmd
}

func newCustomerDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <customer-id>",
		Short: "Delete a customer and all their entries",
		Long: `Delete a customer and all their entries. Asks first unless --yes.

Examples:
  khata customer delete c-1
  khata customer delete c-1 --yes`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatterFor(rootOpts, cmd)
			a, err := openSession(cmd.Context(), rootOpts, cmd)
			if err != nil {
				return f.Fail(err)
			}
			defer a.Close()

			deleted, err := a.DeleteCustomer(cmd.Context(), args[0], confirmer(cmd, yes))
			if err != nil {
				return f.Fail(err)
			}
			return f.Success(deletion{ID: args[0], Deleted: deleted}, deletedText(deleted))
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func newCustomerShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <customer-id>",
		Short: "Show a customer's balance and history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatterFor(rootOpts, cmd)
			a, err := openSession(cmd.Context(), rootOpts, cmd)
			if err != nil {
				return f.Fail(err)
			}
			defer a.Close()

			view, err := showCustomer(cmd, a, args[0])
			if err != nil {
				return f.Fail(err)
			}
			var text bytes.Buffer
			shell.RenderDetail(&text, view, palette())
			return f.Success(view, strings.TrimRight(text.String(), "\n"))
		},
	}
}

// showCustomer opens the customer so its history is current.
func showCustomer(cmd *cobra.Command, a *app.App, id string) (app.DetailView, error) {
	if err := a.OpenCustomer(cmd.Context(), id); err != nil {
		return app.DetailView{}, err
	}
	return a.Detail()
}

// deletion is the JSON payload of the delete commands.
type deletion struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

func deletedText(deleted bool) string {
	if deleted {
		return "Deleted."
	}
	return "Not deleted."
}

// confirmer answers deletion prompts: always yes with --yes, otherwise by
// reading y/n from the command's input.
func confirmer(cmd *cobra.Command, yes bool) reconcile.ConfirmFunc {
	if yes {
		return func(reconcile.DeletionPrompt) bool { return true }
	}
	return func(p reconcile.DeletionPrompt) bool {
		return askYesNo(cmd.InOrStdin(), cmd.ErrOrStderr(), p.Question)
	}
}

func askYesNo(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N] ", question)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

// palette colors balances when stdout supports it.
func palette() shell.Palette {
	return shell.NewPalette(!color.NoColor)
}
