package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/khata/internal/config"
	"github.com/roach88/khata/internal/logging"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	PIN        string

	// Config is loaded before any subcommand runs.
	Config *config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the khata CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "khata",
		Short: "khata - a credit ledger for a small shop",
		Long: `A personal credit ledger: who owes you, who paid in advance.

Every customer has a running balance built from GAVE and RECEIVED entries.
A positive balance is money to receive; a negative one is an advance.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Validate format flag
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}

			cfg, err := config.Load(config.Source{
				File:     opts.ConfigPath,
				Required: cmd.Flags().Changed("config"),
				EnvFiles: []string{".env"},
			})
			if err != nil {
				return WrapExitError(ExitCommandError, "load config", err)
			}
			opts.Config = cfg

			_, err = logging.Setup(logging.Options{
				Level:   cfg.Log.Level,
				Format:  cfg.Log.Format,
				Verbose: opts.Verbose,
				Writer:  cmd.ErrOrStderr(),
			})
			if err != nil {
				return WrapExitError(ExitCommandError, "set up logging", err)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", config.DefaultFile, "config file")
	cmd.PersistentFlags().StringVar(&opts.PIN, "pin", "", "PIN for one-shot commands (or $KHATA_PIN)")

	// Add subcommands
	cmd.AddCommand(NewCustomersCommand(opts))
	cmd.AddCommand(NewCustomerCommand(opts))
	cmd.AddCommand(NewTxCommand(opts))
	cmd.AddCommand(NewPINCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewShellCommand(opts))
	cmd.AddCommand(NewScenarioCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
