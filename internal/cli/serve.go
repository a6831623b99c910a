package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/khata/internal/config"
	"github.com/roach88/khata/internal/httpapi"
	"github.com/roach88/khata/internal/ledger"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Listen    string
	RateLimit int
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the ledger over HTTP",
		Long: `Serve the configured backend as the REST remote that the http backend
of other khata clients talks to. Stops on SIGINT or SIGTERM.

Examples:
  khata serve
  khata serve --listen :9090
  KHATA_DATABASE=shop.db khata serve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Listen, "listen", "l", "", "listen address (default from config)")
	cmd.Flags().IntVar(&opts.RateLimit, "rate-limit", httpapi.DefaultRateLimit, "requests per second per client; 0 disables")
	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	f := formatterFor(opts.RootOptions, cmd)
	cfg := opts.Config
	if cfg.Backend == config.BackendHTTP {
		return f.Fail(ledger.Validation("serve", "cannot serve an http backend; use sqlite or memory"))
	}
	addr := cfg.Listen
	if opts.Listen != "" {
		addr = opts.Listen
	}

	remote, closer, err := openRemote(cfg)
	if err != nil {
		return f.Fail(WrapExitError(ExitCommandError, "open backend", err))
	}
	defer closer.Close()

	ctx, stop := signalContext(cmd)
	defer stop()

	server := httpapi.New(remote, httpapi.WithRateLimit(opts.RateLimit, time.Second))
	slog.Info("serving ledger", "addr", addr, "backend", cfg.Backend)
	f.VerboseLog("listening on %s", addr)

	if err := httpapi.Serve(ctx, server, addr); err != nil {
		return f.Fail(fmt.Errorf("serve %s: %w", addr, err))
	}
	slog.Info("server stopped")
	return nil
}

// signalContext is the command context canceled on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
}
