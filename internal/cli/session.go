package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/roach88/khata/internal/app"
	"github.com/roach88/khata/internal/config"
	"github.com/roach88/khata/internal/gateway"
	"github.com/roach88/khata/internal/store"
)

// openRemote builds the gateway the config selects. The closer releases
// it and is never nil.
func openRemote(cfg *config.Config) (gateway.Gateway, io.Closer, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return gateway.NewMemory(gateway.WithStrictDelete(cfg.StrictDelete)), io.NopCloser(nil), nil

	case config.BackendHTTP:
		remote, err := gateway.NewHTTP(cfg.RemoteURL,
			gateway.WithTimeout(cfg.Timeout),
			gateway.WithLogger(slog.Default()))
		if err != nil {
			return nil, nil, fmt.Errorf("open remote %s: %w", cfg.RemoteURL, err)
		}
		return remote, io.NopCloser(nil), nil

	case config.BackendSQLite:
		db, err := openStore(cfg)
		if err != nil {
			return nil, nil, err
		}
		return db, db, nil
	}
	return nil, nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}

func openStore(cfg *config.Config) (*store.Store, error) {
	db, err := store.Open(cfg.Database, store.WithStrictDelete(cfg.StrictDelete))
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", cfg.Database, err)
	}
	return db, nil
}

// pinOf returns the PIN for one-shot commands: --pin, then $KHATA_PIN, then a
// hidden prompt when stdin is a terminal. An empty PIN is fine for a remote
// without one.
func pinOf(opts *RootOptions, cmd *cobra.Command) (string, error) {
	if opts.PIN != "" {
		return opts.PIN, nil
	}
	if pin := os.Getenv("KHATA_PIN"); pin != "" {
		return pin, nil
	}
	if cmd.InOrStdin() != os.Stdin || !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", nil
	}
	return readSecret(cmd.ErrOrStderr(), "PIN: ")
}

// readSecret reads one line from the terminal without echo.
func readSecret(w io.Writer, prompt string) (string, error) {
	fmt.Fprint(w, prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("read PIN: %w", err)
	}
	return string(b), nil
}

// newApp wires a locked App over the configured remote.
func newApp(opts *RootOptions) (*app.App, error) {
	remote, closer, err := openRemote(opts.Config)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open backend", err)
	}
	return newAppOver(remote, opts, app.WithCloser(closer)), nil
}

func newAppOver(remote gateway.Gateway, opts *RootOptions, extra ...app.Option) *app.App {
	return app.New(remote, append([]app.Option{app.WithCurrency(opts.Config.Currency)}, extra...)...)
}

// openSession returns an unlocked, started App. Callers must Close it.
func openSession(ctx context.Context, opts *RootOptions, cmd *cobra.Command) (*app.App, error) {
	a, err := newApp(opts)
	if err != nil {
		return nil, err
	}
	pin, err := pinOf(opts, cmd)
	if err != nil {
		_ = a.Close()
		return nil, WrapExitError(ExitCommandError, "unlock", err)
	}
	if err := a.Unlock(ctx, pin); err != nil {
		_ = a.Close()
		return nil, err
	}
	if err := a.Start(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

// formatterFor builds the output formatter for a command.
func formatterFor(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}
