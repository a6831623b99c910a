// Package app holds the root application state.
//
// An App owns the cached ledger, the navigation machine, the reconciliation
// controller and the session's authenticated flag. Every user-facing action
// goes through it; while locked, everything except Unlock fails with a
// LOCKED error.
package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/roach88/khata/internal/gateway"
	"github.com/roach88/khata/internal/ledger"
	"github.com/roach88/khata/internal/nav"
	"github.com/roach88/khata/internal/reconcile"
)

// App is the client session.
//
// Thread-safety: safe for concurrent use.
type App struct {
	remote gateway.Gateway
	ledger *ledger.Store
	nav    *nav.Machine
	ctrl   *reconcile.Controller
	format ledger.Formatter

	unlocked atomic.Bool
	closer   io.Closer

	closeOnce sync.Once
	closeErr  error
}

// Option configures an App.
type Option func(*App)

// WithCurrency sets the display currency (ISO 4217 code).
func WithCurrency(code string) Option {
	return func(a *App) { a.format = ledger.NewFormatter(code) }
}

// WithCloser registers a resource released by Close, typically the remote.
func WithCloser(c io.Closer) Option {
	return func(a *App) { a.closer = c }
}

// New wires an App over remote. The session starts locked at Home.
func New(remote gateway.Gateway, opts ...Option) *App {
	a := &App{
		remote: remote,
		ledger: ledger.NewStore(),
		format: ledger.NewFormatter(ledger.DefaultCurrency),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.nav = nav.NewMachine(a.ledger)
	a.ctrl = reconcile.New(remote, a.ledger, a.nav, reconcile.WithFormatter(a.format))
	return a
}

// Unlock authenticates the session with pin.
//
// A wrong PIN is a VALIDATION error. A remote without a configured PIN
// unlocks the session.
func (a *App) Unlock(ctx context.Context, pin string) error {
	ok, err := a.remote.Authenticate(ctx, pin)
	switch {
	case errors.Is(err, gateway.ErrNoPIN):
		slog.Warn("remote has no PIN configured; session unlocked without one")
	case err != nil:
		slog.Error("remote call failed", "op", "unlock", "error", err)
		return ledger.Remote("unlock", err)
	case !ok:
		return ledger.Validation("unlock", "incorrect PIN")
	}
	a.unlocked.Store(true)
	slog.Info("session unlocked")
	return nil
}

// Lock clears the authenticated flag, the cached ledger and the view
// history.
func (a *App) Lock() {
	a.unlocked.Store(false)
	a.nav.Reset()
	a.ledger.Reset()
	slog.Info("session locked")
}

// IsUnlocked reports the authenticated flag.
func (a *App) IsUnlocked() bool { return a.unlocked.Load() }

// Start loads the customer list. The session must be unlocked.
func (a *App) Start(ctx context.Context) error {
	if err := a.guard("start"); err != nil {
		return err
	}
	a.nav.Reset()
	return a.ctrl.Refresh(ctx)
}

// Close locks the session and releases the remote. Safe to call twice.
func (a *App) Close() error {
	a.closeOnce.Do(func() {
		a.Lock()
		if a.closer != nil {
			a.closeErr = a.closer.Close()
		}
	})
	return a.closeErr
}

// Ledger exposes the cached ledger for read-only use.
func (a *App) Ledger() *ledger.Store { return a.ledger }

// Nav exposes the navigation machine, e.g. to Subscribe.
func (a *App) Nav() *nav.Machine { return a.nav }

// Formatter returns the display formatter.
func (a *App) Formatter() ledger.Formatter { return a.format }

// State returns the current view state.
func (a *App) State() nav.State { return a.nav.State() }

func (a *App) guard(op string) error {
	if !a.unlocked.Load() {
		return ledger.Locked(op)
	}
	return nil
}
