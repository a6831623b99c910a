package app

import (
	"context"

	"github.com/roach88/khata/internal/ledger"
	"github.com/roach88/khata/internal/nav"
	"github.com/roach88/khata/internal/reconcile"
)

// Refresh pulls the customer list and the open customer's history.
func (a *App) Refresh(ctx context.Context) error {
	if err := a.guard("refresh"); err != nil {
		return err
	}
	return a.ctrl.Refresh(ctx)
}

// OpenCustomer shows the customer's detail.
func (a *App) OpenCustomer(ctx context.Context, id string) error {
	if err := a.guard("open customer"); err != nil {
		return err
	}
	return a.ctrl.OpenCustomer(ctx, id)
}

// OpenOverlay raises a form over the current screen.
func (a *App) OpenOverlay(kind nav.Overlay) error {
	if err := a.guard("open overlay"); err != nil {
		return err
	}
	return a.nav.OpenOverlay(kind)
}

// Back is the platform back signal. Exit means the host should quit.
// A locked session always exits.
func (a *App) Back() nav.Outcome {
	if !a.IsUnlocked() {
		return nav.Exit
	}
	return a.nav.Back()
}

// CloseOverlay is the in-app close control of a form.
func (a *App) CloseOverlay() error {
	if err := a.guard("close overlay"); err != nil {
		return err
	}
	return a.nav.CloseOverlay()
}

// GoHome is the in-app home control.
func (a *App) GoHome() error {
	if err := a.guard("go home"); err != nil {
		return err
	}
	a.nav.GoHome()
	return nil
}

// SubmitCustomer saves the customer form: creates when id is empty,
// updates otherwise. On success an open customer overlay is closed; on
// failure it stays open with the user's input.
func (a *App) SubmitCustomer(ctx context.Context, id string, fields ledger.CustomerFields) (ledger.Customer, error) {
	if err := a.guard("save customer"); err != nil {
		return ledger.Customer{}, err
	}
	var (
		saved ledger.Customer
		err   error
	)
	if id == "" {
		saved, err = a.ctrl.CreateCustomer(ctx, fields)
	} else {
		saved, err = a.ctrl.UpdateCustomer(ctx, id, fields)
	}
	if err != nil {
		return saved, err
	}
	a.closeOverlayIf(nav.AddOrEditCustomer)
	return saved, nil
}

// SubmitTransaction records a GAVE/RECEIVED entry for customerID and closes
// an open transaction overlay on success.
func (a *App) SubmitTransaction(ctx context.Context, customerID string, kind ledger.Kind, amount, description string) (ledger.Transaction, error) {
	if err := a.guard("save transaction"); err != nil {
		return ledger.Transaction{}, err
	}
	created, err := a.ctrl.CreateTransaction(ctx, customerID, kind, amount, description)
	if err != nil {
		return created, err
	}
	a.closeOverlayIf(nav.AddTransaction)
	return created, nil
}

// DeleteCustomer asks confirm and hard-deletes the customer on yes.
func (a *App) DeleteCustomer(ctx context.Context, id string, confirm reconcile.ConfirmFunc) (bool, error) {
	if err := a.guard("delete customer"); err != nil {
		return false, err
	}
	return a.ctrl.ConfirmAndDeleteCustomer(ctx, id, confirm)
}

// DeleteTransaction asks confirm and hard-deletes the entry on yes.
func (a *App) DeleteTransaction(ctx context.Context, id, customerID string, confirm reconcile.ConfirmFunc) (bool, error) {
	if err := a.guard("delete transaction"); err != nil {
		return false, err
	}
	return a.ctrl.ConfirmAndDeleteTransaction(ctx, id, customerID, confirm)
}

func (a *App) closeOverlayIf(kind nav.Overlay) {
	if a.nav.State().Overlay == kind {
		_ = a.nav.CloseOverlay()
	}
}
