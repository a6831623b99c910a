package shell

import (
	"context"
	"fmt"

	"github.com/roach88/khata/internal/ledger"
	"github.com/roach88/khata/internal/nav"
)

// customerForm asks for customer fields inside the customer overlay.
// An empty id adds a customer; otherwise the current values are defaults.
// A blank name on a new customer cancels the form.
func (s *Shell) customerForm(ctx context.Context, id string) error {
	var current ledger.CustomerFields
	if id != "" {
		c, err := s.app.Ledger().Customer(id)
		if err != nil {
			return err
		}
		current = c.Fields()
	}
	if err := s.app.OpenOverlay(nav.AddOrEditCustomer); err != nil {
		return err
	}

	field := func(label, def string) (string, bool) {
		prompt := label + ": "
		if def != "" {
			prompt = fmt.Sprintf("%s [%s]: ", label, def)
		}
		v, ok := s.ask(prompt)
		if v == "" {
			v = def
		}
		return v, ok
	}

	var f ledger.CustomerFields
	var ok bool
	if f.Name, ok = field("Name", current.Name); !ok || f.Name == "" {
		return s.cancelForm()
	}
	if f.FatherName, ok = field("Father's name", current.FatherName); !ok {
		return s.cancelForm()
	}
	if f.City, ok = field("City", current.City); !ok {
		return s.cancelForm()
	}
	if f.Mobile, ok = field("Mobile", current.Mobile); !ok {
		return s.cancelForm()
	}

	if _, err := s.app.SubmitCustomer(ctx, id, f); err != nil {
		// The overlay stays open on failure; close it so the prompt is usable.
		_ = s.app.CloseOverlay()
		return err
	}
	fmt.Fprintln(s.out, "Saved.")
	s.render()
	return nil
}

// entryForm records one GAVE/RECEIVED entry. A missing amount is asked for.
func (s *Shell) entryForm(ctx context.Context, customerID string, kind ledger.Kind, amount, note string) error {
	if err := s.app.OpenOverlay(nav.AddTransaction); err != nil {
		return err
	}
	if amount == "" {
		var ok bool
		if amount, ok = s.ask("Amount: "); !ok || amount == "" {
			return s.cancelForm()
		}
		if note, ok = s.ask("Note: "); !ok {
			return s.cancelForm()
		}
	}
	if _, err := s.app.SubmitTransaction(ctx, customerID, kind, amount, note); err != nil {
		_ = s.app.CloseOverlay()
		return err
	}
	s.render()
	return nil
}

func (s *Shell) cancelForm() error {
	fmt.Fprintln(s.out, "Cancelled.")
	return s.app.CloseOverlay()
}
