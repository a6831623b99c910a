package app

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/khata/internal/ledger"
	"github.com/roach88/khata/internal/nav"
)

// HomeView is the customer list: filtered by name, grouped by city.
type HomeView struct {
	Term    string          `json:"term,omitempty"`
	Groups  []GroupView     `json:"groups"`
	Count   int             `json:"count"`
	Total   decimal.Decimal `json:"total"`
	Summary string          `json:"summary"`
}

// GroupView is one city section of the home list.
type GroupView struct {
	Label string    `json:"label"`
	Badge string    `json:"badge"`
	Rows  []RowView `json:"rows"`
}

// RowView is one customer line with its balance badge.
type RowView struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	City     string          `json:"city,omitempty"`
	Balance  decimal.Decimal `json:"balance"`
	Standing ledger.Standing `json:"-"`
	Badge    string          `json:"badge"`
}

// DetailView is one customer's page.
type DetailView struct {
	Customer ledger.Customer     `json:"customer"`
	Balance  ledger.BalanceLabel `json:"balance"`
	Entries  []EntryView         `json:"entries"`
	Overlay  string              `json:"overlay,omitempty"`
}

// EntryView is one history line, newest first.
type EntryView struct {
	ID          string      `json:"id"`
	Date        time.Time   `json:"date"`
	Kind        ledger.Kind `json:"kind"`
	Amount      string      `json:"amount"`
	Description string      `json:"description,omitempty"`
}

// Home derives the list view from the cached ledger.
func (a *App) Home(term string) (HomeView, error) {
	if err := a.guard("home"); err != nil {
		return HomeView{}, err
	}
	matched := ledger.FilterByName(a.ledger.Customers(), term)

	view := HomeView{Term: term, Count: len(matched), Total: decimal.Zero}
	for _, g := range ledger.GroupByCity(matched) {
		gv := GroupView{Label: g.Label, Badge: a.format.Badge(g.Total)}
		for _, c := range g.Customers {
			bal := c.Balance()
			gv.Rows = append(gv.Rows, RowView{
				ID:       c.ID,
				Name:     c.Name,
				City:     c.City,
				Balance:  bal,
				Standing: ledger.StandingOf(bal),
				Badge:    a.format.Badge(bal),
			})
		}
		view.Total = view.Total.Add(g.Total)
		view.Groups = append(view.Groups, gv)
	}
	view.Summary = a.format.Describe(view.Total).String()
	return view, nil
}

// Detail derives the open customer's page. Outside Detail it is a
// NAVIGATION error.
func (a *App) Detail() (DetailView, error) {
	if err := a.guard("detail"); err != nil {
		return DetailView{}, err
	}
	st := a.nav.State()
	if st.Screen != nav.Detail {
		return DetailView{}, ledger.Navigation("detail", "no customer is open")
	}
	return a.DetailOf(st.CustomerID)
}

// DetailOf derives the page of any cached customer.
func (a *App) DetailOf(id string) (DetailView, error) {
	if err := a.guard("detail"); err != nil {
		return DetailView{}, err
	}
	c, err := a.ledger.Customer(id)
	if err != nil {
		return DetailView{}, err
	}
	view := DetailView{
		Customer: c,
		Balance:  a.format.Describe(c.Balance()),
		Entries:  make([]EntryView, 0, len(c.Transactions)),
	}
	if st := a.nav.State(); st.Overlay != nav.NoOverlay && st.CustomerID == id {
		view.Overlay = st.Overlay.String()
	}
	for _, t := range c.Transactions {
		view.Entries = append(view.Entries, EntryView{
			ID:          t.ID,
			Date:        t.Date,
			Kind:        t.Kind,
			Amount:      a.format.Amount(t.Amount),
			Description: t.Description,
		})
	}
	return view, nil
}
