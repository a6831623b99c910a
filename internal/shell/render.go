package shell

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/roach88/khata/internal/app"
	"github.com/roach88/khata/internal/ledger"
)

// Palette colors balances: green when the customer owes, red for an
// advance. The zero Palette prints plain text.
type Palette struct {
	owed    func(a ...any) string
	advance func(a ...any) string
	dim     func(a ...any) string
}

// NewPalette returns a colored palette, or a plain one when enabled is
// false.
func NewPalette(enabled bool) Palette {
	if !enabled {
		return Palette{}
	}
	owed := color.New(color.FgGreen, color.Bold)
	advance := color.New(color.FgRed, color.Bold)
	dim := color.New(color.Faint)
	for _, c := range []*color.Color{owed, advance, dim} {
		c.EnableColor()
	}
	return Palette{owed: owed.SprintFunc(), advance: advance.SprintFunc(), dim: dim.SprintFunc()}
}

func apply(f func(a ...any) string, s string) string {
	if f == nil {
		return s
	}
	return f(s)
}

func (p Palette) badge(standing ledger.Standing, s string) string {
	if standing == ledger.ToPay {
		return apply(p.advance, s)
	}
	return apply(p.owed, s)
}

// RenderHome writes the grouped customer list. Rows are numbered from 1 in
// display order; the returned ids follow the same order.
func RenderHome(w io.Writer, v app.HomeView, p Palette) []string {
	var ids []string
	if v.Term != "" {
		fmt.Fprintf(w, "Search: %q (%d match)\n", v.Term, v.Count)
	}
	if v.Count == 0 {
		fmt.Fprintln(w, "No customers.")
		return nil
	}
	for _, g := range v.Groups {
		fmt.Fprintf(w, "%s  %s\n", g.Label, apply(p.dim, g.Badge))
		for _, r := range g.Rows {
			ids = append(ids, r.ID)
			fmt.Fprintf(w, "  %2d. %-24s %s\n", len(ids), r.Name, p.badge(r.Standing, r.Badge))
		}
	}
	fmt.Fprintf(w, "Total: %s\n", v.Summary)
	return ids
}

// RenderDetail writes one customer's page. Entries are numbered from 1,
// newest first; the returned ids follow the same order.
func RenderDetail(w io.Writer, v app.DetailView, p Palette) []string {
	c := v.Customer
	fmt.Fprintln(w, c.Name)
	var facts []string
	if c.FatherName != "" {
		facts = append(facts, "s/o "+c.FatherName)
	}
	if c.City != "" {
		facts = append(facts, c.City)
	}
	if c.Mobile != "" {
		facts = append(facts, c.Mobile)
	}
	if len(facts) > 0 {
		fmt.Fprintln(w, apply(p.dim, strings.Join(facts, " · ")))
	}
	fmt.Fprintf(w, "Balance: %s\n", p.badge(v.Balance.Standing, v.Balance.String()))

	if len(v.Entries) == 0 {
		fmt.Fprintln(w, "No entries.")
		return nil
	}
	ids := make([]string, 0, len(v.Entries))
	for _, e := range v.Entries {
		ids = append(ids, e.ID)
		line := fmt.Sprintf("  %2d. %s  %-8s %s", len(ids), e.Date.Format("02 Jan 2006"), e.Kind, e.Amount)
		if e.Description != "" {
			line += "  " + e.Description
		}
		fmt.Fprintln(w, line)
	}
	return ids
}
