package harness

import (
	"fmt"
	"strings"
)

// AssertionError describes a failed assertion with the trace for context.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, ev := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s %v -> %s %s\n", ev.Seq, ev.Action, ev.Args, ev.Outcome, ev.State)
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion and returns one message per
// failure.
func EvaluateAssertions(h *Harness, result *Result, assertions []Assertion) []string {
	var errs []string
	for _, a := range assertions {
		if err := evaluate(h, result, a); err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func evaluate(h *Harness, result *Result, a Assertion) error {
	fail := func(expected, actual string) error {
		return &AssertionError{Type: a.Type, Expected: expected, Actual: actual, Trace: result.Trace}
	}

	switch a.Type {
	case AssertBalance, AssertBadge:
		id, err := h.resolve(a.Customer)
		if err != nil {
			return fail(a.Equals, err.Error())
		}
		c, err := h.app.Ledger().Customer(id)
		if err != nil {
			return fail(a.Equals, err.Error())
		}
		got := h.app.Formatter().Badge(c.Balance())
		if a.Type == AssertBalance {
			got = h.app.Formatter().Describe(c.Balance()).String()
		}
		if got != a.Equals {
			return fail(a.Equals, got)
		}

	case AssertScreen:
		if got := h.app.State().String(); got != a.Equals {
			return fail(a.Equals, got)
		}

	case AssertCustomers:
		if got := h.app.Ledger().Len(); got != a.Count {
			return fail(fmt.Sprintf("%d customers", a.Count), fmt.Sprintf("%d customers", got))
		}

	case AssertHistory:
		id, err := h.resolve(a.Customer)
		if err != nil {
			return fail(fmt.Sprintf("%d entries", a.Count), err.Error())
		}
		txs, err := h.app.Ledger().Transactions(id)
		if err != nil {
			return fail(fmt.Sprintf("%d entries", a.Count), err.Error())
		}
		if len(txs) != a.Count {
			return fail(fmt.Sprintf("%d entries", a.Count), fmt.Sprintf("%d entries", len(txs)))
		}

	case AssertTraceCount:
		n := 0
		for _, ev := range result.Trace {
			if ev.Action == a.Action && (a.Outcome == "" || ev.Outcome == a.Outcome) {
				n++
			}
		}
		if n != a.Count {
			return fail(fmt.Sprintf("%s x%d", a.Action, a.Count), fmt.Sprintf("%s x%d", a.Action, n))
		}

	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
