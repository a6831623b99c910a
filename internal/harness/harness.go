package harness

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/khata/internal/app"
	"github.com/roach88/khata/internal/gateway"
	"github.com/roach88/khata/internal/ledger"
	"github.com/roach88/khata/internal/nav"
	"github.com/roach88/khata/internal/reconcile"
	"github.com/roach88/khata/internal/testutil"
)

// Harness executes one scenario.
type Harness struct {
	app     *app.App
	remote  *gateway.Memory
	aliases map[string]string
}

// Run executes a scenario against a fresh in-memory remote and returns the
// result. An error means the scenario could not be executed at all; step
// and assertion failures are reported in the Result.
func Run(scenario *Scenario) (*Result, error) {
	if scenario == nil {
		return nil, errors.New("nil scenario")
	}

	var opts []gateway.MemoryOption
	if scenario.PIN != "" {
		opts = append(opts, gateway.WithPIN(scenario.PIN))
	}
	if scenario.StrictDelete {
		opts = append(opts, gateway.WithStrictDelete(true))
	}
	remote := testutil.NewRemote(opts...)

	var appOpts []app.Option
	if scenario.Currency != "" {
		appOpts = append(appOpts, app.WithCurrency(scenario.Currency))
	}
	h := &Harness{
		app:     app.New(remote, appOpts...),
		remote:  remote,
		aliases: make(map[string]string),
	}
	defer h.app.Close()

	ctx := context.Background()
	result := NewResult()
	for i, step := range scenario.Flow {
		args, err := h.resolveArgs(step.Args)
		if err != nil {
			return nil, fmt.Errorf("flow[%d]: %w", i, err)
		}

		out, stepErr := h.execute(ctx, step.Do, args)
		ev := TraceEvent{
			Action:  step.Do,
			Args:    args,
			Outcome: outcomeOf(stepErr),
			Result:  out,
			State:   h.app.State().String(),
		}
		result.AddTrace(ev)

		if step.As != "" && stepErr == nil {
			h.aliases[step.As] = out
		}
		if step.Expect != nil {
			checkExpect(result, i, step, ev)
		}
	}

	for _, msg := range EvaluateAssertions(h, result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func outcomeOf(err error) string {
	if err == nil {
		return OutcomeOK
	}
	if code := ledger.CodeOf(err); code != "" {
		return string(code)
	}
	return "ERROR"
}

func checkExpect(result *Result, i int, step Step, ev TraceEvent) {
	want := OutcomeOK
	if step.Expect.Error != "" {
		want = step.Expect.Error
	}
	if ev.Outcome != want {
		result.AddError(fmt.Sprintf("flow[%d] %s: expected outcome %s, got %s", i, step.Do, want, ev.Outcome))
	}
	if step.Expect.Result != "" && ev.Result != step.Expect.Result {
		result.AddError(fmt.Sprintf("flow[%d] %s: expected result %q, got %q", i, step.Do, step.Expect.Result, ev.Result))
	}
}

// resolveArgs substitutes $alias references. The returned map is a copy.
func (h *Harness) resolveArgs(args map[string]string) (map[string]string, error) {
	if len(args) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(args))
	for k, v := range args {
		r, err := h.resolve(v)
		if err != nil {
			return nil, fmt.Errorf("args.%s: %w", k, err)
		}
		out[k] = r
	}
	return out, nil
}

func (h *Harness) resolve(v string) (string, error) {
	name, ok := strings.CutPrefix(v, "$")
	if !ok {
		return v, nil
	}
	id, ok := h.aliases[name]
	if !ok {
		return "", fmt.Errorf("%s is not bound", v)
	}
	return id, nil
}

// execute performs one action and returns its result string.
func (h *Harness) execute(ctx context.Context, action string, args map[string]string) (string, error) {
	a := h.app
	switch action {
	case "unlock":
		if err := a.Unlock(ctx, args["pin"]); err != nil {
			return "", err
		}
		return "", a.Start(ctx)

	case "lock":
		a.Lock()
		return "", nil

	case "add_customer":
		c, err := a.SubmitCustomer(ctx, "", fieldsOf(args))
		return c.ID, err

	case "edit_customer":
		c, err := a.SubmitCustomer(ctx, args["customer"], fieldsOf(args))
		return c.ID, err

	case "delete_customer":
		return deleted(a.DeleteCustomer(ctx, args["customer"], confirmOf(args)))

	case "open":
		return "", a.OpenCustomer(ctx, args["customer"])

	case "show":
		d, err := a.DetailOf(args["customer"])
		if err != nil {
			return "", err
		}
		return d.Balance.String(), nil

	case "search":
		home, err := a.Home(args["term"])
		if err != nil {
			return "", err
		}
		var names []string
		for _, g := range home.Groups {
			for _, r := range g.Rows {
				names = append(names, r.Name)
			}
		}
		return strings.Join(names, ", "), nil

	case "overlay":
		kind, err := nav.ParseOverlay(args["kind"])
		if err != nil {
			return "", ledger.Navigation("open overlay", err.Error())
		}
		return "", a.OpenOverlay(kind)

	case "close_overlay":
		return "", a.CloseOverlay()

	case "back":
		return a.Back().String(), nil

	case "home":
		return "", a.GoHome()

	case "gave", "got":
		kind := ledger.Gave
		if action == "got" {
			kind = ledger.Received
		}
		t, err := a.SubmitTransaction(ctx, args["customer"], kind, args["amount"], args["description"])
		return t.ID, err

	case "delete_transaction":
		return deleted(a.DeleteTransaction(ctx, args["transaction"], args["customer"], confirmOf(args)))

	case "refresh":
		return "", a.Refresh(ctx)

	case "fail_next":
		msg := args["message"]
		if msg == "" {
			msg = "injected failure"
		}
		h.remote.Fail(gateway.Op(args["op"]), errors.New(msg))
		return "", nil

	default:
		return "", fmt.Errorf("unknown action %q", action)
	}
}

func fieldsOf(args map[string]string) ledger.CustomerFields {
	return ledger.CustomerFields{
		Name:       args["name"],
		FatherName: args["father_name"],
		City:       args["city"],
		Mobile:     args["mobile"],
	}
}

func confirmOf(args map[string]string) reconcile.ConfirmFunc {
	answer := args["confirm"]
	return func(reconcile.DeletionPrompt) bool {
		return answer == "" || answer == "yes"
	}
}

func deleted(ok bool, err error) (string, error) {
	if err != nil {
		return "", err
	}
	if !ok {
		return "declined", nil
	}
	return "deleted", nil
}
