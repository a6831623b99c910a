package harness

// Outcome of a successful step in the trace.
const OutcomeOK = "ok"

// TraceEvent records one executed step.
type TraceEvent struct {
	Seq    int               `json:"seq"`
	Action string            `json:"action"`
	Args   map[string]string `json:"args,omitempty"`
	// Outcome is "ok" or the error code (VALIDATION, REMOTE, ...).
	Outcome string `json:"outcome"`
	// Result is the step's answer: a created id, a balance label, ...
	Result string `json:"result,omitempty"`
	// State is the screen after the step.
	State string `json:"state"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace contains every executed step in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains expectation and assertion failures.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends one step.
func (r *Result) AddTrace(ev TraceEvent) {
	ev.Seq = len(r.Trace) + 1
	r.Trace = append(r.Trace, ev)
}
