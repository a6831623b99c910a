package harness

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Scenario is a scripted session.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario checks.
	Description string `yaml:"description"`

	// PIN configures the remote's PIN. Empty means no PIN is set.
	PIN string `yaml:"pin,omitempty"`

	// StrictDelete makes the remote refuse deleting customers with a
	// non-zero balance.
	StrictDelete bool `yaml:"strict_delete,omitempty"`

	// Currency is the display currency code (default INR).
	Currency string `yaml:"currency,omitempty"`

	Flow       []Step      `yaml:"flow"`
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one user action.
type Step struct {
	Do   string            `yaml:"do"`
	Args map[string]string `yaml:"args,omitempty"`

	// As binds the step's result to $name for later steps.
	As string `yaml:"as,omitempty"`

	// Expect checks the step's outcome. Nil means any outcome is accepted.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect is the expected outcome of a step.
type Expect struct {
	// Error is the expected error code; empty expects success.
	Error string `yaml:"error,omitempty"`
	// Result, when set, must equal the step's result.
	Result string `yaml:"result,omitempty"`
}

// Assertion checks the final session.
type Assertion struct {
	Type     string `yaml:"type"`
	Customer string `yaml:"customer,omitempty"`
	Action   string `yaml:"action,omitempty"`
	Outcome  string `yaml:"outcome,omitempty"`
	Equals   string `yaml:"equals,omitempty"`
	Count    int    `yaml:"count,omitempty"`
}

// Assertion types.
const (
	AssertBalance    = "balance"
	AssertBadge      = "badge"
	AssertScreen     = "screen"
	AssertCustomers  = "customers"
	AssertHistory    = "history"
	AssertTraceCount = "trace_count"
)

var knownActions = map[string]bool{
	"unlock": true, "lock": true,
	"add_customer": true, "edit_customer": true, "delete_customer": true,
	"open": true, "show": true, "search": true,
	"overlay": true, "close_overlay": true, "back": true, "home": true,
	"gave": true, "got": true, "delete_transaction": true,
	"refresh": true, "fail_next": true,
}

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected so typos surface.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	aliases := make(map[string]bool)
	for i, step := range s.Flow {
		if !knownActions[step.Do] {
			return fmt.Errorf("flow[%d]: unknown action %q", i, step.Do)
		}
		for k, v := range step.Args {
			if name, ok := strings.CutPrefix(v, "$"); ok && !aliases[name] {
				return fmt.Errorf("flow[%d].args.%s: %s is not bound by an earlier step", i, k, v)
			}
		}
		if step.As != "" {
			aliases[step.As] = true
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a Assertion) error {
	switch a.Type {
	case AssertBalance, AssertBadge:
		if a.Customer == "" {
			return fmt.Errorf("assertions[%d]: customer is required for %s", index, a.Type)
		}
		if a.Equals == "" {
			return fmt.Errorf("assertions[%d]: equals is required for %s", index, a.Type)
		}
	case AssertScreen:
		if a.Equals == "" {
			return fmt.Errorf("assertions[%d]: equals is required for screen", index)
		}
	case AssertHistory:
		if a.Customer == "" {
			return fmt.Errorf("assertions[%d]: customer is required for history", index)
		}
	case AssertCustomers:
	case AssertTraceCount:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_count", index)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	if a.Count < 0 {
		return fmt.Errorf("assertions[%d]: count must be non-negative", index)
	}
	return nil
}
