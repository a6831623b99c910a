package ledger

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Kind is the direction of a value transfer.
type Kind string

const (
	// Gave is value extended to the customer. It increases the balance owed.
	Gave Kind = "GAVE"
	// Received is a payment collected from the customer. It decreases the balance owed.
	Received Kind = "RECEIVED"
)

// ParseKind accepts the canonical names plus the shop-floor aliases
// ("given", "got", "paid").
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "gave", "give", "given":
		return Gave, nil
	case "received", "receive", "got", "paid":
		return Received, nil
	default:
		return "", Validation("parse kind", fmt.Sprintf("unknown transaction kind %q", s))
	}
}

// Valid reports whether k is one of the two known kinds.
func (k Kind) Valid() bool { return k == Gave || k == Received }

// Customer is a person the owner extends credit to.
//
// Transactions is the cached copy of the remote history, kept date-descending.
type Customer struct {
	ID           string        `json:"id" yaml:"id"`
	Name         string        `json:"name" yaml:"name"`
	FatherName   string        `json:"father_name,omitempty" yaml:"father_name,omitempty"`
	City         string        `json:"city,omitempty" yaml:"city,omitempty"`
	Mobile       string        `json:"mobile,omitempty" yaml:"mobile,omitempty"`
	CreatedAt    time.Time     `json:"created_at" yaml:"created_at"`
	Transactions []Transaction `json:"transactions" yaml:"transactions"`
}

// Balance derives the customer's balance from the transactions it holds.
func (c Customer) Balance() decimal.Decimal { return Balance(c.Transactions) }

// Fields returns the editable attributes, e.g. to prefill an edit form.
func (c Customer) Fields() CustomerFields {
	return CustomerFields{Name: c.Name, FatherName: c.FatherName, City: c.City, Mobile: c.Mobile}
}

// Transaction is one immutable value-transfer event.
type Transaction struct {
	ID          string          `json:"id" yaml:"id"`
	CustomerID  string          `json:"customer_id" yaml:"customer_id"`
	Kind        Kind            `json:"kind" yaml:"kind"`
	Amount      decimal.Decimal `json:"amount" yaml:"amount"`
	Description string          `json:"description,omitempty" yaml:"description,omitempty"`
	Date        time.Time       `json:"date" yaml:"date"`
}

// Signed returns the transaction's contribution to the balance.
func (t Transaction) Signed() decimal.Decimal {
	if t.Kind == Received {
		return t.Amount.Neg()
	}
	return t.Amount
}

// Balance sums GAVE amounts and subtracts RECEIVED amounts.
func Balance(txs []Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, t := range txs {
		total = total.Add(t.Signed())
	}
	return total
}

// CustomerFields are the user-editable attributes of a customer.
type CustomerFields struct {
	Name       string `json:"name" validate:"required,max=100"`
	FatherName string `json:"father_name,omitempty" validate:"max=100"`
	City       string `json:"city,omitempty" validate:"max=60"`
	Mobile     string `json:"mobile,omitempty" validate:"omitempty,max=20"`
}

var validate = validator.New()

// Normalize trims surrounding whitespace from every field.
func (f CustomerFields) Normalize() CustomerFields {
	return CustomerFields{
		Name:       strings.TrimSpace(f.Name),
		FatherName: strings.TrimSpace(f.FatherName),
		City:       strings.TrimSpace(f.City),
		Mobile:     strings.TrimSpace(f.Mobile),
	}
}

// Validate normalizes f and checks it. The returned fields are the ones to
// send to the remote.
func (f CustomerFields) Validate() (CustomerFields, error) {
	n := f.Normalize()
	if err := validate.Struct(n); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			fe := verrs[0]
			if fe.Tag() == "required" {
				return n, Validation("validate customer", strings.ToLower(fe.Field())+" is required")
			}
			return n, Validation("validate customer", fmt.Sprintf("%s is too long", strings.ToLower(fe.Field())))
		}
		return n, Validation("validate customer", err.Error())
	}
	return n, nil
}

// NewTransaction is a transaction not yet accepted by the remote.
type NewTransaction struct {
	CustomerID  string          `json:"customer_id"`
	Kind        Kind            `json:"kind"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description,omitempty"`
}

// Validate enforces amount > 0, a known kind and a customer reference.
func (n NewTransaction) Validate() error {
	if strings.TrimSpace(n.CustomerID) == "" {
		return Validation("validate transaction", "customer id is required")
	}
	if !n.Kind.Valid() {
		return Validation("validate transaction", fmt.Sprintf("unknown transaction kind %q", n.Kind))
	}
	if !n.Amount.IsPositive() {
		return Validation("validate transaction", "amount must be positive")
	}
	return nil
}

// ParseAmount parses user input into a positive amount.
func ParseAmount(text string) (decimal.Decimal, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return decimal.Zero, Validation("parse amount", "amount is required")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, Validation("parse amount", fmt.Sprintf("%q is not a number", s))
	}
	if !d.IsPositive() {
		return decimal.Zero, Validation("parse amount", "amount must be positive")
	}
	return d, nil
}

// SortHistory orders txs date-descending, ties broken by ID descending.
// The sort is stable and in place.
func SortHistory(txs []Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		if !txs[i].Date.Equal(txs[j].Date) {
			return txs[i].Date.After(txs[j].Date)
		}
		return txs[i].ID > txs[j].ID
	})
}
