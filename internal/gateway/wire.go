package gateway

import (
	"github.com/shopspring/decimal"

	"github.com/roach88/khata/internal/ledger"
)

// CustomerDTO is a customer as sent over the REST API.
//
// Balance is informational. Clients recompute it from Transactions.
type CustomerDTO struct {
	ledger.Customer
	Balance decimal.Decimal `json:"balance"`
}

// NewCustomerDTO attaches the derived balance to c.
func NewCustomerDTO(c ledger.Customer) CustomerDTO {
	if c.Transactions == nil {
		c.Transactions = []ledger.Transaction{}
	}
	return CustomerDTO{Customer: c, Balance: c.Balance()}
}

// TransactionRequest is the body of POST /api/customers/:id/transactions.
type TransactionRequest struct {
	Kind        ledger.Kind     `json:"kind" validate:"required,oneof=GAVE RECEIVED"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description,omitempty" validate:"max=200"`
}

// AuthRequest is the body of POST /api/auth.
type AuthRequest struct {
	PIN string `json:"pin" validate:"required"`
}

// AuthResponse answers POST /api/auth.
type AuthResponse struct {
	OK bool `json:"ok"`
}

// Problem is an RFC 9457 problem details body.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

// ProblemContentType is the media type of Problem bodies.
const ProblemContentType = "application/problem+json"
