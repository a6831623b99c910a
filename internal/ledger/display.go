package ledger

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Standing tells which side owes.
type Standing int

const (
	// ToReceive: balance ≥ 0, the customer owes the owner.
	ToReceive Standing = iota
	// ToPay: balance < 0, the owner holds an advance.
	ToPay
)

func (s Standing) String() string {
	if s == ToPay {
		return "to pay"
	}
	return "to receive"
}

// StandingOf applies the sign convention. Zero is "to receive".
func StandingOf(balance decimal.Decimal) Standing {
	if balance.IsNegative() {
		return ToPay
	}
	return ToReceive
}

// BalanceLabel is a balance ready to render: a standing plus a magnitude.
type BalanceLabel struct {
	Standing Standing `json:"-"`
	Tag      string   `json:"standing"`
	Amount   string   `json:"amount"`
}

// String renders "to receive, ₹0".
func (l BalanceLabel) String() string { return l.Tag + ", " + l.Amount }

// Formatter renders amounts in the configured currency. Magnitudes only; a
// negative literal is never produced.
type Formatter struct {
	grapheme string
	template string
	fraction int
}

// DefaultCurrency is used when no currency code is configured.
const DefaultCurrency = "INR"

// NewFormatter looks up the currency in go-money's table. Unknown codes
// render with the code itself as prefix.
func NewFormatter(code string) Formatter {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		code = DefaultCurrency
	}
	cur := money.GetCurrency(code)
	if cur == nil {
		return Formatter{grapheme: code + " ", template: "$1", fraction: 2}
	}
	tpl := cur.Template
	if tpl == "" {
		tpl = "$1"
	}
	return Formatter{grapheme: cur.Grapheme, template: tpl, fraction: cur.Fraction}
}

// Amount formats the magnitude of d: "₹150", "₹150.50".
func (f Formatter) Amount(d decimal.Decimal) string {
	abs := d.Abs()
	num := abs.String()
	if !abs.Equal(abs.Truncate(0)) {
		num = abs.StringFixed(int32(f.fraction))
	}
	out := strings.Replace(f.template, "1", num, 1)
	return strings.Replace(out, "$", f.grapheme, 1)
}

// Describe labels a balance with its standing.
func (f Formatter) Describe(balance decimal.Decimal) BalanceLabel {
	st := StandingOf(balance)
	return BalanceLabel{Standing: st, Tag: st.String(), Amount: f.Amount(balance)}
}

// Badge is the compact list form: "₹300" when owed, "₹150 Adv" for an advance.
func (f Formatter) Badge(balance decimal.Decimal) string {
	if StandingOf(balance) == ToPay {
		return f.Amount(balance) + " Adv"
	}
	return f.Amount(balance)
}
