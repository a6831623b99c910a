package ledger

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// NoCity labels the group of customers without a city.
const NoCity = "NO CITY"

// CityGroup is one bucket of GroupByCity.
type CityGroup struct {
	Label     string          `json:"label"`
	Customers []Customer      `json:"customers"`
	Total     decimal.Decimal `json:"total"`
}

// FilterByName keeps customers whose name contains term, ignoring case.
// A blank term matches everyone. Input order is preserved.
func FilterByName(customers []Customer, term string) []Customer {
	out := make([]Customer, 0, len(customers))
	// Casers are stateful; one per call.
	fold := cases.Fold()
	needle := fold.String(norm.NFC.String(strings.TrimSpace(term)))
	for _, c := range customers {
		if needle == "" || strings.Contains(fold.String(norm.NFC.String(c.Name)), needle) {
			out = append(out, c)
		}
	}
	return out
}

// CityLabel returns the grouping label for a raw city value.
func CityLabel(city string) string {
	label := strings.ToUpper(strings.Join(strings.Fields(city), " "))
	if label == "" {
		return NoCity
	}
	return label
}

// GroupByCity partitions customers by upper-cased city.
//
// Groups are sorted by label with NoCity last. Within a group the input order
// is kept. Each group's Total is the sum of its members' balances.
func GroupByCity(customers []Customer) []CityGroup {
	index := make(map[string]int)
	var groups []CityGroup
	for _, c := range customers {
		label := CityLabel(c.City)
		i, ok := index[label]
		if !ok {
			i = len(groups)
			index[label] = i
			groups = append(groups, CityGroup{Label: label, Total: decimal.Zero})
		}
		groups[i].Customers = append(groups[i].Customers, c)
		groups[i].Total = groups[i].Total.Add(c.Balance())
	}

	sort.SliceStable(groups, func(i, j int) bool {
		a, b := groups[i].Label, groups[j].Label
		if (a == NoCity) != (b == NoCity) {
			return b == NoCity
		}
		return a < b
	})
	if groups == nil {
		groups = []CityGroup{}
	}
	return groups
}
