package views

import (
	"sort"
	"time"

	"github.com/goliatone/go-expense-ledger/domain"
)

// Filter selects the transactions shown on a dashboard.
type Filter struct {
	From    time.Time
	FieldID string
}

// FilterFor builds the filter for a period preset evaluated at now.
func FilterFor(p Period, fieldID string, now time.Time) Filter {
	return Filter{From: p.Cutoff(now), FieldID: fieldID}
}

// Apply runs the date filter then the field filter.
func (f Filter) Apply(list []domain.Transaction) []domain.Transaction {
	return FilterByField(FilterByDateFrom(list, f.From), f.FieldID)
}

// Summary is the dashboard projection of a filtered list.
type Summary struct {
	Transactions []domain.Transaction `json:"transactions"`
	Income       []domain.Transaction `json:"income"`
	Expense      []domain.Transaction `json:"expense"`
	IncomeTotal  float64              `json:"incomeTotal"`
	ExpenseTotal float64              `json:"expenseTotal"`
	Net          float64              `json:"net"`
}

// Summarize filters list and totals each type.
func Summarize(list []domain.Transaction, f Filter) Summary {
	filtered := f.Apply(list)
	parts := PartitionByType(filtered)
	s := Summary{
		Transactions: filtered,
		Income:       parts.Income,
		Expense:      parts.Expense,
		IncomeTotal:  SumPrice(parts.Income),
		ExpenseTotal: SumPrice(parts.Expense),
	}
	s.Net = s.IncomeTotal - s.ExpenseTotal
	return s
}

// FieldTotal aggregates the transactions of one field.
type FieldTotal struct {
	FieldID string  `json:"fieldId"`
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
	Count   int     `json:"count"`
}

// GroupByField totals list per field id, ordered by field id. Transactions
// without a field are grouped under "".
func GroupByField(list []domain.Transaction) []FieldTotal {
	byID := map[string]*FieldTotal{}
	for _, tx := range list {
		ft, ok := byID[tx.FieldID]
		if !ok {
			ft = &FieldTotal{FieldID: tx.FieldID}
			byID[tx.FieldID] = ft
		}
		ft.Count++
		switch tx.Type {
		case domain.Income:
			ft.Income += tx.Price
		case domain.Expense:
			ft.Expense += tx.Price
		}
	}

	out := make([]FieldTotal, 0, len(byID))
	for _, ft := range byID {
		out = append(out, *ft)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].FieldID < out[j].FieldID
	})
	return out
}
