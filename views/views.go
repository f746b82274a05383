// Package views derives dashboard projections from a transaction list.
//
// Every function is pure: the input slice is never modified and the same
// arguments always produce the same result.
package views

import (
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/goliatone/go-expense-ledger/domain"
)

// FilterByDateFrom keeps the transactions dated strictly after cutoff.
func FilterByDateFrom(list []domain.Transaction, cutoff time.Time) []domain.Transaction {
	return filter(list, func(tx domain.Transaction) bool {
		return tx.Date.After(cutoff)
	})
}

// FilterByField keeps the transactions whose field id contains fieldID.
// An empty fieldID keeps everything; a transaction without a field only
// matches the empty filter.
func FilterByField(list []domain.Transaction, fieldID string) []domain.Transaction {
	return filter(list, func(tx domain.Transaction) bool {
		return strings.Contains(tx.FieldID, fieldID)
	})
}

// Partition holds the income and expense subsets of a list.
type Partition struct {
	Income  []domain.Transaction
	Expense []domain.Transaction
}

// PartitionByType splits list by transaction type, keeping order. Entries
// with an unknown type land in neither subset.
func PartitionByType(list []domain.Transaction) Partition {
	p := Partition{
		Income:  []domain.Transaction{},
		Expense: []domain.Transaction{},
	}
	for _, tx := range list {
		switch tx.Type {
		case domain.Income:
			p.Income = append(p.Income, tx)
		case domain.Expense:
			p.Expense = append(p.Expense, tx)
		}
	}
	return p
}

// SumPrice totals the prices of list. An empty list sums to zero.
func SumPrice(list []domain.Transaction) float64 {
	var total float64
	for _, tx := range list {
		total += tx.Price
	}
	return total
}

// SortByDateDesc returns a copy of list ordered newest first. Equal dates
// keep their input order.
func SortByDateDesc(list []domain.Transaction) []domain.Transaction {
	out := slices.Clone(list)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date)
	})
	return out
}

// FieldName resolves a field id to its name, or "" when it is unknown.
func FieldName(fields []domain.Field, id string) string {
	if id == "" {
		return ""
	}
	for _, f := range fields {
		if f.FieldID == id {
			return f.Name
		}
	}
	return ""
}

func filter(list []domain.Transaction, keep func(domain.Transaction) bool) []domain.Transaction {
	out := make([]domain.Transaction, 0, len(list))
	for _, tx := range list {
		if keep(tx) {
			out = append(out, tx)
		}
	}
	return out
}
