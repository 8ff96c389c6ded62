package store

import (
	"sort"
	"strings"

	"github.com/frahmantamala/rt-lending/internal/core/datamodel/calendar"
	"github.com/frahmantamala/rt-lending/internal/core/datamodel/cashflow"
	loanDatamodel "github.com/frahmantamala/rt-lending/internal/core/datamodel/loan"
	"github.com/frahmantamala/rt-lending/internal/ledger"
	"github.com/frahmantamala/rt-lending/internal/loan"
)

func matchLoan(l loanDatamodel.Loan, f loan.Filter) bool {
	if f.Status != "" && l.Status != f.Status {
		return false
	}
	if f.Year != 0 && l.Date.Year != f.Year {
		return false
	}
	if f.Query != "" && !strings.Contains(strings.ToLower(l.BorrowerName), strings.ToLower(f.Query)) {
		return false
	}
	return true
}

func matchTransaction(t cashflow.Transaction, f ledger.Filter) bool {
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	if f.Category != "" && t.Category != f.Category {
		return false
	}
	if f.Year != 0 && t.Date.Year != f.Year {
		return false
	}
	if f.LoanID != "" && t.RelatedLoanID != f.LoanID {
		return false
	}
	return true
}

func sortByDateDesc(txns []cashflow.Transaction) {
	sort.SliceStable(txns, func(i, j int) bool {
		return txns[i].Date.After(txns[j].Date)
	})
}

// yearsOf returns the distinct years present, newest first.
func yearsOf(dates []calendar.Date) []int {
	seen := make(map[int]struct{})
	years := make([]int, 0)
	for _, d := range dates {
		if d.IsZero() {
			continue
		}
		if _, ok := seen[d.Year]; ok {
			continue
		}
		seen[d.Year] = struct{}{}
		years = append(years, d.Year)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years
}

func cloneLoans(in []loanDatamodel.Loan) []loanDatamodel.Loan {
	if in == nil {
		return []loanDatamodel.Loan{}
	}
	out := make([]loanDatamodel.Loan, len(in))
	for i, l := range in {
		out[i] = l.Clone()
	}
	return out
}

func cloneTransactions(in []cashflow.Transaction) []cashflow.Transaction {
	out := make([]cashflow.Transaction, len(in))
	copy(out, in)
	return out
}
