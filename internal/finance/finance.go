// Package finance holds the pure money formulas of the lending program.
//
// Amounts on records are whole rupiah (int64). Intermediate results use
// decimal so nothing is lost before the single rounding step. The rounding
// policy is half-up to the nearest rupiah, applied only when a figure is
// written to a ledger row or reported as an integer.
package finance

import (
	"github.com/shopspring/decimal"
)

var (
	// InterestRate is the flat, non-compounding rate charged on every loan.
	InterestRate = decimal.RequireFromString("0.20")

	dueFactor = decimal.NewFromInt(1).Add(InterestRate)
)

// Interest returns principal × 0.20 exactly.
func Interest(principal int64) decimal.Decimal {
	return decimal.NewFromInt(principal).Mul(InterestRate)
}

// TotalDue returns principal plus interest exactly.
func TotalDue(principal int64) decimal.Decimal {
	return decimal.NewFromInt(principal).Add(Interest(principal))
}

// RoundIDR rounds half away from zero to whole rupiah.
func RoundIDR(d decimal.Decimal) int64 {
	return d.Round(0).IntPart()
}

func InterestIDR(principal int64) int64 {
	return RoundIDR(Interest(principal))
}

func TotalDueIDR(principal int64) int64 {
	return RoundIDR(TotalDue(principal))
}

// Split is a repayment total broken into principal and interest.
type Split struct {
	Principal decimal.Decimal `json:"principal"`
	Interest  decimal.Decimal `json:"interest"`
}

// InverseSplit recovers principal and interest from a repayment total by
// dividing by 1.2. Only exact when total came from TotalDue; manually
// entered repayment rows get a fabricated split.
func InverseSplit(total int64) Split {
	t := decimal.NewFromInt(total)
	principal := t.DivRound(dueFactor, 8)
	return Split{
		Principal: principal,
		Interest:  t.Sub(principal),
	}
}
