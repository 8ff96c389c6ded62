package finance

import (
	"github.com/shopspring/decimal"

	"github.com/frahmantamala/rt-lending/internal/core/datamodel/cashflow"
)

// CashSummary is derived from the ledger on demand and never stored.
type CashSummary struct {
	InitialBalance int64 `json:"initialBalance"`
	GrossIncome    int64 `json:"grossIncome"`
	GrossExpense   int64 `json:"grossExpense"`

	ManualIncome       int64 `json:"manualIncome"`
	ManualExpense      int64 `json:"manualExpense"`
	LoanRepayments     int64 `json:"loanRepayments"`
	LoanDisbursements  int64 `json:"loanDisbursements"`
	RepaymentPrincipal int64 `json:"repaymentPrincipal"`
	RepaymentInterest  int64 `json:"repaymentInterest"`

	// ReportedIncome counts only the interest part of repayments so that
	// returned capital is not reported as income.
	ReportedIncome int64 `json:"reportedIncome"`
	// PhysicalBalance is the cash that should be on hand.
	PhysicalBalance int64 `json:"physicalBalance"`
	CurrentBalance  int64 `json:"currentBalance"`

	TransactionCount int `json:"transactionCount"`
}

// Summarize folds the ledger into a CashSummary. Repayment splits are summed
// as decimals and rounded once.
func Summarize(txns []cashflow.Transaction) CashSummary {
	var s CashSummary
	repPrincipal := decimal.Zero
	repInterest := decimal.Zero

	for _, t := range txns {
		s.TransactionCount++

		if t.Category == cashflow.CategoryInitialBalance {
			s.InitialBalance += t.Amount
			continue
		}

		switch t.Type {
		case cashflow.TypeIncome:
			s.GrossIncome += t.Amount
			switch t.Category {
			case cashflow.CategoryManual:
				s.ManualIncome += t.Amount
			case cashflow.CategoryLoanRepayment:
				s.LoanRepayments += t.Amount
				split := InverseSplit(t.Amount)
				repPrincipal = repPrincipal.Add(split.Principal)
				repInterest = repInterest.Add(split.Interest)
			}
		case cashflow.TypeExpense:
			s.GrossExpense += t.Amount
			switch t.Category {
			case cashflow.CategoryManual:
				s.ManualExpense += t.Amount
			case cashflow.CategoryLoanDisbursement:
				s.LoanDisbursements += t.Amount
			}
		}
	}

	s.RepaymentPrincipal = RoundIDR(repPrincipal)
	s.RepaymentInterest = RoundIDR(repInterest)
	s.ReportedIncome = s.InitialBalance + s.ManualIncome + s.RepaymentInterest
	s.PhysicalBalance = s.InitialBalance + s.ManualIncome + s.LoanRepayments - s.GrossExpense
	s.CurrentBalance = s.InitialBalance + s.GrossIncome - s.GrossExpense
	return s
}
