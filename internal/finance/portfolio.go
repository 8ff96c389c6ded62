package finance

import (
	"github.com/shopspring/decimal"

	"github.com/frahmantamala/rt-lending/internal/core/datamodel/loan"
)

// LoanPortfolio aggregates the loan book for the dashboard.
type LoanPortfolio struct {
	Counts map[loan.Status]int `json:"counts"`
	Total  int                 `json:"total"`

	TotalPrincipal    int64 `json:"totalPrincipal"`
	PotentialInterest int64 `json:"potentialInterest"`

	// TotalLoaned covers money that actually left the cash box
	// (APPROVED and PAID).
	TotalLoaned       int64 `json:"totalLoaned"`
	InterestPotential int64 `json:"interestPotential"`
	PaidInterest      int64 `json:"paidInterest"`
	// Outstanding is what borrowers still owe, including loans whose
	// payment is waiting for RT confirmation.
	Outstanding int64 `json:"outstanding"`
}

func PortfolioStats(loans []loan.Loan) LoanPortfolio {
	p := LoanPortfolio{Counts: make(map[loan.Status]int, len(loan.AllStatuses()))}
	for _, s := range loan.AllStatuses() {
		p.Counts[s] = 0
	}

	potential := decimal.Zero
	loanedInterest := decimal.Zero
	paidInterest := decimal.Zero
	outstanding := decimal.Zero

	for _, l := range loans {
		p.Total++
		p.Counts[l.Status]++
		p.TotalPrincipal += l.Amount
		potential = potential.Add(Interest(l.Amount))

		switch l.Status {
		case loan.StatusApproved:
			p.TotalLoaned += l.Amount
			loanedInterest = loanedInterest.Add(Interest(l.Amount))
			outstanding = outstanding.Add(TotalDue(l.Amount))
		case loan.StatusPaymentVerifying:
			outstanding = outstanding.Add(TotalDue(l.Amount))
		case loan.StatusPaid:
			p.TotalLoaned += l.Amount
			loanedInterest = loanedInterest.Add(Interest(l.Amount))
			paidInterest = paidInterest.Add(Interest(l.Amount))
		}
	}

	p.PotentialInterest = RoundIDR(potential)
	p.InterestPotential = RoundIDR(loanedInterest)
	p.PaidInterest = RoundIDR(paidInterest)
	p.Outstanding = RoundIDR(outstanding)
	return p
}
