package loan

import (
	"github.com/frahmantamala/rt-lending/internal/core/common/validation"
	"github.com/frahmantamala/rt-lending/internal/core/datamodel/calendar"
	"github.com/frahmantamala/rt-lending/internal/core/datamodel/cashflow"
	loanDatamodel "github.com/frahmantamala/rt-lending/internal/core/datamodel/loan"
	"github.com/frahmantamala/rt-lending/internal/finance"

	errors "github.com/frahmantamala/rt-lending/internal"
)

// CreateLoanDTO represents the request payload for registering a loan
type CreateLoanDTO struct {
	BorrowerName string        `json:"borrowerName" validate:"required,max=200"`
	Amount       int64         `json:"amount" validate:"gt=0"`
	Date         calendar.Date `json:"date" validate:"required"`
}

func (dto CreateLoanDTO) Validate() *errors.AppError {
	if err := validation.ValidateStruct(dto); err != nil {
		return err
	}
	return validation.Merge(
		validation.ValidateBorrowerName(dto.BorrowerName),
		validation.ValidateAmount("amount", dto.Amount),
	)
}

// EditLoanDTO patches the fields an admin may correct. Status is changed
// only through transitions.
type EditLoanDTO struct {
	BorrowerName *string        `json:"borrowerName,omitempty" validate:"omitempty,max=200"`
	Amount       *int64         `json:"amount,omitempty" validate:"omitempty,gt=0"`
	Date         *calendar.Date `json:"date,omitempty"`
}

func (dto EditLoanDTO) Validate() *errors.AppError {
	if err := validation.ValidateStruct(dto); err != nil {
		return err
	}
	var results []*errors.AppError
	if dto.BorrowerName != nil {
		results = append(results, validation.ValidateBorrowerName(*dto.BorrowerName))
	}
	if dto.Amount != nil {
		results = append(results, validation.ValidateAmount("amount", *dto.Amount))
	}
	if dto.Date != nil {
		results = append(results, validation.ValidateDate("date", *dto.Date))
	}
	return validation.Merge(results...)
}

func (dto EditLoanDTO) IsEmpty() bool {
	return dto.BorrowerName == nil && dto.Amount == nil && dto.Date == nil
}

type TransitionDTO struct {
	Status Status        `json:"status" validate:"required"`
	Date   calendar.Date `json:"date" validate:"required"`
}

func (dto TransitionDTO) Validate() *errors.AppError {
	return validation.ValidateStruct(dto)
}

// TransitionResult carries the updated loan and the ledger row the
// transition produced, if any.
type TransitionResult struct {
	Loan      Loan                  `json:"loan"`
	Generated *cashflow.Transaction `json:"generatedTransaction,omitempty"`
}

type DeleteResult struct {
	ID                 string `json:"id"`
	LinkedTransactions int    `json:"linkedTransactions"`
	Warning            string `json:"warning,omitempty"`
}

// Filter narrows a loan listing. Zero values match everything.
type Filter struct {
	Status Status
	Year   int
	Query  string
}

type Counts struct {
	Pending   int `json:"pending"`
	Verifying int `json:"verifying"`
	Active    int `json:"active"`
}

// Queue groups loans by who has to act on them next.
type Queue struct {
	AwaitingApproval     []Loan `json:"awaitingApproval"`
	AwaitingConfirmation []Loan `json:"awaitingConfirmation"`
	Active               []Loan `json:"active"`
}

type SummaryResponse struct {
	finance.LoanPortfolio
	Years []int `json:"years"`
}

type TimelineEntry struct {
	Status Status         `json:"status"`
	Label  string         `json:"label"`
	Date   *calendar.Date `json:"date,omitempty"`
	Done   bool           `json:"done"`
}

// BorrowerLoanView is what a borrower sees for one of their loans.
type BorrowerLoanView struct {
	Loan
	StatusLabel string          `json:"statusLabel"`
	Interest    int64           `json:"interest"`
	TotalDue    int64           `json:"totalDue"`
	Timeline    []TimelineEntry `json:"timeline"`
}

func NewBorrowerLoanView(l Loan) BorrowerLoanView {
	return BorrowerLoanView{
		Loan:        l,
		StatusLabel: l.Status.Label(),
		Interest:    finance.InterestIDR(l.Amount),
		TotalDue:    finance.TotalDueIDR(l.Amount),
		Timeline:    Timeline(l),
	}
}

// Timeline lists the stages of a loan in order. A rejected loan stops after
// the rejection; otherwise every stage of the repayment path is shown.
func Timeline(l Loan) []TimelineEntry {
	submitted := l.Date
	entries := []TimelineEntry{{
		Status: loanDatamodel.StatusPending,
		Label:  loanDatamodel.StatusPending.Label(),
		Date:   &submitted,
		Done:   true,
	}}

	step := func(s Status, d *calendar.Date) TimelineEntry {
		return TimelineEntry{Status: s, Label: s.Label(), Date: d, Done: d != nil}
	}

	if l.Status == loanDatamodel.StatusRejected {
		return append(entries, step(loanDatamodel.StatusRejected, l.RejectionDate))
	}
	return append(entries,
		step(loanDatamodel.StatusApproved, l.ApprovalDate),
		step(loanDatamodel.StatusPaymentVerifying, l.PaymentAdminDate),
		step(loanDatamodel.StatusPaid, l.PaidDate),
	)
}
