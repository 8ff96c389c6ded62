package ledger

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	errors "github.com/frahmantamala/rt-lending/internal"
	"github.com/frahmantamala/rt-lending/internal/core/datamodel/calendar"
	"github.com/frahmantamala/rt-lending/internal/core/datamodel/cashflow"
	loanDatamodel "github.com/frahmantamala/rt-lending/internal/core/datamodel/loan"
	"github.com/frahmantamala/rt-lending/internal/finance"
)

type Transaction = cashflow.Transaction

const (
	disbursementPrefix = "Pencairan Pinjaman: "
	repaymentPrefix    = "Pelunasan Pinjaman: "
)

// Rules derives ledger rows from loan transitions.
type Rules struct {
	logger *slog.Logger
	newID  func() (string, error)
}

func NewRules(logger *slog.Logger) *Rules {
	return &Rules{logger: logger, newID: NewID}
}

// NewID returns a time-ordered transaction id.
func NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate transaction id: %w", err)
	}
	return id.String(), nil
}

// ForTransition returns the row a loan's move into status should add to the
// ledger. It returns false when the status produces nothing or the row
// already exists for this loan.
func (r *Rules) ForTransition(l loanDatamodel.Loan, status loanDatamodel.Status, date calendar.Date, existing []Transaction) (*Transaction, bool, error) {
	var (
		category    cashflow.Category
		txType      cashflow.Type
		amount      int64
		description string
	)

	switch status {
	case loanDatamodel.StatusApproved:
		category, txType = cashflow.CategoryLoanDisbursement, cashflow.TypeExpense
		amount = l.Amount
		description = disbursementPrefix + l.BorrowerName
	case loanDatamodel.StatusPaymentVerifying:
		category, txType = cashflow.CategoryLoanRepayment, cashflow.TypeIncome
		amount = finance.TotalDueIDR(l.Amount)
		description = repaymentPrefix + l.BorrowerName
	default:
		return nil, false, nil
	}

	if HasEntry(existing, l.ID, category) {
		r.logger.Debug("ledger row already present, skipping",
			"loan_id", l.ID,
			"category", category)
		return nil, false, nil
	}

	id, err := r.newID()
	if err != nil {
		return nil, false, err
	}

	return &Transaction{
		ID:            id,
		Date:          date,
		Description:   description,
		Amount:        amount,
		Type:          txType,
		Category:      category,
		RelatedLoanID: l.ID,
	}, true, nil
}

// HasEntry reports whether a row of the category already exists for loanID.
func HasEntry(txns []Transaction, loanID string, category cashflow.Category) bool {
	for _, t := range txns {
		if t.Category == category && t.RelatedLoanID == loanID {
			return true
		}
	}
	return false
}

// Linked returns the rows that reference loanID.
func Linked(txns []Transaction, loanID string) []Transaction {
	var out []Transaction
	for _, t := range txns {
		if t.RelatedLoanID != "" && t.RelatedLoanID == loanID {
			out = append(out, t)
		}
	}
	return out
}

// ValidateTransaction checks a full row before it enters the ledger.
func ValidateTransaction(t Transaction) *errors.AppError {
	var details []errors.ValidationError

	if t.Amount <= 0 {
		details = append(details, errors.ValidationError{Field: "amount", Message: "amount must be greater than 0", Code: string(errors.ErrCodeInvalidAmount)})
	}
	if t.Date.IsZero() {
		details = append(details, errors.ValidationError{Field: "date", Message: "date is required", Code: string(errors.ErrCodeInvalidDate)})
	}
	if !t.Type.Valid() {
		details = append(details, errors.ValidationError{Field: "type", Message: fmt.Sprintf("unknown type %q", t.Type), Code: string(errors.ErrCodeInvalidType)})
	}
	if !t.Category.Valid() {
		details = append(details, errors.ValidationError{Field: "category", Message: fmt.Sprintf("unknown category %q", t.Category), Code: string(errors.ErrCodeInvalidCategory)})
	}
	if t.Category.IsLoanRelated() && t.RelatedLoanID == "" {
		details = append(details, errors.ValidationError{Field: "relatedLoanId", Message: "loan rows must reference a loan", Code: string(errors.ErrCodeMissingLoanLink)})
	}

	if len(details) > 0 {
		return errors.NewValidationError("Validation failed", errors.ErrCodeValidationFailed).
			WithDetails(errors.ValidationErrors{Errors: details})
	}
	return nil
}
