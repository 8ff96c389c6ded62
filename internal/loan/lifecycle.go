package loan

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	errors "github.com/frahmantamala/rt-lending/internal"
	"github.com/frahmantamala/rt-lending/internal/core/datamodel/calendar"
	loanDatamodel "github.com/frahmantamala/rt-lending/internal/core/datamodel/loan"
	"github.com/frahmantamala/rt-lending/internal/core/user"
)

type (
	Loan   = loanDatamodel.Loan
	Status = loanDatamodel.Status
)

// legalEdges is the only place the loan state machine is defined.
// REJECTED and PAID have no outgoing edges.
var legalEdges = map[Status][]Status{
	loanDatamodel.StatusPending:          {loanDatamodel.StatusApproved, loanDatamodel.StatusRejected},
	loanDatamodel.StatusApproved:         {loanDatamodel.StatusPaymentVerifying},
	loanDatamodel.StatusPaymentVerifying: {loanDatamodel.StatusPaid},
}

// transitionPermission says which permission a caller needs to move a loan
// into the given status.
var transitionPermission = map[Status]string{
	loanDatamodel.StatusApproved:         user.PermissionApproveLoans,
	loanDatamodel.StatusRejected:         user.PermissionRejectLoans,
	loanDatamodel.StatusPaymentVerifying: user.PermissionReceivePayment,
	loanDatamodel.StatusPaid:             user.PermissionConfirmPayment,
}

// NextStatuses lists the statuses reachable from current.
func NextStatuses(current Status) []Status {
	next := legalEdges[current]
	out := make([]Status, len(next))
	copy(out, next)
	return out
}

func IsTerminal(s Status) bool {
	return len(legalEdges[s]) == 0
}

// Transition validates a move from current to requested and returns the new
// status, or ErrIllegalTransition.
func Transition(current, requested Status) (Status, error) {
	if !requested.Valid() {
		return current, errors.NewValidationFieldError("status", fmt.Sprintf("unknown status %q", requested), errors.ErrCodeInvalidStatus)
	}
	for _, next := range legalEdges[current] {
		if next == requested {
			return requested, nil
		}
	}
	return current, errors.ErrIllegalTransition.WithMessage(
		fmt.Sprintf("cannot move loan from %s to %s", current, requested))
}

// CanTransition reports whether role may request the given target status.
func CanTransition(role user.Role, requested Status) bool {
	perm, ok := transitionPermission[requested]
	if !ok {
		return false
	}
	return role.HasPermission(perm)
}

// Apply moves l to requested and stamps the matching date field. Dates of
// earlier stages are kept.
func Apply(l *Loan, requested Status, effective calendar.Date) error {
	if effective.IsZero() {
		return errors.NewValidationFieldError("date", "date is required", errors.ErrCodeInvalidDate)
	}
	next, err := Transition(l.Status, requested)
	if err != nil {
		return err
	}

	l.Status = next
	d := effective.Ptr()
	switch next {
	case loanDatamodel.StatusApproved:
		l.ApprovalDate = d
	case loanDatamodel.StatusRejected:
		l.RejectionDate = d
	case loanDatamodel.StatusPaymentVerifying:
		l.PaymentAdminDate = d
	case loanDatamodel.StatusPaid:
		l.PaidDate = d
	}
	return nil
}

// CheckConsistency verifies that the populated date fields match the stages
// the loan has been through.
func CheckConsistency(l Loan) error {
	has := func(d *calendar.Date) bool { return d != nil && !d.IsZero() }

	var want struct{ approval, rejection, payment, paid bool }
	switch l.Status {
	case loanDatamodel.StatusPending:
	case loanDatamodel.StatusRejected:
		want.rejection = true
	case loanDatamodel.StatusApproved:
		want.approval = true
	case loanDatamodel.StatusPaymentVerifying:
		want.approval, want.payment = true, true
	case loanDatamodel.StatusPaid:
		want.approval, want.payment, want.paid = true, true, true
	default:
		return errors.NewConflictError(fmt.Sprintf("loan %s has unknown status %q", l.ID, l.Status), errors.ErrCodeInconsistentLoan)
	}

	var problems []string
	check := func(field string, set, expected bool) {
		if set != expected {
			if expected {
				problems = append(problems, field+" missing")
			} else {
				problems = append(problems, field+" unexpected")
			}
		}
	}
	check("approvalDate", has(l.ApprovalDate), want.approval)
	check("rejectionDate", has(l.RejectionDate), want.rejection)
	check("paymentAdminDate", has(l.PaymentAdminDate), want.payment)
	check("paidDate", has(l.PaidDate), want.paid)

	if len(problems) > 0 {
		return errors.NewConflictError(
			fmt.Sprintf("loan %s in status %s: %s", l.ID, l.Status, strings.Join(problems, ", ")),
			errors.ErrCodeInconsistentLoan)
	}
	return nil
}

// New creates a PENDING loan with a time-ordered id.
func New(borrower string, principal int64, submitted calendar.Date) (Loan, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return Loan{}, fmt.Errorf("generate loan id: %w", err)
	}
	return Loan{
		ID:           id.String(),
		BorrowerName: strings.TrimSpace(borrower),
		Amount:       principal,
		Date:         submitted,
		Status:       loanDatamodel.StatusPending,
	}, nil
}
