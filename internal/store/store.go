// Package store owns the in-memory loan book and cash ledger. All mutation
// goes through its methods; every change is announced on the event bus after
// it has been applied.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	errors "github.com/frahmantamala/rt-lending/internal"
	"github.com/frahmantamala/rt-lending/internal/core/datamodel/calendar"
	"github.com/frahmantamala/rt-lending/internal/core/datamodel/cashflow"
	loanDatamodel "github.com/frahmantamala/rt-lending/internal/core/datamodel/loan"
	"github.com/frahmantamala/rt-lending/internal/core/events"
	"github.com/frahmantamala/rt-lending/internal/core/user"
	"github.com/frahmantamala/rt-lending/internal/ledger"
	"github.com/frahmantamala/rt-lending/internal/loan"
)

const initialBalanceDescription = "Saldo Awal Kas RT"

// Publisher receives change events. Implementations must not block.
type Publisher interface {
	PublishSync(ctx context.Context, event events.Event) error
}

type Store struct {
	mu    sync.RWMutex
	loans []loanDatamodel.Loan
	txns  []cashflow.Transaction

	rules     *ledger.Rules
	publisher Publisher
	logger    *slog.Logger
}

func New(initial Snapshot, publisher Publisher, logger *slog.Logger) *Store {
	s := &Store{
		rules:     ledger.NewRules(logger),
		publisher: publisher,
		logger:    logger,
	}
	s.loans = cloneLoans(initial.Loans)
	s.txns = cloneTransactions(initial.Transactions)
	return s
}

// ----------------- LOANS -----------------

func (s *Store) CreateLoan(ctx context.Context, role user.Role, dto loan.CreateLoanDTO) (*loanDatamodel.Loan, error) {
	if !role.HasPermission(user.PermissionManageLoans) {
		return nil, errors.ErrForbiddenRole
	}
	if verr := dto.Validate(); verr != nil {
		return nil, verr
	}

	l, err := loan.New(dto.BorrowerName, dto.Amount, dto.Date)
	if err != nil {
		return nil, errors.NewInternalError("failed to create loan", err)
	}

	created := l.Clone()

	s.mu.Lock()
	s.loans = append([]loanDatamodel.Loan{l}, s.loans...)
	s.publish(ctx, events.NewChangeEvent(events.ActionCreateLoan, l.ID, created))
	s.mu.Unlock()

	s.logger.Info("loan created",
		"loan_id", l.ID,
		"borrower", l.BorrowerName,
		"amount", l.Amount)
	return &created, nil
}

func (s *Store) EditLoan(ctx context.Context, role user.Role, id string, dto loan.EditLoanDTO) (*loanDatamodel.Loan, error) {
	if !role.HasPermission(user.PermissionManageLoans) {
		return nil, errors.ErrForbiddenRole
	}
	if dto.IsEmpty() {
		return nil, errors.NewValidationError("nothing to update", errors.ErrCodeValidationFailed)
	}
	if verr := dto.Validate(); verr != nil {
		return nil, verr
	}

	s.mu.Lock()
	idx := s.loanIndex(id)
	if idx < 0 {
		s.mu.Unlock()
		return nil, errors.ErrLoanNotFound
	}
	l := &s.loans[idx]
	if dto.BorrowerName != nil {
		l.BorrowerName = strings.TrimSpace(*dto.BorrowerName)
	}
	if dto.Amount != nil {
		l.Amount = *dto.Amount
	}
	if dto.Date != nil {
		l.Date = *dto.Date
	}
	updated := l.Clone()
	s.publish(ctx, events.NewChangeEvent(events.ActionUpdateLoan, id, updated))
	s.mu.Unlock()

	s.logger.Info("loan edited", "loan_id", id)
	return &updated, nil
}

// TransitionLoan moves a loan to status and applies the ledger rules in the
// same critical section, so a disbursement or repayment row is never missed
// or duplicated.
func (s *Store) TransitionLoan(ctx context.Context, role user.Role, id string, status loanDatamodel.Status, date calendar.Date) (*loan.TransitionResult, error) {
	if !status.Valid() || status == loanDatamodel.StatusPending {
		return nil, errors.NewValidationFieldError("status", fmt.Sprintf("cannot request status %q", status), errors.ErrCodeInvalidStatus)
	}
	if !loan.CanTransition(role, status) {
		return nil, errors.ErrForbiddenRole
	}

	s.mu.Lock()
	idx := s.loanIndex(id)
	if idx < 0 {
		s.mu.Unlock()
		return nil, errors.ErrLoanNotFound
	}

	next := s.loans[idx].Clone()
	if err := loan.Apply(&next, status, date); err != nil {
		s.mu.Unlock()
		return nil, err
	}

	generated, ok, err := s.rules.ForTransition(next, status, date, s.txns)
	if err != nil {
		s.mu.Unlock()
		return nil, errors.NewInternalError("failed to derive ledger row", err)
	}

	s.loans[idx] = next
	result := &loan.TransitionResult{Loan: next.Clone()}
	if ok {
		s.txns = append([]cashflow.Transaction{*generated}, s.txns...)
		row := *generated
		result.Generated = &row
	}
	s.publish(ctx, events.NewChangeEvent(events.ActionUpdateLoan, id, result.Loan.Clone()))
	if result.Generated != nil {
		s.publish(ctx, events.NewChangeEvent(events.ActionCreateTransaction, result.Generated.ID, *result.Generated))
	}
	s.mu.Unlock()

	s.logger.Info("loan status changed",
		"loan_id", id,
		"status", status,
		"date", date.String(),
		"ledger_row", ok)
	return result, nil
}

// DeleteLoan removes the loan only. Linked ledger rows stay and are reported
// back so the caller can warn about them.
func (s *Store) DeleteLoan(ctx context.Context, role user.Role, id string) (loan.DeleteResult, error) {
	if !role.HasPermission(user.PermissionManageLoans) {
		return loan.DeleteResult{}, errors.ErrForbiddenRole
	}

	s.mu.Lock()
	idx := s.loanIndex(id)
	if idx < 0 {
		s.mu.Unlock()
		return loan.DeleteResult{}, errors.ErrLoanNotFound
	}
	s.loans = append(s.loans[:idx], s.loans[idx+1:]...)
	linked := len(ledger.Linked(s.txns, id))
	s.publish(ctx, events.NewChangeEvent(events.ActionDeleteLoan, id, nil))
	s.mu.Unlock()

	result := loan.DeleteResult{ID: id, LinkedTransactions: linked}
	if linked > 0 {
		result.Warning = fmt.Sprintf("%d ledger transaction(s) still reference this loan and were kept", linked)
		s.logger.Warn("deleted loan leaves orphaned ledger rows", "loan_id", id, "rows", linked)
	}
	return result, nil
}

func (s *Store) Loan(id string) (*loanDatamodel.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.loanIndex(id)
	if idx < 0 {
		return nil, errors.ErrLoanNotFound
	}
	l := s.loans[idx].Clone()
	return &l, nil
}

// Loans lists loans newest first.
func (s *Store) Loans(filter loan.Filter) []loanDatamodel.Loan {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]loanDatamodel.Loan, 0, len(s.loans))
	for _, l := range s.loans {
		if matchLoan(l, filter) {
			out = append(out, l.Clone())
		}
	}
	return out
}

// BorrowerLoans matches the borrower name ignoring case and surrounding
// spaces.
func (s *Store) BorrowerLoans(name string) []loanDatamodel.Loan {
	name = strings.TrimSpace(name)
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]loanDatamodel.Loan, 0)
	for _, l := range s.loans {
		if strings.EqualFold(strings.TrimSpace(l.BorrowerName), name) {
			out = append(out, l.Clone())
		}
	}
	return out
}

func (s *Store) LoanYears() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dates := make([]calendar.Date, 0, len(s.loans))
	for _, l := range s.loans {
		dates = append(dates, l.Date)
	}
	return yearsOf(dates)
}

func (s *Store) Counts() loan.Counts {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var c loan.Counts
	for _, l := range s.loans {
		switch l.Status {
		case loanDatamodel.StatusPending:
			c.Pending++
		case loanDatamodel.StatusPaymentVerifying:
			c.Verifying++
		case loanDatamodel.StatusApproved:
			c.Active++
		}
	}
	return c
}

// ----------------- LEDGER -----------------

func (s *Store) AddTransaction(ctx context.Context, role user.Role, dto ledger.AddTransactionDTO) (*cashflow.Transaction, error) {
	if !role.HasPermission(user.PermissionManageCash) {
		return nil, errors.ErrForbiddenRole
	}
	t, err := newTransaction(dto)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.insertTransaction(ctx, t)
	s.mu.Unlock()

	s.logger.Info("transaction recorded",
		"transaction_id", t.ID,
		"type", t.Type,
		"category", t.Category,
		"amount", t.Amount)
	return &t, nil
}

func newTransaction(dto ledger.AddTransactionDTO) (cashflow.Transaction, error) {
	if verr := dto.Validate(); verr != nil {
		return cashflow.Transaction{}, verr
	}

	category := dto.Category
	if category == "" {
		category = cashflow.CategoryManual
	}

	id, err := ledger.NewID()
	if err != nil {
		return cashflow.Transaction{}, errors.NewInternalError("failed to create transaction", err)
	}
	t := cashflow.Transaction{
		ID:          id,
		Date:        dto.Date,
		Description: strings.TrimSpace(dto.Description),
		Amount:      dto.Amount,
		Type:        dto.Type,
		Category:    category,
	}
	if verr := ledger.ValidateTransaction(t); verr != nil {
		return cashflow.Transaction{}, verr
	}
	return t, nil
}

// insertTransaction must be called with s.mu held.
func (s *Store) insertTransaction(ctx context.Context, t cashflow.Transaction) {
	s.txns = append([]cashflow.Transaction{t}, s.txns...)
	s.publish(ctx, events.NewChangeEvent(events.ActionCreateTransaction, t.ID, t))
}

// SetInitialBalance edits the existing INITIAL_BALANCE row, or adds one when
// the ledger has none.
func (s *Store) SetInitialBalance(ctx context.Context, role user.Role, dto ledger.InitialBalanceDTO) (*cashflow.Transaction, error) {
	if !role.HasPermission(user.PermissionManageCash) {
		return nil, errors.ErrForbiddenRole
	}
	if verr := dto.Validate(); verr != nil {
		return nil, verr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.txns {
		if s.txns[i].Category != cashflow.CategoryInitialBalance {
			continue
		}
		s.txns[i].Amount = dto.Amount
		s.txns[i].Date = dto.Date
		updated := s.txns[i]
		s.publish(ctx, events.NewChangeEvent(events.ActionUpdateTransaction, updated.ID, updated))

		s.logger.Info("initial balance updated", "transaction_id", updated.ID, "amount", updated.Amount)
		return &updated, nil
	}

	t, err := newTransaction(ledger.AddTransactionDTO{
		Date:        dto.Date,
		Description: initialBalanceDescription,
		Amount:      dto.Amount,
		Type:        cashflow.TypeIncome,
		Category:    cashflow.CategoryInitialBalance,
	})
	if err != nil {
		return nil, err
	}
	s.insertTransaction(ctx, t)

	s.logger.Info("initial balance recorded", "transaction_id", t.ID, "amount", t.Amount)
	return &t, nil
}

func (s *Store) EditTransaction(ctx context.Context, role user.Role, id string, dto ledger.EditTransactionDTO) (*cashflow.Transaction, error) {
	if !role.HasPermission(user.PermissionManageCash) {
		return nil, errors.ErrForbiddenRole
	}
	if dto.IsEmpty() {
		return nil, errors.NewValidationError("nothing to update", errors.ErrCodeValidationFailed)
	}
	if verr := dto.Validate(); verr != nil {
		return nil, verr
	}

	s.mu.Lock()
	idx := s.txnIndex(id)
	if idx < 0 {
		s.mu.Unlock()
		return nil, errors.ErrTransactionNotFound
	}
	t := &s.txns[idx]
	if dto.Description != nil {
		t.Description = strings.TrimSpace(*dto.Description)
	}
	if dto.Amount != nil {
		t.Amount = *dto.Amount
	}
	if dto.Date != nil {
		t.Date = *dto.Date
	}
	updated := *t
	s.publish(ctx, events.NewChangeEvent(events.ActionUpdateTransaction, id, updated))
	s.mu.Unlock()

	s.logger.Info("transaction edited", "transaction_id", id)
	return &updated, nil
}

func (s *Store) DeleteTransaction(ctx context.Context, role user.Role, id string) error {
	if !role.HasPermission(user.PermissionManageCash) {
		return errors.ErrForbiddenRole
	}

	s.mu.Lock()
	idx := s.txnIndex(id)
	if idx < 0 {
		s.mu.Unlock()
		return errors.ErrTransactionNotFound
	}
	s.txns = append(s.txns[:idx], s.txns[idx+1:]...)
	s.publish(ctx, events.NewChangeEvent(events.ActionDeleteTransaction, id, nil))
	s.mu.Unlock()

	s.logger.Info("transaction deleted", "transaction_id", id)
	return nil
}

// Transactions lists rows by date, newest first. Rows on the same day keep
// their insertion order.
func (s *Store) Transactions(filter ledger.Filter) []cashflow.Transaction {
	s.mu.RLock()
	out := make([]cashflow.Transaction, 0, len(s.txns))
	for _, t := range s.txns {
		if matchTransaction(t, filter) {
			out = append(out, t)
		}
	}
	s.mu.RUnlock()

	sortByDateDesc(out)
	return out
}

func (s *Store) TransactionYears() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dates := make([]calendar.Date, 0, len(s.txns))
	for _, t := range s.txns {
		dates = append(dates, t.Date)
	}
	return yearsOf(dates)
}

// ----------------- BULK -----------------

// Replace swaps in data fetched from an external source. A nil slice means
// the source did not provide that collection and local data is kept. No
// change events are published.
func (s *Store) Replace(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if snap.Loans != nil {
		s.loans = cloneLoans(snap.Loans)
	}
	if snap.Transactions != nil {
		s.txns = cloneTransactions(snap.Transactions)
	}

	s.logger.Info("store replaced from snapshot",
		"loans", len(s.loans),
		"transactions", len(s.txns),
		"loans_replaced", snap.Loans != nil,
		"transactions_replaced", snap.Transactions != nil)
}

// Snapshot returns a copy of everything held.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Snapshot{
		Loans:        cloneLoans(s.loans),
		Transactions: cloneTransactions(s.txns),
	}
}

// ----------------- HELPERS -----------------

// publish is called with s.mu held so subscribers see changes in the order
// they were applied. The publisher only enqueues, so this never blocks.
func (s *Store) publish(ctx context.Context, event *events.ChangeEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishSync(context.WithoutCancel(ctx), event); err != nil {
		s.logger.Warn("change notification not queued",
			"action", event.Action,
			"entity_id", event.EntityID,
			"error", err)
	}
}

func (s *Store) loanIndex(id string) int {
	for i := range s.loans {
		if s.loans[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) txnIndex(id string) int {
	for i := range s.txns {
		if s.txns[i].ID == id {
			return i
		}
	}
	return -1
}
