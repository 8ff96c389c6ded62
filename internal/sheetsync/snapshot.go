package sheetsync

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/frahmantamala/rt-lending/internal/core/datamodel/calendar"
	"github.com/frahmantamala/rt-lending/internal/core/datamodel/cashflow"
	loanDatamodel "github.com/frahmantamala/rt-lending/internal/core/datamodel/loan"
	"github.com/frahmantamala/rt-lending/internal/ledger"
	"github.com/frahmantamala/rt-lending/internal/loan"
	"github.com/frahmantamala/rt-lending/internal/store"
)

// flexInt accepts 1000000, 1000000.0 and "1,000,000". Spreadsheet exports
// are not consistent about number cells. Fractional rupiah are rejected.
type flexInt int64

func (f *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(strings.ReplaceAll(strings.TrimSpace(s), ",", ""))
	}
	n, err := decimal.NewFromString(string(data))
	if err != nil {
		return fmt.Errorf("not a number: %s", data)
	}
	if !n.IsInteger() {
		return fmt.Errorf("not a whole rupiah amount: %s", data)
	}
	*f = flexInt(n.IntPart())
	return nil
}

// flexString accepts strings and numbers, since sheet ids are often numeric.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	if string(data) == "null" {
		*f = ""
		return nil
	}
	*f = flexString(data)
	return nil
}

type wireLoan struct {
	ID               flexString     `json:"id"`
	BorrowerName     string         `json:"borrowerName"`
	Amount           flexInt        `json:"amount"`
	Date             calendar.Date  `json:"date"`
	Status           string         `json:"status"`
	ApprovalDate     *calendar.Date `json:"approvalDate"`
	RejectionDate    *calendar.Date `json:"rejectionDate"`
	PaymentAdminDate *calendar.Date `json:"paymentAdminDate"`
	PaidDate         *calendar.Date `json:"paidDate"`
}

func (w wireLoan) toLoan() (loanDatamodel.Loan, error) {
	if w.ID == "" {
		return loanDatamodel.Loan{}, fmt.Errorf("missing id")
	}
	if w.Amount <= 0 {
		return loanDatamodel.Loan{}, fmt.Errorf("amount must be positive, got %d", w.Amount)
	}
	if strings.TrimSpace(w.BorrowerName) == "" {
		return loanDatamodel.Loan{}, fmt.Errorf("missing borrower name")
	}
	if w.Date.IsZero() {
		return loanDatamodel.Loan{}, fmt.Errorf("missing submission date")
	}
	status, err := loanDatamodel.ParseStatus(w.Status)
	if err != nil {
		return loanDatamodel.Loan{}, err
	}
	l := loanDatamodel.Loan{
		ID:               string(w.ID),
		BorrowerName:     strings.TrimSpace(w.BorrowerName),
		Amount:           int64(w.Amount),
		Date:             w.Date,
		Status:           status,
		ApprovalDate:     optionalDate(w.ApprovalDate),
		RejectionDate:    optionalDate(w.RejectionDate),
		PaymentAdminDate: optionalDate(w.PaymentAdminDate),
		PaidDate:         optionalDate(w.PaidDate),
	}
	if err := loan.CheckConsistency(l); err != nil {
		return loanDatamodel.Loan{}, err
	}
	return l, nil
}

type wireTransaction struct {
	ID            flexString    `json:"id"`
	Date          calendar.Date `json:"date"`
	Description   string        `json:"description"`
	Amount        flexInt       `json:"amount"`
	Type          string        `json:"type"`
	Category      string        `json:"category"`
	RelatedLoanID flexString    `json:"relatedLoanId"`
}

func (w wireTransaction) toTransaction() (cashflow.Transaction, error) {
	if w.ID == "" {
		return cashflow.Transaction{}, fmt.Errorf("missing id")
	}
	t := cashflow.Transaction{
		ID:            string(w.ID),
		Date:          w.Date,
		Description:   w.Description,
		Amount:        int64(w.Amount),
		Type:          cashflow.Type(strings.ToUpper(strings.TrimSpace(w.Type))),
		Category:      cashflow.Category(strings.ToUpper(strings.TrimSpace(w.Category))),
		RelatedLoanID: string(w.RelatedLoanID),
	}
	if verr := ledger.ValidateTransaction(t); verr != nil {
		return cashflow.Transaction{}, verr
	}
	return t, nil
}

func optionalDate(d *calendar.Date) *calendar.Date {
	if d == nil || d.IsZero() {
		return nil
	}
	v := *d
	return &v
}

// DecodeSnapshot reads {loans: [...], transactions: [...]}. A missing or
// non-array field leaves that collection nil so local data is kept. Records
// that fail to decode or break the ledger invariants are skipped.
func DecodeSnapshot(data []byte, logger *slog.Logger) (store.Snapshot, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return store.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}

	var snap store.Snapshot

	if items, ok := rawArray(raw, "loans", logger); ok {
		snap.Loans = make([]loanDatamodel.Loan, 0, len(items))
		for i, item := range items {
			var w wireLoan
			if err := json.Unmarshal(item, &w); err != nil {
				logger.Warn("skipping malformed loan record", "index", i, "error", err)
				continue
			}
			l, err := w.toLoan()
			if err != nil {
				logger.Warn("skipping invalid loan record", "index", i, "error", err)
				continue
			}
			snap.Loans = append(snap.Loans, l)
		}
	}

	if items, ok := rawArray(raw, "transactions", logger); ok {
		snap.Transactions = make([]cashflow.Transaction, 0, len(items))
		for i, item := range items {
			var w wireTransaction
			if err := json.Unmarshal(item, &w); err != nil {
				logger.Warn("skipping malformed transaction record", "index", i, "error", err)
				continue
			}
			t, err := w.toTransaction()
			if err != nil {
				logger.Warn("skipping invalid transaction record", "index", i, "error", err)
				continue
			}
			// a loan has at most one disbursement and one repayment; the first row wins
			if t.Category.IsLoanRelated() && ledger.HasEntry(snap.Transactions, t.RelatedLoanID, t.Category) {
				logger.Warn("skipping duplicate loan transaction",
					"index", i,
					"transaction_id", t.ID,
					"loan_id", t.RelatedLoanID,
					"category", t.Category)
				continue
			}
			snap.Transactions = append(snap.Transactions, t)
		}
	}

	return snap, nil
}

func rawArray(raw map[string]json.RawMessage, key string, logger *slog.Logger) ([]json.RawMessage, bool) {
	v, ok := raw[key]
	if !ok {
		return nil, false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(v, &items); err != nil || items == nil {
		logger.Warn("ignoring snapshot field", "field", key, "reason", "not an array")
		return nil, false
	}
	return items, true
}
