package loan

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/frahmantamala/rt-lending/internal/core/datamodel/calendar"
)

type Status string

const (
	StatusPending          Status = "PENDING"
	StatusApproved         Status = "APPROVED"
	StatusPaymentVerifying Status = "PAYMENT_VERIFYING"
	StatusPaid             Status = "PAID"
	StatusRejected         Status = "REJECTED"
)

// labels are the display names used by the RT sheet.
var labels = map[Status]string{
	StatusPending:          "Menunggu Validasi RT",
	StatusApproved:         "Belum Lunas (Aktif)",
	StatusPaymentVerifying: "Verifikasi Pembayaran (RT)",
	StatusPaid:             "Lunas",
	StatusRejected:         "Ditolak",
}

func AllStatuses() []Status {
	return []Status{StatusPending, StatusApproved, StatusPaymentVerifying, StatusPaid, StatusRejected}
}

func (s Status) Label() string {
	return labels[s]
}

func (s Status) Valid() bool {
	_, ok := labels[s]
	return ok
}

// ParseStatus accepts either the status code or its sheet label.
func ParseStatus(v string) (Status, error) {
	v = strings.TrimSpace(v)
	if s := Status(strings.ToUpper(v)); s.Valid() {
		return s, nil
	}
	for s, label := range labels {
		if strings.EqualFold(label, v) {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown loan status %q", v)
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("status must be a string: %w", err)
	}
	parsed, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Loan is a borrowing request and its lifecycle record. Amount is the
// principal in whole rupiah.
type Loan struct {
	ID               string         `json:"id" gorm:"primaryKey;column:id"`
	BorrowerName     string         `json:"borrowerName" gorm:"column:borrower_name;not null"`
	Amount           int64          `json:"amount" gorm:"column:amount;not null"`
	Date             calendar.Date  `json:"date" gorm:"column:submitted_on"`
	Status           Status         `json:"status" gorm:"column:status;not null"`
	ApprovalDate     *calendar.Date `json:"approvalDate,omitempty" gorm:"column:approved_on"`
	RejectionDate    *calendar.Date `json:"rejectionDate,omitempty" gorm:"column:rejected_on"`
	PaymentAdminDate *calendar.Date `json:"paymentAdminDate,omitempty" gorm:"column:payment_received_on"`
	PaidDate         *calendar.Date `json:"paidDate,omitempty" gorm:"column:paid_on"`
}

func (Loan) TableName() string {
	return "loans"
}

// Clone returns a deep copy so callers never share date pointers with the store.
func (l Loan) Clone() Loan {
	cp := l
	cp.ApprovalDate = cloneDate(l.ApprovalDate)
	cp.RejectionDate = cloneDate(l.RejectionDate)
	cp.PaymentAdminDate = cloneDate(l.PaymentAdminDate)
	cp.PaidDate = cloneDate(l.PaidDate)
	return cp
}

func cloneDate(d *calendar.Date) *calendar.Date {
	if d == nil {
		return nil
	}
	v := *d
	return &v
}
