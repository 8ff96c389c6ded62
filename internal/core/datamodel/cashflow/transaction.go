package cashflow

import (
	"github.com/frahmantamala/rt-lending/internal/core/datamodel/calendar"
)

type Type string

const (
	TypeIncome  Type = "INCOME"
	TypeExpense Type = "EXPENSE"
)

func (t Type) Valid() bool {
	return t == TypeIncome || t == TypeExpense
}

type Category string

const (
	CategoryManual           Category = "MANUAL"
	CategoryLoanDisbursement Category = "LOAN_DISBURSEMENT"
	CategoryLoanRepayment    Category = "LOAN_REPAYMENT"
	CategoryInitialBalance   Category = "INITIAL_BALANCE"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryManual, CategoryLoanDisbursement, CategoryLoanRepayment, CategoryInitialBalance:
		return true
	}
	return false
}

// IsLoanRelated reports whether rows of this category are tied to a loan.
func (c Category) IsLoanRelated() bool {
	return c == CategoryLoanDisbursement || c == CategoryLoanRepayment
}

// Transaction is one cash ledger row. Amount is always positive; Type gives
// the direction.
type Transaction struct {
	ID            string        `json:"id" gorm:"primaryKey;column:id"`
	Date          calendar.Date `json:"date" gorm:"column:occurred_on"`
	Description   string        `json:"description" gorm:"column:description"`
	Amount        int64         `json:"amount" gorm:"column:amount;not null"`
	Type          Type          `json:"type" gorm:"column:type;not null"`
	Category      Category      `json:"category" gorm:"column:category;not null"`
	RelatedLoanID string        `json:"relatedLoanId,omitempty" gorm:"column:related_loan_id;index"`
}

func (Transaction) TableName() string {
	return "cash_transactions"
}
