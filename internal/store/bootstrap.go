package store

import (
	"github.com/frahmantamala/rt-lending/internal/core/datamodel/calendar"
	"github.com/frahmantamala/rt-lending/internal/core/datamodel/cashflow"
	loanDatamodel "github.com/frahmantamala/rt-lending/internal/core/datamodel/loan"
)

// Snapshot is a full copy of the loan book and ledger. A nil slice means
// "not provided" when used with Replace.
type Snapshot struct {
	Loans        []loanDatamodel.Loan   `json:"loans"`
	Transactions []cashflow.Transaction `json:"transactions"`
}

// Bootstrap is the data the service starts with before any external load
// completes.
func Bootstrap() Snapshot {
	d := calendar.MustParse
	date := func(s string) *calendar.Date { return d(s).Ptr() }

	return Snapshot{
		Loans: []loanDatamodel.Loan{
			{ID: "1", BorrowerName: "Budi Santoso", Amount: 1_000_000, Date: d("2023-10-01"),
				Status: loanDatamodel.StatusApproved, ApprovalDate: date("2023-10-02")},
			{ID: "2", BorrowerName: "Siti Aminah", Amount: 500_000, Date: d("2023-10-05"),
				Status: loanDatamodel.StatusPaymentVerifying, ApprovalDate: date("2023-10-06"), PaymentAdminDate: date("2023-10-20")},
			{ID: "3", BorrowerName: "Joko Widodo", Amount: 2_000_000, Date: d("2023-10-10"),
				Status: loanDatamodel.StatusPending},
			{ID: "4", BorrowerName: "Rina Wati", Amount: 750_000, Date: d("2023-09-15"),
				Status: loanDatamodel.StatusPaid, ApprovalDate: date("2023-09-16"), PaymentAdminDate: date("2023-09-30"), PaidDate: date("2023-10-01")},
			{ID: "5", BorrowerName: "Ahmad Dahlan", Amount: 1_500_000, Date: d("2023-10-12"),
				Status: loanDatamodel.StatusPending},
		},
		Transactions: []cashflow.Transaction{
			{ID: "1", Date: d("2023-09-01"), Description: initialBalanceDescription, Amount: 10_000_000,
				Type: cashflow.TypeIncome, Category: cashflow.CategoryInitialBalance},
			{ID: "2", Date: d("2023-09-05"), Description: "Iuran Kebersihan Warga", Amount: 350_000,
				Type: cashflow.TypeIncome, Category: cashflow.CategoryManual},
			{ID: "3", Date: d("2023-09-10"), Description: "Pembelian Lampu Jalan (3 pcs)", Amount: 150_000,
				Type: cashflow.TypeExpense, Category: cashflow.CategoryManual},
			{ID: "L1", Date: d("2023-10-02"), Description: "Pencairan Pinjaman: Budi Santoso", Amount: 1_000_000,
				Type: cashflow.TypeExpense, Category: cashflow.CategoryLoanDisbursement, RelatedLoanID: "1"},
			{ID: "L2", Date: d("2023-10-06"), Description: "Pencairan Pinjaman: Siti Aminah", Amount: 500_000,
				Type: cashflow.TypeExpense, Category: cashflow.CategoryLoanDisbursement, RelatedLoanID: "2"},
			{ID: "L4_OUT", Date: d("2023-09-16"), Description: "Pencairan Pinjaman: Rina Wati", Amount: 750_000,
				Type: cashflow.TypeExpense, Category: cashflow.CategoryLoanDisbursement, RelatedLoanID: "4"},
			{ID: "L4_IN", Date: d("2023-09-30"), Description: "Pelunasan Pinjaman: Rina Wati", Amount: 900_000,
				Type: cashflow.TypeIncome, Category: cashflow.CategoryLoanRepayment, RelatedLoanID: "4"},
		},
	}
}
