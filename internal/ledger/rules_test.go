package ledger_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/rt-lending/internal"
	"github.com/frahmantamala/rt-lending/internal/core/datamodel/calendar"
	"github.com/frahmantamala/rt-lending/internal/core/datamodel/cashflow"
	loanDatamodel "github.com/frahmantamala/rt-lending/internal/core/datamodel/loan"
	"github.com/frahmantamala/rt-lending/internal/ledger"
	"github.com/frahmantamala/rt-lending/pkg/logger"
)

func TestLedger(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Ledger Suite")
}

var _ = Describe("Ledger rules", func() {
	var (
		rules *ledger.Rules
		l     loanDatamodel.Loan
		date  calendar.Date
	)

	BeforeEach(func() {
		rules = ledger.NewRules(logger.Discard())
		l = loanDatamodel.Loan{ID: "loan-1", BorrowerName: "Siti Aminah", Amount: 1_000_000, Status: loanDatamodel.StatusApproved}
		date = calendar.MustParse("2023-10-12")
	})

	Describe("ForTransition", func() {
		It("disburses the principal on approval", func() {
			row, ok, err := rules.ForTransition(l, loanDatamodel.StatusApproved, date, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
			Expect(row.ID).NotTo(BeEmpty())
			Expect(row.Type).To(Equal(cashflow.TypeExpense))
			Expect(row.Category).To(Equal(cashflow.CategoryLoanDisbursement))
			Expect(row.Amount).To(Equal(int64(1_000_000)))
			Expect(row.Date).To(Equal(date))
			Expect(row.RelatedLoanID).To(Equal("loan-1"))
			Expect(row.Description).To(Equal("Pencairan Pinjaman: Siti Aminah"))
		})

		It("collects the total due when payment is received", func() {
			row, ok, err := rules.ForTransition(l, loanDatamodel.StatusPaymentVerifying, date, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
			Expect(row.Type).To(Equal(cashflow.TypeIncome))
			Expect(row.Category).To(Equal(cashflow.CategoryLoanRepayment))
			Expect(row.Amount).To(Equal(int64(1_200_000)))
			Expect(row.Description).To(Equal("Pelunasan Pinjaman: Siti Aminah"))
		})

		It("rounds the repayment half up", func() {
			l.Amount = 1_000_003
			row, ok, err := rules.ForTransition(l, loanDatamodel.StatusPaymentVerifying, date, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
			Expect(row.Amount).To(Equal(int64(1_200_004)))
		})

		DescribeTable("produces nothing for other statuses",
			func(status loanDatamodel.Status) {
				row, ok, err := rules.ForTransition(l, status, date, nil)
				Expect(err).NotTo(HaveOccurred())
				Expect(ok).To(BeFalse())
				Expect(row).To(BeNil())
			},
			Entry("pending", loanDatamodel.StatusPending),
			Entry("rejected", loanDatamodel.StatusRejected),
			Entry("paid", loanDatamodel.StatusPaid),
		)

		It("does not duplicate an existing disbursement", func() {
			existing := []cashflow.Transaction{
				{ID: "d1", Category: cashflow.CategoryLoanDisbursement, Type: cashflow.TypeExpense, RelatedLoanID: "loan-1", Amount: 1_000_000},
			}
			_, ok, err := rules.ForTransition(l, loanDatamodel.StatusApproved, calendar.MustParse("2023-10-20"), existing)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
		})

		It("ignores rows of other loans", func() {
			existing := []cashflow.Transaction{
				{ID: "d1", Category: cashflow.CategoryLoanDisbursement, Type: cashflow.TypeExpense, RelatedLoanID: "loan-2", Amount: 1_000_000},
			}
			_, ok, err := rules.ForTransition(l, loanDatamodel.StatusApproved, date, existing)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
		})
	})

	Describe("Linked", func() {
		It("returns only rows pointing at the loan", func() {
			txns := []cashflow.Transaction{
				{ID: "a", RelatedLoanID: "loan-1"},
				{ID: "b"},
				{ID: "c", RelatedLoanID: "loan-2"},
				{ID: "d", RelatedLoanID: "loan-1"},
			}
			linked := ledger.Linked(txns, "loan-1")
			Expect(linked).To(HaveLen(2))
			Expect(ledger.Linked(txns, "")).To(BeEmpty())
		})
	})

	Describe("ValidateTransaction", func() {
		It("requires a loan link on loan rows", func() {
			err := ledger.ValidateTransaction(cashflow.Transaction{
				Date: date, Amount: 10, Type: cashflow.TypeIncome, Category: cashflow.CategoryLoanRepayment,
			})
			Expect(err).NotTo(BeNil())
			details := err.Details.(internal.ValidationErrors)
			Expect(details.Errors).To(HaveLen(1))
			Expect(details.Errors[0].Field).To(Equal("relatedLoanId"))
		})

		It("collects every problem", func() {
			err := ledger.ValidateTransaction(cashflow.Transaction{Type: "OTHER", Category: "MISC"})
			Expect(err).NotTo(BeNil())
			Expect(err.Details.(internal.ValidationErrors).Errors).To(HaveLen(4))
		})

		It("accepts a manual row", func() {
			Expect(ledger.ValidateTransaction(cashflow.Transaction{
				Date: date, Amount: 350_000, Type: cashflow.TypeIncome, Category: cashflow.CategoryManual,
			})).To(BeNil())
		})
	})

	Describe("AddTransactionDTO", func() {
		It("rejects non-positive amounts and empty descriptions", func() {
			err := ledger.AddTransactionDTO{Date: date, Type: cashflow.TypeExpense}.Validate()
			Expect(err).NotTo(BeNil())
			fields := []string{}
			for _, e := range err.Details.(internal.ValidationErrors).Errors {
				fields = append(fields, e.Field)
			}
			Expect(fields).To(ContainElements("description", "amount"))
		})

		It("refuses loan categories", func() {
			err := ledger.AddTransactionDTO{Date: date, Description: "x", Amount: 1, Type: cashflow.TypeExpense,
				Category: cashflow.CategoryLoanDisbursement}.Validate()
			Expect(err).NotTo(BeNil())
		})

		It("requires initial balance to be income", func() {
			err := ledger.AddTransactionDTO{Date: date, Description: "Saldo", Amount: 1, Type: cashflow.TypeExpense,
				Category: cashflow.CategoryInitialBalance}.Validate()
			Expect(err).NotTo(BeNil())
			Expect(err.Error()).To(ContainSubstring("initial balance"))
		})
	})
})
