package loan_test

import (
	stdErrors "errors"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/rt-lending/internal"
	"github.com/frahmantamala/rt-lending/internal/core/datamodel/calendar"
	loanDatamodel "github.com/frahmantamala/rt-lending/internal/core/datamodel/loan"
	"github.com/frahmantamala/rt-lending/internal/core/user"
	"github.com/frahmantamala/rt-lending/internal/loan"
)

func TestLoan(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Loan Suite")
}

var _ = Describe("Loan lifecycle", func() {
	Describe("Transition", func() {
		DescribeTable("legal moves",
			func(from, to loanDatamodel.Status) {
				next, err := loan.Transition(from, to)
				Expect(err).NotTo(HaveOccurred())
				Expect(next).To(Equal(to))
			},
			Entry("pending to approved", loanDatamodel.StatusPending, loanDatamodel.StatusApproved),
			Entry("pending to rejected", loanDatamodel.StatusPending, loanDatamodel.StatusRejected),
			Entry("approved to verifying", loanDatamodel.StatusApproved, loanDatamodel.StatusPaymentVerifying),
			Entry("verifying to paid", loanDatamodel.StatusPaymentVerifying, loanDatamodel.StatusPaid),
		)

		DescribeTable("illegal moves",
			func(from, to loanDatamodel.Status) {
				next, err := loan.Transition(from, to)
				Expect(err).To(HaveOccurred())
				Expect(stdErrors.Is(err, internal.ErrIllegalTransition)).To(BeTrue())
				Expect(next).To(Equal(from))
			},
			Entry("pending straight to paid", loanDatamodel.StatusPending, loanDatamodel.StatusPaid),
			Entry("pending to verifying", loanDatamodel.StatusPending, loanDatamodel.StatusPaymentVerifying),
			Entry("approved twice", loanDatamodel.StatusApproved, loanDatamodel.StatusApproved),
			Entry("approved to rejected", loanDatamodel.StatusApproved, loanDatamodel.StatusRejected),
			Entry("out of rejected", loanDatamodel.StatusRejected, loanDatamodel.StatusApproved),
			Entry("out of paid", loanDatamodel.StatusPaid, loanDatamodel.StatusPaymentVerifying),
			Entry("back to pending", loanDatamodel.StatusApproved, loanDatamodel.StatusPending),
		)

		It("rejects unknown statuses as validation errors", func() {
			_, err := loan.Transition(loanDatamodel.StatusPending, loanDatamodel.Status("CANCELLED"))
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
		})

		It("treats rejected and paid as terminal", func() {
			Expect(loan.IsTerminal(loanDatamodel.StatusRejected)).To(BeTrue())
			Expect(loan.IsTerminal(loanDatamodel.StatusPaid)).To(BeTrue())
			Expect(loan.IsTerminal(loanDatamodel.StatusPending)).To(BeFalse())
			Expect(loan.NextStatuses(loanDatamodel.StatusPending)).To(ConsistOf(
				loanDatamodel.StatusApproved, loanDatamodel.StatusRejected))
		})
	})

	Describe("Apply", func() {
		var l loan.Loan

		BeforeEach(func() {
			var err error
			l, err = loan.New("  Budi Santoso ", 1_000_000, calendar.MustParse("2023-10-10"))
			Expect(err).NotTo(HaveOccurred())
		})

		It("creates pending loans with a trimmed name and an id", func() {
			Expect(l.ID).NotTo(BeEmpty())
			Expect(l.BorrowerName).To(Equal("Budi Santoso"))
			Expect(l.Status).To(Equal(loanDatamodel.StatusPending))
			Expect(loan.CheckConsistency(l)).To(Succeed())
		})

		It("stamps one date per stage and keeps earlier ones", func() {
			Expect(loan.Apply(&l, loanDatamodel.StatusApproved, calendar.MustParse("2023-10-12"))).To(Succeed())
			Expect(l.ApprovalDate.String()).To(Equal("2023-10-12"))
			Expect(loan.CheckConsistency(l)).To(Succeed())

			Expect(loan.Apply(&l, loanDatamodel.StatusPaymentVerifying, calendar.MustParse("2023-11-01"))).To(Succeed())
			Expect(l.PaymentAdminDate.String()).To(Equal("2023-11-01"))
			Expect(loan.CheckConsistency(l)).To(Succeed())

			Expect(loan.Apply(&l, loanDatamodel.StatusPaid, calendar.MustParse("2023-11-05"))).To(Succeed())
			Expect(l.Status).To(Equal(loanDatamodel.StatusPaid))
			Expect(l.ApprovalDate.String()).To(Equal("2023-10-12"))
			Expect(l.PaymentAdminDate.String()).To(Equal("2023-11-01"))
			Expect(l.PaidDate.String()).To(Equal("2023-11-05"))
			Expect(l.RejectionDate).To(BeNil())
			Expect(loan.CheckConsistency(l)).To(Succeed())
		})

		It("allows backdated effective dates", func() {
			Expect(loan.Apply(&l, loanDatamodel.StatusRejected, calendar.MustParse("2020-01-01"))).To(Succeed())
			Expect(l.RejectionDate.String()).To(Equal("2020-01-01"))
			Expect(loan.CheckConsistency(l)).To(Succeed())
		})

		It("leaves the loan untouched on an illegal move", func() {
			before := l.Clone()
			err := loan.Apply(&l, loanDatamodel.StatusPaid, calendar.MustParse("2023-10-12"))
			Expect(stdErrors.Is(err, internal.ErrIllegalTransition)).To(BeTrue())
			Expect(l).To(Equal(before))
		})

		It("requires an effective date", func() {
			err := loan.Apply(&l, loanDatamodel.StatusApproved, calendar.Date{})
			Expect(err).To(HaveOccurred())
			Expect(l.Status).To(Equal(loanDatamodel.StatusPending))
		})
	})

	Describe("CheckConsistency", func() {
		d := calendar.MustParse("2023-10-01").Ptr

		It("flags a paid loan missing its payment date", func() {
			l := loan.Loan{ID: "x", Status: loanDatamodel.StatusPaid, ApprovalDate: d(), PaidDate: d()}
			err := loan.CheckConsistency(l)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("paymentAdminDate missing"))
		})

		It("flags a paid loan carrying a rejection date", func() {
			l := loan.Loan{ID: "x", Status: loanDatamodel.StatusPaid,
				ApprovalDate: d(), PaymentAdminDate: d(), PaidDate: d(), RejectionDate: d()}
			Expect(loan.CheckConsistency(l)).NotTo(Succeed())
		})

		It("flags a pending loan with an approval date", func() {
			l := loan.Loan{ID: "x", Status: loanDatamodel.StatusPending, ApprovalDate: d()}
			Expect(loan.CheckConsistency(l)).NotTo(Succeed())
		})
	})

	Describe("CanTransition", func() {
		It("lets RT decide and confirm, and ADMIN record payments", func() {
			Expect(loan.CanTransition(user.RoleRT, loanDatamodel.StatusApproved)).To(BeTrue())
			Expect(loan.CanTransition(user.RoleRT, loanDatamodel.StatusRejected)).To(BeTrue())
			Expect(loan.CanTransition(user.RoleRT, loanDatamodel.StatusPaid)).To(BeTrue())
			Expect(loan.CanTransition(user.RoleRT, loanDatamodel.StatusPaymentVerifying)).To(BeFalse())

			Expect(loan.CanTransition(user.RoleAdmin, loanDatamodel.StatusPaymentVerifying)).To(BeTrue())
			Expect(loan.CanTransition(user.RoleAdmin, loanDatamodel.StatusApproved)).To(BeFalse())

			Expect(loan.CanTransition(user.RoleNasabah, loanDatamodel.StatusApproved)).To(BeFalse())
		})
	})

	Describe("Timeline", func() {
		It("stops at rejection for rejected loans", func() {
			l := loan.Loan{ID: "x", Date: calendar.MustParse("2023-10-01"), Status: loanDatamodel.StatusRejected,
				RejectionDate: calendar.MustParse("2023-10-02").Ptr()}
			tl := loan.Timeline(l)
			Expect(tl).To(HaveLen(2))
			Expect(tl[1].Status).To(Equal(loanDatamodel.StatusRejected))
			Expect(tl[1].Done).To(BeTrue())
		})

		It("shows pending stages of an active loan", func() {
			l := loan.Loan{ID: "x", Amount: 1_000_000, Date: calendar.MustParse("2023-10-01"), Status: loanDatamodel.StatusApproved,
				ApprovalDate: calendar.MustParse("2023-10-02").Ptr()}
			view := loan.NewBorrowerLoanView(l)
			Expect(view.Interest).To(Equal(int64(200_000)))
			Expect(view.TotalDue).To(Equal(int64(1_200_000)))
			Expect(view.StatusLabel).To(Equal("Belum Lunas (Aktif)"))
			Expect(view.Timeline).To(HaveLen(4))
			Expect(view.Timeline[1].Done).To(BeTrue())
			Expect(view.Timeline[2].Done).To(BeFalse())
		})
	})
})
