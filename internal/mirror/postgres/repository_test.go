package postgres_test

import (
	"context"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/frahmantamala/rt-lending/internal/core/datamodel/calendar"
	"github.com/frahmantamala/rt-lending/internal/core/datamodel/cashflow"
	loanDatamodel "github.com/frahmantamala/rt-lending/internal/core/datamodel/loan"
	"github.com/frahmantamala/rt-lending/internal/core/events"
	mirror "github.com/frahmantamala/rt-lending/internal/mirror/postgres"
	"github.com/frahmantamala/rt-lending/internal/store"
	"github.com/frahmantamala/rt-lending/pkg/logger"
)

func TestMirrorPostgres(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Mirror Postgres Suite")
}

var _ = Describe("Mirror Repository", func() {
	var (
		db   *gorm.DB
		repo *mirror.Repository
		ctx  context.Context
	)

	BeforeEach(func() {
		var err error
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: gormLogger.Default.LogMode(gormLogger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(db.AutoMigrate(&loanDatamodel.Loan{}, &cashflow.Transaction{})).To(Succeed())

		repo = mirror.NewRepository(db, logger.Discard())
		ctx = context.Background()
	})

	newLoan := func() loanDatamodel.Loan {
		return loanDatamodel.Loan{
			ID:           "loan-1",
			BorrowerName: "Budi Santoso",
			Amount:       1_000_000,
			Date:         calendar.MustParse("2023-10-01"),
			Status:       loanDatamodel.StatusPending,
		}
	}

	Describe("Deliver", func() {
		It("inserts then updates a loan", func() {
			l := newLoan()
			Expect(repo.Deliver(ctx, events.NewChangeEvent(events.ActionCreateLoan, l.ID, l))).To(Succeed())

			l.Status = loanDatamodel.StatusApproved
			l.ApprovalDate = calendar.MustParse("2023-10-02").Ptr()
			Expect(repo.Deliver(ctx, events.NewChangeEvent(events.ActionUpdateLoan, l.ID, &l))).To(Succeed())

			snap, err := repo.FetchAll(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(snap.Loans).To(HaveLen(1))
			Expect(snap.Loans[0].Status).To(Equal(loanDatamodel.StatusApproved))
			Expect(snap.Loans[0].ApprovalDate).NotTo(BeNil())
			Expect(snap.Loans[0].ApprovalDate.String()).To(Equal("2023-10-02"))
			Expect(snap.Loans[0].PaidDate).To(BeNil())
		})

		It("deletes by id", func() {
			l := newLoan()
			Expect(repo.Deliver(ctx, events.NewChangeEvent(events.ActionCreateLoan, l.ID, l))).To(Succeed())
			Expect(repo.Deliver(ctx, events.NewChangeEvent(events.ActionDeleteLoan, l.ID, nil))).To(Succeed())

			snap, err := repo.FetchAll(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(snap.Loans).NotTo(BeNil())
			Expect(snap.Loans).To(BeEmpty())
		})

		It("stores loan-linked transactions", func() {
			t := cashflow.Transaction{
				ID:            "t-1",
				Date:          calendar.MustParse("2023-10-02"),
				Description:   "Pencairan Pinjaman: Budi Santoso",
				Amount:        1_000_000,
				Type:          cashflow.TypeExpense,
				Category:      cashflow.CategoryLoanDisbursement,
				RelatedLoanID: "loan-1",
			}
			Expect(repo.Deliver(ctx, events.NewChangeEvent(events.ActionCreateTransaction, t.ID, t))).To(Succeed())

			snap, err := repo.FetchAll(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(snap.Transactions).To(HaveLen(1))
			Expect(snap.Transactions[0]).To(Equal(t))

			Expect(repo.Deliver(ctx, events.NewChangeEvent(events.ActionDeleteTransaction, t.ID, nil))).To(Succeed())
			snap, err = repo.FetchAll(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(snap.Transactions).To(BeEmpty())
		})

		It("rejects a record of the wrong type", func() {
			err := repo.Deliver(ctx, events.NewChangeEvent(events.ActionCreateLoan, "x", "not a loan"))
			Expect(err).To(MatchError(ContainSubstring("unexpected record type")))
		})
	})

	Describe("Seed", func() {
		It("writes the bootstrap books and can be repeated", func() {
			boot := store.Bootstrap()
			Expect(repo.Seed(ctx, boot)).To(Succeed())
			Expect(repo.Seed(ctx, boot)).To(Succeed())

			snap, err := repo.FetchAll(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(snap.Loans).To(HaveLen(len(boot.Loans)))
			Expect(snap.Transactions).To(HaveLen(len(boot.Transactions)))
		})

		It("can be cleared before reseeding", func() {
			Expect(repo.Seed(ctx, store.Bootstrap())).To(Succeed())
			Expect(repo.Clear(ctx)).To(Succeed())

			snap, err := repo.FetchAll(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(snap.Loans).To(BeEmpty())
			Expect(snap.Transactions).To(BeEmpty())
		})
	})
})
