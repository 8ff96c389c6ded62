package store_test

import (
	"context"
	stdErrors "errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/rt-lending/internal/core/datamodel/calendar"
	loanDatamodel "github.com/frahmantamala/rt-lending/internal/core/datamodel/loan"
	"github.com/frahmantamala/rt-lending/internal/ledger"
	"github.com/frahmantamala/rt-lending/internal/loan"
	"github.com/frahmantamala/rt-lending/internal/store"
	"github.com/frahmantamala/rt-lending/pkg/logger"
)

type fakeSource struct {
	snap  store.Snapshot
	err   error
	delay time.Duration
}

func (f *fakeSource) FetchAll(ctx context.Context) (store.Snapshot, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return store.Snapshot{}, ctx.Err()
		}
	}
	return f.snap, f.err
}

var _ = Describe("Loader", func() {
	var s *store.Store

	BeforeEach(func() {
		s = store.New(store.Bootstrap(), nil, logger.Discard())
	})

	It("replaces only the collections the source returned", func() {
		src := &fakeSource{snap: store.Snapshot{
			Loans: []loanDatamodel.Loan{{
				ID: "99", BorrowerName: "Dewi", Amount: 100_000,
				Date: calendar.MustParse("2024-01-02"), Status: loanDatamodel.StatusPending,
			}},
		}}

		done := store.NewLoader(s, src, time.Second, logger.Discard()).Start(context.Background())
		Eventually(done).Should(BeClosed())

		Expect(s.Loans(loan.Filter{})).To(HaveLen(1))
		Expect(s.Transactions(ledger.Filter{})).To(HaveLen(len(store.Bootstrap().Transactions)))
	})

	It("keeps local data when the fetch fails", func() {
		src := &fakeSource{err: stdErrors.New("sheet api unreachable")}

		Expect(store.NewLoader(s, src, time.Second, logger.Discard()).Load(context.Background())).To(BeFalse())
		Expect(s.Loans(loan.Filter{})).To(HaveLen(len(store.Bootstrap().Loans)))
	})

	It("gives up after the timeout", func() {
		src := &fakeSource{delay: time.Second}

		Expect(store.NewLoader(s, src, 20*time.Millisecond, logger.Discard()).Load(context.Background())).To(BeFalse())
		Expect(s.Loans(loan.Filter{})).To(HaveLen(len(store.Bootstrap().Loans)))
	})

	It("ignores a snapshot with nothing usable", func() {
		Expect(store.NewLoader(s, &fakeSource{}, time.Second, logger.Discard()).Load(context.Background())).To(BeFalse())
	})
})

var _ = Describe("FallbackSource", func() {
	mirrorSnap := store.Snapshot{Loans: []loanDatamodel.Loan{{
		ID: "m1", BorrowerName: "Agus", Amount: 200_000,
		Date: calendar.MustParse("2023-12-01"), Status: loanDatamodel.StatusPending,
	}}}

	It("falls back to the next source when the first fails", func() {
		src := store.NewFallbackSource(time.Second, logger.Discard(),
			&fakeSource{err: stdErrors.New("sheet api unreachable")},
			&fakeSource{snap: mirrorSnap})

		snap, err := src.FetchAll(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(snap.Loans).To(HaveLen(1))
		Expect(snap.Loans[0].ID).To(Equal("m1"))
	})

	It("gives each source its own timeout", func() {
		src := store.NewFallbackSource(20*time.Millisecond, logger.Discard(),
			&fakeSource{delay: time.Second},
			&fakeSource{snap: mirrorSnap})

		snap, err := src.FetchAll(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(snap.Loans).To(HaveLen(1))
	})

	It("skips a source that returned nothing usable", func() {
		src := store.NewFallbackSource(time.Second, logger.Discard(),
			&fakeSource{},
			&fakeSource{snap: mirrorSnap})

		snap, err := src.FetchAll(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(snap.Loans).To(HaveLen(1))
	})

	It("stops at the first usable snapshot", func() {
		second := &fakeSource{err: stdErrors.New("must not be asked")}
		src := store.NewFallbackSource(time.Second, logger.Discard(), &fakeSource{snap: mirrorSnap}, second)

		_, err := src.FetchAll(context.Background())
		Expect(err).NotTo(HaveOccurred())
	})

	It("reports the last error when every source fails", func() {
		src := store.NewFallbackSource(time.Second, logger.Discard(),
			&fakeSource{err: stdErrors.New("sheet api unreachable")},
			&fakeSource{err: stdErrors.New("mirror offline")})

		_, err := src.FetchAll(context.Background())
		Expect(err).To(MatchError(ContainSubstring("mirror offline")))
	})

	It("lets the loader keep local data when every source fails", func() {
		s := store.New(store.Bootstrap(), nil, logger.Discard())
		src := store.NewFallbackSource(time.Second, logger.Discard(),
			&fakeSource{err: stdErrors.New("sheet api unreachable")})

		Expect(store.NewLoader(s, src, 0, logger.Discard()).Load(context.Background())).To(BeFalse())
		Expect(s.Loans(loan.Filter{})).To(HaveLen(len(store.Bootstrap().Loans)))
	})
})
