// Package postgres mirrors the in-memory books into a relational database.
// It is fed by the outbox like any other sink and can serve as a snapshot
// source on startup.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/frahmantamala/rt-lending/internal/core/datamodel/cashflow"
	loanDatamodel "github.com/frahmantamala/rt-lending/internal/core/datamodel/loan"
	"github.com/frahmantamala/rt-lending/internal/core/events"
	"github.com/frahmantamala/rt-lending/internal/store"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

func (r *Repository) Name() string {
	return "postgres-mirror"
}

// Deliver applies one change. Creates and updates are upserts, so replaying
// a change is harmless.
func (r *Repository) Deliver(ctx context.Context, event *events.ChangeEvent) error {
	db := r.db.WithContext(ctx)

	switch event.Action {
	case events.ActionCreateLoan, events.ActionUpdateLoan:
		l, err := loanRecord(event.Record)
		if err != nil {
			return err
		}
		return r.upsertLoan(db, l)

	case events.ActionDeleteLoan:
		return db.Where("id = ?", event.EntityID).Delete(&loanDatamodel.Loan{}).Error

	case events.ActionCreateTransaction, events.ActionUpdateTransaction:
		t, err := transactionRecord(event.Record)
		if err != nil {
			return err
		}
		return r.upsertTransaction(db, t)

	case events.ActionDeleteTransaction:
		return db.Where("id = ?", event.EntityID).Delete(&cashflow.Transaction{}).Error
	}

	return fmt.Errorf("unsupported action %q", event.Action)
}

func (r *Repository) upsertLoan(db *gorm.DB, l *loanDatamodel.Loan) error {
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(l).Error
}

func (r *Repository) upsertTransaction(db *gorm.DB, t *cashflow.Transaction) error {
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(t).Error
}

// FetchAll reads both tables.
func (r *Repository) FetchAll(ctx context.Context) (store.Snapshot, error) {
	db := r.db.WithContext(ctx)

	loans := []loanDatamodel.Loan{}
	if err := db.Order("submitted_on DESC").Find(&loans).Error; err != nil {
		return store.Snapshot{}, fmt.Errorf("failed to read loans: %w", err)
	}

	txns := []cashflow.Transaction{}
	if err := db.Order("occurred_on DESC").Find(&txns).Error; err != nil {
		return store.Snapshot{}, fmt.Errorf("failed to read transactions: %w", err)
	}

	return store.Snapshot{Loans: loans, Transactions: txns}, nil
}

// Seed writes a full snapshot in one transaction, replacing rows with the
// same ids.
func (r *Repository) Seed(ctx context.Context, snap store.Snapshot) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range snap.Loans {
			l := snap.Loans[i]
			if err := r.upsertLoan(tx, &l); err != nil {
				return fmt.Errorf("failed to seed loan %s: %w", l.ID, err)
			}
		}
		for i := range snap.Transactions {
			t := snap.Transactions[i]
			if err := r.upsertTransaction(tx, &t); err != nil {
				return fmt.Errorf("failed to seed transaction %s: %w", t.ID, err)
			}
		}
		r.logger.Info("mirror seeded",
			"loans", len(snap.Loans),
			"transactions", len(snap.Transactions))
		return nil
	})
}

// Clear removes every mirrored row.
func (r *Repository) Clear(ctx context.Context) error {
	return r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&cashflow.Transaction{}).Error; err != nil {
			return fmt.Errorf("failed to clear transactions: %w", err)
		}
		if err := tx.Delete(&loanDatamodel.Loan{}).Error; err != nil {
			return fmt.Errorf("failed to clear loans: %w", err)
		}
		return nil
	})
}

var errUnexpectedRecord = errors.New("unexpected record type")

func loanRecord(record interface{}) (*loanDatamodel.Loan, error) {
	switch v := record.(type) {
	case loanDatamodel.Loan:
		return &v, nil
	case *loanDatamodel.Loan:
		if v != nil {
			cp := v.Clone()
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("%w: %T", errUnexpectedRecord, record)
}

func transactionRecord(record interface{}) (*cashflow.Transaction, error) {
	switch v := record.(type) {
	case cashflow.Transaction:
		return &v, nil
	case *cashflow.Transaction:
		if v != nil {
			cp := *v
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("%w: %T", errUnexpectedRecord, record)
}
