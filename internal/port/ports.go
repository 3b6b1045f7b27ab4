// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/boddenberg/ledger-bot-go/internal/domain"
)

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	// SetIfAbsent stores value only when key has no live entry and reports
	// whether it did.
	SetIfAbsent(key string, value T) bool
	Delete(key string)
}

// RecordStore is the live record table.
type RecordStore interface {
	InsertRecord(ctx context.Context, r domain.Record) (*domain.Record, error)
	ListRecords(ctx context.Context, f domain.RecordFilter) ([]domain.Record, error)
	UpdateRecord(ctx context.Context, id int64, u domain.RecordUpdate) error
	DeleteRecord(ctx context.Context, id int64) error
}

// RecycleBinStore holds soft-deleted record snapshots, keyed by deleter.
type RecycleBinStore interface {
	InsertDeleted(ctx context.Context, d domain.DeletedRecord) (*domain.DeletedRecord, error)
	ListDeleted(ctx context.Context, deletedBy string, limit int) ([]domain.DeletedRecord, error)
	DeleteDeleted(ctx context.Context, id int64) error
}

// DailyTotalStore holds the per-day archive aggregates.
type DailyTotalStore interface {
	// GetDailyTotal returns nil without error when the day has no row yet.
	GetDailyTotal(ctx context.Context, date string) (*domain.DailyTotal, error)
	// SaveDailyTotal creates the row for t.Date or replaces its total and
	// source ids.
	SaveDailyTotal(ctx context.Context, t domain.DailyTotal) error
	ListDailyTotals(ctx context.Context, from, to string) ([]domain.DailyTotal, error)
}

// DebtStore holds one balance row per counterparty.
type DebtStore interface {
	// GetDebt fails with *domain.ErrNotFound for an unknown name.
	GetDebt(ctx context.Context, name string) (*domain.Debt, error)
	InsertDebt(ctx context.Context, d domain.Debt) error
	UpdateDebt(ctx context.Context, d domain.Debt) error
	ListDebts(ctx context.Context, status domain.DebtStatus) ([]domain.Debt, error)
}

// LedgerStore is everything the ledger persists.
// Implemented by the Supabase adapter and the in-memory store.
type LedgerStore interface {
	RecordStore
	RecycleBinStore
	DailyTotalStore
	DebtStore
}

// NicknameResolver looks up a user's display name. An empty result means
// no name is known.
type NicknameResolver interface {
	Nickname(ctx context.Context, ownerID string) (string, error)
}
