package memstore

import (
	"context"
	"errors"
	"sync"

	"github.com/boddenberg/ledger-bot-go/internal/domain"
	"github.com/boddenberg/ledger-bot-go/internal/port"
)

// ErrInjected is the cause carried by every failure a Faulty store injects.
var ErrInjected = errors.New("injected storage failure")

// Faulty wraps a LedgerStore and fails selected operations on demand.
// Operations are named after the port method, e.g. "DeleteRecord".
type Faulty struct {
	port.LedgerStore

	mu    sync.Mutex
	fails map[string]int
	calls map[string]int
}

// NewFaulty wraps inner. Nothing fails until FailOn is called.
func NewFaulty(inner port.LedgerStore) *Faulty {
	return &Faulty{
		LedgerStore: inner,
		fails:       make(map[string]int),
		calls:       make(map[string]int),
	}
}

// FailOn makes the next n calls of op fail. A negative n fails forever.
func (f *Faulty) FailOn(op string, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fails[op] = n
}

// Heal clears every pending failure.
func (f *Faulty) Heal() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fails = make(map[string]int)
}

// Calls returns how many times op was invoked, failed or not.
func (f *Faulty) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *Faulty) check(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls[op]++
	n, ok := f.fails[op]
	if !ok || n == 0 {
		return nil
	}
	if n > 0 {
		f.fails[op] = n - 1
	}
	return &domain.ErrExternalService{Service: "memstore/" + op, Err: ErrInjected}
}

func (f *Faulty) InsertRecord(ctx context.Context, r domain.Record) (*domain.Record, error) {
	if err := f.check("InsertRecord"); err != nil {
		return nil, err
	}
	return f.LedgerStore.InsertRecord(ctx, r)
}

func (f *Faulty) ListRecords(ctx context.Context, filter domain.RecordFilter) ([]domain.Record, error) {
	if err := f.check("ListRecords"); err != nil {
		return nil, err
	}
	return f.LedgerStore.ListRecords(ctx, filter)
}

func (f *Faulty) UpdateRecord(ctx context.Context, id int64, u domain.RecordUpdate) error {
	if err := f.check("UpdateRecord"); err != nil {
		return err
	}
	return f.LedgerStore.UpdateRecord(ctx, id, u)
}

func (f *Faulty) DeleteRecord(ctx context.Context, id int64) error {
	if err := f.check("DeleteRecord"); err != nil {
		return err
	}
	return f.LedgerStore.DeleteRecord(ctx, id)
}

func (f *Faulty) InsertDeleted(ctx context.Context, d domain.DeletedRecord) (*domain.DeletedRecord, error) {
	if err := f.check("InsertDeleted"); err != nil {
		return nil, err
	}
	return f.LedgerStore.InsertDeleted(ctx, d)
}

func (f *Faulty) ListDeleted(ctx context.Context, deletedBy string, limit int) ([]domain.DeletedRecord, error) {
	if err := f.check("ListDeleted"); err != nil {
		return nil, err
	}
	return f.LedgerStore.ListDeleted(ctx, deletedBy, limit)
}

func (f *Faulty) DeleteDeleted(ctx context.Context, id int64) error {
	if err := f.check("DeleteDeleted"); err != nil {
		return err
	}
	return f.LedgerStore.DeleteDeleted(ctx, id)
}

func (f *Faulty) GetDailyTotal(ctx context.Context, date string) (*domain.DailyTotal, error) {
	if err := f.check("GetDailyTotal"); err != nil {
		return nil, err
	}
	return f.LedgerStore.GetDailyTotal(ctx, date)
}

func (f *Faulty) SaveDailyTotal(ctx context.Context, t domain.DailyTotal) error {
	if err := f.check("SaveDailyTotal"); err != nil {
		return err
	}
	return f.LedgerStore.SaveDailyTotal(ctx, t)
}

func (f *Faulty) ListDailyTotals(ctx context.Context, from, to string) ([]domain.DailyTotal, error) {
	if err := f.check("ListDailyTotals"); err != nil {
		return nil, err
	}
	return f.LedgerStore.ListDailyTotals(ctx, from, to)
}

func (f *Faulty) GetDebt(ctx context.Context, name string) (*domain.Debt, error) {
	if err := f.check("GetDebt"); err != nil {
		return nil, err
	}
	return f.LedgerStore.GetDebt(ctx, name)
}

func (f *Faulty) InsertDebt(ctx context.Context, d domain.Debt) error {
	if err := f.check("InsertDebt"); err != nil {
		return err
	}
	return f.LedgerStore.InsertDebt(ctx, d)
}

func (f *Faulty) UpdateDebt(ctx context.Context, d domain.Debt) error {
	if err := f.check("UpdateDebt"); err != nil {
		return err
	}
	return f.LedgerStore.UpdateDebt(ctx, d)
}

func (f *Faulty) ListDebts(ctx context.Context, status domain.DebtStatus) ([]domain.Debt, error) {
	if err := f.check("ListDebts"); err != nil {
		return nil, err
	}
	return f.LedgerStore.ListDebts(ctx, status)
}
