// Package memstore is an in-memory LedgerStore used for local development
// and tests. It mirrors the ordering and filter semantics of the Supabase
// adapter.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/boddenberg/ledger-bot-go/internal/domain"
)

// Store keeps every table in maps guarded by one mutex.
type Store struct {
	mu      sync.Mutex
	nextID  int64
	maxRows int
	records map[int64]domain.Record
	deleted map[int64]domain.DeletedRecord
	totals  map[string]domain.DailyTotal
	debts   map[string]domain.Debt
}

// New creates an empty store.
func New() *Store {
	return &Store{
		records: make(map[int64]domain.Record),
		deleted: make(map[int64]domain.DeletedRecord),
		totals:  make(map[string]domain.DailyTotal),
		debts:   make(map[string]domain.Debt),
	}
}

// SetMaxRows caps every record listing at n rows, whatever limit the caller
// asks for, the way PostgREST's max-rows setting does. Zero removes the cap.
func (s *Store) SetMaxRows(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maxRows = n
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// --- records ---

func (s *Store) InsertRecord(_ context.Context, r domain.Record) (*domain.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r.ID = s.id()
	s.records[r.ID] = r
	return &r, nil
}

func (s *Store) ListRecords(_ context.Context, f domain.RecordFilter) ([]domain.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	needle := strings.ToLower(f.DescriptionContains)
	out := make([]domain.Record, 0)
	for _, r := range s.records {
		if f.From != nil && r.CreatedAt.Before(*f.From) {
			continue
		}
		if f.To != nil && r.CreatedAt.After(*f.To) {
			continue
		}
		if f.Category != "" && r.Category != f.Category {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(r.Description), needle) {
			continue
		}
		out = append(out, r)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if f.Ascending {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.CreatedAt.After(b.CreatedAt)
		}
		if f.Ascending {
			return a.ID < b.ID
		}
		return a.ID > b.ID
	})

	if f.Offset > 0 {
		if f.Offset >= len(out) {
			out = out[:0]
		} else {
			out = out[f.Offset:]
		}
	}
	limit := f.Limit
	if s.maxRows > 0 && (limit <= 0 || limit > s.maxRows) {
		limit = s.maxRows
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) UpdateRecord(_ context.Context, id int64, u domain.RecordUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[id]
	if !ok {
		return nil // update-by-eq on a missing row affects nothing
	}
	r.Amount, r.Category, r.Description = u.Amount, u.Category, u.Description
	s.records[id] = r
	return nil
}

func (s *Store) DeleteRecord(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, id)
	return nil
}

// --- recycle bin ---

func (s *Store) InsertDeleted(_ context.Context, d domain.DeletedRecord) (*domain.DeletedRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d.ID = s.id()
	s.deleted[d.ID] = d
	return &d, nil
}

func (s *Store) ListDeleted(_ context.Context, deletedBy string, limit int) ([]domain.DeletedRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.DeletedRecord, 0)
	for _, d := range s.deleted {
		if d.DeletedBy == deletedBy {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DeletedAt.Equal(out[j].DeletedAt) {
			return out[i].DeletedAt.After(out[j].DeletedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) DeleteDeleted(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.deleted, id)
	return nil
}

// --- daily totals ---

func (s *Store) GetDailyTotal(_ context.Context, date string) (*domain.DailyTotal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.totals[date]
	if !ok {
		return nil, nil
	}
	t.SourceIDs = append([]int64(nil), t.SourceIDs...)
	return &t, nil
}

func (s *Store) SaveDailyTotal(_ context.Context, t domain.DailyTotal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t.SourceIDs = append([]int64(nil), t.SourceIDs...)
	s.totals[t.Date] = t
	return nil
}

func (s *Store) ListDailyTotals(_ context.Context, from, to string) ([]domain.DailyTotal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.DailyTotal, 0)
	for date, t := range s.totals {
		if (from != "" && date < from) || (to != "" && date > to) {
			continue
		}
		t.SourceIDs = append([]int64(nil), t.SourceIDs...)
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

// --- debts ---

func (s *Store) GetDebt(_ context.Context, name string) (*domain.Debt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.debts[name]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "debt", ID: name}
	}
	return &d, nil
}

func (s *Store) InsertDebt(_ context.Context, d domain.Debt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.debts[d.Name] = d
	return nil
}

func (s *Store) UpdateDebt(_ context.Context, d domain.Debt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.debts[d.Name]; ok {
		s.debts[d.Name] = d
	}
	return nil
}

func (s *Store) ListDebts(_ context.Context, status domain.DebtStatus) ([]domain.Debt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Debt, 0)
	for _, d := range s.debts {
		if status == "" || d.Status == status {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}
