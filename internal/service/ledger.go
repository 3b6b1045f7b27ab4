package service

import (
	"context"
	"fmt"
	"time"

	"github.com/boddenberg/ledger-bot-go/internal/category"
	"github.com/boddenberg/ledger-bot-go/internal/domain"
	"github.com/boddenberg/ledger-bot-go/internal/infra/observability"
	"github.com/boddenberg/ledger-bot-go/internal/period"
	"github.com/boddenberg/ledger-bot-go/internal/port"
	"github.com/boddenberg/ledger-bot-go/internal/report"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("service/ledger")

// Fetch windows. Edit, delete and restore address entries by their 1-based
// position in a list fetched fresh for that command, never by id. A write
// by anyone between a listing and the command that uses its numbers shifts
// the positions; the command acts on whatever the window holds at that time.
const (
	// EditWindow is the most recent records, newest first.
	EditWindow = 20
	// DetailWindow is the unscoped "detail" listing, newest first.
	DetailWindow = 20
	// DeleteWindow is the records of the scoped period (default today),
	// newest first. A scoped "detail" lists the same window.
	DeleteWindow = 50
	// RestoreWindow is the caller's own recycle bin, most recently deleted first.
	RestoreWindow = 20
	// CategoryPreview is how many records a category query shows.
	CategoryPreview = 5
	// ReadPageSize is the page size of unbounded reads (statistics, category
	// queries, exports). PostgREST truncates a response at its max-rows
	// setting without an error, so those reads page until an empty page.
	ReadPageSize = 1000
)

// Ledger applies record commands: add, backfill, edit, delete, restore and
// the read-side queries.
type Ledger struct {
	store      port.LedgerStore
	archiver   *Archiver
	periods    *period.Resolver
	categories *category.Resolver
	logger     *zap.Logger
}

// NewLedger creates the ledger service with all dependencies injected.
func NewLedger(
	store port.LedgerStore,
	archiver *Archiver,
	periods *period.Resolver,
	categories *category.Resolver,
	logger *zap.Logger,
) *Ledger {
	return &Ledger{
		store:      store,
		archiver:   archiver,
		periods:    periods,
		categories: categories,
		logger:     logger,
	}
}

// CategoryResult is the month-to-date view of one category.
type CategoryResult struct {
	Name    string
	Total   decimal.Decimal
	Records []domain.Record
}

// AddRecord stores a new record stamped now.
func (l *Ledger) AddRecord(ctx context.Context, owner domain.Owner, e domain.Entry) (*domain.Record, error) {
	ctx, span := tracer.Start(ctx, "Ledger.AddRecord")
	defer span.End()

	return l.insert(ctx, owner, e, l.periods.Now())
}

// Backfill stores a record dated at local midnight of the resolved token.
func (l *Ledger) Backfill(ctx context.Context, owner domain.Owner, token string, e domain.Entry) (*domain.Record, error) {
	ctx, span := tracer.Start(ctx, "Ledger.Backfill")
	defer span.End()
	span.SetAttributes(attribute.String("date.token", token))

	at, ok := l.periods.ResolveToken(token)
	if !ok {
		return nil, &domain.ErrInvalidDate{Token: token}
	}
	return l.insert(ctx, owner, e, at)
}

// insert runs archival first; its outcome never affects the insert.
func (l *Ledger) insert(ctx context.Context, owner domain.Owner, e domain.Entry, at time.Time) (*domain.Record, error) {
	if err := validateEntry(e); err != nil {
		return nil, err
	}

	l.archiver.RunOnce(ctx)

	saved, err := l.store.InsertRecord(ctx, domain.Record{
		OwnerID:     owner.ID,
		DisplayName: owner.Name(),
		Amount:      e.Amount,
		Category:    e.Category,
		Description: e.Description,
		CreatedAt:   at,
	})
	if err != nil {
		return nil, fmt.Errorf("insert record: %w", err)
	}
	return saved, nil
}

// Edit rewrites the record at position index of the EditWindow.
func (l *Ledger) Edit(ctx context.Context, index int, e domain.Entry) (*domain.Record, error) {
	ctx, span := tracer.Start(ctx, "Ledger.Edit")
	defer span.End()
	span.SetAttributes(attribute.Int("index", index))

	if err := validateEntry(e); err != nil {
		return nil, err
	}

	recent, err := l.store.ListRecords(ctx, domain.RecordFilter{Limit: EditWindow})
	if err != nil {
		return nil, fmt.Errorf("list recent records: %w", err)
	}
	target, err := pick(recent, index)
	if err != nil {
		return nil, err
	}

	update := domain.RecordUpdate{Amount: e.Amount, Category: e.Category, Description: e.Description}
	if err := l.store.UpdateRecord(ctx, target.ID, update); err != nil {
		return nil, fmt.Errorf("update record %d: %w", target.ID, err)
	}

	edited := *target
	edited.Amount, edited.Category, edited.Description = e.Amount, e.Category, e.Description
	return &edited, nil
}

// Delete moves the records at the given positions of the scope's
// DeleteWindow into the caller's recycle bin. Every index is validated
// before anything is touched; one bad index rejects the batch.
//
// Each record is snapshotted, then deleted. If the delete fails its
// snapshot is removed again, so a record never sits in both sets. Records
// already moved earlier in the batch stay moved and are returned with the
// error.
func (l *Ledger) Delete(ctx context.Context, deleter domain.Owner, scope string, indices []int) ([]domain.Record, error) {
	ctx, span := tracer.Start(ctx, "Ledger.Delete")
	defer span.End()
	span.SetAttributes(attribute.String("scope", scope), attribute.Int("count", len(indices)))

	if len(indices) == 0 {
		return nil, &domain.ErrValidation{Field: "indices", Message: "no record numbers given"}
	}

	window, err := l.scopeWindow(scope)
	if err != nil {
		return nil, err
	}
	records, err := l.listWindow(ctx, window, DeleteWindow)
	if err != nil {
		return nil, err
	}

	targets := make([]domain.Record, 0, len(indices))
	for _, i := range indices {
		r, err := pick(records, i)
		if err != nil {
			return nil, err
		}
		targets = append(targets, *r)
	}

	now := l.periods.Now()
	deleted := make([]domain.Record, 0, len(targets))
	for _, r := range targets {
		snap, err := l.store.InsertDeleted(ctx, r.Snapshot(deleter.ID, now))
		if err != nil {
			return deleted, fmt.Errorf("snapshot record %d: %w", r.ID, err)
		}
		if err := l.store.DeleteRecord(ctx, r.ID); err != nil {
			if cerr := l.store.DeleteDeleted(ctx, snap.ID); cerr != nil {
				l.logger.Error("recycle bin: orphan snapshot left behind",
					zap.Int64("snapshot_id", snap.ID),
					zap.Int64("record_id", r.ID),
					observability.Diagnostic(cerr),
				)
			}
			return deleted, fmt.Errorf("delete record %d: %w", r.ID, err)
		}
		deleted = append(deleted, r)
	}

	l.logger.Info("records moved to recycle bin",
		zap.String("deleted_by", deleter.ID),
		zap.Int("count", len(deleted)),
	)
	return deleted, nil
}

// Restore re-inserts the snapshot at position index of the caller's
// RestoreWindow. The record gets a new id and keeps its original time.
func (l *Ledger) Restore(ctx context.Context, deleter domain.Owner, index int) (*domain.Record, error) {
	ctx, span := tracer.Start(ctx, "Ledger.Restore")
	defer span.End()
	span.SetAttributes(attribute.Int("index", index))

	bin, err := l.store.ListDeleted(ctx, deleter.ID, RestoreWindow)
	if err != nil {
		return nil, fmt.Errorf("list recycle bin: %w", err)
	}
	snap, err := pick(bin, index)
	if err != nil {
		return nil, err
	}

	restored, err := l.store.InsertRecord(ctx, snap.Restored())
	if err != nil {
		return nil, fmt.Errorf("reinsert record: %w", err)
	}
	if err := l.store.DeleteDeleted(ctx, snap.ID); err != nil {
		if cerr := l.store.DeleteRecord(ctx, restored.ID); cerr != nil {
			l.logger.Error("restore: duplicate record left behind",
				zap.Int64("record_id", restored.ID),
				zap.Int64("snapshot_id", snap.ID),
				observability.Diagnostic(cerr),
			)
		}
		return nil, fmt.Errorf("remove snapshot %d: %w", snap.ID, err)
	}
	return restored, nil
}

// ListDeleted returns the caller's recycle bin, most recent first.
func (l *Ledger) ListDeleted(ctx context.Context, deletedBy string, limit int) ([]domain.DeletedRecord, error) {
	ctx, span := tracer.Start(ctx, "Ledger.ListDeleted")
	defer span.End()

	if limit <= 0 {
		limit = RestoreWindow
	}
	bin, err := l.store.ListDeleted(ctx, deletedBy, limit)
	if err != nil {
		return nil, fmt.Errorf("list recycle bin: %w", err)
	}
	return bin, nil
}

// Detail lists records for the "detail" command and returns a title for
// the listing. Without a scope it shows the DetailWindow; with one it shows
// the same window "delete <scope> ..." addresses.
func (l *Ledger) Detail(ctx context.Context, scope string) ([]domain.Record, string, error) {
	ctx, span := tracer.Start(ctx, "Ledger.Detail")
	defer span.End()

	if scope == "" {
		records, err := l.store.ListRecords(ctx, domain.RecordFilter{Limit: DetailWindow})
		if err != nil {
			return nil, "", fmt.Errorf("list recent records: %w", err)
		}
		return records, "Recent records (shared)", nil
	}

	window, err := l.scopeWindow(scope)
	if err != nil {
		return nil, "", err
	}
	records, err := l.listWindow(ctx, window, DeleteWindow)
	if err != nil {
		return nil, "", err
	}

	title := scope
	if p, ok := period.Parse(scope); ok {
		title = p.Label()
	}
	return records, title + " records (shared)", nil
}

// Statistics summarizes every record in the period.
func (l *Ledger) Statistics(ctx context.Context, p period.Period) (domain.Stats, error) {
	ctx, span := tracer.Start(ctx, "Ledger.Statistics")
	defer span.End()
	span.SetAttributes(attribute.String("period", string(p)))

	window, ok := l.periods.ResolveRange(p)
	if !ok {
		return domain.Stats{}, &domain.ErrInvalidDate{Token: string(p)}
	}
	records, err := listAll(ctx, l.store, domain.RecordFilter{From: &window.Start, To: &window.End})
	if err != nil {
		return domain.Stats{}, fmt.Errorf("list records: %w", err)
	}
	return report.Summarize(records), nil
}

// QueryCategory reports this month's records for a category.
//
// A name from the keyword vocabulary also matches records whose text
// resolves to it by keyword, which catches rows stored under their
// description. Any other name matches the category column exactly, or the
// description by substring when nothing matches exactly.
func (l *Ledger) QueryCategory(ctx context.Context, name string) (*CategoryResult, error) {
	ctx, span := tracer.Start(ctx, "Ledger.QueryCategory")
	defer span.End()
	span.SetAttributes(attribute.String("category", name))

	window, _ := l.periods.ResolveRange(period.ThisMonth)
	from, to := window.Start, window.End

	var records []domain.Record
	var err error

	if l.categories.IsCategory(name) {
		var month []domain.Record
		month, err = listAll(ctx, l.store, domain.RecordFilter{From: &from, To: &to})
		for _, r := range month {
			if r.Category == name || l.categories.Resolve(r.Category+" "+r.Description) == name {
				records = append(records, r)
			}
		}
	} else {
		records, err = listAll(ctx, l.store, domain.RecordFilter{From: &from, To: &to, Category: name})
		if err == nil && len(records) == 0 {
			records, err = listAll(ctx, l.store, domain.RecordFilter{From: &from, To: &to, DescriptionContains: name})
		}
	}
	if err != nil {
		return nil, fmt.Errorf("query category %q: %w", name, err)
	}

	total := decimal.Zero
	for _, r := range records {
		total = total.Add(r.Amount)
	}
	return &CategoryResult{Name: name, Total: total, Records: records}, nil
}

// Location is the zone replies render times in.
func (l *Ledger) Location() *time.Location {
	return l.periods.Location()
}

// scopeWindow resolves a delete/detail scope; empty means today.
func (l *Ledger) scopeWindow(scope string) (domain.Window, error) {
	if scope == "" {
		w, _ := l.periods.ResolveRange(period.Today)
		return w, nil
	}
	w, ok := l.periods.Window(scope)
	if !ok {
		return domain.Window{}, &domain.ErrInvalidDate{Token: scope}
	}
	return w, nil
}

func (l *Ledger) listWindow(ctx context.Context, w domain.Window, limit int) ([]domain.Record, error) {
	records, err := l.store.ListRecords(ctx, domain.RecordFilter{From: &w.Start, To: &w.End, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return records, nil
}

func validateEntry(e domain.Entry) error {
	if !e.Amount.IsPositive() {
		return &domain.ErrValidation{Field: "amount", Message: "amount must be greater than zero"}
	}
	if e.Description == "" || e.Category == "" {
		return &domain.ErrValidation{Field: "description", Message: "description and category are required"}
	}
	return nil
}

// listAll reads every record matching f in pages of ReadPageSize. Pages are
// fetched oldest first so rows inserted meanwhile land after the cursor;
// the result is returned in the order f asks for. f.Limit and f.Offset are
// ignored.
func listAll(ctx context.Context, store port.RecordStore, f domain.RecordFilter) ([]domain.Record, error) {
	descending := !f.Ascending
	f.Ascending = true
	f.Limit = ReadPageSize

	out := make([]domain.Record, 0)
	for offset := 0; ; offset += f.Limit {
		f.Offset = offset
		page, err := store.ListRecords(ctx, f)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		out = append(out, page...)
		if len(page) < f.Limit {
			f.Limit = len(page)
		}
	}

	if descending {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out, nil
}

// pick returns the element at a 1-based position.
func pick[T any](items []T, index int) (*T, error) {
	if index < 1 || index > len(items) {
		return nil, &domain.ErrInvalidIndex{Index: index, Max: len(items)}
	}
	return &items[index-1], nil
}
