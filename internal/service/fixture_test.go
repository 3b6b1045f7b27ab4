package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/boddenberg/ledger-bot-go/internal/category"
	"github.com/boddenberg/ledger-bot-go/internal/command"
	"github.com/boddenberg/ledger-bot-go/internal/domain"
	"github.com/boddenberg/ledger-bot-go/internal/infra/memstore"
	"github.com/boddenberg/ledger-bot-go/internal/infra/observability"
	"github.com/boddenberg/ledger-bot-go/internal/period"
	"github.com/boddenberg/ledger-bot-go/internal/port"
	"github.com/boddenberg/ledger-bot-go/internal/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var shanghai = time.FixedZone("CST", 8*3600)

const exportSecret = "test-export-secret"

// clock is a settable time source shared by every component of a fixture.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fakeNames struct {
	names map[string]string
	err   error
}

func (f *fakeNames) Nickname(_ context.Context, ownerID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.names[ownerID], nil
}

type fixture struct {
	clock    *clock
	store    *memstore.Store
	faulty   *memstore.Faulty
	metrics  *observability.Metrics
	periods  *period.Resolver
	archiver *service.Archiver
	ledger   *service.Ledger
	debts    *service.DebtLedger
	signer   *service.ExportSigner
	exporter *service.Exporter
	bot      *service.Bot
}

// newFixture wires every service over one in-memory store at
// Thursday 2026-10-15 14:30 Shanghai time.
func newFixture(t *testing.T, cfg service.ArchiveConfig, names *fakeNames) *fixture {
	t.Helper()

	f := &fixture{
		clock:   &clock{t: time.Date(2026, 10, 15, 14, 30, 0, 0, shanghai)},
		store:   memstore.New(),
		metrics: observability.NewMetrics(),
	}
	f.faulty = memstore.NewFaulty(f.store)
	f.periods = period.NewResolver(shanghai, f.clock.Now)

	logger := zap.NewNop()
	categories := category.NewResolver(category.DefaultTable())

	f.archiver = service.NewArchiver(f.faulty, f.periods, cfg, f.metrics, logger)
	f.ledger = service.NewLedger(f.faulty, f.archiver, f.periods, categories, logger)
	f.debts = service.NewDebtLedger(f.faulty, f.periods, logger)
	f.signer = service.NewExportSigner(exportSecret, 0, f.clock.Now)
	f.exporter = service.NewExporter(f.faulty, f.periods, f.signer, logger)

	var resolver port.NicknameResolver
	if names != nil {
		resolver = names
	}
	f.bot = service.NewBot(command.New(categories), f.ledger, f.debts, f.exporter, resolver,
		"https://ledger.example.com/", f.metrics, logger)
	return f
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func entry(amount, cat, desc string) domain.Entry {
	return domain.Entry{Amount: dec(amount), Category: cat, Description: desc}
}

// seed stores a record directly, bypassing archival.
func (f *fixture) seed(t *testing.T, owner, amount, cat, desc string, at time.Time) domain.Record {
	t.Helper()
	r, err := f.store.InsertRecord(context.Background(), domain.Record{
		OwnerID:     owner,
		DisplayName: domain.DefaultDisplayName(owner),
		Amount:      dec(amount),
		Category:    cat,
		Description: desc,
		CreatedAt:   at,
	})
	require.NoError(t, err)
	return *r
}

func (f *fixture) live(t *testing.T) []domain.Record {
	t.Helper()
	records, err := f.store.ListRecords(context.Background(), domain.RecordFilter{})
	require.NoError(t, err)
	return records
}

func (f *fixture) totals(t *testing.T) []domain.DailyTotal {
	t.Helper()
	totals, err := f.store.ListDailyTotals(context.Background(), "", "")
	require.NoError(t, err)
	return totals
}

func sumRecords(records []domain.Record) decimal.Decimal {
	sum := decimal.Zero
	for _, r := range records {
		sum = sum.Add(r.Amount)
	}
	return sum
}

func sumTotals(totals []domain.DailyTotal) decimal.Decimal {
	sum := decimal.Zero
	for _, d := range totals {
		sum = sum.Add(d.Total)
	}
	return sum
}

var errNicknameDown = errors.New("nickname service unavailable")
