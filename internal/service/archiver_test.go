package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/boddenberg/ledger-bot-go/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedOld stores three records past the 38-day retention on two days and
// one recent record.
func seedOld(t *testing.T, f *fixture) {
	t.Helper()
	f.seed(t, "o-alice-0001", "10", "coffee", "coffee", time.Date(2026, 9, 5, 9, 0, 0, 0, shanghai))
	f.seed(t, "o-bob-000001", "20.5", "lunch", "lunch", time.Date(2026, 9, 5, 12, 0, 0, 0, shanghai))
	f.seed(t, "o-alice-0001", "5", "taxi", "taxi", time.Date(2026, 9, 6, 23, 30, 0, 0, shanghai))
	f.seed(t, "o-alice-0001", "7", "tea", "tea", time.Date(2026, 10, 14, 15, 0, 0, 0, shanghai))
}

func TestArchiver_ConservesTotal(t *testing.T) {
	f := newFixture(t, service.ArchiveConfig{}, nil)
	seedOld(t, f)
	before := sumRecords(f.live(t))

	n := f.archiver.RunOnce(context.Background())
	assert.Equal(t, 3, n)

	live := f.live(t)
	require.Len(t, live, 1)
	assert.Equal(t, "tea", live[0].Description)

	totals := f.totals(t)
	require.Len(t, totals, 2)
	assert.Equal(t, "2026-09-05", totals[0].Date)
	assert.Equal(t, "30.50", totals[0].Total.StringFixed(2))
	assert.Len(t, totals[0].SourceIDs, 2)
	assert.Equal(t, "2026-09-06", totals[1].Date)
	assert.Equal(t, "5.00", totals[1].Total.StringFixed(2))

	assert.True(t, before.Equal(sumRecords(live).Add(sumTotals(totals))))
	assert.Equal(t, int64(3), f.metrics.GetLedgerSnapshot().ArchivedRecords)

	// nothing left to do
	assert.Equal(t, 0, f.archiver.RunOnce(context.Background()))
	assert.Len(t, f.totals(t), 2)
}

func TestArchiver_ResumesAfterInterruptedDelete(t *testing.T) {
	f := newFixture(t, service.ArchiveConfig{}, nil)
	seedOld(t, f)
	before := sumRecords(f.live(t))

	f.faulty.FailOn("DeleteRecord", 1)
	assert.Equal(t, 0, f.archiver.RunOnce(context.Background()))

	// totals were saved but the sources are still live
	assert.Len(t, f.live(t), 4)
	interrupted := f.totals(t)
	require.Len(t, interrupted, 2)
	assert.Equal(t, "30.50", interrupted[0].Total.StringFixed(2))

	assert.Equal(t, 3, f.archiver.RunOnce(context.Background()))

	live := f.live(t)
	totals := f.totals(t)
	require.Len(t, live, 1)
	require.Len(t, totals, 2)
	assert.Equal(t, "30.50", totals[0].Total.StringFixed(2))
	assert.Equal(t, "5.00", totals[1].Total.StringFixed(2))
	assert.True(t, before.Equal(sumRecords(live).Add(sumTotals(totals))))
}

func TestArchiver_BatchSize(t *testing.T) {
	f := newFixture(t, service.ArchiveConfig{BatchSize: 2}, nil)
	seedOld(t, f)

	assert.Equal(t, 2, f.archiver.RunOnce(context.Background()))
	assert.Len(t, f.live(t), 2)
	assert.Equal(t, 1, f.archiver.RunOnce(context.Background()))
	assert.Len(t, f.live(t), 1)
}

func TestAddRecord_ArchivesFirst(t *testing.T) {
	f := newFixture(t, service.ArchiveConfig{}, nil)
	seedOld(t, f)

	_, err := f.ledger.AddRecord(context.Background(), alice, entry("18", "coffee", "coffee"))
	require.NoError(t, err)

	assert.Len(t, f.live(t), 2)
	assert.Len(t, f.totals(t), 2)
}

func TestAddRecord_SucceedsWhenArchivalFails(t *testing.T) {
	f := newFixture(t, service.ArchiveConfig{}, nil)
	seedOld(t, f)

	f.faulty.FailOn("ListRecords", 1)
	saved, err := f.ledger.AddRecord(context.Background(), alice, entry("18", "coffee", "coffee"))
	require.NoError(t, err)
	assert.NotZero(t, saved.ID)

	assert.Len(t, f.live(t), 5)
	assert.Empty(t, f.totals(t))
}
