package observability_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/boddenberg/ledger-bot-go/internal/infra/observability"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLedgerSnapshot(t *testing.T) {
	m := observability.NewMetrics()

	m.IncrMessage("text")
	m.IncrMessage("text")
	m.IncrMessage("image")
	m.IncrCommand("record")
	m.IncrCommand("record")
	m.IncrCommand("query")
	m.IncrStorageError("record")
	m.AddArchived(3)
	m.IncrDuplicate()

	snap := m.GetLedgerSnapshot()

	assert.Equal(t, int64(3), snap.MessagesTotal)
	assert.Equal(t, map[string]int64{"record": 2, "query": 1}, snap.Commands)
	assert.Equal(t, int64(1), snap.StorageErrors)
	assert.Equal(t, int64(3), snap.ArchivedRecords)
	assert.Equal(t, int64(1), snap.DuplicateHits)
}

func TestLedgerSnapshot_Empty(t *testing.T) {
	snap := observability.NewMetrics().GetLedgerSnapshot()
	assert.Equal(t, int64(0), snap.MessagesTotal)
	assert.Empty(t, snap.Commands)
}

func TestDiagnosticTruncates(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	logger.Error("boom", observability.Diagnostic(errors.New(strings.Repeat("x", 250))))
	logger.Error("short", observability.Diagnostic(errors.New("store down")))

	entries := logs.All()
	assert.Len(t, entries[0].ContextMap()["diagnostic"], 100)
	assert.Equal(t, "store down", entries[1].ContextMap()["diagnostic"])
}
