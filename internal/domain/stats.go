package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bucket is one grouped total.
type Bucket struct {
	Key   string
	Total decimal.Decimal
}

// Stats is the aggregate view over a set of records.
type Stats struct {
	Total      decimal.Decimal
	Count      int
	Average    decimal.Decimal
	ByCategory []Bucket
	ByUser     []Bucket
	Max        *Record
	Latest     *Record
}

// Window is a resolved time range, both ends inclusive.
type Window struct {
	Start time.Time
	End   time.Time
}

// ExportReport holds the three logical tables of a ledger export.
// Serialization is owned by the spreadsheet writer.
type ExportReport struct {
	Period     string
	From       time.Time
	To         time.Time
	Days       []Bucket
	Categories []Bucket
	Items      []ExportItem
	Total      decimal.Decimal
}

// ExportItem is one line of the line-item table.
type ExportItem struct {
	Date        string
	Description string
	Amount      decimal.Decimal
	Category    string
	DisplayName string
}

// LedgerMetrics is the snapshot served at /v1/metrics/ledger.
type LedgerMetrics struct {
	MessagesTotal   int64            `json:"messages_total"`
	Commands        map[string]int64 `json:"commands"`
	StorageErrors   int64            `json:"storage_errors"`
	ArchivedRecords int64            `json:"archived_records"`
	DuplicateHits   int64            `json:"duplicate_hits"`
}
