package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DayLayout is the calendar-day key used by daily totals and exports.
const DayLayout = "2006-01-02"

// syntheticNameLen is how many leading characters of an owner id are used
// when no real display name is known.
const syntheticNameLen = 8

// Record is one entry of the shared ledger.
type Record struct {
	ID          int64           `json:"id,omitempty"`
	OwnerID     string          `json:"openid"`
	DisplayName string          `json:"nickname"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Day returns the local calendar day the record belongs to.
func (r Record) Day(loc *time.Location) string {
	return r.CreatedAt.In(loc).Format(DayLayout)
}

// Entry is the parsed content of an expense: what a user typed, before it
// is owned by anyone or placed in time.
type Entry struct {
	Amount      decimal.Decimal
	Category    string
	Description string
}

// DeletedRecord is a recycle-bin snapshot of a removed record.
type DeletedRecord struct {
	ID          int64           `json:"id,omitempty"`
	OriginalID  int64           `json:"original_id"`
	OwnerID     string          `json:"openid"`
	DisplayName string          `json:"nickname"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"created_at"`
	DeletedBy   string          `json:"deleted_by"`
	DeletedAt   time.Time       `json:"deleted_at"`
}

// Snapshot builds the recycle-bin row for r.
func (r Record) Snapshot(deletedBy string, at time.Time) DeletedRecord {
	return DeletedRecord{
		OriginalID:  r.ID,
		OwnerID:     r.OwnerID,
		DisplayName: r.DisplayName,
		Amount:      r.Amount,
		Category:    r.Category,
		Description: r.Description,
		CreatedAt:   r.CreatedAt,
		DeletedBy:   deletedBy,
		DeletedAt:   at,
	}
}

// Restored returns the live record equivalent to the snapshot. The id is
// left empty so the store assigns a new one.
func (d DeletedRecord) Restored() Record {
	return Record{
		OwnerID:     d.OwnerID,
		DisplayName: d.DisplayName,
		Amount:      d.Amount,
		Category:    d.Category,
		Description: d.Description,
		CreatedAt:   d.CreatedAt,
	}
}

// DailyTotal is the archived aggregate for one local calendar day.
//
// SourceIDs lists every record id already folded into Total. A record that
// is still live while its id appears here is "partially archived": its
// amount is counted, only the source delete is pending.
type DailyTotal struct {
	Date      string          `json:"date"`
	Total     decimal.Decimal `json:"total_amount"`
	SourceIDs []int64         `json:"source_ids"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Contains reports whether the record id was already aggregated.
func (d *DailyTotal) Contains(id int64) bool {
	for _, v := range d.SourceIDs {
		if v == id {
			return true
		}
	}
	return false
}

// DebtStatus is the lifecycle state of a debt row.
type DebtStatus string

const (
	DebtActive DebtStatus = "active"
	DebtPaid   DebtStatus = "paid"
)

// Debt is the running balance a counterparty owes.
type Debt struct {
	Name      string          `json:"name"`
	Amount    decimal.Decimal `json:"amount"`
	Status    DebtStatus      `json:"status"`
	Note      string          `json:"note"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// RepayResult is the outcome of a successful repayment.
type RepayResult struct {
	Name    string
	Paid    decimal.Decimal
	Balance decimal.Decimal
	Status  DebtStatus
}

// RecordFilter selects records from the store. Zero values mean "no filter".
type RecordFilter struct {
	From                *time.Time
	To                  *time.Time
	Category            string
	DescriptionContains string
	Ascending           bool
	Limit               int
	// Offset skips that many rows of the ordered result.
	Offset int
}

// RecordUpdate is the editable part of a record.
type RecordUpdate struct {
	Amount      decimal.Decimal
	Category    string
	Description string
}

// DefaultDisplayName is the synthetic name used when no nickname is known.
func DefaultDisplayName(ownerID string) string {
	if len(ownerID) <= syntheticNameLen {
		return ownerID
	}
	return ownerID[:syntheticNameLen]
}

// IsSyntheticName reports whether the record carries only the default name.
func (r Record) IsSyntheticName() bool {
	return r.DisplayName == "" || r.DisplayName == DefaultDisplayName(r.OwnerID)
}

// Owner identifies the sender of a message.
type Owner struct {
	ID          string
	DisplayName string
}

// Name is the display name, or the synthetic default when none is known.
func (o Owner) Name() string {
	if o.DisplayName != "" {
		return o.DisplayName
	}
	return DefaultDisplayName(o.ID)
}
