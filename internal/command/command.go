// Package command turns one inbound chat message into a typed Command.
//
// Parsing never fails: text that matches no rule becomes Unknown. Rules are
// tried in a fixed order and the first one that claims the text wins; see
// Parser.RuleNames for the order.
package command

import (
	"github.com/boddenberg/ledger-bot-go/internal/domain"
	"github.com/boddenberg/ledger-bot-go/internal/period"

	"github.com/shopspring/decimal"
)

// Kind tags a Command variant.
type Kind string

const (
	KindUnknown       Kind = "unknown"
	KindHelp          Kind = "help"
	KindQuery         Kind = "query"
	KindDetail        Kind = "detail"
	KindExport        Kind = "export"
	KindRecord        Kind = "record"
	KindBackfill      Kind = "backfill"
	KindEdit          Kind = "edit"
	KindDelete        Kind = "delete"
	KindRecycleBin    Kind = "recycle_bin"
	KindRestore       Kind = "restore"
	KindDebtAdd       Kind = "debt_add"
	KindDebtRepay     Kind = "debt_repay"
	KindDebtList      Kind = "debt_list"
	KindDebtQuery     Kind = "debt_query"
	KindCategoryQuery Kind = "category_query"
)

// Command is the closed set of parsed intents.
type Command interface {
	Kind() Kind
}

// Unknown is the result for text no rule understood.
type Unknown struct{}

// Help asks for usage instructions.
type Help struct{}

// Query asks for statistics over a named period.
type Query struct {
	Period period.Period
}

// Detail lists records. An empty Scope lists the most recent records;
// otherwise Scope is a period alias or an MM-DD token.
type Detail struct {
	Scope string
}

// Export asks for a signed download link for Period.
type Export struct {
	Period period.Period
}

// AddRecord records a new expense now.
type AddRecord struct {
	Entry domain.Entry
}

// Backfill records an expense on a past day. DateToken is resolved by the
// ledger so an unresolvable token becomes a user-facing format error.
type Backfill struct {
	DateToken string
	Entry     domain.Entry
}

// Edit replaces the record at a 1-based position of the recent listing.
type Edit struct {
	Index int
	Entry domain.Entry
}

// Delete moves records to the recycle bin. Scope is empty for today.
type Delete struct {
	Scope   string
	Indices []int
}

// RecycleBin lists the sender's deleted records.
type RecycleBin struct{}

// Restore brings back the recycle-bin entry at a 1-based position.
type Restore struct {
	Index int
}

// DebtAdd records that Name owes Amount more.
type DebtAdd struct {
	Name   string
	Amount decimal.Decimal
	Note   string
}

// DebtRepay records a repayment by Name.
type DebtRepay struct {
	Name   string
	Amount decimal.Decimal
}

// DebtList shows every active debt.
type DebtList struct{}

// DebtQuery shows a single counterparty's balance.
type DebtQuery struct {
	Name string
}

// CategoryQuery reports this month's spending for a category or keyword.
type CategoryQuery struct {
	Name string
}

func (Unknown) Kind() Kind       { return KindUnknown }
func (Help) Kind() Kind          { return KindHelp }
func (Query) Kind() Kind         { return KindQuery }
func (Detail) Kind() Kind        { return KindDetail }
func (Export) Kind() Kind        { return KindExport }
func (AddRecord) Kind() Kind     { return KindRecord }
func (Backfill) Kind() Kind      { return KindBackfill }
func (Edit) Kind() Kind          { return KindEdit }
func (Delete) Kind() Kind        { return KindDelete }
func (RecycleBin) Kind() Kind    { return KindRecycleBin }
func (Restore) Kind() Kind       { return KindRestore }
func (DebtAdd) Kind() Kind       { return KindDebtAdd }
func (DebtRepay) Kind() Kind     { return KindDebtRepay }
func (DebtList) Kind() Kind      { return KindDebtList }
func (DebtQuery) Kind() Kind     { return KindDebtQuery }
func (CategoryQuery) Kind() Kind { return KindCategoryQuery }
