package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/boddenberg/ledger-bot-go/internal/domain"

	"github.com/shopspring/decimal"
)

const listTimeLayout = "01-02 15:04"

// FormatStats renders the statistics block for a period.
func FormatStats(label string, s domain.Stats, loc *time.Location) string {
	if s.Count == 0 {
		return fmt.Sprintf("📊 %s: no records", label)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📊 %s statistics (shared)\n", label)
	fmt.Fprintf(&b, "💰 Total: %s\n", Money(s.Total))
	fmt.Fprintf(&b, "🧾 Records: %d\n", s.Count)
	fmt.Fprintf(&b, "📉 Average: %s\n", Money(s.Average))

	if len(s.ByCategory) > 0 {
		b.WriteString("\n📂 By category:\n")
		for _, c := range s.ByCategory {
			fmt.Fprintf(&b, "  • %s: %s\n", c.Key, Money(c.Total))
		}
	}

	// A single named spender adds nothing over the total.
	if len(s.ByUser) > 1 {
		b.WriteString("\n👥 By person:\n")
		for _, u := range s.ByUser {
			fmt.Fprintf(&b, "  • %s: %s\n", u.Key, Money(u.Total))
		}
	}

	if s.Max != nil {
		fmt.Fprintf(&b, "\n🔝 Largest: %s %s [%s]", s.Max.Description, Money(s.Max.Amount), s.Max.Category)
	}
	if s.Latest != nil {
		fmt.Fprintf(&b, "\n🕒 Latest: %s %s %s",
			s.Latest.CreatedAt.In(loc).Format(listTimeLayout), s.Latest.Description, Money(s.Latest.Amount))
	}
	return b.String()
}

// FormatRecords renders a numbered listing. Numbers are the positions
// edit and delete address.
func FormatRecords(title string, records []domain.Record, limit int, loc *time.Location) string {
	if len(records) == 0 {
		return "📝 No records"
	}

	lines := []string{fmt.Sprintf("📝 %s:", title)}
	for i, r := range records {
		if limit > 0 && i >= limit {
			break
		}
		lines = append(lines, fmt.Sprintf("%d. %s %s %s %s [%s]",
			i+1,
			r.CreatedAt.In(loc).Format(listTimeLayout),
			nameOf(r),
			r.Description,
			Money(r.Amount),
			r.Category,
		))
	}
	if limit > 0 && len(records) > limit {
		lines = append(lines, fmt.Sprintf("  ... %d records in total", len(records)))
	}
	return strings.Join(lines, "\n")
}

func nameOf(r domain.Record) string {
	if r.DisplayName != "" {
		return r.DisplayName
	}
	return domain.DefaultDisplayName(r.OwnerID)
}

// FormatDeleted renders a recycle-bin listing; numbers are restore indices.
func FormatDeleted(items []domain.DeletedRecord, loc *time.Location) string {
	if len(items) == 0 {
		return "🗑 Recycle bin is empty"
	}

	lines := []string{"🗑 Recycle bin:"}
	for i, d := range items {
		lines = append(lines, fmt.Sprintf("%d. %s %s %s [%s] (deleted %s)",
			i+1,
			d.CreatedAt.In(loc).Format(listTimeLayout),
			d.Description,
			Money(d.Amount),
			d.Category,
			d.DeletedAt.In(loc).Format(listTimeLayout),
		))
	}
	lines = append(lines, "Send \"restore <n>\" to put an entry back.")
	return strings.Join(lines, "\n")
}

// FormatDebts renders the debt overview with its total.
func FormatDebts(debts []domain.Debt) string {
	if len(debts) == 0 {
		return "📌 Debts: nothing outstanding"
	}

	total := decimal.Zero
	lines := []string{"📌 Debts (owed to me)"}
	for _, d := range debts {
		total = total.Add(d.Amount)
		line := fmt.Sprintf("  • %s: %s", d.Name, Money(d.Amount))
		if d.Note != "" {
			line += " (" + d.Note + ")"
		}
		lines = append(lines, line)
	}
	lines = append(lines, "Total: "+Money(total))
	return strings.Join(lines, "\n")
}

// FormatEntry renders the confirmation body shared by record, backfill and
// edit replies.
func FormatEntry(e domain.Entry) string {
	return fmt.Sprintf("%s: %s\nCategory: %s", e.Description, Money(e.Amount), e.Category)
}

// HelpText is the usage guide.
func HelpText() string {
	return `📖 Ledger bot guide

[Record]
<category> <description> <amount>
  e.g. Supper chicken wings 18
<description> <amount>  (category = description)
  e.g. coffee 18

[Backfill]
backfill <yesterday|MM-DD> <record>
  e.g. backfill 01-21 taxi 32

[Statistics]
today / yesterday / this week / this month / 7d / 15d / 30d
statistics  (last 7 days)

[Listing]
detail [today|yesterday|MM-DD]

[Edit / delete]
edit 1 Supper chicken wings 16
delete 2    delete 1,3,5-7    delete yesterday 1
recycle-bin    restore 1

[Categories]
category <name> / stats <name> / <category name>

[Debts (owed to me)]
owe Alice 500 [note]
repay Alice 200
debts    debts Alice

[Export]
export [this month|7d|...]

💡 All records are shared between everyone using the bot.`
}
