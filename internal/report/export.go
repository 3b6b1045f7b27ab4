package report

import (
	"sort"
	"time"

	"github.com/boddenberg/ledger-bot-go/internal/domain"

	"github.com/shopspring/decimal"
)

// ArchivedCategory labels money that only survives as a daily total.
const ArchivedCategory = "(archived)"

const itemTimeLayout = "2006-01-02 15:04"

// BuildExport assembles the three export tables from live records and the
// archived daily totals of the same window.
//
// A live record whose id already appears in its day's total is partially
// archived; it is counted through the total only.
func BuildExport(label string, w domain.Window, records []domain.Record, totals []domain.DailyTotal, loc *time.Location) domain.ExportReport {
	archived := make(map[string]*domain.DailyTotal, len(totals))
	for i := range totals {
		archived[totals[i].Date] = &totals[i]
	}

	live := make([]domain.Record, 0, len(records))
	for _, r := range records {
		if t, ok := archived[r.Day(loc)]; ok && t.Contains(r.ID) {
			continue
		}
		live = append(live, r)
	}
	sort.SliceStable(live, func(i, j int) bool { return live[i].CreatedAt.Before(live[j].CreatedAt) })

	days := make(map[string]decimal.Decimal)
	categories := make(map[string]decimal.Decimal)
	total := decimal.Zero

	items := make([]domain.ExportItem, 0, len(live))
	for _, r := range live {
		day := r.Day(loc)
		days[day] = days[day].Add(r.Amount)
		categories[r.Category] = categories[r.Category].Add(r.Amount)
		total = total.Add(r.Amount)
		items = append(items, domain.ExportItem{
			Date:        r.CreatedAt.In(loc).Format(itemTimeLayout),
			Description: r.Description,
			Amount:      r.Amount,
			Category:    r.Category,
			DisplayName: nameOf(r),
		})
	}

	for _, t := range totals {
		if t.Total.IsZero() {
			continue
		}
		days[t.Date] = days[t.Date].Add(t.Total)
		categories[ArchivedCategory] = categories[ArchivedCategory].Add(t.Total)
		total = total.Add(t.Total)
	}

	dayRows := make([]domain.Bucket, 0, len(days))
	for k, v := range days {
		dayRows = append(dayRows, domain.Bucket{Key: k, Total: v})
	}
	sort.Slice(dayRows, func(i, j int) bool { return dayRows[i].Key < dayRows[j].Key })

	return domain.ExportReport{
		Period:     label,
		From:       w.Start,
		To:         w.End,
		Days:       dayRows,
		Categories: buckets(categories),
		Items:      items,
		Total:      total,
	}
}
