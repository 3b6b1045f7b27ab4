// Package report turns ledger query results into statistics, reply texts
// and export tables. Everything here is a pure function over its input.
package report

import (
	"sort"

	"github.com/boddenberg/ledger-bot-go/internal/domain"

	"github.com/shopspring/decimal"
)

// Summarize aggregates a record set. Records with a synthetic display name
// are counted everywhere except the per-person breakdown.
func Summarize(records []domain.Record) domain.Stats {
	s := domain.Stats{
		Total:   decimal.Zero,
		Average: decimal.Zero,
		Count:   len(records),
	}
	if len(records) == 0 {
		return s
	}

	byCategory := make(map[string]decimal.Decimal)
	byUser := make(map[string]decimal.Decimal)

	for i := range records {
		r := &records[i]
		s.Total = s.Total.Add(r.Amount)
		byCategory[r.Category] = byCategory[r.Category].Add(r.Amount)
		if !r.IsSyntheticName() {
			byUser[r.DisplayName] = byUser[r.DisplayName].Add(r.Amount)
		}
		if s.Max == nil || r.Amount.GreaterThan(s.Max.Amount) {
			s.Max = r
		}
		if s.Latest == nil || r.CreatedAt.After(s.Latest.CreatedAt) {
			s.Latest = r
		}
	}

	s.Average = s.Total.Div(decimal.NewFromInt(int64(len(records))))
	s.ByCategory = buckets(byCategory)
	s.ByUser = buckets(byUser)
	return s
}

// buckets orders grouped totals by amount, largest first, then by key.
func buckets(m map[string]decimal.Decimal) []domain.Bucket {
	out := make([]domain.Bucket, 0, len(m))
	for k, v := range m {
		out = append(out, domain.Bucket{Key: k, Total: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Total.Cmp(out[j].Total); c != 0 {
			return c > 0
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// Money renders an amount with two decimals.
func Money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
