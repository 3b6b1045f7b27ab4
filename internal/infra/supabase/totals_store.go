package supabase

import (
	"context"
	"net/http"

	"github.com/boddenberg/ledger-bot-go/internal/domain"
)

// ============================================================
// daily_totals: keyed by local calendar day
// ============================================================

const tableTotals = "daily_totals"

func (c *Client) GetDailyTotal(ctx context.Context, date string) (*domain.DailyTotal, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetDailyTotal")
	defer span.End()

	path := from(tableTotals).eq("date", date).limit(1).String()

	var rows []domain.DailyTotal
	err := c.guard(ctx, "daily_totals", func() error {
		body, err := c.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}
		return decodeList(body, &rows)
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// SaveDailyTotal upserts on date.
func (c *Client) SaveDailyTotal(ctx context.Context, t domain.DailyTotal) error {
	ctx, span := tracer.Start(ctx, "Supabase.SaveDailyTotal")
	defer span.End()

	if t.SourceIDs == nil {
		t.SourceIDs = []int64{}
	}
	path := from(tableTotals).onConflict("date").String()
	return c.guard(ctx, "daily_totals", func() error {
		_, err := c.doUpsert(ctx, path, t)
		return err
	})
}

func (c *Client) ListDailyTotals(ctx context.Context, fromDate, toDate string) ([]domain.DailyTotal, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListDailyTotals")
	defer span.End()

	q := from(tableTotals)
	if fromDate != "" {
		q.gte("date", fromDate)
	}
	if toDate != "" {
		q.lte("date", toDate)
	}
	path := q.order("date.asc").String()

	rows := make([]domain.DailyTotal, 0)
	err := c.guard(ctx, "daily_totals", func() error {
		body, err := c.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}
		return decodeList(body, &rows)
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}
