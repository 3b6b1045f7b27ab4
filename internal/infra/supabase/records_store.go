package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/boddenberg/ledger-bot-go/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// records / deleted_records: CRUD via PostgREST
// ============================================================

const (
	tableRecords = "records"
	tableDeleted = "deleted_records"
)

func (c *Client) InsertRecord(ctx context.Context, r domain.Record) (*domain.Record, error) {
	ctx, span := tracer.Start(ctx, "Supabase.InsertRecord")
	defer span.End()

	r.ID = 0
	var saved domain.Record
	err := c.guard(ctx, "records", func() error {
		body, err := c.doPost(ctx, tableRecords, r)
		if err != nil {
			return err
		}
		return decodeOne(body, &saved)
	})
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int64("record.id", saved.ID))
	return &saved, nil
}

// ListRecords reads records newest first (oldest first with Ascending),
// id breaking ties the same way.
func (c *Client) ListRecords(ctx context.Context, f domain.RecordFilter) ([]domain.Record, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListRecords")
	defer span.End()

	q := from(tableRecords)
	if f.From != nil {
		q.gte("created_at", timestamp(*f.From))
	}
	if f.To != nil {
		q.lte("created_at", timestamp(*f.To))
	}
	if f.Category != "" {
		q.eq("category", f.Category)
	}
	if f.DescriptionContains != "" {
		q.ilike("description", f.DescriptionContains)
	}
	if f.Ascending {
		q.order("created_at.asc", "id.asc")
	} else {
		q.order("created_at.desc", "id.desc")
	}
	q.limit(f.Limit)
	q.offset(f.Offset)

	rows := make([]domain.Record, 0)
	err := c.guard(ctx, "records", func() error {
		body, err := c.doRequest(ctx, http.MethodGet, q.String())
		if err != nil {
			return err
		}
		return decodeList(body, &rows)
	})
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("records.count", len(rows)))
	return rows, nil
}

func (c *Client) UpdateRecord(ctx context.Context, id int64, u domain.RecordUpdate) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateRecord")
	defer span.End()

	path := from(tableRecords).eq("id", strconv.FormatInt(id, 10)).String()
	return c.guard(ctx, "records", func() error {
		return c.doPatch(ctx, path, map[string]any{
			"amount":      u.Amount,
			"category":    u.Category,
			"description": u.Description,
		})
	})
}

func (c *Client) DeleteRecord(ctx context.Context, id int64) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteRecord")
	defer span.End()

	path := from(tableRecords).eq("id", strconv.FormatInt(id, 10)).String()
	return c.guard(ctx, "records", func() error {
		return c.doDelete(ctx, path)
	})
}

func (c *Client) InsertDeleted(ctx context.Context, d domain.DeletedRecord) (*domain.DeletedRecord, error) {
	ctx, span := tracer.Start(ctx, "Supabase.InsertDeleted")
	defer span.End()

	d.ID = 0
	var saved domain.DeletedRecord
	err := c.guard(ctx, "deleted_records", func() error {
		body, err := c.doPost(ctx, tableDeleted, d)
		if err != nil {
			return err
		}
		return decodeOne(body, &saved)
	})
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

func (c *Client) ListDeleted(ctx context.Context, deletedBy string, limit int) ([]domain.DeletedRecord, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListDeleted")
	defer span.End()

	path := from(tableDeleted).
		eq("deleted_by", deletedBy).
		order("deleted_at.desc", "id.desc").
		limit(limit).
		String()

	rows := make([]domain.DeletedRecord, 0)
	err := c.guard(ctx, "deleted_records", func() error {
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

func (c *Client) DeleteDeleted(ctx context.Context, id int64) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteDeleted")
	defer span.End()

	path := from(tableDeleted).eq("id", strconv.FormatInt(id, 10)).String()
	return c.guard(ctx, "deleted_records", func() error {
		return c.doDelete(ctx, path)
	})
}

// decodeOne reads the single row PostgREST returns for an insert.
func decodeOne[T any](body []byte, out *T) error {
	var rows []T
	if err := json.Unmarshal(body, &rows); err != nil {
		return fmt.Errorf("decode row: %w", err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("decode row: empty representation")
	}
	*out = rows[0]
	return nil
}

func decodeList[T any](body []byte, out *[]T) error {
	if isEmpty(body) {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode rows: %w", err)
	}
	return nil
}
