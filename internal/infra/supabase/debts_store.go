package supabase

import (
	"context"
	"net/http"

	"github.com/boddenberg/ledger-bot-go/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// debts: one row per counterparty
// ============================================================

const tableDebts = "debts"

// GetDebt returns *domain.ErrNotFound for an unknown name.
func (c *Client) GetDebt(ctx context.Context, name string) (*domain.Debt, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetDebt")
	defer span.End()
	span.SetAttributes(attribute.String("debt.name", name))

	path := from(tableDebts).eq("name", name).limit(1).String()

	var rows []domain.Debt
	err := c.guard(ctx, "debts", func() error {
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
		return nil, &domain.ErrNotFound{Resource: "debt", ID: name}
	}
	return &rows[0], nil
}

func (c *Client) InsertDebt(ctx context.Context, d domain.Debt) error {
	ctx, span := tracer.Start(ctx, "Supabase.InsertDebt")
	defer span.End()

	return c.guard(ctx, "debts", func() error {
		_, err := c.doPost(ctx, tableDebts, d)
		return err
	})
}

func (c *Client) UpdateDebt(ctx context.Context, d domain.Debt) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateDebt")
	defer span.End()

	path := from(tableDebts).eq("name", d.Name).String()
	err := c.guard(ctx, "debts", func() error {
		return c.doPatch(ctx, path, map[string]any{
			"amount":     d.Amount,
			"status":     d.Status,
			"note":       d.Note,
			"updated_at": d.UpdatedAt,
		})
	})
	if err != nil {
		return err
	}

	c.logger.Debug("supabase: debt updated",
		zap.String("name", d.Name),
		zap.String("status", string(d.Status)),
	)
	return nil
}

// ListDebts filters by status; empty means all.
func (c *Client) ListDebts(ctx context.Context, status domain.DebtStatus) ([]domain.Debt, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListDebts")
	defer span.End()

	q := from(tableDebts)
	if status != "" {
		q.eq("status", string(status))
	}
	path := q.order("amount.desc", "name.asc").String()

	rows := make([]domain.Debt, 0)
	err := c.guard(ctx, "debts", func() error {
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
