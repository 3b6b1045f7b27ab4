package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/boddenberg/ledger-bot-go/internal/domain"
	"github.com/boddenberg/ledger-bot-go/internal/period"
	"github.com/boddenberg/ledger-bot-go/internal/port"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// DebtLedger keeps one running balance per counterparty.
type DebtLedger struct {
	store   port.DebtStore
	periods *period.Resolver
	logger  *zap.Logger
}

// NewDebtLedger creates the debt service.
func NewDebtLedger(store port.DebtStore, periods *period.Resolver, logger *zap.Logger) *DebtLedger {
	return &DebtLedger{store: store, periods: periods, logger: logger}
}

// Add increases name's balance, creating the row on first use, and returns
// the new balance. The row becomes active again; a non-empty note replaces
// the stored one.
func (d *DebtLedger) Add(ctx context.Context, name string, amount decimal.Decimal, note string) (decimal.Decimal, error) {
	ctx, span := tracer.Start(ctx, "DebtLedger.Add")
	defer span.End()
	span.SetAttributes(attribute.String("debt.name", name))

	if !amount.IsPositive() {
		return decimal.Zero, &domain.ErrValidation{Field: "amount", Message: "amount must be greater than zero"}
	}

	now := d.periods.Now()
	existing, err := d.store.GetDebt(ctx, name)

	var notFound *domain.ErrNotFound
	switch {
	case errors.As(err, &notFound):
		debt := domain.Debt{
			Name:      name,
			Amount:    amount,
			Status:    domain.DebtActive,
			Note:      note,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := d.store.InsertDebt(ctx, debt); err != nil {
			return decimal.Zero, fmt.Errorf("insert debt %s: %w", name, err)
		}
		return amount, nil
	case err != nil:
		return decimal.Zero, fmt.Errorf("read debt %s: %w", name, err)
	}

	existing.Amount = existing.Amount.Add(amount)
	existing.Status = domain.DebtActive
	if note != "" {
		existing.Note = note
	}
	existing.UpdatedAt = now
	if err := d.store.UpdateDebt(ctx, *existing); err != nil {
		return decimal.Zero, fmt.Errorf("update debt %s: %w", name, err)
	}
	return existing.Amount, nil
}

// Repay decreases name's balance. It fails with *domain.ErrNotFound for an
// unknown name and *domain.ErrOverpay when amount exceeds the balance. The
// status is paid exactly when the balance reaches zero.
func (d *DebtLedger) Repay(ctx context.Context, name string, amount decimal.Decimal) (*domain.RepayResult, error) {
	ctx, span := tracer.Start(ctx, "DebtLedger.Repay")
	defer span.End()
	span.SetAttributes(attribute.String("debt.name", name))

	if !amount.IsPositive() {
		return nil, &domain.ErrValidation{Field: "amount", Message: "amount must be greater than zero"}
	}

	debt, err := d.store.GetDebt(ctx, name)
	if err != nil {
		return nil, err
	}
	if amount.GreaterThan(debt.Amount) {
		return nil, &domain.ErrOverpay{Name: name, Balance: debt.Amount}
	}

	debt.Amount = debt.Amount.Sub(amount)
	debt.Status = domain.DebtActive
	if debt.Amount.IsZero() {
		debt.Status = domain.DebtPaid
	}
	debt.UpdatedAt = d.periods.Now()

	if err := d.store.UpdateDebt(ctx, *debt); err != nil {
		return nil, fmt.Errorf("update debt %s: %w", name, err)
	}
	if debt.Status == domain.DebtPaid {
		d.logger.Info("debt settled", zap.String("name", name))
	}
	return &domain.RepayResult{Name: name, Paid: amount, Balance: debt.Amount, Status: debt.Status}, nil
}

// List returns active debts, largest balance first.
func (d *DebtLedger) List(ctx context.Context) ([]domain.Debt, error) {
	ctx, span := tracer.Start(ctx, "DebtLedger.List")
	defer span.End()

	debts, err := d.store.ListDebts(ctx, domain.DebtActive)
	if err != nil {
		return nil, fmt.Errorf("list debts: %w", err)
	}
	sort.SliceStable(debts, func(i, j int) bool { return debts[i].Amount.GreaterThan(debts[j].Amount) })
	return debts, nil
}

// Get returns one counterparty's row.
func (d *DebtLedger) Get(ctx context.Context, name string) (*domain.Debt, error) {
	ctx, span := tracer.Start(ctx, "DebtLedger.Get")
	defer span.End()

	return d.store.GetDebt(ctx, name)
}
