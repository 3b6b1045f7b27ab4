package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/boddenberg/ledger-bot-go/internal/command"
	"github.com/boddenberg/ledger-bot-go/internal/domain"
	"github.com/boddenberg/ledger-bot-go/internal/infra/observability"
	"github.com/boddenberg/ledger-bot-go/internal/port"
	"github.com/boddenberg/ledger-bot-go/internal/report"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Replies that do not depend on the command's data.
const (
	ReplyUnknown = "🤔 Sorry, I didn't understand that.\n\nSend \"help\" for usage."
	ReplyFailure = "❌ Something went wrong, please try again later."
)

// Bot turns one chat message into one reply. It never returns an error:
// every failure becomes a reply text.
type Bot struct {
	parser   *command.Parser
	ledger   *Ledger
	debts    *DebtLedger
	exporter *Exporter
	names    port.NicknameResolver
	baseURL  string
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewBot wires the dispatcher. names may be nil, in which case senders get
// the synthetic default name. baseURL prefixes export links.
func NewBot(
	parser *command.Parser,
	ledger *Ledger,
	debts *DebtLedger,
	exporter *Exporter,
	names port.NicknameResolver,
	baseURL string,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Bot {
	return &Bot{
		parser:   parser,
		ledger:   ledger,
		debts:    debts,
		exporter: exporter,
		names:    names,
		baseURL:  strings.TrimRight(baseURL, "/"),
		metrics:  metrics,
		logger:   logger,
	}
}

// Handle parses text from ownerID, applies it and returns the reply.
func (b *Bot) Handle(ctx context.Context, ownerID, text string) string {
	ctx, span := tracer.Start(ctx, "Bot.Handle")
	defer span.End()

	cmd := b.parser.Parse(text)
	kind := string(cmd.Kind())
	span.SetAttributes(attribute.String("command.kind", kind))
	b.metrics.IncrCommand(kind)

	start := time.Now()
	reply, err := b.dispatch(ctx, b.owner(ctx, ownerID), cmd)
	b.metrics.RecordCommandDuration(kind, time.Since(start))

	if err != nil {
		return b.failure(cmd, err)
	}
	return reply
}

func (b *Bot) owner(ctx context.Context, ownerID string) domain.Owner {
	owner := domain.Owner{ID: ownerID}
	if b.names == nil {
		return owner
	}
	name, err := b.names.Nickname(ctx, ownerID)
	if err != nil {
		b.logger.Warn("nickname lookup failed, using default name",
			zap.String("owner", ownerID),
			observability.Diagnostic(err),
		)
		return owner
	}
	owner.DisplayName = name
	return owner
}

func (b *Bot) dispatch(ctx context.Context, owner domain.Owner, cmd command.Command) (string, error) {
	loc := b.ledger.Location()

	switch c := cmd.(type) {
	case command.Help:
		return report.HelpText(), nil

	case command.Query:
		stats, err := b.ledger.Statistics(ctx, c.Period)
		if err != nil {
			return "", err
		}
		return report.FormatStats(c.Period.Label(), stats, loc), nil

	case command.Detail:
		records, title, err := b.ledger.Detail(ctx, c.Scope)
		if err != nil {
			return "", err
		}
		limit := DetailWindow
		if c.Scope != "" {
			limit = DeleteWindow
		}
		return report.FormatRecords(title, records, limit, loc), nil

	case command.Export:
		link := b.exporter.Link(owner.ID, c.Period)
		return fmt.Sprintf("📤 %s export is ready (link valid for %d minutes):\n%s/v1/export?%s",
			c.Period.Label(), int(b.exporter.signer.ttl/time.Minute), b.baseURL, link.Query().Encode()), nil

	case command.AddRecord:
		if _, err := b.ledger.AddRecord(ctx, owner, c.Entry); err != nil {
			return "", err
		}
		return "✅ Recorded!\n" + report.FormatEntry(c.Entry), nil

	case command.Backfill:
		r, err := b.ledger.Backfill(ctx, owner, c.DateToken, c.Entry)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("✅ Backfilled for %s\n%s", r.CreatedAt.In(loc).Format("01-02"), report.FormatEntry(c.Entry)), nil

	case command.Edit:
		if _, err := b.ledger.Edit(ctx, c.Index, c.Entry); err != nil {
			return "", err
		}
		return fmt.Sprintf("✅ Updated #%d\n%s", c.Index, report.FormatEntry(c.Entry)), nil

	case command.Delete:
		deleted, err := b.ledger.Delete(ctx, owner, c.Scope, c.Indices)
		if err != nil {
			return "", err
		}
		lines := []string{fmt.Sprintf("✅ Moved %d record(s) to the recycle bin:", len(deleted))}
		for _, r := range deleted {
			lines = append(lines, fmt.Sprintf("  • %s %s", r.Description, report.Money(r.Amount)))
		}
		lines = append(lines, "Send \"recycle-bin\" to review or restore.")
		return strings.Join(lines, "\n"), nil

	case command.RecycleBin:
		bin, err := b.ledger.ListDeleted(ctx, owner.ID, RestoreWindow)
		if err != nil {
			return "", err
		}
		return report.FormatDeleted(bin, loc), nil

	case command.Restore:
		r, err := b.ledger.Restore(ctx, owner, c.Index)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("♻️ Restored: %s %s [%s] (%s)",
			r.Description, report.Money(r.Amount), r.Category, r.CreatedAt.In(loc).Format("01-02 15:04")), nil

	case command.DebtAdd:
		balance, err := b.debts.Add(ctx, c.Name, c.Amount, c.Note)
		if err != nil {
			return "", err
		}
		reply := fmt.Sprintf("✅ Recorded: %s owes you %s", c.Name, report.Money(c.Amount))
		if c.Note != "" {
			reply += "\nNote: " + c.Note
		}
		return reply + "\nOutstanding: " + report.Money(balance), nil

	case command.DebtRepay:
		res, err := b.debts.Repay(ctx, c.Name, c.Amount)
		if err != nil {
			return "", err
		}
		if res.Status == domain.DebtPaid {
			return fmt.Sprintf("✅ %s repaid %s\n%s is all paid up", c.Name, report.Money(res.Paid), c.Name), nil
		}
		return fmt.Sprintf("✅ %s repaid %s\nRemaining: %s", c.Name, report.Money(res.Paid), report.Money(res.Balance)), nil

	case command.DebtList:
		debts, err := b.debts.List(ctx)
		if err != nil {
			return "", err
		}
		return report.FormatDebts(debts), nil

	case command.DebtQuery:
		debt, err := b.debts.Get(ctx, c.Name)
		var notFound *domain.ErrNotFound
		if errors.As(err, &notFound) || (err == nil && !debt.Amount.IsPositive()) {
			return fmt.Sprintf("📌 %s has no outstanding debt", c.Name), nil
		}
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("📌 %s owes: %s", c.Name, report.Money(debt.Amount)), nil

	case command.CategoryQuery:
		res, err := b.ledger.QueryCategory(ctx, c.Name)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("📂 This month [%s]: %s\n\n%s",
			res.Name, report.Money(res.Total), report.FormatRecords("Records", res.Records, CategoryPreview, loc)), nil
	}

	return ReplyUnknown, nil
}

// failure maps an error to its reply. Validation problems get a specific
// correction; anything else is logged and answered generically.
func (b *Bot) failure(cmd command.Command, err error) string {
	kind := string(cmd.Kind())

	var invalidIndex *domain.ErrInvalidIndex
	var invalidDate *domain.ErrInvalidDate
	var overpay *domain.ErrOverpay
	var notFound *domain.ErrNotFound
	var validation *domain.ErrValidation

	switch {
	case errors.As(err, &invalidIndex):
		if invalidIndex.Max == 0 {
			return "❌ There is nothing to pick from: the list is empty."
		}
		return fmt.Sprintf("❌ Number %d is out of range (1-%d). Send %q to see the current numbers.",
			invalidIndex.Index, invalidIndex.Max, listingFor(cmd))
	case errors.As(err, &invalidDate):
		return fmt.Sprintf("❌ Unrecognized date %q. Use today, yesterday, this week, this month or MM-DD.", invalidDate.Token)
	case errors.As(err, &overpay):
		return fmt.Sprintf("❌ %s owes %s; this repayment is more than that. Please adjust the amount.",
			overpay.Name, report.Money(overpay.Balance))
	case errors.As(err, &notFound):
		return fmt.Sprintf("❌ No debt found for %s", notFound.ID)
	case errors.As(err, &validation):
		return "❌ " + upperFirst(validation.Message)
	}

	b.metrics.IncrStorageError(kind)
	b.logger.Error("command failed",
		zap.String("kind", kind),
		observability.Diagnostic(err),
	)
	return ReplyFailure
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// listingFor names the command that lists the numbers cmd addresses.
func listingFor(cmd command.Command) string {
	switch c := cmd.(type) {
	case command.Delete:
		if c.Scope == "" {
			return "detail today"
		}
		return "detail " + c.Scope
	case command.Restore:
		return "recycle-bin"
	default:
		return "detail"
	}
}
