package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/boddenberg/ledger-bot-go/internal/domain"
	"github.com/boddenberg/ledger-bot-go/internal/period"
	"github.com/boddenberg/ledger-bot-go/internal/port"
	"github.com/boddenberg/ledger-bot-go/internal/report"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultExportLinkTTL is how long a signed export link stays valid.
const DefaultExportLinkTTL = 600 * time.Second

// ExportLink is the signed query of an export download.
type ExportLink struct {
	OwnerID   string
	Period    string
	IssuedAt  int64
	Signature string
}

// Query encodes the link as URL parameters.
func (l ExportLink) Query() url.Values {
	return url.Values{
		"owner":  {l.OwnerID},
		"period": {l.Period},
		"ts":     {strconv.FormatInt(l.IssuedAt, 10)},
		"sig":    {l.Signature},
	}
}

// ParseExportLink reads a link back from URL parameters. A malformed link
// fails the same way a forged one does.
func ParseExportLink(q url.Values) (ExportLink, error) {
	ts, err := strconv.ParseInt(q.Get("ts"), 10, 64)
	if err != nil {
		return ExportLink{}, &domain.ErrSignature{}
	}
	return ExportLink{
		OwnerID:   q.Get("owner"),
		Period:    q.Get("period"),
		IssuedAt:  ts,
		Signature: q.Get("sig"),
	}, nil
}

// ExportSigner signs and verifies export links with HMAC-SHA256 over
// "ownerId|period|issuedAt".
type ExportSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewExportSigner creates a signer. A zero ttl takes the default; a nil
// now uses time.Now.
func NewExportSigner(secret string, ttl time.Duration, now func() time.Time) *ExportSigner {
	if ttl <= 0 {
		ttl = DefaultExportLinkTTL
	}
	if now == nil {
		now = time.Now
	}
	return &ExportSigner{secret: []byte(secret), ttl: ttl, now: now}
}

// Sign issues a link for owner and period stamped now.
func (s *ExportSigner) Sign(ownerID, periodName string) ExportLink {
	issued := s.now().Unix()
	return ExportLink{
		OwnerID:   ownerID,
		Period:    periodName,
		IssuedAt:  issued,
		Signature: s.mac(ownerID, periodName, issued),
	}
}

// Verify accepts a link whose signature matches and whose age is within
// the validity window. Every rejection is the same *domain.ErrSignature.
func (s *ExportSigner) Verify(l ExportLink) error {
	expected := s.mac(l.OwnerID, l.Period, l.IssuedAt)
	if !hmac.Equal([]byte(expected), []byte(l.Signature)) {
		return &domain.ErrSignature{}
	}
	age := s.now().Sub(time.Unix(l.IssuedAt, 0))
	if age < 0 || age > s.ttl {
		return &domain.ErrSignature{}
	}
	return nil
}

func (s *ExportSigner) mac(ownerID, periodName string, issuedAt int64) string {
	h := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(h, "%s|%s|%d", ownerID, periodName, issuedAt)
	return hex.EncodeToString(h.Sum(nil))
}

// Exporter builds the export tables for a period.
type Exporter struct {
	store   port.LedgerStore
	periods *period.Resolver
	signer  *ExportSigner
	logger  *zap.Logger
}

// NewExporter creates the export service.
func NewExporter(store port.LedgerStore, periods *period.Resolver, signer *ExportSigner, logger *zap.Logger) *Exporter {
	return &Exporter{store: store, periods: periods, signer: signer, logger: logger}
}

// Link issues a signed download link for the owner.
func (e *Exporter) Link(ownerID string, p period.Period) ExportLink {
	return e.signer.Sign(ownerID, string(p))
}

// Download verifies the link and builds its report. A link that names an
// unknown period is rejected like a forged one.
func (e *Exporter) Download(ctx context.Context, l ExportLink) (*domain.ExportReport, error) {
	ctx, span := tracer.Start(ctx, "Exporter.Download")
	defer span.End()

	if err := e.signer.Verify(l); err != nil {
		e.logger.Warn("export link rejected", zap.String("owner", l.OwnerID))
		return nil, err
	}
	p, ok := period.Parse(l.Period)
	if !ok {
		return nil, &domain.ErrSignature{}
	}
	return e.Build(ctx, p)
}

// Build reads live records and archived totals of the period concurrently
// and assembles the report.
func (e *Exporter) Build(ctx context.Context, p period.Period) (*domain.ExportReport, error) {
	ctx, span := tracer.Start(ctx, "Exporter.Build")
	defer span.End()
	span.SetAttributes(attribute.String("period", string(p)))

	window, ok := e.periods.ResolveRange(p)
	if !ok {
		return nil, &domain.ErrInvalidDate{Token: string(p)}
	}
	loc := e.periods.Location()

	var (
		records []domain.Record
		totals  []domain.DailyTotal
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		records, err = listAll(gctx, e.store, domain.RecordFilter{
			From:      &window.Start,
			To:        &window.End,
			Ascending: true,
		})
		if err != nil {
			return fmt.Errorf("list records: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		totals, err = e.store.ListDailyTotals(gctx,
			window.Start.In(loc).Format(domain.DayLayout),
			window.End.In(loc).Format(domain.DayLayout),
		)
		if err != nil {
			return fmt.Errorf("list daily totals: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rep := report.BuildExport(p.Label(), window, records, totals, loc)
	return &rep, nil
}
