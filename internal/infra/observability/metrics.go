package observability

import (
	"time"

	"github.com/boddenberg/ledger-bot-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

const (
	metricMessages      = "ledger_messages_total"
	metricCommands      = "ledger_commands_total"
	metricStorageErrors = "ledger_storage_errors_total"
	metricArchived      = "ledger_archived_records_total"
	metricDuplicates    = "ledger_duplicate_messages_total"
)

// Metrics holds all Prometheus metrics for the ledger bot.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	commandDuration *prometheus.HistogramVec
	messages        *prometheus.CounterVec
	commands        *prometheus.CounterVec
	storageErrors   *prometheus.CounterVec
	externalErrors  *prometheus.CounterVec
	archived        prometheus.Counter
	duplicates      prometheus.Counter
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		commandDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ledger_command_duration_seconds",
				Help:    "Duration of command handling by kind.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		messages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricMessages,
				Help: "Inbound webhook messages by message type.",
			},
			[]string{"type"},
		),
		commands: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricCommands,
				Help: "Parsed commands by kind.",
			},
			[]string{"kind"},
		),
		storageErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricStorageErrors,
				Help: "Commands that failed on the backing store, by kind.",
			},
			[]string{"kind"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_external_errors_total",
				Help: "Total errors from external services other than the store.",
			},
			[]string{"service"},
		),
		archived: factory.NewCounter(
			prometheus.CounterOpts{
				Name: metricArchived,
				Help: "Records rolled up into daily totals.",
			},
		),
		duplicates: factory.NewCounter(
			prometheus.CounterOpts{
				Name: metricDuplicates,
				Help: "Redelivered webhook messages answered from the de-duplication cache.",
			},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
	}
}

// RecordCommandDuration records how long a command took to handle.
func (m *Metrics) RecordCommandDuration(kind string, d time.Duration) {
	m.commandDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// IncrMessage counts an inbound message.
func (m *Metrics) IncrMessage(msgType string) {
	m.messages.WithLabelValues(msgType).Inc()
}

// IncrCommand counts a parsed command.
func (m *Metrics) IncrCommand(kind string) {
	m.commands.WithLabelValues(kind).Inc()
}

// IncrStorageError counts a command that failed on the store.
func (m *Metrics) IncrStorageError(kind string) {
	m.storageErrors.WithLabelValues(kind).Inc()
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// AddArchived counts records removed by archival.
func (m *Metrics) AddArchived(n int) {
	m.archived.Add(float64(n))
}

// IncrDuplicate counts a redelivered message.
func (m *Metrics) IncrDuplicate() {
	m.duplicates.Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// GetLedgerSnapshot returns the counters served at GET /v1/metrics/ledger.
func (m *Metrics) GetLedgerSnapshot() *domain.LedgerMetrics {
	snap := &domain.LedgerMetrics{Commands: map[string]int64{}}

	families, err := m.Registry.Gather()
	if err != nil {
		return snap
	}

	for _, mf := range families {
		switch mf.GetName() {
		case metricMessages:
			snap.MessagesTotal = int64(sumCounters(mf))
		case metricCommands:
			for _, metric := range mf.GetMetric() {
				snap.Commands[labelValue(metric, "kind")] = int64(metric.GetCounter().GetValue())
			}
		case metricStorageErrors:
			snap.StorageErrors = int64(sumCounters(mf))
		case metricArchived:
			snap.ArchivedRecords = int64(sumCounters(mf))
		case metricDuplicates:
			snap.DuplicateHits = int64(sumCounters(mf))
		}
	}
	return snap
}

func sumCounters(mf *dto.MetricFamily) float64 {
	var total float64
	for _, metric := range mf.GetMetric() {
		total += metric.GetCounter().GetValue()
	}
	return total
}

func labelValue(metric *dto.Metric, name string) string {
	for _, lp := range metric.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}
