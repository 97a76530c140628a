// Package metrics counts what a generation run produced and writes the
// counters in the Prometheus text format for node_exporter's textfile
// collector.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/dvloznov/finance-datagen/internal/domain"
	"github.com/dvloznov/finance-datagen/internal/persona"
)

const namespace = "datagen"

// Collector implements generator.Recorder on a private registry. All
// Prometheus collectors are safe for concurrent use, so one Collector may be
// shared by the transaction workers.
type Collector struct {
	registry        *prometheus.Registry
	users           *prometheus.CounterVec
	accounts        *prometheus.CounterVec
	transactions    *prometheus.CounterVec
	expensesClamped prometheus.Counter
	expensesSkipped prometheus.Counter
	chargesDeclined prometheus.Counter
	stepDuration    *prometheus.HistogramVec
	lastRun         prometheus.Gauge
}

func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Collector{
		registry: registry,
		users: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "users_generated_total",
			Help:      "Users generated, by persona and income bracket",
		}, []string{"persona", "income_bracket"}),
		accounts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "accounts_generated_total",
			Help:      "Accounts generated, by subtype",
		}, []string{"subtype"}),
		transactions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_generated_total",
			Help:      "Transactions generated, by stream",
		}, []string{"stream"}),
		expensesClamped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expenses_clamped_total",
			Help:      "Expense draws rescaled to fit the account headroom",
		}),
		expensesSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expenses_skipped_total",
			Help:      "Expense draws dropped because no headroom was left",
		}),
		chargesDeclined: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscription_charges_declined_total",
			Help:      "Subscription charges dropped because checking could not cover them",
		}),
		stepDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_step_duration_seconds",
			Help:      "Wall time of each pipeline step",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"step"}),
		lastRun: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished",
		}),
	}
}

func (c *Collector) UserGenerated(p persona.Persona, bracket domain.IncomeBracket) {
	c.users.WithLabelValues(p.String(), string(bracket)).Inc()
}

func (c *Collector) AccountGenerated(subtype domain.AccountSubtype) {
	c.accounts.WithLabelValues(string(subtype)).Inc()
}

func (c *Collector) TransactionsGenerated(stream domain.Stream, n int) {
	c.transactions.WithLabelValues(string(stream)).Add(float64(n))
}

func (c *Collector) ExpenseClamped() { c.expensesClamped.Inc() }

func (c *Collector) ExpenseSkipped() { c.expensesSkipped.Inc() }

func (c *Collector) ChargeDeclined() { c.chargesDeclined.Inc() }

// ObserveStep records how long a pipeline step took.
func (c *Collector) ObserveStep(step string, d time.Duration) {
	c.stepDuration.WithLabelValues(step).Observe(d.Seconds())
}

// MarkFinished stamps the completion time of the run.
func (c *Collector) MarkFinished(t time.Time) {
	c.lastRun.Set(float64(t.Unix()))
}

// Registry exposes the underlying registry, mainly for tests.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// WriteTextfile writes every metric to path atomically.
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
