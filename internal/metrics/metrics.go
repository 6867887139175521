// Package metrics collects ledger and bot metrics and serves them to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "splitbot"

// Collector records ledger and bot events as Prometheus metrics. It
// satisfies ledger.Observer.
type Collector struct {
	viewComputations   prometheus.Counter
	viewLatency        prometheus.Histogram
	settlementsCreated prometheus.Counter
	settlementRejects  *prometheus.CounterVec
	integrityErrors    prometheus.Counter
	overpayments       prometheus.Counter
	expensesCreated    *prometheus.CounterVec
	commands           *prometheus.CounterVec
	remindersSent      prometheus.Counter
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		viewComputations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "view_computations_total",
			Help:      "Settlement views computed.",
		}),
		viewLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "view_latency_seconds",
			Help:      "Time to compute a settlement view, including store reads.",
			Buckets:   prometheus.DefBuckets,
		}),
		settlementsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settlements_recorded_total",
			Help:      "Settlements appended.",
		}),
		settlementRejects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settlement_rejections_total",
			Help:      "Settlement submissions rejected, by reason.",
		}, []string{"reason"}),
		integrityErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "integrity_errors_total",
			Help:      "Expenses excluded from a computation because their shares were invalid.",
		}),
		overpayments: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "overpayments_total",
			Help:      "Member pairs whose payments exceeded the debt between them.",
		}),
		expensesCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expenses_created_total",
			Help:      "Expenses created, by kind.",
		}, []string{"kind"}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bot_commands_total",
			Help:      "Bot commands handled, by command.",
		}, []string{"command"}),
		remindersSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settle_reminders_sent_total",
			Help:      "Settle-up reminders sent to groups.",
		}),
	}

	reg.MustRegister(
		c.viewComputations,
		c.viewLatency,
		c.settlementsCreated,
		c.settlementRejects,
		c.integrityErrors,
		c.overpayments,
		c.expensesCreated,
		c.commands,
		c.remindersSent,
	)

	return c
}

// ViewComputed records one settlement view and how long it took.
func (c *Collector) ViewComputed(d time.Duration) {
	c.viewComputations.Inc()
	c.viewLatency.Observe(d.Seconds())
}

// SettlementRecorded counts an appended settlement.
func (c *Collector) SettlementRecorded() {
	c.settlementsCreated.Inc()
}

// SettlementRejected counts a rejected settlement.
func (c *Collector) SettlementRejected(reason string) {
	c.settlementRejects.WithLabelValues(reason).Inc()
}

// IntegrityIssues counts excluded expenses.
func (c *Collector) IntegrityIssues(n int) {
	c.integrityErrors.Add(float64(n))
}

// Overpayments counts overpaid pairs.
func (c *Collector) Overpayments(n int) {
	c.overpayments.Add(float64(n))
}

// ExpenseCreated counts a new expense of the given kind.
func (c *Collector) ExpenseCreated(kind string) {
	c.expensesCreated.WithLabelValues(kind).Inc()
}

// CommandHandled counts a bot command.
func (c *Collector) CommandHandled(command string) {
	c.commands.WithLabelValues(command).Inc()
}

// ReminderSent counts a settle-up reminder.
func (c *Collector) ReminderSent() {
	c.remindersSent.Inc()
}
