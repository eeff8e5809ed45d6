package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

const namespace = "propledger"

// Reasons a post attempt did not post.
const (
	RejectUnbalanced    = "unbalanced"
	RejectPeriodClosed  = "period_closed"
	RejectAlreadyPosted = "already_posted"
)

// Ledger counts ledger activity. A nil *Ledger records nothing.
type Ledger struct {
	entriesPosted      *prometheus.CounterVec
	postRejected       *prometheus.CounterVec
	automatedDuplicate prometheus.Counter
	paymentsApplied    *prometheus.CounterVec
	paymentAmount      *prometheus.CounterVec
	budgetAlerts       *prometheus.CounterVec
}

// New creates the ledger counters and registers them on reg.
// A nil reg uses prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Ledger {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Ledger{
		entriesPosted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "journal",
			Name:      "entries_posted_total",
			Help:      "Journal entries posted, by entry type.",
		}, []string{"entry_type"}),
		postRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "journal",
			Name:      "post_rejected_total",
			Help:      "Post attempts refused by ledger rules, by reason.",
		}, []string{"reason"}),
		automatedDuplicate: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "journal",
			Name:      "automated_duplicates_total",
			Help:      "Automated entries skipped because their reference was already recorded.",
		}),
		paymentsApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "billing",
			Name:      "payments_applied_total",
			Help:      "Payments applied to invoices, by payment type.",
		}, []string{"payment_type"}),
		paymentAmount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "billing",
			Name:      "payment_amount_total",
			Help:      "Sum of applied payment amounts, by payment type.",
		}, []string{"payment_type"}),
		budgetAlerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "budget",
			Name:      "alerts_total",
			Help:      "Budget alerts raised, by level.",
		}, []string{"level"}),
	}

	reg.MustRegister(
		m.entriesPosted,
		m.postRejected,
		m.automatedDuplicate,
		m.paymentsApplied,
		m.paymentAmount,
		m.budgetAlerts,
	)
	return m
}

// EntryPosted counts a posted entry.
func (m *Ledger) EntryPosted(entryType string) {
	if m == nil {
		return
	}
	m.entriesPosted.WithLabelValues(entryType).Inc()
}

// PostRejected counts a refused post attempt.
func (m *Ledger) PostRejected(reason string) {
	if m == nil {
		return
	}
	m.postRejected.WithLabelValues(reason).Inc()
}

// AutomatedDuplicate counts a skipped automated entry.
func (m *Ledger) AutomatedDuplicate() {
	if m == nil {
		return
	}
	m.automatedDuplicate.Inc()
}

// PaymentApplied counts a payment and its amount.
func (m *Ledger) PaymentApplied(paymentType string, amount decimal.Decimal) {
	if m == nil {
		return
	}
	m.paymentsApplied.WithLabelValues(paymentType).Inc()
	m.paymentAmount.WithLabelValues(paymentType).Add(amount.InexactFloat64())
}

// BudgetAlert counts a budget alert at level.
func (m *Ledger) BudgetAlert(level string) {
	if m == nil {
		return
	}
	m.budgetAlerts.WithLabelValues(level).Inc()
}
