package metrics

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
)

// BadgeMetrics groups the counters exported by ledgers and the wallet registry.
type BadgeMetrics struct {
	minted      *prometheus.CounterVec
	revoked     *prometheus.CounterVec
	migrated    *prometheus.CounterVec
	rejected    *prometheus.CounterVec
	links       prometheus.Counter
	transitions *prometheus.CounterVec
}

var (
	badgesOnce     sync.Once
	badgesRegistry *BadgeMetrics
)

func Badges() *BadgeMetrics {
	badgesOnce.Do(func() {
		badgesRegistry = &BadgeMetrics{
			minted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "soulbound_badges_minted_total",
				Help: "Badges minted per ledger.",
			}, []string{"ledger"}),
			revoked: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "soulbound_badges_revoked_total",
				Help: "Badges revoked per ledger.",
			}, []string{"ledger"}),
			migrated: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "soulbound_badges_migrated_total",
				Help: "Badges moved from an original key to its linked wallet per ledger.",
			}, []string{"ledger"}),
			rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "soulbound_operations_rejected_total",
				Help: "Rejected state-changing calls by operation.",
			}, []string{"operation"}),
			links: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "soulbound_wallet_links_total",
				Help: "Wallet links recorded by the registry.",
			}),
			transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "soulbound_wallet_transitions_total",
				Help: "Registry fan-out migrations by outcome.",
			}, []string{"outcome"}),
		}
		prometheus.MustRegister(
			badgesRegistry.minted,
			badgesRegistry.revoked,
			badgesRegistry.migrated,
			badgesRegistry.rejected,
			badgesRegistry.links,
			badgesRegistry.transitions,
		)
	})
	return badgesRegistry
}

func (m *BadgeMetrics) ObserveMinted(ledger common.Address, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.minted.WithLabelValues(ledgerLabel(ledger)).Add(float64(count))
}

func (m *BadgeMetrics) ObserveRevoked(ledger common.Address, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.revoked.WithLabelValues(ledgerLabel(ledger)).Add(float64(count))
}

func (m *BadgeMetrics) ObserveMigrated(ledger common.Address, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.migrated.WithLabelValues(ledgerLabel(ledger)).Add(float64(count))
}

func (m *BadgeMetrics) ObserveRejected(operation string) {
	if m == nil {
		return
	}
	if operation == "" {
		operation = "unknown"
	}
	m.rejected.WithLabelValues(operation).Inc()
}

func (m *BadgeMetrics) ObserveLinked() {
	if m == nil {
		return
	}
	m.links.Inc()
}

func (m *BadgeMetrics) ObserveTransition(ok bool) {
	if m == nil {
		return
	}
	outcome := "committed"
	if !ok {
		outcome = "aborted"
	}
	m.transitions.WithLabelValues(outcome).Inc()
}

func ledgerLabel(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}
