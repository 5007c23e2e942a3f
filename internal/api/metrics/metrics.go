// Package metrics defines and registers all custom Prometheus metrics for the
// platform services. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics register with the default Prometheus registry at import time via
// promauto; each service exposes them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "platform"

// ── Token metrics ─────────────────────────────────────────────────────────────

// TokenValidationsTotal counts token validation verdicts.
// Label:
//   - outcome: "valid", "invalid", or "error" (store failure)
var TokenValidationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_validations_total",
		Help:      "Total number of token validations, by outcome.",
	},
	[]string{"outcome"},
)

// ValidationRPCFailuresTotal counts transport-level failures reaching the
// token validator, kept separate from invalid-token verdicts so an auth
// outage never masquerades as a wave of bad tokens.
var ValidationRPCFailuresTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "validation_rpc_failures_total",
		Help:      "Total number of transport failures calling the token validator.",
	},
)

// ValidationRPCDuration measures a single remote validation round-trip.
var ValidationRPCDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "validation_rpc_duration_seconds",
		Help:      "Duration of ValidateToken RPC calls, including retries.",
		Buckets:   prometheus.DefBuckets,
	},
)

// ── Credential metrics ────────────────────────────────────────────────────────

// LoginsTotal counts login attempts.
// Label:
//   - result: "success", "cached" (token served from cache), or "invalid"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// CacheOpsTotal counts credential-cache operations.
// Labels:
//   - op: "get", "set", or "delete"
//   - result: "hit", "miss", "ok", or "error"
var CacheOpsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_ops_total",
		Help:      "Total number of credential cache operations, by op and result.",
	},
	[]string{"op", "result"},
)

// ── Gateway metrics ───────────────────────────────────────────────────────────

// ForwardsTotal counts downstream forwards issued by the gateway.
// Labels:
//   - service: logical downstream name (e.g. "auth", "dashboard")
//   - outcome: "ok", "downstream_error", or "unavailable"
var ForwardsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "forwards_total",
		Help:      "Total number of gateway forwards, by downstream service and outcome.",
	},
	[]string{"service", "outcome"},
)

// ForwardDuration measures a downstream round-trip from the gateway.
var ForwardDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "forward_duration_seconds",
		Help:      "Duration of gateway forwards to downstream services.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"service"},
)
