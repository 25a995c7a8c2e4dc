package usecase

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var trackedMessages = promauto.NewCounter(prometheus.CounterOpts{
	Name: "modwatch_tracked_messages_total",
	Help: "Number of watchlisted messages counted against a quota.",
})

var quotaExceeded = promauto.NewCounter(prometheus.CounterOpts{
	Name: "modwatch_quota_exceeded_total",
	Help: "Number of tracked messages that pushed a user over quota.",
})

var auditAppendFailures = promauto.NewCounter(prometheus.CounterOpts{
	Name: "modwatch_audit_append_failures_total",
	Help: "Audit log writes that failed after retries and were dropped.",
})

var integrityFailures = promauto.NewCounter(prometheus.CounterOpts{
	Name: "modwatch_integrity_check_failures_total",
	Help: "Integrity checks that errored or reported an unhealthy store.",
})
