// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Authentication metrics
	IncLoginSucceeded()
	IncLoginRefused(reason string) // reason: "domain" or "exchange"

	// Mailbox metrics
	IncMailFetch(status string) // status: "success" or "failed"
	ObserveMailFetchDuration(duration time.Duration)

	// Billing metrics
	IncCheckoutCreated()
	IncWebhookEvent(outcome string) // outcome: "recorded", "ignored", "rejected", "duplicate"
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
