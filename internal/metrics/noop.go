package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncLoginSucceeded is a no-op.
func (n *NoopRecorder) IncLoginSucceeded() {}

// IncLoginRefused is a no-op.
func (n *NoopRecorder) IncLoginRefused(reason string) {}

// IncMailFetch is a no-op.
func (n *NoopRecorder) IncMailFetch(status string) {}

// ObserveMailFetchDuration is a no-op.
func (n *NoopRecorder) ObserveMailFetchDuration(duration time.Duration) {}

// IncCheckoutCreated is a no-op.
func (n *NoopRecorder) IncCheckoutCreated() {}

// IncWebhookEvent is a no-op.
func (n *NoopRecorder) IncWebhookEvent(outcome string) {}
