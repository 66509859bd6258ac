package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	LoginsSucceeded       uint64
	LoginsRefused         map[string]uint64
	MailFetches           map[string]uint64
	MailFetchCount        uint64
	MailFetchTotalNs      int64
	CheckoutsCreated      uint64
	WebhookEvents         map[string]uint64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	loginsSucceeded  uint64
	checkoutsCreated uint64
	mailFetchCount   uint64
	mailFetchTotalNs int64

	mu            sync.Mutex
	loginsRefused map[string]uint64
	mailFetches   map[string]uint64
	webhookEvents map[string]uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		loginsRefused: make(map[string]uint64),
		mailFetches:   make(map[string]uint64),
		webhookEvents: make(map[string]uint64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		LoginsSucceeded:  atomic.LoadUint64(&m.loginsSucceeded),
		LoginsRefused:    copyCounts(m.loginsRefused),
		MailFetches:      copyCounts(m.mailFetches),
		MailFetchCount:   atomic.LoadUint64(&m.mailFetchCount),
		MailFetchTotalNs: atomic.LoadInt64(&m.mailFetchTotalNs),
		CheckoutsCreated: atomic.LoadUint64(&m.checkoutsCreated),
		WebhookEvents:    copyCounts(m.webhookEvents),
	}
}

func copyCounts(src map[string]uint64) map[string]uint64 {
	dst := make(map[string]uint64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// IncLoginSucceeded increments the successful login counter.
func (m *InMemoryRecorder) IncLoginSucceeded() {
	atomic.AddUint64(&m.loginsSucceeded, 1)
}

// IncLoginRefused increments the refused login counter for a reason.
func (m *InMemoryRecorder) IncLoginRefused(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loginsRefused[reason]++
}

// IncMailFetch increments the mail fetch counter for an outcome.
func (m *InMemoryRecorder) IncMailFetch(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mailFetches[status]++
}

// ObserveMailFetchDuration records a mail fetch duration.
func (m *InMemoryRecorder) ObserveMailFetchDuration(duration time.Duration) {
	atomic.AddUint64(&m.mailFetchCount, 1)
	atomic.AddInt64(&m.mailFetchTotalNs, duration.Nanoseconds())
}

// IncCheckoutCreated increments the checkout counter.
func (m *InMemoryRecorder) IncCheckoutCreated() {
	atomic.AddUint64(&m.checkoutsCreated, 1)
}

// IncWebhookEvent increments the webhook outcome counter.
func (m *InMemoryRecorder) IncWebhookEvent(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.webhookEvents[outcome]++
}
