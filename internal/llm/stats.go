package llm

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"
)

// Outcome classifies one completed call.
type Outcome string

const (
	OutcomeOK        Outcome = "ok"
	OutcomeNetwork   Outcome = "network"
	OutcomeRateLimit Outcome = "rate_limit"
	OutcomeMalformed Outcome = "malformed"
	OutcomeAPI       Outcome = "api"
	OutcomeCanceled  Outcome = "canceled"
)

// Classify maps the error returned by Complete to an Outcome.
func Classify(err error) Outcome {
	var (
		netErr  *NetworkError
		rateErr *RateLimitError
		badErr  *MalformedResponseError
	)
	switch {
	case err == nil:
		return OutcomeOK
	case errors.As(err, &rateErr):
		return OutcomeRateLimit
	case errors.As(err, &netErr):
		// Client timeouts also match context.DeadlineExceeded.
		return OutcomeNetwork
	case errors.As(err, &badErr):
		return OutcomeMalformed
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCanceled
	default:
		return OutcomeAPI
	}
}

type call struct {
	at      time.Time
	ms      int64
	outcome Outcome
}

// StatsSnapshot aggregates the calls inside the window. Latency figures cover
// every call, failed ones included.
type StatsSnapshot struct {
	Count    int             `json:"count"`
	Outcomes map[Outcome]int `json:"outcomes"`
	MinMs    int64           `json:"min_ms"`
	MaxMs    int64           `json:"max_ms"`
	AvgMs    float64         `json:"avg_ms"`
	P50Ms    float64         `json:"p50_ms"`
	P95Ms    float64         `json:"p95_ms"`
	P99Ms    float64         `json:"p99_ms"`
}

// Stats keeps a rolling window of model calls for the stats endpoint.
type Stats struct {
	mu     sync.Mutex
	window time.Duration
	calls  []call // oldest first
	now    func() time.Time
}

// NewStats keeps calls for window (default one hour).
func NewStats(window time.Duration) *Stats {
	if window <= 0 {
		window = time.Hour
	}
	return &Stats{window: window, now: time.Now}
}

// Record adds one call that took d and returned err.
func (s *Stats) Record(d time.Duration, err error) {
	ms := max(d.Milliseconds(), 0)

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.expireLocked(now)
	s.calls = append(s.calls, call{at: now, ms: ms, outcome: Classify(err)})
}

func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	s.expireLocked(s.now())
	calls := slices.Clone(s.calls)
	s.mu.Unlock()

	snap := StatsSnapshot{Count: len(calls), Outcomes: map[Outcome]int{}}
	if len(calls) == 0 {
		return snap
	}

	ms := make([]int64, len(calls))
	var total int64
	for i, c := range calls {
		ms[i] = c.ms
		total += c.ms
		snap.Outcomes[c.outcome]++
	}
	slices.Sort(ms)

	snap.MinMs = ms[0]
	snap.MaxMs = ms[len(ms)-1]
	snap.AvgMs = float64(total) / float64(len(ms))
	snap.P50Ms = quantile(ms, 0.50)
	snap.P95Ms = quantile(ms, 0.95)
	snap.P99Ms = quantile(ms, 0.99)
	return snap
}

// expireLocked drops calls older than the window. Calls are appended in time
// order, so the expired ones form a prefix.
func (s *Stats) expireLocked(now time.Time) {
	cutoff := now.Add(-s.window)
	i := 0
	for i < len(s.calls) && s.calls[i].at.Before(cutoff) {
		i++
	}
	if i > 0 {
		s.calls = append(s.calls[:0], s.calls[i:]...)
	}
}

// quantile interpolates linearly between the closest ranks of sorted.
func quantile(sorted []int64, q float64) float64 {
	switch {
	case len(sorted) == 0:
		return 0
	case q <= 0:
		return float64(sorted[0])
	case q >= 1:
		return float64(sorted[len(sorted)-1])
	}
	pos := q * float64(len(sorted)-1)
	lo := int(pos)
	if lo+1 >= len(sorted) {
		return float64(sorted[lo])
	}
	frac := pos - float64(lo)
	return float64(sorted[lo]) + frac*float64(sorted[lo+1]-sorted[lo])
}
