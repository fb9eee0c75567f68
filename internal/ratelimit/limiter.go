package ratelimit

import (
	"context"
	"time"

	"github.com/uplifor/aac-api/internal/logging"
	"github.com/uplifor/aac-api/internal/metrics"
)

// Decision is the outcome of an admission check.
type Decision struct {
	Allowed   bool
	Rule      string
	Limit     int
	Remaining int
	Reset     time.Time
}

// RetryAfter is the time left until Reset, rounded up to whole seconds.
func (d Decision) RetryAfter(now time.Time) int {
	wait := d.Reset.Sub(now)
	if wait <= 0 {
		return 0
	}
	secs := int(wait / time.Second)
	if wait%time.Second != 0 {
		secs++
	}
	return secs
}

// Limiter admits or rejects requests against a sliding window over an
// EventLog. Store failures never reject a request.
//
// Count and Record are not atomic, so concurrent requests for one identifier
// can overshoot the limit by a request or so per burst.
type Limiter struct {
	log     EventLog
	metrics *metrics.Metrics
	now     func() time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock overrides the limiter's time source.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// WithMetrics records decisions and store errors on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Limiter) {
		l.metrics = m
	}
}

// NewLimiter creates a Limiter over log.
func NewLimiter(log EventLog, opts ...Option) *Limiter {
	l := &Limiter{
		log: log,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Now returns the limiter's current time.
func (l *Limiter) Now() time.Time {
	return l.now()
}

// Check evaluates one request for identifier under rule. An admitted request
// is recorded; a rejected one is not.
func (l *Limiter) Check(ctx context.Context, identifier string, rule Rule) Decision {
	now := l.now()
	defer l.prune(ctx, identifier, now.Add(-2*rule.Window))

	count, err := l.log.Count(ctx, identifier, now.Add(-rule.Window))
	if err != nil {
		return l.failOpen(ctx, "count", identifier, rule, now, err)
	}

	if count >= rule.Limit {
		oldest, ok, err := l.log.Oldest(ctx, identifier, now.Add(-rule.Window))
		if err != nil {
			return l.failOpen(ctx, "oldest", identifier, rule, now, err)
		}
		reset := now.Add(rule.Window)
		if ok {
			reset = oldest.Add(rule.Window)
		}

		l.metrics.ObserveAdmission(rule.Name, metrics.OutcomeLimited)
		return Decision{
			Allowed:   false,
			Rule:      rule.Name,
			Limit:     rule.Limit,
			Remaining: 0,
			Reset:     reset,
		}
	}

	if err := l.log.Record(ctx, identifier, now); err != nil {
		return l.failOpen(ctx, "record", identifier, rule, now, err)
	}

	l.metrics.ObserveAdmission(rule.Name, metrics.OutcomeAllowed)
	return Decision{
		Allowed:   true,
		Rule:      rule.Name,
		Limit:     rule.Limit,
		Remaining: max(rule.Limit-count-1, 0),
		Reset:     now.Add(rule.Window),
	}
}

func (l *Limiter) failOpen(ctx context.Context, op, identifier string, rule Rule, now time.Time, err error) Decision {
	logging.FromContext(ctx).Error("rate limit store error, admitting request", "op", op, "identifier", identifier, "error", err)
	l.metrics.ObserveStoreError(op)
	l.metrics.ObserveAdmission(rule.Name, metrics.OutcomeFailOpen)

	return Decision{
		Allowed:   true,
		Rule:      rule.Name,
		Limit:     rule.Limit,
		Remaining: rule.Limit,
		Reset:     now.Add(rule.Window),
	}
}

func (l *Limiter) prune(ctx context.Context, identifier string, before time.Time) {
	if err := l.log.Prune(ctx, identifier, before); err != nil {
		logging.FromContext(ctx).Warn("rate limit prune failed", "identifier", identifier, "error", err)
		l.metrics.ObserveStoreError("prune")
	}
}
