// Package resilient guards a rate-limited question-answering call with a
// paced, exponentially backed-off retry loop that always produces an answer.
package resilient

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"
)

// ExhaustedAnswer is returned in place of an answer once every attempt failed.
const ExhaustedAnswer = "Query quota exhausted. Please try again later."

// Querier answers a single question. Any error is treated as transient.
type Querier interface {
	Query(ctx context.Context, question string) (string, error)
}

// QuerierFunc adapts a function to the Querier interface.
type QuerierFunc func(ctx context.Context, question string) (string, error)

// Query calls f(ctx, question).
func (f QuerierFunc) Query(ctx context.Context, question string) (string, error) {
	return f(ctx, question)
}

// Sleeper blocks for the given duration.
type Sleeper func(time.Duration)

// Warning describes one failed attempt. Wait is the backoff that follows it.
type Warning struct {
	Attempt int
	Wait    time.Duration
	Err     error
}

// WarnFunc receives a Warning for every failed attempt.
type WarnFunc func(Warning)

// Policy holds the retry parameters.
type Policy struct {
	MaxAttempts int
	Pacing      time.Duration
	BackoffUnit time.Duration
}

// DefaultPolicy returns five attempts, a 4s pacing delay and a 1s backoff unit.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 5, Pacing: 4 * time.Second, BackoffUnit: time.Second}
}

// Backoff returns the wait after the failed attempt (0-indexed): unit * 2^attempt,
// saturating at the largest representable duration.
func (p Policy) Backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if p.BackoffUnit <= 0 {
		return 0
	}
	if attempt >= 63 || p.BackoffUnit > time.Duration(math.MaxInt64)>>attempt {
		return time.Duration(math.MaxInt64)
	}
	return p.BackoffUnit << attempt
}

// Response is the outcome of one wrapped query: either Answer, or Exhausted
// with the last failure in Err.
type Response struct {
	Answer    string
	Attempts  int
	Exhausted bool
	Err       error
}

// Text returns the answer, or ExhaustedAnswer when every attempt failed.
func (r Response) Text() string {
	if r.Exhausted {
		return ExhaustedAnswer
	}
	return r.Answer
}

// Wrapper runs a Querier under a Policy.
type Wrapper struct {
	querier Querier
	policy  Policy
	sleep   Sleeper
	warn    WarnFunc
	metrics *Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// Option customizes a Wrapper.
type Option func(*Wrapper)

// WithSleeper replaces time.Sleep.
func WithSleeper(s Sleeper) Option { return func(w *Wrapper) { w.sleep = s } }

// WithWarnFunc registers the default receiver of per-attempt warnings.
func WithWarnFunc(fn WarnFunc) Option { return func(w *Wrapper) { w.warn = fn } }

// WithMetrics records attempt outcomes into m.
func WithMetrics(m *Metrics) Option { return func(w *Wrapper) { w.metrics = m } }

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(w *Wrapper) { w.logger = l } }

// New creates a Wrapper around q.
func New(q Querier, policy Policy, opts ...Option) *Wrapper {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = DefaultPolicy().MaxAttempts
	}
	w := &Wrapper{
		querier: q,
		policy:  policy,
		sleep:   time.Sleep,
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Policy returns the wrapper's retry policy.
func (w *Wrapper) Policy() Policy { return w.policy }

// Query runs the question through the underlying Querier with pacing and
// backoff. It never returns an error: exhaustion is reported in the Response.
func (w *Wrapper) Query(ctx context.Context, question string) Response {
	return w.QueryWithWarnings(ctx, question, w.warn)
}

// QueryWithWarnings is Query with a per-call warning receiver, which takes
// the place of the one set with WithWarnFunc.
func (w *Wrapper) QueryWithWarnings(ctx context.Context, question string, warn WarnFunc) Response {
	start := w.now()
	var lastErr error
	for attempt := 0; attempt < w.policy.MaxAttempts; attempt++ {
		w.sleep(w.policy.Pacing)

		answer, err := w.attempt(ctx, question)
		if err == nil {
			w.metrics.observe(outcomeSuccess, w.now().Sub(start))
			w.logger.Debug("query answered", zap.Int("attempt", attempt+1))
			return Response{Answer: answer, Attempts: attempt + 1}
		}

		lastErr = err
		wait := w.policy.Backoff(attempt)
		w.metrics.attemptFailed()
		w.logger.Warn("query attempt failed",
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", w.policy.MaxAttempts),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)
		if warn != nil {
			warn(Warning{Attempt: attempt, Wait: wait, Err: err})
		}
		w.sleep(wait)
	}

	w.metrics.observe(outcomeExhausted, w.now().Sub(start))
	w.logger.Error("query attempts exhausted",
		zap.Int("attempts", w.policy.MaxAttempts),
		zap.Error(lastErr),
	)
	return Response{Attempts: w.policy.MaxAttempts, Exhausted: true, Err: lastErr}
}

// attempt turns a panic in the querier into an error so it is retried like
// any other failure.
func (w *Wrapper) attempt(ctx context.Context, question string) (answer string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return w.querier.Query(ctx, question)
}
