package annotation

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/agentstation/skinmap/pkg/constants"
	"github.com/agentstation/skinmap/pkg/errors"
	"github.com/agentstation/skinmap/pkg/logging"
)

// RetryOptions bounds the attempts made for one request.
type RetryOptions struct {
	Attempts      int           // Total attempts, including the first
	BaseDelay     time.Duration // Delay before attempt i+1 is BaseDelay * 2^i
	MaxDelay      time.Duration
	RatePerSecond float64 // Zero or negative disables the limiter
	Burst         int
}

// DefaultRetryOptions returns three attempts with a one second base delay.
func DefaultRetryOptions() *RetryOptions {
	return &RetryOptions{
		Attempts:      constants.MaxRetries,
		BaseDelay:     constants.RetryBackoff,
		MaxDelay:      constants.MaxRetryBackoff,
		RatePerSecond: constants.DefaultRatePerSecond,
		Burst:         1,
	}
}

type retrying struct {
	next    Service
	opts    RetryOptions
	limiter *rate.Limiter
	sleep   func(ctx context.Context, d time.Duration) error
}

// WithRetry wraps svc with bounded retries and a rate limiter. Errors that
// are not retryable, such as a 400 from the backend, stop immediately. When
// every attempt fails the last error is returned as an
// AnnotationServiceError carrying the attempt count.
func WithRetry(svc Service, opts *RetryOptions) Service {
	if opts == nil {
		opts = DefaultRetryOptions()
	}
	o := *opts
	if o.Attempts <= 0 {
		o.Attempts = constants.MaxRetries
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = constants.MaxRetryBackoff
	}
	r := &retrying{next: svc, opts: o, sleep: sleep}
	if o.RatePerSecond > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(o.RatePerSecond), max(o.Burst, 1))
	}
	return r
}

// Name implements Service.
func (r *retrying) Name() string {
	return r.next.Name()
}

// Annotate implements Service.
func (r *retrying) Annotate(ctx context.Context, req Request) (*Estimate, error) {
	logger := logging.FromContext(ctx)

	var last error
	attempts := 0
	for i := 0; i < r.opts.Attempts; i++ {
		if i > 0 {
			if err := r.sleep(ctx, r.delay(i-1)); err != nil {
				return nil, canceled(r.Name(), attempts, err)
			}
		}
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return nil, canceled(r.Name(), attempts, err)
			}
		}

		attempts++
		est, err := r.next.Annotate(ctx, req)
		if err == nil {
			return est, nil
		}
		last = err
		if ctx.Err() != nil {
			return nil, canceled(r.Name(), attempts, ctx.Err())
		}

		logger.Warn().
			Err(err).
			Str("service", r.Name()).
			Int("attempt", attempts).
			Int("max_attempts", r.opts.Attempts).
			Msg("Annotation attempt failed")

		var svcErr *errors.AnnotationServiceError
		if errors.As(err, &svcErr) && !svcErr.Retryable() {
			break
		}
	}
	return nil, exhausted(r.Name(), attempts, last)
}

func (r *retrying) delay(i int) time.Duration {
	d := r.opts.BaseDelay << i
	if d <= 0 || d > r.opts.MaxDelay {
		return r.opts.MaxDelay
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func exhausted(service string, attempts int, last error) error {
	out := &errors.AnnotationServiceError{Service: service, Attempts: attempts, Err: last}
	var svcErr *errors.AnnotationServiceError
	if errors.As(last, &svcErr) {
		out.StatusCode = svcErr.StatusCode
		out.Message = svcErr.Message
		if svcErr.Err != nil {
			out.Err = svcErr.Err
		}
	}
	return out
}

func canceled(service string, attempts int, err error) error {
	return &errors.AnnotationServiceError{
		Service:  service,
		Attempts: attempts,
		Message:  "canceled",
		Err:      errors.Join(errors.ErrCanceled, err),
	}
}
