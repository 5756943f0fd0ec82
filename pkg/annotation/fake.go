package annotation

import (
	"context"
	"sync"

	"github.com/agentstation/skinmap/pkg/identity"
)

// Fake is an in-memory Service for tests. Estimates are looked up by
// identity key, falling back to Default.
type Fake struct {
	Estimates map[string]*Estimate
	Default   *Estimate
	Err       error // Returned while FailTimes is positive, or always when FailTimes is zero
	FailTimes int

	mu       sync.Mutex
	requests []Request
}

// Name implements Service.
func (f *Fake) Name() string {
	return "fake"
}

// Annotate implements Service.
func (f *Fake) Annotate(ctx context.Context, req Request) (*Estimate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.Err != nil {
		if f.FailTimes == 0 {
			return nil, f.Err
		}
		if len(f.requests) <= f.FailTimes {
			return nil, f.Err
		}
	}

	est := f.Default
	if e, ok := f.Estimates[identity.Key(req.Brand, req.Name)]; ok {
		est = e
	}
	if est == nil {
		est = &Estimate{}
	}
	out := *est
	out.RiskHints = append([]string(nil), est.RiskHints...)
	if est.Social != nil {
		social := *est.Social
		out.Social = &social
	}
	out.Service = f.Name()
	return out.Clamp(), nil
}

// Requests returns the requests received so far.
func (f *Fake) Requests() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Request(nil), f.requests...)
}

// Calls returns the number of requests received.
func (f *Fake) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}
