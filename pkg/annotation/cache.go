package annotation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/agentstation/skinmap/pkg/identity"
	"github.com/agentstation/skinmap/pkg/logging"
	"github.com/agentstation/skinmap/pkg/normalize"
)

// WithCache memoizes successful estimates of svc for ttl. Requests are keyed
// by identity key and normalized ingredient text, so a product annotated
// once is not sent again while the entry lives. Failures are never cached.
func WithCache(svc Service, ttl time.Duration) Service {
	if ttl <= 0 {
		return svc
	}
	return &cached{next: svc, store: gocache.New(ttl, 2*ttl)}
}

type cached struct {
	next  Service
	store *gocache.Cache
}

// Name implements Service.
func (c *cached) Name() string {
	return c.next.Name()
}

// Annotate implements Service.
func (c *cached) Annotate(ctx context.Context, req Request) (*Estimate, error) {
	key := cacheKey(req)
	if v, ok := c.store.Get(key); ok {
		logging.FromContext(ctx).Debug().
			Str("service", c.next.Name()).
			Str("identity_key", identity.Key(req.Brand, req.Name)).
			Msg("Annotation cache hit")
		return v.(*Estimate).clone(), nil
	}
	est, err := c.next.Annotate(ctx, req)
	if err != nil {
		return nil, err
	}
	c.store.Set(key, est.clone(), gocache.DefaultExpiration)
	return est, nil
}

// Len returns the number of cached estimates.
func (c *cached) Len() int {
	return c.store.ItemCount()
}

func cacheKey(req Request) string {
	sum := sha256.Sum256([]byte(normalize.Key(req.IngredientText)))
	return identity.Key(req.Brand, req.Name) + "|" + hex.EncodeToString(sum[:8])
}

func (e *Estimate) clone() *Estimate {
	if e == nil {
		return nil
	}
	out := *e
	out.RiskHints = append([]string(nil), e.RiskHints...)
	if e.Social != nil {
		social := *e.Social
		social.TopKeywords = append([]string(nil), e.Social.TopKeywords...)
		out.Social = &social
	}
	if e.SuggestedBurnRate != nil {
		rate := *e.SuggestedBurnRate
		out.SuggestedBurnRate = &rate
	}
	return &out
}
