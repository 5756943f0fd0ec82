package annotation

import (
	"context"

	"github.com/agentstation/skinmap/pkg/logging"
)

type combined struct {
	primary Service
	social  Service
}

// Combine returns a service whose estimates come from primary, with social
// stats replaced by those of social when it succeeds. A failing social
// backend keeps the primary stats.
func Combine(primary, social Service) Service {
	if social == nil {
		return primary
	}
	return &combined{primary: primary, social: social}
}

// Name implements Service.
func (c *combined) Name() string {
	return c.primary.Name() + "+" + c.social.Name()
}

// Annotate implements Service.
func (c *combined) Annotate(ctx context.Context, req Request) (*Estimate, error) {
	est, err := c.primary.Annotate(ctx, req)
	if err != nil {
		return nil, err
	}
	social, err := c.social.Annotate(ctx, req)
	if err != nil {
		logging.FromContext(ctx).Warn().
			Err(err).
			Str("service", c.social.Name()).
			Msg("Social estimate unavailable, keeping primary stats")
		return est, nil
	}
	if social.Social != nil {
		est.Social = social.Social
	}
	if social.SuggestedBurnRate != nil {
		est.SuggestedBurnRate = social.SuggestedBurnRate
	}
	est.Service = c.Name()
	return est, nil
}
