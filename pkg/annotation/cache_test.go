package annotation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/skinmap/pkg/catalogs"
)

func TestWithCache(t *testing.T) {
	ctx := context.Background()
	fake := &Fake{Default: &Estimate{Texture: "gel", RiskHints: []string{"fragrance"}}}
	svc := WithCache(fake, time.Minute)
	req := Request{Brand: "COSRX", Name: "Snail Mucin", IngredientText: "Snail Secretion Filtrate, Betaine"}

	first, err := svc.Annotate(ctx, req)
	require.NoError(t, err)
	first.RiskHints[0] = "mutated"

	second, err := svc.Annotate(ctx, Request{Brand: "cosrx", Name: "Snail Mucin", IngredientText: "snail secretion filtrate,  betaine"})
	require.NoError(t, err)
	assert.Equal(t, 1, fake.Calls(), "identical product is served from the cache")
	assert.Equal(t, []string{"fragrance"}, second.RiskHints, "cached estimates are copies")
	assert.Equal(t, 1, svc.(*cached).Len())

	_, err = svc.Annotate(ctx, Request{Brand: "COSRX", Name: "Snail Mucin", IngredientText: "Water"})
	require.NoError(t, err)
	assert.Equal(t, 2, fake.Calls(), "changed ingredients miss the cache")
}

func TestWithCacheSkipsFailures(t *testing.T) {
	fake := &Fake{Err: errors.New("unavailable"), FailTimes: 1}
	svc := WithCache(fake, time.Minute)
	req := Request{Brand: "CeraVe", Name: "PM Lotion"}

	_, err := svc.Annotate(context.Background(), req)
	require.Error(t, err)
	_, err = svc.Annotate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 2, fake.Calls())
}

func TestWithCacheDisabled(t *testing.T) {
	fake := &Fake{}
	assert.Same(t, Service(fake), WithCache(fake, 0))
}

func TestEstimateClone(t *testing.T) {
	rate := 0.2
	e := &Estimate{
		RiskHints:         []string{"acid"},
		Social:            &catalogs.SocialStats{TopKeywords: []string{"sting"}},
		SuggestedBurnRate: &rate,
	}
	c := e.clone()
	c.Social.TopKeywords[0] = "calm"
	*c.SuggestedBurnRate = 0.9
	assert.Equal(t, "sting", e.Social.TopKeywords[0])
	assert.Equal(t, 0.2, *e.SuggestedBurnRate)
	assert.Nil(t, (*Estimate)(nil).clone())
}
