// Package annotation talks to the generative services that estimate
// mechanism scores, texture, finish and community sentiment for a product.
//
// Estimates are advisory. Risk flag hints only confirm flags the
// deterministic classifier already found, and every number is clamped to
// its documented range before use.
package annotation

import (
	"context"
	"encoding/json"
	"math"
	"strings"

	"github.com/agentstation/utc"

	"github.com/agentstation/skinmap/pkg/catalogs"
	"github.com/agentstation/skinmap/pkg/constants"
	"github.com/agentstation/skinmap/pkg/errors"
)

// Defaults applied by Clamp.
const (
	DefaultTexture     = "unknown"
	DefaultFinish      = "natural"
	DefaultSocialScore = 60
)

// Service produces an estimate for one product.
type Service interface {
	Name() string
	Annotate(ctx context.Context, req Request) (*Estimate, error)
}

// Request identifies the product to annotate.
type Request struct {
	Brand          string
	Name           string
	IngredientText string
}

// Estimate is the cleaned output of a service.
type Estimate struct {
	Mechanism catalogs.Mechanism
	RiskHints []string // Advisory risk flags, reconciled by the safety classifier
	Texture   string
	Finish    string
	Social    *catalogs.SocialStats

	// SuggestedBurnRate is nil when the service gave no usable rate
	SuggestedBurnRate *float64

	Service string
}

// Clamp forces every field into range: mechanism scores and social scores
// to 0-100, the burn rate to 0-1, keywords to constants.MaxTopKeywords, and
// empty texture and finish to their defaults. Missing social scores become
// DefaultSocialScore.
func (e *Estimate) Clamp() *Estimate {
	if e == nil {
		return nil
	}
	e.Mechanism.OilControl = clampScore(e.Mechanism.OilControl)
	e.Mechanism.AntiAging = clampScore(e.Mechanism.AntiAging)
	e.Mechanism.Soothing = clampScore(e.Mechanism.Soothing)
	e.Mechanism.BarrierRepair = clampScore(e.Mechanism.BarrierRepair)

	e.Texture = strings.TrimSpace(e.Texture)
	if e.Texture == "" {
		e.Texture = DefaultTexture
	}
	e.Finish = strings.TrimSpace(e.Finish)
	if e.Finish == "" {
		e.Finish = DefaultFinish
	}

	hints := e.RiskHints[:0]
	for _, h := range e.RiskHints {
		if h = strings.TrimSpace(h); h != "" {
			hints = append(hints, h)
		}
	}
	e.RiskHints = hints

	if e.SuggestedBurnRate != nil {
		rate := clampRate(*e.SuggestedBurnRate)
		e.SuggestedBurnRate = &rate
	}

	if s := e.Social; s != nil {
		if s.RedScore == 0 {
			s.RedScore = DefaultSocialScore
		}
		if s.RedditScore == 0 {
			s.RedditScore = DefaultSocialScore
		}
		s.RedScore = clampScore(s.RedScore)
		s.RedditScore = clampScore(s.RedditScore)
		s.BurnRate = clampRate(s.BurnRate)
		s.TopKeywords = keywords(s.TopKeywords, constants.MaxTopKeywords)
	}
	return e
}

// Annotation converts the estimate into the stored form.
func (e *Estimate) Annotation() *catalogs.Annotation {
	if e == nil {
		return nil
	}
	a := &catalogs.Annotation{
		Mechanism: e.Mechanism,
		Texture:   e.Texture,
		Finish:    e.Finish,
		Service:   e.Service,
		CreatedAt: utc.Now(),
	}
	if e.Social != nil {
		social := *e.Social
		social.TopKeywords = append([]string(nil), e.Social.TopKeywords...)
		a.Social = &social
	}
	return a
}

func clampScore(v int) int {
	return min(max(v, 0), 100)
}

func clampRate(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return min(max(v, 0), 1)
}

func keywords(in []string, limit int) []string {
	out := make([]string, 0, len(in))
	for _, k := range in {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
		if len(out) == limit {
			break
		}
	}
	return out
}

// number decodes a JSON number or numeric string, tolerating model output
// such as "85" or 85.4.
type number struct {
	value float64
	set   bool
}

func (n *number) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		n.value, n.set = f, true
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		var parsed float64
		if err := json.Unmarshal([]byte(strings.TrimSpace(s)), &parsed); err == nil {
			n.value, n.set = parsed, true
		}
	}
	return nil
}

func (n number) int() int {
	if !n.set {
		return 0
	}
	return int(math.Round(n.value))
}

// stringList decodes a JSON string array or a comma-separated string.
type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	var list []any
	if err := json.Unmarshal(data, &list); err == nil {
		out := make([]string, 0, len(list))
		for _, v := range list {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		*l = out
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*l = strings.Split(s, ",")
	}
	return nil
}

// socialPayload accepts both snake_case and camelCase keys.
type socialPayload struct {
	RedScore         number     `json:"red_score"`
	RedScoreCamel    number     `json:"redScore"`
	RedditScore      number     `json:"reddit_score"`
	RedditScoreCamel number     `json:"redditScore"`
	BurnRate         number     `json:"burn_rate"`
	BurnRateCamel    number     `json:"burnRate"`
	TopKeywords      stringList `json:"top_keywords"`
	TopKeywordsCamel stringList `json:"topKeywords"`
}

func (p *socialPayload) stats() (*catalogs.SocialStats, *float64) {
	first := func(a, b number) number {
		if a.set && a.value != 0 {
			return a
		}
		return b
	}
	stats := &catalogs.SocialStats{
		RedScore:    first(p.RedScore, p.RedScoreCamel).int(),
		RedditScore: first(p.RedditScore, p.RedditScoreCamel).int(),
		TopKeywords: p.TopKeywords,
	}
	if len(stats.TopKeywords) == 0 {
		stats.TopKeywords = p.TopKeywordsCamel
	}
	var rate *float64
	if br := first(p.BurnRate, p.BurnRateCamel); br.set && br.value > 0 {
		v := br.value
		stats.BurnRate = v
		rate = &v
	}
	return stats, rate
}

// estimatePayload is the JSON object the annotation prompt asks for.
type estimatePayload struct {
	Mechanism struct {
		OilControl    number `json:"oil_control"`
		AntiAging     number `json:"anti_aging"`
		Soothing      number `json:"soothing"`
		BarrierRepair number `json:"barrier_repair"`
	} `json:"mechanism"`
	RiskFlags  stringList `json:"risk_flags"`
	Experience struct {
		Texture string `json:"texture"`
		Finish  string `json:"finish"`
	} `json:"experience_prediction"`
	Social *socialPayload `json:"social_stats"`
}

// ParseEstimate decodes a model response into a clamped estimate. Text
// around the outermost JSON object, such as a code fence, is ignored.
func ParseEstimate(service, text string) (*Estimate, error) {
	raw, err := extractObject(text)
	if err != nil {
		return nil, errors.WrapAnnotation(service, 0, err)
	}
	var p estimatePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, errors.WrapAnnotation(service, 0, errors.WrapParse("json", service+" response", err))
	}

	e := &Estimate{
		Mechanism: catalogs.Mechanism{
			OilControl:    p.Mechanism.OilControl.int(),
			AntiAging:     p.Mechanism.AntiAging.int(),
			Soothing:      p.Mechanism.Soothing.int(),
			BarrierRepair: p.Mechanism.BarrierRepair.int(),
		},
		RiskHints: p.RiskFlags,
		Texture:   p.Experience.Texture,
		Finish:    p.Experience.Finish,
		Service:   service,
	}
	if p.Social != nil {
		e.Social, e.SuggestedBurnRate = p.Social.stats()
	} else {
		e.Social = &catalogs.SocialStats{}
	}
	return e.Clamp(), nil
}

// ParseSocial decodes a social-sentiment response into an estimate that
// carries only social stats.
func ParseSocial(service, text string) (*Estimate, error) {
	raw, err := extractObject(text)
	if err != nil {
		return nil, errors.WrapAnnotation(service, 0, err)
	}
	var p socialPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, errors.WrapAnnotation(service, 0, errors.WrapParse("json", service+" response", err))
	}
	e := &Estimate{Service: service}
	e.Social, e.SuggestedBurnRate = p.stats()
	return e.Clamp(), nil
}

func extractObject(text string) ([]byte, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return nil, errors.NewValidationError("response", truncate(text, 80), "no JSON object in model output")
	}
	return []byte(text[start : end+1]), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
