package catalogs

import "github.com/agentstation/utc"

// Mechanism holds 0-100 efficacy scores.
type Mechanism struct {
	OilControl    int `json:"oil_control" yaml:"oil_control"`
	AntiAging     int `json:"anti_aging" yaml:"anti_aging"`
	Soothing      int `json:"soothing" yaml:"soothing"`
	BarrierRepair int `json:"barrier_repair" yaml:"barrier_repair"`
}

// SocialStats summarizes community sentiment.
type SocialStats struct {
	RedScore    int      `json:"red_score" yaml:"red_score"`
	RedditScore int      `json:"reddit_score" yaml:"reddit_score"`
	BurnRate    float64  `json:"burn_rate" yaml:"burn_rate"`
	TopKeywords []string `json:"top_keywords,omitempty" yaml:"top_keywords,omitempty"`
}

// Annotation is the advisory output of the annotation service after
// clamping. It never influences risk flags directly.
type Annotation struct {
	Mechanism Mechanism    `json:"mechanism" yaml:"mechanism"`
	Texture   string       `json:"texture" yaml:"texture"`
	Finish    string       `json:"finish" yaml:"finish"`
	Social    *SocialStats `json:"social,omitempty" yaml:"social,omitempty"`
	Service   string       `json:"service,omitempty" yaml:"service,omitempty"` // Backend that produced it
	CreatedAt utc.Time     `json:"created_at" yaml:"created_at"`
}

// Copy returns a deep copy of the annotation.
func (a *Annotation) Copy() *Annotation {
	if a == nil {
		return nil
	}
	out := *a
	if a.Social != nil {
		social := *a.Social
		social.TopKeywords = append([]string(nil), a.Social.TopKeywords...)
		out.Social = &social
	}
	return &out
}
