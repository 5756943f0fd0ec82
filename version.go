package skinmap

// Version is the engine version. It is stamped on every derived risk
// profile, so raising it recomputes the profiles on the next run.
const Version = "1.0.0"

// Capabilities toggles the optional parts of the engine.
type Capabilities struct {
	Annotation      bool `json:"annotation" yaml:"annotation"`             // Call the annotation service for new or changed products
	SocialStats     bool `json:"social_stats" yaml:"social_stats"`         // Add the social-stats backend to annotation
	KeyActives      bool `json:"key_actives" yaml:"key_actives"`           // Derive the key actives snippet
	Aliases         bool `json:"aliases" yaml:"aliases"`                   // Write the default aliases
	DerivedSnippets bool `json:"derived_snippets" yaml:"derived_snippets"` // Write snippets under the derived source label
	Crosswalk       bool `json:"crosswalk" yaml:"crosswalk"`               // Upsert crosswalk mappings
}

// DefaultCapabilities turns on every capability that needs no credentials.
func DefaultCapabilities() Capabilities {
	return Capabilities{
		KeyActives:      true,
		Aliases:         true,
		DerivedSnippets: true,
		Crosswalk:       true,
	}
}
