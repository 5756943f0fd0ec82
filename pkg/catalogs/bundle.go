package catalogs

// Bucket names one of the three evidence buckets of a product.
type Bucket string

// Evidence buckets.
const (
	BucketSensitivity  Bucket = "sensitivity"
	BucketChemistNotes Bucket = "chemist_notes"
	BucketKeyActives   Bucket = "key_actives"
)

// String returns the bucket name.
func (b Bucket) String() string {
	return string(b)
}

// Buckets lists every bucket in storage order.
var Buckets = []Bucket{BucketSensitivity, BucketChemistNotes, BucketKeyActives}

// Bundle holds the free-text evidence of a product. Each bucket is a
// " | "-joined list of deduplicated fragments.
type Bundle struct {
	Sensitivity  string `json:"sensitivity,omitempty" yaml:"sensitivity,omitempty"`     // Irritation and sensitivity notes
	ChemistNotes string `json:"chemist_notes,omitempty" yaml:"chemist_notes,omitempty"` // Everything else experts wrote
	KeyActives   string `json:"key_actives,omitempty" yaml:"key_actives,omitempty"`     // Active ingredients worth calling out
}

// Get returns the content of a bucket.
func (b Bundle) Get(bucket Bucket) string {
	switch bucket {
	case BucketSensitivity:
		return b.Sensitivity
	case BucketKeyActives:
		return b.KeyActives
	default:
		return b.ChemistNotes
	}
}

// Set replaces the content of a bucket.
func (b *Bundle) Set(bucket Bucket, content string) {
	switch bucket {
	case BucketSensitivity:
		b.Sensitivity = content
	case BucketKeyActives:
		b.KeyActives = content
	default:
		b.ChemistNotes = content
	}
}

// IsEmpty reports whether every bucket is empty.
func (b Bundle) IsEmpty() bool {
	return b.Sensitivity == "" && b.ChemistNotes == "" && b.KeyActives == ""
}
