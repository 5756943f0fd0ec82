// Package constants provides shared constants used throughout the skinmap codebase.
// This includes timeouts, retry limits, catalog defaults and file permissions
// that must stay consistent between the engine, the store and the CLI.
package constants

import "time"

// Timeout constants define various timeout durations used in the application
const (
	// DefaultHTTPTimeout is the standard timeout for annotation service requests
	DefaultHTTPTimeout = 60 * time.Second

	// CommandTimeout is the default timeout for CLI commands
	CommandTimeout = 30 * time.Minute

	// RetryBackoff is the base backoff duration for annotation retries
	RetryBackoff = 1 * time.Second

	// MaxRetryBackoff is the maximum backoff duration for retries
	MaxRetryBackoff = 30 * time.Second

	// AnnotationCacheTTL is how long the CLI reuses an annotation estimate
	AnnotationCacheTTL = 24 * time.Hour
)

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)

// Limit constants
const (
	// MaxRetries is the maximum number of annotation attempts per record
	MaxRetries = 3

	// DefaultRatePerSecond throttles annotation calls
	DefaultRatePerSecond = 2.0

	// MaxNameVariants bounds the name variants generated for matching
	MaxNameVariants = 8

	// MaxKeyActives bounds the derived key-actives list
	MaxKeyActives = 16

	// MaxTopKeywords bounds social keywords kept from an estimate
	MaxTopKeywords = 20

	// MaxLabelLength bounds canonicalized column labels
	MaxLabelLength = 64

	// MaxIngredientPoints bounds the ingredient-count share of a completeness score
	MaxIngredientPoints = 30
)

// Matching thresholds
const (
	// AcceptanceThreshold is the minimum fuzzy score for a match
	AcceptanceThreshold = 0.55

	// SubstringBonus is added when one name contains the other
	SubstringBonus = 0.15
)

// Catalog defaults for fields not yet supplied by any source
const (
	// UnknownBrand marks a brand that may be replaced by any later source
	UnknownBrand = "Unknown"

	// DefaultCategory marks a category that may be replaced by any later source
	DefaultCategory = "Treatment"

	// GlobalRegion is the default region availability
	GlobalRegion = "Global"

	// EstimatedPriceUSD is the placeholder USD price for products without a price
	EstimatedPriceUSD = 35.0

	// EstimatedPriceCNY is the placeholder CNY price for products without a price
	EstimatedPriceCNY = 250.0

	// SourceOfTruth is the default source label allowed to replace ingredients and category
	SourceOfTruth = "Ingredients_Collected"

	// DerivedSourceLabel labels snippets derived from ingredient rules
	DerivedSourceLabel = "zz_ingredients_derived"

	// CatalogSystem is the crosswalk source system for the knowledge base itself
	CatalogSystem = "catalog"
)
