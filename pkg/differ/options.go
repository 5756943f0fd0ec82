package differ

// Option is a functional option for configuring Differ
type Option func(*differ)

// WithIgnoredFields sets field paths to ignore during comparison
func WithIgnoredFields(fields ...string) Option {
	return func(d *differ) {
		for _, field := range fields {
			d.ignoreFields[field] = true
		}
	}
}

// WithDeepComparison enables/disables comparison of evidence, risk and annotation
func WithDeepComparison(enabled bool) Option {
	return func(d *differ) {
		d.deepComparison = enabled
	}
}

// WithSource stamps every field change with the source label that caused it
func WithSource(source string) Option {
	return func(d *differ) {
		d.source = source
	}
}
