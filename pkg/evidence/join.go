// Package evidence merges incoming records into canonical products.
//
// Evidence buckets grow by DedupeJoin. Exclusive fields such as the
// ingredient list and category follow the field authorities of
// pkg/authority, and every decision is recorded in a provenance tracker.
// Before any canonical product exists, a Seeder collapses rows that share
// an identity key into the most complete one.
package evidence

import (
	"strings"

	"github.com/agentstation/skinmap/pkg/normalize"
)

// Delimiter separates fragments inside an evidence bucket.
const Delimiter = " | "

// Fragments splits bucket text on "|" and drops blank fragments.
func Fragments(text string) []string {
	var out []string
	for _, part := range strings.Split(text, "|") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// DedupeJoin appends the fragments of incoming that existing does not
// already hold. Fragments compare by normalize.Fragment; display text and
// insertion order are kept.
func DedupeJoin(existing, incoming string) string {
	var out []string
	seen := make(map[string]struct{})
	for _, frag := range append(Fragments(existing), Fragments(incoming)...) {
		key := normalize.Fragment(frag)
		if key == "" {
			key = frag
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, frag)
	}
	return strings.Join(out, Delimiter)
}
