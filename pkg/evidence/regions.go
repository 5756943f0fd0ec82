package evidence

import (
	"strings"

	"github.com/agentstation/skinmap/pkg/constants"
)

// RegionCodes are the region codes the catalog recognizes.
var RegionCodes = []string{"CN", "US", "EU", "UK", "JP", "KR"}

// NormalizeRegion upper-cases known region codes and spells the global
// region as "Global". Other values are returned trimmed.
func NormalizeRegion(region string) string {
	region = strings.TrimSpace(region)
	upper := strings.ToUpper(region)
	for _, code := range RegionCodes {
		if upper == code {
			return code
		}
	}
	if strings.EqualFold(region, constants.GlobalRegion) {
		return constants.GlobalRegion
	}
	return region
}

// NormalizeRegions returns the ordered set of normalized regions. An empty
// set becomes the global region.
func NormalizeRegions(regions []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(regions))
	for _, r := range regions {
		r = NormalizeRegion(r)
		if r == "" {
			continue
		}
		key := strings.ToLower(r)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	if len(out) == 0 {
		return []string{constants.GlobalRegion}
	}
	return out
}

// UnionRegions returns the normalized union of two region sets, keeping
// the order of existing first.
func UnionRegions(existing, incoming []string) []string {
	return NormalizeRegions(append(append([]string(nil), existing...), incoming...))
}
