package evidence

import (
	"sort"
	"strings"

	"github.com/agentstation/skinmap/pkg/catalogs"
)

// Canonical keys for evidence column labels.
const (
	KeySensitivity = "sensitivity"
	KeyActives     = "key_actives"
	KeyComparison  = "comparison"
	KeyUsage       = "usage"
	KeyTexture     = "texture"
	KeyNotes       = "notes"
)

type labelRule struct {
	key     string
	english []string // matched against the lower-cased label
	chinese []string // matched against the raw label
	match   func(lower string) bool
}

// labelRules are tried in order; the first hit wins.
var labelRules = []labelRule{
	{
		key:     KeySensitivity,
		english: []string{"sensitivity", "irrit", "risk"},
		chinese: []string{"敏感", "刺激", "刺痛", "过敏"},
	},
	{
		key:     KeyActives,
		english: []string{"key_actives"},
		chinese: []string{"核心成分", "主要成分", "关键活性", "功效成分", "活性"},
		match: func(lower string) bool {
			return strings.Contains(lower, "key") && strings.Contains(lower, "active")
		},
	},
	{
		key:     KeyComparison,
		english: []string{"comparison", "compare", "dupe"},
		chinese: []string{"替代", "平替", "对比", "竞品"},
	},
	{
		key:     KeyUsage,
		english: []string{"usage", "routine", "layer", "frequency"},
		chinese: []string{"用法", "搭配", "叠加", "频率", "注意事项"},
	},
	{
		key:     KeyTexture,
		english: []string{"texture", "finish", "pilling"},
		chinese: []string{"质地", "清爽", "厚重", "搓泥", "成膜", "油腻"},
	},
	{
		key:     KeyNotes,
		english: []string{"note"},
		chinese: []string{"备注", "评价"},
	},
}

// ClassifyLabel maps a spreadsheet column label to a canonical key. It
// returns "" when no rule recognizes the label.
func ClassifyLabel(label string) string {
	raw := strings.TrimSpace(label)
	if raw == "" {
		return ""
	}
	lower := strings.ToLower(raw)

	for _, rule := range labelRules {
		if containsAny(lower, rule.english) || containsAny(raw, rule.chinese) ||
			(rule.match != nil && rule.match(lower)) {
			return rule.key
		}
	}
	return ""
}

// BucketFor routes a canonical key to an evidence bucket. Keys other than
// sensitivity and key actives land in the chemist notes.
func BucketFor(key string) catalogs.Bucket {
	switch key {
	case KeySensitivity:
		return catalogs.BucketSensitivity
	case KeyActives:
		return catalogs.BucketKeyActives
	default:
		return catalogs.BucketChemistNotes
	}
}

// BundleFrom routes labelled evidence into a bundle, joining fragments in
// label order.
func BundleFrom(evidence map[string]string) catalogs.Bundle {
	labels := make([]string, 0, len(evidence))
	for label := range evidence {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	var b catalogs.Bundle
	for _, label := range labels {
		bucket := BucketFor(ClassifyLabel(label))
		b.Set(bucket, DedupeJoin(b.Get(bucket), evidence[label]))
	}
	return b
}

func containsAny(s string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(s, term) {
			return true
		}
	}
	return false
}
