package normalize

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	urlPattern       = regexp.MustCompile(`(?i)https?://\S+`)
	boilerplate      = regexp.MustCompile(`(?i)\b(read more|show more|view full list|click here|see image)\b|\[more\]`)
	listPrefix       = regexp.MustCompile(`(?i)^(ingredients?|ingredient list|full ingredients|inci?|全成分|成分|配料)\s*[:：-]\s*`)
	trailingEllipsis = regexp.MustCompile(`(?i)(and\.\.\.|etc\.)\s*$`)
	structuredSep    = regexp.MustCompile(`[;；|]+`)
	commaSep         = regexp.MustCompile(`[,，、]+`)
	anySep           = regexp.MustCompile(`[,，、;；|]+`)
)

// CleanIngredientText strips scraped boilerplate from raw ingredient text:
// URLs, "read more" style links, a leading "Ingredients:" label and a
// trailing "etc.".
func CleanIngredientText(text string) string {
	out := norm.NFKC.String(text)
	out = urlPattern.ReplaceAllString(out, " ")
	out = boilerplate.ReplaceAllString(out, " ")
	out = strings.Join(strings.Fields(out), " ")
	out = strings.TrimSpace(listPrefix.ReplaceAllString(out, ""))
	return strings.TrimSpace(trailingEllipsis.ReplaceAllString(out, ""))
}

// ParseIngredients returns the ordered, de-duplicated ingredient list.
// A structured INCI list wins over raw text; it is split on ";" or "|"
// when present and on commas otherwise. Tokens shorter than two characters
// are dropped and duplicates are detected by Key.
func ParseIngredients(inci, raw string) []string {
	var parts []string
	if source := strings.TrimSpace(inci); source != "" {
		sep := structuredSep
		if !sep.MatchString(source) {
			sep = commaSep
		}
		parts = sep.Split(source, -1)
	} else {
		parts = anySep.Split(CleanIngredientText(raw), -1)
	}

	out := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		token := strings.Trim(strings.Join(strings.Fields(part), " "), " .;；,，")
		if len([]rune(token)) < 2 {
			continue
		}
		key := Key(token)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, token)
	}
	return out
}

// SplitList splits ingredient text into lower-case NFKC items in order,
// keeping duplicates. It is the tokenization used for positional rules.
func SplitList(text string) []string {
	lowered := strings.ToLower(norm.NFKC.String(text))
	var items []string
	for _, item := range anySep.Split(lowered, -1) {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// Signature is an order-sensitive fingerprint of an ingredient list used to
// detect rows that disagree on ingredient content.
func Signature(ingredients []string) string {
	keys := make([]string, len(ingredients))
	for i, ing := range ingredients {
		keys[i] = Key(ing)
	}
	return strings.Join(keys, "|")
}
