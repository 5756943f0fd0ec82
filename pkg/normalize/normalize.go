// Package normalize canonicalizes free text and URLs into comparison keys.
//
// Every equality decision in skinmap goes through this package. Callers never
// compare raw strings: brands, names, evidence fragments, crosswalk references
// and column labels are all reduced to keys here first.
package normalize

import (
	"crypto/sha1"
	"encoding/hex"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/agentstation/skinmap/pkg/constants"
)

var (
	nonAlnum      = regexp.MustCompile(`[^a-z0-9]+`)
	fragmentNoise = regexp.MustCompile(`[\p{P}\p{S}\s]+`)
	slashRuns     = regexp.MustCompile(`/{2,}`)
)

// stripper returns a fresh transformer; transform chains carry state and are
// not safe to share between goroutines. Control characters become spaces,
// so no key can carry the identity separator.
func stripper() transform.Transformer {
	return transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), runes.Map(controlToSpace), norm.NFKC)
}

func controlToSpace(r rune) rune {
	if unicode.Is(unicode.Cc, r) {
		return ' '
	}
	return r
}

// StripAccents removes combining marks after compatibility decomposition.
// "Lancôme" becomes "Lancome" and full-width forms are folded to ASCII.
func StripAccents(text string) string {
	out, _, err := transform.String(stripper(), text)
	if err != nil {
		return norm.NFKC.String(text)
	}
	return out
}

// Key canonicalizes text for equality: compatibility normalization,
// diacritic removal, case folding and whitespace collapse.
func Key(text string) string {
	folded := cases.Fold().String(StripAccents(text))
	return strings.Join(strings.Fields(folded), " ")
}

// Fragment is the equality key for evidence fragments. It extends Key by
// treating punctuation and symbols as whitespace, so "Fragrance-free"
// and "fragrance free" compare equal.
func Fragment(text string) string {
	return strings.TrimSpace(fragmentNoise.ReplaceAllString(Key(text), " "))
}

// Tokens splits text into lower-case ASCII alphanumeric tokens of at least
// two characters. A "+" is treated as a separator.
func Tokens(text string) []string {
	lowered := strings.ToLower(StripAccents(text))
	lowered = strings.ReplaceAll(lowered, "+", " ")
	var tokens []string
	for _, tok := range nonAlnum.Split(lowered, -1) {
		if len(tok) >= 2 {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

// HasSignal reports whether text yields at least one token.
func HasSignal(text string) bool {
	return len(Tokens(text)) > 0
}

// URL canonicalizes an http(s) URL to host+path. The host is lower-cased,
// repeated slashes are collapsed and a trailing slash is removed. Query,
// fragment, scheme and port are dropped. Anything else returns "".
func URL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return ""
	}
	path := u.Path
	if path == "" {
		path = "/"
	}
	path = slashRuns.ReplaceAllString(path, "/")
	path = strings.TrimRight(path, "/")
	if path == "" {
		path = "/"
	}
	return host + path
}

// Ref normalizes an external reference. Source types naming a URL are
// canonicalized with URL first; everything else, including URLs that fail
// to parse, falls back to NFKC, case folding and whitespace collapse.
func Ref(sourceType, ref string) string {
	if strings.Contains(strings.ToLower(sourceType), "url") {
		if canonical := URL(ref); canonical != "" {
			return canonical
		}
	}
	folded := cases.Fold().String(norm.NFKC.String(ref))
	return strings.Join(strings.Fields(folded), " ")
}

// Label canonicalizes a spreadsheet column label into a stable field key.
// Labels with no ASCII alphanumerics, such as Chinese headers, get a
// short SHA-1 suffix so distinct headers do not collide.
func Label(label string) string {
	raw := strings.TrimSpace(label)
	if raw == "" {
		return "unknown"
	}
	value := strings.Trim(nonAlnum.ReplaceAllString(strings.ToLower(raw), "_"), "_")
	if value != "" {
		if len(value) > constants.MaxLabelLength {
			value = value[:constants.MaxLabelLength]
		}
		return value
	}
	sum := sha1.Sum([]byte(raw))
	return "col_" + hex.EncodeToString(sum[:])[:12]
}
