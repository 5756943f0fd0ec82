package normalize_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agentstation/skinmap/pkg/normalize"
)

func TestKey(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"diacritics", "Lancôme", "lancome"},
		{"upper case", "LANCOME", "lancome"},
		{"whitespace", "  La   Roche\tPosay ", "la roche posay"},
		{"full width", "ＣｅｒａＶｅ", "cerave"},
		{"accented name", "Génifique", "genifique"},
		{"control characters", "Acme\x1fSerum\x00One", "acme serum one"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalize.Key(tt.in))
		})
	}
}

func TestFragment(t *testing.T) {
	assert.Equal(t, normalize.Fragment("fragrance free"), normalize.Fragment("Fragrance-free"))
	assert.Equal(t, normalize.Fragment("Non-comedogenic."), normalize.Fragment("non comedogenic"))
	assert.NotEqual(t, normalize.Fragment("fragrance"), normalize.Fragment("fragrance free"))
	assert.Equal(t, "", normalize.Fragment(" -- "))
}

func TestTokens(t *testing.T) {
	assert.Equal(t, []string{"b5", "repair"}, normalize.Tokens("B5+ Repair"))
	assert.Equal(t, []string{"mineral", "89"}, normalize.Tokens("Minéral 89"))
	assert.Equal(t, []string{"ap"}, normalize.Tokens("AP+M"))
	assert.Empty(t, normalize.Tokens("a + b"))
	assert.False(t, normalize.HasSignal("- x -"))
	assert.True(t, normalize.HasSignal("Gel"))
}

func TestURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"query and trailing slash", "https://brand.com/p/1/?utm=x", "brand.com/p/1"},
		{"upper host", "https://BRAND.com/p/1", "brand.com/p/1"},
		{"repeated slashes", "http://brand.com//p///1", "brand.com/p/1"},
		{"root", "https://brand.com", "brand.com/"},
		{"port dropped", "https://brand.com:8443/p/1", "brand.com/p/1"},
		{"fragment dropped", "https://brand.com/p/1#reviews", "brand.com/p/1"},
		{"not http", "ftp://brand.com/p/1", ""},
		{"no scheme", "brand.com/p/1", ""},
		{"garbage", "://", ""},
		{"empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalize.URL(tt.in))
		})
	}
}

func TestRef(t *testing.T) {
	assert.Equal(t,
		normalize.Ref("source_ref_url", "https://brand.com/p/1/?utm=x"),
		normalize.Ref("source_ref_url", "https://BRAND.com/p/1"))
	assert.Equal(t, "sku 123", normalize.Ref("product_id", "  SKU   123 "))
	assert.Equal(t, "not a url", normalize.Ref("canonical_url", "Not a URL"), "url types fall back to text keys")
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "key_actives", normalize.Label("Key Actives"))
	assert.Equal(t, "sensitivity_notes", normalize.Label("  Sensitivity / Notes  "))
	assert.Equal(t, "unknown", normalize.Label(""))

	chinese := normalize.Label("核心成分")
	assert.True(t, strings.HasPrefix(chinese, "col_"))
	assert.Len(t, chinese, len("col_")+12)
	assert.Equal(t, chinese, normalize.Label("核心成分"), "hash labels are stable")
	assert.NotEqual(t, chinese, normalize.Label("用法"))

	assert.Len(t, normalize.Label(strings.Repeat("a", 100)), 64)
}
