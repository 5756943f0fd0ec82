package identity

import (
	"regexp"
	"strings"
)

// BrandAliases maps joined brand tokens to a canonical brand key.
var BrandAliases = map[string]string{
	"lrp":                                   "larocheposay",
	"larocheposay":                          "larocheposay",
	"larocheposaylaboratoiredermatologique": "larocheposay",
	"larocheposayfrance":                    "larocheposay",
}

// NameStopwords are dropped from name keys. They are marketing or format
// words that differ between listings of the same product.
var NameStopwords = []string{
	"new", "version", "us", "eu", "global", "in", "the", "tub",
	"triple", "repair", "body", "lotion", "cream", "serum", "gel", "cleanser",
}

// KnownBrands are multi-word brands recognised by SplitBrandName.
var KnownBrands = []string{
	"La Roche-Posay",
	"Paula's Choice",
	"The Ordinary",
	"Estée Lauder",
	"Estee Lauder",
	"First Aid Beauty",
	"Beauty of Joseon",
	"Helena Rubinstein",
	"SkinCeuticals",
	"La Mer",
	"Tom Ford",
	"Hada Labo",
}

// BrandSynonyms lists what shoppers type for a brand, keyed by AliasKey of
// the brand.
var BrandSynonyms = map[string][]string{
	"skinceuticals": {"修丽可", "杜克", "skinceuticals"},
	"larocheposay":  {"理肤泉", "lrp", "la roche posay"},
	"curel":         {"珂润", "curel", "curél"},
	"winona":        {"薇诺娜", "winona", "winnona"},
	"freeplus":      {"芙丽芳丝", "freeplus"},
	"cerave":        {"cerave", "适乐肤"},
	"lamer":         {"海蓝之谜", "la mer", "lamer"},
	"esteelauder":   {"雅诗兰黛", "estee lauder", "estée lauder", "anr"},
	"paulaschoice":  {"宝拉", "paula's choice", "paulas choice", "pc"},
	"theordinary":   {"the ordinary", "ordinary", "to", "theordinary"},
	"avene":         {"雅漾", "avène", "avene"},
	"bioderma":      {"贝德玛", "bioderma"},
	"vichy":         {"薇姿", "vichy"},
	"neutrogena":    {"露得清", "neutrogena"},
	"hadalabo":      {"肌研", "hada labo", "hadalabo"},
	"cosrx":         {"cosrx"},
	"vanicream":     {"vanicream"},
	"murad":         {"murad", "慕拉得", "慕拉德"},
}

// ProductNicknames lists community nicknames keyed by AliasKey of
// "brand name".
var ProductNicknames = map[string][]string{
	"larocheposaycicaplastbaumeb5":                  {"b5修护霜", "b5面霜", "b5霜", "cicaplast b5", "baume b5"},
	"skinceuticalsceferulic":                        {"cef", "ce ferulic", "ceferulic", "修丽可ce"},
	"lamercrmedelamer":                              {"海蓝之谜面霜", "la mer 面霜", "creme de la mer", "crème de la mer"},
	"niveacreme":                                    {"妮维雅蓝罐", "蓝罐", "nivea 蓝罐"},
	"paulaschoiceskinperfecting2bhaliquidexfoliant": {"宝拉2%水杨酸", "2% bha", "pc2bha", "水杨酸2%"},
}

// DefaultVariantRules returns the built-in name variant rules.
func DefaultVariantRules() []VariantRule {
	return []VariantRule{
		{Trigger: "b5+", Pattern: regexp.MustCompile(`(?i)b5\+`), Replace: "B5"},
		{Trigger: "ap+m", Pattern: regexp.MustCompile(`(?i)ap\+m`), Replace: "AP+M", Add: []string{"Lipikar Baume AP+M"}},
		{Trigger: "triple repair", Pattern: regexp.MustCompile(`(?i)triple\s+repair`), Add: []string{"Lipikar Baume AP+M"}},
		{Trigger: "mineral 89", Add: []string{"Minéral 89"}},
	}
}

// AliasKind classifies an alias.
type AliasKind string

// Alias kinds.
const (
	AliasBrand      AliasKind = "brand"
	AliasName       AliasKind = "name"
	AliasFullName   AliasKind = "full_name"
	AliasBrandAlias AliasKind = "brand_alias"
	AliasNickname   AliasKind = "nickname"
)

// Weight is the resolution weight of an alias kind. Nicknames are the most
// specific and win over everything else.
func (k AliasKind) Weight() int {
	switch k {
	case AliasBrand:
		return 10
	case AliasName:
		return 5
	case AliasFullName:
		return 20
	case AliasBrandAlias:
		return 8
	case AliasNickname:
		return 50
	default:
		return 0
	}
}

// Alias is a searchable name for a product.
type Alias struct {
	Text   string
	Key    string
	Kind   AliasKind
	Weight int
}

// DefaultAliases returns the aliases every canonical product carries:
// brand, name, full name, brand synonyms and known nicknames. Aliases whose
// key is shorter than two characters are skipped. A key that repeats keeps
// the heavier kind.
func (k *Keyer) DefaultAliases(brand, name string) []Alias {
	brand = strings.TrimSpace(brand)
	name = strings.TrimSpace(name)
	if brand == "" || name == "" {
		return nil
	}
	full := brand + " " + name

	type entry struct {
		text string
		kind AliasKind
	}
	entries := []entry{{brand, AliasBrand}, {name, AliasName}, {full, AliasFullName}}
	for _, syn := range k.synonyms[AliasKey(brand)] {
		entries = append(entries, entry{syn, AliasBrandAlias})
	}
	for _, nick := range k.nicknames[AliasKey(full)] {
		entries = append(entries, entry{nick, AliasNickname})
	}

	out := make([]Alias, 0, len(entries))
	index := make(map[string]int, len(entries))
	for _, e := range entries {
		key := AliasKey(e.text)
		if len([]rune(key)) < 2 {
			continue
		}
		alias := Alias{Text: e.text, Key: key, Kind: e.kind, Weight: e.kind.Weight()}
		if i, dup := index[key]; dup {
			if alias.Weight > out[i].Weight {
				out[i] = alias
			}
			continue
		}
		index[key] = len(out)
		out = append(out, alias)
	}
	return out
}

// DefaultAliases returns the default aliases using the package tables.
func DefaultAliases(brand, name string) []Alias { return defaultKeyer.DefaultAliases(brand, name) }
