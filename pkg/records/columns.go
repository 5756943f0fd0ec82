package records

import (
	"strconv"
	"strings"
)

// Column is the record field a header maps to.
type Column int

// Record columns. ColumnEvidence is every header that is not recognized.
const (
	ColumnEvidence Column = iota
	ColumnBrand
	ColumnName
	ColumnFullName
	ColumnCategory
	ColumnIngredientText
	ColumnINCI
	ColumnPriceUSD
	ColumnPriceCNY
	ColumnRegions
	ColumnURL
	ColumnReviewStatus
	ColumnParseStatus
	ColumnHints
	ColumnRef
	ColumnIgnored
)

// RefPrefix marks a "ref:<system>:<type>" column holding an external reference.
const RefPrefix = "ref:"

// headerSynonyms maps lower-cased header names to record columns.
var headerSynonyms = map[string]Column{
	"brand":          ColumnBrand,
	"brand_en":       ColumnBrand,
	"brand_original": ColumnBrand,
	"品牌":             ColumnBrand,

	"name":                  ColumnName,
	"product_name":          ColumnName,
	"product_name_en":       ColumnName,
	"product_name_original": ColumnName,
	"title":                 ColumnName,
	"产品名称":                  ColumnName,

	"full_name":         ColumnFullName,
	"product_full_name": ColumnFullName,
	"product":           ColumnFullName,

	"category":     ColumnCategory,
	"product_type": ColumnCategory,
	"品类":           ColumnCategory,

	"ingredients_text":    ColumnIngredientText,
	"ingredient_text":     ColumnIngredientText,
	"raw_ingredient_text": ColumnIngredientText,
	"ingredients":         ColumnIngredientText,
	"成分":                  ColumnIngredientText,
	"全成分":                 ColumnIngredientText,

	"inci_list": ColumnINCI,
	"inci":      ColumnINCI,

	"price_usd": ColumnPriceUSD,
	"price":     ColumnPriceUSD,
	"price_cny": ColumnPriceCNY,

	"availability":        ColumnRegions,
	"region_availability": ColumnRegions,
	"regions":             ColumnRegions,
	"region":              ColumnRegions,
	"market":              ColumnRegions,

	"product_url":     ColumnURL,
	"url":             ColumnURL,
	"destination_url": ColumnURL,

	"review_status": ColumnReviewStatus,
	"parse_status":  ColumnParseStatus,
	"status":        ColumnParseStatus,

	"risk_flags": ColumnHints,
	"hints":      ColumnHints,

	"image_url": ColumnIgnored,
	"row_index": ColumnIgnored,
}

// refColumns maps well-known identifier columns to crosswalk references.
var refColumns = map[string]Ref{
	"canonical_url":       {System: "merchant", Type: "canonical_url"},
	"source_ref":          {System: "merchant", Type: "source_ref_url"},
	"candidate_id":        {System: "harvester", Type: "candidate_id"},
	"pivota_product_id":   {System: "pivota", Type: "product_id"},
	"product_id":          {System: "pivota", Type: "product_id"},
	"external_product_id": {System: "pivota", Type: "external_product_id"},
	"external_seed_id":    {System: "pivota", Type: "external_seed_id"},
	"seed_id":             {System: "pivota", Type: "external_seed_id"},
}

// ColumnFor maps a header to a record column. For reference columns the
// returned Ref carries the system and type.
func ColumnFor(header string) (Column, Ref) {
	h := strings.ToLower(strings.TrimSpace(header))
	if rest, ok := strings.CutPrefix(h, RefPrefix); ok {
		system, typ, found := strings.Cut(rest, ":")
		if found && system != "" && typ != "" {
			return ColumnRef, Ref{System: system, Type: typ}
		}
		return ColumnEvidence, Ref{}
	}
	if ref, ok := refColumns[h]; ok {
		return ColumnRef, ref
	}
	if col, ok := headerSynonyms[h]; ok {
		return col, Ref{}
	}
	return ColumnEvidence, Ref{}
}

// set assigns a cell to the record.
func (r *Record) set(header, value string) {
	value = cell(value)
	if value == "" {
		return
	}

	col, ref := ColumnFor(header)
	switch col {
	case ColumnBrand:
		r.Brand = value
	case ColumnName:
		r.Name = value
	case ColumnFullName:
		r.FullName = value
	case ColumnCategory:
		r.Category = value
	case ColumnIngredientText:
		r.IngredientText = value
	case ColumnINCI:
		r.INCI = value
	case ColumnPriceUSD:
		r.PriceUSD = price(value)
	case ColumnPriceCNY:
		r.PriceCNY = price(value)
	case ColumnRegions:
		r.Regions = append(r.Regions, value)
	case ColumnURL:
		r.URL = value
	case ColumnReviewStatus:
		r.ReviewStatus = value
	case ColumnParseStatus:
		r.ParseStatus = value
	case ColumnHints:
		r.Hints = append(r.Hints, splitValues([]string{value})...)
	case ColumnRef:
		ref.Value = value
		r.Refs = append(r.Refs, ref)
		if ref.Type == "canonical_url" && r.URL == "" {
			r.URL = value
		}
	case ColumnIgnored:
	default:
		if r.Evidence == nil {
			r.Evidence = make(map[string]string)
		}
		r.Evidence[strings.TrimSpace(header)] = value
	}
}

// cell trims a cell and treats spreadsheet null markers as empty.
func cell(value string) string {
	value = strings.TrimSpace(value)
	switch strings.ToLower(value) {
	case "nan", "null", "none", "n/a":
		return ""
	}
	return value
}

// price parses a price cell, tolerating currency symbols and thousands
// separators. Unparsable or negative prices read as zero.
func price(value string) float64 {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return -1
	}, value)
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || f < 0 {
		return 0
	}
	return f
}
