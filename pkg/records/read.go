package records

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/skinmap/pkg/errors"
	"github.com/agentstation/skinmap/pkg/identity"
)

// Reader options.
type options struct {
	keyer *identity.Keyer
}

// Option configures a reader.
type Option func(*options)

// WithKeyer sets the keyer used to split full product names.
func WithKeyer(k *identity.Keyer) Option {
	return func(o *options) {
		o.keyer = k
	}
}

func apply(opts []Option) *options {
	o := &options{keyer: identity.Default()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ReadFile reads records from path, choosing the format by extension.
// The source label is the file name without its extension.
func ReadFile(path string, opts ...Option) ([]*Record, error) {
	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return nil, errors.WrapIO("open", path, err)
	}
	defer func() { _ = f.Close() }()

	source := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	var recs []*Record
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		recs, err = ReadCSV(f, source, opts...)
	case ".json", ".jsonl", ".ndjson":
		recs, err = ReadJSON(f, source, opts...)
	case ".yaml", ".yml":
		recs, err = ReadYAML(f, source, opts...)
	default:
		return nil, errors.NewValidationError("path", path, fmt.Sprintf("unsupported input format %q", ext))
	}

	var pe *errors.ParseError
	if errors.As(err, &pe) && pe.File == "" {
		pe.File = path
	}
	return recs, err
}

// ReadCSV reads a CSV export with a header row. Row indexes count data
// rows from zero.
func ReadCSV(r io.Reader, source string, opts ...Option) ([]*Record, error) {
	o := apply(opts)

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WrapParse("csv", "", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	var recs []*Record
	for row := 0; ; row++ {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.WrapParse("csv", "", err)
		}

		rec := &Record{Source: source, RowIndex: row}
		for i, value := range fields {
			if i < len(header) {
				rec.set(header[i], value)
			}
		}
		rec.Prepare(o.keyer)
		recs = append(recs, rec)
	}
	return recs, nil
}

// ReadJSON reads a JSON array of objects, an object with an "items" array,
// or JSON lines.
func ReadJSON(r io.Reader, source string, opts ...Option) ([]*Record, error) {
	o := apply(opts)

	var items []map[string]any
	dec := json.NewDecoder(r)
	dec.UseNumber()
	for {
		var v any
		if err := dec.Decode(&v); err == io.EOF {
			break
		} else if err != nil {
			return nil, errors.WrapParse("json", "", err)
		}
		items = append(items, unwrapItems(v)...)
	}
	return fromItems(items, source, o), nil
}

// ReadYAML reads a YAML list of mappings or a mapping with an "items" list.
func ReadYAML(r io.Reader, source string, opts ...Option) ([]*Record, error) {
	o := apply(opts)

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.WrapIO("read", source, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, errors.WrapParse("yaml", "", err)
	}
	return fromItems(unwrapItems(v), source, o), nil
}

// unwrapItems flattens a decoded document into item objects.
func unwrapItems(v any) []map[string]any {
	switch t := v.(type) {
	case []any:
		var out []map[string]any
		for _, item := range t {
			if m, ok := asMap(item); ok {
				out = append(out, m)
			}
		}
		return out
	default:
		m, ok := asMap(t)
		if !ok {
			return nil
		}
		if items, ok := m["items"].([]any); ok {
			return unwrapItems(items)
		}
		return []map[string]any{m}
	}
}

// asMap accepts both JSON objects and YAML mappings with non-string keys.
func asMap(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = val
		}
		return out, true
	}
	return nil, false
}

func fromItems(items []map[string]any, source string, o *options) []*Record {
	recs := make([]*Record, 0, len(items))
	for i, item := range items {
		rec := &Record{Source: source, RowIndex: i}
		keys := make([]string, 0, len(item))
		for key := range item {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			rec.setAny(key, item[key])
		}
		rec.Prepare(o.keyer)
		recs = append(recs, rec)
	}
	return recs
}

// setAny assigns a decoded value. Nested expert knowledge and snippet
// lists become evidence; lists become comma separated cells.
func (r *Record) setAny(key string, value any) {
	switch strings.ToLower(key) {
	case "expert_knowledge":
		if m, ok := asMap(value); ok {
			for label, text := range m {
				r.setEvidence(label, scalar(text))
			}
		}
		return
	case "kb_snippets":
		if list, ok := value.([]any); ok {
			for _, item := range list {
				if m, ok := asMap(item); ok {
					label := scalar(m["field"])
					if label == "" {
						label = scalar(m["canonical_key"])
					}
					if label == "" {
						label = "notes"
					}
					r.setEvidence(label, scalar(m["content"]))
				}
			}
		}
		return
	case "refs":
		if list, ok := value.([]any); ok {
			for _, item := range list {
				if m, ok := asMap(item); ok {
					ref := Ref{System: scalar(m["system"]), Type: scalar(m["type"]), Value: scalar(m["value"])}
					if ref.System != "" && ref.Type != "" && ref.Value != "" {
						r.Refs = append(r.Refs, ref)
					}
				}
			}
		}
		return
	}

	if list, ok := value.([]any); ok {
		parts := make([]string, 0, len(list))
		for _, item := range list {
			if s := scalar(item); s != "" {
				parts = append(parts, s)
			}
		}
		r.set(key, strings.Join(parts, ", "))
		return
	}
	r.set(key, scalar(value))
}

func (r *Record) setEvidence(label, text string) {
	if label = strings.TrimSpace(label); label == "" {
		return
	}
	if text = cell(text); text == "" {
		return
	}
	if r.Evidence == nil {
		r.Evidence = make(map[string]string)
	}
	if existing := r.Evidence[label]; existing != "" {
		text = existing + " | " + text
	}
	r.Evidence[label] = text
}

// scalar renders a decoded scalar as text.
func scalar(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return fmt.Sprintf("%g", t)
	default:
		return fmt.Sprint(t)
	}
}
