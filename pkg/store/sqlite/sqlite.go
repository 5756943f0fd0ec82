// Package sqlite implements store.Repository on SQLite through the pure-Go
// modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/agentstation/utc"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/agentstation/skinmap/pkg/catalogs"
	"github.com/agentstation/skinmap/pkg/errors"
	"github.com/agentstation/skinmap/pkg/store"
)

//go:embed schema.sql
var schema string

// Store is a SQLite-backed repository.
//
// The pool holds a single connection, so repository reads block while a
// transaction is open. Callers finish a Tx before calling Identities,
// Products or Mappings.
type Store struct {
	db   *sql.DB
	path string
}

// Option configures Open.
type Option func(*options)

type options struct {
	initSchema bool
}

// WithSchemaInit controls whether Open creates missing tables. It is on
// by default.
func WithSchemaInit(enabled bool) Option {
	return func(o *options) {
		o.initSchema = enabled
	}
}

// Open opens a SQLite database with WAL mode and foreign keys enabled.
func Open(path string, opts ...Option) (*Store, error) {
	o := options{initSchema: true}
	for _, opt := range opts {
		opt(&o)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.WrapIO("open", path, err)
	}
	db.SetMaxOpenConns(1)

	ctx := context.Background()

	// Enable WAL mode for crash safety between per-record commits
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, errors.WrapIO("open", path, err)
	}

	// Enable foreign keys
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, errors.WrapIO("open", path, err)
	}

	if o.initSchema {
		if _, err := db.ExecContext(ctx, schema); err != nil {
			_ = db.Close()
			return nil, errors.WrapResource("create", "schema", path, err)
		}
	}

	return &Store{db: db, path: path}, nil
}

// Path returns the database path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Check verifies every expected relation exists.
func (s *Store) Check(ctx context.Context) error {
	var missing []string
	for _, table := range store.Relations {
		var name string
		err := s.db.QueryRowContext(ctx,
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err == sql.ErrNoRows {
			missing = append(missing, table)
			continue
		}
		if err != nil {
			return errors.WrapResource("check", "schema", table, err)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", errors.ErrSchemaMissing, strings.Join(missing, ", "))
	}
	return nil
}

// Begin starts a transaction.
func (s *Store) Begin(ctx context.Context) (store.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.WrapResource("begin", "transaction", "", err)
	}
	return &sqliteTx{tx: tx}, nil
}

// Identities returns every product identity in creation order.
func (s *Store) Identities(ctx context.Context) ([]store.Identity, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, brand, name FROM products ORDER BY rowid")
	if err != nil {
		return nil, errors.WrapResource("fetch", "product", "", err)
	}
	defer rows.Close()

	var out []store.Identity
	for rows.Next() {
		var id, brand, name string
		if err := rows.Scan(&id, &brand, &name); err != nil {
			return nil, errors.WrapResource("fetch", "product", "", err)
		}
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, errors.WrapResource("fetch", "product", id, err)
		}
		out = append(out, store.Identity{ID: parsed, Brand: brand, Name: name})
	}
	return out, rows.Err()
}

// Products returns every product in creation order.
func (s *Store) Products(ctx context.Context) ([]*catalogs.Product, error) {
	rows, err := s.db.QueryContext(ctx, selectProduct+" ORDER BY p.rowid")
	if err != nil {
		return nil, errors.WrapResource("fetch", "product", "", err)
	}
	defer rows.Close()

	var out []*catalogs.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Mappings returns every crosswalk mapping ordered by slot.
func (s *Store) Mappings(ctx context.Context) ([]catalogs.Mapping, error) {
	rows, err := s.db.QueryContext(ctx, selectMapping+
		" ORDER BY source_system, source_type, external_ref_normalized")
	if err != nil {
		return nil, errors.WrapResource("fetch", "mapping", "", err)
	}
	defer rows.Close()

	var out []catalogs.Mapping
	for rows.Next() {
		m, err := scanMapping(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// DeleteMappings removes the given crosswalk slots in one transaction.
func (s *Store) DeleteMappings(ctx context.Context, keys []catalogs.MappingKey) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.WrapResource("begin", "transaction", "", err)
	}
	defer func() { _ = tx.Rollback() }()

	deleted := 0
	for _, key := range keys {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM crosswalk_mappings
			WHERE source_system = ? AND source_type = ? AND external_ref_normalized = ?`,
			key.SourceSystem, key.SourceType, key.NormalizedRef)
		if err != nil {
			return 0, errors.WrapResource("delete", "mapping", key.String(), err)
		}
		n, _ := res.RowsAffected()
		deleted += int(n)
	}
	if err := tx.Commit(); err != nil {
		return 0, errors.WrapResource("commit", "mapping", "", err)
	}
	return deleted, nil
}

type sqliteTx struct {
	tx *sql.Tx
}

func (t *sqliteTx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		if err == sql.ErrTxDone {
			return store.ErrTxDone
		}
		return errors.WrapResource("commit", "transaction", "", err)
	}
	return nil
}

func (t *sqliteTx) Rollback() error {
	if err := t.tx.Rollback(); err != nil {
		if err == sql.ErrTxDone {
			return store.ErrTxDone
		}
		return errors.WrapResource("rollback", "transaction", "", err)
	}
	return nil
}

const selectProduct = `SELECT p.id, p.brand, p.name, p.category, p.ingredient_text, p.regions,
	p.price_usd, p.price_cny, p.price_is_estimated, p.url,
	p.evidence_sensitivity, p.evidence_chemist_notes, p.evidence_key_actives,
	p.risk_flags, p.burn_rate, p.risk_version, p.annotation, p.created_at, p.updated_at,
	COALESCE(i.ingredients, '[]')
	FROM products p LEFT JOIN product_ingredients i ON i.product_id = p.id`

func (t *sqliteTx) Product(ctx context.Context, id uuid.UUID) (*catalogs.Product, error) {
	row := t.tx.QueryRowContext(ctx, selectProduct+" WHERE p.id = ?", id.String())
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFoundError("product", id.String())
	}
	return p, err
}

func (t *sqliteTx) SaveProduct(ctx context.Context, p *catalogs.Product) error {
	if p == nil || p.ID == uuid.Nil {
		return errors.NewValidationError("id", nil, "product id is required")
	}
	id := p.ID.String()

	regions, err := marshal(nonNil(p.Regions))
	if err != nil {
		return errors.WrapResource("encode", "product", id, err)
	}
	flags, err := marshal(nonNil(p.Risk.Strings()))
	if err != nil {
		return errors.WrapResource("encode", "product", id, err)
	}
	var annotation sql.NullString
	if p.Annotation != nil {
		raw, err := marshal(p.Annotation)
		if err != nil {
			return errors.WrapResource("encode", "product", id, err)
		}
		annotation = sql.NullString{String: raw, Valid: true}
	}

	_, err = t.tx.ExecContext(ctx, `INSERT INTO products (
		id, identity_key, brand, name, category, ingredient_text, regions,
		price_usd, price_cny, price_is_estimated, url,
		evidence_sensitivity, evidence_chemist_notes, evidence_key_actives,
		risk_flags, burn_rate, risk_version, annotation, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		identity_key = excluded.identity_key,
		brand = excluded.brand,
		name = excluded.name,
		category = excluded.category,
		ingredient_text = excluded.ingredient_text,
		regions = excluded.regions,
		price_usd = excluded.price_usd,
		price_cny = excluded.price_cny,
		price_is_estimated = excluded.price_is_estimated,
		url = excluded.url,
		evidence_sensitivity = excluded.evidence_sensitivity,
		evidence_chemist_notes = excluded.evidence_chemist_notes,
		evidence_key_actives = excluded.evidence_key_actives,
		risk_flags = excluded.risk_flags,
		burn_rate = excluded.burn_rate,
		risk_version = excluded.risk_version,
		annotation = excluded.annotation,
		updated_at = excluded.updated_at`,
		id, p.IdentityKey(), p.Brand, p.Name, p.Category, p.IngredientText, regions,
		p.PriceUSD, p.PriceCNY, p.PriceIsEstimated, p.URL,
		p.Evidence.Sensitivity, p.Evidence.ChemistNotes, p.Evidence.KeyActives,
		flags, p.Risk.BurnRate, p.Risk.Version, annotation,
		formatTime(p.CreatedAt), formatTime(p.UpdatedAt))
	if err != nil {
		return errors.WrapResource("save", "product", id, err)
	}

	ingredients, err := marshal(nonNil(p.Ingredients))
	if err != nil {
		return errors.WrapResource("encode", "ingredients", id, err)
	}
	_, err = t.tx.ExecContext(ctx, `INSERT INTO product_ingredients (product_id, ingredients) VALUES (?, ?)
		ON CONFLICT(product_id) DO UPDATE SET ingredients = excluded.ingredients`, id, ingredients)
	if err != nil {
		return errors.WrapResource("save", "ingredients", id, err)
	}
	return nil
}

func (t *sqliteTx) Snippet(ctx context.Context, key catalogs.SnippetKey) (catalogs.Snippet, error) {
	var content, metadata, updated string
	err := t.tx.QueryRowContext(ctx, `SELECT content, metadata, updated_at FROM knowledge_snippets
		WHERE product_id = ? AND source_label = ? AND field_label = ?`,
		key.ProductID.String(), key.SourceLabel, key.FieldLabel).Scan(&content, &metadata, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return catalogs.Snippet{}, errors.NewNotFoundError("snippet", key.SourceLabel+"/"+key.FieldLabel)
	}
	if err != nil {
		return catalogs.Snippet{}, errors.WrapResource("fetch", "snippet", key.ProductID.String(), err)
	}

	s := catalogs.Snippet{ProductID: key.ProductID, SourceLabel: key.SourceLabel, FieldLabel: key.FieldLabel, Content: content}
	if err := unmarshal(metadata, &s.Metadata); err != nil {
		return catalogs.Snippet{}, errors.WrapResource("decode", "snippet", key.ProductID.String(), err)
	}
	s.UpdatedAt = parseTime(updated)
	return s, nil
}

func (t *sqliteTx) SaveSnippet(ctx context.Context, s catalogs.Snippet) error {
	metadata, err := marshal(nonNilMap(s.Metadata))
	if err != nil {
		return errors.WrapResource("encode", "snippet", s.ProductID.String(), err)
	}
	_, err = t.tx.ExecContext(ctx, `INSERT INTO knowledge_snippets
		(product_id, source_label, field_label, content, metadata, updated_at) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(product_id, source_label, field_label) DO UPDATE SET
			content = excluded.content, metadata = excluded.metadata, updated_at = excluded.updated_at`,
		s.ProductID.String(), s.SourceLabel, s.FieldLabel, s.Content, metadata, formatTime(s.UpdatedAt))
	if err != nil {
		return errors.WrapResource("save", "snippet", s.ProductID.String(), err)
	}
	return nil
}

func (t *sqliteTx) Aliases(ctx context.Context, productID uuid.UUID) ([]catalogs.Alias, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT alias, normalized_alias, kind, weight FROM product_aliases
		WHERE product_id = ? ORDER BY weight DESC, normalized_alias`, productID.String())
	if err != nil {
		return nil, errors.WrapResource("fetch", "alias", productID.String(), err)
	}
	defer rows.Close()

	var out []catalogs.Alias
	for rows.Next() {
		a := catalogs.Alias{ProductID: productID}
		if err := rows.Scan(&a.Alias, &a.NormalizedAlias, &a.Kind, &a.Weight); err != nil {
			return nil, errors.WrapResource("fetch", "alias", productID.String(), err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (t *sqliteTx) SaveAlias(ctx context.Context, a catalogs.Alias) error {
	_, err := t.tx.ExecContext(ctx, `INSERT INTO product_aliases (product_id, alias, normalized_alias, kind, weight)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(product_id, normalized_alias) DO UPDATE SET
			alias = excluded.alias, kind = excluded.kind, weight = excluded.weight`,
		a.ProductID.String(), a.Alias, a.NormalizedAlias, a.Kind, a.Weight)
	if err != nil {
		return errors.WrapResource("save", "alias", a.ProductID.String(), err)
	}
	return nil
}

const selectMapping = `SELECT source_system, source_type, external_ref, external_ref_normalized,
	product_id, confidence, metadata, updated_at FROM crosswalk_mappings`

func (t *sqliteTx) Mapping(ctx context.Context, key catalogs.MappingKey) (catalogs.Mapping, error) {
	row := t.tx.QueryRowContext(ctx, selectMapping+
		" WHERE source_system = ? AND source_type = ? AND external_ref_normalized = ?",
		key.SourceSystem, key.SourceType, key.NormalizedRef)
	m, err := scanMapping(row)
	if errors.Is(err, sql.ErrNoRows) {
		return catalogs.Mapping{}, errors.NewNotFoundError("mapping", key.String())
	}
	return m, err
}

func (t *sqliteTx) SaveMapping(ctx context.Context, m catalogs.Mapping) error {
	metadata, err := marshal(nonNilMap(m.Metadata))
	if err != nil {
		return errors.WrapResource("encode", "mapping", m.Key().String(), err)
	}
	_, err = t.tx.ExecContext(ctx, `INSERT INTO crosswalk_mappings
		(source_system, source_type, external_ref, external_ref_normalized, product_id, confidence, metadata, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_system, source_type, external_ref_normalized) DO UPDATE SET
			external_ref = excluded.external_ref,
			product_id = excluded.product_id,
			confidence = excluded.confidence,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at`,
		m.SourceSystem, m.SourceType, m.ExternalRef, m.NormalizedRef, m.ProductID.String(),
		m.Confidence, metadata, formatTime(m.UpdatedAt))
	if err != nil {
		return errors.WrapResource("save", "mapping", m.Key().String(), err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(row scanner) (*catalogs.Product, error) {
	var (
		p                               catalogs.Product
		id, regions, flags, ingredients string
		created, updated                string
		annotation                      sql.NullString
	)
	err := row.Scan(&id, &p.Brand, &p.Name, &p.Category, &p.IngredientText, &regions,
		&p.PriceUSD, &p.PriceCNY, &p.PriceIsEstimated, &p.URL,
		&p.Evidence.Sensitivity, &p.Evidence.ChemistNotes, &p.Evidence.KeyActives,
		&flags, &p.Risk.BurnRate, &p.Risk.Version, &annotation, &created, &updated,
		&ingredients)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, errors.WrapResource("fetch", "product", id, err)
	}

	if p.ID, err = uuid.Parse(id); err != nil {
		return nil, errors.WrapResource("decode", "product", id, err)
	}
	if err := unmarshal(regions, &p.Regions); err != nil {
		return nil, errors.WrapResource("decode", "product", id, err)
	}
	if err := unmarshal(ingredients, &p.Ingredients); err != nil {
		return nil, errors.WrapResource("decode", "ingredients", id, err)
	}
	var names []string
	if err := unmarshal(flags, &names); err != nil {
		return nil, errors.WrapResource("decode", "product", id, err)
	}
	for _, name := range names {
		p.Risk.Flags = append(p.Risk.Flags, catalogs.Flag(name))
	}
	if annotation.Valid {
		p.Annotation = &catalogs.Annotation{}
		if err := unmarshal(annotation.String, p.Annotation); err != nil {
			return nil, errors.WrapResource("decode", "product", id, err)
		}
	}
	p.CreatedAt = parseTime(created)
	p.UpdatedAt = parseTime(updated)
	return &p, nil
}

func scanMapping(row scanner) (catalogs.Mapping, error) {
	var (
		m                   catalogs.Mapping
		productID, metadata string
		updated             string
	)
	err := row.Scan(&m.SourceSystem, &m.SourceType, &m.ExternalRef, &m.NormalizedRef,
		&productID, &m.Confidence, &metadata, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return m, err
		}
		return m, errors.WrapResource("fetch", "mapping", "", err)
	}
	if m.ProductID, err = uuid.Parse(productID); err != nil {
		return m, errors.WrapResource("decode", "mapping", m.Key().String(), err)
	}
	if err := unmarshal(metadata, &m.Metadata); err != nil {
		return m, errors.WrapResource("decode", "mapping", m.Key().String(), err)
	}
	m.UpdatedAt = parseTime(updated)
	return m, nil
}

func marshal(v any) (string, error) {
	data, err := json.Marshal(v)
	return string(data), err
}

func unmarshal(data string, v any) error {
	if data == "" {
		return nil
	}
	return json.Unmarshal([]byte(data), v)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func nonNilMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func formatTime(t utc.Time) string {
	if t.IsZero() {
		t = utc.Now()
	}
	return t.Format(time.RFC3339Nano)
}

func parseTime(s string) utc.Time {
	t, err := utc.Parse(time.RFC3339Nano, s)
	if err != nil {
		return utc.Time{}
	}
	return t
}
