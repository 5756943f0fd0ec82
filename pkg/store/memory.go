package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/agentstation/skinmap/pkg/catalogs"
	"github.com/agentstation/skinmap/pkg/errors"
)

// ErrTxDone is returned when a finished transaction is used again.
var ErrTxDone = errors.New("transaction already committed or rolled back")

type aliasKey struct {
	productID  uuid.UUID
	normalized string
}

// tables is the data of a memory store or the pending writes of a memory transaction.
type tables struct {
	products map[uuid.UUID]*catalogs.Product
	order    []uuid.UUID
	snippets map[catalogs.SnippetKey]catalogs.Snippet
	aliases  map[aliasKey]catalogs.Alias
	mappings map[catalogs.MappingKey]catalogs.Mapping
}

func newTables() tables {
	return tables{
		products: make(map[uuid.UUID]*catalogs.Product),
		snippets: make(map[catalogs.SnippetKey]catalogs.Snippet),
		aliases:  make(map[aliasKey]catalogs.Alias),
		mappings: make(map[catalogs.MappingKey]catalogs.Mapping),
	}
}

// Memory is an in-memory Repository for tests and dry runs.
type Memory struct {
	mu     sync.RWMutex
	data   tables
	closed bool
}

// NewMemory creates an empty in-memory repository.
func NewMemory() *Memory {
	return &Memory{data: newTables()}
}

// Begin starts a transaction. Pending writes become visible to other
// readers only on Commit.
func (m *Memory) Begin(ctx context.Context) (Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, errors.NewResourceError("begin", "transaction", "", errors.New("store is closed"))
	}
	return &memoryTx{store: m, pending: newTables()}, nil
}

// Identities returns every product identity in creation order.
func (m *Memory) Identities(_ context.Context) ([]Identity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Identity, 0, len(m.data.order))
	for _, id := range m.data.order {
		p := m.data.products[id]
		out = append(out, Identity{ID: p.ID, Brand: p.Brand, Name: p.Name})
	}
	return out, nil
}

// Products returns copies of every product in creation order.
func (m *Memory) Products(_ context.Context) ([]*catalogs.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*catalogs.Product, 0, len(m.data.order))
	for _, id := range m.data.order {
		out = append(out, m.data.products[id].Copy())
	}
	return out, nil
}

// Mappings returns every crosswalk mapping ordered by slot.
func (m *Memory) Mappings(_ context.Context) ([]catalogs.Mapping, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]catalogs.Mapping, 0, len(m.data.mappings))
	for _, mapping := range m.data.mappings {
		out = append(out, mapping.Copy())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Key().String() < out[j].Key().String()
	})
	return out, nil
}

// DeleteMappings removes the given crosswalk slots.
func (m *Memory) DeleteMappings(_ context.Context, keys []catalogs.MappingKey) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	deleted := 0
	for _, key := range keys {
		if _, ok := m.data.mappings[key]; ok {
			delete(m.data.mappings, key)
			deleted++
		}
	}
	return deleted, nil
}

// Snippets returns every snippet of a product ordered by source and field label.
func (m *Memory) Snippets(productID uuid.UUID) []catalogs.Snippet {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []catalogs.Snippet
	for key, s := range m.data.snippets {
		if key.ProductID == productID {
			out = append(out, s.Copy())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SourceLabel != out[j].SourceLabel {
			return out[i].SourceLabel < out[j].SourceLabel
		}
		return out[i].FieldLabel < out[j].FieldLabel
	})
	return out
}

// Check always succeeds for an open memory store.
func (m *Memory) Check(_ context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return errors.NewResourceError("check", "store", "", errors.New("store is closed"))
	}
	return nil
}

// Close marks the store closed.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

type memoryTx struct {
	store   *Memory
	pending tables
	done    bool
}

func (tx *memoryTx) check(ctx context.Context) error {
	if tx.done {
		return ErrTxDone
	}
	return ctx.Err()
}

func (tx *memoryTx) Product(ctx context.Context, id uuid.UUID) (*catalogs.Product, error) {
	if err := tx.check(ctx); err != nil {
		return nil, err
	}
	if p, ok := tx.pending.products[id]; ok {
		return p.Copy(), nil
	}
	tx.store.mu.RLock()
	defer tx.store.mu.RUnlock()
	if p, ok := tx.store.data.products[id]; ok {
		return p.Copy(), nil
	}
	return nil, errors.NewNotFoundError("product", id.String())
}

func (tx *memoryTx) SaveProduct(ctx context.Context, p *catalogs.Product) error {
	if err := tx.check(ctx); err != nil {
		return err
	}
	if p == nil || p.ID == uuid.Nil {
		return errors.NewValidationError("id", nil, "product id is required")
	}
	if _, ok := tx.pending.products[p.ID]; !ok {
		tx.pending.order = append(tx.pending.order, p.ID)
	}
	tx.pending.products[p.ID] = p.Copy()
	return nil
}

func (tx *memoryTx) Snippet(ctx context.Context, key catalogs.SnippetKey) (catalogs.Snippet, error) {
	if err := tx.check(ctx); err != nil {
		return catalogs.Snippet{}, err
	}
	if s, ok := tx.pending.snippets[key]; ok {
		return s.Copy(), nil
	}
	tx.store.mu.RLock()
	defer tx.store.mu.RUnlock()
	if s, ok := tx.store.data.snippets[key]; ok {
		return s.Copy(), nil
	}
	return catalogs.Snippet{}, errors.NewNotFoundError("snippet", key.SourceLabel+"/"+key.FieldLabel)
}

func (tx *memoryTx) SaveSnippet(ctx context.Context, s catalogs.Snippet) error {
	if err := tx.check(ctx); err != nil {
		return err
	}
	tx.pending.snippets[s.Key()] = s.Copy()
	return nil
}

func (tx *memoryTx) Aliases(ctx context.Context, productID uuid.UUID) ([]catalogs.Alias, error) {
	if err := tx.check(ctx); err != nil {
		return nil, err
	}
	merged := make(map[aliasKey]catalogs.Alias)
	tx.store.mu.RLock()
	for key, a := range tx.store.data.aliases {
		if key.productID == productID {
			merged[key] = a
		}
	}
	tx.store.mu.RUnlock()
	for key, a := range tx.pending.aliases {
		if key.productID == productID {
			merged[key] = a
		}
	}

	out := make([]catalogs.Alias, 0, len(merged))
	for _, a := range merged {
		out = append(out, a)
	}
	sortAliases(out)
	return out, nil
}

func (tx *memoryTx) SaveAlias(ctx context.Context, a catalogs.Alias) error {
	if err := tx.check(ctx); err != nil {
		return err
	}
	tx.pending.aliases[aliasKey{productID: a.ProductID, normalized: a.NormalizedAlias}] = a
	return nil
}

func (tx *memoryTx) Mapping(ctx context.Context, key catalogs.MappingKey) (catalogs.Mapping, error) {
	if err := tx.check(ctx); err != nil {
		return catalogs.Mapping{}, err
	}
	if m, ok := tx.pending.mappings[key]; ok {
		return m.Copy(), nil
	}
	tx.store.mu.RLock()
	defer tx.store.mu.RUnlock()
	if m, ok := tx.store.data.mappings[key]; ok {
		return m.Copy(), nil
	}
	return catalogs.Mapping{}, errors.NewNotFoundError("mapping", key.String())
}

func (tx *memoryTx) SaveMapping(ctx context.Context, m catalogs.Mapping) error {
	if err := tx.check(ctx); err != nil {
		return err
	}
	tx.pending.mappings[m.Key()] = m.Copy()
	return nil
}

func (tx *memoryTx) Commit() error {
	if tx.done {
		return ErrTxDone
	}
	tx.done = true

	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range tx.pending.order {
		if _, ok := s.data.products[id]; !ok {
			s.data.order = append(s.data.order, id)
		}
		s.data.products[id] = tx.pending.products[id]
	}
	for key, v := range tx.pending.snippets {
		s.data.snippets[key] = v
	}
	for key, v := range tx.pending.aliases {
		s.data.aliases[key] = v
	}
	for key, v := range tx.pending.mappings {
		s.data.mappings[key] = v
	}
	return nil
}

func (tx *memoryTx) Rollback() error {
	if tx.done {
		return ErrTxDone
	}
	tx.done = true
	tx.pending = newTables()
	return nil
}

// sortAliases orders aliases heaviest first, then by normalized text.
func sortAliases(aliases []catalogs.Alias) {
	sort.Slice(aliases, func(i, j int) bool {
		if aliases[i].Weight != aliases[j].Weight {
			return aliases[i].Weight > aliases[j].Weight
		}
		return aliases[i].NormalizedAlias < aliases[j].NormalizedAlias
	})
}
