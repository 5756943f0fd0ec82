package store

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/agentstation/skinmap/internal/matcher"
	"github.com/agentstation/skinmap/pkg/logging"
)

// Index caches the product identities of a repository for matching.
//
// The index loads once on first use. It does not observe writes on its own:
// callers Refresh it after a committed write that creates a product or
// changes a brand or name. Until then, matches see the identities as of
// the last load.
type Index struct {
	repo    Repository
	matcher *matcher.Matcher

	mu         sync.RWMutex
	loaded     bool
	candidates []matcher.Candidate
	loads      int
}

// NewIndex creates an index over repo. A nil matcher uses the default one.
func NewIndex(repo Repository, m *matcher.Matcher) *Index {
	if m == nil {
		m = matcher.New()
	}
	return &Index{repo: repo, matcher: m}
}

// Load reads the identities if they have not been read yet.
func (i *Index) Load(ctx context.Context) error {
	i.mu.RLock()
	loaded := i.loaded
	i.mu.RUnlock()
	if loaded {
		return nil
	}
	return i.Refresh(ctx)
}

// Refresh re-reads every identity from the repository.
func (i *Index) Refresh(ctx context.Context) error {
	identities, err := i.repo.Identities(ctx)
	if err != nil {
		return err
	}

	candidates := make([]matcher.Candidate, 0, len(identities))
	for _, id := range identities {
		candidates = append(candidates, i.matcher.Prepare(id.ID.String(), id.Brand, id.Name))
	}

	i.mu.Lock()
	i.candidates = candidates
	i.loaded = true
	i.loads++
	i.mu.Unlock()

	logging.FromContext(ctx).Debug().
		Int("identities", len(candidates)).
		Msg("Identity index loaded")
	return nil
}

// Match returns the best canonical product for (brand, name).
func (i *Index) Match(brand, name string) matcher.Result {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.matcher.Match(brand, name, i.candidates)
}

// Resolve returns the ID of the matched product, if any.
func (i *Index) Resolve(brand, name string) (uuid.UUID, matcher.Result, bool) {
	res := i.Match(brand, name)
	if !res.Matched() {
		return uuid.Nil, res, false
	}
	id, err := uuid.Parse(res.Candidate.ID)
	if err != nil {
		return uuid.Nil, res, false
	}
	return id, res, true
}

// Contains reports whether (brand, name) resolves to a canonical product.
func (i *Index) Contains(brand, name string) bool {
	return i.Match(brand, name).Matched()
}

// Len returns the number of loaded identities.
func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.candidates)
}

// Loads returns how many times the index read the repository.
func (i *Index) Loads() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.loads
}
