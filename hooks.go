package skinmap

import (
	"sync"

	"github.com/agentstation/skinmap/pkg/catalogs"
	"github.com/agentstation/skinmap/pkg/crosswalk"
	"github.com/agentstation/skinmap/pkg/differ"
	"github.com/agentstation/skinmap/pkg/ingest"
)

// Hook function types for product events
type (
	// ProductAddedHook is called when an ingestion run inserts a product
	ProductAddedHook func(product catalogs.Product)

	// ProductUpdatedHook is called when an ingestion run changes a product
	ProductUpdatedHook func(update differ.ProductUpdate)

	// ConflictHook is called for every crosswalk conflict a run refuses
	ConflictHook func(conflict crosswalk.ConflictRecord)
)

// Hooks provides event callback registration.
type Hooks interface {
	OnProductAdded(ProductAddedHook)
	OnProductUpdated(ProductUpdatedHook)
	OnConflict(ConflictHook)
}

// hooks manages event callbacks for committed runs
type hooks struct {
	mu               sync.RWMutex
	onProductAdded   []ProductAddedHook
	onProductUpdated []ProductUpdatedHook
	onConflict       []ConflictHook
}

func newHooks() *hooks {
	return &hooks{}
}

// OnProductAdded registers a callback for inserted products.
func (h *hooks) OnProductAdded(fn ProductAddedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onProductAdded = append(h.onProductAdded, fn)
}

// OnProductUpdated registers a callback for changed products.
func (h *hooks) OnProductUpdated(fn ProductUpdatedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onProductUpdated = append(h.onProductUpdated, fn)
}

// OnConflict registers a callback for crosswalk conflicts.
func (h *hooks) OnConflict(fn ConflictHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onConflict = append(h.onConflict, fn)
}

// trigger fires the hooks for a finished run. Dry runs fire nothing.
func (h *hooks) trigger(summary *ingest.Summary) {
	if summary == nil || summary.DryRun {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, o := range summary.Outcomes {
		if !o.Wrote() {
			continue
		}
		if o.Created != nil {
			for _, hook := range h.onProductAdded {
				hook(*o.Created)
			}
		}
		if o.Update != nil {
			for _, hook := range h.onProductUpdated {
				hook(*o.Update)
			}
		}
	}
	for _, c := range summary.Conflicts.Conflicts {
		for _, hook := range h.onConflict {
			hook(c)
		}
	}
}
