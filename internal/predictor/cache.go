package predictor

import (
	"sync"

	"prediction-systemv1/internal/model"
)

// Cache holds the latest prediction per symbol. Each evaluation supersedes
// the previous record wholesale; there is no merging.
type Cache struct {
	mu    sync.RWMutex
	preds map[string]model.PredictionData
}

// NewCache returns an empty prediction cache.
func NewCache() *Cache {
	return &Cache{preds: make(map[string]model.PredictionData)}
}

// Put stores the latest prediction for its symbol.
func (c *Cache) Put(p model.PredictionData) {
	c.mu.Lock()
	c.preds[p.Symbol] = p
	c.mu.Unlock()
}

// Get returns the latest prediction for a symbol, if any.
func (c *Cache) Get(symbol string) (model.PredictionData, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.preds[symbol]
	return p, ok
}

// All returns a snapshot of every cached prediction keyed by symbol.
func (c *Cache) All() map[string]model.PredictionData {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]model.PredictionData, len(c.preds))
	for k, v := range c.preds {
		out[k] = v
	}
	return out
}
