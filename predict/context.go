package predict

import (
	"github.com/BillPolly/adaptcache/pattern"
)

// contextConfidence is the fixed confidence for context-associated keys
const contextConfidence = 0.7

// Context predicts the keys previously accessed under the same context.
// Association uses context equality, so two accesses share patterns only
// when their contexts compare equal.
type Context[K comparable, C comparable] struct {
	tracker *pattern.Tracker[K, C]
}

// NewContext creates a context predictor over the given tracker
func NewContext[K comparable, C comparable](tracker *pattern.Tracker[K, C]) *Context[K, C] {
	return &Context[K, C]{tracker: tracker}
}

// Name identifies the predictor in Prediction.Sources
func (c *Context[K, C]) Name() string {
	return "context"
}

// Predict returns the keys associated with the current context. Accesses
// recorded without a context produce nothing.
func (c *Context[K, C]) Predict(_ K, cctx C, hasCtx bool) []Prediction[K] {
	if !hasCtx {
		return nil
	}
	keys := c.tracker.ContextKeys(cctx)
	if len(keys) == 0 {
		return nil
	}

	out := make([]Prediction[K], 0, len(keys))
	for _, k := range keys {
		out = append(out, Prediction[K]{
			Key:        k,
			Confidence: contextConfidence,
			Sources:    []string{c.Name()},
		})
	}
	return out
}
