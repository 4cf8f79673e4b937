package predict

import (
	"github.com/BillPolly/adaptcache/pattern"
)

// ModelFunc produces candidates from application-supplied logic. It is the
// extension point for learned predictors; implementations must be safe for
// concurrent use.
type ModelFunc[K comparable, C comparable] func(key K, cctx C, hasCtx bool) []Prediction[K]

// Model wraps an optional application-supplied prediction function. A nil
// function predicts nothing.
type Model[K comparable, C comparable] struct {
	fn ModelFunc[K, C]
}

// NewModel creates a model predictor around fn
func NewModel[K comparable, C comparable](fn ModelFunc[K, C]) *Model[K, C] {
	return &Model[K, C]{fn: fn}
}

// Name identifies the predictor in Prediction.Sources
func (m *Model[K, C]) Name() string {
	return "model"
}

// Predict delegates to the wrapped function, stamping the model as source
// on candidates that do not declare one
func (m *Model[K, C]) Predict(key K, cctx C, hasCtx bool) []Prediction[K] {
	if m.fn == nil {
		return nil
	}
	out := m.fn(key, cctx, hasCtx)
	for i := range out {
		if len(out[i].Sources) == 0 {
			out[i].Sources = []string{m.Name()}
		}
	}
	return out
}

// StandardPredictors returns the built-in predictor set over a tracker, in
// the order they are consulted
func StandardPredictors[K comparable, C comparable](tracker *pattern.Tracker[K, C]) []Predictor[K, C] {
	return []Predictor[K, C]{
		NewSequential(tracker),
		NewFrequency(tracker),
		NewContext(tracker),
	}
}
