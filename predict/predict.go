// Package predict combines independent predictors into ranked key
// predictions for prefetching. Each predictor reads the bounded structures
// maintained by package pattern and returns candidate keys with a
// confidence; the engine merges same-key candidates by averaging and keeps
// only those above the preload threshold.
package predict

import "sort"

// Prediction is one candidate key with its merged confidence and the
// predictor names that contributed to it. Predictions are ephemeral and
// never persisted.
type Prediction[K comparable] struct {
	Key        K
	Confidence float64
	Sources    []string
}

// Predictor is the contract each variant implements
type Predictor[K comparable, C comparable] interface {
	// Name identifies the predictor in Prediction.Sources
	Name() string

	// Predict returns raw candidates for the key just accessed. A candidate
	// may appear more than once; repeated evidence weights the merged
	// average toward that predictor's confidence.
	Predict(key K, cctx C, hasCtx bool) []Prediction[K]
}

// Config represents configuration for the engine
type Config struct {
	// Threshold is the minimum merged confidence a prediction must exceed
	// to be returned. 1.0 disables prediction entirely.
	Threshold float64

	// MaxPredictions caps how many predictions one trigger may return
	MaxPredictions int
}

// DefaultConfig returns the default engine configuration
func DefaultConfig() Config {
	return Config{
		Threshold:      0.7,
		MaxPredictions: 5,
	}
}

// Engine merges predictor output into a ranked, thresholded prediction list
type Engine[K comparable, C comparable] struct {
	cfg        Config
	predictors []Predictor[K, C]
}

// NewEngine creates an engine over the given predictors, consulted in order
func NewEngine[K comparable, C comparable](cfg Config, predictors ...Predictor[K, C]) *Engine[K, C] {
	if cfg.MaxPredictions <= 0 {
		cfg.MaxPredictions = DefaultConfig().MaxPredictions
	}
	return &Engine[K, C]{cfg: cfg, predictors: predictors}
}

type merged[K comparable] struct {
	key     K
	sum     float64
	n       int
	sources []string
}

// Predict runs every predictor for the key just accessed and merges the
// results. Same-key candidates are merged by averaging confidence and
// unioning sources; only merged predictions strictly above the threshold
// survive, ranked by confidence and capped at MaxPredictions.
func (e *Engine[K, C]) Predict(key K, cctx C, hasCtx bool) []Prediction[K] {
	if e.cfg.Threshold >= 1.0 {
		return nil
	}

	accs := make(map[K]*merged[K])
	var order []K
	for _, p := range e.predictors {
		for _, raw := range p.Predict(key, cctx, hasCtx) {
			conf := raw.Confidence
			if conf < 0 {
				conf = 0
			} else if conf > 1 {
				conf = 1
			}
			acc, ok := accs[raw.Key]
			if !ok {
				acc = &merged[K]{key: raw.Key}
				accs[raw.Key] = acc
				order = append(order, raw.Key)
			}
			acc.sum += conf
			acc.n++
			for _, src := range raw.Sources {
				acc.addSource(src)
			}
		}
	}

	out := make([]Prediction[K], 0, len(order))
	rank := make(map[K]int, len(order))
	for i, k := range order {
		rank[k] = i
		acc := accs[k]
		conf := acc.sum / float64(acc.n)
		if conf > e.cfg.Threshold {
			out = append(out, Prediction[K]{Key: k, Confidence: conf, Sources: acc.sources})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return rank[out[i].Key] < rank[out[j].Key]
	})
	if len(out) > e.cfg.MaxPredictions {
		out = out[:e.cfg.MaxPredictions]
	}
	return out
}

func (m *merged[K]) addSource(src string) {
	for _, s := range m.sources {
		if s == src {
			return
		}
	}
	m.sources = append(m.sources, src)
}
