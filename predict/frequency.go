package predict

import (
	"github.com/BillPolly/adaptcache/pattern"
)

// frequencyTop is how many of the most-accessed keys are considered
const frequencyTop = 5

// frequencyCeiling caps frequency-derived confidence
const frequencyCeiling = 0.9

// frequencyScale maps an access count onto a confidence
const frequencyScale = 100.0

// Frequency predicts the most-accessed keys overall, excluding the key
// that triggered the prediction. Confidence grows with the long-run access
// count and saturates at 0.9.
type Frequency[K comparable, C comparable] struct {
	tracker *pattern.Tracker[K, C]
}

// NewFrequency creates a frequency predictor over the given tracker
func NewFrequency[K comparable, C comparable](tracker *pattern.Tracker[K, C]) *Frequency[K, C] {
	return &Frequency[K, C]{tracker: tracker}
}

// Name identifies the predictor in Prediction.Sources
func (f *Frequency[K, C]) Name() string {
	return "frequency"
}

// Predict returns the top accessed keys with count-scaled confidence
func (f *Frequency[K, C]) Predict(key K, _ C, _ bool) []Prediction[K] {
	top := f.tracker.TopKeys(frequencyTop, key)
	if len(top) == 0 {
		return nil
	}

	out := make([]Prediction[K], 0, len(top))
	for _, kc := range top {
		conf := float64(kc.Count) / frequencyScale
		if conf > frequencyCeiling {
			conf = frequencyCeiling
		}
		out = append(out, Prediction[K]{
			Key:        kc.Key,
			Confidence: conf,
			Sources:    []string{f.Name()},
		})
	}
	return out
}
