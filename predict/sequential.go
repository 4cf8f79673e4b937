package predict

import (
	"github.com/BillPolly/adaptcache/pattern"
)

// sequentialConfidence is the fixed confidence attached to each observed
// follow-on occurrence.
const sequentialConfidence = 0.8

// maxOccurrences bounds how many occurrences of one transition pair are
// emitted per trigger. Transition evidence originates from a bounded access
// ring, so counts beyond the ring size carry no extra signal.
const maxOccurrences = 100

// Sequential predicts the keys that have previously followed the current
// key in the access stream. Each observed occurrence is emitted separately,
// so repeated evidence pulls the merged average toward 0.8.
type Sequential[K comparable, C comparable] struct {
	tracker *pattern.Tracker[K, C]
}

// NewSequential creates a sequential predictor over the given tracker
func NewSequential[K comparable, C comparable](tracker *pattern.Tracker[K, C]) *Sequential[K, C] {
	return &Sequential[K, C]{tracker: tracker}
}

// Name identifies the predictor in Prediction.Sources
func (s *Sequential[K, C]) Name() string {
	return "sequential"
}

// Predict returns one candidate per observed transition occurrence
func (s *Sequential[K, C]) Predict(key K, _ C, _ bool) []Prediction[K] {
	next := s.tracker.TransitionsFrom(key)
	if len(next) == 0 {
		return nil
	}

	var out []Prediction[K]
	for followed, count := range next {
		if count > maxOccurrences {
			count = maxOccurrences
		}
		for i := int64(0); i < count; i++ {
			out = append(out, Prediction[K]{
				Key:        followed,
				Confidence: sequentialConfidence,
				Sources:    []string{s.Name()},
			})
		}
	}
	return out
}
