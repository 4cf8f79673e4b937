package adaptcache

// GetMany looks up every key, returning the values found. Each lookup
// behaves exactly like Get, including access recording and prefetch
// scheduling.
func (s *Store[K, V, C]) GetMany(keys []K, cctx C) map[K]V {
	result := make(map[K]V, len(keys))
	for _, key := range keys {
		if value, ok := s.Get(key, cctx); ok {
			result[key] = value
		}
	}
	return result
}

// StoreMany stores every entry in the map under the same options
func (s *Store[K, V, C]) StoreMany(entries map[K]V, opts ...StoreOption[C]) {
	for key, value := range entries {
		s.Store(key, value, opts...)
	}
}

// DeleteMany removes every given key
func (s *Store[K, V, C]) DeleteMany(keys []K) {
	for _, key := range keys {
		s.Delete(key)
	}
}
