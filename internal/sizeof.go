package internal

import "unsafe"

// EstimateSize returns an approximate byte size for a cache payload. Strings
// and byte slices report their content length; scalars report their machine
// width; anything else falls back to the size of the value header. Callers
// that can serialize a value should prefer the encoded length over this.
func EstimateSize(v any) int {
	switch x := v.(type) {
	case nil:
		return 0
	case string:
		return len(x)
	case []byte:
		return len(x)
	case bool, int8, uint8:
		return 1
	case int16, uint16:
		return 2
	case int32, uint32, float32:
		return 4
	case int, int64, uint, uint64, float64, complex64:
		return 8
	default:
		return int(unsafe.Sizeof(v))
	}
}
