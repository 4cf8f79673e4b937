// Package codec provides reversible, best-effort compression for cache
// payloads. A codec only transforms a value when the packaged form is
// meaningfully smaller than the original; otherwise the caller keeps the
// value as-is. Packages are self-describing so any codec's output can be
// reversed later, including after a snapshot round-trip.
package codec

import (
	"compress/gzip"
	"encoding/json"

	"github.com/BillPolly/adaptcache/errors"
)

// Algorithm identifies the compression algorithm used by a package
type Algorithm string

const (
	// AlgorithmDictionary uses token-dictionary substitution
	AlgorithmDictionary Algorithm = "dictionary"
	// AlgorithmGzip uses byte-level gzip compression
	AlgorithmGzip Algorithm = "gzip"
)

// Kind identifies the original shape of a payload so decompression can
// reconstruct the value with its type intact
type Kind string

const (
	// KindString marks payloads that were plain strings
	KindString Kind = "string"
	// KindBytes marks payloads that were raw byte slices
	KindBytes Kind = "bytes"
	// KindJSON marks structured payloads serialized through JSON
	KindJSON Kind = "json"
)

// Package is the stored form of a compressed value: the rewritten data, the
// dictionary needed to reverse it (empty for byte-level algorithms), and the
// type tag for reconstructing the original value.
type Package struct {
	Algorithm    Algorithm         `json:"algorithm"`
	Kind         Kind              `json:"kind"`
	Data         []byte            `json:"data"`
	Dict         map[string]string `json:"dict,omitempty"`
	OriginalSize int               `json:"originalSize"`
}

// Size returns the approximate packaged size in bytes, dictionary included.
func (p *Package) Size() int {
	if p == nil {
		return 0
	}
	size := len(p.Data)
	for ph, tok := range p.Dict {
		size += len(ph) + len(tok) + dictEntryOverhead
	}
	return size
}

// Config represents configuration for compression
type Config struct {
	// MinSize is the smallest payload worth compressing, in bytes
	MinSize int

	// MaxSize is the largest payload considered, in bytes (0 = unlimited)
	MaxSize int

	// MinSavings is the fraction of the original size that must be saved
	// for the compressed form to be kept
	MinSavings float64

	// Level sets the gzip compression level; ignored by the dictionary codec
	Level int
}

// DefaultConfig returns the default compression configuration
func DefaultConfig() Config {
	return Config{
		MinSize:    1024,             // 1KB
		MaxSize:    10 * 1024 * 1024, // 10MB
		MinSavings: 0.20,
		Level:      gzip.DefaultCompression,
	}
}

// withinLimits reports whether a payload of the given size is eligible.
func (c Config) withinLimits(size int) bool {
	if size < c.MinSize {
		return false
	}
	if c.MaxSize > 0 && size > c.MaxSize {
		return false
	}
	return true
}

// worthKeeping reports whether the packaged size clears the savings bar.
func (c Config) worthKeeping(originalSize, packagedSize int) bool {
	return float64(packagedSize) <= float64(originalSize)*(1-c.MinSavings)
}

// Codec compresses encoded payloads into packages and reverses them.
type Codec interface {
	// Name returns the algorithm this codec produces
	Name() Algorithm

	// Compress attempts to compress the payload. It returns (nil, false)
	// when the payload is ineligible or the savings are insufficient.
	Compress(kind Kind, data []byte) (*Package, bool)

	// Decompress reverses a package produced by this codec
	Decompress(pkg *Package) ([]byte, error)
}

// ByAlgorithm returns a codec for the named algorithm, reporting whether the
// name is known
func ByAlgorithm(alg Algorithm, cfg Config) (Codec, bool) {
	switch alg {
	case AlgorithmDictionary:
		return NewDictionary(cfg), true
	case AlgorithmGzip:
		return NewGzip(cfg), true
	default:
		return nil, false
	}
}

// Decompress reverses a package regardless of which codec produced it.
// Decompression needs no configuration, so snapshot restores can reverse
// packages written under a different codec setup.
func Decompress(pkg *Package) ([]byte, error) {
	if pkg == nil {
		return nil, errors.WrapError("Decompress", nil, errors.ErrDecompression)
	}
	switch pkg.Algorithm {
	case AlgorithmDictionary:
		return (&Dictionary{}).Decompress(pkg)
	case AlgorithmGzip:
		return (&Gzip{}).Decompress(pkg)
	default:
		return nil, errors.WrapError("Decompress", string(pkg.Algorithm), errors.ErrDecompression)
	}
}

// EncodeValue renders a payload into the serialized form codecs operate on.
// Strings and byte slices pass through; everything else goes through JSON.
func EncodeValue[V any](value V) (Kind, []byte, error) {
	switch x := any(value).(type) {
	case string:
		return KindString, []byte(x), nil
	case []byte:
		return KindBytes, x, nil
	default:
		data, err := json.Marshal(value)
		if err != nil {
			return KindJSON, nil, errors.WrapError("EncodeValue", nil, errors.ErrSerialization)
		}
		return KindJSON, data, nil
	}
}

// DecodeValue reconstructs a payload from its serialized form and kind tag.
func DecodeValue[V any](kind Kind, data []byte) (V, error) {
	var zero V
	switch kind {
	case KindString:
		if v, ok := any(string(data)).(V); ok {
			return v, nil
		}
		return zero, errors.WrapError("DecodeValue", nil, errors.ErrDecompression)
	case KindBytes:
		if v, ok := any(append([]byte(nil), data...)).(V); ok {
			return v, nil
		}
		return zero, errors.WrapError("DecodeValue", nil, errors.ErrDecompression)
	case KindJSON:
		var v V
		if err := json.Unmarshal(data, &v); err != nil {
			return zero, errors.WrapError("DecodeValue", nil, errors.ErrDecompression)
		}
		return v, nil
	default:
		return zero, errors.WrapError("DecodeValue", string(kind), errors.ErrDecompression)
	}
}
