package codec

import (
	"bytes"
	"compress/gzip"
	"io"

	"github.com/BillPolly/adaptcache/errors"
	"github.com/BillPolly/adaptcache/internal"
)

// Gzip is a byte-level codec for payloads where token substitution does not
// apply, such as binary blobs. The zero value can decompress any gzip
// package; use NewGzip for compressing.
type Gzip struct {
	cfg     Config
	buffers *internal.BufferPool
}

// NewGzip creates a gzip codec with the given configuration
func NewGzip(cfg Config) *Gzip {
	return &Gzip{
		cfg:     cfg,
		buffers: internal.NewBufferPool(),
	}
}

// Name returns the algorithm identifier
func (g *Gzip) Name() Algorithm {
	return AlgorithmGzip
}

// Compress gzips the payload, keeping the result only when it clears the
// size limits and the savings bar.
func (g *Gzip) Compress(kind Kind, data []byte) (*Package, bool) {
	if !g.cfg.withinLimits(len(data)) {
		return nil, false
	}

	buf := g.buffers.Get()
	defer g.buffers.Put(buf)

	level := g.cfg.Level
	if level == 0 {
		level = gzip.DefaultCompression
	}
	writer, err := gzip.NewWriterLevel(buf, level)
	if err != nil {
		return nil, false
	}
	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return nil, false
	}
	if err := writer.Close(); err != nil {
		return nil, false
	}

	pkg := &Package{
		Algorithm:    AlgorithmGzip,
		Kind:         kind,
		Data:         append([]byte(nil), buf.Bytes()...),
		OriginalSize: len(data),
	}
	if !g.cfg.worthKeeping(len(data), pkg.Size()) {
		return nil, false
	}
	return pkg, true
}

// Decompress reverses a gzip package
func (g *Gzip) Decompress(pkg *Package) ([]byte, error) {
	if pkg == nil || pkg.Algorithm != AlgorithmGzip {
		return nil, errors.WrapError("Decompress", nil, errors.ErrDecompression)
	}

	reader, err := gzip.NewReader(bytes.NewReader(pkg.Data))
	if err != nil {
		return nil, errors.WrapError("Decompress", nil, errors.ErrDecompression)
	}
	defer reader.Close()

	restored, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.WrapError("Decompress", nil, errors.ErrDecompression)
	}
	return restored, nil
}
