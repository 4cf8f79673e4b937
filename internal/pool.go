package internal

import (
	"bytes"
	"sync"
)

// maxPooledBufferSize caps the capacity of buffers returned to the pool so a
// single oversized payload does not pin memory for the process lifetime.
const maxPooledBufferSize = 1 << 20

// ObjectPool provides a pool of reusable objects
type ObjectPool[T any] struct {
	pool sync.Pool
}

// NewObjectPool creates a new object pool
func NewObjectPool[T any](newFunc func() T) *ObjectPool[T] {
	return &ObjectPool[T]{
		pool: sync.Pool{
			New: func() any {
				return newFunc()
			},
		},
	}
}

// Get retrieves an object from the pool
func (p *ObjectPool[T]) Get() T {
	return p.pool.Get().(T)
}

// Put returns an object to the pool
func (p *ObjectPool[T]) Put(x T) {
	p.pool.Put(x)
}

// BufferPool provides reusable byte buffers for compression and encoding work.
type BufferPool struct {
	pool *ObjectPool[*bytes.Buffer]
}

// NewBufferPool creates a new buffer pool
func NewBufferPool() *BufferPool {
	return &BufferPool{
		pool: NewObjectPool(func() *bytes.Buffer {
			return &bytes.Buffer{}
		}),
	}
}

// Get retrieves an empty buffer from the pool
func (p *BufferPool) Get() *bytes.Buffer {
	buf := p.pool.Get()
	buf.Reset()
	return buf
}

// Put returns a buffer to the pool, dropping oversized ones
func (p *BufferPool) Put(buf *bytes.Buffer) {
	if buf == nil || buf.Cap() > maxPooledBufferSize {
		return
	}
	p.pool.Put(buf)
}
