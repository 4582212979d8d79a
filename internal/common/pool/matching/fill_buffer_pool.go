// Package pools provides reusable scratch buffers for the matching core, so
// that a take-order walk over BOOK_DEPTH resting orders does not allocate a
// fresh slice on every call.
package pools

import "sync"

// FillBuffer is a reusable staging buffer of slot indices collected during a
// take-order walk, to be deleted from the book once the walk completes.
type FillBuffer struct {
	Slots []uint8

	// PoolIndex tags a checked-out buffer with a caller-chosen id; unused by
	// the pool itself.
	PoolIndex int32
}

// Reset clears the buffer for reuse while keeping its underlying array.
func (b *FillBuffer) Reset() {
	b.Slots = b.Slots[:0]
	b.PoolIndex = 0
}

// FillBufferPool pools FillBuffer values to avoid an allocation per take order.
type FillBufferPool struct {
	pool sync.Pool
}

// NewFillBufferPool creates a new FillBufferPool.
func NewFillBufferPool() *FillBufferPool {
	return &FillBufferPool{
		pool: sync.Pool{
			New: func() interface{} {
				return &FillBuffer{Slots: make([]uint8, 0, 16)}
			},
		},
	}
}

// Get retrieves a FillBuffer from the pool.
func (p *FillBufferPool) Get() *FillBuffer {
	return p.pool.Get().(*FillBuffer)
}

// Put returns a FillBuffer to the pool after resetting it.
func (p *FillBufferPool) Put(buf *FillBuffer) {
	buf.Reset()
	p.pool.Put(buf)
}
