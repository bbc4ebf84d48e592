package pool

import (
	"io"
	"sync"
	"sync/atomic"
)

// CopyBufferSize is the size of pooled download buffers.
const CopyBufferSize = 64 * 1024

// BufferPool hands out fixed-size byte slices for io.CopyBuffer.
type BufferPool struct {
	pool sync.Pool
	size int

	gets atomic.Int64
	news atomic.Int64
}

// NewBufferPool creates a pool of size-byte buffers.
func NewBufferPool(size int) *BufferPool {
	if size <= 0 {
		size = CopyBufferSize
	}
	bp := &BufferPool{size: size}
	bp.pool.New = func() any {
		bp.news.Add(1)
		b := make([]byte, size)
		return &b
	}
	return bp
}

// Copy copies src to dst using a pooled buffer.
func (bp *BufferPool) Copy(dst io.Writer, src io.Reader) (int64, error) {
	bp.gets.Add(1)
	buf := bp.pool.Get().(*[]byte)
	defer bp.pool.Put(buf)
	return io.CopyBuffer(dst, src, *buf)
}

// HitRate reports the share of Copy calls served by a reused buffer.
func (bp *BufferPool) HitRate() float64 {
	gets := bp.gets.Load()
	if gets == 0 {
		return 0
	}
	return float64(gets-bp.news.Load()) / float64(gets)
}

// Downloads is shared by the media clients.
var Downloads = NewBufferPool(CopyBufferSize)
