package segment

// Buffer accumulates raw audio chunks for the segment currently being
// recorded. It is bounded: once maxChunks is reached the oldest chunk
// is evicted, so a stuck consumer can never grow memory without bound.
//
// Not safe for concurrent use; the Dispatcher serializes access.
type Buffer struct {
	chunks    [][]byte
	bytes     int
	maxChunks int
}

// NewBuffer creates a buffer holding at most maxChunks chunks.
func NewBuffer(maxChunks int) *Buffer {
	return &Buffer{
		chunks:    make([][]byte, 0, maxChunks),
		maxChunks: maxChunks,
	}
}

// Append adds a chunk, evicting the oldest if the buffer is full.
// Empty chunks are ignored.
func (b *Buffer) Append(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	if b.maxChunks > 0 && len(b.chunks) >= b.maxChunks {
		b.bytes -= len(b.chunks[0])
		b.chunks = b.chunks[1:]
	}
	b.chunks = append(b.chunks, chunk)
	b.bytes += len(chunk)
}

// Len returns the number of buffered chunks.
func (b *Buffer) Len() int {
	return len(b.chunks)
}

// Bytes returns the cumulative buffered byte size.
func (b *Buffer) Bytes() int {
	return b.bytes
}

// Drain concatenates all buffered chunks into a single payload and
// resets the buffer. Returns nil when empty.
func (b *Buffer) Drain() []byte {
	if len(b.chunks) == 0 {
		return nil
	}
	payload := make([]byte, 0, b.bytes)
	for _, c := range b.chunks {
		payload = append(payload, c...)
	}
	b.chunks = b.chunks[:0]
	b.bytes = 0
	return payload
}

// Reset discards all buffered chunks.
func (b *Buffer) Reset() {
	b.chunks = b.chunks[:0]
	b.bytes = 0
}
