package logsurface

import "sync"

// ringBuf is a fixed-size circular byte buffer. Once full, the oldest bytes
// are overwritten.
type ringBuf struct {
	mu   sync.Mutex
	data []byte
	pos  int
	full bool
}

func newRingBuf(capacity int) *ringBuf {
	return &ringBuf{data: make([]byte, capacity)}
}

func (r *ringBuf) Write(p []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	size := len(r.data)
	if len(p) >= size {
		copy(r.data, p[len(p)-size:])
		r.pos = 0
		r.full = true
		return
	}

	n := copy(r.data[r.pos:], p)
	if n < len(p) {
		copy(r.data, p[n:])
		r.full = true
	}
	next := r.pos + len(p)
	if next >= size {
		r.full = true
	}
	r.pos = next % size
}

// Bytes returns a copy of the buffered data in write order.
func (r *ringBuf) Bytes() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.full {
		return append([]byte(nil), r.data[:r.pos]...)
	}
	out := make([]byte, 0, len(r.data))
	out = append(out, r.data[r.pos:]...)
	return append(out, r.data[:r.pos]...)
}

func (r *ringBuf) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.full {
		return len(r.data)
	}
	return r.pos
}
