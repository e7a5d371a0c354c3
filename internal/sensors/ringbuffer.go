package sensors

// RingBuffer keeps the last Depth raw readings, oldest to newest, with O(1)
// push-and-evict over a circular index.
//
// The first push after construction or Reset primes every slot with the
// same reading so early fused values are not pulled toward zero.
type RingBuffer struct {
	slots  []RawReading
	oldest int
	primed bool
}

// NewRingBuffer creates an empty buffer. depth below 1 is raised to 1.
func NewRingBuffer(depth int) *RingBuffer {
	if depth < 1 {
		depth = 1
	}
	return &RingBuffer{slots: make([]RawReading, depth)}
}

// Push appends r as the newest reading, evicting the oldest.
func (b *RingBuffer) Push(r RawReading) {
	if !b.primed {
		for i := range b.slots {
			b.slots[i] = r
		}
		b.oldest = 0
		b.primed = true
		return
	}
	b.slots[b.oldest] = r
	b.oldest = (b.oldest + 1) % len(b.slots)
}

// Depth returns the fixed capacity.
func (b *RingBuffer) Depth() int {
	return len(b.slots)
}

// Len returns 0 before the first push and Depth afterwards.
func (b *RingBuffer) Len() int {
	if !b.primed {
		return 0
	}
	return len(b.slots)
}

// Primed reports whether the buffer has received its first reading.
func (b *RingBuffer) Primed() bool {
	return b.primed
}

// At returns the reading at position i, 0 being the oldest. It panics if i
// is outside [0, Len()).
func (b *RingBuffer) At(i int) RawReading {
	if i < 0 || i >= b.Len() {
		panic("sensors: ring buffer index out of range")
	}
	return b.slots[(b.oldest+i)%len(b.slots)]
}

// Newest returns the most recent reading, or the zero reading before the
// first push.
func (b *RingBuffer) Newest() RawReading {
	if !b.primed {
		return RawReading{}
	}
	return b.At(len(b.slots) - 1)
}

// Readings returns a copy of the window ordered oldest to newest.
func (b *RingBuffer) Readings() []RawReading {
	out := make([]RawReading, b.Len())
	for i := range out {
		out[i] = b.At(i)
	}
	return out
}

// Reset empties the buffer; the next push primes it again.
func (b *RingBuffer) Reset() {
	for i := range b.slots {
		b.slots[i] = RawReading{}
	}
	b.oldest = 0
	b.primed = false
}
