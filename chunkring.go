package chunkpipe

// chunkRing is a growable ring of chunks. Index 0 is the oldest unread chunk,
// index len()-1 the most recent write.
type chunkRing struct {
	slots []chunk
	head  int
	count int
}

// newChunkRing creates a ring with room for size chunks before it has to grow.
func newChunkRing(size int) *chunkRing {
	return &chunkRing{
		slots: make([]chunk, size),
	}
}

// push appends c after the current tail, growing the ring when full.
func (r *chunkRing) push(c chunk) {
	if r.count == len(r.slots) {
		r.grow()
	}
	r.slots[r.index(r.count)] = c
	r.count++
}

// front returns the oldest chunk. The ring must not be empty.
func (r *chunkRing) front() *chunk {
	return &r.slots[r.head]
}

// at returns the i-th chunk counting from the head.
func (r *chunkRing) at(i int) *chunk {
	return &r.slots[r.index(i)]
}

// popFront drops the oldest chunk and releases its reference to the
// caller's buffer.
func (r *chunkRing) popFront() {
	r.slots[r.head] = chunk{}
	r.head = (r.head + 1) % len(r.slots)
	r.count--
	if r.count == 0 {
		r.head = 0
	}
}

// truncate keeps the first n chunks and drops the rest.
func (r *chunkRing) truncate(n int) {
	for i := n; i < r.count; i++ {
		r.slots[r.index(i)] = chunk{}
	}
	r.count = n
	if r.count == 0 {
		r.head = 0
	}
}

func (r *chunkRing) len() int {
	return r.count
}

// empty returns true if the ring holds no chunks.
func (r *chunkRing) empty() bool {
	return r.count == 0
}

func (r *chunkRing) index(i int) int {
	return (r.head + i) % len(r.slots)
}

// grow doubles the capacity, unwrapping the live chunks to the start of the
// new slice.
func (r *chunkRing) grow() {
	size := max(2*len(r.slots), defaultChunkCapacity)
	slots := make([]chunk, size)

	firstPart := copy(slots, r.slots[r.head:])
	if firstPart < r.count {
		copy(slots[firstPart:], r.slots[:r.count-firstPart])
	}

	r.slots = slots
	r.head = 0
}
