package chunkpipe

// chunk is a window over one written range plus a read cursor.
// data is never copied by the chunk itself; 0 <= cursor <= length <= len(data).
type chunk struct {
	data   []byte
	cursor int
	length int
}

func newChunk(data []byte) chunk {
	return chunk{data: data, length: len(data)}
}

// consume copies the unread bytes into dst and returns how many were copied.
func (c *chunk) consume(dst []byte) int {
	n := copy(dst, c.data[c.cursor:c.length])
	c.cursor += n
	return n
}

// skip advances the cursor by at most n bytes and returns the distance moved.
func (c *chunk) skip(n int) int {
	n = min(n, c.remaining())
	c.cursor += n
	return n
}

// shrink keeps only the next n unread bytes.
func (c *chunk) shrink(n int) {
	c.length = c.cursor + n
}

func (c *chunk) remaining() int {
	return c.length - c.cursor
}

func (c *chunk) empty() bool {
	return c.cursor == c.length
}
