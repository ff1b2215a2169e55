package chunkpipe

import (
	"bytes"
	"io"
	"sync"

	"github.com/rs/zerolog"
)

var (
	_ io.Reader     = (*Pipe)(nil)
	_ io.WriterTo   = (*Pipe)(nil)
	_ io.Writer     = (*Pipe)(nil)
	_ io.ReaderFrom = (*Pipe)(nil)
	_ io.Seeker     = (*Pipe)(nil)
	_ io.Closer     = (*Pipe)(nil)
)

const (
	copyBufferSize  = 32 * 1024
	minReadFromSize = 512
)

// Pipe is an unbounded in-memory byte queue with one blocking reader side.
//
// Writes queue the caller's slices as chunks and never block. Reads block
// while nothing is buffered and the pipe is open, and return whatever is
// available as soon as anything is. Position and Len are absolute offsets:
// Position counts bytes consumed (read or skipped) since creation, Len
// counts bytes committed. Seek and SetLength only move forward inside
// [Position, Len]; consumed bytes are released and cannot be revisited.
//
// Pipe is safe for one writer and one reader running concurrently. Seek,
// SetLength and SetPosition must be serialized by the caller with respect to
// each other and to Read.
type Pipe struct {
	logger zerolog.Logger

	readerWait sync.Cond

	chunks   *chunkRing
	position int64
	length   int64
	mu       sync.Mutex

	closed      bool
	copyOnWrite bool
}

// New creates an empty, open pipe.
func New(opts ...Option) *Pipe {
	cfg := newConfig(opts)
	p := &Pipe{
		logger:      cfg.logger.With().Str("component", "chunkpipe").Logger(),
		chunks:      newChunkRing(cfg.chunkCapacity),
		copyOnWrite: cfg.copyOnWrite,
	}
	p.readerWait.L = &p.mu
	return p
}

// Write implements io.Writer. Unless the pipe was created WithCopyOnWrite,
// it takes ownership of b: the caller must not modify b afterwards.
func (p *Pipe) Write(b []byte) (int, error) {
	if err := p.append(b); err != nil {
		return 0, err
	}
	return len(b), nil
}

// WriteRange queues buf[offset:offset+count]. Ownership rules match Write.
func (p *Pipe) WriteRange(buf []byte, offset, count int) error {
	if err := checkRange(buf, offset, count); err != nil {
		return err
	}
	return p.append(buf[offset : offset+count : offset+count])
}

// Read implements io.Reader. It returns io.EOF once the pipe is closed and
// every buffered byte has been consumed.
func (p *Pipe) Read(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}
	return p.read(b)
}

// ReadRange reads at most count bytes into dst starting at offset.
func (p *Pipe) ReadRange(dst []byte, offset, count int) (int, error) {
	if err := checkRange(dst, offset, count); err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, nil
	}
	return p.read(dst[offset : offset+count])
}

// Seek implements io.Seeker over the unread window. The target must lie in
// [Position, Len]. Seek(0, io.SeekStart) leaves the position unchanged.
func (p *Pipe) Seek(offset int64, whence int) (int64, error) {
	_, pos, err := p.seek(offset, whence)
	return pos, err
}

// SetPosition moves the read position to the absolute offset pos.
func (p *Pipe) SetPosition(pos int64) error {
	_, err := p.Seek(pos, io.SeekStart)
	return err
}

// SetLength drops every unread byte past value. It never grows the pipe.
func (p *Pipe) SetLength(value int64) error {
	_, err := p.truncate(value)
	return err
}

// Position returns the absolute offset of the next byte to be read.
func (p *Pipe) Position() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.position
}

// Len returns the absolute number of bytes committed to the pipe.
func (p *Pipe) Len() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.length
}

// Buffered returns the number of bytes that can be read without blocking.
func (p *Pipe) Buffered() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.length - p.position
}

// CanRead reports whether a Read may still return data.
func (p *Pipe) CanRead() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.closed || p.position < p.length
}

// CanWrite reports whether the pipe accepts writes.
func (p *Pipe) CanWrite() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.closed
}

// CanSeek reports whether Seek and SetLength are accepted. It turns false
// on Close, so bytes still buffered after close can only be drained by Read,
// not skipped or truncated.
func (p *Pipe) CanSeek() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.closed
}

// Close marks the pipe closed and wakes any blocked reader. Buffered bytes
// stay readable. Close is idempotent and always returns nil.
func (p *Pipe) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	p.readerWait.Broadcast()
	p.logger.Debug().
		Int64("position", p.position).
		Int64("length", p.length).
		Int64("buffered", p.length-p.position).
		Msg("pipe closed")
	return nil
}

// WriteTo implements io.WriterTo by reading data from the pipe
// and writing it to w until EOF or an error occurs.
// A *Pipe destination keeps the chunks it receives, so it is fed through its
// ReadFrom instead of a shared copy buffer.
func (p *Pipe) WriteTo(w io.Writer) (int64, error) {
	if dst, ok := w.(*Pipe); ok {
		return dst.ReadFrom(p)
	}
	return copyBuffered(p.Read, w.Write)
}

// ReadFrom implements io.ReaderFrom. Each read lands in memory owned by the
// pipe, so data is queued without an extra copy.
func (p *Pipe) ReadFrom(r io.Reader) (int64, error) {
	var (
		total int64
		buf   []byte
	)
	for {
		if len(buf) < minReadFromSize {
			buf = make([]byte, copyBufferSize)
		}
		n, rErr := r.Read(buf)
		if n > 0 {
			if err := p.append(buf[:n:n]); err != nil {
				return total, err
			}
			total += int64(n)
			buf = buf[n:]
		}
		if rErr != nil {
			if rErr != io.EOF {
				return total, rErr
			}
			return total, nil
		}
	}
}

func (p *Pipe) append(b []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	if len(b) == 0 {
		return nil
	}
	if p.copyOnWrite {
		b = bytes.Clone(b)
	}
	p.chunks.push(newChunk(b))
	p.length += int64(len(b))
	p.readerWait.Signal()
	return nil
}

func (p *Pipe) read(dst []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.waitForReadableLocked(); err != nil {
		return 0, err
	}

	n := 0
	for n < len(dst) && !p.chunks.empty() {
		c := p.chunks.front()
		n += c.consume(dst[n:])
		if c.empty() {
			p.chunks.popFront()
		}
	}
	p.position += int64(n)
	return n, nil
}

func (p *Pipe) waitForReadableLocked() error {
	for p.chunks.empty() {
		if p.closed {
			return io.EOF
		}
		p.readerWait.Wait()
	}
	return nil
}

// seek returns the number of bytes skipped along with the new position.
func (p *Pipe) seek(offset int64, whence int) (int64, int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	target, err := p.seekTargetLocked(offset, whence)
	if err != nil {
		p.logger.Debug().
			Err(err).
			Int64("offset", offset).
			Int("whence", whence).
			Int64("position", p.position).
			Int64("length", p.length).
			Msg("seek rejected")
		return 0, p.position, err
	}

	skipped := target - p.position
	p.skipLocked(skipped)
	p.position = target
	return skipped, p.position, nil
}

func (p *Pipe) seekTargetLocked(offset int64, whence int) (int64, error) {
	if p.closed {
		return 0, ErrClosed
	}

	switch whence {
	case io.SeekStart:
		if offset == 0 {
			return p.position, nil
		}
		if offset < p.position {
			return 0, outOfRange("offset %d is less than the current position %d", offset, p.position)
		}
		if offset > p.length {
			return 0, outOfRange("cannot seek to %d beyond the end of the stream at %d", offset, p.length)
		}
		return offset, nil
	case io.SeekCurrent:
		if offset < 0 {
			return 0, outOfRange("cannot move backward by %d", -offset)
		}
		if offset > p.length-p.position {
			return 0, outOfRange("cannot seek %d bytes beyond the end of the stream at %d", offset, p.length)
		}
		return p.position + offset, nil
	case io.SeekEnd:
		if offset > 0 {
			return 0, outOfRange("cannot seek %d bytes beyond the end of the stream at %d", offset, p.length)
		}
		if offset < p.position-p.length {
			return 0, outOfRange("offset %d from end is less than the current position %d", offset, p.position)
		}
		return p.length + offset, nil
	default:
		return 0, invalidArgument("invalid whence %d", whence)
	}
}

// skipLocked discards n unread bytes from the head of the chain.
func (p *Pipe) skipLocked(n int64) {
	for n > 0 {
		c := p.chunks.front()
		n -= int64(c.skip(int(min(n, int64(c.remaining())))))
		if c.empty() {
			p.chunks.popFront()
		}
	}
}

// truncate returns the number of unread bytes it dropped.
func (p *Pipe) truncate(value int64) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.checkLengthLocked(value); err != nil {
		p.logger.Debug().
			Err(err).
			Int64("value", value).
			Int64("position", p.position).
			Int64("length", p.length).
			Msg("set length rejected")
		return 0, err
	}

	keep := value - p.position
	i := 0
	for ; i < p.chunks.len() && keep > 0; i++ {
		c := p.chunks.at(i)
		if remaining := int64(c.remaining()); remaining < keep {
			keep -= remaining
			continue
		}
		c.shrink(int(keep))
		keep = 0
	}
	p.chunks.truncate(i)

	dropped := p.length - value
	p.length = value
	p.logger.Debug().
		Int64("length", p.length).
		Int64("dropped", dropped).
		Int("chunks", p.chunks.len()).
		Msg("pipe truncated")
	return dropped, nil
}

func (p *Pipe) checkLengthLocked(value int64) error {
	switch {
	case p.closed:
		return ErrClosed
	case value < 0:
		return outOfRange("length %d is negative", value)
	case value < p.position:
		return outOfRange("length %d is less than the current position %d", value, p.position)
	case value > p.length:
		return outOfRange("length %d exceeds the committed length %d", value, p.length)
	}
	return nil
}

func copyBuffered(read func([]byte) (int, error), write func([]byte) (int, error)) (int64, error) {
	buf := make([]byte, copyBufferSize)
	var total int64
	for {
		n, rErr := read(buf)
		if n > 0 {
			wn, wErr := write(buf[:n])
			if wn < 0 || wn > n {
				wn = 0
				if wErr == nil {
					wErr = io.ErrShortWrite
				}
			}
			total += int64(wn)
			if wErr != nil {
				return total, wErr
			}
			if wn != n {
				return total, io.ErrShortWrite
			}
		}
		if rErr != nil {
			if rErr != io.EOF {
				return total, rErr
			}
			return total, nil
		}
	}
}
