package chunkpipe

import (
	"context"
	"io"

	"golang.org/x/sync/semaphore"
)

var (
	_ io.Reader = (*Bounded)(nil)
	_ io.Writer = (*Bounded)(nil)
	_ io.Seeker = (*Bounded)(nil)
	_ io.Closer = (*Bounded)(nil)
)

// Bounded caps the number of unread bytes held by a Pipe. Writers block
// until enough earlier bytes have been read, skipped or truncated away.
type Bounded struct {
	pipe  *Pipe
	space *semaphore.Weighted
	limit int64

	done   context.Context
	cancel context.CancelFunc
}

// NewBounded creates a pipe that holds at most limit unread bytes.
// A limit <= 0 is treated as 1.
func NewBounded(limit int64, opts ...Option) *Bounded {
	if limit <= 0 {
		limit = 1
	}
	done, cancel := context.WithCancel(context.Background())
	return &Bounded{
		pipe:   New(opts...),
		space:  semaphore.NewWeighted(limit),
		limit:  limit,
		done:   done,
		cancel: cancel,
	}
}

// Write is WriteContext without a deadline.
func (b *Bounded) Write(p []byte) (int, error) {
	return b.WriteContext(context.Background(), p)
}

// WriteContext queues p in pieces of at most the limit, waiting for space
// before each piece. It returns the number of bytes queued before ctx ended
// or the pipe closed. Ownership of p follows Pipe.Write.
func (b *Bounded) WriteContext(ctx context.Context, p []byte) (int, error) {
	if len(p) == 0 {
		return b.pipe.Write(p)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(b.done, cancel)
	defer stop()

	n := 0
	for n < len(p) {
		size := min(b.limit, int64(len(p)-n))
		piece := p[n : n+int(size)]
		if err := b.space.Acquire(ctx, size); err != nil {
			if b.done.Err() != nil {
				return n, ErrClosed
			}
			return n, err
		}
		if _, err := b.pipe.Write(piece); err != nil {
			b.space.Release(size)
			return n, err
		}
		n += len(piece)
	}
	return n, nil
}

// Read reads from the pipe and frees the space it consumed.
func (b *Bounded) Read(p []byte) (int, error) {
	n, err := b.pipe.Read(p)
	b.release(int64(n))
	return n, err
}

// Seek skips forward like Pipe.Seek and frees the skipped space.
func (b *Bounded) Seek(offset int64, whence int) (int64, error) {
	skipped, pos, err := b.pipe.seek(offset, whence)
	b.release(skipped)
	return pos, err
}

// SetLength truncates like Pipe.SetLength and frees the dropped space.
func (b *Bounded) SetLength(value int64) error {
	dropped, err := b.pipe.truncate(value)
	b.release(dropped)
	return err
}

// Position returns the read position of the underlying pipe.
func (b *Bounded) Position() int64 { return b.pipe.Position() }

// Len returns the committed length of the underlying pipe.
func (b *Bounded) Len() int64 { return b.pipe.Len() }

// Buffered returns the number of unread bytes.
func (b *Bounded) Buffered() int64 { return b.pipe.Buffered() }

// Limit returns the maximum number of unread bytes.
func (b *Bounded) Limit() int64 { return b.limit }

// Close closes the pipe and fails writers waiting for space.
func (b *Bounded) Close() error {
	b.cancel()
	return b.pipe.Close()
}

func (b *Bounded) release(n int64) {
	if n > 0 {
		b.space.Release(n)
	}
}
