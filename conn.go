package chunkpipe

import (
	"errors"
	"io"
)

var _ io.ReadWriteCloser = (*Conn)(nil)

// Conn is one end of an in-memory bidirectional stream. Bytes written to one
// end are read from the other in order.
type Conn struct {
	in  *Pipe
	out *Pipe
}

// Duplex returns the two connected ends of a bidirectional stream. Both
// directions copy on write, so callers may reuse their buffers.
func Duplex(opts ...Option) (*Conn, *Conn) {
	opts = append(opts[:len(opts):len(opts)], WithCopyOnWrite())
	ab := New(opts...)
	ba := New(opts...)
	return &Conn{in: ba, out: ab}, &Conn{in: ab, out: ba}
}

// Read reads data written by the peer. It returns io.EOF after the peer
// closes its write side and every byte has been read.
func (c *Conn) Read(b []byte) (int, error) {
	return c.in.Read(b)
}

// Write sends b to the peer. It fails with ErrClosed once either end has
// closed this direction.
func (c *Conn) Write(b []byte) (int, error) {
	return c.out.Write(b)
}

// CloseWrite closes the sending direction. The peer drains what was sent
// and then sees io.EOF, while this end can keep reading.
func (c *Conn) CloseWrite() error {
	return c.out.Close()
}

// Close closes both directions. A Read blocked on this end returns io.EOF
// and further writes from the peer fail.
func (c *Conn) Close() error {
	return errors.Join(c.out.Close(), c.in.Close())
}
