package chunkpipe

import (
	"errors"
	"fmt"
	"io"
)

var (
	// ErrInvalidArgument reports a missing buffer, a negative offset or count,
	// or a range that does not fit in the buffer.
	ErrInvalidArgument = errors.New("chunkpipe: invalid argument")

	// ErrOutOfRange reports a seek or truncation target outside the unread
	// window [Position, Len].
	ErrOutOfRange = errors.New("chunkpipe: out of range")

	// ErrClosed is returned by Write, Seek and SetLength once the pipe is
	// closed. It matches io.ErrClosedPipe under errors.Is.
	ErrClosed = fmt.Errorf("chunkpipe: pipe closed: %w", io.ErrClosedPipe)
)

func invalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

func outOfRange(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrOutOfRange, fmt.Sprintf(format, args...))
}

// checkRange validates a (buffer, offset, count) triple.
func checkRange(buf []byte, offset, count int) error {
	switch {
	case buf == nil:
		return invalidArgument("buffer is nil")
	case offset < 0 || count < 0:
		return invalidArgument("offset or count is negative")
	case offset > len(buf) || count > len(buf)-offset:
		return invalidArgument("offset %d plus count %d exceeds buffer length %d", offset, count, len(buf))
	}
	return nil
}
