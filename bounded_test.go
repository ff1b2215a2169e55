package chunkpipe_test

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/jacoelho/chunkpipe"
)

func newTestBounded(t *testing.T, limit int64) *chunkpipe.Bounded {
	t.Helper()
	b := chunkpipe.NewBounded(limit)
	t.Cleanup(func() {
		b.Close()
	})
	return b
}

func TestBoundedWriteWithinLimit(t *testing.T) {
	b := newTestBounded(t, 8)

	mustWrite(t, b, []byte("abcd"))
	mustWrite(t, b, []byte("efgh"))
	assert.Equal(t, int64(8), b.Buffered())
	assert.Equal(t, int64(8), b.Limit())

	mustRead(t, b, []byte("abcdefgh"))
}

func TestBoundedWriteBlocksWhenFull(t *testing.T) {
	b := newTestBounded(t, 4)

	mustWrite(t, b, []byte("abcd"))

	done := make(chan error, 1)
	go func() {
		_, err := b.Write([]byte("ef"))
		done <- err
	}()

	select {
	case err := <-done:
		t.Fatalf("write returned %v on a full pipe", err)
	case <-time.After(20 * time.Millisecond):
	}

	mustRead(t, b, []byte("ab"))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("write did not resume after read")
	}

	mustRead(t, b, []byte("cdef"))
}

func TestBoundedLargeWriteIsSplit(t *testing.T) {
	b := newTestBounded(t, 16)

	input := make([]byte, 10*1024)
	for i := range input {
		input[i] = byte(i % 253)
	}

	var g errgroup.Group
	g.Go(func() error {
		defer b.Close()
		_, err := b.Write(input)
		return err
	})

	var output bytes.Buffer
	buf := make([]byte, 7)
	for {
		assert.LessOrEqual(t, b.Buffered(), int64(16))
		n, err := b.Read(buf)
		output.Write(buf[:n])
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}

	require.NoError(t, g.Wait())
	assert.Equal(t, input, output.Bytes())
}

func TestBoundedSeekAndTruncateFreeSpace(t *testing.T) {
	b := newTestBounded(t, 4)

	mustWrite(t, b, []byte("abcd"))
	pos, err := b.Seek(2, io.SeekCurrent)
	require.NoError(t, err)
	assert.Equal(t, int64(2), pos)
	assert.Equal(t, int64(2), b.Position())

	// two bytes were skipped, so two fit without blocking
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err = b.WriteContext(ctx, []byte("ef"))
	require.NoError(t, err)

	require.NoError(t, b.SetLength(3))
	assert.Equal(t, int64(3), b.Len())

	_, err = b.WriteContext(ctx, []byte("xyz"))
	require.NoError(t, err)

	mustRead(t, b, []byte("cxyz"))
}

func TestBoundedRejectedSeekKeepsSpace(t *testing.T) {
	b := newTestBounded(t, 2)

	mustWrite(t, b, []byte("ab"))
	_, err := b.Seek(5, io.SeekStart)
	require.ErrorIs(t, err, chunkpipe.ErrOutOfRange)
	require.ErrorIs(t, b.SetLength(3), chunkpipe.ErrOutOfRange)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	n, err := b.WriteContext(ctx, []byte("c"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 0, n)
}

func TestBoundedCloseFailsBlockedWriter(t *testing.T) {
	b := newTestBounded(t, 2)

	mustWrite(t, b, []byte("ab"))

	done := make(chan error, 1)
	go func() {
		_, err := b.Write([]byte("cd"))
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, b.Close())

	select {
	case err := <-done:
		assert.ErrorIs(t, err, chunkpipe.ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("blocked writer was not released by Close")
	}

	mustRead(t, b, []byte("ab"))
	expectEOF(t, b)
}

func TestBoundedWriteAfterClose(t *testing.T) {
	b := newTestBounded(t, 4)
	b.Close()

	_, err := b.Write([]byte("a"))
	assert.ErrorIs(t, err, chunkpipe.ErrClosed)

	_, err = b.Write(nil)
	assert.ErrorIs(t, err, chunkpipe.ErrClosed)
}

func TestBoundedNonPositiveLimit(t *testing.T) {
	b := newTestBounded(t, 0)
	assert.Equal(t, int64(1), b.Limit())

	var g errgroup.Group
	g.Go(func() error {
		defer b.Close()
		_, err := b.Write([]byte("abc"))
		return err
	})

	got, err := io.ReadAll(b)
	require.NoError(t, err)
	require.NoError(t, g.Wait())
	assert.Equal(t, "abc", string(got))
}
