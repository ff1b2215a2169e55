// Package chunkpipe provides an unbounded in-memory pipe that queues written
// slices as chunks instead of copying them into a ring. A single reader drains
// the chunks in order, blocking only while nothing is buffered, and may skip
// forward with Seek or drop the unread tail with SetLength. Data that has been
// read or skipped is released and can never be revisited.
//
// Writers never block. Callers that need bounded memory wrap the pipe in a
// Bounded, and callers that need a bidirectional stream use Duplex.
package chunkpipe
