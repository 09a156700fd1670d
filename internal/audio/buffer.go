package audio

import (
	"errors"
	"io"
	"sync"
)

// ErrBufferFull is returned by Write when the reader has fallen a whole
// buffer behind.
var ErrBufferFull = errors.New("buffer is full")

// RingBuffer is a circular byte buffer between the device callback (writer)
// and the capture goroutine (reader). Read blocks until data arrives or
// the buffer is closed; after Close the remaining bytes are drained before
// Read reports io.EOF.
type RingBuffer struct {
	mu       sync.Mutex
	cond     *sync.Cond
	buffer   []byte
	size     int
	writePos int
	readPos  int
	full     bool
	closed   bool
	dropped  int
}

// NewRingBuffer creates a new ring buffer with the specified size in bytes
func NewRingBuffer(size int) *RingBuffer {
	rb := &RingBuffer{
		buffer: make([]byte, size),
		size:   size,
	}
	rb.cond = sync.NewCond(&rb.mu)
	return rb
}

// Write copies data into the buffer. When the buffer fills up the rest of
// data is counted as dropped and ErrBufferFull is returned.
func (rb *RingBuffer) Write(data []byte) (int, error) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if rb.closed {
		return 0, io.ErrClosedPipe
	}

	written := 0
	for written < len(data) && !rb.full {
		end := rb.size
		if rb.readPos > rb.writePos {
			end = rb.readPos
		}
		n := copy(rb.buffer[rb.writePos:end], data[written:])
		written += n
		rb.writePos = (rb.writePos + n) % rb.size
		if rb.writePos == rb.readPos {
			rb.full = true
		}
	}

	if written > 0 {
		rb.cond.Broadcast()
	}
	if written < len(data) {
		rb.dropped += len(data) - written
		return written, ErrBufferFull
	}
	return written, nil
}

// Read blocks until at least one byte is available, then reads up to
// len(data) bytes.
func (rb *RingBuffer) Read(data []byte) (int, error) {
	if len(data) == 0 {
		return 0, nil
	}

	rb.mu.Lock()
	defer rb.mu.Unlock()

	for rb.isEmpty() && !rb.closed {
		rb.cond.Wait()
	}
	if rb.isEmpty() {
		return 0, io.EOF
	}

	read := 0
	for read < len(data) && !rb.isEmpty() {
		end := rb.size
		if rb.writePos > rb.readPos {
			end = rb.writePos
		}
		n := copy(data[read:], rb.buffer[rb.readPos:end])
		read += n
		rb.readPos = (rb.readPos + n) % rb.size
		rb.full = false
	}
	return read, nil
}

// Close wakes blocked readers. Buffered bytes stay readable.
func (rb *RingBuffer) Close() error {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.closed = true
	rb.cond.Broadcast()
	return nil
}

// Available returns the number of bytes available to read
func (rb *RingBuffer) Available() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.available()
}

// Dropped returns how many bytes Write has discarded so far
func (rb *RingBuffer) Dropped() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.dropped
}

// Size returns the total size of the buffer
func (rb *RingBuffer) Size() int {
	return rb.size
}

func (rb *RingBuffer) available() int {
	if rb.full {
		return rb.size
	}
	if rb.writePos >= rb.readPos {
		return rb.writePos - rb.readPos
	}
	return rb.size - rb.readPos + rb.writePos
}

func (rb *RingBuffer) isEmpty() bool {
	return rb.readPos == rb.writePos && !rb.full
}
