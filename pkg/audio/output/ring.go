// ABOUTME: Float sample ring buffer between the engine and a device callback
// ABOUTME: Writer blocks while full, reader zero-fills on underrun
package output

import "sync"

// RingBuffer provides a thread-safe circular buffer for float32 samples
type RingBuffer struct {
	buffer    []float32
	readPos   int
	writePos  int
	size      int
	count     int // Number of samples currently in buffer
	underruns int
	closed    bool
	mu        sync.Mutex
	space     *sync.Cond
}

// NewRingBuffer creates a ring buffer with given capacity (in samples)
func NewRingBuffer(capacity int) *RingBuffer {
	rb := &RingBuffer{
		buffer: make([]float32, capacity),
		size:   capacity,
	}
	rb.space = sync.NewCond(&rb.mu)
	return rb
}

// Write adds all samples, waiting for space. Returns false if the buffer was closed.
func (rb *RingBuffer) Write(samples []float32) bool {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	for len(samples) > 0 {
		for rb.count == rb.size && !rb.closed {
			rb.space.Wait()
		}
		if rb.closed {
			return false
		}
		for len(samples) > 0 && rb.count < rb.size {
			rb.buffer[rb.writePos] = samples[0]
			rb.writePos = (rb.writePos + 1) % rb.size
			rb.count++
			samples = samples[1:]
		}
	}
	return true
}

// Read retrieves samples, zero-filling any shortfall
func (rb *RingBuffer) Read(samples []float32) int {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	read := 0
	for i := 0; i < len(samples) && rb.count > 0; i++ {
		samples[i] = rb.buffer[rb.readPos]
		rb.readPos = (rb.readPos + 1) % rb.size
		rb.count--
		read++
	}

	// Zero-fill remaining if underrun
	for i := read; i < len(samples); i++ {
		samples[i] = 0
	}
	if read < len(samples) && !rb.closed {
		rb.underruns++
	}

	if read > 0 {
		rb.space.Broadcast()
	}
	return read
}

// Available returns the number of samples available to read
func (rb *RingBuffer) Available() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.count
}

// Underruns returns how many reads came up short while the writer was live
func (rb *RingBuffer) Underruns() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.underruns
}

// Close wakes any blocked writer; later writes fail
func (rb *RingBuffer) Close() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.closed = true
	rb.space.Broadcast()
}
