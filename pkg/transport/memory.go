package transport

import "sync"

// Memory is an in-memory transport. Bytes given to Feed are read back by
// TryReadByte, bytes written are collected until Flush hands them to Sink
// or TakeOutput takes them.
type Memory struct {
	// Sink receives pending output on Flush. Without Sink, output
	// accumulates.
	Sink func([]byte) error

	lock   sync.Mutex
	in     []byte
	out    []byte
	closed bool
}

// NewMemory creates a Memory transport.
func NewMemory() *Memory {
	return &Memory{}
}

// Feed queues input bytes.
func (m *Memory) Feed(p []byte) {
	m.lock.Lock()
	if !m.closed {
		m.in = append(m.in, p...)
	}
	m.lock.Unlock()
}

// FeedString queues input bytes from a string.
func (m *Memory) FeedString(s string) {
	m.Feed([]byte(s))
}

// Pending returns the number of queued input bytes.
func (m *Memory) Pending() int {
	m.lock.Lock()
	defer m.lock.Unlock()
	return len(m.in)
}

// TryReadByte implements Conn.
func (m *Memory) TryReadByte() (byte, bool) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if len(m.in) == 0 {
		return 0, false
	}
	b := m.in[0]
	if m.in = m.in[1:]; len(m.in) == 0 {
		m.in = nil
	}
	return b, true
}

// WriteByte implements Conn.
func (m *Memory) WriteByte(b byte) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.out = append(m.out, b)
	return nil
}

// Output returns a copy of the pending output.
func (m *Memory) Output() []byte {
	m.lock.Lock()
	defer m.lock.Unlock()
	return append([]byte(nil), m.out...)
}

// TakeOutput returns and clears the pending output.
func (m *Memory) TakeOutput() []byte {
	m.lock.Lock()
	defer m.lock.Unlock()
	out := m.out
	m.out = nil
	return out
}

// Flush implements Flusher.
func (m *Memory) Flush() error {
	if m.Sink == nil {
		return nil
	}
	if out := m.TakeOutput(); len(out) > 0 {
		return m.Sink(out)
	}
	return nil
}

// Close implements Conn. Pending input is discarded.
func (m *Memory) Close() error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.closed, m.in = true, nil
	return nil
}
