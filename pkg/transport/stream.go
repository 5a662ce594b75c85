package transport

import (
	"bufio"
	"io"
	"os"
	"sync"

	"github.com/golang/glog"
)

// DefaultInputQueue is the number of input bytes buffered by a Stream.
const DefaultInputQueue = 256

// Stream adapts a blocking io.ReadWriteCloser. A background goroutine
// reads into a queue so TryReadByte never blocks; output is buffered
// until Flush.
type Stream struct {
	rwc     io.ReadWriteCloser
	byteCh  chan byte
	doneCh  chan struct{}
	onClose func() error

	// reads of rwc return periodically without data instead of blocking
	readTimeout bool

	lock   sync.Mutex
	out    *bufio.Writer
	closed bool
	err    error
}

// StreamOption customizes a Stream.
type StreamOption func(*Stream)

// WithReadTimeout tells the Stream that reads time out periodically.
func WithReadTimeout() StreamOption {
	return func(s *Stream) { s.readTimeout = true }
}

// WithCloseHook runs fn before the underlying stream is closed.
func WithCloseHook(fn func() error) StreamOption {
	return func(s *Stream) { s.onClose = fn }
}

// NewStream starts reading rwc in the background.
func NewStream(rwc io.ReadWriteCloser, opts ...StreamOption) *Stream {
	s := &Stream{
		rwc:    rwc,
		byteCh: make(chan byte, DefaultInputQueue),
		doneCh: make(chan struct{}),
		out:    bufio.NewWriter(rwc),
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.readLoop()
	return s
}

func (s *Stream) readLoop() {
	defer close(s.doneCh)
	buf := make([]byte, 64)
	for {
		n, err := s.rwc.Read(buf)
		for _, b := range buf[:n] {
			s.byteCh <- b
		}
		if err == nil {
			continue
		}
		if s.isClosed() {
			return
		}
		if s.readTimeout && (err == io.EOF || os.IsTimeout(err)) {
			continue
		}
		if err != io.EOF {
			glog.Errorf("stream read error: %v", err)
		}
		s.lock.Lock()
		s.err = err
		s.lock.Unlock()
		return
	}
}

func (s *Stream) isClosed() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.closed
}

// Err returns the error which stopped reading, if any.
func (s *Stream) Err() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.err
}

// Done is closed when the background reader exits.
func (s *Stream) Done() <-chan struct{} {
	return s.doneCh
}

// TryReadByte implements Conn.
func (s *Stream) TryReadByte() (byte, bool) {
	select {
	case b := <-s.byteCh:
		return b, true
	default:
		return 0, false
	}
}

// WriteByte implements Conn.
func (s *Stream) WriteByte(b byte) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.closed {
		return ErrClosed
	}
	return s.out.WriteByte(b)
}

// Flush implements Flusher.
func (s *Stream) Flush() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.closed {
		return ErrClosed
	}
	return s.out.Flush()
}

// Close flushes pending output and closes the underlying stream.
func (s *Stream) Close() error {
	s.lock.Lock()
	if s.closed {
		s.lock.Unlock()
		return ErrClosed
	}
	s.out.Flush()
	s.closed = true
	s.lock.Unlock()

	if s.onClose != nil {
		if err := s.onClose(); err != nil {
			glog.Warningf("stream close hook: %v", err)
		}
	}
	err := s.rwc.Close()
	// unblock a reader waiting on a full queue
	go func() {
		for {
			select {
			case <-s.byteCh:
			case <-s.doneCh:
				return
			}
		}
	}()
	return err
}

type stdio struct {
	io.Reader
	io.Writer
}

func (stdio) Close() error {
	return nil
}

// Stdio creates a Stream over the process standard input and output.
func Stdio() *Stream {
	return NewStream(stdio{Reader: os.Stdin, Writer: os.Stdout})
}
