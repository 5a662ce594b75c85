package transport

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemory(t *testing.T) {
	m := NewMemory()
	_, ok := m.TryReadByte()
	require.False(t, ok)

	m.FeedString("ab")
	require.Equal(t, 2, m.Pending())
	b, ok := m.TryReadByte()
	require.True(t, ok)
	require.Equal(t, byte('a'), b)

	require.NoError(t, m.WriteByte('x'))
	require.NoError(t, m.WriteByte('y'))
	require.Equal(t, "xy", string(m.Output()))
	require.NoError(t, m.Flush())
	require.Equal(t, "xy", string(m.TakeOutput()))
	require.Empty(t, m.Output())

	require.NoError(t, m.Close())
	_, ok = m.TryReadByte()
	require.False(t, ok)
	require.Equal(t, ErrClosed, m.WriteByte('z'))
}

func TestMemorySink(t *testing.T) {
	var sent [][]byte
	m := &Memory{Sink: func(p []byte) error {
		sent = append(sent, p)
		return nil
	}}
	require.NoError(t, m.Flush())
	require.Empty(t, sent)
	m.WriteByte('a')
	m.WriteByte('b')
	require.NoError(t, FlushIfNeeded(m))
	require.Equal(t, [][]byte{[]byte("ab")}, sent)
	require.Empty(t, m.Output())

	m.Sink = func([]byte) error { return errors.New("down") }
	m.WriteByte('c')
	require.Error(t, m.Flush())
}

type pipeRWC struct {
	r *io.PipeReader
	w *io.PipeWriter
}

func (p *pipeRWC) Read(b []byte) (int, error)  { return p.r.Read(b) }
func (p *pipeRWC) Write(b []byte) (int, error) { return p.w.Write(b) }
func (p *pipeRWC) Close() error {
	p.r.Close()
	return p.w.Close()
}

func readByteWithin(t *testing.T, c Conn, d time.Duration) byte {
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if b, ok := c.TryReadByte(); ok {
			return b
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("no byte received")
	return 0
}

func TestStream(t *testing.T) {
	inR, inW := io.Pipe()
	outR, outW := io.Pipe()
	s := NewStream(&pipeRWC{r: inR, w: outW})

	_, ok := s.TryReadByte()
	require.False(t, ok)

	go inW.Write([]byte("hi"))
	require.Equal(t, byte('h'), readByteWithin(t, s, 5*time.Second))
	require.Equal(t, byte('i'), readByteWithin(t, s, 5*time.Second))

	require.NoError(t, s.WriteByte('o'))
	require.NoError(t, s.WriteByte('k'))
	got := make(chan string, 1)
	go func() {
		buf := make([]byte, 2)
		io.ReadFull(outR, buf)
		got <- string(buf)
	}()
	require.NoError(t, s.Flush())
	select {
	case out := <-got:
		require.Equal(t, "ok", out)
	case <-time.After(5 * time.Second):
		t.Fatal("output not flushed")
	}

	var hooked bool
	s.onClose = func() error {
		hooked = true
		return nil
	}
	require.NoError(t, s.Close())
	require.True(t, hooked)
	require.Equal(t, ErrClosed, s.Close())
	require.Equal(t, ErrClosed, s.WriteByte('x'))
	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("reader not stopped")
	}
}

func TestStreamEOF(t *testing.T) {
	inR, inW := io.Pipe()
	_, outW := io.Pipe()
	s := NewStream(&pipeRWC{r: inR, w: outW})
	inW.Close()
	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("reader not stopped")
	}
	require.Equal(t, io.EOF, s.Err())
}

type timeoutReader struct {
	data chan []byte
}

func (r *timeoutReader) Read(b []byte) (int, error) {
	select {
	case p := <-r.data:
		return copy(b, p), nil
	case <-time.After(time.Millisecond):
		return 0, io.EOF
	}
}

func (r *timeoutReader) Write(b []byte) (int, error) { return len(b), nil }
func (r *timeoutReader) Close() error                { return nil }

func TestStreamReadTimeout(t *testing.T) {
	r := &timeoutReader{data: make(chan []byte)}
	s := NewStream(r, WithReadTimeout())
	r.data <- []byte("z")
	require.Equal(t, byte('z'), readByteWithin(t, s, 5*time.Second))
	require.NoError(t, s.Close())
	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("reader not stopped")
	}
	require.NoError(t, s.Err())
}

func TestOpen(t *testing.T) {
	c, err := Open("mem:")
	require.NoError(t, err)
	_, ok := c.(*Memory)
	require.True(t, ok)

	_, err = Open("bogus://x")
	require.Error(t, err)
	require.Contains(t, Schemes(), "tty")
	require.Contains(t, Schemes(), "stdio")
	require.Panics(t, func() { Register("mem", nil) })
}
