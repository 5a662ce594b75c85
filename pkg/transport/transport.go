// Package transport provides non-blocking byte transports for consoles.
package transport

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"
	"sync"
)

// ErrClosed is returned when writing to a closed transport.
var ErrClosed = errors.New("transport closed")

// Conn is a byte transport. TryReadByte never blocks.
type Conn interface {
	TryReadByte() (byte, bool)
	io.ByteWriter
	io.Closer
}

// Flusher is implemented by transports buffering output. Flush is called
// once per loop iteration.
type Flusher interface {
	Flush() error
}

// DialFunc opens a Conn from a parsed URL.
type DialFunc func(u *url.URL) (Conn, error)

var (
	dialersLock sync.RWMutex
	dialers     = make(map[string]DialFunc)
)

// Register makes a transport available to Open by URL scheme.
func Register(scheme string, dial DialFunc) {
	dialersLock.Lock()
	defer dialersLock.Unlock()
	if _, exist := dialers[scheme]; exist {
		panic("transport already registered: " + scheme)
	}
	dialers[scheme] = dial
}

// Schemes lists registered URL schemes.
func Schemes() []string {
	dialersLock.RLock()
	defer dialersLock.RUnlock()
	schemes := make([]string, 0, len(dialers))
	for scheme := range dialers {
		schemes = append(schemes, scheme)
	}
	sort.Strings(schemes)
	return schemes
}

// Open opens a transport by URL, e.g. "tty:", "tty:/dev/ttyS0", "stdio:",
// "mem:", or any scheme registered by a transport package.
func Open(rawURL string) (Conn, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	dialersLock.RLock()
	dial := dialers[u.Scheme]
	dialersLock.RUnlock()
	if dial == nil {
		return nil, fmt.Errorf("unknown transport %q, supported: %s", u.Scheme, strings.Join(Schemes(), ", "))
	}
	return dial(u)
}

// FlushIfNeeded flushes conn if it buffers output.
func FlushIfNeeded(conn Conn) error {
	if f, ok := conn.(Flusher); ok {
		return f.Flush()
	}
	return nil
}

func init() {
	Register("mem", func(*url.URL) (Conn, error) {
		return NewMemory(), nil
	})
	Register("stdio", func(*url.URL) (Conn, error) {
		return Stdio(), nil
	})
	Register("tty", func(u *url.URL) (Conn, error) {
		path := u.Opaque
		if path == "" {
			path = u.Path
		}
		return OpenTerminal(path)
	})
}
