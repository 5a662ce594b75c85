package transport

import (
	"time"

	"github.com/golang/glog"
	"github.com/pkg/term"
)

// DefaultTerminal is the terminal used by "tty:".
const DefaultTerminal = "/dev/tty"

const terminalReadTimeout = 100 * time.Millisecond

// OpenTerminal opens a terminal device in raw mode so every key press,
// including escape sequences, reaches the console unprocessed. The
// original mode is restored on Close.
func OpenTerminal(path string) (*Stream, error) {
	if path == "" {
		path = DefaultTerminal
	}
	t, err := term.Open(path, term.RawMode)
	if err != nil {
		return nil, err
	}
	if err = t.SetReadTimeout(terminalReadTimeout); err != nil {
		t.Restore()
		t.Close()
		return nil, err
	}
	glog.V(2).Infof("terminal %s in raw mode", path)
	return NewStream(t, WithReadTimeout(), WithCloseHook(t.Restore)), nil
}
