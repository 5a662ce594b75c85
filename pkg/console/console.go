// Package console provides a line editing console over a byte transport.
package console

import (
	"io"
	"unicode/utf8"

	"github.com/golang/glog"
)

// Mode is the state of the input decoder.
type Mode int

// Input modes.
const (
	ModeNormal   Mode = iota // plain input
	ModeEsc                  // ESC received
	ModeCSIFirst             // ESC [ received
)

// String implements fmt.Stringer.
func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeEsc:
		return "esc"
	case ModeCSIFirst:
		return "csi"
	}
	return "invalid"
}

// inputHandlers is the transition table, indexed by Mode.
var inputHandlers = [...]func(*Console, byte){
	ModeNormal:   (*Console).inputNormal,
	ModeEsc:      (*Console).inputEsc,
	ModeCSIFirst: (*Console).inputCSIFirst,
}

// Console edits a single line in buffer, echoing through out, and hands
// every accepted line to the CommandHandler.
type Console struct {
	buffer  []byte
	prompt  string
	in      Reader
	out     io.ByteWriter
	handler CommandHandler

	cursorPos int
	tailPos   int
	mode      Mode
	csiParam  int
}

// New creates a Console owning buffer and writes the prompt. handler may
// be nil.
func New(buffer []byte, prompt string, in Reader, out io.ByteWriter, handler CommandHandler) *Console {
	c := &Console{
		buffer:  buffer,
		prompt:  prompt,
		in:      in,
		out:     out,
		handler: handler,
	}
	c.clear()
	c.Output(prompt)
	return c
}

// CursorPos returns the insertion point.
func (c *Console) CursorPos() int {
	return c.cursorPos
}

// TailPos returns the length of the line.
func (c *Console) TailPos() int {
	return c.tailPos
}

// Line returns a copy of the current line.
func (c *Console) Line() []byte {
	return append([]byte(nil), c.buffer[:c.tailPos]...)
}

// Mode returns the state of the input decoder.
func (c *Console) Mode() Mode {
	return c.mode
}

// Input consumes at most one byte from the Reader. It returns false when
// no byte was available. A byte arriving while the buffer is full is
// dropped.
func (c *Console) Input() bool {
	b, ok := c.in.TryReadByte()
	if !ok {
		return false
	}
	if c.tailPos >= len(c.buffer) {
		glog.V(3).Infof("buffer full, drop %02x", b)
		return true
	}
	inputHandlers[c.mode](c, b)
	return true
}

// Output writes message as is.
func (c *Console) Output(message string) {
	for i := 0; i < len(message); i++ {
		c.putc(message[i])
	}
}

// Write implements io.Writer.
func (c *Console) Write(p []byte) (int, error) {
	for _, b := range p {
		c.putc(b)
	}
	return len(p), nil
}

func (c *Console) putc(b byte) {
	if err := c.out.WriteByte(b); err != nil {
		glog.V(2).Infof("console write error: %v", err)
	}
}

func (c *Console) putSeq(seq []byte) {
	for _, b := range seq {
		c.putc(b)
	}
}

func (c *Console) moveCursorPrev() {
	c.putSeq(seqCursorBackward)
}

func (c *Console) moveCursorNext() {
	c.putSeq(seqCursorForward)
}

// echo writes buffer[from:to].
func (c *Console) echo(from, to int) {
	c.putSeq(c.buffer[from:to])
}

func (c *Console) clear() {
	for i := range c.buffer {
		c.buffer[i] = 0
	}
	c.cursorPos, c.tailPos = 0, 0
}

func (c *Console) inputNormal(b byte) {
	if !isControl(b) {
		c.insert(b)
		return
	}
	switch b {
	case keyCR:
		c.submit()
	case keyDEL:
		c.backspace()
	case keyESC:
		glog.V(3).Info("input ESC")
		c.mode = ModeEsc
	}
}

func (c *Console) inputEsc(b byte) {
	if b == escCSI {
		c.mode, c.csiParam = ModeCSIFirst, 0
		return
	}
	glog.V(3).Infof("ESC unknown code %02x", b)
	c.mode = ModeNormal
}

func (c *Console) inputCSIFirst(b byte) {
	if isDigit(b) {
		if c.csiParam = c.csiParam*10 + int(b-'0'); c.csiParam > maxCSIParam {
			c.csiParam = maxCSIParam
		}
		return
	}
	switch b {
	case csiCursorBackward:
		if c.cursorPos > 0 {
			c.moveCursorPrev()
			c.cursorPos--
		}
	case csiCursorForward:
		if c.cursorPos < c.tailPos {
			c.moveCursorNext()
			c.cursorPos++
		}
	case csiDelete:
		c.deleteForward()
	default:
		glog.V(3).Infof("unknown csi code %02x (param %d)", b, c.csiParam)
	}
	c.mode = ModeNormal
}

func (c *Console) submit() {
	line := c.buffer[:c.tailPos]
	if c.handler != nil {
		if utf8.Valid(line) {
			glog.V(3).Infof("command %q", line)
			c.handler.HandleCommand(string(line))
		} else {
			glog.V(3).Infof("command dropped, not UTF-8: % x", line)
		}
	}
	c.putc(keyLF)
	c.putc(keyCR)
	c.clear()
	c.Output(c.prompt)
}

func (c *Console) insert(b byte) {
	if c.cursorPos >= c.tailPos {
		c.buffer[c.cursorPos] = b
		c.cursorPos++
		c.tailPos++
		c.putc(b)
		return
	}
	copy(c.buffer[c.cursorPos+1:c.tailPos+1], c.buffer[c.cursorPos:c.tailPos])
	c.buffer[c.cursorPos] = b
	c.echo(c.cursorPos, c.tailPos+1)
	for n := c.cursorPos; n < c.tailPos; n++ {
		c.moveCursorPrev()
	}
	c.tailPos++
	c.cursorPos++
}

func (c *Console) backspace() {
	if c.tailPos == 0 {
		return
	}
	if c.cursorPos >= c.tailPos {
		c.moveCursorPrev()
		c.putc(' ')
		c.moveCursorPrev()
		c.cursorPos--
		c.tailPos--
		c.buffer[c.tailPos] = 0
		return
	}
	if c.cursorPos == 0 {
		return
	}
	copy(c.buffer[c.cursorPos-1:], c.buffer[c.cursorPos:c.tailPos])
	c.buffer[c.tailPos-1] = 0
	c.moveCursorPrev()
	c.cursorPos--
	c.tailPos--
	c.redrawTail()
}

func (c *Console) deleteForward() {
	if c.cursorPos >= c.tailPos {
		return
	}
	copy(c.buffer[c.cursorPos:], c.buffer[c.cursorPos+1:c.tailPos])
	c.buffer[c.tailPos-1] = 0
	c.tailPos--
	c.redrawTail()
}

// redrawTail echoes the line after the cursor, blanks the stale last glyph
// and moves the terminal cursor back to cursorPos.
func (c *Console) redrawTail() {
	c.echo(c.cursorPos, c.tailPos)
	c.putc(' ')
	for n := c.cursorPos; n <= c.tailPos; n++ {
		c.moveCursorPrev()
	}
}
