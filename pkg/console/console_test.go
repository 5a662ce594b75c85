package console

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	left  = "\x1b[D"
	right = "\x1b[C"
	del   = "\x1b[3~"
	bs    = "\x7f"
	cr    = "\r"

	prev = "\x1b[1D"
	next = "\x1b[1C"
)

type testTerm struct {
	in       []byte
	out      bytes.Buffer
	commands []string
}

func (tt *testTerm) TryReadByte() (byte, bool) {
	if len(tt.in) == 0 {
		return 0, false
	}
	b := tt.in[0]
	tt.in = tt.in[1:]
	return b, true
}

func (tt *testTerm) WriteByte(b byte) error {
	return tt.out.WriteByte(b)
}

func newTestConsole(t *testing.T, size int, prompt string) (*Console, *testTerm) {
	tt := &testTerm{}
	c := New(make([]byte, size), prompt, tt, tt, HandleCommandFunc(func(cmd string) {
		tt.commands = append(tt.commands, cmd)
	}))
	require.Equal(t, prompt, tt.out.String())
	tt.out.Reset()
	return c, tt
}

// feed feeds all bytes of in and checks Input consumes one byte per call.
func feed(t *testing.T, c *Console, tt *testTerm, in string) {
	tt.in = append(tt.in, in...)
	for n := len(tt.in); n > 0; n-- {
		require.True(t, c.Input())
		require.Len(t, tt.in, n-1)
	}
	require.False(t, c.Input())
}

type consoleStep struct {
	in     string
	echo   string
	line   string
	cursor int
}

type consoleStepsBuilder struct {
	steps []consoleStep
}

func consoleSteps() *consoleStepsBuilder {
	return &consoleStepsBuilder{}
}

func (b *consoleStepsBuilder) on(in string) *consoleStepsBuilder {
	b.steps = append(b.steps, consoleStep{in: in})
	return b
}

func (b *consoleStepsBuilder) echo(out ...string) *consoleStepsBuilder {
	b.steps[len(b.steps)-1].echo = strings.Join(out, "")
	return b
}

func (b *consoleStepsBuilder) line(line string, cursor int) *consoleStepsBuilder {
	s := &b.steps[len(b.steps)-1]
	s.line, s.cursor = line, cursor
	return b
}

func (b *consoleStepsBuilder) build() []consoleStep {
	return b.steps
}

func TestConsoleEditing(t *testing.T) {
	testCases := []struct {
		name  string
		steps []consoleStep
	}{
		{
			name: "append",
			steps: consoleSteps().
				on("a").echo("a").line("a", 1).
				on("bc").echo("bc").line("abc", 3).
				build(),
		},
		{
			name: "insert in the middle",
			steps: consoleSteps().
				on("abc").echo("abc").line("abc", 3).
				on(left).echo(prev).line("abc", 2).
				on("x").echo("xc", prev).line("abxc", 3).
				build(),
		},
		{
			name: "insert at start",
			steps: consoleSteps().
				on("ab").echo("ab").line("ab", 2).
				on(left+left).echo(prev, prev).line("ab", 0).
				on("x").echo("xab", prev, prev).line("xab", 1).
				build(),
		},
		{
			name: "backspace at end",
			steps: consoleSteps().
				on("ab").echo("ab").line("ab", 2).
				on(bs).echo(prev, " ", prev).line("a", 1).
				on(bs).echo(prev, " ", prev).line("", 0).
				on(bs).echo().line("", 0).
				build(),
		},
		{
			name: "backspace in the middle",
			steps: consoleSteps().
				on("abc").echo("abc").line("abc", 3).
				on(left+left).echo(prev, prev).line("abc", 1).
				on(bs).echo(prev, "bc ", prev, prev, prev).line("bc", 0).
				on(bs).echo().line("bc", 0).
				build(),
		},
		{
			name: "forward delete",
			steps: consoleSteps().
				on("abc").echo("abc").line("abc", 3).
				on(left+left).echo(prev, prev).line("abc", 1).
				on(del).echo("c ", prev, prev).line("ac", 1).
				on(del).echo(" ", prev).line("a", 1).
				on(del).echo().line("a", 1).
				build(),
		},
		{
			name: "forward delete without parameter",
			steps: consoleSteps().
				on("ab"+left+left).echo("ab", prev, prev).line("ab", 0).
				on("\x1b[~").echo("b ", prev, prev).line("b", 0).
				build(),
		},
		{
			name: "cursor stays inside the line",
			steps: consoleSteps().
				on(left).echo().line("", 0).
				on("ab").echo("ab").line("ab", 2).
				on(right).echo().line("ab", 2).
				on(left+left+left).echo(prev, prev).line("ab", 0).
				on(right).echo(next).line("ab", 1).
				build(),
		},
		{
			name: "ignored bytes",
			steps: consoleSteps().
				on("a\x01\t\x00").echo("a").line("a", 1).
				on("\x1bx").echo().line("a", 1).
				on("b").echo("b").line("ab", 2).
				on("\x1b[12A").echo().line("ab", 2).
				on("c").echo("c").line("abc", 3).
				build(),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c, tt := newTestConsole(t, 16, "> ")
			for n, s := range tc.steps {
				feed(t, c, tt, s.in)
				require.Equalf(t, s.echo, tt.out.String(), "steps[%d] echo mismatch", n)
				require.Equalf(t, s.line, string(c.Line()), "steps[%d] line mismatch", n)
				require.Equalf(t, s.cursor, c.CursorPos(), "steps[%d] cursor mismatch", n)
				require.Equalf(t, len(s.line), c.TailPos(), "steps[%d] tail mismatch", n)
				require.Equalf(t, ModeNormal, c.Mode(), "steps[%d] mode mismatch", n)
				tt.out.Reset()
			}
			require.Empty(t, tt.commands)
		})
	}
}

func TestConsoleAppendPositions(t *testing.T) {
	c, tt := newTestConsole(t, 16, "> ")
	for n, b := range []byte("hello, world!") {
		feed(t, c, tt, string(b))
		require.Equal(t, n+1, c.CursorPos())
		require.Equal(t, n+1, c.TailPos())
	}
}

func TestConsoleSubmit(t *testing.T) {
	c, tt := newTestConsole(t, 16, "> ")
	feed(t, c, tt, "abc"+cr)
	require.Equal(t, []string{"abc"}, tt.commands)
	require.Equal(t, "abc\n\r> ", tt.out.String())
	require.Equal(t, 0, c.CursorPos())
	require.Equal(t, 0, c.TailPos())
	require.Equal(t, make([]byte, 16), c.buffer)

	tt.out.Reset()
	feed(t, c, tt, cr)
	require.Equal(t, []string{"abc", ""}, tt.commands)
	require.Equal(t, "\n\r> ", tt.out.String())
}

func TestConsoleEndToEnd(t *testing.T) {
	tt := &testTerm{}
	c := New(make([]byte, 16), "> ", tt, tt, HandleCommandFunc(func(cmd string) {
		tt.commands = append(tt.commands, cmd)
	}))
	feed(t, c, tt, "abc"+left+"x"+cr)
	require.Equal(t, []string{"abxc"}, tt.commands)
	require.Equal(t, "> abc"+prev+"xc"+prev+"\n\r> ", tt.out.String())
}

func TestConsoleInvalidUTF8(t *testing.T) {
	c, tt := newTestConsole(t, 16, "> ")
	feed(t, c, tt, "a\xff"+cr)
	require.Empty(t, tt.commands)
	require.Equal(t, 0, c.TailPos())

	feed(t, c, tt, "\xc3\xa9"+cr)
	require.Equal(t, []string{"é"}, tt.commands)
}

func TestConsoleFullBuffer(t *testing.T) {
	c, tt := newTestConsole(t, 4, "> ")
	feed(t, c, tt, "abcd")
	tt.out.Reset()
	feed(t, c, tt, "e"+bs+cr)
	require.Empty(t, tt.out.String())
	require.Equal(t, "abcd", string(c.Line()))
	require.Empty(t, tt.commands)
}

func TestConsoleEscapeModes(t *testing.T) {
	c, tt := newTestConsole(t, 16, "> ")
	feed(t, c, tt, "\x1b")
	require.Equal(t, ModeEsc, c.Mode())
	feed(t, c, tt, "[")
	require.Equal(t, ModeCSIFirst, c.Mode())
	feed(t, c, tt, "12")
	require.Equal(t, ModeCSIFirst, c.Mode())
	require.Equal(t, 12, c.csiParam)
	feed(t, c, tt, "~")
	require.Equal(t, ModeNormal, c.Mode())
	feed(t, c, tt, "\x1b[")
	require.Equal(t, 0, c.csiParam)
	feed(t, c, tt, "99999")
	require.Equal(t, maxCSIParam, c.csiParam)
	feed(t, c, tt, "Z")
	require.Equal(t, ModeNormal, c.Mode())
	require.Empty(t, tt.out.String())
}

func TestConsoleNoHandler(t *testing.T) {
	tt := &testTerm{}
	c := New(make([]byte, 8), "$ ", tt, tt, nil)
	feed(t, c, tt, "ls"+cr)
	require.Equal(t, "$ ls\n\r$ ", tt.out.String())
	require.Equal(t, 0, c.TailPos())
}

func TestConsoleOutput(t *testing.T) {
	c, tt := newTestConsole(t, 8, "> ")
	c.Output(">cm7> hi\r\n")
	n, err := c.Write([]byte("raw"))
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Equal(t, ">cm7> hi\r\nraw", tt.out.String())
	require.Equal(t, 0, c.TailPos())
}

func TestConsoleWriteErrorIgnored(t *testing.T) {
	tt := &testTerm{}
	var written int
	c := New(make([]byte, 8), "> ", tt, WriteByteFunc(func(byte) error {
		written++
		return errors.New("broken")
	}), nil)
	tt.in = []byte("a")
	require.True(t, c.Input())
	require.Equal(t, 3, written)
	require.Equal(t, "a", string(c.Line()))
}

func TestFuncAdapters(t *testing.T) {
	src := []byte("z")
	r := TryReadByteFunc(func() (byte, bool) {
		if len(src) == 0 {
			return 0, false
		}
		b := src[0]
		src = src[1:]
		return b, true
	})
	var out []byte
	c := New(make([]byte, 8), "", r, WriteByteFunc(func(b byte) error {
		out = append(out, b)
		return nil
	}), nil)
	require.True(t, c.Input())
	require.False(t, c.Input())
	require.Equal(t, "z", string(out))
}
