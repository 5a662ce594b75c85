package console

// Reader supplies input bytes. TryReadByte must not block: it reports
// false when no byte is available.
type Reader interface {
	TryReadByte() (byte, bool)
}

// TryReadByteFunc is func type of Reader.
type TryReadByteFunc func() (byte, bool)

// TryReadByte implements Reader.
func (f TryReadByteFunc) TryReadByte() (byte, bool) {
	return f()
}

// WriteByteFunc is func type of io.ByteWriter.
type WriteByteFunc func(byte) error

// WriteByte implements io.ByteWriter.
func (f WriteByteFunc) WriteByte(b byte) error {
	return f(b)
}

// CommandHandler is called when a line is accepted. It runs inline in
// Console.Input and must not block.
type CommandHandler interface {
	HandleCommand(command string)
}

// HandleCommandFunc is func type of CommandHandler.
type HandleCommandFunc func(string)

// HandleCommand implements CommandHandler.
func (f HandleCommandFunc) HandleCommand(command string) {
	f(command)
}
