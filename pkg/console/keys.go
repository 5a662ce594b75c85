package console

// control bytes
const (
	keyLF  byte = 0x0a
	keyCR  byte = 0x0d
	keyESC byte = 0x1b
	keyDEL byte = 0x7f
)

// bytes following keyESC
const (
	escCSI byte = '['
)

// final bytes of CSI sequences
const (
	csiCursorForward  byte = 'C'
	csiCursorBackward byte = 'D'
	csiDelete         byte = '~'
)

var (
	seqCursorForward  = []byte{keyESC, escCSI, '1', csiCursorForward}
	seqCursorBackward = []byte{keyESC, escCSI, '1', csiCursorBackward}
)

// maxCSIParam caps the numeric parameter of a CSI sequence.
const maxCSIParam = 9999

func isControl(b byte) bool {
	return b < 0x20 || b == keyDEL
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
