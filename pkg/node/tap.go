package node

import "github.com/robotalks/dualcore/pkg/hsem"

// Direction of a frame relative to the core.
type Direction int

// Directions.
const (
	Sent Direction = iota
	Received
)

// String implements fmt.Stringer.
func (d Direction) String() string {
	if d == Sent {
		return "tx"
	}
	return "rx"
}

// FrameTap observes frames crossing the link. It is called inline from
// the polling loop and must not block.
type FrameTap interface {
	TapFrame(core hsem.CoreID, dir Direction, frame []byte)
}

// TapFrameFunc is func type of FrameTap.
type TapFrameFunc func(hsem.CoreID, Direction, []byte)

// TapFrame implements FrameTap.
func (f TapFrameFunc) TapFrame(core hsem.CoreID, dir Direction, frame []byte) {
	f(core, dir, frame)
}
