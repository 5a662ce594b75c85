package shmring

import "bytes"

// TrimFrame returns the meaningful part of a frame: everything before the
// first NUL byte.
func TrimFrame(frame []byte) []byte {
	if n := bytes.IndexByte(frame, 0); n >= 0 {
		return frame[:n]
	}
	return frame
}
