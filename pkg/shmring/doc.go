// Package shmring provides a fixed-frame ring buffer living in a shared
// memory region.
//
// Two execution contexts map the same region and each assigns its own
// RingBuffer view over it. The region starts with a header, frames follow
// at FrameOffset:
//
//   offset  size  field
//   0       4     head: next frame to read (consumer owned)
//   4       4     tail: next frame to write (producer owned)
//   8       4     frame offset, always FrameOffset
//   12      4     frame size S
//   16      4     frame count N
//   512     S*N   frames
//
// Words are native endian and accessed atomically. A writer copies the
// frame before publishing tail, a reader copies the frame before
// publishing head, so the peer never observes an index ahead of the bytes.
//
// RingBuffer keeps one frame empty and fails with ErrNoSpace when full.
// It is safe for exactly one producer and one consumer. CSRingBuffer holds
// a CriticalSection for every read and write and overwrites the oldest
// frame instead of failing.
//
// No message length is stored. Frames are zero padded and TrimFrame cuts a
// frame at its first NUL byte.
package shmring
