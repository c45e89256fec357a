// Package physmem models the physical memory of the simulated machine as an
// arena of fixed-size frames.
package physmem

import (
	"errors"
	"fmt"
)

var (
	// ErrFrameOutOfRange is returned when a frame index is not part of the
	// memory.
	ErrFrameOutOfRange = errors.New("frame index out of range")

	// ErrOffsetOutOfRange is returned when an offset does not fit in a frame.
	ErrOffsetOutOfRange = errors.New("offset out of range")
)

// A Memory keeps the bytes of all the frames in a single flat buffer.
//
// Frames are addressed by index. A frame has no owner of its own; which page
// lives in which frame is tracked by the page table.
type Memory struct {
	frameSize uint64
	numFrames uint64
	data      []byte
}

// New creates a zeroed memory with the given number of frames.
func New(numFrames, frameSize uint64) *Memory {
	m := new(Memory)

	m.frameSize = frameSize
	m.numFrames = numFrames
	m.data = make([]byte, numFrames*frameSize)

	return m
}

// NumFrames returns the number of frames.
func (m *Memory) NumFrames() uint64 {
	return m.numFrames
}

// FrameSize returns the number of bytes in each frame.
func (m *Memory) FrameSize() uint64 {
	return m.frameSize
}

// Capacity returns the total number of bytes.
func (m *Memory) Capacity() uint64 {
	return uint64(len(m.data))
}

// Frame returns the block of the frame. The returned slice aliases the
// memory.
func (m *Memory) Frame(index uint64) ([]byte, error) {
	if index >= m.numFrames {
		return nil, fmt.Errorf("%w: %d", ErrFrameOutOfRange, index)
	}

	start := index * m.frameSize

	return m.data[start : start+m.frameSize : start+m.frameSize], nil
}

// Read returns the byte at the offset of a frame.
func (m *Memory) Read(index, offset uint64) (byte, error) {
	frame, err := m.frameWithOffset(index, offset)
	if err != nil {
		return 0, err
	}

	return frame[offset], nil
}

// Write sets the byte at the offset of a frame.
func (m *Memory) Write(index, offset uint64, value byte) error {
	frame, err := m.frameWithOffset(index, offset)
	if err != nil {
		return err
	}

	frame[offset] = value

	return nil
}

func (m *Memory) frameWithOffset(index, offset uint64) ([]byte, error) {
	if offset >= m.frameSize {
		return nil, fmt.Errorf("%w: %d", ErrOffsetOutOfRange, offset)
	}

	return m.Frame(index)
}
