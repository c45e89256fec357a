package swap

import (
	"errors"
	"io"
	"sync"
)

// MemStore is a Store that keeps the swap file in memory. It grows on write,
// like a file does.
type MemStore struct {
	lock sync.Mutex
	data []byte
}

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{}
}

// ReadAt implements io.ReaderAt.
func (s *MemStore) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errors.New("negative offset")
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	if off >= int64(len(s.data)) {
		return 0, io.EOF
	}

	n := copy(p, s.data[off:])
	if n < len(p) {
		return n, io.EOF
	}

	return n, nil
}

// WriteAt implements io.WriterAt.
func (s *MemStore) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errors.New("negative offset")
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	end := int(off) + len(p)
	if end > len(s.data) {
		s.data = append(s.data, make([]byte, end-len(s.data))...)
	}

	return copy(s.data[off:], p), nil
}

// Len returns the size of the stored data.
func (s *MemStore) Len() int {
	s.lock.Lock()
	defer s.lock.Unlock()

	return len(s.data)
}

// Bytes returns a copy of the stored data.
func (s *MemStore) Bytes() []byte {
	s.lock.Lock()
	defer s.lock.Unlock()

	return append([]byte(nil), s.data...)
}
