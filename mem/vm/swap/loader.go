package swap

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/sarchlab/vmsim/mem/vm"
)

// A Store is the handle of the backing store. *os.File satisfies it.
type Store interface {
	io.ReaderAt
	io.WriterAt
}

// A Loader moves page-sized blocks between frames and a swap file.
type Loader struct {
	store    Store
	header   Header
	nextSlot uint64
}

// Open reads the header of the swap file held by store.
func Open(store Store) (*Loader, error) {
	header, err := DecodeHeader(store)
	if err != nil {
		return nil, err
	}

	l := &Loader{
		store:  store,
		header: header,
	}

	for _, stored := range header.Indices {
		if stored > l.nextSlot {
			l.nextSlot = stored
		}
	}

	return l, nil
}

// PageSize returns the page size recorded in the swap header.
func (l *Loader) PageSize() uint64 {
	return l.header.PageSize
}

// NumPages returns the number of pages the swap file can hold.
func (l *Loader) NumPages() uint64 {
	return l.header.NumPages
}

// Header returns a copy of the current header.
func (l *Loader) Header() Header {
	h := l.header
	h.Indices = append([]uint64(nil), l.header.Indices...)

	return h
}

// Slot returns the data block of the page. The bool return value indicates
// if the page has ever been flushed.
func (l *Loader) Slot(pageNumber uint64) (uint64, bool) {
	if pageNumber >= l.header.NumPages {
		return 0, false
	}

	return l.header.Slot(pageNumber)
}

// LoadPageInto fills the frame with the content of the page. Pages that were
// never flushed are zero-filled without touching the store.
func (l *Loader) LoadPageInto(pageNumber uint64, frame []byte) error {
	if err := l.checkAccess(pageNumber, frame); err != nil {
		return err
	}

	slot, allocated := l.header.Slot(pageNumber)
	if !allocated {
		clear(frame)
		return nil
	}

	err := readFull(l.store, frame, l.slotOffset(slot))
	if err != nil {
		return fmt.Errorf("%w: loading page %#x from slot %d: %v",
			vm.ErrBackingStore, pageNumber, slot, err)
	}

	return nil
}

// Flush writes the frame back as the content of the page. A page flushed for
// the first time gets the next free slot and the header is updated in place.
func (l *Loader) Flush(pageNumber uint64, frame []byte) error {
	if err := l.checkAccess(pageNumber, frame); err != nil {
		return err
	}

	slot, allocated := l.header.Slot(pageNumber)
	if !allocated {
		slot = l.nextSlot
	}

	err := l.writeAll(frame, l.slotOffset(slot))
	if err != nil {
		return fmt.Errorf("%w: flushing page %#x to slot %d: %v",
			vm.ErrBackingStore, pageNumber, slot, err)
	}

	if allocated {
		return nil
	}

	return l.recordSlot(pageNumber, slot)
}

func (l *Loader) recordSlot(pageNumber, slot uint64) error {
	field := make([]byte, wordSize)
	binary.LittleEndian.PutUint64(field, slot+1)

	err := l.writeAll(field, indexOffset(pageNumber))
	if err != nil {
		return fmt.Errorf("%w: recording slot %d of page %#x: %v",
			vm.ErrBackingStore, slot, pageNumber, err)
	}

	l.header.Indices[pageNumber] = slot + 1
	l.nextSlot = slot + 1

	return nil
}

func (l *Loader) checkAccess(pageNumber uint64, frame []byte) error {
	if pageNumber >= l.header.NumPages {
		return fmt.Errorf("%w: page %#x beyond the %d pages of the swap file",
			vm.ErrBackingStore, pageNumber, l.header.NumPages)
	}

	if uint64(len(frame)) != l.header.PageSize {
		return fmt.Errorf("%w: frame of %d bytes for pages of %d bytes",
			vm.ErrBackingStore, len(frame), l.header.PageSize)
	}

	return nil
}

func (l *Loader) slotOffset(slot uint64) uint64 {
	return HeaderSize(l.header.NumPages) + slot*l.header.PageSize
}

func (l *Loader) writeAll(buf []byte, off uint64) error {
	n, err := l.store.WriteAt(buf, int64(off))
	if err != nil {
		return err
	}

	if n != len(buf) {
		return io.ErrShortWrite
	}

	return nil
}
