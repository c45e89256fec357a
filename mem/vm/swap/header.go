// Package swap implements the swap file that backs the pages which are not
// resident in physical memory.
//
// A swap file starts with a header followed by a data region:
//
//	n_pages    u64
//	page_size  u64
//	indices    u64 x n_pages
//	block[0..] page_size bytes each
//
// All integers are little-endian. indices[p] holds the slot of page p plus
// one, so that 0 means the page was never written and reads as zeros.
package swap

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/sarchlab/vmsim/mem/vm"
)

const (
	wordSize = 8

	// fixedHeaderSize covers n_pages and page_size.
	fixedHeaderSize = 2 * wordSize

	// maxPages bounds n_pages so that a corrupt header cannot make us
	// allocate an absurd index table.
	maxPages = 1 << 32
)

// unallocated is the stored index value of a page that has no slot.
const unallocated = 0

// Header is the in-memory form of the swap file header.
type Header struct {
	NumPages uint64
	PageSize uint64

	// Indices holds the stored value of every page: slot+1, or 0 for pages
	// that were never written.
	Indices []uint64
}

// HeaderSize returns the number of bytes taken by the header of a swap file
// holding nPages pages. The data region starts right after it.
func HeaderSize(nPages uint64) uint64 {
	return fixedHeaderSize + nPages*wordSize
}

// Slot returns the data block of the page. The bool return value indicates
// if the page has ever been written.
func (h Header) Slot(pageNumber uint64) (uint64, bool) {
	stored := h.Indices[pageNumber]
	if stored == unallocated {
		return 0, false
	}

	return stored - 1, true
}

// Encode returns the binary form of the header.
func (h Header) Encode() []byte {
	buf := make([]byte, HeaderSize(h.NumPages))

	binary.LittleEndian.PutUint64(buf[0:], h.NumPages)
	binary.LittleEndian.PutUint64(buf[wordSize:], h.PageSize)

	for i, stored := range h.Indices {
		binary.LittleEndian.PutUint64(indexField(buf, uint64(i)), stored)
	}

	return buf
}

// DecodeHeader reads and validates the header at the beginning of r.
func DecodeHeader(r io.ReaderAt) (Header, error) {
	fixed := make([]byte, fixedHeaderSize)
	if err := readFull(r, fixed, 0); err != nil {
		return Header{}, fmt.Errorf("%w: reading swap header: %v",
			vm.ErrConfiguration, err)
	}

	h := Header{
		NumPages: binary.LittleEndian.Uint64(fixed[0:]),
		PageSize: binary.LittleEndian.Uint64(fixed[wordSize:]),
	}

	if h.PageSize == 0 {
		return Header{}, fmt.Errorf("%w: swap header has zero page size",
			vm.ErrConfiguration)
	}

	if h.NumPages > maxPages {
		return Header{}, fmt.Errorf("%w: swap header claims %d pages",
			vm.ErrConfiguration, h.NumPages)
	}

	raw := make([]byte, h.NumPages*wordSize)
	if err := readFull(r, raw, fixedHeaderSize); err != nil {
		return Header{}, fmt.Errorf("%w: reading swap indices: %v",
			vm.ErrConfiguration, err)
	}

	h.Indices = make([]uint64, h.NumPages)
	for i := range h.Indices {
		h.Indices[i] = binary.LittleEndian.Uint64(raw[i*wordSize:])
	}

	if err := h.validate(); err != nil {
		return Header{}, err
	}

	return h, nil
}

func (h Header) validate() error {
	owners := make(map[uint64]uint64)

	for page, stored := range h.Indices {
		if stored == unallocated {
			continue
		}

		if stored > h.NumPages {
			return fmt.Errorf("%w: page %d points to slot %d beyond %d pages",
				vm.ErrConfiguration, page, stored-1, h.NumPages)
		}

		if owner, taken := owners[stored]; taken {
			return fmt.Errorf("%w: pages %d and %d share slot %d",
				vm.ErrConfiguration, owner, page, stored-1)
		}

		owners[stored] = uint64(page)
	}

	return nil
}

func indexField(buf []byte, pageNumber uint64) []byte {
	start := indexOffset(pageNumber)
	return buf[start : start+wordSize]
}

func indexOffset(pageNumber uint64) uint64 {
	return fixedHeaderSize + pageNumber*wordSize
}

// readFull fills buf from offset off. Reaching the end of the data before buf
// is full is an error, even if io.ReaderAt reports it with io.EOF.
func readFull(r io.ReaderAt, buf []byte, off uint64) error {
	n, err := r.ReadAt(buf, int64(off))
	if n == len(buf) {
		return nil
	}

	if err == nil || errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}

	return err
}
