// Package vm provides the models for paged virtual memory: the page table,
// the error kinds shared by the memory components, and address helpers.
package vm

import "errors"

var (
	// ErrAddressOutOfBounds is returned when a virtual address falls outside
	// of the address space.
	ErrAddressOutOfBounds = errors.New("address out of bounds")

	// ErrConfiguration is returned when the memory system is configured with
	// values that cannot work together.
	ErrConfiguration = errors.New("configuration error")

	// ErrBackingStore is returned when reading from or writing to the backing
	// store fails.
	ErrBackingStore = errors.New("backing store error")

	// ErrInvariantViolation signals an internal inconsistency of the memory
	// system.
	ErrInvariantViolation = errors.New("invariant violation")
)

// SplitAddress decomposes a virtual address into its page number and the
// offset within the page.
func SplitAddress(addr, pageSize uint64) (pageNumber, offset uint64) {
	return addr / pageSize, addr % pageSize
}

// PageBase returns the first virtual address of the page.
func PageBase(pageNumber, pageSize uint64) uint64 {
	return pageNumber * pageSize
}
