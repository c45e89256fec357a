package mmu

// A PageLoader moves the content of pages between frames and the backing
// store.
type PageLoader interface {
	// LoadPageInto fills the frame with the content of the page. Pages that
	// were never flushed read as zeros.
	LoadPageInto(pageNumber uint64, frame []byte) error

	// Flush writes the frame back to the backing store as the content of the
	// page.
	Flush(pageNumber uint64, frame []byte) error

	// PageSize returns the size of the pages the backing store holds.
	PageSize() uint64

	// NumPages returns how many pages the backing store can hold.
	NumPages() uint64
}
