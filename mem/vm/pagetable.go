package vm

import (
	"sort"
)

// A PageTableEntry records which frame a resident page occupies and whether
// the frame has diverged from the backing store.
type PageTableEntry struct {
	PageNumber uint64
	FrameIndex uint64
	Dirty      bool
}

// A PageTable maps resident pages to physical frames. A page that has no
// entry is not resident.
type PageTable interface {
	// Find returns the entry of the given page. The bool return value
	// indicates if the page is resident or not.
	Find(pageNumber uint64) (PageTableEntry, bool)

	// Insert installs a clean entry, overwriting any existing entry of the
	// page.
	Insert(pageNumber, frameIndex uint64)

	// Remove deletes the entry of the page and returns the frame it used to
	// occupy.
	Remove(pageNumber uint64) (frameIndex uint64, ok bool)

	// MarkDirty flags a resident page as modified.
	MarkDirty(pageNumber uint64)

	// MarkClean clears the dirty flag of a resident page.
	MarkClean(pageNumber uint64)

	// Len returns the number of resident pages.
	Len() int

	// Entries returns all the entries, ordered by page number.
	Entries() []PageTableEntry
}

// NewPageTable creates a new PageTable.
func NewPageTable() PageTable {
	return &pageTableImpl{
		entries: make(map[uint64]*PageTableEntry),
	}
}

// pageTableImpl is the default implementation of a PageTable.
type pageTableImpl struct {
	entries map[uint64]*PageTableEntry
}

func (pt *pageTableImpl) Find(pageNumber uint64) (PageTableEntry, bool) {
	entry, found := pt.entries[pageNumber]
	if !found {
		return PageTableEntry{}, false
	}

	return *entry, true
}

func (pt *pageTableImpl) Insert(pageNumber, frameIndex uint64) {
	pt.entries[pageNumber] = &PageTableEntry{
		PageNumber: pageNumber,
		FrameIndex: frameIndex,
	}
}

func (pt *pageTableImpl) Remove(pageNumber uint64) (uint64, bool) {
	entry, found := pt.entries[pageNumber]
	if !found {
		return 0, false
	}

	delete(pt.entries, pageNumber)

	return entry.FrameIndex, true
}

func (pt *pageTableImpl) MarkDirty(pageNumber uint64) {
	pt.pageMustExist(pageNumber).Dirty = true
}

func (pt *pageTableImpl) MarkClean(pageNumber uint64) {
	pt.pageMustExist(pageNumber).Dirty = false
}

func (pt *pageTableImpl) Len() int {
	return len(pt.entries)
}

func (pt *pageTableImpl) Entries() []PageTableEntry {
	entries := make([]PageTableEntry, 0, len(pt.entries))
	for _, e := range pt.entries {
		entries = append(entries, *e)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].PageNumber < entries[j].PageNumber
	})

	return entries
}

func (pt *pageTableImpl) pageMustExist(pageNumber uint64) *PageTableEntry {
	entry, found := pt.entries[pageNumber]
	if !found {
		panic("page does not exist")
	}

	return entry
}
