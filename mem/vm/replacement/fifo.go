package replacement

import "container/list"

// FIFOReplacer evicts the page that became resident longest ago.
type FIFOReplacer struct {
	queue    *list.List
	elements map[uint64]*list.Element
}

// NewFIFOReplacer returns a newly constructed FIFO replacer.
func NewFIFOReplacer() *FIFOReplacer {
	return &FIFOReplacer{
		queue:    list.New(),
		elements: make(map[uint64]*list.Element),
	}
}

// PageEvent appends loaded pages to the queue and drops evicted ones.
func (r *FIFOReplacer) PageEvent(evt PageEvent) {
	switch evt.Kind {
	case Loaded:
		r.remove(evt.PageNumber)
		r.elements[evt.PageNumber] = r.queue.PushBack(evt.PageNumber)
	case Evicted:
		r.remove(evt.PageNumber)
	}
}

// PickReplacementPage returns the oldest page of the queue that is still
// resident. Resident pages that were never reported as loaded are older than
// any queued page; the lowest of them is picked first.
func (r *FIFOReplacer) PickReplacementPage(resident []uint64) (uint64, error) {
	if len(resident) == 0 {
		return 0, ErrNoCandidate
	}

	untracked, found := lowestUntracked(resident, r.elements)
	if found {
		return untracked, nil
	}

	set := residentSet(resident)
	for e := r.queue.Front(); e != nil; e = e.Next() {
		page := e.Value.(uint64)
		if set[page] {
			return page, nil
		}
	}

	return 0, ErrNoCandidate
}

func (r *FIFOReplacer) remove(page uint64) {
	elem, found := r.elements[page]
	if !found {
		return
	}

	r.queue.Remove(elem)
	delete(r.elements, page)
}

func lowestUntracked[V any](
	resident []uint64,
	tracked map[uint64]V,
) (uint64, bool) {
	var (
		lowest uint64
		found  bool
	)

	for _, p := range resident {
		if _, ok := tracked[p]; ok {
			continue
		}

		if !found || p < lowest {
			lowest = p
			found = true
		}
	}

	return lowest, found
}
