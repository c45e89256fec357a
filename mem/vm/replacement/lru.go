package replacement

// LRUReplacer evicts the least recently accessed page. It needs to be told
// about every access, not only about faults.
type LRUReplacer struct {
	visitCount uint64
	lastVisit  map[uint64]uint64
}

// NewLRUReplacer returns a newly constructed LRU replacer.
func NewLRUReplacer() *LRUReplacer {
	return &LRUReplacer{
		lastVisit: make(map[uint64]uint64),
	}
}

// PageEvent stamps touched and loaded pages with a logical time.
func (r *LRUReplacer) PageEvent(evt PageEvent) {
	switch evt.Kind {
	case Touched, Loaded:
		r.visitCount++
		r.lastVisit[evt.PageNumber] = r.visitCount
	case Evicted:
		delete(r.lastVisit, evt.PageNumber)
	}
}

// PickReplacementPage returns the resident page with the oldest visit. Pages
// that were never visited count as the oldest. Ties go to the lowest page
// number.
func (r *LRUReplacer) PickReplacementPage(resident []uint64) (uint64, error) {
	if len(resident) == 0 {
		return 0, ErrNoCandidate
	}

	victim := resident[0]
	victimVisit := r.lastVisit[victim]

	for _, p := range resident[1:] {
		visit := r.lastVisit[p]
		if visit < victimVisit || (visit == victimVisit && p < victim) {
			victim = p
			victimVisit = visit
		}
	}

	return victim, nil
}
