// Package replacement provides the policies that decide which resident page
// leaves physical memory when a new page must be loaded.
package replacement

import (
	"errors"
	"fmt"
	"strings"
)

// EventKind tells what happened to a page.
type EventKind int

// The kinds of events that the MMU reports to a PageReplacer.
const (
	// Touched is reported on every read or write of the page.
	Touched EventKind = iota
	// Loaded is reported after the page became resident.
	Loaded
	// Evicted is reported after the page left physical memory.
	Evicted
)

func (k EventKind) String() string {
	switch k {
	case Touched:
		return "touched"
	case Loaded:
		return "loaded"
	case Evicted:
		return "evicted"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// A PageEvent is fired by the MMU. A policy may or may not use the events.
type PageEvent struct {
	Kind       EventKind
	PageNumber uint64
}

// A PageReplacer decides which resident page should be evicted.
type PageReplacer interface {
	// PageEvent notifies the replacer that something happened to a page.
	PageEvent(evt PageEvent)

	// PickReplacementPage selects exactly one page out of the resident set.
	PickReplacementPage(resident []uint64) (uint64, error)
}

var (
	// ErrNoCandidate is returned when there is no resident page to pick.
	ErrNoCandidate = errors.New("no resident page to replace")

	// ErrUnknownPolicy is returned by NewReplacer for unsupported policies.
	ErrUnknownPolicy = errors.New("unknown replacement policy")
)

// Policy names accepted by NewReplacer.
const (
	PolicyFIFO   = "fifo"
	PolicyLRU    = "lru"
	PolicyRandom = "random"
)

// NewReplacer creates a replacer based on the policy name. The seed is only
// used by the random policy.
func NewReplacer(policy string, seed uint64) (PageReplacer, error) {
	switch strings.ToLower(policy) {
	case PolicyFIFO:
		return NewFIFOReplacer(), nil
	case PolicyLRU:
		return NewLRUReplacer(), nil
	case PolicyRandom:
		return NewRandomReplacer(seed), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, policy)
	}
}

func residentSet(resident []uint64) map[uint64]bool {
	set := make(map[uint64]bool, len(resident))
	for _, p := range resident {
		set[p] = true
	}

	return set
}
