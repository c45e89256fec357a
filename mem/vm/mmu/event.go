package mmu

import (
	"fmt"

	"github.com/sarchlab/vmsim/hooking"
)

var (
	// HookPosAccess marks a completed read or write.
	HookPosAccess = &hooking.HookPos{Name: "MMU Access"}

	// HookPosPageFault marks a translation that found no resident frame.
	HookPosPageFault = &hooking.HookPos{Name: "MMU Page Fault"}

	// HookPosEvict marks a page leaving physical memory.
	HookPosEvict = &hooking.HookPos{Name: "MMU Evict"}

	// HookPosFlush marks a page written back to the backing store.
	HookPosFlush = &hooking.HookPos{Name: "MMU Flush"}

	// HookPosLoad marks a page that became resident.
	HookPosLoad = &hooking.HookPos{Name: "MMU Load"}
)

// AccessKind tells reads and writes apart.
type AccessKind int

// The kinds of accesses.
const (
	AccessNone AccessKind = iota
	AccessRead
	AccessWrite
)

func (k AccessKind) String() string {
	switch k {
	case AccessNone:
		return "none"
	case AccessRead:
		return "read"
	case AccessWrite:
		return "write"
	default:
		return fmt.Sprintf("AccessKind(%d)", int(k))
	}
}

// An Event is the item of the HookCtx passed to the hooks of the MMU. Fields
// that do not apply to a hook position are left zero.
type Event struct {
	Access     AccessKind
	Address    uint64
	PageNumber uint64
	FrameIndex uint64
	Value      byte
	Hit        bool
	Dirty      bool
}
