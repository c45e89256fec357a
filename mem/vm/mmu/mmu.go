// Package mmu provides the memory management unit, which exposes byte-level
// reads and writes over a virtual address space backed by a small physical
// memory and a swap file.
package mmu

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sarchlab/vmsim/hooking"
	"github.com/sarchlab/vmsim/mem/physmem"
	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/mem/vm/replacement"
)

// Config is the static geometry of an MMU.
type Config struct {
	AddressSpaceSize   uint64 `json:"address_space_size"`
	PageSize           uint64 `json:"page_size"`
	FrameCount         uint64 `json:"frame_count"`
	PhysicalMemorySize uint64 `json:"physical_memory_size"`
}

// NumPages returns the number of pages in the virtual address space.
func (c Config) NumPages() uint64 {
	return c.AddressSpaceSize / c.PageSize
}

// Comp is the default MMU implementation.
//
// Requests are processed one at a time. A request that faults blocks until
// the page is loaded, including any eviction and flush that makes room for it.
// Hooks run while the MMU is locked and must not call back into it.
type Comp struct {
	hooking.HookableBase

	name   string
	config Config
	logger *slog.Logger

	lock       sync.Mutex
	memory     *physmem.Memory
	pageTable  vm.PageTable
	replacer   replacement.PageReplacer
	loader     PageLoader
	freeFrames []uint64
	stats      Stats
}

// Name returns the name of the MMU.
func (c *Comp) Name() string {
	return c.name
}

// Config returns the geometry of the MMU.
func (c *Comp) Config() Config {
	return c.config
}

// Read returns the byte at the virtual address.
func (c *Comp) Read(addr uint64) (byte, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	pageNumber, offset, err := c.splitAddress(addr)
	if err != nil {
		return 0, err
	}

	frame, hit, err := c.translateAddr(pageNumber)
	if err != nil {
		return 0, err
	}

	value, err := c.memory.Read(frame, offset)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", vm.ErrInvariantViolation, err)
	}

	c.replacer.PageEvent(replacement.PageEvent{
		Kind:       replacement.Touched,
		PageNumber: pageNumber,
	})

	c.invokeHook(HookPosAccess, Event{
		Access:     AccessRead,
		Address:    addr,
		PageNumber: pageNumber,
		FrameIndex: frame,
		Value:      value,
		Hit:        hit,
	})

	return value, nil
}

// Write stores the byte at the virtual address and marks the page dirty.
func (c *Comp) Write(addr uint64, value byte) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	pageNumber, offset, err := c.splitAddress(addr)
	if err != nil {
		return err
	}

	frame, hit, err := c.translateAddr(pageNumber)
	if err != nil {
		return err
	}

	err = c.memory.Write(frame, offset, value)
	if err != nil {
		return fmt.Errorf("%w: %v", vm.ErrInvariantViolation, err)
	}

	c.pageTable.MarkDirty(pageNumber)

	c.replacer.PageEvent(replacement.PageEvent{
		Kind:       replacement.Touched,
		PageNumber: pageNumber,
	})

	c.invokeHook(HookPosAccess, Event{
		Access:     AccessWrite,
		Address:    addr,
		PageNumber: pageNumber,
		FrameIndex: frame,
		Value:      value,
		Hit:        hit,
		Dirty:      true,
	})

	return nil
}

// FlushAll writes every dirty resident page back to the backing store. The
// pages stay resident and become clean.
func (c *Comp) FlushAll() error {
	c.lock.Lock()
	defer c.lock.Unlock()

	for _, entry := range c.pageTable.Entries() {
		if !entry.Dirty {
			continue
		}

		if err := c.flush(entry); err != nil {
			return err
		}
	}

	return nil
}

// Stats returns a copy of the counters.
func (c *Comp) Stats() Stats {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.stats
}

// ResidentPages returns the page table entries ordered by page number.
func (c *Comp) ResidentPages() []vm.PageTableEntry {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.pageTable.Entries()
}

// NumFreeFrames returns how many frames hold no page.
func (c *Comp) NumFreeFrames() int {
	c.lock.Lock()
	defer c.lock.Unlock()

	return len(c.freeFrames)
}

// A Snapshot is the state of an MMU at one instant.
type Snapshot struct {
	Name          string
	Config        Config
	Stats         Stats
	NumFreeFrames int
	PageTable     []vm.PageTableEntry
}

// Snapshot copies the state of the MMU under a single lock, so the counters,
// the free frames and the page table always agree with each other.
func (c *Comp) Snapshot() Snapshot {
	c.lock.Lock()
	defer c.lock.Unlock()

	return Snapshot{
		Name:          c.name,
		Config:        c.config,
		Stats:         c.stats,
		NumFreeFrames: len(c.freeFrames),
		PageTable:     c.pageTable.Entries(),
	}
}

// Frame returns a copy of the content of a frame.
func (c *Comp) Frame(index uint64) ([]byte, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	block, err := c.memory.Frame(index)
	if err != nil {
		return nil, err
	}

	return append([]byte(nil), block...), nil
}

func (c *Comp) splitAddress(addr uint64) (pageNumber, offset uint64, err error) {
	if addr >= c.config.AddressSpaceSize {
		return 0, 0, fmt.Errorf("%w: %#x is not below %#x",
			vm.ErrAddressOutOfBounds, addr, c.config.AddressSpaceSize)
	}

	pageNumber, offset = vm.SplitAddress(addr, c.config.PageSize)

	return pageNumber, offset, nil
}

func (c *Comp) translateAddr(pageNumber uint64) (frame uint64, hit bool, err error) {
	entry, found := c.pageTable.Find(pageNumber)
	if found {
		c.logger.Debug("page hit",
			"page", pageNumber, "frame", entry.FrameIndex)
		c.stats.Hits++

		return entry.FrameIndex, true, nil
	}

	c.logger.Debug("page fault", "page", pageNumber)
	c.stats.Misses++

	frame, err = c.handlePageFault(pageNumber)
	if err != nil {
		return 0, false, err
	}

	return frame, false, nil
}

func (c *Comp) handlePageFault(pageNumber uint64) (uint64, error) {
	c.invokeHook(HookPosPageFault, Event{PageNumber: pageNumber})

	frame, err := c.acquireFrame()
	if err != nil {
		return 0, err
	}

	block, err := c.memory.Frame(frame)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", vm.ErrInvariantViolation, err)
	}

	err = c.loader.LoadPageInto(pageNumber, block)
	if err != nil {
		c.freeFrames = append([]uint64{frame}, c.freeFrames...)
		return 0, c.backingStoreError("load", pageNumber, err)
	}

	c.pageTable.Insert(pageNumber, frame)
	c.replacer.PageEvent(replacement.PageEvent{
		Kind:       replacement.Loaded,
		PageNumber: pageNumber,
	})
	c.stats.Loads++

	c.logger.Debug("page loaded", "page", pageNumber, "frame", frame)
	c.invokeHook(HookPosLoad, Event{PageNumber: pageNumber, FrameIndex: frame})

	return frame, nil
}

// acquireFrame returns a frame that holds no page, evicting one if all the
// frames are in use.
func (c *Comp) acquireFrame() (uint64, error) {
	if len(c.freeFrames) > 0 {
		frame := c.freeFrames[0]
		c.freeFrames = c.freeFrames[1:]

		return frame, nil
	}

	return c.evict()
}

func (c *Comp) evict() (uint64, error) {
	entries := c.pageTable.Entries()
	if len(entries) == 0 {
		return 0, fmt.Errorf("%w: no free frame and no resident page",
			vm.ErrInvariantViolation)
	}

	resident := make([]uint64, len(entries))
	for i, e := range entries {
		resident[i] = e.PageNumber
	}

	victim, err := c.replacer.PickReplacementPage(resident)
	if err != nil {
		return 0, fmt.Errorf("%w: picking a victim: %v",
			vm.ErrInvariantViolation, err)
	}

	entry, found := c.pageTable.Find(victim)
	if !found {
		return 0, fmt.Errorf("%w: victim page %#x is not resident",
			vm.ErrInvariantViolation, victim)
	}

	if entry.Dirty {
		c.logger.Debug("victim is dirty, flushing before reuse",
			"page", victim)

		if err := c.flush(entry); err != nil {
			return 0, err
		}
	}

	frame, _ := c.pageTable.Remove(victim)
	c.replacer.PageEvent(replacement.PageEvent{
		Kind:       replacement.Evicted,
		PageNumber: victim,
	})
	c.stats.Evictions++

	c.logger.Debug("page evicted", "page", victim, "frame", frame)
	c.invokeHook(HookPosEvict, Event{
		PageNumber: victim,
		FrameIndex: frame,
		Dirty:      entry.Dirty,
	})

	return frame, nil
}

func (c *Comp) flush(entry vm.PageTableEntry) error {
	block, err := c.memory.Frame(entry.FrameIndex)
	if err != nil {
		return fmt.Errorf("%w: %v", vm.ErrInvariantViolation, err)
	}

	err = c.loader.Flush(entry.PageNumber, block)
	if err != nil {
		return c.backingStoreError("flush", entry.PageNumber, err)
	}

	c.pageTable.MarkClean(entry.PageNumber)
	c.stats.Flushes++

	c.logger.Debug("page flushed",
		"page", entry.PageNumber, "frame", entry.FrameIndex)
	c.invokeHook(HookPosFlush, Event{
		PageNumber: entry.PageNumber,
		FrameIndex: entry.FrameIndex,
		Dirty:      true,
	})

	return nil
}

func (c *Comp) backingStoreError(op string, pageNumber uint64, err error) error {
	c.logger.Error("backing store failure",
		"op", op, "page", pageNumber, "error", err)

	if errors.Is(err, vm.ErrBackingStore) {
		return err
	}

	return fmt.Errorf("%w: %s page %#x: %v",
		vm.ErrBackingStore, op, pageNumber, err)
}

func (c *Comp) invokeHook(pos *hooking.HookPos, evt Event) {
	if c.NumHooks() == 0 {
		return
	}

	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    pos,
		Item:   evt,
	})
}
