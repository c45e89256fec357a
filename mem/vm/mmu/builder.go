package mmu

import (
	"fmt"
	"log/slog"
	"math"
	"math/bits"

	"github.com/sarchlab/vmsim/mem/physmem"
	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/mem/vm/replacement"
)

// A Builder can build MMU components.
type Builder struct {
	addressSpaceSize   uint64
	pageSize           uint64
	frameCount         uint64
	physicalMemorySize uint64
	loader             PageLoader
	replacer           replacement.PageReplacer
	pageTable          vm.PageTable
	logger             *slog.Logger
}

// MakeBuilder creates a new builder. By default, the MMU covers 64 KiB of
// virtual memory with 256-byte pages and 256 frames.
func MakeBuilder() Builder {
	return Builder{
		addressSpaceSize: 65536,
		pageSize:         256,
		frameCount:       256,
	}
}

// WithAddressSpaceSize sets the number of bytes of the virtual address space.
func (b Builder) WithAddressSpaceSize(size uint64) Builder {
	b.addressSpaceSize = size
	return b
}

// WithPageSize sets the number of bytes of a page and of a frame.
func (b Builder) WithPageSize(size uint64) Builder {
	b.pageSize = size
	return b
}

// WithFrameCount sets the number of frames of physical memory.
func (b Builder) WithFrameCount(n uint64) Builder {
	b.frameCount = n
	return b
}

// WithPhysicalMemorySize sets the number of bytes of physical memory. The
// frames must fit in it. If not set, the memory is exactly as large as the
// frames.
func (b Builder) WithPhysicalMemorySize(size uint64) Builder {
	b.physicalMemorySize = size
	return b
}

// WithLoader sets the loader that connects the MMU to the backing store.
func (b Builder) WithLoader(loader PageLoader) Builder {
	b.loader = loader
	return b
}

// WithReplacer sets the page replacement policy. FIFO is used if not set.
func (b Builder) WithReplacer(replacer replacement.PageReplacer) Builder {
	b.replacer = replacer
	return b
}

// WithPageTable sets the page table that the MMU uses. It must be empty.
func (b Builder) WithPageTable(pageTable vm.PageTable) Builder {
	b.pageTable = pageTable
	return b
}

// WithLogger sets the logger. Nothing is logged if not set.
func (b Builder) WithLogger(logger *slog.Logger) Builder {
	b.logger = logger
	return b
}

// Build returns a newly created MMU component.
func (b Builder) Build(name string) (*Comp, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}

	c := &Comp{
		name: name,
		config: Config{
			AddressSpaceSize:   b.addressSpaceSize,
			PageSize:           b.pageSize,
			FrameCount:         b.frameCount,
			PhysicalMemorySize: b.memorySize(),
		},
		memory:   physmem.New(b.frameCount, b.pageSize),
		loader:   b.loader,
		replacer: b.replacer,
	}

	b.configureInternalStates(c)

	c.logger.Info("mmu created",
		"name", name,
		"address_space", c.config.AddressSpaceSize,
		"page_size", c.config.PageSize,
		"frames", c.config.FrameCount)

	return c, nil
}

func (b Builder) configureInternalStates(c *Comp) {
	c.pageTable = b.pageTable
	if c.pageTable == nil {
		c.pageTable = vm.NewPageTable()
	}

	if c.replacer == nil {
		c.replacer = replacement.NewFIFOReplacer()
	}

	c.logger = b.logger
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	c.logger = c.logger.With("mmu", c.name)

	c.freeFrames = make([]uint64, 0, b.frameCount)
	for i := uint64(0); i < b.frameCount; i++ {
		c.freeFrames = append(c.freeFrames, i)
	}
}

// framesSize returns the bytes taken by all the frames. It reports false if
// the size cannot be allocated.
func (b Builder) framesSize() (uint64, bool) {
	hi, lo := bits.Mul64(b.frameCount, b.pageSize)

	return lo, hi == 0 && lo <= math.MaxInt
}

func (b Builder) memorySize() uint64 {
	if b.physicalMemorySize == 0 {
		size, _ := b.framesSize()
		return size
	}

	return b.physicalMemorySize
}

func (b Builder) validate() error {
	if err := b.validateGeometry(); err != nil {
		return err
	}

	if err := b.validateLoader(); err != nil {
		return err
	}

	if b.pageTable != nil && b.pageTable.Len() != 0 {
		return configError("page table must start empty")
	}

	return nil
}

func (b Builder) validateGeometry() error {
	switch {
	case b.frameCount == 0:
		return configError("frame count must be positive")
	case b.pageSize == 0:
		return configError("page size must be positive")
	case b.addressSpaceSize == 0:
		return configError("address space size must be positive")
	case b.addressSpaceSize%b.pageSize != 0:
		return configError("address space size %d is not a multiple of "+
			"page size %d", b.addressSpaceSize, b.pageSize)
	case !b.framesFit():
		return configError("%d frames of %d bytes cannot be allocated",
			b.frameCount, b.pageSize)
	case b.frameCount*b.pageSize > b.memorySize():
		return configError("%d frames of %d bytes do not fit in %d bytes "+
			"of physical memory", b.frameCount, b.pageSize, b.memorySize())
	}

	return nil
}

func (b Builder) framesFit() bool {
	_, ok := b.framesSize()
	return ok
}

func (b Builder) validateLoader() error {
	if b.loader == nil {
		return configError("a page loader is required")
	}

	if b.loader.PageSize() != b.pageSize {
		return configError("backing store page size %d does not match "+
			"page size %d", b.loader.PageSize(), b.pageSize)
	}

	numPages := b.addressSpaceSize / b.pageSize
	if b.loader.NumPages() < numPages {
		return configError("backing store holds %d pages, "+
			"address space needs %d", b.loader.NumPages(), numPages)
	}

	return nil
}

func configError(format string, args ...any) error {
	return fmt.Errorf("%w: "+format,
		append([]any{vm.ErrConfiguration}, args...)...)
}
