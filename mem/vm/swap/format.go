package swap

import (
	"fmt"
	"io"

	"github.com/sarchlab/vmsim/mem/vm"
)

// Format writes an empty header to w. All pages of the new swap file read as
// zeros until they are flushed.
func Format(w io.WriterAt, nPages, pageSize uint64) error {
	if pageSize == 0 {
		return fmt.Errorf("%w: page size must be positive", vm.ErrConfiguration)
	}

	if nPages > maxPages {
		return fmt.Errorf("%w: %d pages is too many for a swap file",
			vm.ErrConfiguration, nPages)
	}

	header := Header{
		NumPages: nPages,
		PageSize: pageSize,
		Indices:  make([]uint64, nPages),
	}

	buf := header.Encode()

	n, err := w.WriteAt(buf, 0)
	if err != nil {
		return fmt.Errorf("%w: writing swap header: %v", vm.ErrBackingStore, err)
	}

	if n != len(buf) {
		return fmt.Errorf("%w: writing swap header: %v",
			vm.ErrBackingStore, io.ErrShortWrite)
	}

	return nil
}
