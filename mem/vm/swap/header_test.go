package swap

import (
	"encoding/binary"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/vmsim/mem/vm"
)

var _ = Describe("Header", func() {
	It("should lay out the header as little-endian words", func() {
		h := Header{NumPages: 2, PageSize: 256, Indices: []uint64{0, 1}}

		buf := h.Encode()

		Expect(buf).To(HaveLen(32))
		Expect(binary.LittleEndian.Uint64(buf[0:])).To(Equal(uint64(2)))
		Expect(binary.LittleEndian.Uint64(buf[8:])).To(Equal(uint64(256)))
		Expect(binary.LittleEndian.Uint64(buf[16:])).To(Equal(uint64(0)))
		Expect(binary.LittleEndian.Uint64(buf[24:])).To(Equal(uint64(1)))
	})

	It("should decode what it encodes", func() {
		store := NewMemStore()
		h := Header{NumPages: 3, PageSize: 16, Indices: []uint64{2, 0, 1}}
		_, _ = store.WriteAt(h.Encode(), 0)

		decoded, err := DecodeHeader(store)

		Expect(err).NotTo(HaveOccurred())
		Expect(decoded).To(Equal(h))
	})

	It("should treat index 0 as never written and 1 as slot 0", func() {
		h := Header{NumPages: 2, PageSize: 16, Indices: []uint64{0, 1}}

		_, ok := h.Slot(0)
		Expect(ok).To(BeFalse())

		slot, ok := h.Slot(1)
		Expect(ok).To(BeTrue())
		Expect(slot).To(Equal(uint64(0)))
	})

	It("should reject a truncated header", func() {
		store := NewMemStore()
		h := Header{NumPages: 4, PageSize: 16, Indices: make([]uint64, 4)}
		_, _ = store.WriteAt(h.Encode()[:24], 0)

		_, err := DecodeHeader(store)

		Expect(err).To(MatchError(vm.ErrConfiguration))
	})

	It("should reject an empty store", func() {
		_, err := DecodeHeader(NewMemStore())

		Expect(err).To(MatchError(vm.ErrConfiguration))
	})

	It("should reject a zero page size", func() {
		store := NewMemStore()
		h := Header{NumPages: 1, PageSize: 0, Indices: make([]uint64, 1)}
		_, _ = store.WriteAt(h.Encode(), 0)

		_, err := DecodeHeader(store)

		Expect(err).To(MatchError(vm.ErrConfiguration))
	})

	It("should reject slots beyond the file capacity", func() {
		store := NewMemStore()
		h := Header{NumPages: 2, PageSize: 16, Indices: []uint64{3, 0}}
		_, _ = store.WriteAt(h.Encode(), 0)

		_, err := DecodeHeader(store)

		Expect(err).To(MatchError(vm.ErrConfiguration))
	})

	It("should reject pages sharing a slot", func() {
		store := NewMemStore()
		h := Header{NumPages: 2, PageSize: 16, Indices: []uint64{1, 1}}
		_, _ = store.WriteAt(h.Encode(), 0)

		_, err := DecodeHeader(store)

		Expect(err).To(MatchError(vm.ErrConfiguration))
	})
})
