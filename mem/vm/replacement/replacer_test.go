package replacement

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func load(r PageReplacer, pages ...uint64) {
	for _, p := range pages {
		r.PageEvent(PageEvent{Kind: Loaded, PageNumber: p})
	}
}

var _ = Describe("FIFOReplacer", func() {
	var r *FIFOReplacer

	BeforeEach(func() {
		r = NewFIFOReplacer()
	})

	It("should fail when nothing is resident", func() {
		_, err := r.PickReplacementPage(nil)

		Expect(err).To(MatchError(ErrNoCandidate))
	})

	It("should pick the page loaded first", func() {
		load(r, 5, 2, 9)

		victim, err := r.PickReplacementPage([]uint64{2, 5, 9})

		Expect(err).NotTo(HaveOccurred())
		Expect(victim).To(Equal(uint64(5)))
	})

	It("should ignore touches", func() {
		load(r, 5, 2)
		r.PageEvent(PageEvent{Kind: Touched, PageNumber: 5})

		victim, _ := r.PickReplacementPage([]uint64{2, 5})

		Expect(victim).To(Equal(uint64(5)))
	})

	It("should forget evicted pages", func() {
		load(r, 5, 2, 9)
		r.PageEvent(PageEvent{Kind: Evicted, PageNumber: 5})

		victim, _ := r.PickReplacementPage([]uint64{2, 9})

		Expect(victim).To(Equal(uint64(2)))
	})

	It("should move a reloaded page to the back", func() {
		load(r, 1, 2, 1)

		victim, _ := r.PickReplacementPage([]uint64{1, 2})

		Expect(victim).To(Equal(uint64(2)))
	})

	It("should prefer the lowest untracked resident page", func() {
		load(r, 1)

		victim, _ := r.PickReplacementPage([]uint64{1, 8, 4})

		Expect(victim).To(Equal(uint64(4)))
	})
})

var _ = Describe("LRUReplacer", func() {
	var r *LRUReplacer

	BeforeEach(func() {
		r = NewLRUReplacer()
	})

	It("should fail when nothing is resident", func() {
		_, err := r.PickReplacementPage([]uint64{})

		Expect(err).To(MatchError(ErrNoCandidate))
	})

	It("should pick the least recently touched page", func() {
		load(r, 1, 2, 3)
		r.PageEvent(PageEvent{Kind: Touched, PageNumber: 1})
		r.PageEvent(PageEvent{Kind: Touched, PageNumber: 3})

		victim, err := r.PickReplacementPage([]uint64{1, 2, 3})

		Expect(err).NotTo(HaveOccurred())
		Expect(victim).To(Equal(uint64(2)))
	})

	It("should break ties with the lowest page number", func() {
		victim, _ := r.PickReplacementPage([]uint64{7, 3, 5})

		Expect(victim).To(Equal(uint64(3)))
	})

	It("should forget evicted pages", func() {
		load(r, 1, 2)
		r.PageEvent(PageEvent{Kind: Evicted, PageNumber: 1})
		load(r, 3)

		victim, _ := r.PickReplacementPage([]uint64{2, 3})

		Expect(victim).To(Equal(uint64(2)))
	})
})

var _ = Describe("RandomReplacer", func() {
	It("should fail when nothing is resident", func() {
		_, err := NewRandomReplacer(1).PickReplacementPage(nil)

		Expect(err).To(MatchError(ErrNoCandidate))
	})

	It("should only pick resident pages", func() {
		r := NewRandomReplacer(42)
		resident := []uint64{3, 11, 6}

		for range 50 {
			victim, err := r.PickReplacementPage(resident)
			Expect(err).NotTo(HaveOccurred())
			Expect(resident).To(ContainElement(victim))
		}
	})

	It("should be deterministic for a seed", func() {
		a := NewRandomReplacer(7)
		b := NewRandomReplacer(7)

		for range 20 {
			va, _ := a.PickReplacementPage([]uint64{1, 2, 3, 4})
			vb, _ := b.PickReplacementPage([]uint64{4, 3, 2, 1})
			Expect(va).To(Equal(vb))
		}
	})
})

var _ = Describe("NewReplacer", func() {
	It("should build the named policies", func() {
		r, err := NewReplacer("FIFO", 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(r).To(BeAssignableToTypeOf(&FIFOReplacer{}))

		r, err = NewReplacer("lru", 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(r).To(BeAssignableToTypeOf(&LRUReplacer{}))

		r, err = NewReplacer("random", 3)
		Expect(err).NotTo(HaveOccurred())
		Expect(r).To(BeAssignableToTypeOf(&RandomReplacer{}))
	})

	It("should reject unknown policies", func() {
		_, err := NewReplacer("clock", 0)

		Expect(err).To(MatchError(ErrUnknownPolicy))
	})

	It("should name event kinds", func() {
		Expect(Touched.String()).To(Equal("touched"))
		Expect(Loaded.String()).To(Equal("loaded"))
		Expect(Evicted.String()).To(Equal("evicted"))
	})
})
