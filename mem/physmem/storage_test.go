package physmem_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/vmsim/mem/physmem"
)

var _ = Describe("Memory", func() {
	var memory *physmem.Memory

	BeforeEach(func() {
		memory = physmem.New(4, 16)
	})

	It("should report its geometry", func() {
		Expect(memory.NumFrames()).To(Equal(uint64(4)))
		Expect(memory.FrameSize()).To(Equal(uint64(16)))
		Expect(memory.Capacity()).To(Equal(uint64(64)))
	})

	It("should start zeroed", func() {
		frame, err := memory.Frame(3)

		Expect(err).NotTo(HaveOccurred())
		Expect(frame).To(Equal(make([]byte, 16)))
	})

	It("should read and write within a frame", func() {
		Expect(memory.Write(2, 5, 0xAB)).To(Succeed())

		value, err := memory.Read(2, 5)

		Expect(err).NotTo(HaveOccurred())
		Expect(value).To(Equal(byte(0xAB)))
	})

	It("should keep frames apart", func() {
		frame, _ := memory.Frame(1)
		for i := range frame {
			frame[i] = 0xFF
		}

		before, _ := memory.Frame(0)
		after, _ := memory.Frame(2)
		Expect(before).To(Equal(make([]byte, 16)))
		Expect(after).To(Equal(make([]byte, 16)))
	})

	It("should not let a frame grow into its neighbour", func() {
		frame, _ := memory.Frame(0)
		frame = append(frame, 0x1)

		next, _ := memory.Frame(1)
		Expect(next[0]).To(Equal(byte(0)))
		Expect(frame).To(HaveLen(17))
	})

	It("should return error if accessing outside of the memory", func() {
		_, err := memory.Frame(4)
		Expect(err).To(MatchError(physmem.ErrFrameOutOfRange))

		_, err = memory.Read(0, 16)
		Expect(err).To(MatchError(physmem.ErrOffsetOutOfRange))

		err = memory.Write(5, 0, 1)
		Expect(err).To(MatchError(physmem.ErrFrameOutOfRange))
	})
})
