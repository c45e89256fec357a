package hooking

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type countingHook struct {
	positions []string
}

func (h *countingHook) Func(ctx HookCtx) {
	h.positions = append(h.positions, ctx.Pos.Name)
}

type sliceHook struct {
	seen []string
}

func (h sliceHook) Func(HookCtx) {}

var _ = Describe("HookableBase", func() {
	var (
		base *HookableBase
		pos  = &HookPos{Name: "Somewhere"}
	)

	BeforeEach(func() {
		base = &HookableBase{}
	})

	It("should invoke all registered hooks in order", func() {
		var order []int
		base.AcceptHook(HookFunc(func(HookCtx) { order = append(order, 1) }))
		base.AcceptHook(HookFunc(func(HookCtx) { order = append(order, 2) }))

		base.InvokeHook(HookCtx{Pos: pos})

		Expect(order).To(Equal([]int{1, 2}))
		Expect(base.NumHooks()).To(Equal(2))
	})

	It("should pass the context to the hook", func() {
		hook := &countingHook{}
		base.AcceptHook(hook)

		base.InvokeHook(HookCtx{Domain: base, Pos: pos, Item: 42})

		Expect(hook.positions).To(Equal([]string{"Somewhere"}))
	})

	It("should panic when the same hook is registered twice", func() {
		hook := &countingHook{}
		base.AcceptHook(hook)

		Expect(func() { base.AcceptHook(hook) }).To(Panic())
		Expect(base.NumHooks()).To(Equal(1))
	})

	It("should accept the same function hook twice", func() {
		calls := 0
		f := HookFunc(func(HookCtx) { calls++ })

		base.AcceptHook(f)
		base.AcceptHook(f)
		base.InvokeHook(HookCtx{Pos: pos})

		Expect(calls).To(Equal(2))
	})

	It("should accept hooks whose type cannot be compared", func() {
		hook := sliceHook{seen: []string{"a"}}

		Expect(func() {
			base.AcceptHook(hook)
			base.AcceptHook(hook)
		}).NotTo(Panic())
		Expect(base.NumHooks()).To(Equal(2))
	})
})
