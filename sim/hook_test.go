package sim

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type countingHook struct {
	items []interface{}
}

func (h *countingHook) Func(ctx HookCtx) {
	h.items = append(h.items, ctx.Item)
}

var _ = Describe("HookableBase", func() {
	var (
		domain *HookableBase
		pos    *HookPos
	)

	BeforeEach(func() {
		domain = &HookableBase{}
		pos = &HookPos{Name: "Test"}
	})

	It("should invoke hooks in registration order", func() {
		var order []string
		domain.AcceptHook(HookFunc(func(HookCtx) { order = append(order, "a") }))
		domain.AcceptHook(HookFunc(func(HookCtx) { order = append(order, "b") }))

		domain.InvokeHook(HookCtx{Domain: domain, Pos: pos})

		Expect(order).To(Equal([]string{"a", "b"}))
		Expect(domain.NumHooks()).To(Equal(2))
	})

	It("should pass the item to the hook", func() {
		hook := &countingHook{}
		domain.AcceptHook(hook)

		domain.InvokeHook(HookCtx{Domain: domain, Pos: pos, Item: 42})

		Expect(hook.items).To(Equal([]interface{}{42}))
	})

	It("should panic when the same hook is registered twice", func() {
		hook := &countingHook{}
		domain.AcceptHook(hook)

		Expect(func() { domain.AcceptHook(hook) }).To(Panic())
	})
})

var _ = Describe("IDGenerator", func() {
	It("should generate sequential ids", func() {
		g := NewSequentialIDGenerator()

		Expect(g.Generate()).To(Equal("1"))
		Expect(g.Generate()).To(Equal("2"))
	})

	It("should generate distinct global ids", func() {
		g := NewGlobalUniqueIDGenerator()

		Expect(g.Generate()).NotTo(Equal(g.Generate()))
	})
})

var _ = Describe("NamedBase", func() {
	It("should keep the name", func() {
		Expect(MakeNamedBase("FTL").Name()).To(Equal("FTL"))
	})

	It("should reject an empty name", func() {
		Expect(func() { MakeNamedBase("") }).To(Panic())
	})
})
