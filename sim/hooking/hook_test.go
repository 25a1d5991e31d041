package hooking

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type sampleHookable struct {
	HookableBase
}

func (s *sampleHookable) Name() string {
	return "Sample"
}

type recordingHook struct {
	ctxs []HookCtx
}

func (h *recordingHook) Func(ctx HookCtx) {
	h.ctxs = append(h.ctxs, ctx)
}

type taggedItem []string

func (i taggedItem) Tags() []string {
	return i
}

var hookPosSample = &HookPos{Name: "Sample"}

var _ = Describe("HookableBase", func() {
	var (
		domain *sampleHookable
		hook   *recordingHook
	)

	BeforeEach(func() {
		domain = &sampleHookable{}
		hook = &recordingHook{}
	})

	It("should register hooks", func() {
		domain.AcceptHook(hook)

		Expect(domain.NumHooks()).To(Equal(1))
		Expect(domain.Hooks()).To(ConsistOf(hook))
	})

	It("should panic on a duplicated hook", func() {
		domain.AcceptHook(hook)

		Expect(func() { domain.AcceptHook(hook) }).
			To(PanicWith(ContainSubstring("recordingHook registered twice")))
	})

	It("should accept functions as hooks", func() {
		var seen []string

		first := HookFunc(func(ctx HookCtx) { seen = append(seen, "first") })
		second := HookFunc(func(ctx HookCtx) {
			seen = append(seen, ctx.Pos.Name)
		})
		domain.AcceptHook(first)
		domain.AcceptHook(second)
		domain.AcceptHook(first)

		domain.InvokeHook(HookCtx{Domain: domain, Pos: hookPosSample})

		Expect(domain.NumHooks()).To(Equal(3))
		Expect(seen).To(Equal([]string{"first", "Sample", "first"}))
	})

	It("should invoke hooks in registration order", func() {
		other := &recordingHook{}
		domain.AcceptHook(hook)
		domain.AcceptHook(other)

		ctx := HookCtx{Domain: domain, Pos: hookPosSample, Item: 1}
		domain.InvokeHook(ctx)

		Expect(hook.ctxs).To(Equal([]HookCtx{ctx}))
		Expect(other.ctxs).To(Equal([]HookCtx{ctx}))
	})
})

var _ = Describe("TagCountTracer", func() {
	var t *TagCountTracer

	BeforeEach(func() {
		t = NewTagCountTracer()
	})

	It("should count tags of tagged items", func() {
		t.Func(HookCtx{Item: taggedItem{"a", "b"}})
		t.Func(HookCtx{Item: taggedItem{"b"}})

		Expect(t.GetTagNames()).To(Equal([]string{"a", "b"}))
		Expect(t.GetTagCount("a")).To(Equal(uint64(1)))
		Expect(t.GetTagCount("b")).To(Equal(uint64(2)))
		Expect(t.Counts()).To(HaveLen(2))
	})

	It("should ignore items without tags", func() {
		t.Func(HookCtx{Item: "plain"})

		Expect(t.GetTagNames()).To(BeEmpty())
	})

	It("should forget everything on reset", func() {
		t.Func(HookCtx{Item: taggedItem{"a"}})
		t.Reset()

		Expect(t.GetTagCount("a")).To(BeZero())
		Expect(t.GetTagNames()).To(BeEmpty())
	})
})
