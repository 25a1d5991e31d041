package vm_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/memsim/vm"
)

func applyAll(s vm.State, cmds ...vm.Command) (vm.State, vm.Outcome) {
	var out vm.Outcome

	for _, cmd := range cmds {
		s, out = vm.Apply(s, cmd)
		Expect(vm.CheckInvariants(s)).To(Succeed())
	}

	return s, out
}

func repeat(cmd vm.Command, n int) []vm.Command {
	cmds := make([]vm.Command, n)
	for i := range cmds {
		cmds[i] = cmd
	}

	return cmds
}

var _ = Describe("Apply", func() {
	var s vm.State

	BeforeEach(func() {
		s = vm.InitialState()
	})

	It("should start from an empty system", func() {
		Expect(s.AllocatedPages()).To(BeEmpty())
		Expect(s.UsedFrames()).To(Equal(0))
		Expect(s.UsedSwapSlots()).To(Equal(0))
		Expect(s.TLB.Len).To(Equal(0))
		Expect(s.Counters).To(Equal(vm.Counters{}))
		Expect(s.Pressure).To(Equal(vm.PressureOptimal))
		Expect(vm.CheckInvariants(s)).To(Succeed())
	})

	Context("when allocating into free frames", func() {
		BeforeEach(func() {
			s, _ = applyAll(s, repeat(vm.Allocate{}, vm.NumFrames)...)
		})

		It("should map pages one-to-one without faults", func() {
			Expect(s.AllocatedPages()).To(Equal([]int{0, 1, 2, 3, 4, 5, 6, 7}))
			Expect(s.UsedFrames()).To(Equal(vm.NumFrames))

			for i := 0; i < vm.NumFrames; i++ {
				Expect(s.Frames[i].Page).To(Equal(i))
				Expect(s.PageTable[i].Present).To(BeTrue())
				Expect(s.PageTable[i].Location).To(Equal(i))
			}

			Expect(s.Counters.PageFaults).To(BeZero())
			Expect(s.Counters.SwapOuts).To(BeZero())
			Expect(s.Pressure).To(Equal(vm.PressureCritical))
		})

		Context("and allocating one more page", func() {
			var out vm.Outcome

			BeforeEach(func() {
				s, out = applyAll(s, vm.Allocate{})
			})

			It("should swap out the least recently used page", func() {
				Expect(out.Failed()).To(BeFalse())
				Expect(s.Pages[8]).To(Equal(vm.PageAllocated))
				Expect(s.Counters.PageFaults).To(Equal(uint64(1)))
				Expect(s.Counters.SwapOuts).To(Equal(uint64(1)))
				Expect(s.Frames[0].Page).To(Equal(8))
				Expect(s.PageTable[0]).To(Equal(vm.PageTableEntry{
					Valid: true, Location: 0, Present: false,
				}))
				Expect(s.SwapSlots[0]).To(Equal(vm.SwapSlot{
					Status: vm.SlotUsed, Page: 0,
				}))
				Expect(out.Changes).To(ContainElement(vm.Highlight{
					Kind: vm.HighlightSwapOut, Page: 0, Frame: 0, SwapSlot: 0,
				}))
			})

			Context("and accessing the swapped-out page", func() {
				BeforeEach(func() {
					s, out = applyAll(s, vm.Access{Page: 0})
				})

				It("should swap it back in over a new victim", func() {
					Expect(out.Failed()).To(BeFalse())
					Expect(s.Counters.TLBMisses).To(Equal(uint64(1)))
					Expect(s.Counters.PageFaults).To(Equal(uint64(2)))
					Expect(s.Counters.SwapIns).To(Equal(uint64(1)))
					Expect(s.Counters.SwapOuts).To(Equal(uint64(2)))

					Expect(s.PageTable[0].Present).To(BeTrue())
					Expect(s.PageTable[0].Location).To(Equal(1))
					Expect(s.Frames[1].Page).To(Equal(0))

					Expect(s.SwapSlots[0].Status).To(Equal(vm.SlotFree))
					Expect(s.SwapSlots[1]).To(Equal(vm.SwapSlot{
						Status: vm.SlotUsed, Page: 1,
					}))
					Expect(s.PageTable[1].Present).To(BeFalse())
					Expect(s.PageTable[1].Location).To(Equal(1))
				})

				It("should not cache the swapped-in page in the TLB", func() {
					Expect(s.TLB.Len).To(Equal(0))

					s, out = applyAll(s, vm.Access{Page: 0})
					Expect(s.Counters.TLBMisses).To(Equal(uint64(2)))
					Expect(s.TLB.List()).To(Equal([]vm.TLBEntry{
						{Page: 0, Frame: 1},
					}))

					s, out = applyAll(s, vm.Access{Page: 0})
					Expect(s.Counters.TLBHits).To(Equal(uint64(1)))
					Expect(out.Changes).To(ConsistOf(vm.Highlight{
						Kind:     vm.HighlightTLBHit,
						Page:     0,
						Frame:    1,
						SwapSlot: vm.NoLocation,
					}))
				})
			})
		})
	})

	It("should report a segmentation fault for an unallocated page", func() {
		next, out := vm.Apply(s, vm.Access{Page: 5})

		Expect(next).To(Equal(s))
		Expect(out.Err).To(MatchError(vm.ErrSegmentationFault))
		Expect(out.Message).To(ContainSubstring("Segmentation fault"))
		Expect(next.Counters.PageFaults).To(BeZero())
	})

	It("should report a segmentation fault for an out-of-range page", func() {
		next, out := vm.Apply(s, vm.Access{Page: vm.NumPages})

		Expect(next).To(Equal(s))
		Expect(out.Err).To(MatchError(vm.ErrSegmentationFault))
	})

	It("should not free anything from an empty system", func() {
		next, out := vm.Apply(s, vm.Free{})

		Expect(next).To(Equal(s))
		Expect(out.Err).To(MatchError(vm.ErrNothingToFree))
		Expect(out.Message).To(ContainSubstring("Nothing to free"))
	})

	It("should refuse a nil command", func() {
		next, out := vm.Apply(s, nil)

		Expect(next).To(Equal(s))
		Expect(out.Err).To(MatchError(vm.ErrInvalidCommand))
	})

	It("should reset to the initial state from anywhere", func() {
		busy, _ := applyAll(s,
			vm.Allocate{}, vm.Allocate{}, vm.Access{Page: 1}, vm.Access{Page: 1})
		busy, _ = applyAll(busy, repeat(vm.Allocate{}, 10)...)

		next, out := vm.Apply(busy, vm.Reset{})

		Expect(out.Failed()).To(BeFalse())
		Expect(next).To(Equal(vm.InitialState()))
	})

	Context("when frames and swap are exhausted", func() {
		BeforeEach(func() {
			s, _ = applyAll(s, repeat(vm.Allocate{}, vm.NumFrames+vm.NumSwapSlots)...)
			Expect(s.UsedFrames()).To(Equal(vm.NumFrames))
			Expect(s.UsedSwapSlots()).To(Equal(vm.NumSwapSlots))
		})

		It("should roll back a new allocation", func() {
			next, out := vm.Apply(s, vm.Allocate{})

			Expect(out.Err).To(MatchError(vm.ErrOutOfPhysicalAndSwap))
			Expect(next.Pages[vm.NumFrames+vm.NumSwapSlots]).
				To(Equal(vm.PageUnallocated))
			Expect(next.AllocatedPages()).To(Equal(s.AllocatedPages()))
			Expect(next.Frames).To(Equal(s.Frames))
			Expect(next.SwapSlots).To(Equal(s.SwapSlots))
			Expect(next.Counters.PageFaults).To(Equal(s.Counters.PageFaults + 1))
			Expect(next.Counters.SwapOuts).To(Equal(s.Counters.SwapOuts))
			Expect(vm.CheckInvariants(next)).To(Succeed())
		})

		It("should leave the state unchanged on a major fault", func() {
			swapped := s.SwapSlots[0].Page

			next, out := vm.Apply(s, vm.Access{Page: swapped})

			Expect(out.Err).To(MatchError(vm.ErrOutOfPhysicalAndSwap))
			Expect(next).To(Equal(s))
		})
	})

	Context("when the address space is full", func() {
		It("should refuse to allocate", func() {
			for i := 0; i < vm.NumPages; i++ {
				s.Pages[i] = vm.PageAllocated
			}

			next, out := vm.Apply(s, vm.Allocate{})

			Expect(out.Err).To(MatchError(vm.ErrAddressSpaceExhausted))
			Expect(next).To(Equal(s))
		})
	})

	Context("when freeing", func() {
		It("should free the highest allocated page and its frame", func() {
			s, _ = applyAll(s, vm.Allocate{}, vm.Allocate{}, vm.Allocate{},
				vm.Access{Page: 2}, vm.Access{Page: 2})
			Expect(s.TLB.Len).To(Equal(1))

			next, out := vm.Apply(s, vm.Free{})

			Expect(out.Failed()).To(BeFalse())
			Expect(next.AllocatedPages()).To(Equal([]int{0, 1}))
			Expect(next.Frames[2].Status).To(Equal(vm.SlotFree))
			Expect(next.PageTable[2].Valid).To(BeFalse())
			Expect(next.TLB.Len).To(Equal(0))
			Expect(vm.CheckInvariants(next)).To(Succeed())
		})

		It("should list no page once the last one is freed", func() {
			s, _ = applyAll(s, vm.Allocate{})

			next, _ := vm.Apply(s, vm.Free{})

			Expect(next.AllocatedPages()).NotTo(BeNil())
			Expect(next.AllocatedPages()).To(Equal([]int{}))
		})

		It("should free the swap slot of a swapped-out page", func() {
			s, _ = applyAll(s, repeat(vm.Allocate{}, 9)...)
			for page := 1; page < 8; page++ {
				s, _ = applyAll(s, vm.Access{Page: page})
			}
			s, _ = applyAll(s, vm.Allocate{})
			Expect(s.PageTable[8].Present).To(BeFalse())
			Expect(s.PageTable[8].Location).To(Equal(1))

			s, _ = applyAll(s, vm.Free{})
			Expect(s.Pages[9]).To(Equal(vm.PageUnallocated))

			next, out := vm.Apply(s, vm.Free{})

			Expect(out.Changes).To(ConsistOf(vm.Highlight{
				Kind:     vm.HighlightFree,
				Page:     8,
				Frame:    vm.NoLocation,
				SwapSlot: 1,
			}))
			Expect(next.SwapSlots[1].Status).To(Equal(vm.SlotFree))
			Expect(next.UsedFrames()).To(Equal(s.UsedFrames()))
			Expect(vm.CheckInvariants(next)).To(Succeed())
		})

		It("should reuse the lowest hole when allocating again", func() {
			s, _ = applyAll(s, repeat(vm.Allocate{}, 3)...)
			s, _ = applyAll(s, vm.Free{}, vm.Allocate{})

			Expect(s.AllocatedPages()).To(Equal([]int{0, 1, 2}))
			Expect(s.Frames[2].Page).To(Equal(2))
		})
	})

	Context("TLB replacement", func() {
		BeforeEach(func() {
			s, _ = applyAll(s, repeat(vm.Allocate{}, 5)...)
			for page := 0; page < vm.TLBCapacity; page++ {
				s, _ = applyAll(s, vm.Access{Page: page})
			}
		})

		It("should drop the oldest entry when full", func() {
			next, out := vm.Apply(s, vm.Access{Page: 4})

			Expect(next.TLB.List()).To(Equal([]vm.TLBEntry{
				{Page: 1, Frame: 1},
				{Page: 2, Frame: 2},
				{Page: 3, Frame: 3},
				{Page: 4, Frame: 4},
			}))
			Expect(out.Changes).To(ContainElement(vm.Highlight{
				Kind:     vm.HighlightTLBEvict,
				Page:     0,
				Frame:    0,
				SwapSlot: vm.NoLocation,
			}))
		})

		It("should not reorder entries on a hit", func() {
			next, _ := vm.Apply(s, vm.Access{Page: 0})
			next, _ = vm.Apply(next, vm.Access{Page: 4})

			_, found := next.TLB.Lookup(0)
			Expect(found).To(BeFalse())
		})

		It("should refresh the frame timestamp on a hit", func() {
			next, _ := vm.Apply(s, vm.Access{Page: 0})

			Expect(next.Frames[0].LastAccessed).To(Equal(next.Clock))
			Expect(next.Counters.TLBHits).To(Equal(uint64(1)))
		})
	})

	It("should not modify the input state", func() {
		s, _ = applyAll(s, repeat(vm.Allocate{}, 8)...)
		before := s

		vm.Apply(s, vm.Allocate{})
		vm.Apply(s, vm.Access{Page: 3})
		vm.Apply(s, vm.Free{})

		Expect(s).To(Equal(before))
	})
})
