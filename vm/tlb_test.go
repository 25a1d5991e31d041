package vm_test

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/memsim/vm"
)

var _ = Describe("TLB", func() {
	var tlb vm.TLB

	BeforeEach(func() {
		tlb = vm.InitialState().TLB
	})

	It("should miss when empty", func() {
		_, found := tlb.Lookup(0)
		Expect(found).To(BeFalse())
	})

	It("should evict in insertion order", func() {
		var (
			evicted  vm.TLBEntry
			didEvict bool
		)

		for page := 0; page < vm.TLBCapacity; page++ {
			tlb, _, didEvict = tlb.Insert(page, page+10)
			Expect(didEvict).To(BeFalse())
		}

		tlb, evicted, didEvict = tlb.Insert(7, 17)

		Expect(didEvict).To(BeTrue())
		Expect(evicted).To(Equal(vm.TLBEntry{Page: 0, Frame: 10}))
		Expect(tlb.Len).To(Equal(vm.TLBCapacity))

		tlb, evicted, _ = tlb.Insert(8, 18)
		Expect(evicted.Page).To(Equal(1))
	})

	It("should keep order when removing from the middle", func() {
		tlb, _, _ = tlb.Insert(1, 1)
		tlb, _, _ = tlb.Insert(2, 2)
		tlb, _, _ = tlb.Insert(3, 3)

		tlb = tlb.Remove(2)

		Expect(tlb.List()).To(Equal([]vm.TLBEntry{
			{Page: 1, Frame: 1},
			{Page: 3, Frame: 3},
		}))
		Expect(tlb.Entries[2].Page).To(Equal(vm.NoPage))
	})

	It("should ignore removal of an unknown page", func() {
		tlb, _, _ = tlb.Insert(1, 1)

		Expect(tlb.Remove(9)).To(Equal(tlb))
	})

	It("should update the frame of a cached page in place", func() {
		tlb, _, _ = tlb.Insert(1, 1)
		tlb, _, _ = tlb.Insert(2, 2)

		var didEvict bool
		tlb, _, didEvict = tlb.Insert(1, 5)

		Expect(didEvict).To(BeFalse())
		Expect(tlb.List()).To(Equal([]vm.TLBEntry{
			{Page: 1, Frame: 5},
			{Page: 2, Frame: 2},
		}))
	})

	It("should not share storage between copies", func() {
		tlb, _, _ = tlb.Insert(1, 1)
		copied := tlb

		tlb = tlb.Remove(1)

		_, found := copied.Lookup(1)
		Expect(found).To(BeTrue())
	})

	It("should encode only live entries", func() {
		tlb, _, _ = tlb.Insert(4, 2)

		data, err := json.Marshal(tlb)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal(`[{"page":4,"frame":2}]`))

		var decoded vm.TLB
		Expect(json.Unmarshal(data, &decoded)).To(Succeed())
		Expect(decoded).To(Equal(tlb))
	})

	It("should refuse to decode more entries than it holds", func() {
		data := `[{"page":0,"frame":0},{"page":1,"frame":1},` +
			`{"page":2,"frame":2},{"page":3,"frame":3},{"page":4,"frame":4}]`

		var decoded vm.TLB
		err := json.Unmarshal([]byte(data), &decoded)

		Expect(err).To(MatchError(ContainSubstring("capacity is 4")))
	})

	It("should refuse to decode a page twice", func() {
		data := `[{"page":3,"frame":0},{"page":3,"frame":1}]`

		var decoded vm.TLB
		err := json.Unmarshal([]byte(data), &decoded)

		Expect(err).To(MatchError(ContainSubstring("virtual page 3 twice")))
	})
})
