package simulator

import (
	"bytes"
	"regexp"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/memsim/vm"
)

var _ = Describe("Snapshot", func() {
	var sim *Simulator

	BeforeEach(func() {
		sim = MakeBuilder().WithLogCapacity(4).Build("Sim")

		for i := 0; i < 10; i++ {
			sim.Allocate()
		}
		sim.Access(0)
		sim.Access(9)
		sim.Access(9)
	})

	It("should restore a saved simulator", func() {
		buf := new(bytes.Buffer)
		Expect(sim.Save(buf, JSONCodec{})).To(Succeed())

		restored := MakeBuilder().WithLogCapacity(4).Build("Other")
		Expect(restored.Load(buf, JSONCodec{})).To(Succeed())

		Expect(restored.State()).To(Equal(sim.State()))
		Expect(restored.Seq()).To(Equal(sim.Seq()))
		Expect(restored.Log()).To(Equal(sim.Log()))
	})

	It("should continue identically after a restore", func() {
		buf := new(bytes.Buffer)
		Expect(sim.Save(buf, JSONCodec{})).To(Succeed())

		restored := MakeBuilder().Build("Other")
		Expect(restored.Load(buf, JSONCodec{})).To(Succeed())

		for _, s := range []*Simulator{sim, restored} {
			s.Allocate()
			s.Access(2)
			s.Free()
		}

		Expect(restored.State()).To(Equal(sim.State()))
	})

	It("should cut the log to the capacity", func() {
		snapshot := sim.Snapshot()
		snapshot.Log = append(snapshot.Log, "a", "b", "c")

		restored := MakeBuilder().WithLogCapacity(2).Build("Other")
		Expect(restored.Restore(snapshot)).To(Succeed())

		Expect(restored.Log()).To(Equal(snapshot.Log[:2]))
	})

	It("should reject a broken state", func() {
		snapshot := sim.Snapshot()
		snapshot.State.Frames[0].Page = 30

		restored := MakeBuilder().Build("Other")

		Expect(restored.Restore(snapshot)).
			To(MatchError(ContainSubstring("invalid snapshot")))
		Expect(restored.State()).To(Equal(vm.InitialState()))
	})

	It("should reject unknown fields", func() {
		restored := MakeBuilder().Build("Other")

		err := restored.Load(strings.NewReader(`{"bogus": 1}`), JSONCodec{})

		Expect(err).To(HaveOccurred())
	})

	It("should reject a TLB that does not fit", func() {
		buf := new(bytes.Buffer)
		Expect(sim.Save(buf, JSONCodec{})).To(Succeed())

		entries := `[{"page":0,"frame":0},{"page":1,"frame":1},` +
			`{"page":2,"frame":2},{"page":3,"frame":3},{"page":4,"frame":4}]`
		tooMany := tlbPattern.ReplaceAllString(buf.String(),
			`"tlb": `+entries)

		restored := MakeBuilder().Build("Other")
		err := restored.Load(strings.NewReader(tooMany), JSONCodec{})

		Expect(err).To(MatchError(ContainSubstring("capacity is 4")))
		Expect(restored.State()).To(Equal(vm.InitialState()))
	})
})

var tlbPattern = regexp.MustCompile(`"tlb": \[[^\]]*\]`)
