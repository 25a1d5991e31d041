package main

import (
	"fmt"
	"io"
	"log"
	"strconv"
	"text/tabwriter"

	"github.com/sarchlab/memsim/datarecording"
	"github.com/sarchlab/memsim/sim/hooking"
	"github.com/sarchlab/memsim/simulator"
	"github.com/sarchlab/memsim/vm"
)

// A session is a simulator wired with the hooks that the configuration asks
// for.
type session struct {
	sim      *simulator.Simulator
	tags     *hooking.TagCountTracer
	recorder datarecording.DataRecorder
	commands *datarecording.CommandRecorder
}

// newSession builds a simulator. Every applied command is logged into out
// when out is not nil.
func newSession(c config, name string, out io.Writer) *session {
	s := &session{
		tags: hooking.NewTagCountTracer(),
	}

	builder := simulator.MakeBuilder().
		WithLogCapacity(c.LogCapacity).
		WithInvariantChecks(c.CheckInvariants).
		WithHook(s.tags)

	if out != nil {
		builder = builder.WithHook(simulator.NewLogHook(log.New(out, "", 0)))
	}

	if c.Record != "" {
		s.recorder = datarecording.Open(c.Record)
		s.commands = datarecording.NewCommandRecorder(s.recorder)
		builder = builder.WithHook(s.commands)
	}

	s.sim = builder.Build(name)

	return s
}

// Close flushes the recorder, if any. Closing twice does nothing.
func (s *session) Close() error {
	if s.recorder == nil {
		return nil
	}

	recorder := s.recorder
	s.recorder = nil

	return recorder.Close()
}

func (s *session) applyAll(commands []vm.Command) {
	for _, cmd := range commands {
		s.sim.Apply(cmd)
	}
}

// printState writes the counters, the frames, the swap area and the TLB as
// tables.
func printState(w io.Writer, state vm.State) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	c := state.Counters
	fmt.Fprintf(tw, "Pressure\t%s\n", state.Pressure)
	fmt.Fprintf(tw, "Pages allocated\t%d/%d\n",
		len(state.AllocatedPages()), vm.NumPages)
	fmt.Fprintf(tw, "Frames used\t%d/%d\n", state.UsedFrames(), vm.NumFrames)
	fmt.Fprintf(tw, "Swap slots used\t%d/%d\n",
		state.UsedSwapSlots(), vm.NumSwapSlots)
	fmt.Fprintf(tw, "Page faults\t%d\n", c.PageFaults)
	fmt.Fprintf(tw, "TLB hits/misses\t%d/%d\n", c.TLBHits, c.TLBMisses)
	fmt.Fprintf(tw, "Swap outs/ins\t%d/%d\n", c.SwapOuts, c.SwapIns)
	fmt.Fprintln(tw)

	fmt.Fprintln(tw, "Frame\tPage\tLast accessed")
	for i, f := range state.Frames {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", i,
			pageOrDash(f.Status, f.Page), accessOrDash(f))
	}
	fmt.Fprintln(tw)

	fmt.Fprintln(tw, "Swap slot\tPage")
	for i, slot := range state.SwapSlots {
		fmt.Fprintf(tw, "%d\t%s\n", i, pageOrDash(slot.Status, slot.Page))
	}
	fmt.Fprintln(tw)

	fmt.Fprintln(tw, "TLB\tPage\tFrame")
	for i, e := range state.TLB.List() {
		fmt.Fprintf(tw, "%d\t%d\t%d\n", i, e.Page, e.Frame)
	}

	return tw.Flush()
}

func pageOrDash(status vm.SlotStatus, page int) string {
	if status != vm.SlotUsed {
		return "-"
	}

	return strconv.Itoa(page)
}

func accessOrDash(f vm.Frame) string {
	if f.Status != vm.SlotUsed {
		return "-"
	}

	return strconv.FormatUint(f.LastAccessed, 10)
}
