package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sarchlab/memsim/vm"
)

// A scenario issues commands on a fresh simulator and checks the result of
// the last one.
type scenario struct {
	name     string
	commands []vm.Command
	check    func(s vm.State, last vm.Outcome) error
}

func allocations(n int) []vm.Command {
	commands := make([]vm.Command, n)
	for i := range commands {
		commands[i] = vm.Allocate{}
	}

	return commands
}

func expectCount(name string, got, want uint64) error {
	if got != want {
		return fmt.Errorf("%s is %d, want %d", name, got, want)
	}

	return nil
}

var scenarios = []scenario{
	{
		name:     "fill physical memory",
		commands: allocations(8),
		check: func(s vm.State, _ vm.Outcome) error {
			var errs []error

			for page := 0; page < vm.NumFrames; page++ {
				frame, resident := s.FrameOf(page)
				if !resident || frame != page {
					errs = append(errs,
						fmt.Errorf("page %d is not in frame %d", page, page))
				}
			}

			errs = append(errs,
				expectCount("page faults", s.Counters.PageFaults, 0),
				expectCount("swap outs", s.Counters.SwapOuts, 0))

			return errors.Join(errs...)
		},
	},
	{
		name:     "allocate with full physical memory",
		commands: allocations(9),
		check: func(s vm.State, _ vm.Outcome) error {
			var errs []error

			if frame, resident := s.FrameOf(8); !resident || frame != 0 {
				errs = append(errs, fmt.Errorf("page 8 is not in frame 0"))
			}

			pte := s.PageTable[0]
			if pte.Present || pte.Location != 0 {
				errs = append(errs, fmt.Errorf("page 0 is not in swap slot 0"))
			}

			errs = append(errs,
				expectCount("page faults", s.Counters.PageFaults, 1),
				expectCount("swap outs", s.Counters.SwapOuts, 1))

			return errors.Join(errs...)
		},
	},
	{
		name:     "access a swapped page",
		commands: append(allocations(9), vm.Access{Page: 0}),
		check: func(s vm.State, _ vm.Outcome) error {
			var errs []error

			if !s.PageTable[0].Present {
				errs = append(errs, fmt.Errorf("page 0 is not resident"))
			}

			if s.SwapSlots[0].Status != vm.SlotFree {
				errs = append(errs, fmt.Errorf("swap slot 0 is not free"))
			}

			errs = append(errs,
				expectCount("TLB misses", s.Counters.TLBMisses, 1),
				expectCount("page faults", s.Counters.PageFaults, 2),
				expectCount("swap ins", s.Counters.SwapIns, 1),
				expectCount("swap outs", s.Counters.SwapOuts, 2))

			return errors.Join(errs...)
		},
	},
	{
		name:     "access an unallocated page",
		commands: []vm.Command{vm.Access{Page: 5}},
		check: func(s vm.State, last vm.Outcome) error {
			if !errors.Is(last.Err, vm.ErrSegmentationFault) {
				return fmt.Errorf("got %v, want a segmentation fault", last.Err)
			}

			if s != vm.InitialState() {
				return fmt.Errorf("the state changed")
			}

			return nil
		},
	},
	{
		name:     "free with nothing allocated",
		commands: []vm.Command{vm.Free{}},
		check: func(s vm.State, last vm.Outcome) error {
			if !errors.Is(last.Err, vm.ErrNothingToFree) {
				return fmt.Errorf("got %v, want nothing to free", last.Err)
			}

			if s != vm.InitialState() {
				return fmt.Errorf("the state changed")
			}

			return nil
		},
	},
}

// runScenarios plays every scenario and reports them into w. It returns an
// error if any scenario fails.
func runScenarios(c config, w io.Writer) error {
	failed := 0

	for i, sc := range scenarios {
		s := newSession(c, fmt.Sprintf("scenario-%d", i+1), nil)

		var last vm.Outcome
		for _, cmd := range sc.commands {
			last = s.sim.Apply(cmd)
		}

		err := sc.check(s.sim.State(), last)

		closeErr := s.Close()
		if closeErr != nil {
			return closeErr
		}

		if err != nil {
			failed++
			fmt.Fprintf(w, "FAIL scenario %d, %s: %v\n", i+1, sc.name, err)

			continue
		}

		fmt.Fprintf(w, "ok   scenario %d, %s: %s\n", i+1, sc.name, last.Message)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d scenarios failed", failed, len(scenarios))
	}

	return nil
}

var scenarioCmd = &cobra.Command{
	Use:   "scenario",
	Short: "Run the reference scenarios and check their outcomes.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runScenarios(cfg, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(scenarioCmd)
}
