// Package simulator owns the current state of a memory system and serializes
// the commands applied to it.
package simulator

import (
	"fmt"
	"sync"

	"github.com/sarchlab/memsim/sim/hooking"
	"github.com/sarchlab/memsim/vm"
)

// HookPosCommandApplied marks the point right after a command is applied. The
// hook item is a Record.
var HookPosCommandApplied = &hooking.HookPos{Name: "CommandApplied"}

// HookPosReset marks the point right before a reset is published. The hook
// item is the vm.State being discarded.
var HookPosReset = &hooking.HookPos{Name: "Reset"}

// A Record describes one applied command.
type Record struct {
	Seq     uint64
	Command vm.Command
	Outcome vm.Outcome
	State   vm.State
}

// Tags returns the command name, the outcome class and the kinds of the
// elements that changed, for example "cmd:access", "outcome:ok", "tlb-hit".
func (r Record) Tags() []string {
	tags := []string{
		"cmd:" + commandName(r.Command),
		"outcome:" + outcomeName(r.Outcome),
	}

	for _, h := range r.Outcome.Changes {
		tags = append(tags, string(h.Kind))
	}

	return tags
}

// Simulator holds the single current state of a memory system. Commands are
// applied one at a time; reading the state, computing the next one and
// publishing it is a critical section.
//
// Hooks are invoked inside the critical section, so they observe commands in
// order. A hook must not call back into the Simulator.
type Simulator struct {
	hooking.HookableBase

	name            string
	lock            sync.Mutex
	state           vm.State
	log             *rollingLog
	seq             uint64
	checkInvariants bool
}

// Name returns the name of the simulator.
func (s *Simulator) Name() string {
	return s.name
}

// Apply issues a command and returns what happened.
func (s *Simulator) Apply(cmd vm.Command) vm.Outcome {
	out, _ := s.Execute(cmd)
	return out
}

// Execute issues a command and returns what happened together with the state
// that the command produced.
func (s *Simulator) Execute(cmd vm.Command) (vm.Outcome, vm.State) {
	s.lock.Lock()
	defer s.lock.Unlock()

	next, out := vm.Apply(s.state, cmd)

	if s.checkInvariants {
		s.invariantsMustHold(next, cmd)
	}

	if _, isReset := cmd.(vm.Reset); isReset {
		s.InvokeHook(hooking.HookCtx{
			Domain: s,
			Pos:    HookPosReset,
			Item:   s.state,
		})
	}

	s.state = next
	s.seq++
	s.log.push(out.Message)

	s.InvokeHook(hooking.HookCtx{
		Domain: s,
		Pos:    HookPosCommandApplied,
		Item: Record{
			Seq:     s.seq,
			Command: cmd,
			Outcome: out,
			State:   next,
		},
	})

	return out, next
}

// Allocate allocates the next free virtual page.
func (s *Simulator) Allocate() vm.Outcome {
	return s.Apply(vm.Allocate{})
}

// Access touches a virtual page.
func (s *Simulator) Access(page int) vm.Outcome {
	return s.Apply(vm.Access{Page: page})
}

// Free releases the highest allocated virtual page.
func (s *Simulator) Free() vm.Outcome {
	return s.Apply(vm.Free{})
}

// Reset brings the memory system back to its initial state. The log and the
// sequence number are kept.
func (s *Simulator) Reset() vm.Outcome {
	return s.Apply(vm.Reset{})
}

// State returns the current state.
func (s *Simulator) State() vm.State {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.state
}

// Log returns the log lines, most recent first.
func (s *Simulator) Log() []string {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.log.lines()
}

// Seq returns the number of commands applied so far.
func (s *Simulator) Seq() uint64 {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.seq
}

func (s *Simulator) invariantsMustHold(next vm.State, cmd vm.Command) {
	err := vm.CheckInvariants(next)
	if err != nil {
		panic(fmt.Sprintf("%s: invariant violated after %v: %v",
			s.name, cmd, err))
	}
}

func commandName(cmd vm.Command) string {
	switch cmd.(type) {
	case vm.Allocate:
		return "allocate"
	case vm.Access:
		return "access"
	case vm.Free:
		return "free"
	case vm.Reset:
		return "reset"
	default:
		return "invalid"
	}
}

func outcomeName(out vm.Outcome) string {
	if out.Err == nil {
		return "ok"
	}

	return out.Err.Error()
}
