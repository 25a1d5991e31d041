package simulator

import (
	"github.com/sarchlab/memsim/sim/hooking"
	"github.com/sarchlab/memsim/vm"
)

// A Builder can build Simulators.
type Builder struct {
	logCapacity     int
	checkInvariants bool
	hooks           []hooking.Hook
}

// MakeBuilder returns a Builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		logCapacity: 64,
	}
}

// WithLogCapacity sets how many log lines the simulator keeps.
func (b Builder) WithLogCapacity(n int) Builder {
	b.logCapacity = n
	return b
}

// WithInvariantChecks makes the simulator verify the state after every
// command and panic if the state is broken.
func (b Builder) WithInvariantChecks(check bool) Builder {
	b.checkInvariants = check
	return b
}

// WithHook registers a hook on the simulator being built.
func (b Builder) WithHook(hook hooking.Hook) Builder {
	b.hooks = append(b.hooks[:len(b.hooks):len(b.hooks)], hook)
	return b
}

// Build creates a new Simulator in the initial state.
func (b Builder) Build(name string) *Simulator {
	s := &Simulator{
		name:            name,
		state:           vm.InitialState(),
		log:             newRollingLog(b.logCapacity),
		checkInvariants: b.checkInvariants,
	}

	for _, h := range b.hooks {
		s.AcceptHook(h)
	}

	return s
}
