package simulator

import (
	"log"

	"github.com/sarchlab/memsim/sim/hooking"
	"github.com/sarchlab/memsim/vm"
)

// LogHook writes the log line of every applied command into a logger, and
// what a reset discards.
type LogHook struct {
	*log.Logger
}

// NewLogHook returns a LogHook that writes into the logger.
func NewLogHook(logger *log.Logger) *LogHook {
	h := new(LogHook)
	h.Logger = logger

	return h
}

// Func writes the record information into the logger.
func (h *LogHook) Func(ctx hooking.HookCtx) {
	if ctx.Pos == HookPosReset {
		h.logReset(ctx)
		return
	}

	if ctx.Pos != HookPosCommandApplied {
		return
	}

	rec, ok := ctx.Item.(Record)
	if !ok {
		return
	}

	h.Printf("%s #%d %v [%s]: %s",
		ctx.Domain.Name(), rec.Seq, rec.Command, rec.State.Pressure,
		rec.Outcome.Message)
}

func (h *LogHook) logReset(ctx hooking.HookCtx) {
	state, ok := ctx.Item.(vm.State)
	if !ok {
		return
	}

	h.Printf("%s reset: discarding %d pages, %d in swap",
		ctx.Domain.Name(), len(state.AllocatedPages()), state.UsedSwapSlots())
}
