package vm

import (
	"errors"
	"fmt"
)

// Failures reported by Apply. They never abort a transition; they are carried
// in Outcome.Err beside the unchanged (or rolled back) state.
var (
	ErrAddressSpaceExhausted = errors.New("address space exhausted")
	ErrOutOfPhysicalAndSwap  = errors.New("out of physical memory and swap")
	ErrSegmentationFault     = errors.New("segmentation fault")
	ErrNothingToFree         = errors.New("nothing to free")
	ErrInvalidCommand        = errors.New("invalid command")
)

// HighlightKind names what happened to an element of the memory system.
type HighlightKind string

// All highlight kinds.
const (
	HighlightAllocate  HighlightKind = "allocate"
	HighlightTLBHit    HighlightKind = "tlb-hit"
	HighlightTLBInsert HighlightKind = "tlb-insert"
	HighlightTLBEvict  HighlightKind = "tlb-evict"
	HighlightSwapOut   HighlightKind = "swap-out"
	HighlightSwapIn    HighlightKind = "swap-in"
	HighlightFree      HighlightKind = "free"
)

// A Highlight points at the elements touched by a transition. Fields that do
// not apply are NoPage or NoLocation.
type Highlight struct {
	Kind     HighlightKind `json:"kind"`
	Page     int           `json:"page"`
	Frame    int           `json:"frame"`
	SwapSlot int           `json:"swap_slot"`
}

// Outcome describes a transition: the command applied, a log line, the
// failure if any and the elements that changed.
type Outcome struct {
	Command Command     `json:"-"`
	Message string      `json:"message"`
	Err     error       `json:"-"`
	Changes []Highlight `json:"changes,omitempty"`
}

// Failed tells if the command was refused.
func (o Outcome) Failed() bool {
	return o.Err != nil
}

func failure(err error, format string, args ...any) Outcome {
	return Outcome{
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

func (o *Outcome) highlight(kind HighlightKind, page, frame, slot int) {
	o.Changes = append(o.Changes, Highlight{
		Kind:     kind,
		Page:     page,
		Frame:    frame,
		SwapSlot: slot,
	})
}
