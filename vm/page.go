// Package vm models a small paged virtual-memory system: a fixed address
// space of virtual pages, a handful of physical frames, a swap area and a
// fully associative TLB. The whole system is a single value-typed State that
// is advanced by Apply.
package vm

import (
	"fmt"
	"strings"
)

// Geometry of the simulated memory system.
const (
	NumPages     = 32
	NumFrames    = 8
	NumSwapSlots = 12
	TLBCapacity  = 4
)

// NoPage marks a frame, swap slot or TLB entry that does not hold a page.
const NoPage = -1

// NoLocation marks a page-table entry that does not point anywhere.
const NoLocation = -1

// PageStatus tells if a virtual page is part of the address space.
type PageStatus int

// All page statuses.
const (
	PageUnallocated PageStatus = iota
	PageAllocated
)

func (s PageStatus) String() string {
	switch s {
	case PageUnallocated:
		return "unallocated"
	case PageAllocated:
		return "allocated"
	default:
		return fmt.Sprintf("PageStatus(%d)", int(s))
	}
}

// MarshalText encodes the status by name.
func (s PageStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status name.
func (s *PageStatus) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "unallocated":
		*s = PageUnallocated
	case "allocated":
		*s = PageAllocated
	default:
		return fmt.Errorf("unknown page status %q", string(text))
	}

	return nil
}

// SlotStatus tells if a physical frame or a swap slot holds a page.
type SlotStatus int

// All slot statuses.
const (
	SlotFree SlotStatus = iota
	SlotUsed
)

func (s SlotStatus) String() string {
	switch s {
	case SlotFree:
		return "free"
	case SlotUsed:
		return "used"
	default:
		return fmt.Sprintf("SlotStatus(%d)", int(s))
	}
}

// MarshalText encodes the status by name.
func (s SlotStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status name.
func (s *SlotStatus) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "free":
		*s = SlotFree
	case "used":
		*s = SlotUsed
	default:
		return fmt.Errorf("unknown slot status %q", string(text))
	}

	return nil
}

// A Frame is a physical frame. LastAccessed is a logical timestamp taken from
// State.Clock and orders frames for LRU eviction.
type Frame struct {
	Status       SlotStatus `json:"status"`
	Page         int        `json:"page"`
	LastAccessed uint64     `json:"last_accessed"`
}

// A SwapSlot holds one page that has been swapped out.
type SwapSlot struct {
	Status SlotStatus `json:"status"`
	Page   int        `json:"page"`
}

// A PageTableEntry translates a virtual page. When Present is true, Location
// is a frame index; otherwise it is a swap-slot index. Entries with Valid set
// to false do not exist.
type PageTableEntry struct {
	Valid    bool `json:"valid"`
	Location int  `json:"location"`
	Present  bool `json:"present"`
	Dirty    bool `json:"dirty"`
}

// Counters are the monotonic event counters of the memory system. Only Reset
// brings them back to zero.
type Counters struct {
	PageFaults uint64 `json:"page_faults"`
	TLBHits    uint64 `json:"tlb_hits"`
	TLBMisses  uint64 `json:"tlb_misses"`
	SwapOuts   uint64 `json:"swap_outs"`
	SwapIns    uint64 `json:"swap_ins"`
}

func freeFrame() Frame {
	return Frame{Status: SlotFree, Page: NoPage}
}

func freeSwapSlot() SwapSlot {
	return SwapSlot{Status: SlotFree, Page: NoPage}
}

func noEntry() PageTableEntry {
	return PageTableEntry{Location: NoLocation}
}
