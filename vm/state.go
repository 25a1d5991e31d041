package vm

// State is a complete snapshot of the memory system. It only holds arrays and
// plain values, so assigning a State copies it and two States can be compared
// with ==.
type State struct {
	Pages     [NumPages]PageStatus     `json:"pages"`
	Frames    [NumFrames]Frame         `json:"frames"`
	SwapSlots [NumSwapSlots]SwapSlot   `json:"swap_slots"`
	PageTable [NumPages]PageTableEntry `json:"page_table"`
	TLB       TLB                      `json:"tlb"`
	Counters  Counters                 `json:"counters"`
	Clock     uint64                   `json:"clock"`
	Pressure  PressureLevel            `json:"pressure"`
}

// InitialState returns the state after a reset: every page unallocated, every
// frame and swap slot free, an empty TLB and zeroed counters.
func InitialState() State {
	s := State{}

	for i := range s.Frames {
		s.Frames[i] = freeFrame()
	}

	for i := range s.SwapSlots {
		s.SwapSlots[i] = freeSwapSlot()
	}

	for i := range s.PageTable {
		s.PageTable[i] = noEntry()
	}

	s.TLB = emptyTLB()
	s.Pressure = PressureOf(s)

	return s
}

// AllocatedPages lists the allocated virtual pages in ascending order.
func (s State) AllocatedPages() []int {
	pages := []int{}

	for i, status := range s.Pages {
		if status == PageAllocated {
			pages = append(pages, i)
		}
	}

	return pages
}

// UsedFrames counts the physical frames that hold a page.
func (s State) UsedFrames() int {
	n := 0

	for _, f := range s.Frames {
		if f.Status == SlotUsed {
			n++
		}
	}

	return n
}

// UsedSwapSlots counts the swap slots that hold a page.
func (s State) UsedSwapSlots() int {
	n := 0

	for _, slot := range s.SwapSlots {
		if slot.Status == SlotUsed {
			n++
		}
	}

	return n
}

// FrameOf returns the frame that holds the page.
func (s State) FrameOf(page int) (frame int, resident bool) {
	if page < 0 || page >= NumPages {
		return NoLocation, false
	}

	pte := s.PageTable[page]
	if !pte.Valid || !pte.Present {
		return NoLocation, false
	}

	return pte.Location, true
}

func (s *State) firstUnallocatedPage() (int, bool) {
	for i, status := range s.Pages {
		if status == PageUnallocated {
			return i, true
		}
	}

	return NoPage, false
}

func (s *State) lastAllocatedPage() (int, bool) {
	for i := NumPages - 1; i >= 0; i-- {
		if s.Pages[i] == PageAllocated {
			return i, true
		}
	}

	return NoPage, false
}

func (s *State) firstFreeFrame() (int, bool) {
	for i, f := range s.Frames {
		if f.Status == SlotFree {
			return i, true
		}
	}

	return NoLocation, false
}

func (s *State) firstFreeSwapSlot() (int, bool) {
	for i, slot := range s.SwapSlots {
		if slot.Status == SlotFree {
			return i, true
		}
	}

	return NoLocation, false
}

func (s *State) tick() uint64 {
	s.Clock++
	return s.Clock
}

// mapPage places the page into the frame and makes it present.
func (s *State) mapPage(page, frame int) {
	s.Frames[frame] = Frame{
		Status:       SlotUsed,
		Page:         page,
		LastAccessed: s.tick(),
	}
	s.PageTable[page] = PageTableEntry{
		Valid:    true,
		Location: frame,
		Present:  true,
		Dirty:    s.PageTable[page].Dirty,
	}
}

func (s *State) touch(frame int) {
	s.Frames[frame].LastAccessed = s.tick()
}

// swapOut moves the page held by the frame into the swap slot and returns the
// page moved.
func (s *State) swapOut(frame, slot int) int {
	victim := s.Frames[frame].Page

	s.SwapSlots[slot] = SwapSlot{Status: SlotUsed, Page: victim}
	s.PageTable[victim] = PageTableEntry{
		Valid:    true,
		Location: slot,
		Present:  false,
		Dirty:    s.PageTable[victim].Dirty,
	}
	s.Frames[frame] = freeFrame()
	s.TLB = s.TLB.Remove(victim)
	s.Counters.SwapOuts++

	return victim
}
