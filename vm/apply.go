package vm

import "fmt"

// Apply computes the state that follows s when cmd is issued. Apply is pure:
// s is never modified and the returned state always satisfies the invariants
// checked by CheckInvariants. Refused commands are reported through
// Outcome.Err and leave the state unchanged, except for the rollback of a
// failed Allocate.
func Apply(s State, cmd Command) (State, Outcome) {
	var (
		next State
		out  Outcome
	)

	switch c := cmd.(type) {
	case Allocate:
		next, out = allocate(s)
	case Access:
		next, out = access(s, c.Page)
	case Free:
		next, out = free(s)
	case Reset:
		next = InitialState()
		out = Outcome{Message: "Memory system reset"}
	default:
		next = s
		out = failure(ErrInvalidCommand, "Invalid command %v", cmd)
	}

	next.Pressure = PressureOf(next)
	out.Command = cmd

	return next, out
}

func allocate(prev State) (State, Outcome) {
	s := prev

	page, ok := s.firstUnallocatedPage()
	if !ok {
		return prev, failure(ErrAddressSpaceExhausted,
			"Allocation failed: all %d virtual pages are allocated", NumPages)
	}

	s.Pages[page] = PageAllocated

	if frame, ok := s.firstFreeFrame(); ok {
		s.mapPage(page, frame)

		out := Outcome{Message: fmt.Sprintf(
			"Allocated virtual page %d in physical frame %d", page, frame)}
		out.highlight(HighlightAllocate, page, frame, NoLocation)

		return s, out
	}

	s.Counters.PageFaults++

	frame, _ := FindLRUVictim(s)

	slot, ok := s.firstFreeSwapSlot()
	if !ok {
		s.Pages[page] = PageUnallocated
		return s, failure(ErrOutOfPhysicalAndSwap,
			"Page fault allocating virtual page %d: "+
				"no free frame and no free swap slot", page)
	}

	victim := s.swapOut(frame, slot)
	s.mapPage(page, frame)

	out := Outcome{Message: fmt.Sprintf(
		"Page fault: swapped out virtual page %d from frame %d to swap slot %d, "+
			"allocated virtual page %d in frame %d",
		victim, frame, slot, page, frame)}
	out.highlight(HighlightSwapOut, victim, frame, slot)
	out.highlight(HighlightAllocate, page, frame, NoLocation)

	return s, out
}

func access(prev State, page int) (State, Outcome) {
	if page < 0 || page >= NumPages || !prev.PageTable[page].Valid {
		return prev, failure(ErrSegmentationFault,
			"Segmentation fault: virtual page %d is not allocated", page)
	}

	s := prev

	if frame, hit := s.TLB.Lookup(page); hit {
		s.Counters.TLBHits++
		s.touch(frame)

		out := Outcome{Message: fmt.Sprintf(
			"TLB hit: virtual page %d is in frame %d", page, frame)}
		out.highlight(HighlightTLBHit, page, frame, NoLocation)

		return s, out
	}

	s.Counters.TLBMisses++

	pte := s.PageTable[page]
	if pte.Present {
		return accessResident(s, page, pte.Location)
	}

	return accessSwapped(prev, s, page, pte.Location)
}

func accessResident(s State, page, frame int) (State, Outcome) {
	s.touch(frame)

	next, evicted, didEvict := s.TLB.Insert(page, frame)
	s.TLB = next

	out := Outcome{Message: fmt.Sprintf(
		"TLB miss: virtual page %d is in frame %d, TLB updated", page, frame)}

	if didEvict {
		out.Message += fmt.Sprintf(
			" (dropped entry of virtual page %d)", evicted.Page)
		out.highlight(HighlightTLBEvict, evicted.Page, evicted.Frame, NoLocation)
	}

	out.highlight(HighlightTLBInsert, page, frame, NoLocation)

	return s, out
}

// accessSwapped handles a major fault. prev is returned untouched when the
// page cannot be brought back.
func accessSwapped(prev, s State, page, fromSlot int) (State, Outcome) {
	s.Counters.PageFaults++
	s.Counters.SwapIns++

	out := Outcome{}

	frame, ok := s.firstFreeFrame()
	if !ok {
		frame, _ = FindLRUVictim(s)

		slot, ok := s.firstFreeSwapSlot()
		if !ok {
			return prev, failure(ErrOutOfPhysicalAndSwap,
				"Page fault on virtual page %d: "+
					"no free frame and no free swap slot for a victim", page)
		}

		victim := s.swapOut(frame, slot)
		out.Message = fmt.Sprintf(
			"swapped out virtual page %d from frame %d to swap slot %d, ",
			victim, frame, slot)
		out.highlight(HighlightSwapOut, victim, frame, slot)
	}

	s.SwapSlots[fromSlot] = freeSwapSlot()
	s.mapPage(page, frame)

	out.Message = fmt.Sprintf(
		"Page fault: %sswapped in virtual page %d from swap slot %d to frame %d",
		out.Message, page, fromSlot, frame)
	out.highlight(HighlightSwapIn, page, frame, fromSlot)

	return s, out
}

func free(prev State) (State, Outcome) {
	page, ok := prev.lastAllocatedPage()
	if !ok {
		return prev, failure(ErrNothingToFree,
			"Nothing to free: no virtual page is allocated")
	}

	s := prev
	pte := s.PageTable[page]

	out := Outcome{}

	if pte.Present {
		s.Frames[pte.Location] = freeFrame()
		out.Message = fmt.Sprintf(
			"Freed virtual page %d and physical frame %d", page, pte.Location)
		out.highlight(HighlightFree, page, pte.Location, NoLocation)
	} else {
		s.SwapSlots[pte.Location] = freeSwapSlot()
		out.Message = fmt.Sprintf(
			"Freed virtual page %d and swap slot %d", page, pte.Location)
		out.highlight(HighlightFree, page, NoLocation, pte.Location)
	}

	s.Pages[page] = PageUnallocated
	s.PageTable[page] = noEntry()
	s.TLB = s.TLB.Remove(page)

	return s, out
}
