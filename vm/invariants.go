package vm

import (
	"errors"
	"fmt"
)

// CheckInvariants verifies the structural invariants of a state:
//
//   - allocated pages, and only them, have a page-table entry;
//   - used frames and present entries are in bijection;
//   - used swap slots and non-present entries are in bijection;
//   - no page is both in a frame and in a swap slot;
//   - TLB entries only cache present pages, with their current frame;
//   - the TLB holds at most TLBCapacity distinct pages.
//
// All the violations found are joined in the returned error.
func CheckInvariants(s State) error {
	c := &invariantChecker{state: s}

	c.checkPageTable()
	c.checkFrames()
	c.checkSwapSlots()
	c.checkTLB()
	c.checkClock()

	return errors.Join(c.errs...)
}

type invariantChecker struct {
	state State
	errs  []error
}

func (c *invariantChecker) failf(format string, args ...any) {
	c.errs = append(c.errs, fmt.Errorf(format, args...))
}

func (c *invariantChecker) checkPageTable() {
	s := c.state

	for page, status := range s.Pages {
		pte := s.PageTable[page]

		switch {
		case status == PageAllocated && !pte.Valid:
			c.failf("allocated page %d has no page-table entry", page)
		case status != PageAllocated && pte.Valid:
			c.failf("unallocated page %d has a page-table entry", page)
		case !pte.Valid:
			continue
		case pte.Present:
			c.checkPresentEntry(page, pte)
		default:
			c.checkSwappedEntry(page, pte)
		}
	}
}

func (c *invariantChecker) checkPresentEntry(page int, pte PageTableEntry) {
	if pte.Location < 0 || pte.Location >= NumFrames {
		c.failf("page %d points to invalid frame %d", page, pte.Location)
		return
	}

	f := c.state.Frames[pte.Location]
	if f.Status != SlotUsed || f.Page != page {
		c.failf("page %d is present in frame %d, but the frame holds %d",
			page, pte.Location, f.Page)
	}
}

func (c *invariantChecker) checkSwappedEntry(page int, pte PageTableEntry) {
	if pte.Location < 0 || pte.Location >= NumSwapSlots {
		c.failf("page %d points to invalid swap slot %d", page, pte.Location)
		return
	}

	slot := c.state.SwapSlots[pte.Location]
	if slot.Status != SlotUsed || slot.Page != page {
		c.failf("page %d is swapped to slot %d, but the slot holds %d",
			page, pte.Location, slot.Page)
	}
}

func (c *invariantChecker) checkFrames() {
	s := c.state

	for i, f := range s.Frames {
		if f.Status != SlotUsed {
			if f.Page != NoPage {
				c.failf("free frame %d holds page %d", i, f.Page)
			}

			continue
		}

		if f.Page < 0 || f.Page >= NumPages {
			c.failf("frame %d holds invalid page %d", i, f.Page)
			continue
		}

		pte := s.PageTable[f.Page]
		if !pte.Valid || !pte.Present || pte.Location != i {
			c.failf("frame %d holds page %d, which is not mapped to it",
				i, f.Page)
		}
	}
}

func (c *invariantChecker) checkSwapSlots() {
	s := c.state

	for i, slot := range s.SwapSlots {
		if slot.Status != SlotUsed {
			if slot.Page != NoPage {
				c.failf("free swap slot %d holds page %d", i, slot.Page)
			}

			continue
		}

		if slot.Page < 0 || slot.Page >= NumPages {
			c.failf("swap slot %d holds invalid page %d", i, slot.Page)
			continue
		}

		pte := s.PageTable[slot.Page]
		if !pte.Valid || pte.Present || pte.Location != i {
			c.failf("swap slot %d holds page %d, which is not swapped to it",
				i, slot.Page)
		}

		if _, resident := s.FrameOf(slot.Page); resident {
			c.failf("page %d is both in a frame and in swap slot %d",
				slot.Page, i)
		}
	}
}

func (c *invariantChecker) checkTLB() {
	t := c.state.TLB

	if t.Len < 0 || t.Len > TLBCapacity {
		c.failf("TLB length %d out of range", t.Len)
		return
	}

	seen := make(map[int]bool, t.Len)

	for _, e := range t.List() {
		if seen[e.Page] {
			c.failf("TLB caches page %d twice", e.Page)
		}

		seen[e.Page] = true

		frame, resident := c.state.FrameOf(e.Page)
		if !resident {
			c.failf("TLB caches page %d, which is not present", e.Page)
			continue
		}

		if frame != e.Frame {
			c.failf("TLB maps page %d to frame %d, page table says %d",
				e.Page, e.Frame, frame)
		}
	}
}

func (c *invariantChecker) checkClock() {
	s := c.state

	for i, f := range s.Frames {
		if f.Status == SlotUsed && f.LastAccessed > s.Clock {
			c.failf("frame %d was accessed at %d, after the clock %d",
				i, f.LastAccessed, s.Clock)
		}
	}
}
