package vm

import (
	"encoding/json"
	"fmt"
)

// A TLBEntry caches the frame of a resident virtual page.
type TLBEntry struct {
	Page  int `json:"page"`
	Frame int `json:"frame"`
}

// A TLB is a fully associative translation cache with FIFO replacement.
// Entries[0] is the oldest entry. Only the first Len entries are live.
//
// TLB is a value type. All the methods return a new TLB rather than
// modifying the receiver.
type TLB struct {
	Entries [TLBCapacity]TLBEntry
	Len     int
}

func emptyTLB() TLB {
	t := TLB{}
	for i := range t.Entries {
		t.Entries[i] = TLBEntry{Page: NoPage, Frame: NoLocation}
	}

	return t
}

// Lookup returns the frame cached for the page.
func (t TLB) Lookup(page int) (frame int, found bool) {
	for i := 0; i < t.Len; i++ {
		if t.Entries[i].Page == page {
			return t.Entries[i].Frame, true
		}
	}

	return NoLocation, false
}

// Insert adds a translation at the young end of the TLB. If the TLB is full,
// the oldest entry is dropped and returned.
func (t TLB) Insert(page, frame int) (next TLB, evicted TLBEntry, didEvict bool) {
	for i := 0; i < t.Len; i++ {
		if t.Entries[i].Page == page {
			t.Entries[i].Frame = frame
			return t, TLBEntry{}, false
		}
	}

	if t.Len == TLBCapacity {
		evicted = t.Entries[0]
		didEvict = true
		t = t.removeAt(0)
	}

	t.Entries[t.Len] = TLBEntry{Page: page, Frame: frame}
	t.Len++

	return t, evicted, didEvict
}

// Remove drops the entry of the page, if there is one. The relative order of
// the remaining entries is kept.
func (t TLB) Remove(page int) TLB {
	for i := 0; i < t.Len; i++ {
		if t.Entries[i].Page == page {
			return t.removeAt(i)
		}
	}

	return t
}

func (t TLB) removeAt(i int) TLB {
	copy(t.Entries[i:t.Len], t.Entries[i+1:t.Len])
	t.Len--
	t.Entries[t.Len] = TLBEntry{Page: NoPage, Frame: NoLocation}

	return t
}

// List returns the live entries, oldest first.
func (t TLB) List() []TLBEntry {
	entries := make([]TLBEntry, t.Len)
	copy(entries, t.Entries[:t.Len])

	return entries
}

// MarshalJSON encodes the live entries as a list.
func (t TLB) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.List())
}

// UnmarshalJSON decodes a list of entries, oldest first. The list must fit in
// the TLB and name each page at most once.
func (t *TLB) UnmarshalJSON(data []byte) error {
	var entries []TLBEntry

	err := json.Unmarshal(data, &entries)
	if err != nil {
		return err
	}

	if len(entries) > TLBCapacity {
		return fmt.Errorf("tlb holds %d entries, capacity is %d",
			len(entries), TLBCapacity)
	}

	next := emptyTLB()
	for _, e := range entries {
		if _, found := next.Lookup(e.Page); found {
			return fmt.Errorf("tlb lists virtual page %d twice", e.Page)
		}

		next, _, _ = next.Insert(e.Page, e.Frame)
	}

	*t = next

	return nil
}
