package vm

// FindLRUVictim returns the used frame with the smallest LastAccessed
// timestamp. Ties go to the lowest frame index. The bool is false when no
// frame is used.
func FindLRUVictim(s State) (frame int, ok bool) {
	frame = NoLocation

	for i, f := range s.Frames {
		if f.Status != SlotUsed {
			continue
		}

		if !ok || f.LastAccessed < s.Frames[frame].LastAccessed {
			frame = i
			ok = true
		}
	}

	return frame, ok
}
