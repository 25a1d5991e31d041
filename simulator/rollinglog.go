package simulator

// rollingLog keeps the most recent lines, newest first.
type rollingLog struct {
	capacity int
	entries  []string
}

func newRollingLog(capacity int) *rollingLog {
	if capacity <= 0 {
		panic("log capacity must be positive")
	}

	return &rollingLog{
		capacity: capacity,
		entries:  make([]string, 0, capacity),
	}
}

func (l *rollingLog) push(line string) {
	if len(l.entries) < l.capacity {
		l.entries = append(l.entries, "")
	}

	copy(l.entries[1:], l.entries[:len(l.entries)-1])
	l.entries[0] = line
}

func (l *rollingLog) lines() []string {
	lines := make([]string, len(l.entries))
	copy(lines, l.entries)

	return lines
}

func (l *rollingLog) restore(lines []string) {
	if len(lines) > l.capacity {
		lines = lines[:l.capacity]
	}

	l.entries = append(l.entries[:0], lines...)
}
