package hooking

import (
	"sync"
)

// TagCountTracer counts how many times each tag is reported by the hookable
// objects it is attached to.
type TagCountTracer struct {
	lock     sync.Mutex
	tagNames []string
	tagCount map[string]uint64
}

// NewTagCountTracer creates a new TagCountTracer
func NewTagCountTracer() *TagCountTracer {
	return &TagCountTracer{
		tagCount: make(map[string]uint64),
	}
}

// Func counts the tags of the item, if the item is tagged.
func (t *TagCountTracer) Func(ctx HookCtx) {
	item, ok := ctx.Item.(Tagged)
	if !ok {
		return
	}

	t.lock.Lock()
	defer t.lock.Unlock()

	for _, tag := range item.Tags() {
		t.countTag(tag)
	}
}

// GetTagNames returns all the tag names collected, in the order they were
// first seen.
func (t *TagCountTracer) GetTagNames() []string {
	t.lock.Lock()
	defer t.lock.Unlock()

	names := make([]string, len(t.tagNames))
	copy(names, t.tagNames)

	return names
}

// GetTagCount returns the number of times a tag is reported.
func (t *TagCountTracer) GetTagCount(tagName string) uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.tagCount[tagName]
}

// Counts returns a copy of all the counters.
func (t *TagCountTracer) Counts() map[string]uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	counts := make(map[string]uint64, len(t.tagCount))
	for name, n := range t.tagCount {
		counts[name] = n
	}

	return counts
}

// Reset forgets all the tags counted so far.
func (t *TagCountTracer) Reset() {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.tagNames = nil
	t.tagCount = make(map[string]uint64)
}

func (t *TagCountTracer) countTag(tag string) {
	_, ok := t.tagCount[tag]
	if !ok {
		t.tagNames = append(t.tagNames, tag)
	}

	t.tagCount[tag]++
}
