package node

// Counter is a grow-only sum. Overflow wraps; callers only ever add the
// non-negative deltas the protocol allows.
type Counter struct {
	value uint64
}

func (c *Counter) Add(delta uint64) {
	c.value += delta
}

func (c *Counter) Value() uint64 {
	return c.value
}
