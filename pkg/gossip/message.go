package gossip

import "slices"

// Log is the ordered set of broadcast values a node has accepted.
// Values keep first-seen order and appear at most once.
type Log struct {
	order []int64
	index map[int64]struct{}
}

func NewLog() *Log {
	return &Log{index: make(map[int64]struct{})}
}

// Add records v and reports whether it was new.
func (l *Log) Add(v int64) bool {
	if _, ok := l.index[v]; ok {
		return false
	}
	l.index[v] = struct{}{}
	l.order = append(l.order, v)
	return true
}

func (l *Log) Contains(v int64) bool {
	_, ok := l.index[v]
	return ok
}

func (l *Log) Len() int {
	return len(l.order)
}

// Values returns a copy of the log in first-seen order.
func (l *Log) Values() []int64 {
	return slices.Clone(l.order)
}
