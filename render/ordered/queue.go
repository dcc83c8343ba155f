// Package ordered holds deferred renderables until the end of a frame.
package ordered

import "container/heap"

// Distancer is anything that knows how far it is from the eye.
type Distancer interface {
	DistanceFromEye() float64
}

type slot[T Distancer] struct {
	v    T
	dist float64
	seq  uint64
}

type slots[T Distancer] []slot[T]

func (s slots[T]) Len() int { return len(s) }

// Farthest first; insertion order among equals.
func (s slots[T]) Less(i, j int) bool {
	if s[i].dist != s[j].dist {
		return s[i].dist > s[j].dist
	}
	return s[i].seq < s[j].seq
}

func (s slots[T]) Swap(i, j int) { s[i], s[j] = s[j], s[i] }

func (s *slots[T]) Push(x any) { *s = append(*s, x.(slot[T])) }

func (s *slots[T]) Pop() any {
	old := *s
	n := len(old)
	x := old[n-1]
	old[n-1] = slot[T]{}
	*s = old[:n-1]
	return x
}

// Queue yields items farthest from the eye first. The distance is sampled once
// at Add.
type Queue[T Distancer] struct {
	items slots[T]
	seq   uint64
}

func New[T Distancer]() *Queue[T] {
	return &Queue[T]{}
}

func (q *Queue[T]) Add(v T) {
	heap.Push(&q.items, slot[T]{v: v, dist: v.DistanceFromEye(), seq: q.seq})
	q.seq++
}

// Peek returns the next item without removing it.
func (q *Queue[T]) Peek() (T, bool) {
	if len(q.items) == 0 {
		var zero T
		return zero, false
	}
	return q.items[0].v, true
}

// Poll removes and returns the next item.
func (q *Queue[T]) Poll() (T, bool) {
	if len(q.items) == 0 {
		var zero T
		return zero, false
	}
	return heap.Pop(&q.items).(slot[T]).v, true
}

func (q *Queue[T]) Len() int { return len(q.items) }

func (q *Queue[T]) Clear() {
	clear(q.items)
	q.items = q.items[:0]
}
