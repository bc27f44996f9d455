package list

import (
	"runtime"
)

// node is one element of a CasList. Identity matters: iterators and racing
// removers hold references to it, so a node is never copied after it is
// published. value is write-once; next carries the node's own
// logical-deletion bit.
type node[T comparable] struct {
	value T
	next  taggedPtr[T]
	refs  Counter
}

// marked reports whether the node is logically deleted, i.e. whether the
// bit on the node's OWN next slot is set.
func (n *node[T]) marked() bool {
	return n.next.marked()
}

func (n *node[T]) release() {
	if n != nil {
		n.refs.Decr()
	}
}

// CasList is a lock-free singly linked list. Every element goes through
// LIVE -> logically deleted (mark on its own next slot) -> unlinked (CAS on
// the predecessor slot) -> reclaimed (Reclaimer decision). Operations never
// block; lost CAS races retry. References returned by Front/Back/iterators
// stay readable until the node is reclaimed, even if the element was
// concurrently removed.
//
// thread safe
type CasList[T comparable] struct {
	head    *node[T] // sentinel, never marked, never unlinked
	counts  CountPolicy
	reclaim Reclaimer[T]
}

func NewCasList[T comparable]() *CasList[T] {
	return NewCasListPolicy[T](AtomicCounts{}, NopReclaimer[T]{})
}

// NewCasListPolicy picks the reference-count and reclamation policies at
// construction. There is no runtime reconfiguration.
func NewCasListPolicy[T comparable](counts CountPolicy, reclaim Reclaimer[T]) *CasList[T] {
	if counts == nil || reclaim == nil {
		panic("missing policy,can't create the cas list")
	}
	l := &CasList[T]{counts: counts, reclaim: reclaim}
	var zero T
	l.head = l.newnode(zero)
	return l
}

func (l *CasList[T]) newnode(value T) *node[T] {
	if src, ok := l.reclaim.(nodeSource[T]); ok {
		if n := src.get(); n != nil {
			n.value = value
			n.next.store(nil)
			return n
		}
	}
	return &node[T]{value: value, refs: l.counts.NewCounter()}
}

func (l *CasList[T]) retire(n *node[T]) {
	l.reclaim.Retire(Retired[T]{n: n})
}

// Size counts the reachable nodes that are not logically deleted. Under
// concurrent mutation the result is only weakly consistent. The walk pins
// each node hand over hand, so a node the scan stands on can't be reclaimed
// out from under it.
func (l *CasList[T]) Size() int {
	size := 0
	cur := l.head.next.loadRef()
	for cur != nil {
		if !cur.marked() {
			size++
		}
		next := cur.next.loadRef()
		cur.release()
		cur = next
	}
	return size
}

// Front returns a pointer to the first element's value. The pointed-to
// memory stays valid until the node is reclaimed, but the value may be
// logically stale if the element is removed concurrently. Front on an
// empty list is a caller bug and panics.
func (l *CasList[T]) Front() *T {
	for {
		cur := l.head.next.loadRef()
		if cur == nil {
			panic("front of an empty cas list")
		}
		if cur.marked() {
			cur.release()
			runtime.Gosched()
			continue
		}
		value := &cur.value
		cur.release()
		return value
	}
}

// Back returns a pointer to the last element's value, with the same
// staleness contract as Front. Back on an empty list panics.
func (l *CasList[T]) Back() *T {
	for {
		var last *node[T]
		cur := l.head.next.loadRef()
		for cur != nil {
			if !cur.marked() {
				cur.refs.Incr()
				last.release()
				last = cur
			}
			next := cur.next.loadRef()
			cur.release()
			cur = next
		}
		if last == nil {
			panic("back of an empty cas list")
		}
		if last.marked() {
			last.release()
			runtime.Gosched()
			continue
		}
		value := &last.value
		last.release()
		return value
	}
}

// PushBack appends value at the end of the list. The tail is found by
// scanning from the sentinel on every call; a lost race rescans from the
// sentinel. A marked node met during the scan is helped out of the chain
// first, so the new node is never attached behind a logically deleted
// tail and can't be lost to a concurrent unlink.
func (l *CasList[T]) PushBack(value T) {
	n := l.newnode(value)
	for {
		prev := l.head
		prev.refs.Incr()
		slot := &prev.next
		cur := slot.loadRef()
		rescan := false
		for cur != nil {
			if !cur.marked() {
				next := cur.next.loadRef()
				prev.release()
				prev = cur
				slot = &prev.next
				cur = next
				continue
			}
			// cur is logically deleted: help splice it out of the pinned
			// predecessor's slot so the new node can't be attached behind it
			succ, _ := cur.next.load()
			if slot.cas(cur, succ) {
				l.retire(cur)
				cur.release()
				cur = slot.loadRef()
				continue
			}
			// the predecessor slot changed under us or is itself marked
			rescan = true
			break
		}
		if !rescan && slot.cas(nil, n) {
			prev.release()
			return
		}
		cur.release()
		prev.release()
		runtime.Gosched()
	}
}

// PopFront removes the first element and returns its value. PopFront on an
// empty list is a caller bug and panics; use MutexList.TryPopFront when a
// safe emptiness check is needed.
func (l *CasList[T]) PopFront() T {
	for {
		cur := l.head.next.loadRef()
		if cur == nil {
			panic("pop from an empty cas list")
		}
		if !cur.next.mark() {
			// a racing remover logically deleted this node first
			cur.release()
			runtime.Gosched()
			continue
		}
		// winning the mark freezes cur's slot, so the successor address is
		// stable; the sentinel slot is never marked, so the splice below can
		// only lose to a helper completing this same unlink
		value := cur.value
		succ, _ := cur.next.load()
		if l.head.next.cas(cur, succ) {
			l.retire(cur)
		}
		cur.release()
		return value
	}
}

// Remove unlinks every element equal to value, keeping the relative order
// of the others. When the unlink CAS after a successful mark loses, the
// marked node is simply left behind: the scan advances its cursor without
// moving the predecessor slot, and whichever traversal next walks this
// region completes the unlink.
func (l *CasList[T]) Remove(value T) {
	prev := l.head
	prev.refs.Incr()
	cur := prev.next.loadRef()
	for cur != nil {
		if cur.value == value {
			if cur.next.mark() {
				succ, _ := cur.next.load()
				if prev.next.cas(cur, succ) {
					l.retire(cur)
				}
			}
			// advance the cursor but keep the pinned predecessor, so a
			// splice this pass couldn't finish is retried from here later
			next := cur.next.loadRef()
			cur.release()
			cur = next
		} else {
			next := cur.next.loadRef()
			prev.release()
			prev = cur
			cur = next
		}
	}
	prev.release()
}

// Iterator is a forward cursor over a CasList. It pins the node it rests
// on through the list's CountPolicy, keeping that node's storage stable
// until the cursor moves on or Close is called. Advance skips nodes
// observed as logically deleted, but a pointer from Value stays readable
// even if the node is removed right after the skip check.
type Iterator[T comparable] struct {
	cur *node[T]
}

// Iterate returns a cursor positioned before the first element. Call Close
// when done with it.
func (l *CasList[T]) Iterate() *Iterator[T] {
	l.head.refs.Incr()
	return &Iterator[T]{cur: l.head}
}

// Next advances to the next element that is not logically deleted and
// reports whether one exists.
func (it *Iterator[T]) Next() bool {
	if it.cur == nil {
		return false
	}
	for {
		next := it.cur.next.loadRef()
		it.cur.release()
		it.cur = next
		if next == nil {
			return false
		}
		if !next.marked() {
			return true
		}
	}
}

// Value returns a pointer to the current element's value.
func (it *Iterator[T]) Value() *T {
	if it.cur == nil {
		panic("iterator out of range")
	}
	return &it.cur.value
}

// Close drops the cursor's pin. The iterator must not be used afterwards.
func (it *Iterator[T]) Close() {
	if it.cur != nil {
		it.cur.release()
		it.cur = nil
	}
}

// Range calls f on every element until f returns false.
func (l *CasList[T]) Range(f func(value T) bool) {
	it := l.Iterate()
	defer it.Close()
	for it.Next() {
		if !f(*it.Value()) {
			return
		}
	}
}
