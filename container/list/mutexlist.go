package list

import (
	"sync"
)

type mnode[T comparable] struct {
	value T
	next  *mnode[T]
}

// MutexList is the single-lock reference implementation: the same surface
// as CasList with every operation serialized by one mutex, a cached tail
// for O(1) append, and a non-blocking TryPopFront.
//
// thread safe
type MutexList[T comparable] struct {
	lker sync.Mutex
	head *mnode[T]
	tail *mnode[T]
}

func NewMutexList[T comparable]() *MutexList[T] {
	return &MutexList[T]{}
}

func (l *MutexList[T]) Size() int {
	l.lker.Lock()
	defer l.lker.Unlock()
	size := 0
	for cur := l.head; cur != nil; cur = cur.next {
		size++
	}
	return size
}

// Front returns a pointer to the first element's value. Front on an empty
// list is a caller bug and panics.
func (l *MutexList[T]) Front() *T {
	l.lker.Lock()
	defer l.lker.Unlock()
	if l.head == nil {
		panic("front of an empty mutex list")
	}
	return &l.head.value
}

// Back returns a pointer to the last element's value. Back on an empty
// list panics.
func (l *MutexList[T]) Back() *T {
	l.lker.Lock()
	defer l.lker.Unlock()
	if l.tail == nil {
		panic("back of an empty mutex list")
	}
	return &l.tail.value
}

func (l *MutexList[T]) PushBack(value T) {
	l.lker.Lock()
	defer l.lker.Unlock()
	n := &mnode[T]{value: value}
	if l.tail == nil {
		l.head = n
		l.tail = n
	} else {
		l.tail.next = n
		l.tail = n
	}
}

// PopFront removes the first element and returns its value. PopFront on an
// empty list is a caller bug and panics; use TryPopFront for a safe
// emptiness check.
func (l *MutexList[T]) PopFront() T {
	l.lker.Lock()
	defer l.lker.Unlock()
	if l.head == nil {
		panic("pop from an empty mutex list")
	}
	return l.popfront()
}

// TryPopFront removes and returns the first element, or reports false when
// the list is empty.
func (l *MutexList[T]) TryPopFront() (T, bool) {
	l.lker.Lock()
	defer l.lker.Unlock()
	if l.head == nil {
		var zero T
		return zero, false
	}
	return l.popfront(), true
}

// the caller must hold lker and guarantee the list is not empty
func (l *MutexList[T]) popfront() T {
	value := l.head.value
	l.head = l.head.next
	if l.head == nil {
		l.tail = nil
	}
	return value
}

// Remove unlinks every element equal to value, keeping the relative order
// of the others.
func (l *MutexList[T]) Remove(value T) {
	l.lker.Lock()
	defer l.lker.Unlock()
	var prev *mnode[T]
	slot := &l.head
	for cur := *slot; cur != nil; cur = *slot {
		if cur.value == value {
			*slot = cur.next
			if *slot == nil {
				// removed the last element
				l.tail = prev
			}
		} else {
			prev = cur
			slot = &cur.next
		}
	}
}

// MutexIterator holds the list's mutex from Iterate until Close, so every
// other operation blocks while the cursor is live. The upside is that the
// cursor sees a true snapshot; the cost to concurrent mutators is the
// documented trade-off of the reference implementation.
type MutexIterator[T comparable] struct {
	list    *MutexList[T]
	cur     *mnode[T]
	started bool
}

// Iterate acquires the list mutex and returns a cursor positioned before
// the first element. The mutex is held until Close.
func (l *MutexList[T]) Iterate() *MutexIterator[T] {
	l.lker.Lock()
	return &MutexIterator[T]{list: l}
}

// Next advances the cursor and reports whether an element exists.
func (it *MutexIterator[T]) Next() bool {
	if it.list == nil {
		return false
	}
	if !it.started {
		it.started = true
		it.cur = it.list.head
	} else if it.cur != nil {
		it.cur = it.cur.next
	}
	return it.cur != nil
}

// Value returns a pointer to the current element's value.
func (it *MutexIterator[T]) Value() *T {
	if it.cur == nil {
		panic("iterator out of range")
	}
	return &it.cur.value
}

// Close releases the list mutex. The iterator must not be used afterwards.
func (it *MutexIterator[T]) Close() {
	if it.list != nil {
		it.list.lker.Unlock()
		it.list = nil
		it.cur = nil
	}
}

// Range calls f on every element until f returns false, holding the list
// mutex for the whole walk.
func (l *MutexList[T]) Range(f func(value T) bool) {
	it := l.Iterate()
	defer it.Close()
	for it.Next() {
		if !f(*it.Value()) {
			return
		}
	}
}
