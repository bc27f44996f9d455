package list

import (
	"sync/atomic"
)

// tag is one immutable (address, mark) pair. Every mutation of a slot swaps
// in a fresh tag, so the address and the mark bit always change together.
type tag[T comparable] struct {
	node *node[T]
	mark bool
}

// taggedPtr is an atomic pointer slot co-encoding the address of the next
// node with the logical-deletion bit of the node that OWNS this slot.
// A zero slot reads as (nil, unmarked).
//
// A slot holds one share of its target's holder count for as long as it
// addresses the node: store and cas move that share, mark keeps the address
// so it moves nothing. A node's count therefore only reaches zero once no
// slot addresses it and no traversal pins it, which is what lets a
// reclaimer reuse the storage without yanking a chain out from under a
// reader parked on a removed node.
type taggedPtr[T comparable] struct {
	v atomic.Pointer[tag[T]]
}

// load returns the slot's address and mark bit as one atomic snapshot.
func (p *taggedPtr[T]) load() (*node[T], bool) {
	t := p.v.Load()
	if t == nil {
		return nil, false
	}
	return t.node, t.mark
}

// loadRef is load plus a pin on the target: the target's holder count is
// incremented and the slot re-read, retrying if it moved in between. When
// the second read still sees the same tag, the slot's own share covered the
// target for the whole window, so the pin is taken before the target could
// have been reclaimed.
func (p *taggedPtr[T]) loadRef() *node[T] {
	for {
		t := p.v.Load()
		if t == nil || t.node == nil {
			return nil
		}
		n := t.node
		n.refs.Incr()
		if p.v.Load() == t {
			return n
		}
		// the slot moved between the read and the pin; the pin may have
		// landed on a node this slot no longer covers
		n.refs.Decr()
	}
}

func (p *taggedPtr[T]) ptr() *node[T] {
	n, _ := p.load()
	return n
}

func (p *taggedPtr[T]) marked() bool {
	_, m := p.load()
	return m
}

// mark sets the deletion bit and keeps the address, even a nil one (marking
// the last node's empty slot). It reports whether this call set the bit:
// false means a racing caller already had, so the node was already
// logically deleted by someone else.
func (p *taggedPtr[T]) mark() bool {
	for {
		old := p.v.Load()
		var n *node[T]
		if old != nil {
			if old.mark {
				return false
			}
			n = old.node
		}
		if p.v.CompareAndSwap(old, &tag[T]{node: n, mark: true}) {
			return true
		}
	}
}

// cas installs (next, unmarked) if the slot currently holds
// (expect, unmarked), moving the slot's count share from the old target to
// the new one. A marked slot is frozen pending unlink: cas never succeeds
// on it, so no successor can be attached to a logically deleted node.
// Failure is control flow, callers rescan and retry.
func (p *taggedPtr[T]) cas(expect, next *node[T]) bool {
	old := p.v.Load()
	var cur *node[T]
	if old != nil {
		if old.mark {
			return false
		}
		cur = old.node
	}
	if cur != expect {
		return false
	}
	if next != nil {
		next.refs.Incr()
	}
	if !p.v.CompareAndSwap(old, &tag[T]{node: next}) {
		if next != nil {
			next.refs.Decr()
		}
		return false
	}
	if cur != nil {
		cur.refs.Decr()
	}
	return true
}

// store is plain assignment: the address only, the mark bit always cleared.
// Splicing a node out writes the removed node's successor address into the
// predecessor slot and must not carry over the mark the removed slot
// accumulated. The count share moves like cas.
func (p *taggedPtr[T]) store(n *node[T]) {
	if n != nil {
		n.refs.Incr()
	}
	old := p.v.Swap(&tag[T]{node: n})
	if old != nil && old.node != nil {
		old.node.refs.Decr()
	}
}

// clear freezes the slot as (nil, marked) and drops the count share on the
// previous target. Only reclaimers use it, on nodes no slot addresses and
// no holder pins anymore.
func (p *taggedPtr[T]) clear() {
	old := p.v.Swap(&tag[T]{mark: true})
	if old != nil && old.node != nil {
		old.node.refs.Decr()
	}
}
