package list

import (
	"sync"
	"sync/atomic"
)

// Counter tracks how many holders still reference one node. A node's
// storage may be reused only after it is physically unlinked and its count
// has reached zero.
type Counter interface {
	Incr() int64
	Decr() int64
	Count() int64
}

// CountPolicy mints one Counter per node. Chosen at construction, no
// runtime reconfiguration.
type CountPolicy interface {
	NewCounter() Counter
}

// AtomicCounts is the default CountPolicy: one atomic.Int64 per node.
type AtomicCounts struct{}

func (AtomicCounts) NewCounter() Counter { return new(atomicCounter) }

type atomicCounter struct {
	c atomic.Int64
}

func (c *atomicCounter) Incr() int64  { return c.c.Add(1) }
func (c *atomicCounter) Decr() int64  { return c.c.Add(-1) }
func (c *atomicCounter) Count() int64 { return c.c.Load() }

// Retired hands one physically unlinked node to a Reclaimer.
type Retired[T comparable] struct {
	n *node[T]
}

// Value returns the retired node's element.
func (r Retired[T]) Value() T { return r.n.value }

// Holders returns how many references are still outstanding on the node.
func (r Retired[T]) Holders() int64 { return r.n.refs.Count() }

// Reclaimer decides when an unlinked node's storage may be reused. Retire
// is called exactly once per node, by whichever goroutine wins the unlink.
type Reclaimer[T comparable] interface {
	Retire(r Retired[T])
}

// NopReclaimer drops retired nodes and leaves freeing to the garbage
// collector: memory lives as long as anyone still references it, which is
// exactly the "valid until reclaimed" contract with no extra machinery.
type NopReclaimer[T comparable] struct{}

func (NopReclaimer[T]) Retire(Retired[T]) {}

// nodeSource is implemented by reclaimers that can hand storage back to the
// list allocator. The hook follows the policy seam: any Reclaimer providing
// it becomes the list's node source.
type nodeSource[T comparable] interface {
	get() *node[T]
}

// PoolReclaimer recycles retired node storage through a sync.Pool once no
// holder remains. A list built with it allocates nodes from the pool, so a
// pointer obtained from Front/Back is stable only until the node is
// recycled; use an iterator (which pins its node) to hold a value across a
// concurrent removal.
type PoolReclaimer[T comparable] struct {
	pool    sync.Pool
	lker    sync.Mutex
	pending []*node[T]
}

func NewPoolReclaimer[T comparable]() *PoolReclaimer[T] {
	return &PoolReclaimer[T]{}
}

func (p *PoolReclaimer[T]) Retire(r Retired[T]) {
	p.lker.Lock()
	p.pending = append(p.pending, r.n)
	p.flush()
	p.lker.Unlock()
}

// Pending returns how many retired nodes still wait on outstanding holders.
func (p *PoolReclaimer[T]) Pending() int {
	p.lker.Lock()
	defer p.lker.Unlock()
	p.flush()
	return len(p.pending)
}

// flush moves every pending node into the pool once its count is zero,
// meaning no slot addresses it and no traversal pins it. Until then the
// node keeps its frozen (successor, marked) slot, so a reader parked on the
// removed node still walks into the rest of the chain. The caller must
// hold lker.
func (p *PoolReclaimer[T]) flush() {
	kept := p.pending[:0]
	for _, n := range p.pending {
		if n.refs.Count() != 0 {
			kept = append(kept, n)
			continue
		}
		var zero T
		n.value = zero
		// drop the count share on the successor and keep the slot frozen so
		// a straggling cas can never attach anything to a pooled node
		n.next.clear()
		p.pool.Put(n)
	}
	for i := len(kept); i < len(p.pending); i++ {
		p.pending[i] = nil
	}
	p.pending = kept
}

// get returns a recycled node, or nil when none is ready.
func (p *PoolReclaimer[T]) get() *node[T] {
	p.lker.Lock()
	p.flush()
	p.lker.Unlock()
	n, ok := p.pool.Get().(*node[T])
	if !ok {
		return nil
	}
	return n
}
