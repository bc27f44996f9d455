package list

import (
	"math"
	"sync"
	"sync/atomic"
)

const inactiveEpoch uint64 = math.MaxUint64

// EpochReclaimer releases a retired node only after every registered reader
// has moved past the global epoch current when the node was retired, so no
// reference obtained before the unlink can still be live. Readers bracket
// their traversals with Enter/Exit on a ReaderEpoch obtained from Register.
type EpochReclaimer[T comparable] struct {
	epoch   atomic.Uint64
	lker    sync.Mutex
	readers []*ReaderEpoch[T]
	retired []retiredAt[T]
}

type retiredAt[T comparable] struct {
	n     *node[T]
	epoch uint64
}

// ReaderEpoch marks when one reader entered its current read section.
type ReaderEpoch[T comparable] struct {
	owner *EpochReclaimer[T]
	epoch atomic.Uint64
}

func NewEpochReclaimer[T comparable]() *EpochReclaimer[T] {
	return &EpochReclaimer[T]{}
}

// Register adds one reader. Readers start inactive.
func (e *EpochReclaimer[T]) Register() *ReaderEpoch[T] {
	r := &ReaderEpoch[T]{owner: e}
	r.epoch.Store(inactiveEpoch)
	e.lker.Lock()
	e.readers = append(e.readers, r)
	e.lker.Unlock()
	return r
}

func (r *ReaderEpoch[T]) Enter() {
	r.epoch.Store(r.owner.epoch.Load())
}

func (r *ReaderEpoch[T]) Exit() {
	r.epoch.Store(inactiveEpoch)
}

func (e *EpochReclaimer[T]) Retire(d Retired[T]) {
	e.lker.Lock()
	e.retired = append(e.retired, retiredAt[T]{n: d.n, epoch: e.epoch.Add(1)})
	e.reclaim()
	e.lker.Unlock()
}

// Advance bumps the global epoch and releases every retired node all
// registered readers have moved past.
func (e *EpochReclaimer[T]) Advance() {
	e.lker.Lock()
	e.epoch.Add(1)
	e.reclaim()
	e.lker.Unlock()
}

// Pending returns how many retired nodes are still held back by readers.
func (e *EpochReclaimer[T]) Pending() int {
	e.lker.Lock()
	defer e.lker.Unlock()
	return len(e.retired)
}

// reclaim drops every retired node whose retire epoch is older than the
// slowest active reader. Dropping the reference hands the storage to the
// garbage collector. The caller must hold lker.
func (e *EpochReclaimer[T]) reclaim() {
	oldest := inactiveEpoch
	for _, r := range e.readers {
		if at := r.epoch.Load(); at < oldest {
			oldest = at
		}
	}
	kept := e.retired[:0]
	for _, ra := range e.retired {
		if oldest == inactiveEpoch || ra.epoch < oldest {
			continue
		}
		kept = append(kept, ra)
	}
	for i := len(kept); i < len(e.retired); i++ {
		e.retired[i] = retiredAt[T]{}
	}
	e.retired = kept
}
