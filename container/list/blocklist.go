package list

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
)

var ErrClosed = errors.New("block list closed")

// BlockList layers a blocking, context-aware Pop over a MutexList.
//
// work's like golang's chan, without a capacity bound
type BlockList[T comparable] struct {
	block chan *struct{}
	list  *MutexList[T]
	count int64
}

func NewBlockList[T comparable]() *BlockList[T] {
	return &BlockList[T]{
		block: make(chan *struct{}, 1),
		list:  NewMutexList[T](),
		count: 0,
	}
}

// Push appends data and returns the element count after the push.
// Push after Close returns ErrClosed.
func (bl *BlockList[T]) Push(data T) (int64, error) {
	var oldcount int64
	for {
		oldcount = atomic.LoadInt64(&bl.count)
		if oldcount < 0 {
			return oldcount + math.MaxInt64, ErrClosed
		}
		if atomic.CompareAndSwapInt64(&bl.count, oldcount, oldcount+1) {
			break
		}
	}
	bl.list.PushBack(data)
	if oldcount == 0 {
		bl.wake()
	}
	return oldcount + 1, nil
}

// Pop returns the first element, waiting for one when the list is empty.
// It returns ErrClosed once the list is closed and drained, or ctx.Err()
// when the context ends first.
func (bl *BlockList[T]) Pop(ctx context.Context) (T, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	for {
		if ctx.Err() != nil {
			var empty T
			return empty, ctx.Err()
		}
		if data, ok := bl.list.TryPopFront(); ok {
			if remain(atomic.AddInt64(&bl.count, -1)) > 0 {
				// hand the wakeup on while elements remain
				bl.wake()
			}
			return data, nil
		}
		if atomic.LoadInt64(&bl.count) < 0 {
			// pass the close notification to the next waiter
			bl.wake()
			var empty T
			return empty, ErrClosed
		}
		select {
		case <-bl.block:
		case <-ctx.Done():
			var empty T
			return empty, ctx.Err()
		}
	}
}

// Count returns the element count. A closed list keeps counting what is
// left to drain.
func (bl *BlockList[T]) Count() int64 {
	return remain(atomic.LoadInt64(&bl.count))
}

// Close rejects further pushes and unblocks waiters. Elements already
// pushed can still be popped.
func (bl *BlockList[T]) Close() {
	for {
		oldcount := atomic.LoadInt64(&bl.count)
		if oldcount < 0 {
			return
		}
		if atomic.CompareAndSwapInt64(&bl.count, oldcount, oldcount-math.MaxInt64) {
			break
		}
	}
	bl.wake()
}

func (bl *BlockList[T]) wake() {
	select {
	case bl.block <- nil:
	default:
	}
}

// a closed list's count carries -math.MaxInt64
func remain(count int64) int64 {
	if count < 0 {
		count += math.MaxInt64
	}
	return count
}
