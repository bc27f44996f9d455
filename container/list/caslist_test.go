package list

import (
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func collect[T comparable](l *CasList[T]) []T {
	out := make([]T, 0)
	l.Range(func(value T) bool {
		out = append(out, value)
		return true
	})
	return out
}

func Test_CasList_Example(t *testing.T) {
	l := NewCasList[int]()
	l.PushBack(1)
	l.PushBack(2)
	l.PushBack(3)
	l.Remove(2)
	require.Equal(t, []int{1, 3}, collect(l))

	require.Equal(t, 1, l.PopFront())
	require.Equal(t, []int{3}, collect(l))
	require.Equal(t, 1, l.Size())
	require.Equal(t, 3, *l.Front())
	require.Equal(t, 3, *l.Back())

	require.Equal(t, 3, l.PopFront())
	require.Equal(t, 0, l.Size())
}

func Test_CasList_FIFO(t *testing.T) {
	l := NewCasList[int]()
	for i := 1; i <= 100; i++ {
		l.PushBack(i)
	}
	require.Equal(t, 100, l.Size())
	for i := 1; i <= 100; i++ {
		require.Equal(t, i, l.PopFront())
	}
	require.Equal(t, 0, l.Size())
}

func Test_CasList_RemoveAllMatches(t *testing.T) {
	l := NewCasList[int]()
	for _, v := range []int{7, 1, 7, 2, 7, 3, 7} {
		l.PushBack(v)
	}
	l.Remove(7)
	require.Equal(t, []int{1, 2, 3}, collect(l), "every match removed, order of the rest preserved")
	l.Remove(9)
	require.Equal(t, []int{1, 2, 3}, collect(l))
}

func Test_CasList_EmptyPreconditions(t *testing.T) {
	l := NewCasList[int]()
	require.Panics(t, func() { l.PopFront() })
	require.Panics(t, func() { l.Front() })
	require.Panics(t, func() { l.Back() })
}

func Test_CasList_FrontStaysReadable(t *testing.T) {
	l := NewCasList[int]()
	l.PushBack(1)
	l.PushBack(2)
	p := l.Front()
	require.Equal(t, 1, l.PopFront())
	// logically gone from the list, but the reference must stay safe
	require.Equal(t, 1, *p)
}

func Test_CasList_IteratorSkipsRemoved(t *testing.T) {
	l := NewCasList[int]()
	for i := 1; i <= 5; i++ {
		l.PushBack(i)
	}
	it := l.Iterate()
	defer it.Close()
	require.True(t, it.Next())
	require.Equal(t, 1, *it.Value())

	l.Remove(3)
	got := make([]int, 0)
	for it.Next() {
		got = append(got, *it.Value())
	}
	require.Equal(t, []int{2, 4, 5}, got)
}

// logically delete a node by hand without unlinking it, then check that an
// append helps complete the unlink instead of attaching behind it
func Test_CasList_PushHelpsPendingUnlink(t *testing.T) {
	l := NewCasList[int]()
	l.PushBack(1)
	l.PushBack(2)

	second := l.head.next.ptr().next.ptr()
	require.Equal(t, 2, second.value)
	require.True(t, second.next.mark())

	l.PushBack(3)
	require.Equal(t, []int{1, 3}, collect(l))
	require.Equal(t, 2, l.Size())
	require.Nil(t, l.head.next.ptr().next.ptr().next.ptr(), "the marked node must be spliced out, not appended to")
}

func Test_CasList_ConcurrentPush(t *testing.T) {
	l := NewCasList[int]()
	pushers := 4
	per := 500
	g := errgroup.Group{}
	for p := 0; p < pushers; p++ {
		p := p
		g.Go(func() error {
			for i := 0; i < per; i++ {
				l.PushBack(p*per + i)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	require.Equal(t, pushers*per, l.Size())
	exist := make(map[int]*struct{}, pushers*per)
	l.Range(func(value int) bool {
		if _, ok := exist[value]; ok {
			t.Fatal("duplicate data")
		}
		exist[value] = nil
		return true
	})
	require.Equal(t, pushers*per, len(exist))
}

// every reclamation policy must survive the same hammer: concurrent
// pushers, poppers and scanners, no duplicate pops, no never-pushed values
func Test_CasList_ConcurrentPushPop(t *testing.T) {
	for name, l := range map[string]*CasList[int]{
		"nop":   NewCasList[int](),
		"pool":  NewCasListPolicy[int](AtomicCounts{}, NewPoolReclaimer[int]()),
		"epoch": NewCasListPolicy[int](AtomicCounts{}, NewEpochReclaimer[int]()),
	} {
		t.Run(name, func(t *testing.T) {
			hammerPushPop(t, l)
		})
	}
}

func hammerPushPop(t *testing.T, l *CasList[int]) {
	pushers := 2
	poppers := 2
	per := 1000
	total := pushers * per

	// an empty list is a caller precondition violation; the hammer treats
	// the panic as "try again"
	trypop := func() (value int, ok bool) {
		defer func() {
			if recover() != nil {
				ok = false
			}
		}()
		return l.PopFront(), true
	}

	start := make(chan int)
	scandone := make(chan int)
	popped := make(chan int, total)
	remain := total
	wg := sync.WaitGroup{}
	for p := 0; p < pushers; p++ {
		p := p
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			for i := 0; i < per; i++ {
				l.PushBack(p*per + i)
			}
		}()
	}
	lker := sync.Mutex{}
	for i := 0; i < poppers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			for {
				lker.Lock()
				if remain == 0 {
					lker.Unlock()
					return
				}
				lker.Unlock()
				if v, ok := trypop(); ok {
					popped <- v
					lker.Lock()
					remain--
					lker.Unlock()
				}
			}
		}()
	}
	// scanners keep traversal pressure on nodes the poppers are retiring
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			for {
				select {
				case <-scandone:
					return
				default:
				}
				l.Size()
				l.Range(func(v int) bool {
					if v < 0 || v >= total {
						t.Error("scanned a value that was never pushed")
						return false
					}
					return true
				})
			}
		}()
	}
	close(start)
	go func() {
		defer close(scandone)
		for {
			lker.Lock()
			if remain == 0 {
				lker.Unlock()
				return
			}
			lker.Unlock()
			runtime.Gosched()
		}
	}()
	wg.Wait()
	close(popped)

	exist := make(map[int]*struct{}, total)
	for v := range popped {
		if _, ok := exist[v]; ok {
			t.Fatal("one element popped twice")
		}
		if v < 0 || v >= total {
			t.Fatal("popped a value that was never pushed")
		}
		exist[v] = nil
	}
	require.Equal(t, total, len(exist))
	require.Equal(t, 0, l.Size())
}

func Test_CasList_ConcurrentRemove(t *testing.T) {
	l := NewCasList[int]()
	for i := 0; i < 400; i++ {
		l.PushBack(i % 4)
	}
	g := errgroup.Group{}
	for v := 0; v < 4; v++ {
		v := v
		g.Go(func() error {
			l.Remove(v)
			return nil
		})
	}
	require.NoError(t, g.Wait())
	require.Equal(t, 0, l.Size())
	require.Equal(t, []int{}, collect(l))
}
