package queue

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushPopOrder(t *testing.T) {
	q := New[int](8, QueueN)
	for i := 0; i < 5; i++ {
		q.Push(i)
	}
	for i := 0; i < 5; i++ {
		v, err := q.Pop(time.Second)
		require.NoError(t, err)
		assert.Equal(t, i, v)
	}
}

func TestPopTimeoutZeroPolls(t *testing.T) {
	q := New[int](4, QueueN)
	_, err := q.Pop(0)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestPopTimeoutBlocks(t *testing.T) {
	q := New[int](4, QueueN)
	start := time.Now()
	_, err := q.Pop(30 * time.Millisecond)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestPopWakesOnPush(t *testing.T) {
	q := New[int](4, QueueN)
	done := make(chan int, 1)
	go func() {
		v, err := q.Pop(time.Second)
		if err == nil {
			done <- v
		}
	}()
	time.Sleep(10 * time.Millisecond)
	q.Push(42)
	select {
	case v := <-done:
		assert.Equal(t, 42, v)
	case <-time.After(time.Second):
		t.Fatal("pop did not wake on push")
	}
}

func TestQueueNDropsNewest(t *testing.T) {
	q := New[int](2, QueueN)
	q.Push(1)
	q.Push(2)
	q.Push(3) // dropped, queue keeps [1, 2]

	assert.Equal(t, uint64(1), q.DropCount())

	v1, _ := q.Pop(0)
	v2, _ := q.Pop(0)
	assert.Equal(t, 1, v1)
	assert.Equal(t, 2, v2)

	_, err := q.Pop(0)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestDropOldestEvictsHead(t *testing.T) {
	q := New[int](2, DropOldest)
	q.Push(1)
	q.Push(2)
	q.Push(3) // head (1) evicted, queue becomes [2, 3]

	assert.Equal(t, uint64(1), q.DropCount())

	v1, _ := q.Pop(0)
	v2, _ := q.Pop(0)
	assert.Equal(t, 2, v1)
	assert.Equal(t, 3, v2)
}

func TestSeqIncludesDroppedItems(t *testing.T) {
	q := New[int](1, QueueN)
	seq0 := q.Push(10)
	seq1 := q.Push(11) // dropped, but still consumes a seq number
	assert.Equal(t, uint64(0), seq0)
	assert.Equal(t, uint64(1), seq1)
}

func TestNextSeqThenPushSeqMatchesPlainPushNumbering(t *testing.T) {
	q := New[int](4, QueueN)
	seq := q.NextSeq()
	q.PushSeq(seq, 42)

	v, err := q.Pop(0)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, uint64(0), seq)

	// a subsequent Push continues the same counter, not a separate one
	assert.Equal(t, uint64(1), q.Push(43))
}

func TestCloseDrainsThenErrClosed(t *testing.T) {
	q := New[int](4, QueueN)
	q.Push(1)
	q.Close()

	v, err := q.Pop(0)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	_, err = q.Pop(0)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestCloseWakesBlockedPop(t *testing.T) {
	q := New[int](4, QueueN)
	errCh := make(chan error, 1)
	go func() {
		_, err := q.Pop(time.Second)
		errCh <- err
	}()
	time.Sleep(10 * time.Millisecond)
	q.Close()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("close did not wake blocked pop")
	}
}

func TestPushNeverBlocksUnderConcurrentLoad(t *testing.T) {
	q := New[int](16, DropOldest)
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			q.Push(v)
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, q.Len(), 16)
}
