package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type frameRow struct {
	Seq  uint64
	Lead int
}

func seqs(rows []frameRow) []uint64 {
	out := make([]uint64, len(rows))
	for i, r := range rows {
		out[i] = r.Seq
	}
	return out
}

func TestQueue_New(t *testing.T) {
	q := New[frameRow]()
	require.NotNil(t, q)
	assert.True(t, q.Empty())
	assert.Equal(t, 0, q.Len())
	assert.Nil(t, q.PopN(5))
}

func TestQueue_PopNBatches(t *testing.T) {
	q := New[frameRow]()
	q.Push(frameRow{Seq: 1}, frameRow{Seq: 2})
	q.Push(frameRow{Seq: 3}, frameRow{Seq: 4}, frameRow{Seq: 5})
	assert.Equal(t, 5, q.Len())

	assert.Equal(t, []uint64{1, 2}, seqs(q.PopN(2)))
	assert.Equal(t, []uint64{3, 4, 5}, seqs(q.PopN(10)))
	assert.Nil(t, q.PopN(1))
	assert.Nil(t, q.PopN(0))
	assert.True(t, q.Empty())
}

func TestQueue_BatchDoesNotAlias(t *testing.T) {
	q := New[frameRow]()
	q.Push(frameRow{Seq: 1}, frameRow{Seq: 2})

	batch := q.PopN(1)
	batch[0].Lead = 2
	q.Push(frameRow{Seq: 3})

	assert.Equal(t, []uint64{2, 3}, seqs(q.PopN(2)))
	assert.Equal(t, frameRow{Seq: 1, Lead: 2}, batch[0])
}

func TestQueue_RequeueKeepsFrameOrder(t *testing.T) {
	q := New[frameRow]()
	q.Push(frameRow{Seq: 1}, frameRow{Seq: 2}, frameRow{Seq: 3})

	failed := q.PopN(2)
	// the ticker keeps producing while the write is in flight
	q.Push(frameRow{Seq: 4})
	q.Requeue(failed...)
	q.Requeue()

	assert.Equal(t, []uint64{1, 2, 3, 4}, seqs(q.PopN(10)))
}

func TestQueue_Concurrent(t *testing.T) {
	q := New[int]()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				q.Push(i*100 + j)
			}
		}(i)
	}

	var drained int
	done := make(chan struct{})
	go func() {
		defer close(done)
		for drained < 1000 {
			drained += len(q.PopN(64))
		}
	}()
	wg.Wait()
	<-done
	assert.Equal(t, 1000, drained)
	assert.True(t, q.Empty())
}
