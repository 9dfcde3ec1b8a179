package queue

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinQueue(t *testing.T) {
	pq := NewMin(4)
	pq.Push(Item{Ref: 1, Distance: 3.0})
	pq.Push(Item{Ref: 2, Distance: 1.0})
	pq.Push(Item{Ref: 3, Distance: 2.0})

	top, ok := pq.Top()
	require.True(t, ok)
	assert.Equal(t, uint64(2), top.Ref)

	var got []float32
	for pq.Len() > 0 {
		item, ok := pq.Pop()
		require.True(t, ok)
		got = append(got, item.Distance)
	}
	assert.Equal(t, []float32{1.0, 2.0, 3.0}, got)
}

func TestMaxQueue(t *testing.T) {
	pq := NewMax(4)
	pq.Push(Item{Ref: 1, Distance: 3.0})
	pq.Push(Item{Ref: 2, Distance: 1.0})
	pq.Push(Item{Ref: 3, Distance: 2.0})

	top, ok := pq.Top()
	require.True(t, ok)
	assert.Equal(t, uint64(1), top.Ref)

	var got []float32
	for pq.Len() > 0 {
		item, _ := pq.Pop()
		got = append(got, item.Distance)
	}
	assert.Equal(t, []float32{3.0, 2.0, 1.0}, got)
}

func TestEmptyQueue(t *testing.T) {
	pq := NewMin(0)
	_, ok := pq.Top()
	assert.False(t, ok)
	_, ok = pq.Pop()
	assert.False(t, ok)
}

func TestQueueRandomOrder(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	pq := NewMin(128)
	want := make([]float32, 128)
	for i := range want {
		want[i] = rng.Float32()
		pq.Push(Item{Ref: uint64(i), Distance: want[i]})
	}
	sort.Slice(want, func(i, j int) bool { return want[i] < want[j] })

	got := make([]float32, 0, 128)
	for pq.Len() > 0 {
		item, _ := pq.Pop()
		got = append(got, item.Distance)
	}
	assert.Equal(t, want, got)
}

func TestQueueReset(t *testing.T) {
	pq := NewMax(2)
	pq.Push(Item{Ref: 1, Distance: 1.0})
	pq.Reset()
	assert.Equal(t, 0, pq.Len())
}
