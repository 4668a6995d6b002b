package core

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Hydrosync/internal/model"
)

func motorSample(v float64) model.Sample {
	return model.Sample{
		At:     testTime,
		Kind:   model.KindMotor,
		Fields: map[string]float64{model.FieldMotorCmdV: v},
	}
}

var testTime = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

func TestQueue_FIFO(t *testing.T) {
	t.Parallel()

	q := NewQueue()
	for i := range 5 {
		q.Push(motorSample(float64(i)))
	}
	assert.Equal(t, 5, q.Len())

	for i := range 5 {
		s, ok := q.TryPop()
		require.True(t, ok)
		assert.InDelta(t, float64(i), s.Value(model.FieldMotorCmdV), 0)
	}
	_, ok := q.TryPop()
	assert.False(t, ok)
}

func TestQueue_PopTimeout(t *testing.T) {
	t.Parallel()

	q := NewQueue()
	start := time.Now()
	_, ok := q.Pop(20 * time.Millisecond)
	assert.False(t, ok)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestQueue_PopWakesOnPush(t *testing.T) {
	t.Parallel()

	q := NewQueue()
	go func() {
		time.Sleep(10 * time.Millisecond)
		q.Push(motorSample(1.5))
	}()
	s, ok := q.Pop(time.Second)
	require.True(t, ok)
	assert.InDelta(t, 1.5, s.Value(model.FieldMotorCmdV), 0)
}

func TestQueue_Drain(t *testing.T) {
	t.Parallel()

	q := NewQueue()
	assert.Empty(t, q.Drain())

	q.Push(motorSample(1))
	q.Push(motorSample(2))
	got := q.Drain()
	require.Len(t, got, 2)
	assert.InDelta(t, 1.0, got[0].Value(model.FieldMotorCmdV), 0)
	assert.InDelta(t, 2.0, got[1].Value(model.FieldMotorCmdV), 0)
	assert.Zero(t, q.Len())
}

func TestQueue_ConcurrentNoLoss(t *testing.T) {
	t.Parallel()

	const producers, perProducer = 4, 500
	q := NewQueue()

	var wg sync.WaitGroup
	for p := range producers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range perProducer {
				q.Push(model.Sample{Fields: map[string]float64{
					"producer": float64(p),
					"seq":      float64(i),
				}})
			}
		}()
	}

	next := make([]float64, producers)
	received := 0
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	for received < producers*perProducer {
		s, ok := q.Pop(time.Second)
		require.True(t, ok, "queue stalled after %d samples", received)
		p := int(s.Value("producer"))
		assert.InDelta(t, next[p], s.Value("seq"), 0, "producer %d out of order", p)
		next[p]++
		received++
	}
	<-done
	assert.Zero(t, q.Len())
}
