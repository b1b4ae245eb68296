package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishFansOut(t *testing.T) {
	s := NewStream[CartChange](4)
	a, cancelA := s.Subscribe()
	defer cancelA()
	b, cancelB := s.Subscribe()
	defer cancelB()

	change := CartChange{UserID: 7, ProductID: 3, Quantity: 2}
	s.Publish(change)

	assert.Equal(t, change, <-a)
	assert.Equal(t, change, <-b)
}

func TestCancelClosesChannel(t *testing.T) {
	s := NewStream[int](1)
	ch, cancel := s.Subscribe()

	cancel()
	_, open := <-ch
	assert.False(t, open)

	// Cancel twice and publish to a gone subscriber: both are no-ops.
	cancel()
	s.Publish(1)
}

func TestPublishNeverBlocks(t *testing.T) {
	s := NewStream[int](2)
	ch, cancel := s.Subscribe()
	defer cancel()

	for i := 0; i < 10; i++ {
		s.Publish(i)
	}

	// The slow subscriber kept only the buffered prefix.
	assert.Equal(t, 0, <-ch)
	assert.Equal(t, 1, <-ch)
	select {
	case v := <-ch:
		t.Fatalf("unexpected buffered event %d", v)
	default:
	}
}

func TestLateSubscriberMissesHistory(t *testing.T) {
	s := NewStream[int](4)
	s.Publish(1)

	ch, cancel := s.Subscribe()
	defer cancel()
	require.Empty(t, ch)

	s.Publish(2)
	assert.Equal(t, 2, <-ch)
}
