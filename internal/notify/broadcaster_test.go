package notify

import (
	"fmt"
	"testing"
	"time"

	th "github.com/launchdarkly/go-test-helpers/v3"
	"github.com/stretchr/testify/assert"
)

func TestBroadcaster(t *testing.T) {
	timeout := time.Second
	n := 0
	nextValue := func() string {
		n++
		return fmt.Sprintf("value%d", n)
	}

	t.Run("broadcast with no subscribers", func(t *testing.T) {
		b := NewBroadcaster[string]()
		defer b.Close()
		assert.Equal(t, 0, b.Broadcast(nextValue()))
	})

	t.Run("broadcast with subscribers", func(t *testing.T) {
		b := NewBroadcaster[string]()
		defer b.Close()
		ch1, ch2 := b.AddListener(), b.AddListener()
		value := nextValue()
		b.Broadcast(value)
		assert.Equal(t, value, th.RequireValue(t, ch1, timeout))
		assert.Equal(t, value, th.RequireValue(t, ch2, timeout))
	})

	t.Run("unregister subscriber", func(t *testing.T) {
		b := NewBroadcaster[string]()
		defer b.Close()
		ch1, ch2 := b.AddListener(), b.AddListener()
		b.RemoveListener(ch1)
		th.AssertChannelClosed(t, ch1, time.Millisecond)
		value := nextValue()
		b.Broadcast(value)
		assert.Equal(t, value, th.RequireValue(t, ch2, timeout))
	})

	t.Run("hasListeners", func(t *testing.T) {
		b := NewBroadcaster[string]()
		defer b.Close()
		assert.False(t, b.HasListeners())
		ch := b.AddListener()
		assert.True(t, b.HasListeners())
		b.RemoveListener(ch)
		assert.False(t, b.HasListeners())
	})

	t.Run("full listener misses values without blocking", func(t *testing.T) {
		b := NewBroadcaster[string]()
		defer b.Close()
		_ = b.AddListener()
		for i := 0; i < subscriberChannelBufferLength; i++ {
			assert.Equal(t, 0, b.Broadcast(nextValue()))
		}
		assert.Equal(t, 1, b.Broadcast(nextValue()))
	})

	t.Run("close closes listeners", func(t *testing.T) {
		b := NewBroadcaster[string]()
		ch := b.AddListener()
		b.Close()
		th.AssertChannelClosed(t, ch, time.Millisecond)
	})
}
