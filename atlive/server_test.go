package atlive

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/launchdarkly/eventsource"
	"github.com/launchdarkly/go-test-helpers/v3/httphelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinternet/go-tracker/internal/sharedtest"
	"github.com/atinternet/go-tracker/subsystems"
)

func sampleHit(url string) subsystems.HitEvent {
	return subsystems.HitEvent{URL: url, Type: "screen", CreationDate: time.UnixMilli(1700000000000)}
}

func TestPublishedHitReachesSubscriber(t *testing.T) {
	server := NewServer(0, sharedtest.NewTestLoggers())
	defer server.Close()

	httphelpers.WithServer(server.Handler(), func(ts *httptest.Server) {
		stream, err := eventsource.Subscribe(ts.URL, "")
		require.NoError(t, err)
		defer stream.Close()

		server.Publish(sampleHit("https://logp.xiti.com/hit.xiti?s=1&p=home"))

		event := sharedtest.RequireValue[eventsource.Event](t, stream.Events, time.Second)
		assert.Equal(t, EventName, event.Event())
		decoded, err := DecodeHit(event.Data())
		require.NoError(t, err)
		assert.Equal(t, "https://logp.xiti.com/hit.xiti?s=1&p=home", decoded.URL)
		assert.Equal(t, "screen", decoded.Type)
		assert.Equal(t, int64(1700000000000), decoded.CreationDate.UnixMilli())
	})
}

func TestLateSubscriberGetsHistory(t *testing.T) {
	server := NewServer(2, sharedtest.NewTestLoggers())
	defer server.Close()
	server.Publish(sampleHit("a"))
	server.Publish(sampleHit("b"))
	server.Publish(sampleHit("c"))

	httphelpers.WithServer(server.Handler(), func(ts *httptest.Server) {
		stream, err := eventsource.Subscribe(ts.URL, "")
		require.NoError(t, err)
		defer stream.Close()

		var urls []string
		for _, e := range sharedtest.RequireValues[eventsource.Event](t, stream.Events, 2, time.Second) {
			decoded, err := DecodeHit(e.Data())
			require.NoError(t, err)
			urls = append(urls, decoded.URL)
		}
		assert.Equal(t, []string{"b", "c"}, urls)
	})
}

func TestReplayResumesAfterLastEventID(t *testing.T) {
	h := &history{size: 10}
	for _, id := range []string{"1", "2", "3"} {
		h.add(hitEvent{id: id})
	}
	var ids []string
	for e := range h.Replay(Channel, "2") {
		ids = append(ids, e.Id())
	}
	assert.Equal(t, []string{"3"}, ids)
}

func TestPublishAfterCloseIsIgnored(t *testing.T) {
	server := NewServer(0, sharedtest.NewTestLoggers())
	require.NoError(t, server.Close())
	server.Publish(sampleHit("late"))
	assert.Empty(t, server.history.events)
}
