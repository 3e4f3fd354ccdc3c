package server

import (
	"encoding/json"
	"testing"

	"github.com/origolabs/origo/internal/metrics"
	"github.com/origolabs/origo/internal/preview"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOriginPatterns(t *testing.T) {
	got := originPatterns([]string{"http://localhost:3000", "https://app.example.com", "*", "bare.example"})
	assert.Equal(t, []string{"localhost:3000", "app.example.com", "*", "bare.example"}, got)
}

func TestHubPublishFanOut(t *testing.T) {
	m := metrics.New()
	h := NewHub(nil, nil, m)

	a := &client{send: make(chan []byte, 1)}
	b := &client{send: make(chan []byte, 1)}
	require.True(t, h.add(a))
	require.True(t, h.add(b))
	assert.Equal(t, 2, h.Clients())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ActiveClients))

	h.Publish(preview.Event{Type: preview.EventStarted, ProjectID: "p1"})

	for _, c := range []*client{a, b} {
		var e preview.Event
		require.NoError(t, json.Unmarshal(<-c.send, &e))
		assert.Equal(t, "p1", e.ProjectID)
		assert.Equal(t, preview.EventStarted, e.Type)
	}
}

func TestHubDropsSlowClients(t *testing.T) {
	h := NewHub(nil, nil, nil)
	slow := &client{send: make(chan []byte, 1)}
	require.True(t, h.add(slow))

	h.Publish(preview.Event{Type: preview.EventStarted, ProjectID: "p"})
	h.Publish(preview.Event{Type: preview.EventCompleted, ProjectID: "p"})

	assert.Equal(t, 0, h.Clients())
	_, ok := <-slow.send
	assert.True(t, ok, "buffered event is still delivered")
	_, ok = <-slow.send
	assert.False(t, ok, "channel is closed after the drop")

	h.remove(slow)
}

func TestHubClose(t *testing.T) {
	h := NewHub(nil, nil, nil)
	c := &client{send: make(chan []byte, 1)}
	require.True(t, h.add(c))

	h.Close()

	assert.Equal(t, 0, h.Clients())
	_, ok := <-c.send
	assert.False(t, ok)
	assert.False(t, h.add(&client{send: make(chan []byte, 1)}))

	h.Publish(preview.Event{Type: preview.EventFailed})
}
