package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(zerolog.Nop())
	go hub.Run()
	t.Cleanup(hub.Stop)
	return hub
}

func connect(t *testing.T, hub *Hub, userID string) *Client {
	t.Helper()
	c := NewClient(hub, nil, userID)
	require.NoError(t, hub.Register(c))
	require.Eventually(t, func() bool {
		got, ok := hub.Lookup(userID)
		return ok && got == c
	}, time.Second, 5*time.Millisecond)
	return c
}

func next(t *testing.T, c *Client) Envelope {
	t.Helper()
	select {
	case raw, ok := <-c.Send:
		require.True(t, ok, "send channel closed")
		var env Envelope
		require.NoError(t, json.Unmarshal(raw, &env))
		return env
	case <-time.After(time.Second):
		t.Fatal("no frame received")
	}
	return Envelope{}
}

func TestHub_RegisterGreets(t *testing.T) {
	hub := startHub(t)
	c := connect(t, hub, "u1")

	env := next(t, c)
	assert.Equal(t, EventUserConnected, env.Event)
	assert.JSONEq(t, `"u1"`, string(env.Data))
	assert.Equal(t, []string{"u1"}, hub.Online())
}

func TestHub_ReconnectReplaces(t *testing.T) {
	hub := startHub(t)
	first := connect(t, hub, "u1")
	second := connect(t, hub, "u1")

	next(t, first) // greeting
	_, ok := <-first.Send
	assert.False(t, ok, "replaced connection should be closed")

	// the stale connection leaving must not evict the new one
	hub.Unregister(first)
	time.Sleep(20 * time.Millisecond)
	got, ok := hub.Lookup("u1")
	require.True(t, ok)
	assert.Same(t, second, got)

	assert.ErrorIs(t, first.SendEvent("x", nil), ErrClientClosed)
}

func TestHub_Unregister(t *testing.T) {
	hub := startHub(t)
	c := connect(t, hub, "u1")

	hub.Unregister(c)
	assert.Eventually(t, func() bool {
		_, ok := hub.Lookup("u1")
		return !ok
	}, time.Second, 5*time.Millisecond)
	assert.Empty(t, hub.Online())
}

func TestHub_EmitAllAndEmitTo(t *testing.T) {
	hub := startHub(t)
	a := connect(t, hub, "a")
	b := connect(t, hub, "b")
	c := connect(t, hub, "c")
	for _, cl := range []*Client{a, b, c} {
		next(t, cl) // greeting
	}

	hub.EmitAll("public-message", map[string]string{"message": "hi all"})
	for _, cl := range []*Client{a, b, c} {
		env := next(t, cl)
		assert.Equal(t, "public-message", env.Event)
		assert.JSONEq(t, `{"message":"hi all"}`, string(env.Data))
	}

	hub.EmitTo([]string{"a", "b", "offline"}, "private-message", map[string]string{"message": "psst"})
	assert.Equal(t, "private-message", next(t, a).Event)
	assert.Equal(t, "private-message", next(t, b).Event)
	select {
	case <-c.Send:
		t.Fatal("third party received a private message")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_FullQueueDropsFrame(t *testing.T) {
	hub := startHub(t)
	c := connect(t, hub, "u1")

	for i := 0; i < cap(c.Send)+10; i++ {
		hub.EmitAll("public-message", nil)
	}
	assert.Len(t, c.Send, cap(c.Send))
	assert.ErrorIs(t, c.SendEvent("x", nil), ErrClientQueueFull)
}

func TestHub_StopRejectsRegistration(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	go hub.Run()
	c := connect(t, hub, "u1")
	hub.Stop()

	_, ok := hub.Lookup("u1")
	assert.False(t, ok)
	assert.ErrorIs(t, c.SendEvent("x", nil), ErrClientClosed)
	assert.ErrorIs(t, hub.Register(NewClient(hub, nil, "u2")), ErrHubStopped)
}
