package ws

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"chat-style-studio/internal/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, c *Client) model.Event {
	t.Helper()
	select {
	case b, ok := <-c.send:
		require.True(t, ok, "send channel closed")
		var evt model.Event
		require.NoError(t, json.Unmarshal(b, &evt))
		return evt
	case <-time.After(2 * time.Second):
		t.Fatal("no event delivered")
	}
	return model.Event{}
}

func TestHubBroadcastsToRegisteredClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(zerolog.Nop())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	c := NewClient(hub, nil)
	hub.Register(c)
	hub.Publish(model.Event{Type: "generation.completed", CollectionID: "c1"})

	evt := receive(t, c)
	assert.Equal(t, "generation.completed", evt.Type)
	assert.Equal(t, "c1", evt.CollectionID)

	cancel()
	<-done
	_, ok := <-c.send
	assert.False(t, ok)
}

func TestHubUnregisterClosesClient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub(zerolog.Nop())
	go hub.Run(ctx)

	c := NewClient(hub, nil)
	hub.Register(c)
	hub.Unregister(c)

	select {
	case _, ok := <-c.send:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("client not closed")
	}
}

func TestCollectionHubRoutesByCollection(t *testing.T) {
	hub := NewCollectionHub()
	a := newClientWithClose(nil, nil)
	b := newClientWithClose(nil, nil)
	hub.add("chat-a", a)
	hub.add("chat-b", b)

	hub.Publish(model.Event{Type: "image.added", CollectionID: "chat-a"})
	hub.Publish(model.Event{Type: "ignored"})

	evt := receive(t, a)
	assert.Equal(t, "image.added", evt.Type)
	assert.Empty(t, b.send)
	assert.Equal(t, 1, hub.Watchers("chat-a"))

	hub.Unregister("chat-a", a)
	assert.Equal(t, 0, hub.Watchers("chat-a"))
	_, ok := <-a.send
	assert.False(t, ok)
}

func TestCollectionHubDropsSlowClient(t *testing.T) {
	hub := NewCollectionHub()
	c := newClientWithClose(nil, nil)
	hub.add("chat", c)

	for i := 0; i < sendBuffer+1; i++ {
		hub.Publish(model.Event{Type: "tick", CollectionID: "chat"})
	}
	assert.Equal(t, 0, hub.Watchers("chat"))
}

func TestMultiPublishesToAll(t *testing.T) {
	first := NewCollectionHub()
	second := NewCollectionHub()
	a := newClientWithClose(nil, nil)
	b := newClientWithClose(nil, nil)
	first.add("x", a)
	second.add("x", b)

	Multi{first, second}.Publish(model.Event{Type: "t", CollectionID: "x"})

	assert.Equal(t, "t", receive(t, a).Type)
	assert.Equal(t, "t", receive(t, b).Type)
}

func TestHubRegisterAndUnregisterReturnAfterRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(zerolog.Nop())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()
	registered := NewClient(hub, nil)
	hub.Register(registered)
	cancel()
	<-done

	returned := make(chan struct{})
	late := NewClient(hub, nil)
	go func() {
		hub.Unregister(registered)
		hub.Register(late)
		close(returned)
	}()

	select {
	case <-returned:
	case <-time.After(2 * time.Second):
		t.Fatal("hub calls blocked after Run returned")
	}
	_, ok := <-late.send
	assert.False(t, ok)
}

func TestCollectionHubPublishWhileUnregistering(t *testing.T) {
	hub := NewCollectionHub()
	clients := make([]*Client, 2000)
	for i := range clients {
		clients[i] = newClientWithClose(nil, nil)
		hub.add("chat", clients[i])
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for _, c := range clients {
			hub.Unregister("chat", c)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			hub.Publish(model.Event{Type: "tick", CollectionID: "chat"})
		}
	}()

	wg.Wait()
	assert.Equal(t, 0, hub.Watchers("chat"))
}
