package core

import (
	"context"
	"testing"
	"time"

	"github.com/vovakirdan/channelhub/internal/channels"
	"github.com/vovakirdan/channelhub/internal/store/sqlite"
)

func mustEvent(t testing.TB, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

func noEvent(t testing.TB, ch <-chan *Event, kind EventKind, wait time.Duration) {
	t.Helper()

	deadline := time.Now().Add(wait)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev != nil && ev.Kind == kind {
				t.Fatalf("unexpected event kind %v: %+v", kind, ev)
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
}

type testEnv struct {
	hub   *Hub
	users map[string]int64
}

// newTestEnv starts a hub backed by an in-memory store with the given users.
func newTestEnv(t testing.TB, names ...string) *testEnv {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	env := &testEnv{users: make(map[string]int64)}
	for _, name := range names {
		u, err := st.CreateUser(context.Background(), name, "hash")
		if err != nil {
			t.Fatalf("create user %s: %v", name, err)
		}
		env.users[name] = u.ID
	}

	svc := channels.New(st, channels.Options{KickThreshold: 3}, nil)
	env.hub = NewHub(svc, Options{TypingTTL: time.Second}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go env.hub.Run(ctx)
	t.Cleanup(cancel)
	return env
}

// connect registers a new connection for an existing user.
func (e *testEnv) connect(t testing.TB, name string) *Client {
	t.Helper()

	id, ok := e.users[name]
	if !ok {
		t.Fatalf("unknown test user %s", name)
	}
	c := NewClient(name+"-"+time.Now().Format("150405.000000000"), id, name)
	e.hub.RegisterClient(c)
	mustEvent(t, c.Events, EventUserList)
	return c
}

// join joins a channel and waits for the confirmation.
func join(t testing.TB, c *Client, channel string, private bool) *Event {
	t.Helper()

	c.Commands <- &Command{Kind: CommandJoinChannel, Channel: channel, IsPrivate: private}
	return mustEvent(t, c.Events, EventChannelJoined)
}
