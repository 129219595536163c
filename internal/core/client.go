package core

import "sync"

const (
	commandBuffer = 16
	eventBuffer   = 64
)

// Client is one authenticated connection as seen by the core layer.
// A user may hold several clients at once.
type Client struct {
	ID       string
	UserID   int64
	Username string
	Commands chan *Command
	Events   chan *Event

	quit      chan struct{}
	closeOnce sync.Once
}

// NewClient constructs a client with initialized channels.
func NewClient(id string, userID int64, username string) *Client {
	return &Client{
		ID:       id,
		UserID:   userID,
		Username: username,
		Commands: make(chan *Command, commandBuffer),
		Events:   make(chan *Event, eventBuffer),
		quit:     make(chan struct{}),
	}
}

// Done is closed once the client has been unregistered.
func (c *Client) Done() <-chan struct{} {
	return c.quit
}

// Close marks the client as gone. Events is never closed so late
// broadcasts cannot panic; they are dropped instead.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.quit) })
}

// send delivers an event without blocking. It reports false when the
// client is gone or its queue is full.
func (c *Client) send(ev *Event) bool {
	select {
	case <-c.quit:
		return false
	default:
	}
	select {
	case c.Events <- ev:
		return true
	default:
		// Drop if slow consumer.
		return false
	}
}
