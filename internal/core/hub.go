package core

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/channelhub/internal/channels"
	"github.com/vovakirdan/channelhub/internal/store"
)

// DefaultTypingTTL is how long a typing indicator stays visible.
const DefaultTypingTTL = 5 * time.Second

// ChannelService abstracts channel business logic for the Hub.
// Every call is atomic; the Hub serializes calls per channel.
type ChannelService interface {
	Join(ctx context.Context, userID int64, name string, isPrivate bool) (*channels.JoinResult, error)
	Leave(ctx context.Context, userID int64, name string) (*channels.LeaveResult, error)
	Invite(ctx context.Context, actorID int64, name, username string) (*channels.TargetResult, error)
	Revoke(ctx context.Context, actorID int64, name, username string) (*channels.TargetResult, error)
	Kick(ctx context.Context, actorID int64, name, username string) (*channels.KickResult, error)

	CheckAccess(ctx context.Context, userID int64, name string) (*store.Channel, error)
	IsAdmin(ctx context.Context, userID int64, name string) (bool, error)
	CanPost(ctx context.Context, userID int64, name string) (*store.Channel, error)

	ListChannels(ctx context.Context, userID int64) ([]*store.UserChannel, error)
	ListMembers(ctx context.Context, userID int64, name string) ([]string, error)

	PostMessage(ctx context.Context, userID int64, username, name, content string, system bool) (*store.Message, error)
	LoadMessages(ctx context.Context, userID int64, name string, beforeID *int64) ([]*store.Message, error)
}

// Options tunes a Hub.
type Options struct {
	TypingTTL time.Duration
}

type handlerFunc func(ctx context.Context, c *Client, cmd *Command)

// Hub routes client commands to the channel service and fans the
// resulting events out to the affected connections.
//
// Each client gets its own goroutine, so one connection's commands run in
// order. Commands naming a channel hold that channel's lock across the
// service call and the fan-out, so a room sees events in commit order.
type Hub struct {
	svc       ChannelService
	sessions  *Sessions
	locks     *keyedMutex
	typingTTL time.Duration
	log       *zerolog.Logger
	handlers  map[CommandKind]handlerFunc

	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	wg         sync.WaitGroup
}

// NewHub creates a new hub instance.
func NewHub(svc ChannelService, opts Options, logger *zerolog.Logger) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if opts.TypingTTL <= 0 {
		opts.TypingTTL = DefaultTypingTTL
	}

	h := &Hub{
		svc:        svc,
		sessions:   NewSessions(),
		locks:      newKeyedMutex(),
		typingTTL:  opts.TypingTTL,
		log:        logger,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
	h.handlers = h.routes()
	return h
}

// Sessions exposes the live connection registry.
func (h *Hub) Sessions() *Sessions {
	return h.sessions
}

// Run processes registrations until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.sessions.closeAll()
			h.wg.Wait()
			h.log.Info().Msg("hub stopped")
			return
		case c := <-h.register:
			h.handleRegister(ctx, c)
		case c := <-h.unregister:
			h.handleUnregister(c)
		}
	}
}

// RegisterClient adds a connection and starts serving its commands.
func (h *Hub) RegisterClient(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		c.Close()
	}
}

// UnregisterClient removes a connection from every room.
func (h *Hub) UnregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
		c.Close()
	}
}

func (h *Hub) handleRegister(ctx context.Context, c *Client) {
	first := h.sessions.Add(c)
	c.send(&Event{Kind: EventUserList, Presence: h.sessions.OnlineExcept(c.UserID)})
	if first {
		h.sessions.BroadcastOthers(&Event{Kind: EventUserOnline, User: c.Username, Status: StatusOnline}, c.UserID)
	}

	h.log.Debug().Str("client_id", c.ID).Int64("user_id", c.UserID).Bool("first", first).Msg("client registered")

	h.wg.Add(1)
	go h.serve(ctx, c)
}

func (h *Hub) handleUnregister(c *Client) {
	c.Close()
	if h.sessions.Remove(c) {
		h.sessions.BroadcastOthers(&Event{Kind: EventUserOffline, User: c.Username, Status: StatusOffline}, c.UserID)
	}
	h.log.Debug().Str("client_id", c.ID).Int64("user_id", c.UserID).Msg("client unregistered")
}

func (h *Hub) serve(ctx context.Context, c *Client) {
	defer h.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.Done():
			return
		case cmd := <-c.Commands:
			if cmd != nil {
				h.dispatch(ctx, c, cmd)
			}
		}
	}
}

func (h *Hub) dispatch(ctx context.Context, c *Client, cmd *Command) {
	handler, ok := h.handlers[cmd.Kind]
	if !ok {
		h.reply(c, &Event{Kind: EventError, Error: coreError(ErrCodeBadRequest, ErrUnknownCommand.Error())})
		return
	}

	cmd.Channel = strings.TrimSpace(cmd.Channel)
	if cmd.Channel != "" {
		unlock := h.locks.Lock(cmd.Channel)
		defer unlock()
	}

	handler(ctx, c, cmd)
}

// reply sends an event to the initiating connection only.
func (h *Hub) reply(c *Client, ev *Event) {
	if !c.send(ev) {
		h.log.Debug().Str("client_id", c.ID).Int("event", int(ev.Kind)).Msg("event dropped")
	}
}

// fail reports err to the initiating connection as a scoped error event.
func (h *Hub) fail(c *Client, kind EventKind, cmd *Command, err error) {
	ce := errorFrom(err)
	if ce.Code == ErrCodeInternal {
		h.log.Error().Err(err).Str("client_id", c.ID).Str("channel", cmd.Channel).Str("command", cmd.Kind.String()).Msg("command failed")
	}
	h.reply(c, &Event{Kind: kind, Channel: cmd.Channel, Target: cmd.Username, Error: ce})
}
