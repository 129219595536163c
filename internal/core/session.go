package core

import (
	"sort"
	"sync"
)

// Presence statuses a user may set.
const (
	StatusOnline  = "online"
	StatusIdle    = "idle"
	StatusDND     = "dnd"
	StatusOffline = "offline"
)

func validStatus(s string) bool {
	switch s {
	case StatusOnline, StatusIdle, StatusDND, StatusOffline:
		return true
	}
	return false
}

// Sessions tracks live connections, their channel subscriptions and
// per-user presence. A user is online while at least one of their
// connections is registered.
type Sessions struct {
	mu      sync.RWMutex
	rooms   map[string]*Room
	clients map[*Client]map[string]struct{}
	byUser  map[int64]map[*Client]struct{}
	status  map[int64]string
}

// NewSessions creates an empty registry.
func NewSessions() *Sessions {
	return &Sessions{
		rooms:   make(map[string]*Room),
		clients: make(map[*Client]map[string]struct{}),
		byUser:  make(map[int64]map[*Client]struct{}),
		status:  make(map[int64]string),
	}
}

// Add registers a connection. It reports true for the user's first connection.
func (s *Sessions) Add(c *Client) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.clients[c]; ok {
		return false
	}
	s.clients[c] = make(map[string]struct{})

	conns, ok := s.byUser[c.UserID]
	if !ok {
		conns = make(map[*Client]struct{})
		s.byUser[c.UserID] = conns
		s.status[c.UserID] = StatusOnline
	}
	conns[c] = struct{}{}
	return !ok
}

// Remove unregisters a connection and unsubscribes it from every room.
// It reports true when the user has no connections left.
func (s *Sessions) Remove(c *Client) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	subs, ok := s.clients[c]
	if !ok {
		return false
	}
	for name := range subs {
		if room, ok := s.rooms[name]; ok {
			room.RemoveClient(c)
			if room.Empty() {
				delete(s.rooms, name)
			}
		}
	}
	delete(s.clients, c)

	conns := s.byUser[c.UserID]
	delete(conns, c)
	if len(conns) > 0 {
		return false
	}
	delete(s.byUser, c.UserID)
	delete(s.status, c.UserID)
	return true
}

// Subscribe adds a registered connection to a channel's room.
// Unregistered connections are ignored.
func (s *Sessions) Subscribe(channel string, c *Client) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	subs, ok := s.clients[c]
	if !ok {
		return false
	}
	room, ok := s.rooms[channel]
	if !ok {
		room = NewRoom(channel)
		s.rooms[channel] = room
	}
	subs[channel] = struct{}{}
	return room.AddClient(c)
}

// Unsubscribe removes one connection from a channel's room.
func (s *Sessions) Unsubscribe(channel string, c *Client) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[channel]
	if !ok {
		return false
	}
	if subs, ok := s.clients[c]; ok {
		delete(subs, channel)
	}
	removed := room.RemoveClient(c)
	if room.Empty() {
		delete(s.rooms, channel)
	}
	return removed
}

// UnsubscribeUser removes every connection of a user from a channel's room.
func (s *Sessions) UnsubscribeUser(channel string, userID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	for c := range s.byUser[userID] {
		delete(s.clients[c], channel)
	}
	room, ok := s.rooms[channel]
	if !ok {
		return 0
	}
	removed := room.RemoveUser(userID)
	if room.Empty() {
		delete(s.rooms, channel)
	}
	return removed
}

// DropRoom forgets a channel's room and all its subscriptions.
func (s *Sessions) DropRoom(channel string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[channel]
	if !ok {
		return
	}
	for c := range room.clients {
		delete(s.clients[c], channel)
	}
	delete(s.rooms, channel)
}

// Subscribed reports whether the connection is in the channel's room.
func (s *Sessions) Subscribed(channel string, c *Client) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	room, ok := s.rooms[channel]
	return ok && room.Has(c)
}

// RoomSize returns the number of connections subscribed to a channel.
func (s *Sessions) RoomSize(channel string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if room, ok := s.rooms[channel]; ok {
		return room.Len()
	}
	return 0
}

// BroadcastRoom sends an event to a channel's subscribers except one connection.
func (s *Sessions) BroadcastRoom(channel string, ev *Event, except *Client) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if room, ok := s.rooms[channel]; ok {
		room.Broadcast(ev, except)
	}
}

// BroadcastAll sends an event to every connection except one.
func (s *Sessions) BroadcastAll(ev *Event, except *Client) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for c := range s.clients {
		if c != except {
			c.send(ev)
		}
	}
}

// BroadcastOthers sends an event to every connection not owned by userID.
func (s *Sessions) BroadcastOthers(ev *Event, userID int64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for c := range s.clients {
		if c.UserID != userID {
			c.send(ev)
		}
	}
}

// SendToUser delivers an event to all connections of a user and returns
// how many accepted it.
func (s *Sessions) SendToUser(userID int64, ev *Event) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sent := 0
	for c := range s.byUser[userID] {
		if c.send(ev) {
			sent++
		}
	}
	return sent
}

// SetStatus records a user's presence status. Offline users are ignored.
func (s *Sessions) SetStatus(userID int64, status string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byUser[userID]; !ok {
		return false
	}
	s.status[userID] = status
	return true
}

// Online lists connected users with their status, sorted by username.
func (s *Sessions) Online() []Presence {
	return s.OnlineExcept(0)
}

// OnlineExcept is Online without the given user.
func (s *Sessions) OnlineExcept(userID int64) []Presence {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Presence, 0, len(s.byUser))
	for id, conns := range s.byUser {
		if id == userID {
			continue
		}
		for c := range conns {
			out = append(out, Presence{Username: c.Username, Status: s.status[id]})
			break
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}

// Connections returns the number of registered connections.
func (s *Sessions) Connections() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// closeAll marks every registered connection as gone.
func (s *Sessions) closeAll() {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for c := range s.clients {
		c.Close()
	}
}
