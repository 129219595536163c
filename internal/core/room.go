package core

// Room groups the connections subscribed to one channel.
// It is not safe for concurrent use; Sessions guards it.
type Room struct {
	Name    string
	clients map[*Client]struct{}
}

// NewRoom constructs a room with no clients.
func NewRoom(name string) *Room {
	return &Room{
		Name:    name,
		clients: make(map[*Client]struct{}),
	}
}

// AddClient inserts a client into the room. Returns true if newly added.
func (r *Room) AddClient(c *Client) bool {
	if _, exists := r.clients[c]; exists {
		return false
	}
	r.clients[c] = struct{}{}
	return true
}

// RemoveClient deletes a client from the room. Returns true if removed.
func (r *Room) RemoveClient(c *Client) bool {
	if _, exists := r.clients[c]; !exists {
		return false
	}
	delete(r.clients, c)
	return true
}

// RemoveUser deletes every connection of a user and returns how many were removed.
func (r *Room) RemoveUser(userID int64) int {
	removed := 0
	for c := range r.clients {
		if c.UserID == userID {
			delete(r.clients, c)
			removed++
		}
	}
	return removed
}

// Broadcast sends an event to all clients in the room except one.
func (r *Room) Broadcast(event *Event, except *Client) {
	for client := range r.clients {
		if client == except {
			continue
		}
		client.send(event)
	}
}

// Has reports whether the client is subscribed.
func (r *Room) Has(c *Client) bool {
	_, ok := r.clients[c]
	return ok
}

// Len returns the number of subscribed connections.
func (r *Room) Len() int {
	return len(r.clients)
}

// Empty returns true if no clients are in the room.
func (r *Room) Empty() bool {
	return len(r.clients) == 0
}
