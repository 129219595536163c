package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type    string          `json:"type"`
	Channel string          `json:"channel,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

const (
	InboundTypeHello        = "hello"
	InboundTypeJoinChannel  = "joinChannel"
	InboundTypeLeaveChannel = "leaveChannel"
	InboundTypeAddMessage   = "addMessage"
	InboundTypeLoadMessages = "loadMessages"
	InboundTypeListUsers    = "listUsers"
	InboundTypeLoadChannels = "loadChannels"
	InboundTypeCheckAccess  = "checkAccess"
	InboundTypeCheckAdmin   = "checkAdmin"
	InboundTypeInviteUser   = "inviteUser"
	InboundTypeRevokeUser   = "revokeUser"
	InboundTypeKickUser     = "kickUser"
	InboundTypeUserTyping   = "userTyping"
	InboundTypeSetStatus    = "setStatus"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"
)

// HelloData authenticates a connection that did not send a bearer header.
type HelloData struct {
	Token string `json:"token"`
}

// JoinData carries the privacy of a channel created by the join.
type JoinData struct {
	IsPrivate bool `json:"isPrivate"`
}

// MessageData is a chat message from the client.
type MessageData struct {
	Content string `json:"content"`
	System  bool   `json:"system,omitempty"`
}

// LoadMessagesData pages history backwards from a message id.
type LoadMessagesData struct {
	Before *int64 `json:"before,omitempty"`
}

// TargetData names the user of an invite, revoke or kick.
type TargetData struct {
	Username string `json:"username"`
}

// TypingData carries a preview of what the user is typing.
type TypingData struct {
	Text string `json:"text"`
}

// StatusData changes the caller's presence status.
type StatusData struct {
	Status string `json:"status"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type    string `json:"type"`
	Event   string `json:"event,omitempty"`
	Channel string `json:"channel,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   *Error `json:"error,omitempty"`
}

// EventMessage is a chat message.
type EventMessage struct {
	ID     int64  `json:"id"`
	User   string `json:"user,omitempty"`
	Text   string `json:"text"`
	System bool   `json:"system,omitempty"`
	TS     int64  `json:"ts"`
}

// EventMessages is a page of channel history, oldest first.
type EventMessages struct {
	Messages []EventMessage `json:"messages"`
}

// EventChannel describes a channel from the receiver's point of view.
type EventChannel struct {
	Name      string `json:"name"`
	IsPrivate bool   `json:"isPrivate"`
	IsAdmin   bool   `json:"isAdmin"`
}

// EventChannels lists the receiver's channels.
type EventChannels struct {
	Channels []EventChannel `json:"channels"`
}

// EventUser names a user that joined, left, created or deleted something.
type EventUser struct {
	User string `json:"user"`
}

// EventUsers lists a channel's active members.
type EventUsers struct {
	Users []string `json:"users"`
}

// EventAdmin answers an admin check.
type EventAdmin struct {
	IsAdmin bool `json:"isAdmin"`
}

// EventModeration reports an invite, revoke or kick.
type EventModeration struct {
	By       string `json:"by"`
	Username string `json:"username"`
	Outcome  string `json:"outcome,omitempty"`
	Kicks    int    `json:"kicks,omitempty"`
}

// EventTyping is a typing indicator the receiver clears after TTLMs.
type EventTyping struct {
	User  string `json:"user"`
	Text  string `json:"text"`
	TTLMs int64  `json:"ttl_ms"`
}

// EventPresence is one user's presence status.
type EventPresence struct {
	User   string `json:"user"`
	Status string `json:"status"`
}

// EventUserList lists the users online when the receiver connected.
type EventUserList struct {
	Users []EventPresence `json:"users"`
}

// Error describes an error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
