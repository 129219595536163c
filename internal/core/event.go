package core

import "time"

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventError reports a failure that is not scoped to an operation.
	EventError EventKind = iota

	// EventChannelJoined confirms a join to the joining connection.
	EventChannelJoined
	// EventChannelCreated announces a new public channel.
	EventChannelCreated
	// EventChannelLeft confirms a leave.
	EventChannelLeft
	// EventChannelDeleted announces that a channel no longer exists.
	EventChannelDeleted
	// EventJoinPrivate refuses a join to a private channel without invitation.
	EventJoinPrivate
	EventJoinError
	EventLeaveError

	EventAccessGranted
	EventAccessDenied
	EventAccessError
	EventAdmin
	EventAdminError

	// EventUserJoined notifies a room that a user joined.
	EventUserJoined
	// EventUserLeft notifies a room that a user left or was removed.
	EventUserLeft
	// EventUserInvited is delivered to the invitee and acknowledged to the inviter.
	EventUserInvited
	// EventUserRevoked is delivered to the revoked user and acknowledged to the admin.
	EventUserRevoked
	// EventUserKicked is delivered to the kicked user and acknowledged to the kicker.
	EventUserKicked
	EventInviteError
	EventRevokeError
	EventKickError

	// EventMessage carries a chat message to a room.
	EventMessage
	EventMessageError
	// EventMessages answers a history request.
	EventMessages
	EventMessagesError
	// EventUsers answers a member listing.
	EventUsers
	EventUsersError
	// EventChannels answers a channel listing.
	EventChannels
	EventChannelsError

	// EventUserTyping carries a typing indicator that expires after TTL.
	EventUserTyping
	EventUserOnline
	EventUserOffline
	// EventUserList lists online users to a freshly connected client.
	EventUserList
	EventUserStatus
)

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind    EventKind
	Channel string
	// User is the acting user.
	User string
	// Target is the user affected by invite, revoke and kick.
	Target    string
	IsPrivate bool
	IsAdmin   bool

	Message  *Message
	Messages []Message
	Users    []string
	Channels []ChannelInfo
	Presence []Presence

	// Outcome and Kicks describe a kick: "voted", "banned" or "duplicate".
	Outcome string
	Kicks   int

	Text   string
	TTL    time.Duration
	Status string
	Error  *CoreError
}

// Message is the domain model for a chat message.
type Message struct {
	ID        int64
	Channel   string
	From      string
	Text      string
	System    bool
	CreatedAt time.Time
}

// ChannelInfo is a channel as listed to one of its members.
type ChannelInfo struct {
	Name      string
	IsPrivate bool
	IsAdmin   bool
}

// Presence is an online user and their status.
type Presence struct {
	Username string
	Status   string
}
