package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandJoinChannel joins or creates a channel.
	CommandJoinChannel CommandKind = iota
	// CommandLeaveChannel leaves a channel; an admin leaving deletes it.
	CommandLeaveChannel
	// CommandSendMessage posts a chat message to a channel.
	CommandSendMessage
	// CommandLoadMessages requests a channel's recent history.
	CommandLoadMessages
	// CommandListUsers requests a channel's active members.
	CommandListUsers
	// CommandLoadChannels requests the caller's channels.
	CommandLoadChannels
	// CommandCheckAccess asks whether the caller may enter a channel.
	CommandCheckAccess
	// CommandCheckAdmin asks whether the caller administers a channel.
	CommandCheckAdmin
	// CommandInviteUser adds a user to a channel or lifts their ban.
	CommandInviteUser
	// CommandRevokeUser removes a user's membership.
	CommandRevokeUser
	// CommandKickUser casts a kick against a user.
	CommandKickUser
	// CommandTyping signals that the caller is typing.
	CommandTyping
	// CommandSetStatus changes the caller's presence status.
	CommandSetStatus
)

var commandNames = map[CommandKind]string{
	CommandJoinChannel:  "join_channel",
	CommandLeaveChannel: "leave_channel",
	CommandSendMessage:  "send_message",
	CommandLoadMessages: "load_messages",
	CommandListUsers:    "list_users",
	CommandLoadChannels: "load_channels",
	CommandCheckAccess:  "check_access",
	CommandCheckAdmin:   "check_admin",
	CommandInviteUser:   "invite_user",
	CommandRevokeUser:   "revoke_user",
	CommandKickUser:     "kick_user",
	CommandTyping:       "typing",
	CommandSetStatus:    "set_status",
}

func (k CommandKind) String() string {
	if name, ok := commandNames[k]; ok {
		return name
	}
	return "unknown"
}

// Command represents an action requested by a client.
type Command struct {
	Kind    CommandKind
	Channel string

	// IsPrivate applies when a join creates the channel.
	IsPrivate bool
	// Username is the target of invite, revoke and kick.
	Username string
	// Text is the message body or the typing preview.
	Text   string
	System bool
	// BeforeID pages history backwards when set.
	BeforeID *int64
	Status   string
}
