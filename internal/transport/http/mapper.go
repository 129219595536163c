package http

import (
	"encoding/json"
	"strings"

	"github.com/vovakirdan/channelhub/internal/core"
	"github.com/vovakirdan/channelhub/internal/proto"
)

var eventNames = map[core.EventKind]string{
	core.EventChannelJoined:  "channel:joined",
	core.EventChannelCreated: "channel:created",
	core.EventChannelLeft:    "channel:left",
	core.EventChannelDeleted: "channel:deleted",
	core.EventJoinPrivate:    "channel:join:private",
	core.EventJoinError:      "channel:join:error",
	core.EventLeaveError:     "channel:leave:error",
	core.EventAccessGranted:  "channel:access:granted",
	core.EventAccessDenied:   "channel:access:denied",
	core.EventAccessError:    "channel:access:error",
	core.EventAdmin:          "channel:admin",
	core.EventAdminError:     "channel:admin:error",
	core.EventUserJoined:     "user:joined",
	core.EventUserLeft:       "user:left",
	core.EventUserInvited:    "user:invited",
	core.EventUserRevoked:    "user:revoked",
	core.EventUserKicked:     "user:kicked",
	core.EventInviteError:    "user:invite:error",
	core.EventRevokeError:    "user:revoke:error",
	core.EventKickError:      "user:kick:error",
	core.EventMessage:        "message",
	core.EventMessageError:   "message:error",
	core.EventMessages:       "messages",
	core.EventMessagesError:  "messages:error",
	core.EventUsers:          "users",
	core.EventUsersError:     "users:error",
	core.EventChannels:       "loadChannels:response",
	core.EventChannelsError:  "loadChannels:error",
	core.EventUserTyping:     "user:typing",
	core.EventUserOnline:     "user:online",
	core.EventUserOffline:    "user:offline",
	core.EventUserList:       "user:list",
	core.EventUserStatus:     "user:status",
}

// channelCommands need a channel name on the envelope.
var channelCommands = map[string]core.CommandKind{
	proto.InboundTypeJoinChannel:  core.CommandJoinChannel,
	proto.InboundTypeLeaveChannel: core.CommandLeaveChannel,
	proto.InboundTypeAddMessage:   core.CommandSendMessage,
	proto.InboundTypeLoadMessages: core.CommandLoadMessages,
	proto.InboundTypeListUsers:    core.CommandListUsers,
	proto.InboundTypeCheckAccess:  core.CommandCheckAccess,
	proto.InboundTypeCheckAdmin:   core.CommandCheckAdmin,
	proto.InboundTypeInviteUser:   core.CommandInviteUser,
	proto.InboundTypeRevokeUser:   core.CommandRevokeUser,
	proto.InboundTypeKickUser:     core.CommandKickUser,
	proto.InboundTypeUserTyping:   core.CommandTyping,
}

func badRequest(msg string) *proto.Error {
	return &proto.Error{Code: core.ErrCodeBadRequest, Msg: msg}
}

// decode unmarshals optional payload data; an absent payload leaves v untouched.
func decode(data json.RawMessage, v any) *proto.Error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return badRequest("invalid data payload")
	}
	return nil
}

func inboundToCommand(inbound proto.Inbound) (*core.Command, *proto.Error) {
	switch inbound.Type {
	case proto.InboundTypeLoadChannels:
		return &core.Command{Kind: core.CommandLoadChannels}, nil
	case proto.InboundTypeSetStatus:
		var data proto.StatusData
		if perr := decode(inbound.Data, &data); perr != nil {
			return nil, perr
		}
		return &core.Command{Kind: core.CommandSetStatus, Status: data.Status}, nil
	case proto.InboundTypeHello:
		return nil, badRequest("already authenticated")
	}

	kind, ok := channelCommands[inbound.Type]
	if !ok {
		return nil, &proto.Error{Code: "invalid_message", Msg: "unknown message type"}
	}
	channel := strings.TrimSpace(inbound.Channel)
	if channel == "" {
		return nil, badRequest("channel is required")
	}
	cmd := &core.Command{Kind: kind, Channel: channel}

	switch kind {
	case core.CommandJoinChannel:
		var data proto.JoinData
		if perr := decode(inbound.Data, &data); perr != nil {
			return nil, perr
		}
		cmd.IsPrivate = data.IsPrivate
	case core.CommandSendMessage:
		var data proto.MessageData
		if perr := decode(inbound.Data, &data); perr != nil {
			return nil, perr
		}
		cmd.Text = data.Content
		cmd.System = data.System
	case core.CommandLoadMessages:
		var data proto.LoadMessagesData
		if perr := decode(inbound.Data, &data); perr != nil {
			return nil, perr
		}
		cmd.BeforeID = data.Before
	case core.CommandInviteUser, core.CommandRevokeUser, core.CommandKickUser:
		var data proto.TargetData
		if perr := decode(inbound.Data, &data); perr != nil {
			return nil, perr
		}
		if strings.TrimSpace(data.Username) == "" {
			return nil, badRequest("username is required")
		}
		cmd.Username = strings.TrimSpace(data.Username)
	case core.CommandTyping:
		var data proto.TypingData
		if perr := decode(inbound.Data, &data); perr != nil {
			return nil, perr
		}
		cmd.Text = data.Text
	}
	return cmd, nil
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	name, ok := eventNames[event.Kind]
	if !ok || event.Kind == core.EventError {
		if event.Error == nil {
			return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unknown error"}}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: event.Error.Code, Msg: event.Error.Message},
		}
	}

	out := proto.Outbound{Type: proto.OutboundTypeEvent, Event: name, Channel: event.Channel}
	if event.Error != nil {
		out.Error = &proto.Error{Code: event.Error.Code, Msg: event.Error.Message}
		if event.Target != "" {
			out.Data = proto.EventModeration{Username: event.Target}
		}
		return out
	}

	switch event.Kind {
	case core.EventChannelJoined, core.EventAccessGranted:
		out.Data = proto.EventChannel{Name: event.Channel, IsPrivate: event.IsPrivate, IsAdmin: event.IsAdmin}
	case core.EventChannelCreated, core.EventChannelLeft, core.EventChannelDeleted,
		core.EventUserJoined, core.EventUserLeft:
		out.Data = proto.EventUser{User: event.User}
	case core.EventAdmin:
		out.Data = proto.EventAdmin{IsAdmin: event.IsAdmin}
	case core.EventUserInvited, core.EventUserRevoked, core.EventUserKicked:
		out.Data = proto.EventModeration{
			By:       event.User,
			Username: event.Target,
			Outcome:  event.Outcome,
			Kicks:    event.Kicks,
		}
	case core.EventMessage:
		if event.Message != nil {
			out.Data = messageFrom(*event.Message)
		}
	case core.EventMessages:
		messages := make([]proto.EventMessage, 0, len(event.Messages))
		for _, msg := range event.Messages {
			messages = append(messages, messageFrom(msg))
		}
		out.Data = proto.EventMessages{Messages: messages}
	case core.EventUsers:
		users := event.Users
		if users == nil {
			users = []string{}
		}
		out.Data = proto.EventUsers{Users: users}
	case core.EventChannels:
		channels := make([]proto.EventChannel, 0, len(event.Channels))
		for _, ch := range event.Channels {
			channels = append(channels, proto.EventChannel{Name: ch.Name, IsPrivate: ch.IsPrivate, IsAdmin: ch.IsAdmin})
		}
		out.Data = proto.EventChannels{Channels: channels}
	case core.EventUserTyping:
		out.Data = proto.EventTyping{User: event.User, Text: event.Text, TTLMs: event.TTL.Milliseconds()}
	case core.EventUserOnline, core.EventUserOffline, core.EventUserStatus:
		out.Data = proto.EventPresence{User: event.User, Status: event.Status}
	case core.EventUserList:
		users := make([]proto.EventPresence, 0, len(event.Presence))
		for _, p := range event.Presence {
			users = append(users, proto.EventPresence{User: p.Username, Status: p.Status})
		}
		out.Data = proto.EventUserList{Users: users}
	}
	return out
}

func messageFrom(msg core.Message) proto.EventMessage {
	return proto.EventMessage{
		ID:     msg.ID,
		User:   msg.From,
		Text:   msg.Text,
		System: msg.System,
		TS:     msg.CreatedAt.Unix(),
	}
}
