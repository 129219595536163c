package core

import (
	"context"
	"errors"

	"github.com/vovakirdan/channelhub/internal/channels"
	"github.com/vovakirdan/channelhub/internal/store"
)

func (h *Hub) routes() map[CommandKind]handlerFunc {
	return map[CommandKind]handlerFunc{
		CommandJoinChannel:  h.handleJoin,
		CommandLeaveChannel: h.handleLeave,
		CommandSendMessage:  h.handleMessage,
		CommandLoadMessages: h.handleLoadMessages,
		CommandListUsers:    h.handleListUsers,
		CommandLoadChannels: h.handleLoadChannels,
		CommandCheckAccess:  h.handleCheckAccess,
		CommandCheckAdmin:   h.handleCheckAdmin,
		CommandInviteUser:   h.handleInvite,
		CommandRevokeUser:   h.handleRevoke,
		CommandKickUser:     h.handleKick,
		CommandTyping:       h.handleTyping,
		CommandSetStatus:    h.handleSetStatus,
	}
}

func (h *Hub) handleJoin(ctx context.Context, c *Client, cmd *Command) {
	res, err := h.svc.Join(ctx, c.UserID, cmd.Channel, cmd.IsPrivate)
	if err != nil {
		kind := EventJoinError
		if errors.Is(err, channels.ErrPrivateChannel) {
			kind = EventJoinPrivate
		}
		h.fail(c, kind, cmd, err)
		return
	}

	ch := res.Channel
	subscribed := h.sessions.Subscribe(ch.Name, c)
	h.reply(c, &Event{
		Kind:      EventChannelJoined,
		Channel:   ch.Name,
		User:      c.Username,
		IsPrivate: ch.IsPrivate,
		IsAdmin:   res.Membership.IsAdmin,
	})

	if res.Created && !ch.IsPrivate {
		h.sessions.BroadcastAll(&Event{Kind: EventChannelCreated, Channel: ch.Name, User: c.Username}, c)
	}
	// A connection already in the room only gets its confirmation again.
	if subscribed {
		h.sessions.BroadcastRoom(ch.Name, &Event{Kind: EventUserJoined, Channel: ch.Name, User: c.Username}, c)
	}
}

func (h *Hub) handleLeave(ctx context.Context, c *Client, cmd *Command) {
	res, err := h.svc.Leave(ctx, c.UserID, cmd.Channel)
	if err != nil {
		h.fail(c, EventLeaveError, cmd, err)
		return
	}

	name := res.Channel.Name
	if res.Deleted {
		h.sessions.BroadcastAll(&Event{Kind: EventChannelDeleted, Channel: name, User: c.Username}, nil)
		h.sessions.DropRoom(name)
		return
	}

	h.sessions.UnsubscribeUser(name, c.UserID)
	h.reply(c, &Event{Kind: EventChannelLeft, Channel: name, User: c.Username})
	h.sessions.BroadcastRoom(name, &Event{Kind: EventUserLeft, Channel: name, User: c.Username}, nil)
}

func (h *Hub) handleMessage(ctx context.Context, c *Client, cmd *Command) {
	msg, err := h.svc.PostMessage(ctx, c.UserID, c.Username, cmd.Channel, cmd.Text, cmd.System)
	if err != nil {
		h.fail(c, EventMessageError, cmd, err)
		return
	}

	ev := &Event{Kind: EventMessage, Channel: cmd.Channel, User: c.Username, Message: toMessage(cmd.Channel, msg)}
	h.sessions.BroadcastRoom(cmd.Channel, ev, c)
	h.reply(c, ev)
}

func (h *Hub) handleLoadMessages(ctx context.Context, c *Client, cmd *Command) {
	msgs, err := h.svc.LoadMessages(ctx, c.UserID, cmd.Channel, cmd.BeforeID)
	if err != nil {
		h.fail(c, EventMessagesError, cmd, err)
		return
	}

	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, *toMessage(cmd.Channel, m))
	}
	h.reply(c, &Event{Kind: EventMessages, Channel: cmd.Channel, Messages: out})
}

func (h *Hub) handleListUsers(ctx context.Context, c *Client, cmd *Command) {
	users, err := h.svc.ListMembers(ctx, c.UserID, cmd.Channel)
	if err != nil {
		h.fail(c, EventUsersError, cmd, err)
		return
	}
	h.reply(c, &Event{Kind: EventUsers, Channel: cmd.Channel, Users: users})
}

func (h *Hub) handleLoadChannels(ctx context.Context, c *Client, cmd *Command) {
	list, err := h.svc.ListChannels(ctx, c.UserID)
	if err != nil {
		h.fail(c, EventChannelsError, cmd, err)
		return
	}

	infos := make([]ChannelInfo, 0, len(list))
	for _, uc := range list {
		infos = append(infos, ChannelInfo{Name: uc.Name, IsPrivate: uc.IsPrivate, IsAdmin: uc.IsAdmin})
	}
	h.reply(c, &Event{Kind: EventChannels, Channels: infos})
}

func (h *Hub) handleCheckAccess(ctx context.Context, c *Client, cmd *Command) {
	ch, err := h.svc.CheckAccess(ctx, c.UserID, cmd.Channel)
	switch {
	case err == nil:
		h.reply(c, &Event{Kind: EventAccessGranted, Channel: ch.Name, IsPrivate: ch.IsPrivate})
	case channels.KindOf(err) == channels.KindForbidden:
		h.fail(c, EventAccessDenied, cmd, err)
	default:
		h.fail(c, EventAccessError, cmd, err)
	}
}

func (h *Hub) handleCheckAdmin(ctx context.Context, c *Client, cmd *Command) {
	isAdmin, err := h.svc.IsAdmin(ctx, c.UserID, cmd.Channel)
	if err != nil {
		h.fail(c, EventAdminError, cmd, err)
		return
	}
	h.reply(c, &Event{Kind: EventAdmin, Channel: cmd.Channel, IsAdmin: isAdmin})
}

func (h *Hub) handleInvite(ctx context.Context, c *Client, cmd *Command) {
	res, err := h.svc.Invite(ctx, c.UserID, cmd.Channel, cmd.Username)
	if err != nil {
		h.fail(c, EventInviteError, cmd, err)
		return
	}

	ev := &Event{
		Kind:      EventUserInvited,
		Channel:   res.Channel.Name,
		User:      c.Username,
		Target:    res.Target.Username,
		IsPrivate: res.Channel.IsPrivate,
	}
	h.sessions.SendToUser(res.Target.ID, ev)
	h.reply(c, ev)
}

func (h *Hub) handleRevoke(ctx context.Context, c *Client, cmd *Command) {
	res, err := h.svc.Revoke(ctx, c.UserID, cmd.Channel, cmd.Username)
	if err != nil {
		h.fail(c, EventRevokeError, cmd, err)
		return
	}

	name := res.Channel.Name
	h.sessions.UnsubscribeUser(name, res.Target.ID)

	ev := &Event{Kind: EventUserRevoked, Channel: name, User: c.Username, Target: res.Target.Username}
	h.sessions.SendToUser(res.Target.ID, ev)
	h.reply(c, ev)
	h.sessions.BroadcastRoom(name, &Event{Kind: EventUserLeft, Channel: name, User: res.Target.Username}, c)
}

func (h *Hub) handleKick(ctx context.Context, c *Client, cmd *Command) {
	res, err := h.svc.Kick(ctx, c.UserID, cmd.Channel, cmd.Username)
	if err != nil {
		h.fail(c, EventKickError, cmd, err)
		return
	}

	name := res.Channel.Name
	ev := &Event{
		Kind:    EventUserKicked,
		Channel: name,
		User:    c.Username,
		Target:  res.Target.Username,
		Outcome: res.Outcome.String(),
		Kicks:   res.Kicks,
	}

	switch res.Outcome {
	case channels.KickDuplicate:
		h.reply(c, ev)
	case channels.KickBanned:
		h.sessions.UnsubscribeUser(name, res.Target.ID)
		h.sessions.SendToUser(res.Target.ID, ev)
		h.reply(c, ev)
		h.sessions.BroadcastRoom(name, &Event{Kind: EventUserLeft, Channel: name, User: res.Target.Username}, c)
	default:
		h.sessions.SendToUser(res.Target.ID, ev)
		h.reply(c, ev)
	}
}

func (h *Hub) handleTyping(ctx context.Context, c *Client, cmd *Command) {
	if _, err := h.svc.CanPost(ctx, c.UserID, cmd.Channel); err != nil {
		h.log.Debug().Err(err).Str("client_id", c.ID).Str("channel", cmd.Channel).Msg("typing ignored")
		return
	}
	h.sessions.BroadcastRoom(cmd.Channel, &Event{
		Kind:    EventUserTyping,
		Channel: cmd.Channel,
		User:    c.Username,
		Text:    cmd.Text,
		TTL:     h.typingTTL,
	}, c)
}

func (h *Hub) handleSetStatus(_ context.Context, c *Client, cmd *Command) {
	if !validStatus(cmd.Status) {
		h.reply(c, &Event{Kind: EventError, Error: coreError(ErrCodeBadRequest, ErrBadStatus.Error())})
		return
	}
	h.sessions.SetStatus(c.UserID, cmd.Status)
	h.sessions.BroadcastAll(&Event{Kind: EventUserStatus, User: c.Username, Status: cmd.Status}, c)
}

func toMessage(channel string, m *store.Message) *Message {
	return &Message{
		ID:        m.ID,
		Channel:   channel,
		From:      m.Author,
		Text:      m.Body,
		System:    m.IsSystem,
		CreatedAt: m.CreatedAt,
	}
}
