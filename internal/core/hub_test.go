package core

import (
	"fmt"
	"testing"
	"time"
)

func TestHubJoinBroadcastAndLeave(t *testing.T) {
	env := newTestEnv(t, "alice", "bob")
	alice := env.connect(t, "alice")
	bob := env.connect(t, "bob")

	joined := join(t, alice, "general", false)
	if !joined.IsAdmin || joined.Channel != "general" {
		t.Fatalf("creator should join as admin: %+v", joined)
	}

	joined = join(t, bob, "general", false)
	if joined.IsAdmin {
		t.Fatalf("second member should not be admin: %+v", joined)
	}
	joinEv := mustEvent(t, alice.Events, EventUserJoined)
	if joinEv.User != "bob" || joinEv.Channel != "general" {
		t.Fatalf("unexpected join event: %+v", joinEv)
	}

	alice.Commands <- &Command{Kind: CommandSendMessage, Channel: "general", Text: "hi"}

	msgEv := mustEvent(t, bob.Events, EventMessage)
	if msgEv.Message.Text != "hi" || msgEv.Message.Channel != "general" || msgEv.Message.From != "alice" {
		t.Fatalf("unexpected message event: %+v", msgEv.Message)
	}
	ack := mustEvent(t, alice.Events, EventMessage)
	if ack.Message.ID != msgEv.Message.ID {
		t.Fatalf("ack carries message %d, room got %d", ack.Message.ID, msgEv.Message.ID)
	}

	bob.Commands <- &Command{Kind: CommandLeaveChannel, Channel: "general"}
	mustEvent(t, bob.Events, EventChannelLeft)
	leftEv := mustEvent(t, alice.Events, EventUserLeft)
	if leftEv.User != "bob" || leftEv.Channel != "general" {
		t.Fatalf("unexpected leave event: %+v", leftEv)
	}
	if env.hub.Sessions().Subscribed("general", bob) {
		t.Fatal("bob still subscribed after leave")
	}
}

func TestHubRepeatedJoinIsNotAnnounced(t *testing.T) {
	env := newTestEnv(t, "alice", "bob")
	alice := env.connect(t, "alice")
	bob := env.connect(t, "bob")

	join(t, alice, "general", false)
	join(t, bob, "general", false)
	mustEvent(t, alice.Events, EventUserJoined)

	again := join(t, bob, "general", false)
	if again.IsAdmin || again.Channel != "general" {
		t.Fatalf("unexpected repeat confirmation: %+v", again)
	}
	noEvent(t, alice.Events, EventUserJoined, 200*time.Millisecond)
	if n := env.hub.Sessions().RoomSize("general"); n != 2 {
		t.Fatalf("expected two subscribers, got %d", n)
	}
}

func TestHubMessagesKeepCommitOrder(t *testing.T) {
	env := newTestEnv(t, "alice", "bob")
	alice := env.connect(t, "alice")
	bob := env.connect(t, "bob")

	join(t, alice, "general", false)
	join(t, bob, "general", false)

	const n = 20
	for i := range n {
		alice.Commands <- &Command{Kind: CommandSendMessage, Channel: "general", Text: fmt.Sprint(i)}
	}

	var last int64
	for i := range n {
		ev := mustEvent(t, bob.Events, EventMessage)
		if ev.Message.Text != fmt.Sprint(i) {
			t.Fatalf("message %d out of order: %q", i, ev.Message.Text)
		}
		if ev.Message.ID <= last {
			t.Fatalf("message ids not increasing: %d after %d", ev.Message.ID, last)
		}
		last = ev.Message.ID
	}
}

func TestHubChannelCreatedOnlyForPublic(t *testing.T) {
	env := newTestEnv(t, "alice", "bob")
	alice := env.connect(t, "alice")
	bob := env.connect(t, "bob")

	join(t, alice, "general", false)
	created := mustEvent(t, bob.Events, EventChannelCreated)
	if created.Channel != "general" || created.User != "alice" {
		t.Fatalf("unexpected created event: %+v", created)
	}

	join(t, alice, "secret", true)
	noEvent(t, bob.Events, EventChannelCreated, 200*time.Millisecond)
	noEvent(t, alice.Events, EventChannelCreated, 50*time.Millisecond)
}

func TestHubAdminLeaveDeletesChannel(t *testing.T) {
	env := newTestEnv(t, "alice", "bob", "carol")
	alice := env.connect(t, "alice")
	bob := env.connect(t, "bob")
	carol := env.connect(t, "carol")

	join(t, alice, "general", false)
	join(t, bob, "general", false)

	alice.Commands <- &Command{Kind: CommandLeaveChannel, Channel: "general"}
	for _, c := range []*Client{alice, bob, carol} {
		ev := mustEvent(t, c.Events, EventChannelDeleted)
		if ev.Channel != "general" {
			t.Fatalf("unexpected deleted event: %+v", ev)
		}
	}
	if n := env.hub.Sessions().RoomSize("general"); n != 0 {
		t.Fatalf("room still has %d subscribers", n)
	}

	bob.Commands <- &Command{Kind: CommandSendMessage, Channel: "general", Text: "anyone?"}
	ev := mustEvent(t, bob.Events, EventMessageError)
	if ev.Error == nil || ev.Error.Code != ErrCodeNotFound {
		t.Fatalf("expected not_found, got %+v", ev.Error)
	}
}

func TestHubPrivateJoinNeedsInvite(t *testing.T) {
	env := newTestEnv(t, "alice", "bob")
	alice := env.connect(t, "alice")
	bob := env.connect(t, "bob")

	join(t, alice, "secret", true)

	bob.Commands <- &Command{Kind: CommandJoinChannel, Channel: "secret"}
	denied := mustEvent(t, bob.Events, EventJoinPrivate)
	if denied.Error == nil || denied.Error.Code != ErrCodeForbidden {
		t.Fatalf("expected forbidden, got %+v", denied.Error)
	}

	alice.Commands <- &Command{Kind: CommandInviteUser, Channel: "secret", Username: "bob"}
	invited := mustEvent(t, bob.Events, EventUserInvited)
	if invited.User != "alice" || invited.Target != "bob" || !invited.IsPrivate {
		t.Fatalf("unexpected invite event: %+v", invited)
	}
	mustEvent(t, alice.Events, EventUserInvited)

	join(t, bob, "secret", false)
}

func TestHubKickVotesThenBan(t *testing.T) {
	env := newTestEnv(t, "owner", "target", "k1", "k2", "k3")
	clients := make(map[string]*Client)
	for _, name := range []string{"owner", "target", "k1", "k2", "k3"} {
		clients[name] = env.connect(t, name)
		join(t, clients[name], "lobby", false)
	}
	target := clients["target"]

	for i, kicker := range []string{"k1", "k2"} {
		clients[kicker].Commands <- &Command{Kind: CommandKickUser, Channel: "lobby", Username: "target"}
		ev := mustEvent(t, target.Events, EventUserKicked)
		if ev.Outcome != "voted" || ev.Kicks != i+1 || ev.User != kicker {
			t.Fatalf("unexpected vote event: %+v", ev)
		}
		mustEvent(t, clients[kicker].Events, EventUserKicked)
	}

	clients["k3"].Commands <- &Command{Kind: CommandKickUser, Channel: "lobby", Username: "target"}
	ev := mustEvent(t, target.Events, EventUserKicked)
	if ev.Outcome != "banned" {
		t.Fatalf("third distinct kick should ban: %+v", ev)
	}
	left := mustEvent(t, clients["owner"].Events, EventUserLeft)
	if left.User != "target" {
		t.Fatalf("unexpected left event: %+v", left)
	}
	if env.hub.Sessions().Subscribed("lobby", target) {
		t.Fatal("banned user still subscribed")
	}

	target.Commands <- &Command{Kind: CommandSendMessage, Channel: "lobby", Text: "let me back"}
	msgErr := mustEvent(t, target.Events, EventMessageError)
	if msgErr.Error == nil || msgErr.Error.Code != ErrCodeForbidden {
		t.Fatalf("expected forbidden, got %+v", msgErr.Error)
	}

	target.Commands <- &Command{Kind: CommandJoinChannel, Channel: "lobby"}
	joinErr := mustEvent(t, target.Events, EventJoinError)
	if joinErr.Error == nil || joinErr.Error.Code != ErrCodeForbidden {
		t.Fatalf("expected forbidden, got %+v", joinErr.Error)
	}
}

func TestHubDuplicateKickOnlyAcknowledged(t *testing.T) {
	env := newTestEnv(t, "owner", "target", "k1")
	owner := env.connect(t, "owner")
	target := env.connect(t, "target")
	k1 := env.connect(t, "k1")
	join(t, owner, "lobby", false)
	join(t, target, "lobby", false)
	join(t, k1, "lobby", false)

	k1.Commands <- &Command{Kind: CommandKickUser, Channel: "lobby", Username: "target"}
	mustEvent(t, target.Events, EventUserKicked)
	mustEvent(t, k1.Events, EventUserKicked)

	k1.Commands <- &Command{Kind: CommandKickUser, Channel: "lobby", Username: "target"}
	ack := mustEvent(t, k1.Events, EventUserKicked)
	if ack.Outcome != "duplicate" || ack.Kicks != 1 {
		t.Fatalf("unexpected duplicate ack: %+v", ack)
	}
	noEvent(t, target.Events, EventUserKicked, 200*time.Millisecond)
}

func TestHubRevokeUnsubscribesAllConnections(t *testing.T) {
	env := newTestEnv(t, "alice", "bob")
	alice := env.connect(t, "alice")
	bobPhone := env.connect(t, "bob")
	bobLaptop := env.connect(t, "bob")

	join(t, alice, "general", false)
	join(t, bobPhone, "general", false)
	join(t, bobLaptop, "general", false)

	alice.Commands <- &Command{Kind: CommandRevokeUser, Channel: "general", Username: "bob"}
	for _, c := range []*Client{bobPhone, bobLaptop} {
		ev := mustEvent(t, c.Events, EventUserRevoked)
		if ev.Target != "bob" {
			t.Fatalf("unexpected revoke event: %+v", ev)
		}
	}
	mustEvent(t, alice.Events, EventUserRevoked)

	if n := env.hub.Sessions().RoomSize("general"); n != 1 {
		t.Fatalf("expected only alice subscribed, got %d", n)
	}
}

func TestHubRevokeByMemberRefused(t *testing.T) {
	env := newTestEnv(t, "alice", "bob", "carol")
	alice := env.connect(t, "alice")
	bob := env.connect(t, "bob")
	carol := env.connect(t, "carol")

	join(t, alice, "general", false)
	join(t, bob, "general", false)
	join(t, carol, "general", false)

	carol.Commands <- &Command{Kind: CommandRevokeUser, Channel: "general", Username: "bob"}
	ev := mustEvent(t, carol.Events, EventRevokeError)
	if ev.Error == nil || ev.Error.Code != ErrCodeForbidden || ev.Target != "bob" {
		t.Fatalf("expected forbidden revoke error, got %+v", ev)
	}
	noEvent(t, bob.Events, EventUserRevoked, 200*time.Millisecond)
}

func TestHubErrorsStayWithInitiator(t *testing.T) {
	env := newTestEnv(t, "alice", "bob")
	alice := env.connect(t, "alice")
	bob := env.connect(t, "bob")

	join(t, alice, "general", false)
	join(t, bob, "general", false)

	alice.Commands <- &Command{Kind: CommandKickUser, Channel: "general", Username: "ghost"}
	ev := mustEvent(t, alice.Events, EventKickError)
	if ev.Error == nil || ev.Error.Code != ErrCodeNotFound {
		t.Fatalf("expected not_found, got %+v", ev.Error)
	}
	noEvent(t, bob.Events, EventKickError, 200*time.Millisecond)
}

func TestHubQueriesAnswerSelf(t *testing.T) {
	env := newTestEnv(t, "alice", "bob")
	alice := env.connect(t, "alice")
	bob := env.connect(t, "bob")

	join(t, alice, "secret", true)
	alice.Commands <- &Command{Kind: CommandSendMessage, Channel: "secret", Text: "note"}
	mustEvent(t, alice.Events, EventMessage)

	alice.Commands <- &Command{Kind: CommandCheckAdmin, Channel: "secret"}
	if ev := mustEvent(t, alice.Events, EventAdmin); !ev.IsAdmin {
		t.Fatalf("alice should be admin: %+v", ev)
	}

	alice.Commands <- &Command{Kind: CommandLoadMessages, Channel: "secret"}
	history := mustEvent(t, alice.Events, EventMessages)
	if len(history.Messages) != 1 || history.Messages[0].Text != "note" {
		t.Fatalf("unexpected history: %+v", history.Messages)
	}

	alice.Commands <- &Command{Kind: CommandListUsers, Channel: "secret"}
	users := mustEvent(t, alice.Events, EventUsers)
	if len(users.Users) != 1 || users.Users[0] != "alice" {
		t.Fatalf("unexpected users: %v", users.Users)
	}

	alice.Commands <- &Command{Kind: CommandLoadChannels}
	list := mustEvent(t, alice.Events, EventChannels)
	if len(list.Channels) != 1 || !list.Channels[0].IsPrivate || !list.Channels[0].IsAdmin {
		t.Fatalf("unexpected channels: %+v", list.Channels)
	}

	bob.Commands <- &Command{Kind: CommandCheckAccess, Channel: "secret"}
	mustEvent(t, bob.Events, EventAccessDenied)

	bob.Commands <- &Command{Kind: CommandCheckAccess, Channel: "missing"}
	mustEvent(t, bob.Events, EventAccessError)

	bob.Commands <- &Command{Kind: CommandLoadMessages, Channel: "secret"}
	mustEvent(t, bob.Events, EventMessagesError)
}

func TestHubTypingCarriesTTL(t *testing.T) {
	env := newTestEnv(t, "alice", "bob", "carol")
	alice := env.connect(t, "alice")
	bob := env.connect(t, "bob")
	carol := env.connect(t, "carol")

	join(t, alice, "general", false)
	join(t, bob, "general", false)

	alice.Commands <- &Command{Kind: CommandTyping, Channel: "general", Text: "hel"}
	ev := mustEvent(t, bob.Events, EventUserTyping)
	if ev.User != "alice" || ev.TTL != time.Second || ev.Text != "hel" {
		t.Fatalf("unexpected typing event: %+v", ev)
	}
	noEvent(t, alice.Events, EventUserTyping, 100*time.Millisecond)

	// Non-members cannot type into a room.
	carol.Commands <- &Command{Kind: CommandTyping, Channel: "general", Text: "x"}
	noEvent(t, bob.Events, EventUserTyping, 200*time.Millisecond)
}

func TestHubPresenceCountsConnections(t *testing.T) {
	env := newTestEnv(t, "alice", "bob")
	bob := env.connect(t, "bob")

	phone := env.connect(t, "alice")
	online := mustEvent(t, bob.Events, EventUserOnline)
	if online.User != "alice" {
		t.Fatalf("unexpected online event: %+v", online)
	}

	laptop := NewClient("alice-laptop", env.users["alice"], "alice")
	env.hub.RegisterClient(laptop)
	list := mustEvent(t, laptop.Events, EventUserList)
	if len(list.Presence) != 1 || list.Presence[0].Username != "bob" {
		t.Fatalf("expected only bob listed to alice, got %+v", list.Presence)
	}
	noEvent(t, bob.Events, EventUserOnline, 200*time.Millisecond)

	env.hub.UnregisterClient(phone)
	noEvent(t, bob.Events, EventUserOffline, 200*time.Millisecond)

	env.hub.UnregisterClient(laptop)
	offline := mustEvent(t, bob.Events, EventUserOffline)
	if offline.User != "alice" {
		t.Fatalf("unexpected offline event: %+v", offline)
	}
}

func TestHubDisconnectUnsubscribes(t *testing.T) {
	env := newTestEnv(t, "alice", "bob")
	alice := env.connect(t, "alice")
	bob := env.connect(t, "bob")

	join(t, alice, "general", false)
	join(t, bob, "general", false)

	env.hub.UnregisterClient(bob)
	mustEvent(t, alice.Events, EventUserOffline)

	if n := env.hub.Sessions().RoomSize("general"); n != 1 {
		t.Fatalf("expected one subscriber after disconnect, got %d", n)
	}
}

func TestHubSetStatus(t *testing.T) {
	env := newTestEnv(t, "alice", "bob")
	alice := env.connect(t, "alice")
	bob := env.connect(t, "bob")

	alice.Commands <- &Command{Kind: CommandSetStatus, Status: StatusDND}
	ev := mustEvent(t, bob.Events, EventUserStatus)
	if ev.User != "alice" || ev.Status != StatusDND {
		t.Fatalf("unexpected status event: %+v", ev)
	}

	alice.Commands <- &Command{Kind: CommandSetStatus, Status: "busy"}
	errEv := mustEvent(t, alice.Events, EventError)
	if errEv.Error == nil || errEv.Error.Code != ErrCodeBadRequest {
		t.Fatalf("expected bad_request, got %+v", errEv.Error)
	}
}

func TestHubUnknownCommand(t *testing.T) {
	env := newTestEnv(t, "alice")
	alice := env.connect(t, "alice")

	alice.Commands <- &Command{Kind: CommandKind(99)}
	ev := mustEvent(t, alice.Events, EventError)
	if ev.Error == nil || ev.Error.Code != ErrCodeBadRequest {
		t.Fatalf("expected bad_request, got %+v", ev.Error)
	}
}
