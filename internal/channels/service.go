package channels

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/channelhub/internal/store"
)

// Options tunes the moderation and history behaviour of a Service.
type Options struct {
	KickThreshold int
	HistoryLimit  int
}

// Service applies membership policy and moderation transitions to the channel registry.
//
// Each method runs its check-then-write sequence in one store transaction, so a
// failed call leaves no partial state. Callers that fan out events must still
// serialize calls per channel to keep broadcast order equal to commit order.
type Service struct {
	store        store.Store
	threshold    int
	historyLimit int
	log          *zerolog.Logger
	now          func() time.Time
}

// New creates a channel service.
func New(st store.Store, opts Options, logger *zerolog.Logger) *Service {
	if opts.KickThreshold < 1 {
		opts.KickThreshold = DefaultKickThreshold
	}
	if opts.HistoryLimit < 1 {
		opts.HistoryLimit = 100
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Service{
		store:        st,
		threshold:    opts.KickThreshold,
		historyLimit: opts.HistoryLimit,
		log:          logger,
		now:          time.Now,
	}
}

// JoinResult is the outcome of a successful join.
type JoinResult struct {
	Channel    *store.Channel
	Membership *store.Membership
	// Created is set when this join created the channel and made the caller its admin.
	Created bool
}

// LeaveResult is the outcome of a successful leave.
type LeaveResult struct {
	Channel *store.Channel
	// Deleted is set when the admin left and the channel was removed.
	Deleted bool
}

// TargetResult is the outcome of an invite or revoke.
type TargetResult struct {
	Channel *store.Channel
	Target  *store.User
	// Unbanned is set when an invite lifted an existing ban.
	Unbanned bool
}

// KickResult is the outcome of an accepted kick.
type KickResult struct {
	Channel *store.Channel
	Target  *store.User
	Outcome KickOutcome
	// Kicks is the number of distinct votes standing against the target.
	Kicks int
}

// Join creates the channel on first use, or joins an existing one under CanJoin.
func (s *Service) Join(ctx context.Context, userID int64, name string, isPrivate bool) (*JoinResult, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidChannelName
	}

	ch, err := s.store.GetChannelByName(ctx, name)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrNotFound):
		created, createErr := s.store.CreateChannel(ctx, name, isPrivate, userID)
		if createErr == nil {
			s.log.Info().Str("channel", name).Int64("user_id", userID).Bool("private", isPrivate).Msg("channel created")
			return &JoinResult{
				Channel:    created,
				Membership: &store.Membership{UserID: userID, ChannelID: created.ID, IsAdmin: true},
				Created:    true,
			}, nil
		}
		if !errors.Is(createErr, store.ErrConflict) {
			return nil, fmt.Errorf("create channel: %w", createErr)
		}
		// Lost the creation race; join what the winner created.
		if ch, err = s.store.GetChannelByName(ctx, name); err != nil {
			return nil, s.channelErr(err)
		}
	default:
		return nil, fmt.Errorf("get channel: %w", err)
	}

	var m *store.Membership
	err = s.store.InTx(ctx, func(tx store.ChannelStore) error {
		existing, err := membership(ctx, tx, userID, ch.ID)
		if err != nil {
			return err
		}
		if err := CanJoin(ch, existing); err != nil {
			return err
		}
		if existing != nil {
			m = existing
			return nil
		}
		m = &store.Membership{UserID: userID, ChannelID: ch.ID}
		return tx.UpsertMembership(ctx, m)
	})
	if err != nil {
		return nil, err
	}

	return &JoinResult{Channel: ch, Membership: m}, nil
}

// Leave removes the caller's row. An admin leaving deletes the channel.
func (s *Service) Leave(ctx context.Context, userID int64, name string) (*LeaveResult, error) {
	ch, err := s.channel(ctx, name)
	if err != nil {
		return nil, err
	}

	res := &LeaveResult{Channel: ch}
	err = s.store.InTx(ctx, func(tx store.ChannelStore) error {
		m, err := membership(ctx, tx, userID, ch.ID)
		if err != nil {
			return err
		}
		switch {
		case m == nil:
			return ErrNotJoined
		case m.IsBanned:
			// The row carries the ban; dropping it would lift the ban.
			return ErrBanned
		case m.IsAdmin:
			res.Deleted = true
			return tx.DeleteChannel(ctx, ch.ID)
		default:
			return tx.RemoveMembership(ctx, userID, ch.ID)
		}
	})
	if err != nil {
		return nil, err
	}

	if res.Deleted {
		s.log.Info().Str("channel", ch.Name).Int64("user_id", userID).Msg("admin left, channel deleted")
	}
	return res, nil
}

// Invite adds username to the channel, or lifts their ban if they are banned.
func (s *Service) Invite(ctx context.Context, actorID int64, name, username string) (*TargetResult, error) {
	ch, target, err := s.channelAndUser(ctx, name, username)
	if err != nil {
		return nil, err
	}

	res := &TargetResult{Channel: ch, Target: target}
	err = s.store.InTx(ctx, func(tx store.ChannelStore) error {
		inviter, err := membership(ctx, tx, actorID, ch.ID)
		if err != nil {
			return err
		}
		existing, err := membership(ctx, tx, target.ID, ch.ID)
		if err != nil {
			return err
		}
		if err := CanInvite(ch, inviter, existing); err != nil {
			return err
		}

		if existing == nil {
			return tx.UpsertMembership(ctx, &store.Membership{UserID: target.ID, ChannelID: ch.ID})
		}

		Unban(existing)
		res.Unbanned = true
		if err := tx.ClearKicks(ctx, target.ID, ch.ID); err != nil {
			return err
		}
		return tx.UpsertMembership(ctx, existing)
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug().Str("channel", ch.Name).Int64("user_id", actorID).Str("target", target.Username).Bool("unbanned", res.Unbanned).Msg("user invited")
	return res, nil
}

// Revoke deletes username's membership row. Admin only.
func (s *Service) Revoke(ctx context.Context, actorID int64, name, username string) (*TargetResult, error) {
	ch, target, err := s.channelAndUser(ctx, name, username)
	if err != nil {
		return nil, err
	}

	err = s.store.InTx(ctx, func(tx store.ChannelStore) error {
		revoker, err := membership(ctx, tx, actorID, ch.ID)
		if err != nil {
			return err
		}
		existing, err := membership(ctx, tx, target.ID, ch.ID)
		if err != nil {
			return err
		}
		if err := CanRevoke(ch, revoker, existing); err != nil {
			return err
		}
		return tx.RemoveMembership(ctx, target.ID, ch.ID)
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug().Str("channel", ch.Name).Int64("user_id", actorID).Str("target", target.Username).Msg("user revoked")
	return &TargetResult{Channel: ch, Target: target}, nil
}

// Kick casts a kick against username. Admin kicks ban at once; other kicks
// accumulate one vote per distinct kicker until the threshold bans.
func (s *Service) Kick(ctx context.Context, actorID int64, name, username string) (*KickResult, error) {
	ch, target, err := s.channelAndUser(ctx, name, username)
	if err != nil {
		return nil, err
	}

	res := &KickResult{Channel: ch, Target: target}
	err = s.store.InTx(ctx, func(tx store.ChannelStore) error {
		kicker, err := membership(ctx, tx, actorID, ch.ID)
		if err != nil {
			return err
		}
		victim, err := membership(ctx, tx, target.ID, ch.ID)
		if err != nil {
			return err
		}
		if err := CanKick(ch, kicker, victim); err != nil {
			return err
		}

		var (
			newVote  bool
			distinct int
		)
		if !kicker.IsAdmin {
			newVote, distinct, err = tx.RecordKick(ctx, target.ID, ch.ID, actorID)
			if err != nil {
				return err
			}
		}

		res.Outcome = ApplyKick(victim, kicker.IsAdmin, newVote, distinct, s.threshold)
		res.Kicks = distinct
		if res.Outcome == KickDuplicate {
			return nil
		}
		return tx.UpsertMembership(ctx, victim)
	})
	if err != nil {
		return nil, err
	}

	if res.Outcome == KickBanned {
		s.log.Info().Str("channel", ch.Name).Int64("user_id", actorID).Str("target", target.Username).Msg("user banned")
	}
	return res, nil
}

// CheckAccess returns the channel when the user may enter it.
func (s *Service) CheckAccess(ctx context.Context, userID int64, name string) (*store.Channel, error) {
	ch, err := s.channel(ctx, name)
	if err != nil {
		return nil, err
	}
	m, err := membership(ctx, s.store, userID, ch.ID)
	if err != nil {
		return nil, err
	}
	if err := CanJoin(ch, m); err != nil {
		return nil, err
	}
	return ch, nil
}

// IsAdmin reports whether the user is the channel's admin.
func (s *Service) IsAdmin(ctx context.Context, userID int64, name string) (bool, error) {
	ch, err := s.channel(ctx, name)
	if err != nil {
		return false, err
	}
	m, err := membership(ctx, s.store, userID, ch.ID)
	if err != nil {
		return false, err
	}
	if m == nil {
		return false, ErrNotJoined
	}
	return m.IsAdmin, nil
}

// ListChannels returns the user's channels, leaving out those they are banned from.
func (s *Service) ListChannels(ctx context.Context, userID int64) ([]*store.UserChannel, error) {
	all, err := s.store.ListUserChannels(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list user channels: %w", err)
	}

	active := make([]*store.UserChannel, 0, len(all))
	for _, uc := range all {
		if !uc.IsBanned {
			active = append(active, uc)
		}
	}
	return active, nil
}

// ListMembers returns the usernames of the channel's active members.
func (s *Service) ListMembers(ctx context.Context, userID int64, name string) ([]string, error) {
	ch, err := s.CheckAccess(ctx, userID, name)
	if err != nil {
		return nil, err
	}

	members, err := s.store.ListMembers(ctx, ch.ID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}

	names := make([]string, 0, len(members))
	for _, m := range members {
		if !m.IsBanned {
			names = append(names, m.Username)
		}
	}
	return names, nil
}

// CanPost returns the channel when the user may send messages to it.
func (s *Service) CanPost(ctx context.Context, userID int64, name string) (*store.Channel, error) {
	ch, err := s.channel(ctx, name)
	if err != nil {
		return nil, err
	}
	m, err := membership(ctx, s.store, userID, ch.ID)
	if err != nil {
		return nil, err
	}
	if err := CanPost(m); err != nil {
		return nil, err
	}
	return ch, nil
}

// PostMessage persists a message from an active member.
// System messages are stored without an author.
func (s *Service) PostMessage(ctx context.Context, userID int64, username, name, content string, system bool) (*store.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyMessage
	}

	ch, err := s.CanPost(ctx, userID, name)
	if err != nil {
		return nil, err
	}

	msg := &store.Message{
		ChannelID: ch.ID,
		Body:      content,
		IsSystem:  system,
		CreatedAt: s.now().UTC(),
	}
	if !system {
		uid := userID
		msg.UserID = &uid
		msg.Author = username
	}

	if err := s.store.SaveMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("save message: %w", err)
	}
	return msg, nil
}

// LoadMessages returns the most recent history of a channel the user may read.
func (s *Service) LoadMessages(ctx context.Context, userID int64, name string, beforeID *int64) ([]*store.Message, error) {
	ch, err := s.CheckAccess(ctx, userID, name)
	if err != nil {
		return nil, err
	}

	msgs, err := s.store.ListMessages(ctx, ch.ID, s.historyLimit, beforeID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return msgs, nil
}

func (s *Service) channel(ctx context.Context, name string) (*store.Channel, error) {
	ch, err := s.store.GetChannelByName(ctx, strings.TrimSpace(name))
	if err != nil {
		return nil, s.channelErr(err)
	}
	return ch, nil
}

func (s *Service) channelErr(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrChannelNotFound
	}
	return fmt.Errorf("get channel: %w", err)
}

func (s *Service) channelAndUser(ctx context.Context, name, username string) (*store.Channel, *store.User, error) {
	ch, err := s.channel(ctx, name)
	if err != nil {
		return nil, nil, err
	}

	user, err := s.store.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, ErrUserNotFound
		}
		return nil, nil, fmt.Errorf("get user: %w", err)
	}
	return ch, user, nil
}

// membership returns nil without error when the row does not exist.
func membership(ctx context.Context, st store.ChannelStore, userID, channelID int64) (*store.Membership, error) {
	m, err := st.GetMembership(ctx, userID, channelID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get membership: %w", err)
	}
	return m, nil
}
