package channels

import "github.com/vovakirdan/channelhub/internal/store"

// Membership policy. Every function is pure: a nil return means allowed,
// otherwise the returned *Error names the reason. A nil membership means
// the user has no row in the channel.

// CanJoin decides whether a user may join (or read) a channel.
// Banned users are refused everywhere; private channels require an existing row.
func CanJoin(ch *store.Channel, existing *store.Membership) error {
	if existing != nil && existing.IsBanned {
		return ErrBanned
	}
	if ch.IsPrivate && existing == nil {
		return ErrPrivateChannel
	}
	return nil
}

// CanPost decides whether a user may send messages or typing notices.
func CanPost(m *store.Membership) error {
	if m == nil {
		return ErrNotMember
	}
	if m.IsBanned {
		return ErrBanned
	}
	return nil
}

// CanInvite decides whether inviter may add or unban target.
// Private channels require an admin; in public channels any active member may invite.
func CanInvite(ch *store.Channel, inviter, target *store.Membership) error {
	if inviter == nil || inviter.IsBanned {
		return ErrNotMember
	}
	if ch.IsPrivate && !inviter.IsAdmin {
		return ErrAdminOnlyInvite
	}
	if target != nil && !target.IsBanned {
		return ErrAlreadyMember
	}
	return nil
}

// CanKick decides whether kicker may cast a kick against target.
func CanKick(ch *store.Channel, kicker, target *store.Membership) error {
	if kicker == nil || kicker.IsBanned {
		return ErrNotMember
	}
	if ch.IsPrivate && !kicker.IsAdmin {
		return ErrAdminOnlyKick
	}
	if target == nil {
		return ErrTargetNotMember
	}
	if target.UserID == kicker.UserID {
		return ErrSelfTarget
	}
	if target.IsAdmin {
		return ErrTargetAdmin
	}
	if target.IsBanned {
		return ErrAlreadyBanned
	}
	return nil
}

// CanRevoke decides whether revoker may remove target's row.
// Revoke is admin-only for public and private channels alike, unlike invite and kick.
func CanRevoke(_ *store.Channel, revoker, target *store.Membership) error {
	if revoker == nil || revoker.IsBanned || !revoker.IsAdmin {
		return ErrAdminOnlyRevoke
	}
	if target == nil {
		return ErrTargetNotMember
	}
	if target.UserID == revoker.UserID || target.IsAdmin {
		return ErrTargetAdmin
	}
	// The row carries the ban; only an invite lifts it.
	if target.IsBanned {
		return ErrAlreadyBanned
	}
	return nil
}
