package channels

import "github.com/vovakirdan/channelhub/internal/store"

// DefaultKickThreshold is the number of distinct non-admin kickers that bans a member.
const DefaultKickThreshold = 3

// State is the moderation state of a membership row.
type State int

const (
	StateActive State = iota
	StateBanned
)

func (s State) String() string {
	if s == StateBanned {
		return "banned"
	}
	return "active"
}

// StateOf derives the moderation state from a membership row.
func StateOf(m *store.Membership) State {
	if m.IsBanned {
		return StateBanned
	}
	return StateActive
}

// KickOutcome describes what a kick did to the target.
type KickOutcome int

const (
	// KickVoted recorded a new vote below the threshold.
	KickVoted KickOutcome = iota
	// KickDuplicate was a repeated vote by the same kicker; nothing changed.
	KickDuplicate
	// KickBanned moved the target from Active to Banned.
	KickBanned
)

func (o KickOutcome) String() string {
	switch o {
	case KickDuplicate:
		return "duplicate"
	case KickBanned:
		return "banned"
	default:
		return "voted"
	}
}

// ApplyKick moves m through the kick transitions.
// An admin kick bans at once. A non-admin kick counts distinct voters and bans
// when the count reaches threshold. Duplicate votes leave m untouched.
func ApplyKick(m *store.Membership, byAdmin, newVote bool, distinctKickers, threshold int) KickOutcome {
	if byAdmin {
		Ban(m)
		return KickBanned
	}
	if !newVote {
		return KickDuplicate
	}
	if threshold < 1 {
		threshold = DefaultKickThreshold
	}
	if distinctKickers >= threshold {
		Ban(m)
		return KickBanned
	}
	m.KickCount = distinctKickers
	return KickVoted
}

// Ban marks the row banned and resets its kick counter.
func Ban(m *store.Membership) {
	m.IsBanned = true
	m.KickCount = 0
}

// Unban returns the row to Active and resets its kick counter.
// Callers also clear the persisted kick votes for the pair.
func Unban(m *store.Membership) {
	m.IsBanned = false
	m.KickCount = 0
}
