package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a write violates a uniqueness constraint.
	ErrConflict = errors.New("conflict")
)

// User represents a registered user.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Channel represents a named chat channel.
type Channel struct {
	ID        int64
	Name      string
	IsPrivate bool
	CreatedAt time.Time
}

// Membership is the per-user-per-channel row tracking admin, ban and kick state.
type Membership struct {
	UserID    int64
	ChannelID int64
	IsAdmin   bool
	IsBanned  bool
	KickCount int
	JoinedAt  time.Time
}

// Member is a membership joined with the member's username.
type Member struct {
	Membership
	Username string
}

// UserChannel is a membership joined with its channel.
type UserChannel struct {
	Channel
	IsAdmin  bool
	IsBanned bool
}

// KickRecord is one kick vote; unique per (user, channel, kicker).
type KickRecord struct {
	UserID    int64
	ChannelID int64
	KickerID  int64
	CreatedAt time.Time
}

// Message represents a persisted chat message.
// UserID is nil for system messages.
type Message struct {
	ID        int64
	ChannelID int64
	UserID    *int64
	Author    string
	Body      string
	IsSystem  bool
	CreatedAt time.Time
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser creates a new user with hashed password.
	CreateUser(ctx context.Context, username, passwordHash string) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id int64) (*User, error)

	// GetUserByUsername retrieves a user by username.
	GetUserByUsername(ctx context.Context, username string) (*User, error)
}

// ChannelStore is the authoritative registry of channels, memberships and kick votes.
type ChannelStore interface {
	// GetChannelByName retrieves a channel by its unique name.
	GetChannelByName(ctx context.Context, name string) (*Channel, error)

	// GetChannelByID retrieves a channel by ID.
	GetChannelByID(ctx context.Context, id int64) (*Channel, error)

	// CreateChannel creates a channel and the admin membership of its creator.
	// Returns ErrConflict if the name is taken.
	CreateChannel(ctx context.Context, name string, isPrivate bool, adminID int64) (*Channel, error)

	// DeleteChannel removes a channel with its memberships, kick records and messages.
	DeleteChannel(ctx context.Context, channelID int64) error

	// GetMembership retrieves the membership row of a user in a channel.
	GetMembership(ctx context.Context, userID, channelID int64) (*Membership, error)

	// UpsertMembership inserts the row or overwrites its admin, ban and kick fields.
	UpsertMembership(ctx context.Context, m *Membership) error

	// RemoveMembership deletes the membership row and the user's kick records in the channel.
	RemoveMembership(ctx context.Context, userID, channelID int64) error

	// ListMembers lists all membership rows of a channel, banned ones included.
	ListMembers(ctx context.Context, channelID int64) ([]*Member, error)

	// ListUserChannels lists every channel the user has a membership row in.
	ListUserChannels(ctx context.Context, userID int64) ([]*UserChannel, error)

	// RecordKick stores a kick vote if the kicker has not voted yet and
	// returns whether it was new plus the number of distinct kickers.
	RecordKick(ctx context.Context, userID, channelID, kickerID int64) (added bool, distinct int, err error)

	// ClearKicks deletes all kick votes against a user in a channel.
	ClearKicks(ctx context.Context, userID, channelID int64) error

	// InTx runs fn against a transaction-scoped store. Any error rolls back all writes.
	InTx(ctx context.Context, fn func(tx ChannelStore) error) error
}

// MessageStore handles message persistence.
type MessageStore interface {
	// SaveMessage persists a message to storage.
	SaveMessage(ctx context.Context, msg *Message) error

	// ListMessages retrieves messages from a channel with pagination.
	// If beforeID is provided, returns messages older than that ID.
	// Limit determines max number of messages to return.
	ListMessages(ctx context.Context, channelID int64, limit int, beforeID *int64) ([]*Message, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	ChannelStore
	MessageStore

	// Close closes the underlying database connection.
	Close() error
}
