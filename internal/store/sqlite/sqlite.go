package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/vovakirdan/channelhub/internal/store"
)

//go:embed schema.sql
var schema string

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLiteStore implements store.Store for SQLite.
// A store returned by InTx has a nil db and runs every query on its transaction.
type SQLiteStore struct {
	db *sql.DB
	q  queryer
}

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, Migrate)
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests to apply a custom schema.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection; it also keeps :memory: databases shared.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db, q: db}, nil
}

// Migrate applies the embedded schema. It is idempotent.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// InTx runs fn inside a transaction. Nested calls reuse the outer transaction.
func (s *SQLiteStore) InTx(ctx context.Context, fn func(tx store.ChannelStore) error) error {
	return s.withTx(ctx, func(q queryer) error {
		return fn(&SQLiteStore{q: q})
	})
}

func (s *SQLiteStore) withTx(ctx context.Context, fn func(q queryer) error) error {
	if s.db == nil {
		return fn(s.q)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // no-op after commit
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

// ==== UserStore implementation ====

// CreateUser creates a new user with hashed password.
func (s *SQLiteStore) CreateUser(ctx context.Context, username, passwordHash string) (*store.User, error) {
	query := `
		INSERT INTO users (username, password_hash)
		VALUES (?, ?)
	`
	result, err := s.q.ExecContext(ctx, query, username, passwordHash)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("user %q: %w", username, store.ErrConflict)
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id int64) (*store.User, error) {
	query := `
		SELECT id, username, password_hash, created_at
		FROM users
		WHERE id = ?
	`
	return s.scanUser(s.q.QueryRowContext(ctx, query, id))
}

// GetUserByUsername retrieves a user by username.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	query := `
		SELECT id, username, password_hash, created_at
		FROM users
		WHERE username = ?
	`
	return s.scanUser(s.q.QueryRowContext(ctx, query, username))
}

func (s *SQLiteStore) scanUser(row *sql.Row) (*store.User, error) {
	var user store.User
	err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &user, nil
}

// ==== ChannelStore implementation ====

// GetChannelByName retrieves a channel by name.
func (s *SQLiteStore) GetChannelByName(ctx context.Context, name string) (*store.Channel, error) {
	query := `
		SELECT id, name, is_private, created_at
		FROM channels
		WHERE name = ?
	`
	return s.scanChannel(s.q.QueryRowContext(ctx, query, name))
}

// GetChannelByID retrieves a channel by ID.
func (s *SQLiteStore) GetChannelByID(ctx context.Context, id int64) (*store.Channel, error) {
	query := `
		SELECT id, name, is_private, created_at
		FROM channels
		WHERE id = ?
	`
	return s.scanChannel(s.q.QueryRowContext(ctx, query, id))
}

func (s *SQLiteStore) scanChannel(row *sql.Row) (*store.Channel, error) {
	var ch store.Channel
	if err := row.Scan(&ch.ID, &ch.Name, &ch.IsPrivate, &ch.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("channel: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query channel: %w", err)
	}
	return &ch, nil
}

// CreateChannel creates a channel and makes adminID its admin in one transaction.
func (s *SQLiteStore) CreateChannel(ctx context.Context, name string, isPrivate bool, adminID int64) (*store.Channel, error) {
	var channelID int64
	err := s.withTx(ctx, func(q queryer) error {
		result, err := q.ExecContext(ctx, `INSERT INTO channels (name, is_private) VALUES (?, ?)`, name, isPrivate)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("channel %q: %w", name, store.ErrConflict)
			}
			return fmt.Errorf("insert channel: %w", err)
		}

		channelID, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("get last insert id: %w", err)
		}

		memberQuery := `
			INSERT INTO channel_users (user_id, channel_id, is_admin)
			VALUES (?, ?, 1)
		`
		if _, err := q.ExecContext(ctx, memberQuery, adminID, channelID); err != nil {
			return fmt.Errorf("insert admin membership: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetChannelByID(ctx, channelID)
}

// DeleteChannel removes the channel and every row that references it.
func (s *SQLiteStore) DeleteChannel(ctx context.Context, channelID int64) error {
	return s.withTx(ctx, func(q queryer) error {
		for _, query := range []string{
			`DELETE FROM kicks WHERE channel_id = ?`,
			`DELETE FROM channel_users WHERE channel_id = ?`,
			`DELETE FROM messages WHERE channel_id = ?`,
		} {
			if _, err := q.ExecContext(ctx, query, channelID); err != nil {
				return fmt.Errorf("delete channel rows: %w", err)
			}
		}

		result, err := q.ExecContext(ctx, `DELETE FROM channels WHERE id = ?`, channelID)
		if err != nil {
			return fmt.Errorf("delete channel: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("get rows affected: %w", err)
		}
		if rows == 0 {
			return fmt.Errorf("channel %d: %w", channelID, store.ErrNotFound)
		}
		return nil
	})
}

// GetMembership retrieves a user's membership row in a channel.
func (s *SQLiteStore) GetMembership(ctx context.Context, userID, channelID int64) (*store.Membership, error) {
	query := `
		SELECT user_id, channel_id, is_admin, is_banned, kick_count, joined_at
		FROM channel_users
		WHERE user_id = ? AND channel_id = ?
	`
	var m store.Membership
	err := s.q.QueryRowContext(ctx, query, userID, channelID).Scan(
		&m.UserID,
		&m.ChannelID,
		&m.IsAdmin,
		&m.IsBanned,
		&m.KickCount,
		&m.JoinedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("membership: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query membership: %w", err)
	}

	return &m, nil
}

// UpsertMembership inserts the row or overwrites its admin, ban and kick fields.
func (s *SQLiteStore) UpsertMembership(ctx context.Context, m *store.Membership) error {
	query := `
		INSERT INTO channel_users (user_id, channel_id, is_admin, is_banned, kick_count)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, channel_id) DO UPDATE SET
			is_admin   = excluded.is_admin,
			is_banned  = excluded.is_banned,
			kick_count = excluded.kick_count
	`
	if _, err := s.q.ExecContext(ctx, query, m.UserID, m.ChannelID, m.IsAdmin, m.IsBanned, m.KickCount); err != nil {
		return fmt.Errorf("upsert membership: %w", err)
	}
	return nil
}

// RemoveMembership deletes a membership row together with the votes against that user.
func (s *SQLiteStore) RemoveMembership(ctx context.Context, userID, channelID int64) error {
	return s.withTx(ctx, func(q queryer) error {
		if _, err := q.ExecContext(ctx, `DELETE FROM kicks WHERE user_id = ? AND channel_id = ?`, userID, channelID); err != nil {
			return fmt.Errorf("delete kicks: %w", err)
		}

		result, err := q.ExecContext(ctx, `DELETE FROM channel_users WHERE user_id = ? AND channel_id = ?`, userID, channelID)
		if err != nil {
			return fmt.Errorf("delete membership: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("get rows affected: %w", err)
		}
		if rows == 0 {
			return fmt.Errorf("membership: %w", store.ErrNotFound)
		}
		return nil
	})
}

// ListMembers lists all membership rows of a channel ordered by join time.
func (s *SQLiteStore) ListMembers(ctx context.Context, channelID int64) ([]*store.Member, error) {
	query := `
		SELECT cu.user_id, cu.channel_id, cu.is_admin, cu.is_banned, cu.kick_count, cu.joined_at, u.username
		FROM channel_users cu
		JOIN users u ON u.id = cu.user_id
		WHERE cu.channel_id = ?
		ORDER BY cu.joined_at ASC, cu.user_id ASC
	`
	rows, err := s.q.QueryContext(ctx, query, channelID)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	var members []*store.Member
	for rows.Next() {
		var m store.Member
		if err := rows.Scan(&m.UserID, &m.ChannelID, &m.IsAdmin, &m.IsBanned, &m.KickCount, &m.JoinedAt, &m.Username); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, &m)
	}

	return members, rows.Err()
}

// ListUserChannels lists the channels a user has a membership row in.
func (s *SQLiteStore) ListUserChannels(ctx context.Context, userID int64) ([]*store.UserChannel, error) {
	query := `
		SELECT c.id, c.name, c.is_private, c.created_at, cu.is_admin, cu.is_banned
		FROM channel_users cu
		JOIN channels c ON c.id = cu.channel_id
		WHERE cu.user_id = ?
		ORDER BY c.name ASC
	`
	rows, err := s.q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query user channels: %w", err)
	}
	defer rows.Close()

	var channels []*store.UserChannel
	for rows.Next() {
		var uc store.UserChannel
		if err := rows.Scan(&uc.ID, &uc.Name, &uc.IsPrivate, &uc.CreatedAt, &uc.IsAdmin, &uc.IsBanned); err != nil {
			return nil, fmt.Errorf("scan user channel: %w", err)
		}
		channels = append(channels, &uc)
	}

	return channels, rows.Err()
}

// RecordKick inserts a kick vote unless the kicker already voted.
func (s *SQLiteStore) RecordKick(ctx context.Context, userID, channelID, kickerID int64) (bool, int, error) {
	var (
		added    bool
		distinct int
	)
	err := s.withTx(ctx, func(q queryer) error {
		insert := `
			INSERT OR IGNORE INTO kicks (user_id, channel_id, created_by)
			VALUES (?, ?, ?)
		`
		result, err := q.ExecContext(ctx, insert, userID, channelID, kickerID)
		if err != nil {
			return fmt.Errorf("insert kick: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("get rows affected: %w", err)
		}
		added = rows > 0

		count := `
			SELECT COUNT(DISTINCT created_by)
			FROM kicks
			WHERE user_id = ? AND channel_id = ?
		`
		if err := q.QueryRowContext(ctx, count, userID, channelID).Scan(&distinct); err != nil {
			return fmt.Errorf("count kicks: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, 0, err
	}
	return added, distinct, nil
}

// ClearKicks deletes every kick vote against a user in a channel.
func (s *SQLiteStore) ClearKicks(ctx context.Context, userID, channelID int64) error {
	if _, err := s.q.ExecContext(ctx, `DELETE FROM kicks WHERE user_id = ? AND channel_id = ?`, userID, channelID); err != nil {
		return fmt.Errorf("delete kicks: %w", err)
	}
	return nil
}

// ==== MessageStore implementation ====

// SaveMessage persists a message to storage.
func (s *SQLiteStore) SaveMessage(ctx context.Context, msg *store.Message) error {
	query := `
		INSERT INTO messages (channel_id, user_id, body, is_system, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	result, err := s.q.ExecContext(ctx, query, msg.ChannelID, msg.UserID, msg.Body, msg.IsSystem, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}

	msg.ID = id
	return nil
}

// ListMessages retrieves messages from a channel with pagination, oldest first.
func (s *SQLiteStore) ListMessages(ctx context.Context, channelID int64, limit int, beforeID *int64) ([]*store.Message, error) {
	query := `
		SELECT m.id, m.channel_id, m.user_id, COALESCE(u.username, ''), m.body, m.is_system, m.created_at
		FROM messages m
		LEFT JOIN users u ON u.id = m.user_id
		WHERE m.channel_id = ?
	`
	args := []any{channelID}
	if beforeID != nil {
		query += ` AND m.id < ?`
		args = append(args, *beforeID)
	}
	query += ` ORDER BY m.id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []*store.Message
	for rows.Next() {
		var msg store.Message
		var userID sql.NullInt64
		if err := rows.Scan(&msg.ID, &msg.ChannelID, &userID, &msg.Author, &msg.Body, &msg.IsSystem, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if userID.Valid {
			msg.UserID = &userID.Int64
		}
		messages = append(messages, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse to get chronological order
	for i := range len(messages) / 2 {
		messages[i], messages[len(messages)-1-i] = messages[len(messages)-1-i], messages[i]
	}

	return messages, nil
}
