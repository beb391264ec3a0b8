// ABOUTME: User and follow-graph persistence for the SQLite store
// ABOUTME: Accounts are keyed by uuid with a unique email index

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// CreateUser inserts a new user. Returns ErrDuplicateUser if the email
// is already registered.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (id, name, email, password_hash, profile_picture, bio, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.ProfilePicture,
		user.Bio,
		formatTime(user.CreatedAt),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return ErrDuplicateUser
		}
		return fmt.Errorf("inserting user: %w", err)
	}

	s.logger.Debug("created user", "id", user.ID, "email", user.Email)
	return nil
}

// GetUser returns the user with the given id, or ErrNotFound.
func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*User, error) {
	query := `
		SELECT id, name, email, password_hash, profile_picture, bio, created_at
		FROM users
		WHERE id = ?
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, id))
}

// GetUserByEmail returns the user with the given email, or ErrNotFound.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	query := `
		SELECT id, name, email, password_hash, profile_picture, bio, created_at
		FROM users
		WHERE email = ?
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, email))
}

// ListUsers returns all users ordered by creation time.
func (s *SQLiteStore) ListUsers(ctx context.Context) ([]*User, error) {
	query := `
		SELECT id, name, email, password_hash, profile_picture, bio, created_at
		FROM users
		ORDER BY created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		var u User
		var createdAtStr string

		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash,
			&u.ProfilePicture, &u.Bio, &createdAtStr); err != nil {
			return nil, fmt.Errorf("scanning user row: %w", err)
		}

		u.CreatedAt, err = parseTime(createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}

		users = append(users, &u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating user rows: %w", err)
	}

	return users, nil
}

// UpdateUser updates the mutable profile fields (name, profile picture,
// bio). Returns ErrNotFound if the id is unknown.
func (s *SQLiteStore) UpdateUser(ctx context.Context, user *User) error {
	query := `
		UPDATE users
		SET name = ?, profile_picture = ?, bio = ?
		WHERE id = ?
	`

	res, err := s.db.ExecContext(ctx, query, user.Name, user.ProfilePicture, user.Bio, user.ID)
	if err != nil {
		return fmt.Errorf("updating user: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// FollowUser adds a follow edge. Following twice is a no-op.
func (s *SQLiteStore) FollowUser(ctx context.Context, followerID, followeeID string) error {
	query := `
		INSERT OR IGNORE INTO follows (follower_id, followee_id, created_at)
		VALUES (?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query, followerID, followeeID, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("inserting follow: %w", err)
	}
	return nil
}

// UnfollowUser removes a follow edge. Returns ErrNotFound if the edge
// does not exist.
func (s *SQLiteStore) UnfollowUser(ctx context.Context, followerID, followeeID string) error {
	query := `DELETE FROM follows WHERE follower_id = ? AND followee_id = ?`

	res, err := s.db.ExecContext(ctx, query, followerID, followeeID)
	if err != nil {
		return fmt.Errorf("deleting follow: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// ListFollowers returns the ids of users following userID.
func (s *SQLiteStore) ListFollowers(ctx context.Context, userID string) ([]string, error) {
	return s.listFollowEdges(ctx,
		`SELECT follower_id FROM follows WHERE followee_id = ? ORDER BY created_at ASC`, userID)
}

// ListFollowing returns the ids of users that userID follows.
func (s *SQLiteStore) ListFollowing(ctx context.Context, userID string) ([]string, error) {
	return s.listFollowEdges(ctx,
		`SELECT followee_id FROM follows WHERE follower_id = ? ORDER BY created_at ASC`, userID)
}

func (s *SQLiteStore) listFollowEdges(ctx context.Context, query, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("querying follows: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning follow row: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating follow rows: %w", err)
	}

	return ids, nil
}

func (s *SQLiteStore) scanUser(row *sql.Row) (*User, error) {
	var u User
	var createdAtStr string

	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash,
		&u.ProfilePicture, &u.Bio, &createdAtStr)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}

	u.CreatedAt, err = parseTime(createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	return &u, nil
}
