// ABOUTME: Conversation persistence for the SQLite store
// ABOUTME: One row per unordered participant pair, denormalized last-message summary

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// CreateConversation inserts a new conversation. Participants are
// normalized to canonical order before insert. Returns
// ErrDuplicateConversation if a conversation already exists for the pair.
func (s *SQLiteStore) CreateConversation(ctx context.Context, conv *Conversation) error {
	conv.ParticipantA, conv.ParticipantB = PairKey(conv.ParticipantA, conv.ParticipantB)

	query := `
		INSERT INTO conversations (id, participant_a, participant_b, last_message, last_message_time, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		conv.ID,
		conv.ParticipantA,
		conv.ParticipantB,
		conv.LastMessage,
		formatTime(conv.LastMessageTime),
		formatTime(conv.CreatedAt),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return ErrDuplicateConversation
		}
		return fmt.Errorf("inserting conversation: %w", err)
	}

	s.logger.Debug("created conversation", "id", conv.ID,
		"participant_a", conv.ParticipantA, "participant_b", conv.ParticipantB)
	return nil
}

// GetConversation returns the conversation with the given id, or ErrNotFound.
func (s *SQLiteStore) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	query := `
		SELECT id, participant_a, participant_b, last_message, last_message_time, created_at
		FROM conversations
		WHERE id = ?
	`
	return s.scanConversation(s.db.QueryRowContext(ctx, query, id))
}

// GetConversationByParticipants looks up the conversation for a participant
// pair. The lookup is symmetric: argument order does not matter.
func (s *SQLiteStore) GetConversationByParticipants(ctx context.Context, a, b string) (*Conversation, error) {
	pa, pb := PairKey(a, b)

	query := `
		SELECT id, participant_a, participant_b, last_message, last_message_time, created_at
		FROM conversations
		WHERE participant_a = ? AND participant_b = ?
	`
	return s.scanConversation(s.db.QueryRowContext(ctx, query, pa, pb))
}

// TouchConversation updates the denormalized last-message summary.
// Returns ErrNotFound if the conversation id is unknown.
func (s *SQLiteStore) TouchConversation(ctx context.Context, id, lastMessage string, at time.Time) error {
	query := `
		UPDATE conversations
		SET last_message = ?, last_message_time = ?
		WHERE id = ?
	`

	res, err := s.db.ExecContext(ctx, query, lastMessage, formatTime(at), id)
	if err != nil {
		return fmt.Errorf("updating conversation summary: %w", err)
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

// ListConversationsForParticipant returns every conversation the
// participant is a member of, most recently active first.
func (s *SQLiteStore) ListConversationsForParticipant(ctx context.Context, participantID string) ([]*Conversation, error) {
	query := `
		SELECT id, participant_a, participant_b, last_message, last_message_time, created_at
		FROM conversations
		WHERE participant_a = ? OR participant_b = ?
		ORDER BY last_message_time DESC
	`

	rows, err := s.db.QueryContext(ctx, query, participantID, participantID)
	if err != nil {
		return nil, fmt.Errorf("querying conversations: %w", err)
	}
	defer rows.Close()

	var convs []*Conversation
	for rows.Next() {
		var conv Conversation
		var lastMsgTimeStr, createdAtStr string

		if err := rows.Scan(
			&conv.ID,
			&conv.ParticipantA,
			&conv.ParticipantB,
			&conv.LastMessage,
			&lastMsgTimeStr,
			&createdAtStr,
		); err != nil {
			return nil, fmt.Errorf("scanning conversation row: %w", err)
		}

		conv.LastMessageTime, err = parseTime(lastMsgTimeStr)
		if err != nil {
			return nil, fmt.Errorf("parsing last_message_time: %w", err)
		}
		conv.CreatedAt, err = parseTime(createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}

		convs = append(convs, &conv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating conversation rows: %w", err)
	}

	return convs, nil
}

func (s *SQLiteStore) scanConversation(row *sql.Row) (*Conversation, error) {
	var conv Conversation
	var lastMsgTimeStr, createdAtStr string

	err := row.Scan(
		&conv.ID,
		&conv.ParticipantA,
		&conv.ParticipantB,
		&conv.LastMessage,
		&lastMsgTimeStr,
		&createdAtStr,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying conversation: %w", err)
	}

	conv.LastMessageTime, err = parseTime(lastMsgTimeStr)
	if err != nil {
		return nil, fmt.Errorf("parsing last_message_time: %w", err)
	}
	conv.CreatedAt, err = parseTime(createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	return &conv, nil
}
