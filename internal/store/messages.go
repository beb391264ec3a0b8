// ABOUTME: Message persistence for the SQLite store
// ABOUTME: Append-only per-conversation log ordered by a sequence column

package store

import (
	"context"
	"fmt"
)

// AppendMessage appends a message to its conversation's log. The
// per-conversation sequence number is assigned inside the INSERT so a
// single statement both picks the next slot and writes the row.
// Returns ErrValidation for empty text.
func (s *SQLiteStore) AppendMessage(ctx context.Context, msg *Message) error {
	if msg.Text == "" {
		return fmt.Errorf("%w: message text is empty", ErrValidation)
	}

	query := `
		INSERT INTO messages (id, conversation_id, sender_id, receiver_id, text, seq, created_at)
		SELECT ?, ?, ?, ?, ?, COALESCE(MAX(seq), 0) + 1, ?
		FROM messages
		WHERE conversation_id = ?
	`

	_, err := s.db.ExecContext(ctx, query,
		msg.ID,
		msg.ConversationID,
		msg.SenderID,
		msg.ReceiverID,
		msg.Text,
		formatTime(msg.CreatedAt),
		msg.ConversationID,
	)
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}

	// Read back the assigned sequence for the caller
	seqQuery := `SELECT seq FROM messages WHERE id = ?`
	if err := s.db.QueryRowContext(ctx, seqQuery, msg.ID).Scan(&msg.Seq); err != nil {
		return fmt.Errorf("reading back message seq: %w", err)
	}

	s.logger.Debug("appended message", "id", msg.ID,
		"conversation_id", msg.ConversationID, "seq", msg.Seq)
	return nil
}

// ListMessagesForConversation returns all messages of a conversation in
// ascending creation order (ties broken by append order). An unknown
// conversation id yields an empty slice, not an error.
func (s *SQLiteStore) ListMessagesForConversation(ctx context.Context, conversationID string) ([]*Message, error) {
	query := `
		SELECT id, conversation_id, sender_id, receiver_id, text, seq, created_at
		FROM messages
		WHERE conversation_id = ?
		ORDER BY seq ASC
	`

	rows, err := s.db.QueryContext(ctx, query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var msgs []*Message
	for rows.Next() {
		var msg Message
		var createdAtStr string

		if err := rows.Scan(
			&msg.ID,
			&msg.ConversationID,
			&msg.SenderID,
			&msg.ReceiverID,
			&msg.Text,
			&msg.Seq,
			&createdAtStr,
		); err != nil {
			return nil, fmt.Errorf("scanning message row: %w", err)
		}

		msg.CreatedAt, err = parseTime(createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}

		msgs = append(msgs, &msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating message rows: %w", err)
	}

	return msgs, nil
}
