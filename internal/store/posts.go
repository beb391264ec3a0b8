// ABOUTME: Post, like and comment persistence for the SQLite store
// ABOUTME: Posts are loaded with their like and comment sets attached

package store

import (
	"context"
	"database/sql"
	"fmt"
)

// CreatePost inserts a new post.
func (s *SQLiteStore) CreatePost(ctx context.Context, post *Post) error {
	query := `
		INSERT INTO posts (id, user_id, content, image, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		post.ID, post.UserID, post.Content, post.Image, formatTime(post.CreatedAt))
	if err != nil {
		return fmt.Errorf("inserting post: %w", err)
	}

	s.logger.Debug("created post", "id", post.ID, "user_id", post.UserID)
	return nil
}

// GetPost returns a post with likes and comments attached, or ErrNotFound.
func (s *SQLiteStore) GetPost(ctx context.Context, id string) (*Post, error) {
	query := `
		SELECT id, user_id, content, image, created_at
		FROM posts
		WHERE id = ?
	`

	var post Post
	var createdAtStr string

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&post.ID, &post.UserID, &post.Content, &post.Image, &createdAtStr)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying post: %w", err)
	}

	post.CreatedAt, err = parseTime(createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	if err := s.attachPostRelations(ctx, &post); err != nil {
		return nil, err
	}

	return &post, nil
}

// ListPosts returns all posts, newest first, with likes and comments.
func (s *SQLiteStore) ListPosts(ctx context.Context) ([]*Post, error) {
	query := `
		SELECT id, user_id, content, image, created_at
		FROM posts
		ORDER BY created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying posts: %w", err)
	}
	defer rows.Close()

	var posts []*Post
	for rows.Next() {
		var post Post
		var createdAtStr string

		if err := rows.Scan(&post.ID, &post.UserID, &post.Content, &post.Image, &createdAtStr); err != nil {
			return nil, fmt.Errorf("scanning post row: %w", err)
		}

		post.CreatedAt, err = parseTime(createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}

		posts = append(posts, &post)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating post rows: %w", err)
	}

	for _, post := range posts {
		if err := s.attachPostRelations(ctx, post); err != nil {
			return nil, err
		}
	}

	return posts, nil
}

// DeletePost removes a post and its likes/comments (cascade).
// Returns ErrNotFound if the id is unknown.
func (s *SQLiteStore) DeletePost(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting post: %w", err)
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

// LikePost records a like. Liking twice is a no-op.
func (s *SQLiteStore) LikePost(ctx context.Context, postID, userID string) error {
	if _, err := s.GetPost(ctx, postID); err != nil {
		return err
	}

	query := `
		INSERT OR IGNORE INTO post_likes (post_id, user_id, created_at)
		VALUES (?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query, postID, userID, formatTime(nowUTC()))
	if err != nil {
		return fmt.Errorf("inserting like: %w", err)
	}
	return nil
}

// UnlikePost removes a like if present.
func (s *SQLiteStore) UnlikePost(ctx context.Context, postID, userID string) error {
	if _, err := s.GetPost(ctx, postID); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx,
		`DELETE FROM post_likes WHERE post_id = ? AND user_id = ?`, postID, userID)
	if err != nil {
		return fmt.Errorf("deleting like: %w", err)
	}
	return nil
}

// AddComment appends a comment to a post. Returns ErrNotFound if the
// post does not exist, ErrValidation for empty text.
func (s *SQLiteStore) AddComment(ctx context.Context, comment *Comment) error {
	if comment.Text == "" {
		return fmt.Errorf("%w: comment text is empty", ErrValidation)
	}
	if _, err := s.GetPost(ctx, comment.PostID); err != nil {
		return err
	}

	query := `
		INSERT INTO post_comments (id, post_id, user_id, text, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		comment.ID, comment.PostID, comment.UserID, comment.Text, formatTime(comment.CreatedAt))
	if err != nil {
		return fmt.Errorf("inserting comment: %w", err)
	}
	return nil
}

// attachPostRelations loads the like and comment sets for a post.
func (s *SQLiteStore) attachPostRelations(ctx context.Context, post *Post) error {
	likeRows, err := s.db.QueryContext(ctx,
		`SELECT user_id FROM post_likes WHERE post_id = ? ORDER BY created_at ASC`, post.ID)
	if err != nil {
		return fmt.Errorf("querying likes: %w", err)
	}
	defer likeRows.Close()

	post.Likes = []string{}
	for likeRows.Next() {
		var userID string
		if err := likeRows.Scan(&userID); err != nil {
			return fmt.Errorf("scanning like row: %w", err)
		}
		post.Likes = append(post.Likes, userID)
	}
	if err := likeRows.Err(); err != nil {
		return fmt.Errorf("iterating like rows: %w", err)
	}

	commentRows, err := s.db.QueryContext(ctx,
		`SELECT id, post_id, user_id, text, created_at FROM post_comments WHERE post_id = ? ORDER BY created_at ASC`,
		post.ID)
	if err != nil {
		return fmt.Errorf("querying comments: %w", err)
	}
	defer commentRows.Close()

	post.Comments = []*Comment{}
	for commentRows.Next() {
		var c Comment
		var createdAtStr string
		if err := commentRows.Scan(&c.ID, &c.PostID, &c.UserID, &c.Text, &createdAtStr); err != nil {
			return fmt.Errorf("scanning comment row: %w", err)
		}
		c.CreatedAt, err = parseTime(createdAtStr)
		if err != nil {
			return fmt.Errorf("parsing created_at: %w", err)
		}
		post.Comments = append(post.Comments, &c)
	}
	if err := commentRows.Err(); err != nil {
		return fmt.Errorf("iterating comment rows: %w", err)
	}

	return nil
}
