// ABOUTME: Store interface and data types for connectify persistence
// ABOUTME: Defines User, Conversation, Message, Post structs and the Store interface

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrDuplicateConversation is returned when trying to create a conversation
// for a participant pair that already has one
var ErrDuplicateConversation = errors.New("conversation already exists")

// ErrDuplicateUser is returned when registering an email that is already taken
var ErrDuplicateUser = errors.New("user already exists")

// ErrValidation is returned for malformed input (e.g. empty message text)
var ErrValidation = errors.New("validation failed")

// User is a registered account. Conversations and messages reference users
// by ID only; the user record itself is owned by the identity subsystem.
type User struct {
	ID             string
	Name           string
	Email          string
	PasswordHash   string
	ProfilePicture string
	Bio            string
	CreatedAt      time.Time
}

// Conversation groups all messages between exactly two participants.
// ParticipantA and ParticipantB are stored in canonical order (A < B) so
// that one row exists per unordered pair regardless of who messaged first.
// LastMessage/LastMessageTime are denormalized for the list view.
type Conversation struct {
	ID              string
	ParticipantA    string
	ParticipantB    string
	LastMessage     string
	LastMessageTime time.Time
	CreatedAt       time.Time
}

// Participants returns both participant IDs in canonical order.
func (c *Conversation) Participants() []string {
	return []string{c.ParticipantA, c.ParticipantB}
}

// HasParticipant reports whether id is a member of the conversation.
func (c *Conversation) HasParticipant(id string) bool {
	return c.ParticipantA == id || c.ParticipantB == id
}

// OtherParticipant returns the member that is not id. Falls back to
// ParticipantA when id is not a member at all.
func (c *Conversation) OtherParticipant(id string) string {
	if c.ParticipantA == id {
		return c.ParticipantB
	}
	return c.ParticipantA
}

// PairKey returns the two participant IDs in canonical (lexicographic)
// order. Conversation lookup and creation must not depend on argument
// order, so every caller goes through this normalization.
func PairKey(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

// Message is a single immutable message within a conversation.
// Seq is assigned per conversation in append order and breaks timestamp
// ties, so ordering by Seq is ordering by (CreatedAt, append order).
type Message struct {
	ID             string
	ConversationID string
	SenderID       string
	ReceiverID     string
	Text           string
	Seq            int64
	CreatedAt      time.Time
}

// Post is a feed entry. Likes and comments are loaded alongside the post.
type Post struct {
	ID        string
	UserID    string
	Content   string
	Image     string
	Likes     []string
	Comments  []*Comment
	CreatedAt time.Time
}

// Comment is a reply attached to a post.
type Comment struct {
	ID        string
	PostID    string
	UserID    string
	Text      string
	CreatedAt time.Time
}

// Store defines the interface for connectify persistence
type Store interface {
	// Users
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	ListUsers(ctx context.Context) ([]*User, error)
	UpdateUser(ctx context.Context, user *User) error

	// Follow graph
	FollowUser(ctx context.Context, followerID, followeeID string) error
	UnfollowUser(ctx context.Context, followerID, followeeID string) error
	ListFollowers(ctx context.Context, userID string) ([]string, error)
	ListFollowing(ctx context.Context, userID string) ([]string, error)

	// Conversations
	CreateConversation(ctx context.Context, conv *Conversation) error
	GetConversation(ctx context.Context, id string) (*Conversation, error)
	GetConversationByParticipants(ctx context.Context, a, b string) (*Conversation, error)
	TouchConversation(ctx context.Context, id, lastMessage string, at time.Time) error
	ListConversationsForParticipant(ctx context.Context, participantID string) ([]*Conversation, error)

	// Messages
	AppendMessage(ctx context.Context, msg *Message) error
	ListMessagesForConversation(ctx context.Context, conversationID string) ([]*Message, error)

	// Posts
	CreatePost(ctx context.Context, post *Post) error
	GetPost(ctx context.Context, id string) (*Post, error)
	ListPosts(ctx context.Context) ([]*Post, error)
	DeletePost(ctx context.Context, id string) error
	LikePost(ctx context.Context, postID, userID string) error
	UnlikePost(ctx context.Context, postID, userID string) error
	AddComment(ctx context.Context, comment *Comment) error

	Close() error
}
