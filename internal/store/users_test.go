package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testUser(id, name, email string) *User {
	return &User{
		ID:             id,
		Name:           name,
		Email:          email,
		PasswordHash:   "$2a$10$hash",
		ProfilePicture: "/uploads/default-avatar.png",
		CreatedAt:      time.Now().UTC(),
	}
}

func TestStore_CreateUser(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateUser(ctx, testUser("u1", "John Doe", "john@example.com")))

	byID, err := store.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "John Doe", byID.Name)

	byEmail, err := store.GetUserByEmail(ctx, "john@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", byEmail.ID)
}

func TestStore_CreateUser_DuplicateEmail(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateUser(ctx, testUser("u1", "John Doe", "john@example.com")))

	err := store.CreateUser(ctx, testUser("u2", "Impostor", "john@example.com"))
	assert.ErrorIs(t, err, ErrDuplicateUser)
}

func TestStore_GetUser_NotFound(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, err := store.GetUser(ctx, "nonexistent")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_UpdateUser(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	user := testUser("u1", "John Doe", "john@example.com")
	require.NoError(t, store.CreateUser(ctx, user))

	user.Name = "John D."
	user.Bio = "Software Developer"
	require.NoError(t, store.UpdateUser(ctx, user))

	retrieved, err := store.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "John D.", retrieved.Name)
	assert.Equal(t, "Software Developer", retrieved.Bio)
}

func TestStore_FollowUnfollow(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateUser(ctx, testUser("u1", "John Doe", "john@example.com")))
	require.NoError(t, store.CreateUser(ctx, testUser("u2", "Jane Smith", "jane@example.com")))

	require.NoError(t, store.FollowUser(ctx, "u1", "u2"))
	// Following twice is a no-op
	require.NoError(t, store.FollowUser(ctx, "u1", "u2"))

	followers, err := store.ListFollowers(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, followers)

	following, err := store.ListFollowing(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"u2"}, following)

	require.NoError(t, store.UnfollowUser(ctx, "u1", "u2"))

	followers, err = store.ListFollowers(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, followers)
}

func TestStore_Unfollow_NotFollowing(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateUser(ctx, testUser("u1", "John Doe", "john@example.com")))
	require.NoError(t, store.CreateUser(ctx, testUser("u2", "Jane Smith", "jane@example.com")))

	err := store.UnfollowUser(ctx, "u1", "u2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_Posts(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateUser(ctx, testUser("u1", "John Doe", "john@example.com")))

	post := &Post{
		ID:        "p1",
		UserID:    "u1",
		Content:   "Just finished building a new web app!",
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.CreatePost(ctx, post))

	require.NoError(t, store.LikePost(ctx, "p1", "u1"))
	// Liking twice is a no-op
	require.NoError(t, store.LikePost(ctx, "p1", "u1"))

	comment := &Comment{
		ID:        "c1",
		PostID:    "p1",
		UserID:    "u1",
		Text:      "That looks amazing!",
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.AddComment(ctx, comment))

	retrieved, err := store.GetPost(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, retrieved.Likes)
	require.Len(t, retrieved.Comments, 1)
	assert.Equal(t, "That looks amazing!", retrieved.Comments[0].Text)

	require.NoError(t, store.UnlikePost(ctx, "p1", "u1"))
	retrieved, err = store.GetPost(ctx, "p1")
	require.NoError(t, err)
	assert.Empty(t, retrieved.Likes)

	require.NoError(t, store.DeletePost(ctx, "p1"))
	_, err = store.GetPost(ctx, "p1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_AddComment_UnknownPost(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	comment := &Comment{
		ID:        "c1",
		PostID:    "nonexistent",
		UserID:    "u1",
		Text:      "hello",
		CreatedAt: time.Now().UTC(),
	}
	err := store.AddComment(ctx, comment)
	assert.ErrorIs(t, err, ErrNotFound)
}
