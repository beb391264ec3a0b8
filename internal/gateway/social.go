// ABOUTME: REST handlers for the social surface: auth, user profiles, follows and posts
// ABOUTME: Plain CRUD at the HTTP boundary; identity always comes from the JWT subject

package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/connectify/connectify/internal/auth"
	"github.com/connectify/connectify/internal/store"
)

// registerRequest is the JSON body for POST /api/auth/register.
type registerRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// loginRequest is the JSON body for POST /api/auth/login.
type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// authUser is the account shape returned by auth endpoints.
type authUser struct {
	ID             string `json:"_id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	ProfilePicture string `json:"profilePicture"`
	Bio            string `json:"bio"`
}

// authResponse is the JSON response for register and login.
type authResponse struct {
	Token string   `json:"token"`
	User  authUser `json:"user"`
}

// userListItem is one entry of GET /api/users.
type userListItem struct {
	ID             string `json:"_id"`
	Name           string `json:"name"`
	ProfilePicture string `json:"profilePicture"`
	Bio            string `json:"bio"`
}

// userProfileResponse is the full profile for GET /api/users/{id}.
type userProfileResponse struct {
	ID             string   `json:"_id"`
	Name           string   `json:"name"`
	Email          string   `json:"email"`
	ProfilePicture string   `json:"profilePicture"`
	Bio            string   `json:"bio"`
	Followers      []string `json:"followers"`
	Following      []string `json:"following"`
}

// updateUserRequest is the JSON body for PUT /api/users/{id}.
// Empty fields are left unchanged.
type updateUserRequest struct {
	Name string `json:"name"`
	Bio  string `json:"bio"`
}

// createPostRequest is the JSON body for POST /api/posts.
type createPostRequest struct {
	Content string `json:"content" validate:"required"`
	Image   string `json:"image"`
}

// commentRequest is the JSON body for POST /api/posts/{id}/comment.
type commentRequest struct {
	Text string `json:"text" validate:"required"`
}

// commentResponse is a comment enriched with its author.
type commentResponse struct {
	ID        string    `json:"_id"`
	User      userRef   `json:"user"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// postResponse is a post enriched with author and comment authors.
type postResponse struct {
	ID        string            `json:"_id"`
	User      userRef           `json:"user"`
	Content   string            `json:"content"`
	Image     string            `json:"image,omitempty"`
	Likes     []string          `json:"likes"`
	Comments  []commentResponse `json:"comments"`
	CreatedAt time.Time         `json:"createdAt"`
}

func toAuthUser(u *store.User) authUser {
	return authUser{
		ID:             u.ID,
		Name:           u.Name,
		Email:          u.Email,
		ProfilePicture: u.ProfilePicture,
		Bio:            u.Bio,
	}
}

// handleRegister handles POST /api/auth/register.
func (g *Gateway) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := g.validate.Struct(req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "name, a valid email and a password of at least 6 characters are required")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		g.writeStoreError(w, err)
		return
	}

	user := &store.User{
		ID:             uuid.New().String(),
		Name:           req.Name,
		Email:          req.Email,
		PasswordHash:   hash,
		ProfilePicture: defaultAvatar,
		CreatedAt:      time.Now().UTC(),
	}
	if err := g.store.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, store.ErrDuplicateUser) {
			g.sendJSONError(w, http.StatusBadRequest, "User already exists")
			return
		}
		g.writeStoreError(w, err)
		return
	}

	token, err := g.tokens.Generate(user.ID)
	if err != nil {
		g.writeStoreError(w, err)
		return
	}

	g.logger.Info("user registered", "user_id", user.ID)
	writeJSON(w, http.StatusOK, authResponse{Token: token, User: toAuthUser(user)})
}

// handleLogin handles POST /api/auth/login.
// Unknown email and wrong password produce the same response so the
// endpoint does not reveal which accounts exist.
func (g *Gateway) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := g.validate.Struct(req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := g.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			g.sendJSONError(w, http.StatusBadRequest, "Invalid Credentials")
			return
		}
		g.writeStoreError(w, err)
		return
	}

	if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "Invalid Credentials")
		return
	}

	token, err := g.tokens.Generate(user.ID)
	if err != nil {
		g.writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{Token: token, User: toAuthUser(user)})
}

// handleAuthUser handles GET /api/auth/user.
func (g *Gateway) handleAuthUser(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	user, err := g.store.GetUser(r.Context(), userID)
	if err != nil {
		g.writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAuthUser(user))
}

// handleListUsers handles GET /api/users.
func (g *Gateway) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := g.store.ListUsers(r.Context())
	if err != nil {
		g.writeStoreError(w, err)
		return
	}

	response := lo.Map(users, func(u *store.User, _ int) userListItem {
		return userListItem{
			ID:             u.ID,
			Name:           u.Name,
			ProfilePicture: u.ProfilePicture,
			Bio:            u.Bio,
		}
	})

	writeJSON(w, http.StatusOK, response)
}

// handleGetUser handles GET /api/users/{id}.
func (g *Gateway) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := g.store.GetUser(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			g.sendJSONError(w, http.StatusNotFound, "User not found")
			return
		}
		g.writeStoreError(w, err)
		return
	}

	followers, err := g.store.ListFollowers(r.Context(), user.ID)
	if err != nil {
		g.writeStoreError(w, err)
		return
	}
	following, err := g.store.ListFollowing(r.Context(), user.ID)
	if err != nil {
		g.writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, userProfileResponse{
		ID:             user.ID,
		Name:           user.Name,
		Email:          user.Email,
		ProfilePicture: user.ProfilePicture,
		Bio:            user.Bio,
		Followers:      followers,
		Following:      following,
	})
}

// handleUpdateUser handles PUT /api/users/{id}.
// Users can only update their own profile.
func (g *Gateway) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	if userID != r.PathValue("id") {
		g.sendJSONError(w, http.StatusForbidden, "You can update only your account!")
		return
	}

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	user, err := g.store.GetUser(r.Context(), userID)
	if err != nil {
		g.writeStoreError(w, err)
		return
	}

	if req.Name != "" {
		user.Name = req.Name
	}
	if req.Bio != "" {
		user.Bio = req.Bio
	}
	if err := g.store.UpdateUser(r.Context(), user); err != nil {
		g.writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAuthUser(user))
}

// handleFollowUser handles POST /api/users/{id}/follow.
func (g *Gateway) handleFollowUser(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	targetID := r.PathValue("id")

	if userID == targetID {
		g.sendJSONError(w, http.StatusBadRequest, "You cannot follow yourself")
		return
	}

	if _, err := g.store.GetUser(r.Context(), targetID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			g.sendJSONError(w, http.StatusNotFound, "User not found")
			return
		}
		g.writeStoreError(w, err)
		return
	}

	following, err := g.store.ListFollowing(r.Context(), userID)
	if err != nil {
		g.writeStoreError(w, err)
		return
	}
	if lo.Contains(following, targetID) {
		g.sendJSONError(w, http.StatusBadRequest, "You are already following this user")
		return
	}

	if err := g.store.FollowUser(r.Context(), userID, targetID); err != nil {
		g.writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"msg": "User followed successfully"})
}

// handleUnfollowUser handles POST /api/users/{id}/unfollow.
func (g *Gateway) handleUnfollowUser(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	targetID := r.PathValue("id")

	if _, err := g.store.GetUser(r.Context(), targetID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			g.sendJSONError(w, http.StatusNotFound, "User not found")
			return
		}
		g.writeStoreError(w, err)
		return
	}

	if err := g.store.UnfollowUser(r.Context(), userID, targetID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			g.sendJSONError(w, http.StatusBadRequest, "You are not following this user")
			return
		}
		g.writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"msg": "User unfollowed successfully"})
}

// toPostResponse resolves author display info for the post and its
// comments. Unresolvable authors fall back to an empty ref rather than
// failing the whole feed.
func (g *Gateway) toPostResponse(r *http.Request, post *store.Post) postResponse {
	response := postResponse{
		ID:        post.ID,
		Content:   post.Content,
		Image:     post.Image,
		Likes:     post.Likes,
		Comments:  make([]commentResponse, 0, len(post.Comments)),
		CreatedAt: post.CreatedAt,
	}

	if info, err := g.resolver.DisplayInfo(r.Context(), post.UserID); err == nil {
		response.User = toUserRef(info)
	} else {
		response.User = userRef{ID: post.UserID}
	}

	for _, c := range post.Comments {
		cr := commentResponse{ID: c.ID, Text: c.Text, CreatedAt: c.CreatedAt}
		if info, err := g.resolver.DisplayInfo(r.Context(), c.UserID); err == nil {
			cr.User = toUserRef(info)
		} else {
			cr.User = userRef{ID: c.UserID}
		}
		response.Comments = append(response.Comments, cr)
	}

	return response
}

// handleListPosts handles GET /api/posts.
func (g *Gateway) handleListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := g.store.ListPosts(r.Context())
	if err != nil {
		g.writeStoreError(w, err)
		return
	}

	response := lo.Map(posts, func(p *store.Post, _ int) postResponse {
		return g.toPostResponse(r, p)
	})

	writeJSON(w, http.StatusOK, response)
}

// handleGetPost handles GET /api/posts/{id}.
func (g *Gateway) handleGetPost(w http.ResponseWriter, r *http.Request) {
	post, err := g.store.GetPost(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			g.sendJSONError(w, http.StatusNotFound, "Post not found")
			return
		}
		g.writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, g.toPostResponse(r, post))
}

// handleCreatePost handles POST /api/posts.
func (g *Gateway) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req createPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := g.validate.Struct(req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "content is required")
		return
	}

	post := &store.Post{
		ID:        uuid.New().String(),
		UserID:    userID,
		Content:   req.Content,
		Image:     req.Image,
		Likes:     []string{},
		Comments:  []*store.Comment{},
		CreatedAt: time.Now().UTC(),
	}
	if err := g.store.CreatePost(r.Context(), post); err != nil {
		g.writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, g.toPostResponse(r, post))
}

// handleDeletePost handles DELETE /api/posts/{id}.
// Only the author can delete a post.
func (g *Gateway) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	post, err := g.store.GetPost(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			g.sendJSONError(w, http.StatusNotFound, "Post not found")
			return
		}
		g.writeStoreError(w, err)
		return
	}
	if post.UserID != userID {
		g.sendJSONError(w, http.StatusForbidden, "You can delete only your posts")
		return
	}

	if err := g.store.DeletePost(r.Context(), post.ID); err != nil {
		g.writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"msg": "Post removed"})
}

// handleLikePost handles PUT /api/posts/{id}/like.
func (g *Gateway) handleLikePost(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	post, err := g.store.GetPost(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			g.sendJSONError(w, http.StatusNotFound, "Post not found")
			return
		}
		g.writeStoreError(w, err)
		return
	}

	if lo.Contains(post.Likes, userID) {
		g.sendJSONError(w, http.StatusBadRequest, "Post already liked")
		return
	}

	if err := g.store.LikePost(r.Context(), post.ID, userID); err != nil {
		g.writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string][]string{"likes": append(post.Likes, userID)})
}

// handleUnlikePost handles PUT /api/posts/{id}/unlike.
func (g *Gateway) handleUnlikePost(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	post, err := g.store.GetPost(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			g.sendJSONError(w, http.StatusNotFound, "Post not found")
			return
		}
		g.writeStoreError(w, err)
		return
	}

	if !lo.Contains(post.Likes, userID) {
		g.sendJSONError(w, http.StatusBadRequest, "Post has not yet been liked")
		return
	}

	if err := g.store.UnlikePost(r.Context(), post.ID, userID); err != nil {
		g.writeStoreError(w, err)
		return
	}

	likes := lo.Without(post.Likes, userID)
	writeJSON(w, http.StatusOK, map[string][]string{"likes": likes})
}

// handleCommentPost handles POST /api/posts/{id}/comment.
func (g *Gateway) handleCommentPost(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := g.validate.Struct(req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "text is required")
		return
	}

	comment := &store.Comment{
		ID:        uuid.New().String(),
		PostID:    r.PathValue("id"),
		UserID:    userID,
		Text:      req.Text,
		CreatedAt: time.Now().UTC(),
	}
	if err := g.store.AddComment(r.Context(), comment); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			g.sendJSONError(w, http.StatusNotFound, "Post not found")
			return
		}
		g.writeStoreError(w, err)
		return
	}

	response := commentResponse{ID: comment.ID, Text: comment.Text, CreatedAt: comment.CreatedAt}
	if info, err := g.resolver.DisplayInfo(r.Context(), userID); err == nil {
		response.User = toUserRef(info)
	} else {
		response.User = userRef{ID: userID}
	}

	writeJSON(w, http.StatusOK, response)
}
