// ABOUTME: Resolves participant IDs to display info (name, avatar)
// ABOUTME: Backed by the user store; the messaging core never owns user records

package identity

import (
	"context"
	"fmt"

	"github.com/connectify/connectify/internal/store"
)

// DisplayInfo is the public profile slice attached to conversations and
// messages before they are returned to a caller.
type DisplayInfo struct {
	ID             string
	Name           string
	ProfilePicture string
}

// UserGetter defines what the resolver needs from storage
type UserGetter interface {
	GetUser(ctx context.Context, id string) (*store.User, error)
}

// Resolver maps participant IDs to display metadata. Conversations hold
// only weak references to participants; every read path goes through
// here to attach the current name and avatar.
type Resolver struct {
	users UserGetter
}

// NewResolver creates a resolver over the given user store.
func NewResolver(users UserGetter) *Resolver {
	return &Resolver{users: users}
}

// DisplayInfo resolves a participant ID. An absent ID surfaces as
// store.ErrNotFound.
func (r *Resolver) DisplayInfo(ctx context.Context, participantID string) (*DisplayInfo, error) {
	user, err := r.users.GetUser(ctx, participantID)
	if err != nil {
		return nil, fmt.Errorf("resolving participant %s: %w", participantID, err)
	}

	return &DisplayInfo{
		ID:             user.ID,
		Name:           user.Name,
		ProfilePicture: user.ProfilePicture,
	}, nil
}
