// ABOUTME: ConversationService is the central layer for direct-message persistence
// ABOUTME: All sends flow through here - persist first, then broadcast to the room

package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/connectify/connectify/internal/identity"
	"github.com/connectify/connectify/internal/store"
)

// ConversationStore defines what the service needs from storage
type ConversationStore interface {
	CreateConversation(ctx context.Context, conv *store.Conversation) error
	GetConversationByParticipants(ctx context.Context, a, b string) (*store.Conversation, error)
	TouchConversation(ctx context.Context, id, lastMessage string, at time.Time) error
	ListConversationsForParticipant(ctx context.Context, participantID string) ([]*store.Conversation, error)

	AppendMessage(ctx context.Context, msg *store.Message) error
	ListMessagesForConversation(ctx context.Context, conversationID string) ([]*store.Message, error)
}

// DisplayResolver defines what the service needs from the identity layer
type DisplayResolver interface {
	DisplayInfo(ctx context.Context, participantID string) (*identity.DisplayInfo, error)
}

// Notifier defines what the service needs from the realtime layer.
// Publish is fire-and-forget; it never returns an error to the sender.
type Notifier interface {
	Publish(roomID string, payload any)
}

// EnrichedMessage is a message with its sender's display info resolved.
type EnrichedMessage struct {
	Message *store.Message
	Sender  *identity.DisplayInfo
}

// Summary is a conversation enriched with the other participant's
// display info for the list view.
type Summary struct {
	Conversation     *store.Conversation
	OtherParticipant *identity.DisplayInfo
}

// SendResult is the outcome of SendMessage: the (possibly new)
// conversation and the persisted, enriched message.
type SendResult struct {
	Conversation *store.Conversation
	Message      *EnrichedMessage
}

// Service coordinates conversation operations: find-or-create of the
// participant-pair conversation, message append, summary denormalization,
// display-info enrichment, and realtime notification.
type Service struct {
	store    ConversationStore
	resolver DisplayResolver
	notifier Notifier
	logger   *slog.Logger

	// pairLocks serializes find-or-create + append per participant pair
	// so concurrent first sends cannot create two conversations and
	// timestamps within a conversation match append order. Locks are
	// retained for the process lifetime.
	pairMu    sync.Mutex
	pairLocks map[string]*sync.Mutex
}

// New creates a new conversation Service
func New(st ConversationStore, resolver DisplayResolver, notifier Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     st,
		resolver:  resolver,
		notifier:  notifier,
		logger:    logger.With("component", "conversation"),
		pairLocks: make(map[string]*sync.Mutex),
	}
}

// SendMessage persists a message from sender to receiver, creating the
// pair's conversation if it does not exist yet, and notifies the room
// after persistence completes.
//
// Key principle: persist first, then broadcast. The broadcast only ever
// carries a message that is already durable, so the realtime view can
// never get ahead of the REST history view.
func (s *Service) SendMessage(ctx context.Context, senderID, receiverID, text string) (*SendResult, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: message text is required", store.ErrValidation)
	}
	if senderID == "" || receiverID == "" {
		return nil, fmt.Errorf("%w: sender and receiver are required", store.ErrValidation)
	}
	if senderID == receiverID {
		return nil, fmt.Errorf("%w: cannot message yourself", store.ErrValidation)
	}

	// Resolve both participants up front; an unknown receiver is the
	// caller's error, not a half-written conversation.
	senderInfo, err := s.resolver.DisplayInfo(ctx, senderID)
	if err != nil {
		return nil, err
	}
	if _, err := s.resolver.DisplayInfo(ctx, receiverID); err != nil {
		return nil, err
	}

	lock := s.pairLock(senderID, receiverID)
	lock.Lock()

	conv, err := s.ensureConversation(ctx, senderID, receiverID)
	if err != nil {
		lock.Unlock()
		return nil, err
	}

	now := time.Now().UTC()
	msg := &store.Message{
		ID:             uuid.New().String(),
		ConversationID: conv.ID,
		SenderID:       senderID,
		ReceiverID:     receiverID,
		Text:           text,
		CreatedAt:      now,
	}
	if err := s.store.AppendMessage(ctx, msg); err != nil {
		lock.Unlock()
		return nil, fmt.Errorf("appending message: %w", err)
	}

	if err := s.store.TouchConversation(ctx, conv.ID, text, now); err != nil {
		// The message is durable; a failed summary update degrades the
		// list view but must not fail the send.
		s.logger.Error("failed to update conversation summary",
			"error", err,
			"conversation_id", conv.ID)
	} else {
		conv.LastMessage = text
		conv.LastMessageTime = now
	}
	lock.Unlock()

	s.logger.Debug("message sent",
		"conversation_id", conv.ID,
		"message_id", msg.ID,
		"sender", senderID)

	enriched := &EnrichedMessage{Message: msg, Sender: senderInfo}

	// Broadcast after persistence. Fire-and-forget: delivery problems
	// are the broadcaster's to swallow, never the sender's.
	s.notifier.Publish(conv.ID, enriched)

	return &SendResult{Conversation: conv, Message: enriched}, nil
}

// ListConversations returns the participant's conversations, most
// recently active first, each enriched with the other participant's
// display info.
func (s *Service) ListConversations(ctx context.Context, participantID string) ([]*Summary, error) {
	convs, err := s.store.ListConversationsForParticipant(ctx, participantID)
	if err != nil {
		return nil, err
	}

	summaries := make([]*Summary, 0, len(convs))
	for _, conv := range convs {
		other, err := s.resolver.DisplayInfo(ctx, conv.OtherParticipant(participantID))
		if err != nil {
			// A dangling participant reference hides the conversation
			// from the list rather than failing the whole call.
			s.logger.Warn("skipping conversation with unresolvable participant",
				"conversation_id", conv.ID,
				"error", err)
			continue
		}
		summaries = append(summaries, &Summary{Conversation: conv, OtherParticipant: other})
	}

	return summaries, nil
}

// ListMessages returns a conversation's messages in ascending creation
// order, each enriched with the sender's display info. An unknown
// conversation id yields an empty slice.
func (s *Service) ListMessages(ctx context.Context, conversationID string) ([]*EnrichedMessage, error) {
	msgs, err := s.store.ListMessagesForConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	resolved := make(map[string]*identity.DisplayInfo)
	enriched := make([]*EnrichedMessage, 0, len(msgs))
	for _, msg := range msgs {
		sender, ok := resolved[msg.SenderID]
		if !ok {
			sender, err = s.resolver.DisplayInfo(ctx, msg.SenderID)
			if err != nil {
				return nil, err
			}
			resolved[msg.SenderID] = sender
		}
		enriched = append(enriched, &EnrichedMessage{Message: msg, Sender: sender})
	}

	return enriched, nil
}

// ensureConversation resolves the pair's existing conversation or
// creates a new one. Callers hold the pair lock; the duplicate-create
// fallback below is a second line of defense in case another writer
// (e.g. a different process on the same database) won a race.
func (s *Service) ensureConversation(ctx context.Context, a, b string) (*store.Conversation, error) {
	conv, err := s.store.GetConversationByParticipants(ctx, a, b)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	conv = &store.Conversation{
		ID:              uuid.New().String(),
		ParticipantA:    a,
		ParticipantB:    b,
		LastMessageTime: now,
		CreatedAt:       now,
	}
	if err := s.store.CreateConversation(ctx, conv); err != nil {
		if errors.Is(err, store.ErrDuplicateConversation) {
			existing, lookupErr := s.store.GetConversationByParticipants(ctx, a, b)
			if lookupErr == nil {
				s.logger.Debug("found existing conversation after race", "conversation_id", existing.ID)
				return existing, nil
			}
			s.logger.Error("retry lookup failed after duplicate error", "lookup_error", lookupErr)
		}
		return nil, err
	}

	s.logger.Debug("conversation created", "conversation_id", conv.ID)
	return conv, nil
}

// pairLock returns the mutex guarding a participant pair, creating it
// on first use. The key is order-independent.
func (s *Service) pairLock(a, b string) *sync.Mutex {
	pa, pb := store.PairKey(a, b)
	key := pa + "\x00" + pb

	s.pairMu.Lock()
	defer s.pairMu.Unlock()

	lock, ok := s.pairLocks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.pairLocks[key] = lock
	}
	return lock
}
