// ABOUTME: Gateway orchestrator wiring the HTTP mux, auth middleware and lifecycle
// ABOUTME: Serves the REST API, websocket endpoint, uploads, health and metrics

package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/connectify/connectify/internal/auth"
	"github.com/connectify/connectify/internal/config"
	"github.com/connectify/connectify/internal/conversation"
	"github.com/connectify/connectify/internal/identity"
	"github.com/connectify/connectify/internal/store"
)

// defaultAvatar is the profile picture assigned to new accounts.
const defaultAvatar = "/uploads/default-avatar.png"

// Gateway orchestrates the connectify-server HTTP surface: the REST API,
// the realtime websocket endpoint, static upload serving, health and
// metrics.
type Gateway struct {
	config        *config.Config
	store         store.Store
	conversations *conversation.Service
	broadcaster   *conversation.Broadcaster
	tokens        *auth.JWTManager
	resolver      *identity.Resolver
	validate      *validator.Validate
	metrics       *metrics
	metricsHTTP   http.Handler
	httpServer    *http.Server
	logger        *slog.Logger
}

// New creates a Gateway over the given dependencies. Each gateway owns
// its own metrics registry so instances never collide.
func New(
	cfg *config.Config,
	st store.Store,
	conversations *conversation.Service,
	broadcaster *conversation.Broadcaster,
	tokens *auth.JWTManager,
	resolver *identity.Resolver,
	logger *slog.Logger,
) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}

	registry := prometheus.NewRegistry()
	return &Gateway{
		config:        cfg,
		store:         st,
		conversations: conversations,
		broadcaster:   broadcaster,
		tokens:        tokens,
		resolver:      resolver,
		validate:      validator.New(),
		metrics:       newMetrics(registry),
		metricsHTTP:   promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		logger:        logger.With("component", "gateway"),
	}
}

// routes builds the HTTP mux. Conversation and profile mutation routes
// sit behind JWT auth; user/post reads are public, matching the API the
// web client expects.
func (g *Gateway) routes() http.Handler {
	mux := http.NewServeMux()
	authed := auth.Middleware(g.tokens)

	// Messaging
	mux.Handle("GET /api/conversations", authed(http.HandlerFunc(g.handleListConversations)))
	mux.Handle("GET /api/conversations/{id}/messages", authed(http.HandlerFunc(g.handleConversationMessages)))
	mux.Handle("POST /api/messages", authed(http.HandlerFunc(g.handleSendMessage)))

	// Auth
	mux.HandleFunc("POST /api/auth/register", g.handleRegister)
	mux.HandleFunc("POST /api/auth/login", g.handleLogin)
	mux.Handle("GET /api/auth/user", authed(http.HandlerFunc(g.handleAuthUser)))

	// Users
	mux.HandleFunc("GET /api/users", g.handleListUsers)
	mux.HandleFunc("GET /api/users/{id}", g.handleGetUser)
	mux.Handle("PUT /api/users/{id}", authed(http.HandlerFunc(g.handleUpdateUser)))
	mux.Handle("POST /api/users/{id}/follow", authed(http.HandlerFunc(g.handleFollowUser)))
	mux.Handle("POST /api/users/{id}/unfollow", authed(http.HandlerFunc(g.handleUnfollowUser)))

	// Posts
	mux.HandleFunc("GET /api/posts", g.handleListPosts)
	mux.HandleFunc("GET /api/posts/{id}", g.handleGetPost)
	mux.Handle("POST /api/posts", authed(http.HandlerFunc(g.handleCreatePost)))
	mux.Handle("DELETE /api/posts/{id}", authed(http.HandlerFunc(g.handleDeletePost)))
	mux.Handle("PUT /api/posts/{id}/like", authed(http.HandlerFunc(g.handleLikePost)))
	mux.Handle("PUT /api/posts/{id}/unlike", authed(http.HandlerFunc(g.handleUnlikePost)))
	mux.Handle("POST /api/posts/{id}/comment", authed(http.HandlerFunc(g.handleCommentPost)))

	// Uploads
	mux.Handle("POST /api/upload", authed(http.HandlerFunc(g.handleUpload)))
	mux.Handle("GET /uploads/", http.StripPrefix("/uploads/",
		http.FileServer(http.Dir(g.config.Uploads.Dir))))

	// Realtime
	mux.HandleFunc("GET /ws", g.handleWebSocket)

	mux.HandleFunc("GET /health", g.handleHealth)
	if g.config.Metrics.Enabled {
		mux.Handle("GET "+g.config.Metrics.Path, g.metricsHTTP)
	}

	return mux
}

// Start runs the HTTP server until ctx is cancelled or the listener
// fails.
func (g *Gateway) Start(ctx context.Context) error {
	if err := g.ensureUploadsDir(); err != nil {
		return fmt.Errorf("preparing uploads dir: %w", err)
	}

	g.httpServer = &http.Server{
		Addr:              g.config.Server.HTTPAddr,
		Handler:           g.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- g.httpServer.ListenAndServe()
	}()

	g.logger.Info("http server listening", "addr", g.config.Server.HTTPAddr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return g.Shutdown(shutdownCtx)
	}
}

// Shutdown stops accepting connections, drains in-flight requests and
// tears down the broadcaster.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.logger.Info("shutting down")

	var err error
	if g.httpServer != nil {
		err = g.httpServer.Shutdown(ctx)
	}
	g.broadcaster.Close()
	return err
}

// Handler exposes the full route set without starting a listener.
// Used by tests via httptest.Server.
func (g *Gateway) Handler() http.Handler {
	return g.routes()
}

// ensureUploadsDir creates the uploads directory and the default avatar
// placeholder the client references for fresh accounts.
func (g *Gateway) ensureUploadsDir() error {
	if err := os.MkdirAll(g.config.Uploads.Dir, 0o755); err != nil {
		return err
	}

	avatar := filepath.Join(g.config.Uploads.Dir, "default-avatar.png")
	if _, err := os.Stat(avatar); os.IsNotExist(err) {
		if err := os.WriteFile(avatar, []byte{}, 0o644); err != nil {
			return err
		}
	}
	return nil
}

func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
