// ABOUTME: Websocket endpoint for realtime message delivery
// ABOUTME: One reader loop per connection; joinRoom/sendMessage in, receiveMessage out

package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"golang.org/x/time/rate"

	"github.com/connectify/connectify/internal/conversation"
)

// wsInboundEvent is the envelope for client-to-server events.
type wsInboundEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// wsOutboundEvent is the envelope for server-to-client events.
type wsOutboundEvent struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// joinRoomData is the payload of a joinRoom event.
type joinRoomData struct {
	RoomID string `json:"roomId"`
}

// sendMessageData is the payload of a sendMessage event. Message is
// relayed to the room as-is: this path broadcasts without persisting,
// which is why clients that want durable messages use POST
// /api/messages and treat the echoed receiveMessage as confirmation.
type sendMessageData struct {
	RoomID  string          `json:"roomId"`
	Message json.RawMessage `json:"message"`
}

// handleWebSocket handles GET /ws?token=...
//
// The JWT rides in the query string because browser WebSocket clients
// cannot set request headers. After the handshake the connection joins
// rooms on demand and receives every payload published to them until it
// disconnects.
func (g *Gateway) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		g.sendJSONError(w, http.StatusUnauthorized, "token query parameter is required")
		return
	}
	userID, err := g.tokens.Verify(token)
	if err != nil {
		g.sendJSONError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		g.logger.Debug("websocket accept failed", "error", err)
		return
	}
	defer c.Close(websocket.StatusInternalError, "unexpected shutdown")

	connID, deliveries := g.broadcaster.Connect()
	defer g.broadcaster.Disconnect(connID)

	g.metrics.wsConnections.Inc()
	defer g.metrics.wsConnections.Dec()

	logger := g.logger.With("conn_id", connID, "user_id", userID)
	logger.Info("websocket connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		g.writeLoop(ctx, c, deliveries, logger)
	}()

	g.readLoop(ctx, c, connID, logger)

	// Disconnect closes the delivery channel, which ends the writer.
	g.broadcaster.Disconnect(connID)
	cancel()
	<-writerDone

	c.Close(websocket.StatusNormalClosure, "")
	logger.Info("websocket disconnected")
}

// writeLoop forwards published payloads to the client as receiveMessage
// events until the delivery channel closes.
func (g *Gateway) writeLoop(ctx context.Context, c *websocket.Conn, deliveries <-chan any, logger *slog.Logger) {
	for payload := range deliveries {
		event := wsOutboundEvent{Event: "receiveMessage"}

		switch p := payload.(type) {
		case *conversation.EnrichedMessage:
			event.Data = toMessageResponse(p)
		case json.RawMessage:
			event.Data = p
		default:
			event.Data = p
		}

		if err := wsjson.Write(ctx, c, event); err != nil {
			logger.Debug("websocket write failed", "error", err)
			return
		}
	}
}

// readLoop consumes inbound events until the connection errors or the
// client closes. sendMessage is rate limited per connection; events over
// the limit are dropped, not queued.
func (g *Gateway) readLoop(ctx context.Context, c *websocket.Conn, connID string, logger *slog.Logger) {
	limiter := rate.NewLimiter(rate.Limit(g.config.Realtime.SendRate), g.config.Realtime.SendBurst)

	for {
		var ev wsInboundEvent
		if err := wsjson.Read(ctx, c, &ev); err != nil {
			return
		}

		g.metrics.wsEvents.WithLabelValues(ev.Event).Inc()

		switch ev.Event {
		case "joinRoom":
			var data joinRoomData
			if err := json.Unmarshal(ev.Data, &data); err != nil || data.RoomID == "" {
				logger.Debug("malformed joinRoom event")
				continue
			}
			g.broadcaster.Join(connID, data.RoomID)

		case "sendMessage":
			if !limiter.Allow() {
				logger.Debug("rate limited sendMessage event")
				continue
			}
			var data sendMessageData
			if err := json.Unmarshal(ev.Data, &data); err != nil || data.RoomID == "" {
				logger.Debug("malformed sendMessage event")
				continue
			}
			g.broadcaster.Publish(data.RoomID, data.Message)

		default:
			logger.Debug("unknown websocket event", "event", ev.Event)
		}
	}
}
