package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/shjroemon/social-network-be/internal/app/registry"
	"github.com/shjroemon/social-network-be/internal/app/server/ws"
	"github.com/shjroemon/social-network-be/internal/config"
	"github.com/shjroemon/social-network-be/internal/core/domain"
	"github.com/shjroemon/social-network-be/internal/core/services"
	"github.com/shjroemon/social-network-be/internal/platform/logger"
	"github.com/shjroemon/social-network-be/pkg/logging"
	"github.com/shjroemon/social-network-be/pkg/middleware"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// WSHandler is the gateway: it authenticates the connection, registers
// it, and translates each inbound event into exactly one core call.
// Business rules live in the services; errors go back only to the
// connection that caused them.
type WSHandler struct {
	hub        *registry.Registry
	membership *services.MembershipService
	messages   *services.MessageService
	presence   *services.PresenceTracker
	cfg        config.ChatConfig
}

func NewWSHandler(
	hub *registry.Registry,
	membership *services.MembershipService,
	messages *services.MessageService,
	presence *services.PresenceTracker,
	cfg config.ChatConfig,
) *WSHandler {
	return &WSHandler{
		hub:        hub,
		membership: membership,
		messages:   messages,
		presence:   presence,
		cfg:        cfg,
	}
}

func (s *WSHandler) Handler(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	span := trace.SpanFromContext(r.Context())
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		log.ErrorContext(r.Context(), "ws handler - unauthorized, missing user id")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		log.ErrorContext(r.Context(), "ws handler - unauthorized, malformed user id")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	span.SetAttributes(attribute.String("user.id", userID))

	// The session must outlive the HTTP request context.
	sessionCtx := context.WithoutCancel(r.Context())
	ctx, cancel := context.WithCancel(sessionCtx)
	defer cancel()

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true // CORS middleware constrains browser origins
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.ErrorContext(r.Context(), "ws handler - upgrade failed", logging.Err(err))
		return
	}
	socket := ws.NewWebSocket(ctx, log, conn, s.cfg.PongWait)
	defer socket.Close()
	conn.SetCloseHandler(func(code int, text string) error {
		cancel()
		return nil
	})

	connID := uuid.NewString()
	client := ws.NewClient(ctx, socket, connID, userID, s.cfg.OutboundQueueSize)
	s.hub.Register(client)
	defer s.hub.Unregister(connID)
	log.InfoContext(r.Context(), "ws handler - connection established", logging.Conn(connID), logging.User(userID))

	handshake := domain.HandshakeResponse{
		Type:         domain.TypeHandshake,
		ConnectionID: connID,
		UserID:       userID,
	}
	if raw, err := json.Marshal(handshake); err == nil {
		_ = client.Send(ctx, raw)
	}

	socket.StartHeartbeat(s.cfg.HeartbeatInterval)
	go s.presence.Heartbeat(ctx, userID)

	// Events are handled serially per connection so each connection's
	// operations keep their issue order.
	socket.ReadLoop(func(data []byte) {
		s.dispatch(ctx, log, client, userUUID, data)
	})
}

func (s *WSHandler) dispatch(ctx context.Context, log *slog.Logger, client *ws.RuntimeClient, userUUID uuid.UUID, data []byte) {
	userID := userUUID.String()
	var ev domain.InboundEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		s.sendError(ctx, client, domain.ErrInvalidPayload)
		return
	}
	roomID, err := uuid.Parse(ev.RoomID)
	if err != nil {
		s.sendError(ctx, client, domain.ErrInvalidPayload)
		return
	}
	switch ev.Type {
	case domain.TypeJoin:
		if _, err := s.membership.Join(ctx, roomID, userID); err != nil {
			s.sendError(ctx, client, err)
			return
		}
		client.AddRoom(ev.RoomID)
		s.hub.JoinRoom(client, ev.RoomID)
		s.sendAck(ctx, client, ev, 0)

	case domain.TypeLeave:
		if err := s.membership.Leave(ctx, roomID, userID); err != nil {
			s.sendError(ctx, client, err)
			return
		}
		s.hub.LeaveRoom(client, ev.RoomID)
		client.RemoveRoom(ev.RoomID)
		s.sendAck(ctx, client, ev, 0)

	case domain.TypeMessage:
		msg, err := s.messages.Send(ctx, roomID, userUUID, ev.Payload, ev.MediaURL, client.ConnID())
		if err != nil {
			log.ErrorContext(ctx, "ws handler - send rejected", logging.Room(ev.RoomID), logging.User(userID), logging.Err(err))
			s.sendError(ctx, client, err)
			return
		}
		s.sendAck(ctx, client, ev, msg.Seq)

	case domain.TypeResync:
		msgs, err := s.messages.MessagesSince(ctx, roomID, userID, ev.SinceSeq)
		if err != nil {
			s.sendError(ctx, client, err)
			return
		}
		resp := domain.ResyncResponse{
			Type:     domain.TypeResync,
			RoomID:   ev.RoomID,
			SinceSeq: ev.SinceSeq,
			Messages: make([]domain.ChatMessage, 0, len(msgs)),
		}
		for i := range msgs {
			resp.Messages = append(resp.Messages, domain.WireMessage(&msgs[i]))
		}
		if raw, err := json.Marshal(resp); err == nil {
			_ = client.Send(ctx, raw)
		}

	default:
		s.sendError(ctx, client, domain.ErrInvalidPayload)
	}
}

func (s *WSHandler) sendAck(ctx context.Context, client *ws.RuntimeClient, ev domain.InboundEvent, seq int64) {
	ack := domain.AckMessage{
		Type:        domain.TypeAck,
		ClientMsgID: ev.ClientMsgID,
		RoomID:      ev.RoomID,
		Seq:         seq,
		Timestamp:   time.Now(),
	}
	if raw, err := json.Marshal(ack); err == nil {
		_ = client.Send(ctx, raw)
	}
}

func (s *WSHandler) sendError(ctx context.Context, client *ws.RuntimeClient, err error) {
	msg := domain.ErrorMessage{
		Type:    domain.TypeError,
		Code:    domain.ErrorCode(err),
		Message: err.Error(),
	}
	if raw, mErr := json.Marshal(msg); mErr == nil {
		_ = client.Send(ctx, raw)
	}
}
