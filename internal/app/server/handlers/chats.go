package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/shjroemon/social-network-be/internal/core/domain"
	"github.com/shjroemon/social-network-be/internal/core/services"
	"github.com/shjroemon/social-network-be/pkg/middleware"

	"github.com/google/uuid"
)

// ChatHandler is the REST adapter over the chat core: every endpoint
// is a thin translation into a membership or message-engine call.
type ChatHandler struct {
	membership *services.MembershipService
	messages   *services.MessageService
}

func NewChatHandler(m *services.MembershipService, msg *services.MessageService) *ChatHandler {
	return &ChatHandler{membership: m, messages: msg}
}

func (h *ChatHandler) CreateChat(w http.ResponseWriter, r *http.Request) {
	callerID, _ := middleware.UserID(r.Context())
	var req struct {
		Name    string   `json:"name"`
		Private bool     `json:"private"`
		Invited []string `json:"invited"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	room, err := h.membership.CreateRoom(r.Context(), callerID, req.Name, req.Private, req.Invited)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"room_id":    room.ID,
		"name":       room.Name,
		"private":    room.Private,
		"members":    room.Members,
		"created_at": room.CreatedAt,
	})
}

func (h *ChatHandler) JoinChat(w http.ResponseWriter, r *http.Request) {
	callerID, _ := middleware.UserID(r.Context())
	roomID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid room id", http.StatusBadRequest)
		return
	}
	alreadyMember, err := h.membership.Join(r.Context(), roomID, callerID)
	if err != nil {
		writeChatError(w, err)
		return
	}
	json.NewEncoder(w).Encode(map[string]any{"already_member": alreadyMember})
}

func (h *ChatHandler) LeaveChat(w http.ResponseWriter, r *http.Request) {
	callerID, _ := middleware.UserID(r.Context())
	roomID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid room id", http.StatusBadRequest)
		return
	}
	if err := h.membership.Leave(r.Context(), roomID, callerID); err != nil {
		writeChatError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ChatHandler) Members(w http.ResponseWriter, r *http.Request) {
	roomID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid room id", http.StatusBadRequest)
		return
	}
	members, err := h.membership.MembersOf(r.Context(), roomID)
	if err != nil {
		writeChatError(w, err)
		return
	}
	json.NewEncoder(w).Encode(map[string]any{"members": members})
}

// Messages is the REST resync path: all messages after ?since=N.
func (h *ChatHandler) Messages(w http.ResponseWriter, r *http.Request) {
	callerID, _ := middleware.UserID(r.Context())
	roomID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid room id", http.StatusBadRequest)
		return
	}
	since, _ := strconv.ParseInt(r.URL.Query().Get("since"), 10, 64)
	msgs, err := h.messages.MessagesSince(r.Context(), roomID, callerID, since)
	if err != nil {
		writeChatError(w, err)
		return
	}
	out := make([]domain.ChatMessage, 0, len(msgs))
	for i := range msgs {
		out = append(out, domain.WireMessage(&msgs[i]))
	}
	json.NewEncoder(w).Encode(map[string]any{"messages": out, "since_seq": since})
}

func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	callerID, _ := middleware.UserID(r.Context())
	sender, err := uuid.Parse(callerID)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var req struct {
		RoomID   string `json:"room_id"`
		Payload  string `json:"payload"`
		MediaURL string `json:"media_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	roomID, err := uuid.Parse(req.RoomID)
	if err != nil {
		http.Error(w, "invalid room id", http.StatusBadRequest)
		return
	}
	// REST sends have no websocket connection; deliver to all devices.
	msg, err := h.messages.Send(r.Context(), roomID, sender, req.Payload, req.MediaURL, "")
	if err != nil {
		writeChatError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(domain.AckMessage{
		Type:      domain.TypeAck,
		RoomID:    req.RoomID,
		Seq:       msg.Seq,
		Timestamp: time.Now(),
	})
}

func writeChatError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotMember):
		http.Error(w, "not a member of room", http.StatusForbidden)
	case errors.Is(err, domain.ErrNotAuthorized):
		http.Error(w, "not authorized to join room", http.StatusForbidden)
	case errors.Is(err, domain.ErrInvalidPayload):
		http.Error(w, "invalid payload", http.StatusBadRequest)
	case errors.Is(err, domain.ErrRoomNotFound), errors.Is(err, domain.ErrNotFound):
		http.Error(w, "room not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrStorageUnavailable):
		http.Error(w, "storage unavailable", http.StatusServiceUnavailable)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
