package domain

import "time"

// Wire event types for the real-time channel. Every inbound frame and
// every outbound frame carries one of these in its "type" field.
const (
	TypeHandshake = "handshake"
	TypeJoin      = "join"
	TypeLeave     = "leave"
	TypeMessage   = "message"
	TypeAck       = "ack"
	TypePresence  = "presence"
	TypeResync    = "resync"
	TypeError     = "error"
)

// InboundEvent is the single envelope clients send. Fields beyond Type
// are interpreted per event kind.
type InboundEvent struct {
	Type        string `json:"type"`
	RoomID      string `json:"room_id,omitempty"`
	ClientMsgID string `json:"client_msg_id,omitempty"`
	Payload     string `json:"payload,omitempty"`
	MediaURL    string `json:"media_url,omitempty"`
	SinceSeq    int64  `json:"since_seq,omitempty"`
}

// HandshakeResponse is sent once, immediately after the connection is
// authenticated and registered.
type HandshakeResponse struct {
	Type         string `json:"type"`
	ConnectionID string `json:"connection_id"`
	UserID       string `json:"user_id"`
}

// AckMessage confirms a send to its originator only, carrying the
// assigned sequence number.
type AckMessage struct {
	Type        string    `json:"type"`
	ClientMsgID string    `json:"client_msg_id,omitempty"`
	RoomID      string    `json:"room_id"`
	Seq         int64     `json:"seq"`
	Timestamp   time.Time `json:"timestamp"`
}

// ChatMessage is what recipients see, in strict per-room Seq order.
// SenderConnID identifies the originating connection so fan-out can
// skip it (it already holds the ack) while the sender's other devices
// still receive the message.
type ChatMessage struct {
	Type         string    `json:"type"`
	RoomID       string    `json:"room_id"`
	SenderID     string    `json:"sender_id"`
	SenderConnID string    `json:"sender_conn_id,omitempty"`
	Seq          int64     `json:"seq"`
	Payload      string    `json:"payload"`
	MediaURL     string    `json:"media_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// PresenceEvent is best-effort and not subject to the message ordering
// guarantee.
type PresenceEvent struct {
	Type   string        `json:"type"`
	UserID string        `json:"user_id"`
	State  PresenceState `json:"state"`
}

// ResyncResponse returns all messages after SinceSeq, ascending.
type ResyncResponse struct {
	Type     string        `json:"type"`
	RoomID   string        `json:"room_id"`
	SinceSeq int64         `json:"since_seq"`
	Messages []ChatMessage `json:"messages"`
}

// ErrorMessage is delivered only to the connection that caused it.
type ErrorMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WireMessage converts a persisted message into its delivery form.
func WireMessage(m *Message) ChatMessage {
	return ChatMessage{
		Type:      TypeMessage,
		RoomID:    m.RoomID.String(),
		SenderID:  m.SenderID.String(),
		Seq:       m.Seq,
		Payload:   m.Body,
		MediaURL:  m.MediaURL,
		CreatedAt: m.CreatedAt,
	}
}
