package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserRegistered   EventType = "user_registered"
	EventUserLoggedIn     EventType = "user_logged_in"
	EventQRGenerated      EventType = "qr_generated"
	EventSessionDestroyed EventType = "session_destroyed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	UserID    string      `json:"user_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// UserRegisteredPayload payload.
type UserRegisteredPayload struct {
	Email     string `json:"email"`
	Federated bool   `json:"federated"`
}

// UserLoggedInPayload payload.
type UserLoggedInPayload struct {
	Method string `json:"method"`
}

// QRGeneratedPayload payload.
type QRGeneratedPayload struct {
	QRCodeID   int64 `json:"qr_code_id"`
	SizeBytes  int   `json:"size_bytes"`
	ContentLen int   `json:"content_len"`
}
