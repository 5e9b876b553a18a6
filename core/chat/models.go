package chat

import "time"

// Connection is the session context of one live transport channel.
// It is owned exclusively by the Registry; mutate it only through
// Registry operations.
type Connection struct {
	ID          string
	UserID      string
	DisplayName string
	RoomID      string // empty until the connection joins a classroom
	IsPresent   bool
}

// RosterEntry is the broadcast projection of a Connection. It is recomputed
// on demand and never cached beyond a single broadcast.
type RosterEntry struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	RoomID      string `json:"room_id"`
	IsPresent   bool   `json:"is_present"`
}

// ChatMessage is the outbound message constructed at dispatch time.
// Sender identity is resolved from the Registry, never taken from the
// client payload, and the timestamp comes from the server clock.
type ChatMessage struct {
	SenderID          string    `json:"sender_id"`
	SenderDisplayName string    `json:"sender_display_name"`
	Content           string    `json:"content"`
	Timestamp         time.Time `json:"timestamp"` // UTC
	IsPrivate         bool      `json:"is_private"`
	RecipientID       string    `json:"recipient_id,omitempty"`
}

// Message is a persisted chat message row, kept for classroom history.
type Message struct {
	ID          string    `json:"id"`
	CourseID    string    `json:"course_id"`
	SenderID    string    `json:"sender_id"`
	RecipientID string    `json:"recipient_id,omitempty"` // empty for public messages
	Content     string    `json:"content"`
	IsPrivate   bool      `json:"is_private"`
	CreatedAt   time.Time `json:"created_at"` // UTC
}

// MessageFilter narrows a course history query.
type MessageFilter struct {
	// Private selects private messages involving UserID instead of the
	// course's public messages.
	Private bool
	UserID  string
	Limit   int
	Offset  int
}
