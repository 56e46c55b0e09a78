package model

import (
	"time"
)

// Role identifies the author of a transcript entry
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one transcript entry. The transcript is append-only: entries are
// recorded in arrival order and never reordered or deduplicated. When a
// question fails, an assistant entry with IsError set marks the failure in
// place of an answer.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Code      []string  `json:"code,omitempty"`
	IsError   bool      `json:"is_error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
