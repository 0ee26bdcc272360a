// Package domain contains core concepts of the chat system.
// This file defines Message events and related rules.
// Messages are immutable once persisted.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message represents an immutable chat event. ID, Lang and CreatedAt are
// assigned by the message store at persistence time.
type Message struct {
	ID        uuid.UUID
	AuthorID  string
	Username  string
	Content   string
	Lang      string
	CreatedAt time.Time
}
