//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	"context"
	"reflect"
)

// AuthenticationGate resolves a per-message credential token.
// A missing, invalid or expired token yields (nil, nil): anonymous usage is a
// normal outcome, not an error. An error is returned only for collaborator
// faults (e.g. the user store being unavailable).
type AuthenticationGate interface {
	Authenticate(ctx context.Context, token string) (*domain.User, error)
}

// CommandRouter executes a named slash-command for a possibly-anonymous user.
// It receives the original, unsanitized text.
type CommandRouter interface {
	Run(ctx context.Context, user *domain.User, raw string) (domain.CommandResult, error)
}

// MessageStore persists a chat message and assigns its identity and
// creation time.
type MessageStore interface {
	Save(ctx context.Context, author domain.User, content string) (domain.Message, error)
}

// SessionStore tracks which users are currently connected. Add and Remove
// are idempotent; removing an absent user is a no-op.
type SessionStore interface {
	Add(user domain.User)
	Remove(user domain.User)
	Users() []domain.User
}

// Sanitizer strips markup from raw text and renders links for display.
type Sanitizer interface {
	Strip(raw string) string
	Linkify(plain string) string
}

// MessageSink consumes persisted messages for side effects (indexing,
// metrics). Failures are logged, never propagated to the sender.
type MessageSink interface {
	Consume(ctx context.Context, msg domain.Message) error
}

// Recipient is one live connection from the broadcaster's point of view.
// Enqueue reports false when the frame was dropped (closed or slow client).
type Recipient interface {
	ID() string
	Enqueue(payload []byte) bool
}

// Broadcaster emits an outbound event to all connections or to a single one.
type Broadcaster interface {
	BroadcastAll(env event.Envelope)
	SendTo(r Recipient, env event.Envelope)
}

// Worker doesn't protect itself. Can be silly, focused.
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// Used for logging and supervision, avoiding manual naming in the interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
