// Package commands routes slash-commands to their handlers. The router
// receives the original, unsanitized text and a possibly-nil user: commands
// are available to anonymous connections, individual handlers decide what
// that means for them.
package commands

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"chat-relay/domain"
)

// Invocation is one parsed command call.
type Invocation struct {
	User *domain.User // nil when the sender is anonymous
	Name string
	Args []string
	Raw  string
}

type Handler func(ctx context.Context, inv Invocation) (domain.CommandResult, error)

type Router struct {
	log      *slog.Logger
	handlers map[string]Handler
}

func NewRouter(log *slog.Logger) *Router {
	return &Router{log: log, handlers: make(map[string]Handler)}
}

func (r *Router) Register(name string, h Handler) {
	r.handlers[strings.ToLower(name)] = h
}

// Names lists registered command names, sorted.
func (r *Router) Names() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run parses the leading word as the command name and dispatches. An
// unregistered name yields a normal CommandResult carrying that name, so the
// broadcast policy still scopes it (sender-only by default) instead of the
// pipeline treating it as a failure.
func (r *Router) Run(ctx context.Context, user *domain.User, raw string) (domain.CommandResult, error) {
	fields := strings.Fields(strings.TrimSpace(raw))
	if len(fields) == 0 {
		return domain.CommandResult{Command: "unknown", Message: "Empty command"}, nil
	}

	name := strings.ToLower(strings.TrimPrefix(fields[0], "/"))
	if name == "" {
		return domain.CommandResult{Command: "unknown", Message: "Empty command"}, nil
	}

	handler, ok := r.handlers[name]
	if !ok {
		r.log.Debug("Unknown command", "name", name)
		return domain.CommandResult{Command: name, Message: "Unknown command: /" + name}, nil
	}

	return handler(ctx, Invocation{User: user, Name: name, Args: fields[1:], Raw: raw})
}
