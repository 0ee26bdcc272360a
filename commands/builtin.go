package commands

import (
	"context"
	"fmt"
	"strings"

	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/observability"
	"chat-relay/search"

	"github.com/samber/lo"
)

// Builtins carries the collaborators the built-in handlers close over.
type Builtins struct {
	Sessions contract.SessionStore
	World    *World
	Index    *search.MessageIndex
	Monitor  *observability.Monitor
}

// RegisterBuiltins wires the default command set into the router.
func RegisterBuiltins(r *Router, b Builtins) {
	r.Register("me", meHandler())
	r.Register("move", moveHandler(b.World))
	r.Register("pickup", pickupHandler(b.World))
	r.Register("drop", dropHandler(b.World))
	r.Register("who", whoHandler(b.Sessions))
	r.Register("search", searchHandler(b.Index))
	r.Register("stats", statsHandler(b.Monitor))
	r.Register("help", helpHandler(r))
}

func displayName(u *domain.User) string {
	if u == nil {
		return "someone"
	}
	return u.Username
}

func meHandler() Handler {
	return func(_ context.Context, inv Invocation) (domain.CommandResult, error) {
		emote := strings.Join(inv.Args, " ")
		if emote == "" {
			emote = "waves"
		}
		return domain.CommandResult{
			Command: inv.Name,
			Message: fmt.Sprintf("%s %s", displayName(inv.User), emote),
		}, nil
	}
}

func moveHandler(world *World) Handler {
	return func(_ context.Context, inv Invocation) (domain.CommandResult, error) {
		if inv.User == nil {
			return signInFirst(inv.Name), nil
		}
		if len(inv.Args) == 0 {
			return domain.CommandResult{Command: inv.Name, Message: "Move where? Try /move north"}, nil
		}

		direction := strings.ToLower(inv.Args[0])
		dest, err := world.Move(inv.User.ID, direction)
		if err != nil {
			return domain.CommandResult{Command: inv.Name, Message: capitalize(err.Error())}, nil
		}
		return domain.CommandResult{
			Command: inv.Name,
			Message: fmt.Sprintf("%s moves %s to the %s", inv.User.Username, direction, dest),
			Data:    map[string]any{"room": dest},
		}, nil
	}
}

func pickupHandler(world *World) Handler {
	return func(_ context.Context, inv Invocation) (domain.CommandResult, error) {
		if inv.User == nil {
			return signInFirst(inv.Name), nil
		}
		item := strings.Join(inv.Args, " ")
		if item == "" {
			return domain.CommandResult{Command: inv.Name, Message: "Pick up what?"}, nil
		}
		if err := world.Pickup(inv.User.ID, item); err != nil {
			return domain.CommandResult{Command: inv.Name, Message: capitalize(err.Error())}, nil
		}
		return domain.CommandResult{
			Command: inv.Name,
			Message: fmt.Sprintf("%s picks up the %s", inv.User.Username, item),
			Data:    map[string]any{"item": item},
		}, nil
	}
}

func dropHandler(world *World) Handler {
	return func(_ context.Context, inv Invocation) (domain.CommandResult, error) {
		if inv.User == nil {
			return signInFirst(inv.Name), nil
		}
		item := strings.Join(inv.Args, " ")
		if item == "" {
			return domain.CommandResult{Command: inv.Name, Message: "Drop what?"}, nil
		}
		if err := world.Drop(inv.User.ID, item); err != nil {
			return domain.CommandResult{Command: inv.Name, Message: capitalize(err.Error())}, nil
		}
		return domain.CommandResult{
			Command: inv.Name,
			Message: fmt.Sprintf("%s drops the %s", inv.User.Username, item),
			Data:    map[string]any{"item": item},
		}, nil
	}
}

func whoHandler(sessions contract.SessionStore) Handler {
	return func(_ context.Context, inv Invocation) (domain.CommandResult, error) {
		users := sessions.Users()
		names := lo.Map(users, func(u domain.User, _ int) string { return u.Username })
		return domain.CommandResult{
			Command: inv.Name,
			Message: fmt.Sprintf("%d user(s) online", len(names)),
			Data:    map[string]any{"users": names, "count": len(names)},
		}, nil
	}
}

func searchHandler(index *search.MessageIndex) Handler {
	return func(ctx context.Context, inv Invocation) (domain.CommandResult, error) {
		terms := strings.Join(inv.Args, " ")
		if terms == "" {
			return domain.CommandResult{Command: inv.Name, Message: "Search for what? Try /search hello"}, nil
		}

		hits, err := index.Search(ctx, terms)
		if err != nil {
			return domain.CommandResult{}, fmt.Errorf("search failed: %w", err)
		}

		results := lo.Map(hits, func(h search.Hit, _ int) map[string]any {
			return map[string]any{"id": h.ID, "username": h.Username, "text": h.Content}
		})
		return domain.CommandResult{
			Command: inv.Name,
			Message: fmt.Sprintf("%d result(s) for %q", len(results), terms),
			Data:    map[string]any{"results": results},
		}, nil
	}
}

func statsHandler(monitor *observability.Monitor) Handler {
	return func(_ context.Context, inv Invocation) (domain.CommandResult, error) {
		return domain.CommandResult{
			Command: inv.Name,
			Message: "Server statistics",
			Data:    monitor.Snapshot(),
		}, nil
	}
}

func helpHandler(r *Router) Handler {
	return func(_ context.Context, inv Invocation) (domain.CommandResult, error) {
		names := r.Names()
		return domain.CommandResult{
			Command: inv.Name,
			Message: "Available commands: /" + strings.Join(names, ", /"),
			Data:    map[string]any{"commands": names},
		}, nil
	}
}

func signInFirst(command string) domain.CommandResult {
	return domain.CommandResult{Command: command, Message: "You must be signed in to do that"}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
