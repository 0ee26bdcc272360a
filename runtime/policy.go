package runtime

import (
	"strings"

	"chat-relay/domain"
	"chat-relay/domain/event"
)

// DefaultBroadcastCommands are the commands whose effects are observable by
// other users (emotes, world-state changes) and therefore go to everyone.
var DefaultBroadcastCommands = []string{"me", "move", "pickup", "drop"}

// BroadcastPolicy decides which subset of live connections receives an event.
// Unknown command names default to sender-only: most commands produce private
// informational results. System notices bypass the policy entirely.
type BroadcastPolicy struct {
	broadcastAll map[string]struct{}
}

func NewBroadcastPolicy(commands []string) *BroadcastPolicy {
	set := make(map[string]struct{}, len(commands))
	for _, name := range commands {
		set[strings.ToLower(strings.TrimSpace(name))] = struct{}{}
	}
	return &BroadcastPolicy{broadcastAll: set}
}

// TargetFor maps an event kind (and command name, for command results) to a
// delivery target. Persisted chat always goes to all connections.
func (p *BroadcastPolicy) TargetFor(kind event.Kind, command string) domain.BroadcastTarget {
	switch kind {
	case event.KindMessage:
		return domain.TargetAllConnections
	case event.KindCommand:
		if _, ok := p.broadcastAll[strings.ToLower(command)]; ok {
			return domain.TargetAllConnections
		}
		return domain.TargetOriginOnly
	default:
		return domain.TargetOriginOnly
	}
}
