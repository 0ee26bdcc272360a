package runtime

import (
	"testing"

	"chat-relay/domain"
	"chat-relay/domain/event"

	"github.com/stretchr/testify/require"
)

func TestBroadcastPolicy_TargetFor(t *testing.T) {
	req := require.New(t)
	policy := NewBroadcastPolicy(DefaultBroadcastCommands)

	tests := []struct {
		name     string
		kind     event.Kind
		command  string
		expected domain.BroadcastTarget
	}{
		{"Chat messages go to everyone", event.KindMessage, "", domain.TargetAllConnections},
		{"me is broadcast", event.KindCommand, "me", domain.TargetAllConnections},
		{"move is broadcast", event.KindCommand, "move", domain.TargetAllConnections},
		{"pickup is broadcast", event.KindCommand, "pickup", domain.TargetAllConnections},
		{"drop is broadcast", event.KindCommand, "drop", domain.TargetAllConnections},
		{"Case-insensitive match", event.KindCommand, "ME", domain.TargetAllConnections},
		{"who stays private", event.KindCommand, "who", domain.TargetOriginOnly},
		{"help stays private", event.KindCommand, "help", domain.TargetOriginOnly},
		{"Unknown command stays private", event.KindCommand, "frobnicate", domain.TargetOriginOnly},
		{"Warnings stay private", event.KindWarning, "", domain.TargetOriginOnly},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req.Equal(tt.expected, policy.TargetFor(tt.kind, tt.command))
		})
	}
}

func TestBroadcastPolicy_ConfigurableAllowList(t *testing.T) {
	req := require.New(t)
	policy := NewBroadcastPolicy([]string{"shout"})

	req.Equal(domain.TargetAllConnections, policy.TargetFor(event.KindCommand, "shout"))
	req.Equal(domain.TargetOriginOnly, policy.TargetFor(event.KindCommand, "me"))
}
