package domain

// CommandResult is the structured outcome of a slash-command. It is consumed
// once by the broadcast policy and never persisted. Command carries the name
// the policy matches against the broadcast allow-list.
type CommandResult struct {
	Command string         `json:"command"`
	Message string         `json:"message,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// BroadcastTarget is a per-event policy decision, not persisted state.
type BroadcastTarget int

const (
	// TargetOriginOnly delivers to the connection that produced the event.
	TargetOriginOnly BroadcastTarget = iota
	// TargetAllConnections delivers to every live connection.
	TargetAllConnections
)
