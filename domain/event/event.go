// Package event defines the wire-level events exchanged with clients.
package event

// Frame is one inbound websocket frame. Both fields are optional: a frame
// without text is ignored entirely, a frame without a token resolves to an
// anonymous user.
type Frame struct {
	Text  string `json:"text,omitempty"`
	Token string `json:"token,omitempty"`
}

// Kind discriminates outbound envelopes.
type Kind string

const (
	KindMessage Kind = "message"
	KindCommand Kind = "command"
	KindWarning Kind = "warning"
)

// Envelope is the outbound wire format: a kind tag plus its payload.
type Envelope struct {
	Event Kind `json:"event"`
	Data  any  `json:"data"`
}

// MessagePayload carries persisted chat and system notices. System notices
// use the username "system", pre-formatted HTML-safe text, and no id.
type MessagePayload struct {
	Username string `json:"username"`
	Text     string `json:"text"`
	ID       string `json:"id,omitempty"`
}

// WarningPayload is sent to the originating connection only when the
// processing pipeline fails.
type WarningPayload struct {
	Message string `json:"message"`
}

// SystemUsername authors connect/disconnect notices.
const SystemUsername = "system"
