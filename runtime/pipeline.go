package runtime

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	apperrors "chat-relay/errors"
	"chat-relay/moderation"
	"chat-relay/observability"
)

// CommandSigil distinguishes a command invocation from plain chat.
const CommandSigil = "/"

// PipelineDeps are the collaborators one Pipeline orchestrates.
type PipelineDeps struct {
	Gate        contract.AuthenticationGate
	Sanitizer   contract.Sanitizer
	Moderator   moderation.Moderator
	Router      contract.CommandRouter
	Messages    contract.MessageStore
	Sessions    contract.SessionStore
	Policy      *BroadcastPolicy
	Broadcaster contract.Broadcaster
	Sinks       []contract.MessageSink
	Monitor     *observability.Monitor
}

// Pipeline processes inbound frames for all connections. Every frame is
// re-authenticated: a revoked token loses chat privileges on its next
// message, regardless of any identity previously bound to the connection.
// All failures are caught at this boundary, logged, and surfaced to the
// originating connection only.
type Pipeline struct {
	log  *slog.Logger
	deps PipelineDeps
}

func NewPipeline(log *slog.Logger, deps PipelineDeps) *Pipeline {
	return &Pipeline{log: log, deps: deps}
}

// HandleFrame is the single error boundary of the processing pipeline. A
// frame without text is dropped silently — that is intentional, not an
// error.
func (p *Pipeline) HandleFrame(ctx context.Context, c *Client, frame event.Frame) {
	if frame.Text == "" {
		return
	}

	if err := p.process(ctx, c, frame); err != nil {
		p.log.Error("Message pipeline failed", "connection", c.ID(), "error", err)
		p.deps.Monitor.IncrWarningsSent()
		p.deps.Broadcaster.SendTo(c, event.Envelope{
			Event: event.KindWarning,
			Data:  event.WarningPayload{Message: err.Error()},
		})
	}
}

func (p *Pipeline) process(ctx context.Context, c *Client, frame event.Frame) error {
	user, err := p.deps.Gate.Authenticate(ctx, frame.Token)
	if err != nil {
		return fmt.Errorf("authentication: %w", err)
	}
	if user != nil {
		c.user = user
		p.deps.Sessions.Add(*user)
	}

	// Tags are stripped before the sigil check so that markup cannot hide a
	// command; the router still receives the original text.
	clean := p.deps.Sanitizer.Strip(frame.Text)

	if strings.HasPrefix(clean, CommandSigil) {
		return p.runCommand(ctx, c, user, frame.Text)
	}

	if user == nil {
		return apperrors.ErrNotSignedIn
	}
	return p.postMessage(ctx, *user, clean)
}

func (p *Pipeline) runCommand(ctx context.Context, c *Client, user *domain.User, raw string) error {
	result, err := p.deps.Router.Run(ctx, user, raw)
	if err != nil {
		return fmt.Errorf("command: %w", err)
	}

	p.deps.Monitor.IncrCommandsExecuted()
	p.log.Info("Command executed", "command", result.Command, "connection", c.ID())

	env := event.Envelope{Event: event.KindCommand, Data: result}
	if p.deps.Policy.TargetFor(event.KindCommand, result.Command) == domain.TargetAllConnections {
		p.deps.Broadcaster.BroadcastAll(env)
	} else {
		p.deps.Broadcaster.SendTo(c, env)
	}
	return nil
}

func (p *Pipeline) postMessage(ctx context.Context, user domain.User, clean string) error {
	censored, found := p.deps.Moderator.Censor(clean)
	if len(found) > 0 {
		p.log.Warn("Censored words in message", "user", user.Username, "count", len(found))
	}

	msg, err := p.deps.Messages.Save(ctx, user, censored)
	if err != nil {
		return fmt.Errorf("persistence: %w", err)
	}
	p.deps.Monitor.IncrMessagesPersisted()

	for _, sink := range p.deps.Sinks {
		if consumeErr := sink.Consume(ctx, msg); consumeErr != nil {
			p.log.Debug("Message sink failed", "id", msg.ID, "error", consumeErr)
		}
	}

	payload := event.MessagePayload{
		Username: user.Username,
		Text:     p.deps.Sanitizer.Linkify(msg.Content),
		ID:       msg.ID.String(),
	}
	p.log.Info("Message persisted", "id", msg.ID, "user", user.Username, "lang", msg.Lang)
	p.deps.Broadcaster.BroadcastAll(event.Envelope{Event: event.KindMessage, Data: payload})
	return nil
}

// HandleDisconnect removes the bound user (if any) from the session registry
// and tells everyone. A connection that never authenticated disconnects
// silently. Removal happens even if the user holds other open connections;
// that mirrors the historical behavior on purpose.
func (p *Pipeline) HandleDisconnect(_ context.Context, c *Client) {
	p.deps.Monitor.IncrConnectionsClosed()
	if c.user == nil {
		return
	}

	p.deps.Sessions.Remove(*c.user)
	p.log.Info("User disconnected", "user", c.user.Username, "connection", c.ID())

	notice := event.MessagePayload{
		Username: event.SystemUsername,
		Text:     `<span class="info">` + html.EscapeString(c.user.Username) + ` has disconnected</span>`,
	}
	p.deps.Broadcaster.BroadcastAll(event.Envelope{Event: event.KindMessage, Data: notice})
}
