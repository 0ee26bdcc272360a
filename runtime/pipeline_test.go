package runtime

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	apperrors "chat-relay/errors"
	"chat-relay/mocks"
	"chat-relay/moderation"
	"chat-relay/observability"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type directSend struct {
	to  contract.Recipient
	env event.Envelope
}

// fakeBroadcaster records deliveries so tests can assert on the audience.
type fakeBroadcaster struct {
	all    []event.Envelope
	direct []directSend
}

func (f *fakeBroadcaster) BroadcastAll(env event.Envelope) {
	f.all = append(f.all, env)
}

func (f *fakeBroadcaster) SendTo(r contract.Recipient, env event.Envelope) {
	f.direct = append(f.direct, directSend{to: r, env: env})
}

type pipelineFixture struct {
	gate      *mocks.MockAuthenticationGate
	sanitizer *mocks.MockSanitizer
	router    *mocks.MockCommandRouter
	messages  *mocks.MockMessageStore
	sessions  *mocks.MockSessionStore
	sink      *mocks.MockMessageSink
	bus       *fakeBroadcaster
	pipeline  *Pipeline
	client    *Client
}

func newPipelineFixture(t *testing.T, censoredWords []string) *pipelineFixture {
	t.Helper()
	req := require.New(t)
	ctrl := gomock.NewController(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	moderator, err := moderation.NewModerator(censoredWords, '*')
	req.NoError(err)

	f := &pipelineFixture{
		gate:      mocks.NewMockAuthenticationGate(ctrl),
		sanitizer: mocks.NewMockSanitizer(ctrl),
		router:    mocks.NewMockCommandRouter(ctrl),
		messages:  mocks.NewMockMessageStore(ctrl),
		sessions:  mocks.NewMockSessionStore(ctrl),
		sink:      mocks.NewMockMessageSink(ctrl),
		bus:       &fakeBroadcaster{},
	}
	f.pipeline = NewPipeline(log, PipelineDeps{
		Gate:        f.gate,
		Sanitizer:   f.sanitizer,
		Moderator:   moderator,
		Router:      f.router,
		Messages:    f.messages,
		Sessions:    f.sessions,
		Policy:      NewBroadcastPolicy(DefaultBroadcastCommands),
		Broadcaster: f.bus,
		Sinks:       []contract.MessageSink{f.sink},
		Monitor:     observability.NewMonitor(log),
	})
	f.client = &Client{id: uuid.NewString(), log: log, closed: make(chan struct{})}
	return f
}

func signedInUser() *domain.User {
	return &domain.User{ID: uuid.NewString(), Username: "alice"}
}

func TestPipeline_EmptyFrameIsDropped(t *testing.T) {
	f := newPipelineFixture(t, nil)

	f.pipeline.HandleFrame(context.Background(), f.client, event.Frame{Token: "whatever"})

	require.Empty(t, f.bus.all)
	require.Empty(t, f.bus.direct)
}

func TestPipeline_AnonymousMessageWarnsOriginOnly(t *testing.T) {
	req := require.New(t)
	f := newPipelineFixture(t, nil)

	f.gate.EXPECT().Authenticate(gomock.Any(), "").Return(nil, nil)
	f.sanitizer.EXPECT().Strip("hello room").Return("hello room")

	f.pipeline.HandleFrame(context.Background(), f.client, event.Frame{Text: "hello room"})

	req.Empty(f.bus.all)
	req.Len(f.bus.direct, 1)
	req.Same(f.client, f.bus.direct[0].to)
	req.Equal(event.KindWarning, f.bus.direct[0].env.Event)
	req.Equal(event.WarningPayload{Message: apperrors.ErrNotSignedIn.Error()}, f.bus.direct[0].env.Data)
}

func TestPipeline_SignedInMessageReachesEveryone(t *testing.T) {
	req := require.New(t)
	f := newPipelineFixture(t, nil)
	user := signedInUser()
	saved := domain.Message{
		ID:        uuid.New(),
		AuthorID:  user.ID,
		Username:  user.Username,
		Content:   "check https://example.org",
		Lang:      "en",
		CreatedAt: time.Now().UTC(),
	}

	f.gate.EXPECT().Authenticate(gomock.Any(), "token-1").Return(user, nil)
	f.sessions.EXPECT().Add(*user)
	f.sanitizer.EXPECT().Strip("check https://example.org").Return("check https://example.org")
	f.messages.EXPECT().Save(gomock.Any(), *user, "check https://example.org").Return(saved, nil)
	f.sink.EXPECT().Consume(gomock.Any(), saved).Return(nil)
	f.sanitizer.EXPECT().Linkify(saved.Content).
		Return(`check <a href="https://example.org" target="_blank">https://example.org</a>`)

	f.pipeline.HandleFrame(context.Background(), f.client, event.Frame{Text: "check https://example.org", Token: "token-1"})

	req.Empty(f.bus.direct)
	req.Len(f.bus.all, 1)
	req.Equal(event.KindMessage, f.bus.all[0].Event)
	payload, ok := f.bus.all[0].Data.(event.MessagePayload)
	req.True(ok)
	req.Equal(user.Username, payload.Username)
	req.Equal(saved.ID.String(), payload.ID)
	req.Contains(payload.Text, `<a href="https://example.org"`)
	req.Equal(user, f.client.user)
}

func TestPipeline_MessageIsCensoredBeforePersistence(t *testing.T) {
	req := require.New(t)
	f := newPipelineFixture(t, []string{"darn"})
	user := signedInUser()

	f.gate.EXPECT().Authenticate(gomock.Any(), "token-1").Return(user, nil)
	f.sessions.EXPECT().Add(*user)
	f.sanitizer.EXPECT().Strip("well d4rn it").Return("well d4rn it")
	f.messages.EXPECT().Save(gomock.Any(), *user, "well **** it").
		Return(domain.Message{ID: uuid.New(), Content: "well **** it"}, nil)
	f.sink.EXPECT().Consume(gomock.Any(), gomock.Any()).Return(nil)
	f.sanitizer.EXPECT().Linkify("well **** it").Return("well **** it")

	f.pipeline.HandleFrame(context.Background(), f.client, event.Frame{Text: "well d4rn it", Token: "token-1"})

	req.Len(f.bus.all, 1)
}

func TestPipeline_BroadcastCommandReachesEveryone(t *testing.T) {
	req := require.New(t)
	f := newPipelineFixture(t, nil)
	user := signedInUser()
	result := domain.CommandResult{Command: "me", Message: "alice waves"}

	f.gate.EXPECT().Authenticate(gomock.Any(), "token-1").Return(user, nil)
	f.sessions.EXPECT().Add(*user)
	f.sanitizer.EXPECT().Strip("/me waves").Return("/me waves")
	f.router.EXPECT().Run(gomock.Any(), user, "/me waves").Return(result, nil)

	f.pipeline.HandleFrame(context.Background(), f.client, event.Frame{Text: "/me waves", Token: "token-1"})

	req.Empty(f.bus.direct)
	req.Len(f.bus.all, 1)
	req.Equal(event.KindCommand, f.bus.all[0].Event)
	req.Equal(result, f.bus.all[0].Data)
}

func TestPipeline_PrivateCommandStaysWithOrigin(t *testing.T) {
	req := require.New(t)
	f := newPipelineFixture(t, nil)
	user := signedInUser()
	result := domain.CommandResult{Command: "who", Message: "1 user online"}

	f.gate.EXPECT().Authenticate(gomock.Any(), "token-1").Return(user, nil)
	f.sessions.EXPECT().Add(*user)
	f.sanitizer.EXPECT().Strip("/who").Return("/who")
	f.router.EXPECT().Run(gomock.Any(), user, "/who").Return(result, nil)

	f.pipeline.HandleFrame(context.Background(), f.client, event.Frame{Text: "/who", Token: "token-1"})

	req.Empty(f.bus.all)
	req.Len(f.bus.direct, 1)
	req.Same(f.client, f.bus.direct[0].to)
	req.Equal(event.KindCommand, f.bus.direct[0].env.Event)
}

func TestPipeline_MarkupCannotHideACommand(t *testing.T) {
	req := require.New(t)
	f := newPipelineFixture(t, nil)
	user := signedInUser()

	f.gate.EXPECT().Authenticate(gomock.Any(), "token-1").Return(user, nil)
	f.sessions.EXPECT().Add(*user)
	// The sigil check runs on the stripped text, while the router still
	// receives the frame as it arrived.
	f.sanitizer.EXPECT().Strip("<b>/me waves</b>").Return("/me waves")
	f.router.EXPECT().Run(gomock.Any(), user, "<b>/me waves</b>").
		Return(domain.CommandResult{Command: "me", Message: "alice waves"}, nil)

	f.pipeline.HandleFrame(context.Background(), f.client, event.Frame{Text: "<b>/me waves</b>", Token: "token-1"})

	req.Len(f.bus.all, 1)
}

func TestPipeline_AnonymousCommandStillRuns(t *testing.T) {
	req := require.New(t)
	f := newPipelineFixture(t, nil)
	result := domain.CommandResult{Command: "help", Message: "Available commands: ..."}

	f.gate.EXPECT().Authenticate(gomock.Any(), "").Return(nil, nil)
	f.sanitizer.EXPECT().Strip("/help").Return("/help")
	f.router.EXPECT().Run(gomock.Any(), gomock.Nil(), "/help").Return(result, nil)

	f.pipeline.HandleFrame(context.Background(), f.client, event.Frame{Text: "/help"})

	req.Empty(f.bus.all)
	req.Len(f.bus.direct, 1)
}

func TestPipeline_AuthFailureBecomesWarning(t *testing.T) {
	req := require.New(t)
	f := newPipelineFixture(t, nil)

	f.gate.EXPECT().Authenticate(gomock.Any(), "token-1").Return(nil, errors.New("user lookup timed out"))

	f.pipeline.HandleFrame(context.Background(), f.client, event.Frame{Text: "hello", Token: "token-1"})

	req.Empty(f.bus.all)
	req.Len(f.bus.direct, 1)
	req.Equal(event.KindWarning, f.bus.direct[0].env.Event)
	warning, ok := f.bus.direct[0].env.Data.(event.WarningPayload)
	req.True(ok)
	req.Contains(warning.Message, "authentication")
	req.Contains(warning.Message, "user lookup timed out")
}

func TestPipeline_PersistenceFailureBecomesWarning(t *testing.T) {
	req := require.New(t)
	f := newPipelineFixture(t, nil)
	user := signedInUser()

	f.gate.EXPECT().Authenticate(gomock.Any(), "token-1").Return(user, nil)
	f.sessions.EXPECT().Add(*user)
	f.sanitizer.EXPECT().Strip("hello").Return("hello")
	f.messages.EXPECT().Save(gomock.Any(), *user, "hello").
		Return(domain.Message{}, errors.New("disk full"))

	f.pipeline.HandleFrame(context.Background(), f.client, event.Frame{Text: "hello", Token: "token-1"})

	req.Empty(f.bus.all)
	req.Len(f.bus.direct, 1)
	req.Equal(event.KindWarning, f.bus.direct[0].env.Event)
}

func TestPipeline_SinkFailureDoesNotBlockDelivery(t *testing.T) {
	req := require.New(t)
	f := newPipelineFixture(t, nil)
	user := signedInUser()
	saved := domain.Message{ID: uuid.New(), Content: "hello"}

	f.gate.EXPECT().Authenticate(gomock.Any(), "token-1").Return(user, nil)
	f.sessions.EXPECT().Add(*user)
	f.sanitizer.EXPECT().Strip("hello").Return("hello")
	f.messages.EXPECT().Save(gomock.Any(), *user, "hello").Return(saved, nil)
	f.sink.EXPECT().Consume(gomock.Any(), saved).Return(errors.New("index unavailable"))
	f.sanitizer.EXPECT().Linkify("hello").Return("hello")

	f.pipeline.HandleFrame(context.Background(), f.client, event.Frame{Text: "hello", Token: "token-1"})

	req.Empty(f.bus.direct)
	req.Len(f.bus.all, 1)
}

func TestPipeline_DisconnectAnnouncesSignedInUser(t *testing.T) {
	req := require.New(t)
	f := newPipelineFixture(t, nil)
	user := signedInUser()
	f.client.user = user

	f.sessions.EXPECT().Remove(*user)

	f.pipeline.HandleDisconnect(context.Background(), f.client)

	req.Len(f.bus.all, 1)
	req.Equal(event.KindMessage, f.bus.all[0].Event)
	payload, ok := f.bus.all[0].Data.(event.MessagePayload)
	req.True(ok)
	req.Equal(event.SystemUsername, payload.Username)
	req.Equal(`<span class="info">alice has disconnected</span>`, payload.Text)
}

func TestPipeline_AnonymousDisconnectIsSilent(t *testing.T) {
	f := newPipelineFixture(t, nil)

	f.pipeline.HandleDisconnect(context.Background(), f.client)

	require.Empty(t, f.bus.all)
	require.Empty(t, f.bus.direct)
}
