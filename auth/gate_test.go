package auth

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"chat-relay/repositories"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

func newTestGate(t *testing.T) (*Gate, *TokenManager, repositories.IUserRepository) {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	tokens := NewTokenManager("gate-test-secret", time.Hour)
	users := repositories.NewUserRepository(db)
	return NewGate(tokens, users, slog.Default()), tokens, users
}

func TestGate_ResolvesValidToken(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	gate, tokens, users := newTestGate(t)

	id, err := users.CreateUser("alice", "hash")
	req.NoError(err)
	signed, err := tokens.Generate(id, []string{"user"})
	req.NoError(err)

	user, err := gate.Authenticate(ctx, signed)
	req.NoError(err)
	req.NotNil(user)
	req.Equal(id, user.ID)
	req.Equal("alice", user.Username)
}

func TestGate_MissingTokenIsAnonymous(t *testing.T) {
	req := require.New(t)
	gate, _, _ := newTestGate(t)

	user, err := gate.Authenticate(context.Background(), "")
	req.NoError(err)
	req.Nil(user)
}

func TestGate_InvalidTokenIsAnonymous(t *testing.T) {
	req := require.New(t)
	gate, _, _ := newTestGate(t)

	user, err := gate.Authenticate(context.Background(), "garbage.token.value")
	req.NoError(err)
	req.Nil(user)
}

func TestGate_UnknownSubjectIsAnonymous(t *testing.T) {
	req := require.New(t)
	gate, tokens, _ := newTestGate(t)

	signed, err := tokens.Generate("deleted-user-id", nil)
	req.NoError(err)

	user, err := gate.Authenticate(context.Background(), signed)
	req.NoError(err)
	req.Nil(user)
}
