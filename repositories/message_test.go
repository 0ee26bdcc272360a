package repositories

import (
	"context"
	"log/slog"
	"testing"

	"chat-relay/domain"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func Test_Save_AssignsIdentityAndTime(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default())

	author := domain.User{ID: "u1", Username: "alice"}
	msg, err := repository.Save(context.Background(), author, "this message will self destruct in 5 seconds")
	req.NoError(err)

	req.NotEmpty(msg.ID)
	req.False(msg.CreatedAt.IsZero())
	req.Equal("u1", msg.AuthorID)
	req.Equal("alice", msg.Username)
	req.NotEmpty(msg.Lang)
}

func Test_Record_Multiple_Messages(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := NewMessageRepository(openTestDB(t), slog.Default())

	authors := []domain.User{
		{ID: "u1", Username: "alice"},
		{ID: "u2", Username: "bob"},
		{ID: "u3", Username: "clara"},
	}
	for i, author := range authors {
		_, err := repository.Save(ctx, author, "message number "+string(rune('0'+i)))
		req.NoError(err)
	}

	fetched, err := repository.Recent(0)
	req.NoError(err)
	req.Len(fetched, len(authors))

	// Chronological order: first writer first.
	req.Equal("alice", fetched[0].Username)
	req.Equal("bob", fetched[1].Username)
	req.Equal("clara", fetched[2].Username)
}

func Test_Recent_Limit_KeepsNewest(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := NewMessageRepository(openTestDB(t), slog.Default())

	for _, name := range []string{"alice", "bob", "clara"} {
		_, err := repository.Save(ctx, domain.User{ID: name, Username: name}, "hello from "+name)
		req.NoError(err)
	}

	fetched, err := repository.Recent(2)
	req.NoError(err)
	req.Len(fetched, 2)
	req.Equal("bob", fetched[0].Username)
	req.Equal("clara", fetched[1].Username)
}
