//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"chat-relay/domain"

	"github.com/abadojack/whatlanggo"
	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

type IMessageRepository interface {
	Save(ctx context.Context, author domain.User, content string) (domain.Message, error)
	Recent(limit int) ([]domain.Message, error)
}

type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) MessageRepository {
	return MessageRepository{db: db, log: log}
}

// diskMessage is the stored JSON shape; timestamps are kept as UnixNano.
type diskMessage struct {
	ID       string `json:"id"`
	AuthorID string `json:"author_id"`
	Username string `json:"username"`
	Content  string `json:"content"`
	Lang     string `json:"lang"`
	At       int64  `json:"at"`
}

// Save persists a message and assigns its identity, language and creation
// time. The key is formatted as "msg:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding
//     (lexicographical order).
//  2. Prevent data loss by using the UUID as a collision disconnector if two
//     messages arrive at the same nanosecond.
func (m MessageRepository) Save(ctx context.Context, author domain.User, content string) (domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return domain.Message{}, err
	}

	info := whatlanggo.Detect(content)
	msg := domain.Message{
		ID:        uuid.New(),
		AuthorID:  author.ID,
		Username:  author.Username,
		Content:   content,
		Lang:      info.Lang.Iso6391(),
		CreatedAt: time.Now().UTC(),
	}

	key := fmt.Sprintf("msg:%019d:%s", msg.CreatedAt.UnixNano(), msg.ID)
	bytes, err := json.Marshal(fromMessage(msg))
	if err != nil {
		return domain.Message{}, err
	}

	err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), bytes)
	})
	if err != nil {
		return domain.Message{}, err
	}
	return msg, nil
}

// Recent returns up to limit messages in chronological order. Thanks to the
// padded timestamp in the key, a reverse prefix scan yields the newest first.
func (m MessageRepository) Recent(limit int) ([]domain.Message, error) {
	var stored []diskMessage
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := []byte("msg:")
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		// Seek past the newest possible key, then walk backwards.
		seekKey := append(append([]byte{}, prefix...), []byte("9999999999999999999")...)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(stored) == limit {
				m.log.Debug(fmt.Sprintf("Maximum of %d messages reached", limit))
				break
			}
			var dm diskMessage
			err := it.Item().Value(func(value []byte) error {
				return json.Unmarshal(value, &dm)
			})
			if err != nil {
				return err
			}
			stored = append(stored, dm)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	messages := lo.Map(stored, func(dm diskMessage, _ int) (msg domain.Message) {
		msg, convErr := toMessage(dm)
		if convErr != nil {
			m.log.Error("Skipping corrupted message record", "id", dm.ID, "error", convErr)
		}
		return msg
	})

	// Reverse scan order back to chronological.
	lo.Reverse(messages)
	return messages, nil
}

func fromMessage(msg domain.Message) diskMessage {
	return diskMessage{
		ID:       msg.ID.String(),
		AuthorID: msg.AuthorID,
		Username: msg.Username,
		Content:  msg.Content,
		Lang:     msg.Lang,
		At:       msg.CreatedAt.UnixNano(),
	}
}

func toMessage(dm diskMessage) (domain.Message, error) {
	parsedID, err := uuid.Parse(dm.ID)
	if err != nil {
		return domain.Message{}, err
	}
	return domain.Message{
		ID:        parsedID,
		AuthorID:  dm.AuthorID,
		Username:  dm.Username,
		Content:   dm.Content,
		Lang:      dm.Lang,
		CreatedAt: time.Unix(0, dm.At).UTC(),
	}, nil
}
