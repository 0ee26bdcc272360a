// Package search maintains a full-text index of persisted chat messages.
package search

import (
	"context"
	"log/slog"
	"sync"

	"chat-relay/domain"

	"github.com/blugelabs/bluge"
)

// Hit is one search result, shaped for display.
type Hit struct {
	ID       string
	Username string
	Content  string
}

// MessageIndex wraps a Bluge writer. Writes are serialized; searches open a
// point-in-time reader per call.
type MessageIndex struct {
	mu     sync.Mutex
	writer *bluge.Writer
	log    *slog.Logger
	limit  int
}

func NewMessageIndex(writer *bluge.Writer, log *slog.Logger, limit int) *MessageIndex {
	return &MessageIndex{writer: writer, log: log, limit: limit}
}

// Index adds or replaces one message document.
func (x *MessageIndex) Index(msg domain.Message) error {
	doc := bluge.NewDocument(msg.ID.String()).
		AddField(bluge.NewTextField("content", msg.Content).StoreValue()).
		AddField(bluge.NewKeywordField("username", msg.Username).StoreValue()).
		AddField(bluge.NewDateTimeField("at", msg.CreatedAt))

	x.mu.Lock()
	defer x.mu.Unlock()
	return x.writer.Update(doc.ID(), doc)
}

// Search returns up to the configured limit of messages matching the terms.
func (x *MessageIndex) Search(ctx context.Context, terms string) ([]Hit, error) {
	reader, err := x.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := reader.Close(); cerr != nil {
			x.log.Warn("Failed to close index reader", "error", cerr)
		}
	}()

	query := bluge.NewMatchQuery(terms).SetField("content")
	request := bluge.NewTopNSearch(x.limit, query)

	iterator, err := reader.Search(ctx, request)
	if err != nil {
		return nil, err
	}

	var hits []Hit
	for {
		match, err := iterator.Next()
		if err != nil {
			return nil, err
		}
		if match == nil {
			break
		}

		var hit Hit
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case "_id":
				hit.ID = string(value)
			case "content":
				hit.Content = string(value)
			case "username":
				hit.Username = string(value)
			}
			return true
		})
		if err != nil {
			return nil, err
		}
		hits = append(hits, hit)
	}
	return hits, nil
}
