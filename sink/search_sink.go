// Package sink holds consumers of persisted messages. Sinks are fire-and-
// forget side effects: a failing sink is logged and never blocks or fails the
// message pipeline.
package sink

import (
	"context"
	"log/slog"

	"chat-relay/domain"
	"chat-relay/search"
)

// SearchSink feeds every persisted message into the full-text index.
type SearchSink struct {
	index *search.MessageIndex
	log   *slog.Logger
}

func NewSearchSink(index *search.MessageIndex, log *slog.Logger) *SearchSink {
	return &SearchSink{index: index, log: log}
}

func (s *SearchSink) Consume(_ context.Context, msg domain.Message) error {
	if err := s.index.Index(msg); err != nil {
		s.log.Error("Failed to index message", "id", msg.ID, "error", err)
		return err
	}
	return nil
}
