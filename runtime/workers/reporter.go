package workers

import (
	"context"
	"log/slog"
	"time"

	"chat-relay/observability"
)

// ReporterWorker periodically logs the monitor snapshot so an operator can
// follow connection and message volume without hitting the stats endpoint.
type ReporterWorker struct {
	log      *slog.Logger
	monitor  *observability.Monitor
	interval time.Duration
}

func NewReporterWorker(log *slog.Logger, monitor *observability.Monitor, interval time.Duration) *ReporterWorker {
	return &ReporterWorker{log: log, monitor: monitor, interval: interval}
}

// Run emits one snapshot per interval until the context is canceled. A final
// snapshot is written on the way out so shutdown totals end up in the logs.
func (w *ReporterWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.report()
			return ctx.Err()
		case <-ticker.C:
			w.report()
		}
	}
}

func (w *ReporterWorker) report() {
	attrs := make([]any, 0, 16)
	for key, value := range w.monitor.Snapshot() {
		attrs = append(attrs, key, value)
	}
	w.log.Info("Server stats", attrs...)
}
