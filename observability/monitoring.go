// Package observability collects runtime telemetry for the chat server.
package observability

import (
	"log/slog"
	"os"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/process"
)

// Monitor aggregates atomic pipeline counters with process self-stats.
type Monitor struct {
	log     *slog.Logger
	proc    *process.Process
	started time.Time

	ConnectionsOpened uint64
	ConnectionsClosed uint64
	MessagesPersisted uint64
	CommandsExecuted  uint64
	WarningsSent      uint64
}

func NewMonitor(log *slog.Logger) *Monitor {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		// Self-inspection failing is not fatal; counters still work.
		log.Warn("Process self-stats unavailable", "error", err)
	}
	return &Monitor{log: log, proc: p, started: time.Now().UTC()}
}

func (m *Monitor) IncrConnectionsOpened() { atomic.AddUint64(&m.ConnectionsOpened, 1) }
func (m *Monitor) IncrConnectionsClosed() { atomic.AddUint64(&m.ConnectionsClosed, 1) }
func (m *Monitor) IncrMessagesPersisted() { atomic.AddUint64(&m.MessagesPersisted, 1) }
func (m *Monitor) IncrCommandsExecuted()  { atomic.AddUint64(&m.CommandsExecuted, 1) }
func (m *Monitor) IncrWarningsSent()      { atomic.AddUint64(&m.WarningsSent, 1) }

// Snapshot returns current counters plus memory/CPU usage of the process.
func (m *Monitor) Snapshot() map[string]any {
	snapshot := map[string]any{
		"uptime":             time.Since(m.started).Round(time.Second).String(),
		"goroutines":         runtime.NumGoroutine(),
		"connections_opened": atomic.LoadUint64(&m.ConnectionsOpened),
		"connections_closed": atomic.LoadUint64(&m.ConnectionsClosed),
		"messages_persisted": atomic.LoadUint64(&m.MessagesPersisted),
		"commands_executed":  atomic.LoadUint64(&m.CommandsExecuted),
		"warnings_sent":      atomic.LoadUint64(&m.WarningsSent),
	}

	if m.proc != nil {
		if memInfo, err := m.proc.MemoryInfo(); err == nil {
			snapshot["rss_mb"] = memInfo.RSS / 1024 / 1024
		}
		if cpu, err := m.proc.CPUPercent(); err == nil {
			snapshot["cpu_percent"] = cpu
		}
	}
	return snapshot
}
