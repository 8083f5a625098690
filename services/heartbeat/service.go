// Package heartbeat periodically logs liveness and memory figures. The
// interval follows the retained "config/heartbeat" section.
package heartbeat

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"satpoint-go/bus"
	"satpoint-go/types"
	"satpoint-go/x/logx"
	"satpoint-go/x/timex"
)

var topicConfigHeartbeat = bus.T("config", "heartbeat")

const defaultInterval = time.Second

type Service struct {
	log   *slog.Logger
	start time.Time
}

func New(l *slog.Logger) *Service {
	return &Service{log: logx.Tag(l, logx.TagHB)}
}

// Run logs a heartbeat every interval until ctx ends.
func (s *Service) Run(ctx context.Context, conn *bus.Connection) error {
	cfgSub := conn.Subscribe(topicConfigHeartbeat)
	defer conn.Unsubscribe(cfgSub)

	s.start = time.Now()
	every := defaultInterval
	t := time.NewTimer(every)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("heartbeat stopping")
			return nil
		case <-t.C:
			s.beat()
			t.Reset(every)
		case msg, ok := <-cfgSub.Channel():
			if !ok {
				return nil
			}
			if d, ok := interval(msg.Payload); ok {
				every = d
				timex.ResetTimer(t, every)
				s.log.Info("heartbeat interval set", "interval", d.String())
			}
		}
	}
}

func (s *Service) beat() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	s.log.Info("heartbeat",
		"uptime_s", int64(time.Since(s.start)/time.Second),
		"goroutines", runtime.NumGoroutine(),
		"heap_inuse", ms.HeapInuse,
	)
}

// interval accepts the typed section or a generic decoded object.
func interval(p any) (time.Duration, bool) {
	var d time.Duration
	switch v := p.(type) {
	case types.HeartbeatConfig:
		d = v.Period()
	case map[string]any:
		f, ok := v["interval"].(float64)
		if !ok {
			return 0, false
		}
		d = types.HeartbeatConfig{Interval: f}.Period()
	default:
		return 0, false
	}
	return d, d > 0
}
