// Package gps reads NMEA from a serial receiver and keeps the latest
// position fix retained on "gps/fix". Nothing in the firmware consumes the
// fix yet; the pointing transform does not take one.
package gps

import (
	"context"
	"log/slog"
	"time"

	"satpoint-go/bus"
	"satpoint-go/types"
	"satpoint-go/x/logx"
	"satpoint-go/x/nmea"
	"satpoint-go/x/timex"
)

// Port is a byte stream from the receiver.
type Port interface {
	RecvSomeContext(ctx context.Context, p []byte) (int, error)
}

var topicFix = bus.T("gps", "fix")

const (
	maxLine     = 128 // NMEA caps sentences at 82 bytes
	readTimeout = 250 * time.Millisecond
	errBackoff  = 200 * time.Millisecond
)

type Service struct {
	port Port
	conn *bus.Connection
	log  *slog.Logger

	fix types.GeoFix
}

func New(port Port, conn *bus.Connection, l *slog.Logger) *Service {
	return &Service{port: port, conn: conn, log: logx.Tag(l, logx.TagGPS)}
}

// Run assembles lines from the port until ctx ends.
func (s *Service) Run(ctx context.Context) error {
	buf := make([]byte, 64)
	line := make([]byte, 0, maxLine)
	overlong := false

	s.log.Info("gps started")
	for {
		if ctx.Err() != nil {
			return nil
		}
		// Bound the blocking wait to assist shutdown.
		rctx, cancel := context.WithTimeout(ctx, readTimeout)
		n, err := s.port.RecvSomeContext(rctx, buf)
		cancel()
		if err != nil && n == 0 {
			if ctx.Err() != nil {
				return nil
			}
			if rctx.Err() == nil {
				s.log.Warn("read failed", "err", err)
				timex.Sleep(ctx.Done(), errBackoff)
			}
			continue
		}
		for _, b := range buf[:n] {
			switch b {
			case '\n':
				if !overlong {
					s.handleLine(string(line))
				}
				line = line[:0]
				overlong = false
			case '\r':
			default:
				if len(line) < maxLine {
					line = append(line, b)
				} else {
					overlong = true
				}
			}
		}
	}
}

func (s *Service) handleLine(line string) {
	if len(line) == 0 {
		return
	}
	sen, err := nmea.Parse(line)
	if err != nil {
		s.log.Debug("bad sentence", "err", err)
		return
	}
	switch sen.Type {
	case "GGA":
		g, err := sen.GGA()
		if err != nil {
			return
		}
		s.fix = types.GeoFix{Lat: g.Lat, Lon: g.Lon, AltM: g.AltM, Sats: g.Sats, Quality: g.Quality}
	case "RMC":
		r, err := sen.RMC()
		if err != nil {
			return
		}
		s.fix.Lat, s.fix.Lon = r.Lat, r.Lon
	default:
		return
	}
	s.fix.TSms = timex.NowMs()
	s.log.Debug("fix", "lat", s.fix.Lat, "lon", s.fix.Lon, "alt_m", s.fix.AltM, "sats", s.fix.Sats)
	if s.conn != nil {
		s.conn.Publish(s.conn.NewMessage(topicFix, s.fix, true))
	}
}

// Fix returns the last decoded fix. Only safe to call from the goroutine
// running Run, or after it returned.
func (s *Service) Fix() types.GeoFix { return s.fix }
