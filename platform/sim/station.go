package sim

import (
	"errors"
	"net/netip"
	"sync"
	"time"

	"satpoint-go/types"
)

var ErrNotStarted = errors.New("sim: interface not started")

// Station is a simulated station-mode network stack. Notifications are
// delivered sequentially on a driver-owned goroutine, like an event loop
// task; handlers may call back into the station.
type Station struct {
	// Network is the SSID of the simulated access point. Empty accepts any.
	Network string
	// Addr is handed out on association.
	Addr netip.Addr
	// AssocDelay paces association attempts.
	AssocDelay time.Duration

	// Fault injection for the boot path.
	InitErr, NotifyErr, StartErr error

	mu       sync.Mutex
	handlers map[int]func(types.NetEvent)
	nextID   int
	cfg      types.StationConfig
	started  bool
	connects int
	q        chan types.NetEvent
	quit     chan struct{}
	once     sync.Once
}

func NewStation(addr netip.Addr) *Station {
	return &Station{
		Addr:       addr,
		AssocDelay: 100 * time.Millisecond,
		handlers:   map[int]func(types.NetEvent){},
		q:          make(chan types.NetEvent, 32),
		quit:       make(chan struct{}),
	}
}

// Init starts the driver goroutine.
func (s *Station) Init() error {
	if s.InitErr != nil {
		return s.InitErr
	}
	s.once.Do(func() { go s.loop() })
	return nil
}

func (s *Station) loop() {
	for {
		select {
		case <-s.quit:
			return
		case ev := <-s.q:
			s.mu.Lock()
			hs := make([]func(types.NetEvent), 0, len(s.handlers))
			for _, h := range s.handlers {
				hs = append(hs, h)
			}
			s.mu.Unlock()
			for _, h := range hs {
				h(ev)
			}
		}
	}
}

// Close stops the driver goroutine.
func (s *Station) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.quit:
	default:
		close(s.quit)
	}
}

func (s *Station) Notify(h func(types.NetEvent)) (func(), error) {
	if s.NotifyErr != nil {
		return nil, s.NotifyErr
	}
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.handlers[id] = h
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.handlers, id)
		s.mu.Unlock()
	}, nil
}

func (s *Station) Configure(cfg types.StationConfig) error {
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
	return nil
}

// Config returns the last applied station configuration.
func (s *Station) Config() types.StationConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

func (s *Station) Start() error {
	if s.StartErr != nil {
		return s.StartErr
	}
	s.mu.Lock()
	s.started = true
	s.mu.Unlock()
	s.emitAfter(0, types.NetEvent{Kind: types.NetStarted})
	return nil
}

// Connect requests association; the outcome arrives as a notification.
func (s *Station) Connect() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return ErrNotStarted
	}
	s.connects++
	ok := s.Network == "" || s.cfg.SSID == s.Network
	s.mu.Unlock()

	if ok {
		s.emitAfter(s.AssocDelay, types.NetEvent{Kind: types.NetGotIP, Addr: s.Addr})
	} else {
		s.emitAfter(s.AssocDelay, types.NetEvent{Kind: types.NetDisconnected, Reason: "no_ap_found"})
	}
	return nil
}

// Connects returns the number of association requests so far.
func (s *Station) Connects() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connects
}

// Drop simulates loss of the link.
func (s *Station) Drop(reason string) {
	s.emitAfter(0, types.NetEvent{Kind: types.NetDisconnected, Reason: reason})
}

// emitAfter queues from a separate goroutine so a handler calling back into
// the station never blocks the loop.
func (s *Station) emitAfter(d time.Duration, ev types.NetEvent) {
	time.AfterFunc(d, func() {
		select {
		case s.q <- ev:
		case <-s.quit:
		}
	})
}
