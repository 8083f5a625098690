// Package wifi keeps the station-mode link up. Network stack notifications
// drive a small state machine on the stack's goroutine; the manager's own
// task only waits for the connected flag and then supervises.
package wifi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/netip"
	"sync"
	"time"

	"satpoint-go/bus"
	"satpoint-go/errcode"
	"satpoint-go/services/nvs"
	"satpoint-go/types"
	"satpoint-go/x/evgroup"
	"satpoint-go/x/logx"
	"satpoint-go/x/timex"
)

// ConnectedBit is raised while the station holds an address.
const ConnectedBit evgroup.Bits = 1 << 0

const (
	credsKey       = "wifi/sta"
	superviseEvery = time.Second
)

var topicNetState = bus.T("net", "state")

// Station is the external network stack in station mode. Notify callbacks
// run on a goroutine owned by the stack.
type Station interface {
	Init() error
	Notify(func(types.NetEvent)) (cancel func(), err error)
	Configure(types.StationConfig) error
	Start() error
	Connect() error
}

// Observer receives link statistics. Calls are made from the stack's
// goroutine and must not block.
type Observer interface {
	ConnectAttempt()
	LinkUp(up bool)
}

type Options struct {
	Station Station
	Store   nvs.Store
	Signal  *evgroup.Group
	// Conn, if set, receives retained "net/state" updates.
	Conn     *bus.Connection
	Policy   ReconnectPolicy
	Observer Observer
	Logger   *slog.Logger
	// SuperviseEvery is the idle loop period; 0 selects 1 s.
	SuperviseEvery time.Duration
}

type Manager struct {
	st     Station
	store  nvs.Store
	sig    *evgroup.Group
	conn   *bus.Connection
	policy ReconnectPolicy
	obs    Observer
	log    *slog.Logger
	every  time.Duration

	mu       sync.Mutex
	state    types.ConnState
	addr     netip.Addr
	creds    types.StationConfig
	outage   int
	attempts int
	cancel   func()
	opened   bool
	closed   bool

	stop     chan struct{}
	stopOnce sync.Once
	relOnce  sync.Once
}

func New(o Options) *Manager {
	if o.Signal == nil {
		o.Signal = evgroup.New()
	}
	if o.Policy == nil {
		o.Policy = Unlimited
	}
	if o.SuperviseEvery <= 0 {
		o.SuperviseEvery = superviseEvery
	}
	return &Manager{
		st:     o.Station,
		store:  o.Store,
		sig:    o.Signal,
		conn:   o.Conn,
		policy: o.Policy,
		obs:    o.Observer,
		log:    logx.Tag(o.Logger, logx.TagWiFi),
		every:  o.SuperviseEvery,
		state:  types.ConnIdle,
		stop:   make(chan struct{}),
	}
}

func fatal(op string, err error) error {
	return errcode.Wrap(errcode.BootFatal, op, err)
}

// Initialize opens storage, initialises the stack and registers the event
// handler. Any failure is fatal to boot.
func (m *Manager) Initialize(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fatal("wifi.Initialize", err)
	}
	if m.st == nil {
		return fatal("wifi.Initialize", errcode.Unsupported)
	}
	if m.isClosed() {
		return fatal("wifi.Initialize", errcode.Stopped)
	}
	if m.store != nil {
		if err := m.store.Open(); err != nil {
			return fatal("wifi.Initialize: nvs", err)
		}
		m.mu.Lock()
		m.opened = true
		m.mu.Unlock()
	}
	if err := m.st.Init(); err != nil {
		m.release()
		return fatal("wifi.Initialize: init", err)
	}
	cancel, err := m.st.Notify(m.handle)
	if err != nil {
		m.release()
		return fatal("wifi.Initialize: notify", err)
	}
	m.mu.Lock()
	m.cancel = cancel
	m.mu.Unlock()
	m.log.Info("station initialised")
	return nil
}

// Up applies credentials and starts the interface. With an empty SSID the
// credentials stored on the device are used; otherwise they are persisted.
func (m *Manager) Up(creds types.StationConfig) error {
	if creds.SSID == "" {
		stored, err := m.loadCreds()
		if err != nil {
			return fatal("wifi.Up", err)
		}
		creds = stored
	} else if err := m.saveCreds(creds); err != nil {
		return fatal("wifi.Up", err)
	}
	if creds.MinAuth == "" {
		creds.MinAuth = types.AuthWPA2
	}
	m.mu.Lock()
	m.creds = creds
	m.mu.Unlock()

	if err := m.st.Configure(creds); err != nil {
		return fatal("wifi.Up: configure", err)
	}
	if err := m.st.Start(); err != nil {
		return fatal("wifi.Up: start", err)
	}
	m.log.Info("station configured", "ssid", creds.SSID, "min_auth", creds.MinAuth)
	return nil
}

func (m *Manager) loadCreds() (types.StationConfig, error) {
	var c types.StationConfig
	if m.store == nil {
		return c, errcode.NotReady
	}
	raw, err := m.store.Get(credsKey)
	if errors.Is(err, nvs.ErrNotFound) {
		return c, &errcode.E{C: errcode.InvalidConfig, Msg: "no stored credentials"}
	}
	if err != nil {
		return c, err
	}
	if err := json.Unmarshal(raw, &c); err != nil {
		return c, errcode.Wrap(errcode.InvalidConfig, "decode", err)
	}
	return c, nil
}

func (m *Manager) saveCreds(c types.StationConfig) error {
	if m.store == nil {
		return nil
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return m.store.Put(credsKey, raw)
}

// Connect asks the stack to associate. The outcome arrives as a
// notification; a synchronous failure is logged and left to the next
// disconnect.
func (m *Manager) Connect() {
	m.mu.Lock()
	m.attempts++
	m.mu.Unlock()
	if m.obs != nil {
		m.obs.ConnectAttempt()
	}
	if err := m.st.Connect(); err != nil {
		m.log.Warn("connect request failed", "err", errcode.Wrap(errcode.NetworkTransient, "wifi.Connect", err))
	}
}

func (m *Manager) handle(ev types.NetEvent) {
	if m.isClosed() {
		return
	}
	switch ev.Kind {
	case types.NetStarted:
		// A restart notice while associated changes nothing; only a
		// disconnect lowers the flag.
		if m.Connected() {
			m.log.Debug("started while connected, ignored")
			return
		}
		m.setState(types.ConnConnecting, netip.Addr{})
		m.log.Info("station started, connecting")
		m.Connect()

	case types.NetDisconnected:
		// The flag must be down before a new attempt can report success.
		m.sig.Clear(ConnectedBit)
		m.mu.Lock()
		m.outage++
		n := m.outage
		m.mu.Unlock()
		m.setState(types.ConnDisconnected, netip.Addr{})
		if m.obs != nil {
			m.obs.LinkUp(false)
		}
		m.log.Warn("disconnected", "reason", ev.Reason, "attempt", n)
		if !m.policy.Allow(n) {
			m.log.Error("reconnect limit reached", "attempts", n-1)
			return
		}
		m.setState(types.ConnConnecting, netip.Addr{})
		m.Connect()

	case types.NetGotIP:
		m.mu.Lock()
		m.outage = 0
		m.mu.Unlock()
		m.setState(types.ConnConnected, ev.Addr)
		m.sig.Set(ConnectedBit)
		if m.obs != nil {
			m.obs.LinkUp(true)
		}
		m.log.Info("got ip", "addr", ev.Addr.String())

	default:
		m.log.Debug("ignored event", "kind", ev.Kind.String())
	}
}

func (m *Manager) setState(s types.ConnState, addr netip.Addr) {
	m.mu.Lock()
	m.state = s
	m.addr = addr
	m.mu.Unlock()
	if m.conn == nil {
		return
	}
	ns := types.NetState{State: s, TSms: timex.NowMs()}
	if addr.IsValid() {
		ns.Addr = addr.String()
	}
	m.conn.Publish(m.conn.NewMessage(topicNetState, ns, true))
}

// Run waits for the first connection, then idles in a supervisory loop
// until ctx ends or Stop is called. Handler and storage are released on
// return.
func (m *Manager) Run(ctx context.Context) error {
	if m.isClosed() {
		return &errcode.E{C: errcode.Stopped, Op: "wifi.Run", Msg: "manager closed"}
	}
	defer m.release()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-m.stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	m.log.Info("waiting for connection")
	if _, err := m.sig.Wait(ctx, ConnectedBit, true); err != nil {
		return nil
	}
	m.log.Info("connected, supervising", "addr", m.Addr().String())

	t := time.NewTicker(m.every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			m.log.Debug("link", "state", string(m.State()), "up", m.Connected())
		}
	}
}

// Stop ends Run. Safe to call more than once.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
}

// Close unregisters the handler and closes storage without running. It is
// used when boot fails after Initialize. Run on a closed manager returns
// errcode.Stopped. Safe to call more than once.
func (m *Manager) Close() {
	m.Stop()
	m.release()
}

func (m *Manager) release() {
	m.relOnce.Do(func() {
		m.mu.Lock()
		cancel := m.cancel
		m.cancel = nil
		opened := m.opened
		m.opened = false
		m.closed = true
		m.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		if opened {
			if err := m.store.Close(); err != nil {
				m.log.Warn("nvs close", "err", err)
			}
		}
		m.log.Info("stopped")
	})
}

func (m *Manager) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *Manager) State() types.ConnState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Addr returns the current address, invalid while not connected.
func (m *Manager) Addr() netip.Addr {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addr
}

// Connected reads the shared flag.
func (m *Manager) Connected() bool { return m.sig.Get()&ConnectedBit != 0 }

// Attempts returns the number of association requests issued.
func (m *Manager) Attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}
