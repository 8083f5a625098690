package wifi

import (
	"net/netip"
	"sync"

	"satpoint-go/types"

	"tinygo.org/x/drivers/netlink"
)

// Link is the subset of netlink.Netlinker used by NetlinkStation.
type Link interface {
	NetConnect(params *netlink.ConnectParams) error
	NetDisconnect()
	NetNotify(cb func(netlink.Event))
}

// NetlinkStation adapts a TinyGo netlink driver to Station. NetConnect
// blocks, so each request runs on its own goroutine; notifications are
// serialised onto one delivery goroutine.
type NetlinkStation struct {
	link Link
	addr func() (netip.Addr, error)

	mu      sync.Mutex
	params  netlink.ConnectParams
	handler func(types.NetEvent)
	up      bool
	q       chan types.NetEvent
	once    sync.Once
}

// NewNetlinkStation wraps link; addr reports the interface address once the
// link is up.
func NewNetlinkStation(link Link, addr func() (netip.Addr, error)) *NetlinkStation {
	return &NetlinkStation{link: link, addr: addr, q: make(chan types.NetEvent, 8)}
}

func (s *NetlinkStation) Init() error {
	s.once.Do(func() {
		go s.deliver()
		s.link.NetNotify(s.onLink)
	})
	return nil
}

func (s *NetlinkStation) deliver() {
	for ev := range s.q {
		s.mu.Lock()
		h := s.handler
		s.mu.Unlock()
		if h != nil {
			h(ev)
		}
	}
}

// emit is never called from the delivery goroutine, so a blocking send
// keeps notifications in order.
func (s *NetlinkStation) emit(ev types.NetEvent) {
	s.q <- ev
}

func (s *NetlinkStation) onLink(e netlink.Event) {
	switch e {
	case netlink.EventNetUp:
		s.gotIP()
	case netlink.EventNetDown:
		s.down("link down")
	}
}

func (s *NetlinkStation) gotIP() {
	s.mu.Lock()
	already := s.up
	s.up = true
	s.mu.Unlock()
	if already {
		return
	}
	var a netip.Addr
	if s.addr != nil {
		a, _ = s.addr()
	}
	s.emit(types.NetEvent{Kind: types.NetGotIP, Addr: a})
}

func (s *NetlinkStation) down(reason string) {
	s.mu.Lock()
	s.up = false
	s.mu.Unlock()
	s.emit(types.NetEvent{Kind: types.NetDisconnected, Reason: reason})
}

// Notify registers the single handler; netlink has no unregister, so the
// returned cancel only detaches it.
func (s *NetlinkStation) Notify(h func(types.NetEvent)) (func(), error) {
	s.mu.Lock()
	s.handler = h
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		s.handler = nil
		s.mu.Unlock()
	}, nil
}

func (s *NetlinkStation) Configure(c types.StationConfig) error {
	s.mu.Lock()
	s.params = netlink.ConnectParams{
		ConnectMode: netlink.ConnectModeSTA,
		Ssid:        c.SSID,
		Passphrase:  c.Password,
		AuthType:    authType(c.MinAuth),
	}
	s.mu.Unlock()
	return nil
}

func authType(minAuth string) netlink.AuthType {
	switch minAuth {
	case types.AuthOpen:
		return netlink.AuthTypeOpen
	case types.AuthWPA:
		return netlink.AuthTypeWPA
	case types.AuthWPA2Mixed:
		return netlink.AuthTypeWPA2Mixed
	default:
		return netlink.AuthTypeWPA2
	}
}

func (s *NetlinkStation) Start() error {
	s.emit(types.NetEvent{Kind: types.NetStarted})
	return nil
}

func (s *NetlinkStation) Connect() error {
	s.mu.Lock()
	p := s.params
	s.mu.Unlock()
	go func() {
		if err := s.link.NetConnect(&p); err != nil {
			s.down(err.Error())
			return
		}
		s.gotIP()
	}()
	return nil
}
