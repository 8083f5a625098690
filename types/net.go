package types

import "net/netip"

// ConnState is the connectivity state owned by the wifi manager.
type ConnState string

const (
	ConnIdle         ConnState = "idle"
	ConnConnecting   ConnState = "connecting"
	ConnConnected    ConnState = "connected"
	ConnDisconnected ConnState = "disconnected"
)

// NetEventKind enumerates notifications emitted by the network stack.
type NetEventKind uint8

const (
	NetStarted NetEventKind = iota + 1
	NetDisconnected
	NetGotIP
)

func (k NetEventKind) String() string {
	switch k {
	case NetStarted:
		return "started"
	case NetDisconnected:
		return "disconnected"
	case NetGotIP:
		return "got_ip"
	default:
		return "unknown"
	}
}

// NetEvent is delivered by the network stack on its own goroutine.
// Addr is valid only for NetGotIP.
type NetEvent struct {
	Kind   NetEventKind
	Addr   netip.Addr
	Reason string
}

// NetState is published retained on "net/state" after every transition.
type NetState struct {
	State ConnState `json:"state"`
	Addr  string    `json:"addr,omitempty"`
	TSms  int64     `json:"ts_ms"`
}

// Minimum authentication modes accepted for the station link, weakest first.
const (
	AuthOpen      = "open"
	AuthWPA       = "wpa_psk"
	AuthWPA2      = "wpa2_psk"
	AuthWPA2Mixed = "wpa2_mixed"
)
