package wifi

// ReconnectPolicy decides whether the n-th consecutive reconnect attempt of
// an outage (n starts at 1) may be issued.
type ReconnectPolicy interface {
	Allow(n int) bool
}

type unlimited struct{}

func (unlimited) Allow(int) bool { return true }

// Unlimited reconnects immediately on every disconnect, forever.
var Unlimited ReconnectPolicy = unlimited{}

// Bounded allows at most n attempts per outage.
type Bounded int

func (b Bounded) Allow(n int) bool { return n <= int(b) }

// PolicyFor maps a configured limit to a policy; 0 means unlimited.
func PolicyFor(limit int) ReconnectPolicy {
	if limit <= 0 {
		return Unlimited
	}
	return Bounded(limit)
}
