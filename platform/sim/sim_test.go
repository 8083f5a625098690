package sim

import (
	"math"
	"net/netip"
	"testing"
	"time"

	"satpoint-go/types"
)

func TestI2CRegisterPointer(t *testing.T) {
	b := NewI2C()
	var id [1]byte
	if err := b.Tx(AddrMPU, []byte{0x75}, id[:]); err != nil || id[0] != 0x71 {
		t.Fatalf("WHO_AM_I = %#x, %v", id[0], err)
	}
	if err := b.Tx(0x42, []byte{0}, id[:]); err != ErrNoDevice {
		t.Fatalf("absent device err = %v", err)
	}
	if err := b.Tx(AddrQMC, []byte{0x09, 0x1D}, nil); err != nil {
		t.Fatal(err)
	}
	if b.Reg(AddrQMC, 0x09) != 0x1D {
		t.Fatal("register write lost")
	}
}

func TestSynthesizeLevelNorth(t *testing.T) {
	accel, mag := Synthesize(types.Orientation{}, 60)
	if accel.X != 0 || accel.Y != 0 || accel.Z != int16(AccelCountsPerG) {
		t.Fatalf("accel = %+v", accel)
	}
	wantX := int16(math.Round(50 * MagCountsPerUT * 0.5))
	if mag.X != wantX || mag.Y != 0 || mag.Z <= 0 {
		t.Fatalf("mag = %+v", mag)
	}
}

func TestStationAssociates(t *testing.T) {
	st := NewStation(netip.MustParseAddr("192.168.4.2"))
	st.AssocDelay = time.Millisecond
	defer st.Close()
	if err := st.Init(); err != nil {
		t.Fatal(err)
	}
	evs := make(chan types.NetEvent, 4)
	cancel, _ := st.Notify(func(ev types.NetEvent) { evs <- ev })
	defer cancel()

	if err := st.Connect(); err != ErrNotStarted {
		t.Fatalf("connect before start err = %v", err)
	}
	_ = st.Start()
	expectKind(t, evs, types.NetStarted)
	_ = st.Connect()
	ev := expectKind(t, evs, types.NetGotIP)
	if ev.Addr != st.Addr {
		t.Fatalf("addr = %v", ev.Addr)
	}
	st.Drop("beacon_timeout")
	expectKind(t, evs, types.NetDisconnected)
}

func TestStationRejectsWrongNetwork(t *testing.T) {
	st := NewStation(netip.MustParseAddr("10.0.0.9"))
	st.Network = "NVT"
	st.AssocDelay = time.Millisecond
	defer st.Close()
	_ = st.Init()
	evs := make(chan types.NetEvent, 4)
	_, _ = st.Notify(func(ev types.NetEvent) { evs <- ev })
	_ = st.Configure(types.StationConfig{SSID: "other"})
	_ = st.Start()
	expectKind(t, evs, types.NetStarted)
	_ = st.Connect()
	if ev := expectKind(t, evs, types.NetDisconnected); ev.Reason != "no_ap_found" {
		t.Fatalf("reason = %q", ev.Reason)
	}
}

func expectKind(t *testing.T, ch <-chan types.NetEvent, k types.NetEventKind) types.NetEvent {
	t.Helper()
	select {
	case ev := <-ch:
		if ev.Kind != k {
			t.Fatalf("event = %v, want %v", ev.Kind, k)
		}
		return ev
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for %v", k)
	}
	return types.NetEvent{}
}
