package errcode

import (
	"errors"
	"fmt"
	"testing"
)

func TestOf(t *testing.T) {
	cause := errors.New("nvs: no free pages")
	cases := []struct {
		name string
		err  error
		want Code
	}{
		{"nil", nil, OK},
		{"bare code", BusInUse, BusInUse},
		{"wrapped E", Wrap(BootFatal, "nvs.Open", cause), BootFatal},
		{"fmt wrapped E", fmt.Errorf("boot: %w", Wrap(BusInitFailed, "i2c", cause)), BusInitFailed},
		{"fmt wrapped code", fmt.Errorf("read: %w", NotReady), NotReady},
		{"plain", cause, Error},
	}
	for _, tc := range cases {
		if got := Of(tc.err); got != tc.want {
			t.Errorf("%s: Of = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestEUnwrapAndMessage(t *testing.T) {
	cause := errors.New("register failed")
	err := &E{C: BootFatal, Op: "wifi.Initialize", Msg: "event handler", Err: cause}
	if !errors.Is(err, cause) {
		t.Fatal("E does not unwrap to its cause")
	}
	want := "wifi.Initialize: boot_fatal: event handler: register failed"
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
	if Wrap(BootFatal, "x", nil) != nil {
		t.Fatal("Wrap(nil) must be nil")
	}
	if !Is(err, BootFatal) || Is(err, NetworkTransient) {
		t.Fatal("Is mismatch")
	}
}

func TestOfPrefersOutermost(t *testing.T) {
	err := Wrap(BootFatal, "wifi.Initialize", NotReady)
	if got := Of(err); got != BootFatal {
		t.Fatalf("Of = %q, want boot_fatal", got)
	}
}
