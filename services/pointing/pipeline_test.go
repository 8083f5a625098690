package pointing

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"satpoint-go/bus"
	"satpoint-go/errcode"
	"satpoint-go/platform/sim"
	"satpoint-go/types"
	"satpoint-go/x/i2cx"
	"satpoint-go/x/logx"
)

type fakeSensors struct {
	initErr error
	agErr   func(n int) error // by read index, 1-based
	magErr  error

	mu     sync.Mutex
	reads  int
	closed bool
}

func (f *fakeSensors) Init() error { return f.initErr }

func (f *fakeSensors) ReadAccelGyro() (types.Vec3, types.Vec3, error) {
	f.mu.Lock()
	f.reads++
	n := f.reads
	f.mu.Unlock()
	if f.agErr != nil {
		if err := f.agErr(n); err != nil {
			return types.Vec3{}, types.Vec3{}, err
		}
	}
	return types.Vec3{Z: 16384}, types.Vec3{X: 3}, nil
}

func (f *fakeSensors) ReadMagnetometer() (types.Vec3, error) {
	f.mu.Lock()
	f.reads++
	f.mu.Unlock()
	if f.magErr != nil {
		return types.Vec3{}, f.magErr
	}
	return types.Vec3{X: 750, Z: 1299}, nil
}

func (f *fakeSensors) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeSensors) snapshot() (int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads, f.closed
}

// recordOutput keeps readings with their arrival time.
type recordOutput struct {
	mu  sync.Mutex
	got []types.Reading
	at  []time.Time
}

func (o *recordOutput) Emit(_ context.Context, r types.Reading) {
	o.mu.Lock()
	o.got = append(o.got, r)
	o.at = append(o.at, time.Now())
	o.mu.Unlock()
}

func (o *recordOutput) times() []time.Time {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]time.Time(nil), o.at...)
}

type countObserver struct {
	mu       sync.Mutex
	iters    int
	failures map[string]int
}

func (c *countObserver) Iteration(types.Reading) {
	c.mu.Lock()
	c.iters++
	c.mu.Unlock()
}

func (c *countObserver) ReadFailed(stage string) {
	c.mu.Lock()
	if c.failures == nil {
		c.failures = map[string]int{}
	}
	c.failures[stage]++
	c.mu.Unlock()
}

func TestDefaults(t *testing.T) {
	p := New(&fakeSensors{}, Options{})
	if p.Period() != time.Second {
		t.Fatalf("period = %v", p.Period())
	}
	if p.policy != types.ReadPolicySkip || p.out != Discard {
		t.Fatal("unexpected defaults")
	}
}

func TestInitFailureSingleErrorNoReads(t *testing.T) {
	rec := logx.NewRecorder()
	s := &fakeSensors{initErr: errors.New("i2c: nack")}
	p := New(s, Options{Period: 10 * time.Millisecond, Logger: rec.Logger()})

	err := p.Run(context.Background())
	if !errcode.Is(err, errcode.BusInitFailed) {
		t.Fatalf("err = %v, want bus_init_failed", err)
	}
	if n := rec.Count(slog.LevelError); n != 1 {
		t.Fatalf("error records = %d, want 1", n)
	}
	time.Sleep(30 * time.Millisecond)
	if reads, _ := s.snapshot(); reads != 0 {
		t.Fatalf("reads after init failure = %d", reads)
	}
}

func TestCadence(t *testing.T) {
	const period = 200 * time.Millisecond
	out := &recordOutput{}
	s := &fakeSensors{}
	p := New(s, Options{Period: period, Output: out})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	deadline := time.Now().Add(3 * time.Second)
	for len(out.times()) < 4 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}

	at := out.times()
	if len(at) < 4 {
		t.Fatalf("only %d readings", len(at))
	}
	for i := 1; i < 4; i++ {
		gap := at[i].Sub(at[i-1])
		if gap < period-50*time.Millisecond || gap > period+50*time.Millisecond {
			t.Fatalf("gap %d = %v, want %v ±50ms", i, gap, period)
		}
	}
	if _, closed := s.snapshot(); !closed {
		t.Fatal("sensors not closed on cancel")
	}
}

func TestReadingContent(t *testing.T) {
	rec := logx.NewRecorder()
	out := &recordOutput{}
	obs := &countObserver{}
	p := New(&fakeSensors{}, Options{Period: time.Hour, Output: out, Observer: obs, Logger: rec.Logger()})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()
	deadline := time.Now().Add(time.Second)
	for len(out.times()) < 1 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	cancel()
	<-done

	out.mu.Lock()
	r := out.got[0]
	out.mu.Unlock()
	if r.Pointing.Elevation != 0 || r.Pointing.Azimuth != 0 || r.Gyro.X != 3 {
		t.Fatalf("reading = %+v", r)
	}
	if len(rec.Filter(nil, "orientation")) != 1 || len(rec.Filter(nil, "pointing")) != 1 {
		t.Fatal("missing orientation/pointing records")
	}
	if tag := rec.Filter(nil, "pointing")[0].Tag(); tag != logx.TagCalc {
		t.Fatalf("tag = %q", tag)
	}
	if obs.iters != 1 {
		t.Fatalf("observer iterations = %d", obs.iters)
	}
}

func TestSkipPolicyContinues(t *testing.T) {
	rec := logx.NewRecorder()
	out := &recordOutput{}
	obs := &countObserver{}
	s := &fakeSensors{agErr: func(n int) error {
		if n == 1 {
			return errors.New("nack")
		}
		return nil
	}}
	p := New(s, Options{Period: 10 * time.Millisecond, Output: out, Observer: obs, Logger: rec.Logger()})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()
	deadline := time.Now().Add(time.Second)
	for len(out.times()) < 2 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(out.times()) < 2 {
		t.Fatal("pipeline did not continue after a failed read")
	}
	if rec.Count(slog.LevelWarn) != 1 || rec.Count(slog.LevelError) != 0 {
		t.Fatalf("warn=%d error=%d", rec.Count(slog.LevelWarn), rec.Count(slog.LevelError))
	}
	obs.mu.Lock()
	defer obs.mu.Unlock()
	if obs.failures[StageAccelGyro] != 1 {
		t.Fatalf("failures = %v", obs.failures)
	}
}

func TestTerminatePolicyStops(t *testing.T) {
	rec := logx.NewRecorder()
	s := &fakeSensors{magErr: errors.New("overflow")}
	p := New(s, Options{Period: 10 * time.Millisecond, ReadPolicy: types.ReadPolicyTerminate, Logger: rec.Logger()})

	done := make(chan error, 1)
	go func() { done <- p.Run(context.Background()) }()
	select {
	case err := <-done:
		if !errcode.Is(err, errcode.SampleReadFailed) {
			t.Fatalf("err = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop on read failure")
	}
	if reads, closed := s.snapshot(); reads != 2 || !closed {
		t.Fatalf("reads=%d closed=%v", reads, closed)
	}
}

func TestOutputs(t *testing.T) {
	b := bus.NewBus(4)
	conn := b.NewConnection("test")
	sub := conn.Subscribe(topicReading)
	rec := &recordOutput{}

	Outputs{Discard, BusOutput{Conn: conn}, rec}.Emit(context.Background(), types.Reading{TSms: 7})

	select {
	case m := <-sub.Channel():
		if r, ok := m.Payload.(types.Reading); !ok || r.TSms != 7 || m.Retained {
			t.Fatalf("message = %#v", m)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatal("no bus reading")
	}
	if len(rec.times()) != 1 {
		t.Fatal("fan-out skipped an output")
	}
	if _, ok := b.Retained(topicReading); ok {
		t.Fatal("reading must not be retained")
	}
}

func TestBoardOnSimulatedBus(t *testing.T) {
	hw := sim.NewI2C()
	hw.SetAttitude(types.Orientation{Pitch: 25, Yaw: 120}, 60)
	port := i2cx.NewPort("i2c0", hw)
	b := NewBoard(port, nil)

	out := &recordOutput{}
	p := New(b, Options{Period: time.Hour, Output: out})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	deadline := time.Now().Add(time.Second)
	for len(out.times()) < 1 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	if port.Owner() != busOwner {
		t.Fatalf("owner = %q", port.Owner())
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if port.Owner() != "" {
		t.Fatal("bus not released")
	}

	out.mu.Lock()
	r := out.got[0]
	out.mu.Unlock()
	if d := r.Pointing.Elevation - 25; d > 0.5 || d < -0.5 {
		t.Fatalf("elevation = %v", r.Pointing.Elevation)
	}
	if d := r.Pointing.Azimuth - 120; d > 0.5 || d < -0.5 {
		t.Fatalf("azimuth = %v", r.Pointing.Azimuth)
	}
}

func TestBoardInitFailures(t *testing.T) {
	hw := sim.NewI2C()
	hw.Remove(sim.AddrQMC)
	port := i2cx.NewPort("i2c0", hw)
	if err := NewBoard(port, nil).Init(); !errcode.Is(err, errcode.BusInitFailed) {
		t.Fatalf("err = %v", err)
	}
	if port.Owner() != "" {
		t.Fatal("bus held after failed init")
	}

	// Bus held by someone else.
	port = i2cx.NewPort("i2c0", sim.NewI2C())
	if _, err := port.Claim("gps"); err != nil {
		t.Fatal(err)
	}
	rec := logx.NewRecorder()
	err := New(NewBoard(port, rec.Logger()), Options{Logger: rec.Logger()}).Run(context.Background())
	if !errcode.Is(err, errcode.BusInitFailed) || rec.Count(slog.LevelError) != 1 {
		t.Fatalf("err=%v errors=%d", err, rec.Count(slog.LevelError))
	}
}
