// Package boot brings the firmware up: configuration, the network link and
// the long-running tasks, launched in priority order.
package boot

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"satpoint-go/bus"
	"satpoint-go/errcode"
	"satpoint-go/services/config"
	"satpoint-go/services/gps"
	"satpoint-go/services/heartbeat"
	"satpoint-go/services/nvs"
	"satpoint-go/services/pointing"
	"satpoint-go/services/wifi"
	"satpoint-go/types"
	"satpoint-go/x/evgroup"
	"satpoint-go/x/logx"
)

// Task priorities and stack budget. Go schedules goroutines without
// priorities; they order the launch and document the firmware layout.
const (
	PrioWiFi      = 10
	PrioHeartbeat = 2
	PrioSensor    = 2
	PrioGPS       = 2

	StackBytes = 4096
)

// Task names.
const (
	TaskWiFi      = "wifi"
	TaskHeartbeat = "heartbeat"
	TaskSensor    = "sensor"
	TaskGPS       = "gps"
)

type Task struct {
	Name       string
	Priority   int
	StackBytes int
	Run        func(ctx context.Context) error
}

// Deps is everything the firmware needs from the board and the host.
type Deps struct {
	Config  types.Config
	Station wifi.Station
	Store   nvs.Store
	// Sensors and GPS are optional hardware.
	Sensors pointing.Sensors
	GPS     gps.Port
	// Bus is created when nil.
	Bus *bus.Bus
	// Output receives readings in addition to the bus.
	Output           pointing.Output
	WiFiObserver     wifi.Observer
	PointingObserver pointing.Observer
	Logger           *slog.Logger
}

type System struct {
	Bus    *bus.Bus
	Signal *evgroup.Group
	WiFi   *wifi.Manager

	log    *slog.Logger
	tasks  []Task
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.Mutex
	first error
}

// Start validates the configuration, brings the network interface up and
// launches the tasks. Any failure before the launch returns a single
// boot_fatal error and starts nothing.
func Start(ctx context.Context, d Deps) (*System, error) {
	l := logx.Tag(d.Logger, logx.TagBoot)
	fail := func(op string, err error) (*System, error) {
		if !errcode.Is(err, errcode.BootFatal) {
			err = errcode.Wrap(errcode.BootFatal, op, err)
		}
		l.Error("boot failed", "err", err)
		return nil, err
	}

	cfg := d.Config
	if err := config.Validate(cfg); err != nil {
		return fail("boot.config", err)
	}
	if d.Station == nil {
		return fail("boot.station", errcode.Unsupported)
	}

	b := d.Bus
	if b == nil {
		b = bus.NewBus(16)
	}
	config.Publish(b.NewConnection("config"), cfg)

	sig := evgroup.New()
	mgr := wifi.New(wifi.Options{
		Station:  d.Station,
		Store:    d.Store,
		Signal:   sig,
		Conn:     b.NewConnection("wifi"),
		Policy:   wifi.PolicyFor(cfg.WiFi.ReconnectLimit),
		Observer: d.WiFiObserver,
		Logger:   d.Logger,
	})
	if err := mgr.Initialize(ctx); err != nil {
		return fail("boot.wifi", err)
	}
	creds := types.StationConfig{SSID: cfg.WiFi.SSID, Password: cfg.WiFi.Password, MinAuth: cfg.WiFi.MinAuth}
	if err := mgr.Up(creds); err != nil {
		mgr.Close()
		return fail("boot.wifi", err)
	}

	s := &System{Bus: b, Signal: sig, WiFi: mgr, log: l}
	s.tasks = s.assemble(cfg, d)

	ctx, s.cancel = context.WithCancel(ctx)
	for _, t := range s.tasks {
		s.launch(ctx, t)
	}
	return s, nil
}

func (s *System) assemble(cfg types.Config, d Deps) []Task {
	tasks := []Task{
		{Name: TaskWiFi, Priority: PrioWiFi, Run: s.WiFi.Run},
	}

	hb := heartbeat.New(d.Logger)
	hbConn := s.Bus.NewConnection("heartbeat")
	tasks = append(tasks, Task{Name: TaskHeartbeat, Priority: PrioHeartbeat, Run: func(ctx context.Context) error {
		return hb.Run(ctx, hbConn)
	}})

	switch {
	case !cfg.Sensor.Enabled:
	case d.Sensors == nil:
		s.log.Warn("sensor pipeline enabled but no sensors on this board")
	default:
		out := pointing.Outputs{pointing.BusOutput{Conn: s.Bus.NewConnection("pointing")}}
		if d.Output != nil {
			out = append(out, d.Output)
		}
		p := pointing.New(d.Sensors, pointing.Options{
			Period:     cfg.Sensor.Period(),
			ReadPolicy: cfg.Sensor.OnReadError,
			Output:     out,
			Observer:   d.PointingObserver,
			Logger:     d.Logger,
		})
		tasks = append(tasks, Task{Name: TaskSensor, Priority: PrioSensor, Run: p.Run})
	}

	switch {
	case !cfg.GPS.Enabled:
	case d.GPS == nil:
		s.log.Warn("gps enabled but no port on this board")
	default:
		g := gps.New(d.GPS, s.Bus.NewConnection("gps"), d.Logger)
		tasks = append(tasks, Task{Name: TaskGPS, Priority: PrioGPS, Run: g.Run})
	}

	for i := range tasks {
		tasks[i].StackBytes = StackBytes
	}
	sort.SliceStable(tasks, func(i, j int) bool { return tasks[i].Priority > tasks[j].Priority })
	return tasks
}

func (s *System) launch(ctx context.Context, t Task) {
	s.wg.Add(1)
	s.log.Info("task start", "task", t.Name, "prio", t.Priority, "stack", t.StackBytes)
	go func() {
		defer s.wg.Done()
		err := t.Run(ctx)
		if err != nil {
			s.log.Error("task exited", "task", t.Name, "err", err)
			s.mu.Lock()
			if s.first == nil {
				s.first = err
			}
			s.mu.Unlock()
			return
		}
		s.log.Info("task exited", "task", t.Name)
	}()
}

// Tasks lists the launched tasks in launch order.
func (s *System) Tasks() []Task { return append([]Task(nil), s.tasks...) }

// Stop cancels every task. Wait joins them.
func (s *System) Stop() {
	s.cancel()
	s.WiFi.Stop()
}

// Wait blocks until all tasks returned and reports the first task error.
func (s *System) Wait() error {
	s.wg.Wait()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.first
}
