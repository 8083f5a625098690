// Command satpoint-host runs the firmware on a workstation against simulated
// sensors and a simulated access point, optionally with a real serial GPS.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"satpoint-go/platform"
	"satpoint-go/platform/sim"
	"satpoint-go/services/boot"
	"satpoint-go/services/config"
	"satpoint-go/services/metrics"
	"satpoint-go/services/pointing"
	"satpoint-go/x/logx"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

type flags struct {
	configPath  string
	device      string
	sensor      bool
	metricsAddr string
	gpsDev      string
	dropEvery   time.Duration
	debug       bool
}

func main() {
	var f flags

	root := &cobra.Command{
		Use:          "satpoint-host",
		Short:        "Run the satellite pointing firmware on a host",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&f.configPath, "config", "c", "", "YAML file overlaid on the embedded device config")
	root.PersistentFlags().StringVar(&f.device, "device", "sim", "embedded device config to start from")

	run := &cobra.Command{
		Use:   "run",
		Short: "Boot the firmware and run until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFirmware(cmd.Context(), f, cmd.Flags().Changed("sensor"))
		},
	}
	run.Flags().BoolVar(&f.sensor, "sensor", false, "enable the sensor pipeline")
	run.Flags().StringVar(&f.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9100)")
	run.Flags().StringVar(&f.gpsDev, "gps-dev", "", "serial device of a GPS receiver (e.g. /dev/ttyUSB0)")
	run.Flags().DurationVar(&f.dropEvery, "drop-every", 0, "drop the simulated link at this interval")
	run.Flags().BoolVar(&f.debug, "debug", false, "log at debug level")

	show := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadFile(f.device, f.configPath)
			if err != nil {
				return err
			}
			out, err := config.Marshal(cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}

	root.AddCommand(run, show)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func runFirmware(ctx context.Context, f flags, sensorSet bool) error {
	lvl := slog.LevelInfo
	if f.debug {
		lvl = slog.LevelDebug
	}
	logger, sink := logx.New(os.Stderr, logx.Options{Level: lvl})
	defer sink.Close()
	log := logx.Tag(logger, logx.TagMain)

	cfg, err := config.LoadFile(f.device, f.configPath)
	if err != nil {
		return err
	}
	if sensorSet {
		cfg.Sensor.Enabled = f.sensor
	}
	if f.gpsDev != "" {
		cfg.GPS.Enabled = true
	}

	board, err := platform.Open(cfg, platform.HostOptions{GPSDevice: f.gpsDev, Logger: logger})
	if err != nil {
		return fmt.Errorf("open board: %w", err)
	}
	defer board.Close()

	deps := boot.Deps{
		Config:  cfg,
		Station: board.Station,
		Store:   board.Store,
		Logger:  logger,
	}
	if board.I2C != nil {
		deps.Sensors = pointing.NewBoard(board.I2C, logger)
	}
	if board.GPS != nil {
		deps.GPS = board.GPS
	}

	var srv *http.Server
	if f.metricsAddr != "" {
		reg := prometheus.NewRegistry()
		col, err := metrics.NewCollector(reg)
		if err != nil {
			return err
		}
		deps.WiFiObserver = col
		deps.PointingObserver = col
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(col.Gatherer(), promhttp.HandlerOpts{}))
		srv = &http.Server{Addr: f.metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server", "err", err)
			}
		}()
		log.Info("metrics listening", "addr", f.metricsAddr)
	}

	sys, err := boot.Start(ctx, deps)
	if err != nil {
		return err
	}
	log.Info("firmware running", "device", cfg.Device, "sensor", cfg.Sensor.Enabled, "gps", cfg.GPS.Enabled)

	if st, ok := board.Station.(*sim.Station); ok && f.dropEvery > 0 {
		go dropLoop(ctx, st, f.dropEvery)
	}

	<-ctx.Done()
	log.Info("shutting down")
	sys.Stop()
	err = sys.Wait()
	if srv != nil {
		sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = srv.Shutdown(sctx)
		cancel()
	}
	return err
}

func dropLoop(ctx context.Context, st *sim.Station, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			st.Drop("simulated")
		}
	}
}

