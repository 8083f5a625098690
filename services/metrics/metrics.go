// Package metrics exposes link and pipeline statistics to Prometheus. It is
// wired by the host runner only.
package metrics

import (
	"fmt"

	"satpoint-go/types"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector implements wifi.Observer and pointing.Observer.
type Collector struct {
	gatherer prometheus.Gatherer

	ConnectAttempts prometheus.Counter
	Connected       prometheus.Gauge
	Iterations      prometheus.Counter
	ReadFailures    *prometheus.CounterVec
	Elevation       prometheus.Gauge
	Azimuth         prometheus.Gauge
}

// NewCollector registers the metrics against reg (default registerer if nil).
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	c := &Collector{
		gatherer: gatherer,
		ConnectAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "satpoint_wifi_connect_attempts_total",
			Help: "Association requests issued to the network stack.",
		}),
		Connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "satpoint_wifi_connected",
			Help: "1 while the station holds an address.",
		}),
		Iterations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "satpoint_pointing_iterations_total",
			Help: "Completed sensor pipeline iterations.",
		}),
		ReadFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "satpoint_pointing_read_failures_total",
			Help: "Failed sensor reads by stage.",
		}, []string{"stage"}),
		Elevation: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "satpoint_pointing_elevation_degrees",
			Help: "Most recent boresight elevation.",
		}),
		Azimuth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "satpoint_pointing_azimuth_degrees",
			Help: "Most recent boresight azimuth from magnetic north.",
		}),
	}
	for name, col := range map[string]prometheus.Collector{
		"satpoint_wifi_connect_attempts_total":  c.ConnectAttempts,
		"satpoint_wifi_connected":               c.Connected,
		"satpoint_pointing_iterations_total":    c.Iterations,
		"satpoint_pointing_read_failures_total": c.ReadFailures,
		"satpoint_pointing_elevation_degrees":   c.Elevation,
		"satpoint_pointing_azimuth_degrees":     c.Azimuth,
	} {
		if err := reg.Register(col); err != nil {
			return nil, fmt.Errorf("register %s: %w", name, err)
		}
	}
	return c, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *Collector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

func (c *Collector) ConnectAttempt() {
	if c == nil {
		return
	}
	c.ConnectAttempts.Inc()
}

func (c *Collector) LinkUp(up bool) {
	if c == nil {
		return
	}
	if up {
		c.Connected.Set(1)
	} else {
		c.Connected.Set(0)
	}
}

func (c *Collector) Iteration(r types.Reading) {
	if c == nil {
		return
	}
	c.Iterations.Inc()
	c.Elevation.Set(r.Pointing.Elevation)
	c.Azimuth.Set(r.Pointing.Azimuth)
}

func (c *Collector) ReadFailed(stage string) {
	if c == nil {
		return
	}
	c.ReadFailures.WithLabelValues(stage).Inc()
}
