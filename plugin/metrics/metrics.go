// Package metrics exposes plugin registry state as Prometheus metrics.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/reglet-dev/reglet-plugin-registry/plugin"
	"github.com/reglet-dev/reglet-plugin-registry/plugin/entities"
)

// Registry is the part of plugin.Manager the collectors read.
type Registry interface {
	ListAll() []*entities.Descriptor
	Libraries() []entities.Library
	AddListener(l plugin.Listener)
}

// Metrics counts registry events and gauges the installed plugins.
type Metrics struct {
	EventsTotal *prometheus.CounterVec
	Installed   prometheus.GaugeFunc
	Enabled     prometheus.GaugeFunc
	Libraries   prometheus.GaugeFunc
}

// Register creates the collectors, registers them with reg and subscribes
// to the registry's events.
func Register(reg prometheus.Registerer, r Registry) (*Metrics, error) {
	m := &Metrics{
		EventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reglet_plugin_events_total",
				Help: "Total number of plugin registry events",
			},
			[]string{"type"},
		),
		Installed: prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "reglet_plugins_installed",
				Help: "Number of installed plugins",
			},
			func() float64 { return float64(len(r.ListAll())) },
		),
		Enabled: prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "reglet_plugins_enabled",
				Help: "Number of enabled plugins",
			},
			func() float64 {
				n := 0
				for _, d := range r.ListAll() {
					if d.IsEnabled() {
						n++
					}
				}
				return float64(n)
			},
		),
		Libraries: prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "reglet_plugin_libraries",
				Help: "Number of tracked plugin sources",
			},
			func() float64 { return float64(len(r.Libraries())) },
		),
	}

	for _, c := range []prometheus.Collector{m.EventsTotal, m.Installed, m.Enabled, m.Libraries} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register plugin metrics: %w", err)
		}
	}
	r.AddListener(m)
	return m, nil
}

// OnPluginEvent implements plugin.Listener.
func (m *Metrics) OnPluginEvent(e plugin.Event) error {
	m.EventsTotal.WithLabelValues(e.Type.String()).Inc()
	return nil
}
