package net

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts replication and relay traffic.
type Metrics struct {
	BroadcastsSent    prometheus.Counter
	BroadcastsDropped *prometheus.CounterVec
	RemoteUpdates     prometheus.Counter
	RelayFrames       *prometheus.CounterVec
	RelayClients      prometheus.Gauge
}

// NewMetrics creates the collectors and registers them on reg. A nil reg
// leaves them unregistered, which is what tests want.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		BroadcastsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "teamboard",
			Subsystem: "channel",
			Name:      "broadcasts_sent_total",
			Help:      "Whole-board snapshots handed to the transport.",
		}),
		BroadcastsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "teamboard",
			Subsystem: "channel",
			Name:      "broadcasts_dropped_total",
			Help:      "Snapshots not sent, by reason.",
		}, []string{"reason"}),
		RemoteUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "teamboard",
			Subsystem: "channel",
			Name:      "remote_updates_total",
			Help:      "Remote snapshots delivered to observers.",
		}),
		RelayFrames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "teamboard",
			Subsystem: "relay",
			Name:      "frames_total",
			Help:      "Frames handled by the relay, by op.",
		}, []string{"op"}),
		RelayClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "teamboard",
			Subsystem: "relay",
			Name:      "clients",
			Help:      "Connected relay clients.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.BroadcastsSent, m.BroadcastsDropped, m.RemoteUpdates, m.RelayFrames, m.RelayClients)
	}
	return m
}
