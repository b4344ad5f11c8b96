package api

import (
	"net/http"
	"net/http/pprof"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Metrics with bounded cardinality: no per-game or per-client labels.
var (
	commandsApplied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scoreboard_commands_applied_total",
		Help: "Commands applied through the engine",
	})

	commandsDuplicate = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scoreboard_commands_duplicate_total",
		Help: "Command envelopes acked without re-application",
	})

	gamesActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "scoreboard_games_active",
		Help: "Games held in the in-memory registry",
	})

	snapshotsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scoreboard_snapshots_sent_total",
		Help: "Game and lobby snapshots written to sockets",
	})

	wsConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "scoreboard_websocket_connections_active",
		Help: "Currently active WebSocket connections",
	})

	connectionRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scoreboard_connection_rejected_total",
		Help: "Connections rejected by rate limiter or origin check",
	}, []string{"reason"}) // bounded: "rate_limit", "origin", "ws_total_limit", "ws_ip_limit"
)

// RecordCommandApplied increments the applied-command counter.
func RecordCommandApplied() { commandsApplied.Inc() }

// RecordCommandDuplicate increments the duplicate-envelope counter.
func RecordCommandDuplicate() { commandsDuplicate.Inc() }

// UpdateGamesActive updates the registry gauge.
func UpdateGamesActive(count int) { gamesActive.Set(float64(count)) }

// RecordSnapshotSent increments the snapshot counter.
func RecordSnapshotSent() { snapshotsSent.Inc() }

// UpdateWSConnections updates the WebSocket connection gauge.
func UpdateWSConnections(count int) { wsConnectionsActive.Set(float64(count)) }

// RecordConnectionRejected counts a rejected connection by reason.
func RecordConnectionRejected(reason string) {
	connectionRejected.WithLabelValues(reason).Inc()
}

// ObservabilityConfig configures the internal debug server.
type ObservabilityConfig struct {
	Enabled    bool
	ListenAddr string // keep on localhost; pprof must not face the internet
}

// DefaultObservabilityConfig returns safe defaults.
func DefaultObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		Enabled:    true,
		ListenAddr: "127.0.0.1:6060",
	}
}

// StartDebugServer starts the pprof + metrics server in the background.
func StartDebugServer(cfg ObservabilityConfig) {
	if !cfg.Enabled {
		log.Info().Msg("debug server disabled")
		return
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Msg("debug server starting")
		if err := http.ListenAndServe(cfg.ListenAddr, mux); err != nil {
			log.Warn().Err(err).Msg("debug server stopped")
		}
	}()
}
