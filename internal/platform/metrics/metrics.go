// Package metrics provides observability for the simulation server.
package metrics

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Collector gathers performance counters.
type Collector struct {
	// Tick metrics
	TickCount      int64
	TickLatencySum int64 // nanoseconds
	TickLatencyMax int64
	LastTickTime   time.Time

	// Event persistence metrics
	EventsWritten    int64
	EventWriteErrors int64

	// WebSocket metrics
	WSConnectionsActive int64
	WSMessagesIn        int64
	WSMessagesOut       int64

	// Decision service metrics
	DecisionRequests    int64
	DecisionRateLimited int64
	DecisionErrors      int64
	DecisionLatencySum  int64

	// Session metrics
	SessionsStarted int64
	SessionsEnded   int64

	StartTime time.Time
	mu        sync.RWMutex
}

// Global collector instance
var collector = &Collector{
	StartTime: time.Now(),
}

// Get returns the global collector.
func Get() *Collector {
	return collector
}

// RecordTick records a tick cycle completion.
func (c *Collector) RecordTick(latency time.Duration) {
	atomic.AddInt64(&c.TickCount, 1)
	atomic.AddInt64(&c.TickLatencySum, int64(latency))
	if int64(latency) > atomic.LoadInt64(&c.TickLatencyMax) {
		atomic.StoreInt64(&c.TickLatencyMax, int64(latency))
	}
	c.mu.Lock()
	c.LastTickTime = time.Now()
	c.mu.Unlock()
}

// RecordEventWrite records an event insert and whether it failed.
func (c *Collector) RecordEventWrite(err error) {
	atomic.AddInt64(&c.EventsWritten, 1)
	if err != nil {
		atomic.AddInt64(&c.EventWriteErrors, 1)
	}
}

// RecordWSConnection records connection count changes.
func (c *Collector) RecordWSConnection(delta int64) {
	atomic.AddInt64(&c.WSConnectionsActive, delta)
}

// RecordWSMessage records a websocket message in either direction.
func (c *Collector) RecordWSMessage(incoming bool) {
	if incoming {
		atomic.AddInt64(&c.WSMessagesIn, 1)
	} else {
		atomic.AddInt64(&c.WSMessagesOut, 1)
	}
}

// RecordDecisionCall records one decision-service round trip.
func (c *Collector) RecordDecisionCall(latency time.Duration, rateLimited bool, err error) {
	atomic.AddInt64(&c.DecisionRequests, 1)
	atomic.AddInt64(&c.DecisionLatencySum, int64(latency))
	if rateLimited {
		atomic.AddInt64(&c.DecisionRateLimited, 1)
	} else if err != nil {
		atomic.AddInt64(&c.DecisionErrors, 1)
	}
}

// RecordSessionStart records an INIT_SIM.
func (c *Collector) RecordSessionStart() {
	atomic.AddInt64(&c.SessionsStarted, 1)
}

// RecordSessionEnd records a terminal tick.
func (c *Collector) RecordSessionEnd() {
	atomic.AddInt64(&c.SessionsEnded, 1)
}

// Snapshot returns current metrics as a map.
func (c *Collector) Snapshot() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	tickCount := atomic.LoadInt64(&c.TickCount)
	decisionReqs := atomic.LoadInt64(&c.DecisionRequests)

	var tickAvg, decisionAvg float64
	if tickCount > 0 {
		tickAvg = float64(atomic.LoadInt64(&c.TickLatencySum)) / float64(tickCount) / 1e6 // ms
	}
	if decisionReqs > 0 {
		decisionAvg = float64(atomic.LoadInt64(&c.DecisionLatencySum)) / float64(decisionReqs) / 1e9 // seconds
	}

	return map[string]interface{}{
		"uptime_seconds": time.Since(c.StartTime).Seconds(),

		"tick": map[string]interface{}{
			"count":          tickCount,
			"avg_latency_ms": tickAvg,
			"max_latency_ms": float64(atomic.LoadInt64(&c.TickLatencyMax)) / 1e6,
			"last_tick":      c.LastTickTime.Format(time.RFC3339),
		},

		"events": map[string]interface{}{
			"written": atomic.LoadInt64(&c.EventsWritten),
			"errors":  atomic.LoadInt64(&c.EventWriteErrors),
		},

		"websocket": map[string]interface{}{
			"active_connections": atomic.LoadInt64(&c.WSConnectionsActive),
			"messages_in":        atomic.LoadInt64(&c.WSMessagesIn),
			"messages_out":       atomic.LoadInt64(&c.WSMessagesOut),
		},

		"decision": map[string]interface{}{
			"requests":        decisionReqs,
			"rate_limited":    atomic.LoadInt64(&c.DecisionRateLimited),
			"errors":          atomic.LoadInt64(&c.DecisionErrors),
			"avg_latency_sec": decisionAvg,
		},

		"sessions": map[string]interface{}{
			"started": atomic.LoadInt64(&c.SessionsStarted),
			"ended":   atomic.LoadInt64(&c.SessionsEnded),
		},
	}
}

// Handler returns an HTTP handler for the JSON /metrics endpoint.
func Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")
		json.NewEncoder(w).Encode(collector.Snapshot())
	}
}

// PrometheusHandler returns metrics in Prometheus exposition format.
func PrometheusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		c := collector

		fmt.Fprintf(w, "# HELP townsim_tick_count Total tick cycles\n")
		fmt.Fprintf(w, "# TYPE townsim_tick_count counter\n")
		fmt.Fprintf(w, "townsim_tick_count %d\n\n", atomic.LoadInt64(&c.TickCount))

		fmt.Fprintf(w, "# HELP townsim_tick_latency_max_ms Maximum tick latency\n")
		fmt.Fprintf(w, "# TYPE townsim_tick_latency_max_ms gauge\n")
		fmt.Fprintf(w, "townsim_tick_latency_max_ms %.2f\n\n", float64(atomic.LoadInt64(&c.TickLatencyMax))/1e6)

		fmt.Fprintf(w, "# HELP townsim_events_written Total timeline events written\n")
		fmt.Fprintf(w, "# TYPE townsim_events_written counter\n")
		fmt.Fprintf(w, "townsim_events_written %d\n\n", atomic.LoadInt64(&c.EventsWritten))

		fmt.Fprintf(w, "# HELP townsim_event_write_errors Total event write errors\n")
		fmt.Fprintf(w, "# TYPE townsim_event_write_errors counter\n")
		fmt.Fprintf(w, "townsim_event_write_errors %d\n\n", atomic.LoadInt64(&c.EventWriteErrors))

		fmt.Fprintf(w, "# HELP townsim_ws_connections Active websocket connections\n")
		fmt.Fprintf(w, "# TYPE townsim_ws_connections gauge\n")
		fmt.Fprintf(w, "townsim_ws_connections %d\n\n", atomic.LoadInt64(&c.WSConnectionsActive))

		fmt.Fprintf(w, "# HELP townsim_ws_messages_total Total websocket messages\n")
		fmt.Fprintf(w, "# TYPE townsim_ws_messages_total counter\n")
		fmt.Fprintf(w, "townsim_ws_messages_total{direction=\"in\"} %d\n", atomic.LoadInt64(&c.WSMessagesIn))
		fmt.Fprintf(w, "townsim_ws_messages_total{direction=\"out\"} %d\n\n", atomic.LoadInt64(&c.WSMessagesOut))

		fmt.Fprintf(w, "# HELP townsim_decision_requests Total decision service requests\n")
		fmt.Fprintf(w, "# TYPE townsim_decision_requests counter\n")
		fmt.Fprintf(w, "townsim_decision_requests %d\n\n", atomic.LoadInt64(&c.DecisionRequests))

		fmt.Fprintf(w, "# HELP townsim_decision_rate_limited Total rate-limited decision requests\n")
		fmt.Fprintf(w, "# TYPE townsim_decision_rate_limited counter\n")
		fmt.Fprintf(w, "townsim_decision_rate_limited %d\n\n", atomic.LoadInt64(&c.DecisionRateLimited))

		fmt.Fprintf(w, "# HELP townsim_sessions_started Total sessions started\n")
		fmt.Fprintf(w, "# TYPE townsim_sessions_started counter\n")
		fmt.Fprintf(w, "townsim_sessions_started %d\n", atomic.LoadInt64(&c.SessionsStarted))
	}
}
