package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Extraction outcomes.
const (
	ExtractionOK         = "ok"
	ExtractionFailed     = "failed"
	ExtractionLowContent = "low_content"
)

var (
	MissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genseo_missions_total",
			Help: "Total number of missions run to completion",
		},
		[]string{"analyzed"},
	)

	MissionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "genseo_mission_duration_seconds",
			Help:    "Wall-clock duration of missions in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)

	ProviderCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genseo_provider_calls_total",
			Help: "Research provider calls by provider and result",
		},
		[]string{"provider", "result"},
	)

	ProviderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "genseo_provider_duration_seconds",
			Help:    "Duration of research provider calls in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"provider"},
	)

	ExtractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genseo_extractions_total",
			Help: "Competitor page extractions by outcome",
		},
		[]string{"result"},
	)

	LLMCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genseo_llm_calls_total",
			Help: "LLM stage invocations by stage and result",
		},
		[]string{"stage", "result"},
	)

	LLMDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "genseo_llm_duration_seconds",
			Help:    "Duration of LLM stages in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"stage"},
	)

	FetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genseo_fetches_total",
			Help: "Direct page fetches by status and detected bot wall",
		},
		[]string{"status", "bot_wall"},
	)

	FetchBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "genseo_fetch_bytes_total",
			Help: "Total bytes downloaded by direct page fetches",
		},
	)

	ProxyFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genseo_proxy_failures_total",
			Help: "Total number of proxy failures during direct fetches",
		},
		[]string{"proxy_url"},
	)

	EventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "genseo_events_dropped_total",
			Help: "Progress events dropped because the consumer went away",
		},
	)
)

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordMission counts a finished mission.
func RecordMission(analyzed bool, d time.Duration) {
	MissionsTotal.WithLabelValues(strconv.FormatBool(analyzed)).Inc()
	MissionDuration.Observe(d.Seconds())
}

// RecordProvider counts one research provider call.
func RecordProvider(provider string, d time.Duration, err error) {
	ProviderCallsTotal.WithLabelValues(provider, result(err)).Inc()
	ProviderDuration.WithLabelValues(provider).Observe(d.Seconds())
}

// RecordExtraction counts one extraction outcome.
func RecordExtraction(outcome string) {
	ExtractionsTotal.WithLabelValues(outcome).Inc()
}

// RecordLLM counts one LLM stage call.
func RecordLLM(stage string, d time.Duration, err error) {
	LLMCallsTotal.WithLabelValues(stage, result(err)).Inc()
	LLMDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordFetch counts one direct page fetch. status 0 means the request never
// produced a response.
func RecordFetch(status int, botWall string, bytes int) {
	statusStr := strconv.Itoa(status)
	if status == 0 {
		statusStr = "error"
	}
	FetchesTotal.WithLabelValues(statusStr, botWall).Inc()
	FetchBytesTotal.Add(float64(bytes))
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Server encapsulates an HTTP server for Prometheus metrics.
type Server struct {
	srv *http.Server
}

// Start begins listening on the specified port and exposes /metrics.
func Start(port int, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err, "port", port)
		}
	}()

	return &Server{srv: srv}
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	if s == nil || s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
