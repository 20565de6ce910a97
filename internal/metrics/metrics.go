package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nao1215/wikiexport/internal/model"
)

const namespace = "wikiexport"

// fetchBuckets cover a polite crawl: fast local wikis up to the request timeout.
var fetchBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25}

// Metrics holds the crawl collectors.
type Metrics struct {
	registry *prometheus.Registry

	PagesExported prometheus.Counter
	URLsSkipped   *prometheus.CounterVec
	FetchDuration prometheus.Histogram
	FrontierSize  prometheus.Gauge
}

// New creates the collectors on a fresh registry. Go runtime and process
// collectors are registered as well.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{
		registry: reg,
		PagesExported: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_exported_total",
			Help:      "Number of pages written to the export.",
		}),
		URLsSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "urls_skipped_total",
			Help:      "Number of dequeued URLs that were not exported, by outcome.",
		}, []string{"outcome"}),
		FetchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of page fetches.",
			Buckets:   fetchBuckets,
		}),
		FrontierSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "frontier_size",
			Help:      "Number of URLs waiting in the frontier.",
		}),
	}

	// Expose every skip outcome at zero so dashboards see the full series set.
	for _, o := range model.AllOutcomes {
		if o != model.OutcomeExported {
			m.URLsSkipped.WithLabelValues(string(o))
		}
	}
	return m
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveOutcome counts the final outcome of a dequeued URL.
func (m *Metrics) ObserveOutcome(o model.Outcome) {
	if m == nil {
		return
	}
	if o == model.OutcomeExported {
		m.PagesExported.Inc()
		return
	}
	m.URLsSkipped.WithLabelValues(string(o)).Inc()
}

// ObserveFetch records the duration of one fetch.
func (m *Metrics) ObserveFetch(d time.Duration) {
	if m == nil {
		return
	}
	m.FetchDuration.Observe(d.Seconds())
}

// SetFrontierSize records the number of pending URLs.
func (m *Metrics) SetFrontierSize(n int) {
	if m == nil {
		return
	}
	m.FrontierSize.Set(float64(n))
}

// Handler returns the /metrics handler for the private registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Serve serves /metrics on addr until ctx is done. The listener is bound
// before Serve returns so address errors are reported to the caller; the
// returned channel yields the server's terminal error, if any.
func (m *Metrics) Serve(ctx context.Context, addr string) (net.Addr, <-chan error, error) {
	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx) //nolint:contextcheck // parent is already done
	}()

	return ln.Addr(), errCh, nil
}
