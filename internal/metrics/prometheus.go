package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const promNamespace = "ib_history"

type Prometheus struct {
	Metrics *Metrics

	registry        *prometheus.Registry
	requests        prometheus.Counter
	requestTimeouts prometheus.Counter
	barsReceived    prometheus.Counter
	malformedBars   prometheus.Counter
	emptyResults    prometheus.Counter
	filesWritten    prometheus.Counter
}

func newCounter(name, help string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      name,
		Help:      help,
	})
}

func NewPrometheus() *Prometheus {
	registry := prometheus.NewRegistry()
	requests := newCounter("historical_requests_total", "Total number of historical bar requests issued.")
	requestTimeouts := newCounter("historical_request_timeouts_total", "Total number of historical bar requests that timed out.")
	barsReceived := newCounter("bars_received_total", "Total number of bars accepted from the provider.")
	malformedBars := newCounter("malformed_bars_total", "Total number of bars dropped for an unparsable timestamp.")
	emptyResults := newCounter("empty_results_total", "Total number of requests that returned no bars.")
	filesWritten := newCounter("files_written_total", "Total number of partition files written.")

	registry.MustRegister(requests, requestTimeouts, barsReceived, malformedBars, emptyResults, filesWritten)

	m := &Metrics{
		Requests:        requests,
		RequestTimeouts: requestTimeouts,
		BarsReceived:    barsReceived,
		MalformedBars:   malformedBars,
		EmptyResults:    emptyResults,
		FilesWritten:    filesWritten,
	}

	return &Prometheus{
		Metrics:         m,
		registry:        registry,
		requests:        requests,
		requestTimeouts: requestTimeouts,
		barsReceived:    barsReceived,
		malformedBars:   malformedBars,
		emptyResults:    emptyResults,
		filesWritten:    filesWritten,
	}
}

func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
