package metrics

type Counter interface {
	Inc()
	Add(float64)
}

// Metrics groups the counters touched by the session and the downloaders.
type Metrics struct {
	Requests        Counter
	RequestTimeouts Counter
	BarsReceived    Counter
	MalformedBars   Counter
	EmptyResults    Counter
	FilesWritten    Counter
}

type noopCounter struct{}

func (noopCounter) Inc()        {}
func (noopCounter) Add(float64) {}

func NewNoop() *Metrics {
	n := noopCounter{}
	return &Metrics{
		Requests:        n,
		RequestTimeouts: n,
		BarsReceived:    n,
		MalformedBars:   n,
		EmptyResults:    n,
		FilesWritten:    n,
	}
}

// OrNoop returns m, or a noop set when m is nil.
func OrNoop(m *Metrics) *Metrics {
	if m == nil {
		return NewNoop()
	}
	return m
}
