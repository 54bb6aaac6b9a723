package syncengine

import "github.com/prometheus/client_golang/prometheus"

// Metric names.
const (
	UploadsTotalKey = "xjournal_sync_uploads_total"
	EntriesTotalKey = "xjournal_sync_entries_total"

	Fail = "fail"
	Ok   = "ok"
)

// Entry outcomes, used as the "outcome" label of EntriesTotalKey.
const (
	OutcomeSynced     = "synced"
	OutcomeFailed     = "failed"
	OutcomeDeferred   = "deferred"
	OutcomeSkipped    = "skipped"
	OutcomeSuperseded = "superseded"
)

// Metrics holds the engine's collectors. Register them with Collectors.
type Metrics struct {
	UploadsTotal *prometheus.CounterVec
	EntriesTotal *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		UploadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: UploadsTotalKey,
			Help: "Cumulative number of upload attempts.",
		}, []string{"status"}),
		EntriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: EntriesTotalKey,
			Help: "Cumulative number of entries processed by sync, by outcome.",
		}, []string{"outcome"}),
	}
}

// Collectors lists the collectors of m.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.UploadsTotal, m.EntriesTotal}
}

func (m *Metrics) upload(err error) {
	if err != nil {
		m.UploadsTotal.WithLabelValues(Fail).Inc()
	} else {
		m.UploadsTotal.WithLabelValues(Ok).Inc()
	}
}

func (m *Metrics) entry(outcome string) {
	m.EntriesTotal.WithLabelValues(outcome).Inc()
}
