package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	ProbeDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "zkping",
		Subsystem: "probe",
		Name:      "duration_seconds",
		Help:      "Latency of successful probe steps, connection setup included",
		Buckets:   []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	}, []string{"op"})

	ProbeResults = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "zkping",
		Subsystem: "probe",
		Name:      "results_total",
		Help:      "Probe step results by operation and classification",
	}, []string{"op", "result"})

	ProbeUp = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "zkping",
		Subsystem: "probe",
		Name:      "up",
		Help:      "1 if the last probe step of this operation succeeded, else 0",
	}, []string{"op"})

	Cycles = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "zkping",
		Name:      "cycles_total",
		Help:      "Total number of completed probe cycles",
	})

	LastSequence = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "zkping",
		Name:      "last_sequence",
		Help:      "Sequence number of the last completed probe cycle",
	})
)

// Register registers metrics into the default Prometheus registry (idempotent).
func Register() {
	once.Do(func() {
		MustRegister(prometheus.DefaultRegisterer)
	})
}

// MustRegister registers every collector into r.
func MustRegister(r prometheus.Registerer) {
	r.MustRegister(ProbeDuration)
	r.MustRegister(ProbeResults)
	r.MustRegister(ProbeUp)
	r.MustRegister(Cycles)
	r.MustRegister(LastSequence)
}
