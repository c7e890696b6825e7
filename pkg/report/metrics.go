package report

import (
	"context"

	obsmetrics "github.com/amirimatin/zkping/pkg/observability/metrics"
	"github.com/amirimatin/zkping/pkg/probe"
)

// Metrics exports every cycle to the Prometheus collectors.
type Metrics struct{}

func observe(op string, o probe.Outcome) {
	obsmetrics.ProbeResults.WithLabelValues(op, o.Kind.String()).Inc()
	if o.OK() {
		obsmetrics.ProbeDuration.WithLabelValues(op).Observe(o.Elapsed.Seconds())
		obsmetrics.ProbeUp.WithLabelValues(op).Set(1)
		return
	}
	obsmetrics.ProbeUp.WithLabelValues(op).Set(0)
}

func (Metrics) Report(_ context.Context, rep probe.CycleReport) error {
	observe("ruok", rep.Liveness)
	for _, op := range probe.Ops {
		observe(string(op), rep.Crud.Outcome(op))
	}
	obsmetrics.Cycles.Inc()
	obsmetrics.LastSequence.Set(float64(rep.Sequence))
	return nil
}
