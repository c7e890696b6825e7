// Package report renders probe cycles for consumers outside the probing core:
// text or JSON lines, Prometheus metrics and the latest-cycle snapshot served
// by the management endpoint.
package report

import (
	"context"
	"errors"
	"time"

	"github.com/amirimatin/zkping/pkg/probe"
)

// Reporter consumes one finished cycle.
type Reporter interface {
	Report(ctx context.Context, rep probe.CycleReport) error
}

// Func adapts a function to Reporter.
type Func func(ctx context.Context, rep probe.CycleReport) error

func (f Func) Report(ctx context.Context, rep probe.CycleReport) error { return f(ctx, rep) }

// Multi fans a report out to every reporter and joins their errors.
type Multi []Reporter

func (m Multi) Report(ctx context.Context, rep probe.CycleReport) error {
	var errs []error
	for _, r := range m {
		if r == nil {
			continue
		}
		if err := r.Report(ctx, rep); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// StepView is the reporting-boundary form of one probe step.
type StepView struct {
	Result string  `json:"result"`
	TimeMS float64 `json:"time_ms"`
	Error  string  `json:"error"`
}

// View is the flattened, serializable form of a cycle report.
type View struct {
	RunID    string              `json:"run_id"`
	Sequence uint64              `json:"sequence_id"`
	Started  time.Time           `json:"started_at"`
	Ruok     StepView            `json:"ruok"`
	Znode    string              `json:"znode_name"`
	Crud     map[string]StepView `json:"crud"`
}

func stepView(o probe.Outcome) StepView {
	return StepView{Result: o.Kind.String(), TimeMS: o.Millis(), Error: o.Detail()}
}

// NewView flattens rep.
func NewView(rep probe.CycleReport) View {
	v := View{
		RunID:    rep.RunID,
		Sequence: rep.Sequence,
		Started:  rep.Started.UTC(),
		Ruok:     stepView(rep.Liveness),
		Znode:    rep.Crud.Node,
		Crud:     make(map[string]StepView, len(probe.Ops)),
	}
	for _, op := range probe.Ops {
		v.Crud[string(op)] = stepView(rep.Crud.Outcome(op))
	}
	return v
}
