package report

import (
	"context"
	"fmt"
	"sync"

	"github.com/bytedance/sonic"

	"github.com/amirimatin/zkping/pkg/probe"
	"github.com/amirimatin/zkping/pkg/transport"
)

// ErrNoCycle is returned by Latest before the first cycle has been reported.
var ErrNoCycle = fmt.Errorf("report: no cycle completed yet: %w", transport.ErrNoStatus)

// Latest keeps the most recent cycle for the management endpoint. Only the
// last report is retained.
type Latest struct {
	mu       sync.RWMutex
	rep      probe.CycleReport
	have     bool
	onChange func(probe.CycleReport)
}

// NewLatest returns an empty snapshot. onChange, when non-nil, runs after each update.
func NewLatest(onChange func(probe.CycleReport)) *Latest { return &Latest{onChange: onChange} }

func (l *Latest) Report(_ context.Context, rep probe.CycleReport) error {
	l.mu.Lock()
	l.rep, l.have = rep, true
	l.mu.Unlock()
	if l.onChange != nil {
		l.onChange(rep)
	}
	return nil
}

// Get returns the last report, if any.
func (l *Latest) Get() (probe.CycleReport, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.rep, l.have
}

// StatusJSON encodes the last report as a View. It matches transport.StatusFunc.
func (l *Latest) StatusJSON(context.Context) ([]byte, error) {
	rep, ok := l.Get()
	if !ok {
		return nil, ErrNoCycle
	}
	return sonic.ConfigStd.Marshal(NewView(rep))
}

// Healthy reports whether the last cycle's liveness probe succeeded.
func (l *Latest) Healthy() bool {
	rep, ok := l.Get()
	return ok && rep.Liveness.OK()
}
