package probe

import (
	"context"
	mathrand "math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/amirimatin/zkping/pkg/internal/logutil"
	"github.com/amirimatin/zkping/pkg/observability/tracing"
	"github.com/amirimatin/zkping/pkg/session"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// NewRunID returns a ULID identifying one prober process run.
func NewRunID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// CycleReport is the immutable result of one probe cycle.
type CycleReport struct {
	RunID    string
	Sequence uint64
	Started  time.Time
	Liveness Outcome
	Crud     CrudResult
}

// Options configures an Engine.
type Options struct {
	// Root is the parent path of probe nodes. Defaults to "/".
	Root string
	// RunID stamps every report. Defaults to NewRunID().
	RunID  string
	Suffix func() string
	Logger *zap.Logger
}

// Engine runs probe cycles against one shared session configuration.
type Engine struct {
	liveness Liveness
	crud     Crud
	runID    string
	logger   *zap.Logger
}

func NewEngine(s session.Connector, opts Options) *Engine {
	logger := logutil.OrNop(opts.Logger)
	if opts.RunID == "" {
		opts.RunID = NewRunID()
	}
	return &Engine{
		liveness: Liveness{Session: s, Logger: logger},
		crud:     Crud{Session: s, Root: opts.Root, Suffix: opts.Suffix, Logger: logger},
		runID:    opts.RunID,
		logger:   logger,
	}
}

// RunID returns the identifier stamped on every report of this engine.
func (e *Engine) RunID() string { return e.runID }

// RunCycle runs the liveness probe followed by the CRUD probe.
func (e *Engine) RunCycle(ctx context.Context, seq uint64) CycleReport {
	ctx, end := tracing.StartSpan(ctx, "zkping.cycle", attribute.Int64("zkping.sequence", int64(seq)))
	defer end(nil)

	rep := CycleReport{RunID: e.runID, Sequence: seq, Started: time.Now()}
	rep.Liveness = e.liveness.Run(ctx)
	rep.Crud = e.crud.Run(ctx)
	e.logger.Debug("cycle finished",
		zap.Uint64("sequence", seq),
		zap.Stringer("ruok", rep.Liveness.Kind),
		zap.String("znode", rep.Crud.Node),
		zap.Duration("took", time.Since(rep.Started)),
	)
	return rep
}
