package probe

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/amirimatin/zkping/pkg/internal/logutil"
	"github.com/amirimatin/zkping/pkg/observability/tracing"
	"github.com/amirimatin/zkping/pkg/session"
)

const (
	// LivenessWord is the four-letter word sent by the liveness probe.
	LivenessWord = "ruok"
	// LivenessReply is the only reply counted as healthy.
	LivenessReply = "imok"
)

// Liveness checks that the server a fresh session lands on answers ruok with imok.
type Liveness struct {
	Session session.Connector
	Logger  *zap.Logger
}

// Run performs one liveness step. It never fails past its own boundary:
// connect errors yield Failure, a missing reply yields Indeterminate and a
// reply other than imok yields Failure with the elapsed time kept.
func (l Liveness) Run(ctx context.Context) (out Outcome) {
	ctx, end := tracing.StartSpan(ctx, "zkping.ruok")
	defer func() { end(out.Err) }()

	start := time.Now()
	return step(ctx, l.Session, logutil.OrNop(l.Logger), func(ctx context.Context, conn session.Conn) Outcome {
		reply, err := conn.Command(ctx, LivenessWord)
		if err != nil {
			return Indeterminate(time.Since(start), fmt.Errorf("%w: %w", ErrNoReply, err))
		}
		if reply == "" {
			return Indeterminate(time.Since(start), ErrNoReply)
		}
		elapsed := time.Since(start)
		if reply != LivenessReply {
			return FailureAfter(elapsed, fmt.Errorf("%w %q", ErrUnhealthyReply, reply))
		}
		return Success(elapsed)
	})
}
