package probe

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/amirimatin/zkping/pkg/internal/logutil"
	"github.com/amirimatin/zkping/pkg/observability/tracing"
	"github.com/amirimatin/zkping/pkg/session"
)

// Op names one CRUD sub-operation.
type Op string

const (
	OpCreate Op = "create"
	OpRead   Op = "read"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Ops is the fixed execution order of a CRUD round trip.
var Ops = []Op{OpCreate, OpRead, OpUpdate, OpDelete}

const (
	NodePrefix     = "zkping-"
	SuffixLen      = 16
	suffixAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// UpdatePayload is written to the probe node by the update step.
	UpdatePayload = "0123456789"
)

// RandomSuffix draws SuffixLen characters from [A-Z0-9].
func RandomSuffix() string {
	var b strings.Builder
	b.Grow(SuffixLen)
	for i := 0; i < SuffixLen; i++ {
		b.WriteByte(suffixAlphabet[rand.Intn(len(suffixAlphabet))])
	}
	return b.String()
}

// NodePath joins root and the probe node name with exactly one separator.
func NodePath(root, suffix string) string {
	return strings.TrimRight(root, "/") + "/" + NodePrefix + suffix
}

// CrudResult is one create/read/update/delete round trip against Node.
type CrudResult struct {
	Node     string
	Outcomes map[Op]Outcome
}

// Outcome returns the result recorded for op.
func (r CrudResult) Outcome(op Op) Outcome { return r.Outcomes[op] }

// Crud runs the CRUD round trip against a freshly named node under Root.
type Crud struct {
	Session session.Connector
	Root    string
	// Suffix overrides RandomSuffix, mainly for tests.
	Suffix func() string
	Logger *zap.Logger
}

// Run executes create, read, update and delete in order. Each step gets its
// own connection and is attempted regardless of how earlier steps went.
func (c Crud) Run(ctx context.Context) CrudResult {
	suffix := c.Suffix
	if suffix == nil {
		suffix = RandomSuffix
	}
	root := c.Root
	if root == "" {
		root = "/"
	}
	res := CrudResult{Node: NodePath(root, suffix()), Outcomes: make(map[Op]Outcome, len(Ops))}
	logger := logutil.OrNop(c.Logger)
	for _, op := range Ops {
		res.Outcomes[op] = c.runOp(ctx, logger, op, res.Node)
	}
	return res
}

func (c Crud) runOp(ctx context.Context, logger *zap.Logger, op Op, node string) (out Outcome) {
	ctx, end := tracing.StartSpan(ctx, "zkping."+string(op), attribute.String("zk.path", node))
	defer func() { end(out.Err) }()

	start := time.Now()
	return step(ctx, c.Session, logger, func(ctx context.Context, conn session.Conn) Outcome {
		var err error
		switch op {
		case OpCreate:
			err = conn.EnsurePath(ctx, node)
		case OpRead:
			_, _, err = conn.Get(ctx, node)
		case OpUpdate:
			err = conn.Set(ctx, node, []byte(UpdatePayload))
		case OpDelete:
			err = conn.Delete(ctx, node)
		}
		if err != nil {
			return Failure(err)
		}
		return Success(time.Since(start))
	})
}
