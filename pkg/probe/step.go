package probe

import (
	"context"

	"go.uber.org/zap"

	"github.com/amirimatin/zkping/pkg/session"
)

// step opens a fresh connection, hands it to fn and releases it again.
// Close runs on every path after a successful Connect and never otherwise.
func step(ctx context.Context, s session.Connector, logger *zap.Logger, fn func(context.Context, session.Conn) Outcome) Outcome {
	conn, err := s.Connect(ctx)
	if err != nil {
		return Failure(err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			logger.Debug("session close failed", zap.Error(cerr))
		}
	}()
	return fn(ctx, conn)
}
