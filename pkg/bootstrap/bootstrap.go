// Package bootstrap assembles a prober from a validated config.Config:
// quorum discovery, TLS, the ZooKeeper session, the probe engine, the
// reporters and the optional management endpoint.
package bootstrap

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/amirimatin/zkping/pkg/config"
	"github.com/amirimatin/zkping/pkg/internal/logutil"
	"github.com/amirimatin/zkping/pkg/probe"
	"github.com/amirimatin/zkping/pkg/report"
	"github.com/amirimatin/zkping/pkg/scheduler"
	"github.com/amirimatin/zkping/pkg/session"
	"github.com/amirimatin/zkping/pkg/transport"
	mgmtgrpc "github.com/amirimatin/zkping/pkg/transport/grpc"
	httpjson "github.com/amirimatin/zkping/pkg/transport/httpjson"
)

// discoveryTimeout bounds the one-shot quorum resolution at startup.
const discoveryTimeout = 10 * time.Second

// Prober is an assembled, not yet running, prober.
type Prober struct {
	Servers   []string
	Engine    *probe.Engine
	Latest    *report.Latest
	Scheduler *scheduler.Scheduler

	mgmt   transport.Server
	logger *zap.Logger
	cfg    config.Config
}

// Build resolves the quorum once and wires every component. Problems with
// the inputs come back as *config.Error. No ZooKeeper connection is opened.
func Build(ctx context.Context, cfg config.Config, stdout io.Writer, logger *zap.Logger) (*Prober, error) {
	logger = logutil.OrNop(logger)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dctx, cancel := context.WithTimeout(ctx, discoveryTimeout)
	servers, err := cfg.NewDiscovery().Servers(dctx)
	cancel()
	if err != nil {
		return nil, &config.Error{Field: "discovery", Err: err}
	}
	if len(servers) == 0 {
		return nil, config.Errorf("discovery", "%s discovery returned no servers", cfg.Discovery)
	}

	cliTLS, err := cfg.TLS(cfg.TLSEnable).Client()
	if err != nil {
		return nil, &config.Error{Field: "tls", Err: err}
	}
	var sopts []session.Option
	if cliTLS != nil {
		sopts = append(sopts, session.WithTLS(cliTLS))
	}
	sopts = append(sopts, session.WithLogger(logger.Named("zk")))
	sess, err := session.NewZK(session.Config{Servers: servers, Timeout: cfg.SessionTimeout()}, sopts...)
	if err != nil {
		return nil, &config.Error{Field: "quorum", Err: err}
	}

	line, err := report.ForFormat(cfg.Output, stdout)
	if err != nil {
		return nil, &config.Error{Field: "output", Err: err}
	}

	p := &Prober{Servers: servers, logger: logger, cfg: cfg}
	p.Engine = probe.NewEngine(sess, probe.Options{Root: cfg.ProbeRoot(), Logger: logger.Named("probe")})

	var onChange func(probe.CycleReport)
	if cfg.MgmtAddr != "" {
		srvTLS, err := cfg.TLS(cfg.MgmtTLS).Server()
		if err != nil {
			return nil, &config.Error{Field: "mgmt-tls", Err: err}
		}
		p.mgmt, onChange = newManagement(cfg, srvTLS, logger)
	}
	p.Latest = report.NewLatest(onChange)

	p.Scheduler = scheduler.New(p.Engine, report.Multi{line, report.Metrics{}, p.Latest}, scheduler.Options{
		MaxCycles: cfg.Count,
		Interval:  cfg.Interval,
		Logger:    logger.Named("scheduler"),
	})
	return p, nil
}

// newManagement returns the server for cfg.MgmtProto and, for gRPC, a hook
// that moves the health service with each liveness outcome.
func newManagement(cfg config.Config, srvTLS *tls.Config, logger *zap.Logger) (transport.Server, func(probe.CycleReport)) {
	switch cfg.MgmtProto {
	case "grpc":
		s := mgmtgrpc.NewServer(cfg.MgmtAddr, logger)
		if srvTLS != nil {
			s.UseTLS(srvTLS)
		}
		return s, func(rep probe.CycleReport) { s.SetServing(rep.Liveness.OK()) }
	default:
		s := httpjson.NewServer(cfg.MgmtAddr, logger)
		if srvTLS != nil {
			s.UseTLS(srvTLS)
		}
		return s, nil
	}
}

// MgmtAddr returns the management endpoint address, or "" when disabled.
func (p *Prober) MgmtAddr() string {
	if p.mgmt == nil {
		return ""
	}
	return p.mgmt.Addr()
}

// Run starts the management endpoint, if any, and blocks in the scheduler
// until the cycle bound is reached or ctx is cancelled.
func (p *Prober) Run(ctx context.Context) error {
	if p.mgmt != nil {
		h := transport.Handlers{Status: p.Latest.StatusJSON, Health: p.Latest.Healthy}
		if err := p.mgmt.Start(ctx, h); err != nil {
			return fmt.Errorf("management endpoint: %w", err)
		}
		defer p.mgmt.Stop(context.Background())
	}
	p.logger.Info("prober starting",
		zap.String("run_id", p.Engine.RunID()),
		zap.Strings("servers", p.Servers),
		zap.String("znode_root", p.cfg.ProbeRoot()),
		zap.Int("count", p.cfg.Count),
		zap.Duration("timeout", p.cfg.SessionTimeout()),
	)
	return p.Scheduler.Run(ctx)
}
