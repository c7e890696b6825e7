package cli

import (
	"context"
	"crypto/tls"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/amirimatin/zkping/pkg/bootstrap"
	"github.com/amirimatin/zkping/pkg/config"
	"github.com/amirimatin/zkping/pkg/internal/logutil"
	obsmetrics "github.com/amirimatin/zkping/pkg/observability/metrics"
	tracing "github.com/amirimatin/zkping/pkg/observability/tracing"
	tlsx "github.com/amirimatin/zkping/pkg/security/tlsconfig"
	"github.com/amirimatin/zkping/pkg/transport"
	mgmtgrpc "github.com/amirimatin/zkping/pkg/transport/grpc"
	httpjson "github.com/amirimatin/zkping/pkg/transport/httpjson"
)

// NewRootCmd returns the zkping command. Running it without a subcommand
// probes the ensemble until --count cycles ran or a signal arrives.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "zkping",
		Short:         "ZooKeeper ensemble liveness and CRUD latency prober",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			logger, err := logutil.New(logutil.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
			if err != nil {
				return &config.Error{Field: "log", Err: err}
			}
			defer func() { _ = logger.Sync() }()
			return runPing(cmd, cfg, logger)
		},
	}
	config.BindFlags(root.Flags())
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &config.Error{Field: "flags", Err: err}
	})
	root.AddCommand(NewStatusCmd())
	return root
}

func runPing(cmd *cobra.Command, cfg config.Config, logger *zap.Logger) error {
	ctx, cancel := signalContext()
	defer cancel()

	if cfg.Trace {
		shutdown, err := tracing.Setup(true)
		if err != nil {
			logger.Warn("tracing setup failed", zap.Error(err))
		} else {
			defer func() { _ = shutdown(context.Background()) }()
		}
	}
	obsmetrics.Register()

	p, err := bootstrap.Build(ctx, cfg, cmd.OutOrStdout(), logger)
	if err != nil {
		return err
	}
	return p.Run(ctx)
}

// NewStatusCmd returns the "status" command.
func NewStatusCmd() *cobra.Command {
	var (
		addr, mgmtProto                       string
		timeout                               time.Duration
		tlsEnable, tlsSkip                    bool
		tlsCA, tlsCert, tlsKey, tlsServerName string
	)
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Fetch the latest cycle report of a running prober as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			var cliTLS *tls.Config
			if tlsEnable {
				topts := tlsx.Options{Enable: true, CAFile: tlsCA, CertFile: tlsCert, KeyFile: tlsKey, InsecureSkipVerify: tlsSkip, ServerName: tlsServerName}
				var err error
				cliTLS, err = topts.Client()
				if err != nil {
					return &config.Error{Field: "tls", Err: fmt.Errorf("tls client config: %w", err)}
				}
			}
			var client transport.Client
			switch mgmtProto {
			case "grpc":
				cli := mgmtgrpc.NewClient(timeout)
				if cliTLS != nil {
					cli.UseTLS(cliTLS)
				}
				client = cli
			case "http":
				cli := httpjson.NewClient(timeout)
				if cliTLS != nil {
					cli.UseTLS(cliTLS)
				}
				client = cli
			default:
				return config.Errorf("mgmt-proto", "unknown protocol %q (want http|grpc)", mgmtProto)
			}
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			data, err := client.GetStatus(ctx, addr)
			if err != nil {
				return fmt.Errorf("status error: %w", err)
			}
			out := cmd.OutOrStdout()
			_, _ = out.Write(data)
			if len(data) == 0 || data[len(data)-1] != '\n' {
				_, _ = out.Write([]byte("\n"))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:17946", "management address of a running prober (host:port)")
	cmd.Flags().StringVar(&mgmtProto, "mgmt-proto", "http", "management protocol: http|grpc")
	cmd.Flags().DurationVar(&timeout, "timeout", 3*time.Second, "request timeout")
	cmd.Flags().BoolVar(&tlsEnable, "tls-enable", false, "use TLS towards the management endpoint")
	cmd.Flags().StringVar(&tlsCA, "tls-ca", "", "path to CA cert (PEM)")
	cmd.Flags().StringVar(&tlsCert, "tls-cert", "", "path to client certificate (PEM)")
	cmd.Flags().StringVar(&tlsKey, "tls-key", "", "path to client private key (PEM)")
	cmd.Flags().BoolVar(&tlsSkip, "tls-skip-verify", false, "skip server cert verification (DEV ONLY)")
	cmd.Flags().StringVar(&tlsServerName, "tls-server-name", "", "expected server name (for TLS validation)")
	return cmd
}

// ExitCode maps an error returned by the root command to a process status:
// 0 for none, 2 for configuration problems, 1 otherwise.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case config.IsError(err):
		return 2
	default:
		return 1
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-ch:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(ch)
	}()
	return ctx, cancel
}
