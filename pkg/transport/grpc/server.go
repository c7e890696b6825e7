package grpc

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/amirimatin/zkping/pkg/internal/logutil"
	"github.com/amirimatin/zkping/pkg/observability/tracing"
	"github.com/amirimatin/zkping/pkg/transport"
)

// ServiceName is the gRPC service exposing the management API.
const ServiceName = "zkping.v1.Management"

// Server implements transport.Server over gRPC using a JSON codec.
type Server struct {
	bind   string
	tlsCfg *tls.Config
	logger *zap.Logger

	mu     sync.Mutex
	lis    net.Listener
	srv    *grpc.Server
	health *health.Server
}

func NewServer(bind string, logger *zap.Logger) *Server {
	return &Server{bind: bind, logger: logutil.OrNop(logger).Named("grpc")}
}

// UseTLS enables TLS for the gRPC server using the provided config.
func (s *Server) UseTLS(cfg *tls.Config) *Server { s.tlsCfg = cfg; return s }

// internal request/response types used over gRPC JSON codec
type empty struct{}
type statusBlob struct {
	Data []byte `json:"data"`
}

type managementServer interface {
	GetStatus(ctx context.Context, in *empty) (*statusBlob, error)
}

type mgmtImpl struct{ status transport.StatusFunc }

func (m *mgmtImpl) GetStatus(ctx context.Context, _ *empty) (*statusBlob, error) {
	ctx, end := tracing.StartSpan(ctx, "grpc.status")
	b, err := m.status(ctx)
	end(err)
	if errors.Is(err, transport.ErrNoStatus) {
		return nil, status.Error(codes.Unavailable, err.Error())
	}
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return &statusBlob{Data: b}, nil
}

// Service descriptor and handlers (hand-written, no codegen required)
var _Management_serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*managementServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetStatus", Handler: _Management_GetStatus_Handler},
	},
}

func _Management_GetStatus_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(managementServer).GetStatus(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/GetStatus"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(managementServer).GetStatus(ctx, req.(*empty))
	}
	return interceptor(ctx, in, info, handler)
}

func (s *Server) Start(ctx context.Context, h transport.Handlers) error {
	if h.Status == nil {
		return errors.New("grpc: nil status handler")
	}
	lis, err := net.Listen("tcp", s.bind)
	if err != nil {
		return err
	}
	// codecs are chosen per call by content subtype: json for management, proto for health
	var opts []grpc.ServerOption
	if s.tlsCfg != nil {
		opts = append(opts, grpc.Creds(credentials.NewTLS(s.tlsCfg)))
	}
	srv := grpc.NewServer(opts...)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	srv.RegisterService(&_Management_serviceDesc, &mgmtImpl{status: h.Status})

	s.mu.Lock()
	s.lis, s.srv, s.health = lis, srv, hs
	s.mu.Unlock()
	s.SetServing(h.Health == nil || h.Health())

	go func() {
		<-ctx.Done()
		_ = s.Stop(context.Background())
	}()
	go func() { _ = srv.Serve(lis) }()
	s.logger.Info("management endpoint listening", zap.String("addr", lis.Addr().String()))
	return nil
}

// SetServing flips the standard health service for ServiceName and the
// overall server between SERVING and NOT_SERVING.
func (s *Server) SetServing(ok bool) {
	s.mu.Lock()
	hs := s.health
	s.mu.Unlock()
	if hs == nil {
		return
	}
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if ok {
		st = healthpb.HealthCheckResponse_SERVING
	}
	hs.SetServingStatus("", st)
	hs.SetServingStatus(ServiceName, st)
}

// Addr returns the bound address once started, else the configured one.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lis != nil {
		return s.lis.Addr().String()
	}
	return s.bind
}

// Stop stops gracefully, forcing after a short timeout.
func (s *Server) Stop(context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.srv = nil
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	ch := make(chan struct{})
	go func() { srv.GracefulStop(); close(ch) }()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		srv.Stop()
	}
	return nil
}

var _ transport.Server = (*Server)(nil)
