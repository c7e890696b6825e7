package grpc

import (
	"context"
	"crypto/tls"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/amirimatin/zkping/pkg/transport"
)

// Client calls the management service of a running prober. Each call dials
// a fresh connection.
type Client struct {
	timeout time.Duration
	tlsCfg  *tls.Config
}

func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Client{timeout: timeout}
}

// UseTLS sets TLS config for the client.
func (c *Client) UseTLS(cfg *tls.Config) *Client { c.tlsCfg = cfg; return c }

func (c *Client) dial(target string) (*grpc.ClientConn, error) {
	var opts []grpc.DialOption
	if c.tlsCfg != nil {
		opts = append(opts, grpc.WithTransportCredentials(credentials.NewTLS(c.tlsCfg)))
	} else {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}
	return grpc.NewClient(target, opts...)
}

func (c *Client) GetStatus(ctx context.Context, addr string) ([]byte, error) {
	cctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	cc, err := c.dial(addr)
	if err != nil {
		return nil, err
	}
	defer cc.Close()
	out := new(statusBlob)
	if err := cc.Invoke(cctx, "/"+ServiceName+"/GetStatus", &empty{}, out, grpc.CallContentSubtype(jsonCodec{}.Name())); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// Check queries the standard health service for ServiceName.
func (c *Client) Check(ctx context.Context, addr string) (bool, error) {
	cctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	cc, err := c.dial(addr)
	if err != nil {
		return false, err
	}
	defer cc.Close()
	resp, err := healthpb.NewHealthClient(cc).Check(cctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		return false, err
	}
	return resp.GetStatus() == healthpb.HealthCheckResponse_SERVING, nil
}

var _ transport.Client = (*Client)(nil)
