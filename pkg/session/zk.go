package session

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/go-zookeeper/zk"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/amirimatin/zkping/pkg/internal/logutil"
	"github.com/amirimatin/zkping/pkg/observability/tracing"
)

// Resolver looks up the addresses of a host. *net.Resolver satisfies it.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// ZK is a Connector backed by github.com/go-zookeeper/zk.
type ZK struct {
	cfg      Config
	tlsCfg   *tls.Config
	logger   *zap.Logger
	resolver Resolver
}

// Option customizes a ZK connector.
type Option func(*ZK)

// WithTLS dials the ensemble (sessions and four-letter words) over TLS.
func WithTLS(cfg *tls.Config) Option { return func(z *ZK) { z.tlsCfg = cfg } }

// WithLogger routes client library output into l at debug level.
func WithLogger(l *zap.Logger) Option { return func(z *ZK) { z.logger = l } }

// WithResolver replaces net.DefaultResolver for expanding server hostnames.
func WithResolver(r Resolver) Option { return func(z *ZK) { z.resolver = r } }

// NewZK validates cfg and returns a connector. It does not touch the network.
func NewZK(cfg Config, opts ...Option) (*ZK, error) {
	cfg = cfg.WithDefaults()
	if len(cfg.Servers) == 0 {
		return nil, ErrNoServers
	}
	z := &ZK{cfg: cfg}
	for _, o := range opts {
		if o != nil {
			o(z)
		}
	}
	z.logger = logutil.OrNop(z.logger).Named("zk")
	if z.resolver == nil {
		z.resolver = net.DefaultResolver
	}
	return z, nil
}

// Config returns a copy of the session configuration.
func (z *ZK) Config() Config { return z.cfg.WithDefaults() }

// resolve expands every configured server into one host:port per address,
// the same expansion the client library applies before dialing. Hosts that
// do not resolve are skipped; an empty result is an error.
func (z *ZK) resolve(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	var out []string
	var lastErr error
	for _, server := range z.cfg.Servers {
		host, port, err := net.SplitHostPort(server)
		if err != nil {
			host, port = server, defaultPort
		}
		addrs := []string{host}
		if net.ParseIP(host) == nil {
			addrs, err = z.resolver.LookupHost(ctx, host)
			if err != nil {
				lastErr = fmt.Errorf("resolve %s: %w", host, err)
				z.logger.Debug("server lookup failed", zap.String("server", server), zap.Error(err))
				continue
			}
		}
		for _, a := range addrs {
			hp := net.JoinHostPort(a, port)
			if _, ok := seen[hp]; ok {
				continue
			}
			seen[hp] = struct{}{}
			out = append(out, hp)
		}
	}
	if len(out) == 0 {
		if lastErr == nil {
			lastErr = ErrNoServers
		}
		return nil, lastErr
	}
	return out, nil
}

// dialTimeout never lets the client library's short per-dial timeout undercut
// the configured session timeout.
func (z *ZK) dialTimeout(timeout time.Duration) time.Duration {
	if timeout < z.cfg.Timeout {
		return z.cfg.Timeout
	}
	return timeout
}

func (z *ZK) dial(network, address string, timeout time.Duration) (net.Conn, error) {
	d := &net.Dialer{Timeout: timeout}
	if z.tlsCfg == nil {
		return d.Dial(network, address)
	}
	cfg := z.tlsCfg.Clone()
	if cfg.ServerName == "" {
		if host, _, err := net.SplitHostPort(address); err == nil {
			cfg.ServerName = host
		}
	}
	return tls.DialWithDialer(d, network, address, cfg)
}

// attempts counts failed server attempts during one Connect.
type attempts struct {
	mu      sync.Mutex
	failed  int
	lastErr error
	notify  chan struct{}
}

func newAttempts() *attempts { return &attempts{notify: make(chan struct{}, 1)} }

func (a *attempts) fail(err error) {
	a.mu.Lock()
	a.failed++
	if err != nil {
		a.lastErr = err
	}
	a.mu.Unlock()
	select {
	case a.notify <- struct{}{}:
	default:
	}
}

func (a *attempts) snapshot() (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.failed, a.lastErr
}

// Connect opens a new ZooKeeper session and waits until it is established,
// the retry budget is spent, or the session timeout elapses.
func (z *ZK) Connect(ctx context.Context) (_ Conn, err error) {
	ctx, end := tracing.StartSpan(ctx, "zk.connect", attribute.StringSlice("zk.servers", z.cfg.Servers))
	defer func() { end(err) }()

	addrs, err := z.resolve(ctx)
	if err != nil {
		return nil, &ConnectError{Servers: z.cfg.Servers, Err: err}
	}
	tries := newAttempts()
	dialer := func(network, address string, timeout time.Duration) (net.Conn, error) {
		c, err := z.dial(network, address, z.dialTimeout(timeout))
		if err != nil {
			tries.fail(err)
		}
		return c, err
	}
	conn, events, err := zk.Connect(addrs, z.cfg.Timeout,
		zk.WithDialer(dialer),
		zk.WithLogger(logutil.Printf{S: z.logger.Sugar()}),
	)
	if err != nil {
		return nil, &ConnectError{Servers: z.cfg.Servers, Err: err}
	}
	if err := z.await(ctx, events, tries, len(addrs)); err != nil {
		conn.Close()
		go drain(events)
		return nil, &ConnectError{Servers: z.cfg.Servers, Err: err}
	}
	// the client panics when its event channel fills up
	go drain(events)
	z.logger.Debug("session established", zap.String("server", conn.Server()), zap.Int64("session_id", conn.SessionID()))
	return &zkConn{z: z, conn: conn}, nil
}

func (z *ZK) await(ctx context.Context, events <-chan zk.Event, tries *attempts, addrs int) error {
	timer := time.NewTimer(z.cfg.Timeout)
	defer timer.Stop()
	budget := z.cfg.ConnectRetry.connectBudget(addrs)
	attached := false
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			if _, last := tries.snapshot(); last != nil {
				return fmt.Errorf("%w after %s: %w", ErrConnectTimeout, z.cfg.Timeout, last)
			}
			return fmt.Errorf("%w after %s", ErrConnectTimeout, z.cfg.Timeout)
		case <-tries.notify:
			if n, last := tries.snapshot(); n >= budget {
				return fmt.Errorf("%w: %w", ErrAttemptsSpent, last)
			}
		case ev, ok := <-events:
			if !ok {
				return ErrEventsClosed
			}
			switch ev.State {
			case zk.StateHasSession:
				return nil
			case zk.StateConnected:
				attached = true
			case zk.StateAuthFailed:
				return zk.ErrAuthFailed
			case zk.StateExpired:
				return zk.ErrSessionExpired
			case zk.StateDisconnected:
				if attached {
					attached = false
					tries.fail(fmt.Errorf("handshake with %s failed", ev.Server))
				}
			}
		}
	}
}

func drain(events <-chan zk.Event) {
	for range events {
	}
}

// FourLetterWord sends word to server on a dedicated connection and reads
// the reply until the server closes it.
func (z *ZK) FourLetterWord(ctx context.Context, server, word string) (string, error) {
	c, err := z.dial("tcp", server, z.cfg.Timeout)
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", word, server, err)
	}
	defer c.Close()
	deadline := time.Now().Add(z.cfg.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = c.SetDeadline(deadline)
	if _, err := io.WriteString(c, word); err != nil {
		return "", fmt.Errorf("%s %s: write: %w", word, server, err)
	}
	reply, err := io.ReadAll(c)
	if err != nil {
		return "", fmt.Errorf("%s %s: read: %w", word, server, err)
	}
	return string(reply), nil
}

// zkAPI is the part of *zk.Conn a probe step uses.
type zkAPI interface {
	Server() string
	Create(path string, data []byte, flags int32, acl []zk.ACL) (string, error)
	Get(path string) ([]byte, *zk.Stat, error)
	Set(path string, data []byte, version int32) (*zk.Stat, error)
	Delete(path string, version int32) error
	Close()
}

type zkConn struct {
	z    *ZK
	conn zkAPI
}

func (c *zkConn) Command(ctx context.Context, word string) (string, error) {
	server := c.conn.Server()
	if server == "" {
		return "", ErrNoServer
	}
	var lastErr error
	for i := 0; i < c.z.cfg.CommandRetry.Attempts(); i++ {
		reply, err := c.z.FourLetterWord(ctx, server, word)
		if err == nil {
			return reply, nil
		}
		lastErr = err
	}
	return "", lastErr
}

func (c *zkConn) EnsurePath(_ context.Context, path string) error {
	if !strings.HasPrefix(path, "/") {
		return fmt.Errorf("ensure path %q: %w", path, zk.ErrInvalidPath)
	}
	cur := ""
	for _, part := range strings.Split(strings.Trim(path, "/"), "/") {
		if part == "" {
			continue
		}
		cur += "/" + part
		_, err := c.conn.Create(cur, nil, 0, zk.WorldACL(zk.PermAll))
		if err != nil && !errors.Is(err, zk.ErrNodeExists) {
			return fmt.Errorf("create %s: %w", cur, err)
		}
	}
	return nil
}

func (c *zkConn) Get(_ context.Context, path string) ([]byte, Stat, error) {
	data, st, err := c.conn.Get(path)
	if err != nil {
		return nil, Stat{}, fmt.Errorf("get %s: %w", path, err)
	}
	return data, Stat{
		Version:        st.Version,
		DataLength:     st.DataLength,
		NumChildren:    st.NumChildren,
		Ctime:          st.Ctime,
		Mtime:          st.Mtime,
		EphemeralOwner: st.EphemeralOwner,
	}, nil
}

func (c *zkConn) Set(_ context.Context, path string, data []byte) error {
	if _, err := c.conn.Set(path, data, -1); err != nil {
		return fmt.Errorf("set %s: %w", path, err)
	}
	return nil
}

func (c *zkConn) Delete(_ context.Context, path string) error {
	if err := c.conn.Delete(path, -1); err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}

func (c *zkConn) Close() error {
	c.conn.Close()
	return nil
}

var _ Connector = (*ZK)(nil)
