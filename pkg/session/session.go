// Package session describes how a probe step reaches the ZooKeeper ensemble.
//
// A Session is a descriptor built once from configuration. Every call to
// Connect opens a fresh connection that the caller must Close; nothing is
// shared between steps.
package session

import (
	"context"
	"time"
)

// DefaultTimeout is the session timeout used when none is configured.
const DefaultTimeout = 30 * time.Second

// defaultPort is the client port assumed for a server given without one.
const defaultPort = "2181"

// Stat is the subset of znode metadata a read returns.
type Stat struct {
	Version        int32
	DataLength     int32
	NumChildren    int32
	Ctime, Mtime   int64
	EphemeralOwner int64
}

// Conn is one open session against the ensemble.
type Conn interface {
	// Command sends a four-letter administrative word to the server this
	// session is attached to and returns the raw reply.
	Command(ctx context.Context, word string) (string, error)
	// EnsurePath creates path and any missing parents. Existing nodes are not an error.
	EnsurePath(ctx context.Context, path string) error
	Get(ctx context.Context, path string) ([]byte, Stat, error)
	Set(ctx context.Context, path string, data []byte) error
	Delete(ctx context.Context, path string) error
	Close() error
}

// Connector opens connections. Implementations must fail with *ConnectError
// when no session could be established.
type Connector interface {
	Connect(ctx context.Context) (Conn, error)
}

// Config is the immutable session configuration shared by every probe step.
type Config struct {
	// Servers are host:port entries. Hostnames are expanded to every address
	// they resolve to on each Connect, and each address is one attempt.
	Servers []string
	// Timeout is the session timeout. It also bounds waiting for a session
	// and each TCP dial, overriding the client library's 1s dial timeout.
	Timeout time.Duration
	// ConnectRetry bounds how many passes over Servers a single Connect makes.
	ConnectRetry RetryPolicy
	// CommandRetry bounds resends of a four-letter word.
	CommandRetry RetryPolicy
}

// WithDefaults fills unset fields. Retry policies stay at NoRetry.
func (c Config) WithDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	c.Servers = append([]string(nil), c.Servers...)
	return c
}
