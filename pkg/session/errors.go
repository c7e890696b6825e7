package session

import (
	"errors"
	"strings"
)

var (
	ErrNoServers      = errors.New("session: empty server list")
	ErrConnectTimeout = errors.New("session: connect timed out")
	ErrAttemptsSpent  = errors.New("session: every server attempt failed")
	ErrEventsClosed   = errors.New("session: event stream closed before session was established")
	ErrNoServer       = errors.New("session: not attached to a server")
)

// ConnectError is returned by Connect when no session could be established.
type ConnectError struct {
	Servers []string
	Err     error
}

func (e *ConnectError) Error() string {
	return "connect " + strings.Join(e.Servers, ",") + ": " + e.Err.Error()
}

func (e *ConnectError) Unwrap() error { return e.Err }
