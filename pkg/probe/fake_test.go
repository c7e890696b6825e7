package probe

import (
	"context"
	"errors"
	"sync"

	"github.com/amirimatin/zkping/pkg/session"
)

// fakeSession is a scripted session.Connector recording every call.
type fakeSession struct {
	mu sync.Mutex

	connectErr  error
	connectErrs []error // consumed one per Connect before connectErr applies
	reply       string
	commandErr  error
	opErr       map[string]error

	connects, closes int
	calls            []string
	paths            []string
	written          []byte
}

func (f *fakeSession) Connect(context.Context) (session.Conn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var err error
	if len(f.connectErrs) > 0 {
		err, f.connectErrs = f.connectErrs[0], f.connectErrs[1:]
	} else {
		err = f.connectErr
	}
	if err != nil {
		f.calls = append(f.calls, "connect-failed")
		return nil, &session.ConnectError{Servers: []string{"zk:2181"}, Err: err}
	}
	f.connects++
	f.calls = append(f.calls, "connect")
	return &fakeConn{f: f}, nil
}

func (f *fakeSession) record(call, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	if path != "" {
		f.paths = append(f.paths, path)
	}
	return f.opErr[call]
}

type fakeConn struct {
	f      *fakeSession
	closed bool
}

func (c *fakeConn) Command(_ context.Context, word string) (string, error) {
	if err := c.f.record("command:"+word, ""); err != nil {
		return "", err
	}
	return c.f.reply, c.f.commandErr
}

func (c *fakeConn) EnsurePath(_ context.Context, p string) error { return c.f.record("create", p) }

func (c *fakeConn) Get(_ context.Context, p string) ([]byte, session.Stat, error) {
	return nil, session.Stat{}, c.f.record("read", p)
}

func (c *fakeConn) Set(_ context.Context, p string, data []byte) error {
	c.f.mu.Lock()
	c.f.written = append([]byte(nil), data...)
	c.f.mu.Unlock()
	return c.f.record("update", p)
}

func (c *fakeConn) Delete(_ context.Context, p string) error { return c.f.record("delete", p) }

func (c *fakeConn) Close() error {
	if c.closed {
		return errors.New("double close")
	}
	c.closed = true
	c.f.mu.Lock()
	c.f.closes++
	c.f.calls = append(c.f.calls, "close")
	c.f.mu.Unlock()
	return nil
}
