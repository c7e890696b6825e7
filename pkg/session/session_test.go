package session

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func closedAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

// fakeFLW answers every connection with reply after reading the word.
func fakeFLW(t *testing.T, reply string) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				buf := make([]byte, 4)
				if _, err := io.ReadFull(c, buf); err != nil {
					return
				}
				if reply != "" {
					_, _ = io.WriteString(c, reply)
				}
			}(c)
		}
	}()
	return ln.Addr().String()
}

func TestNewZKValidates(t *testing.T) {
	_, err := NewZK(Config{})
	assert.ErrorIs(t, err, ErrNoServers)

	z, err := NewZK(Config{Servers: []string{"zk1:2181"}})
	require.NoError(t, err)
	cfg := z.Config()
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
	assert.True(t, cfg.ConnectRetry.Disabled())
	assert.True(t, cfg.CommandRetry.Disabled())
}

func TestConfigIsCopied(t *testing.T) {
	servers := []string{"zk1:2181"}
	z, err := NewZK(Config{Servers: servers})
	require.NoError(t, err)
	servers[0] = "changed:1"
	assert.Equal(t, "zk1:2181", z.Config().Servers[0])
}

func TestRetryPolicy(t *testing.T) {
	assert.Equal(t, 1, NoRetry.Attempts())
	assert.Equal(t, 1, RetryPolicy{MaxRetries: -3}.Attempts())
	assert.Equal(t, 3, RetryPolicy{MaxRetries: 2}.Attempts())
	assert.Equal(t, 3, NoRetry.connectBudget(3))
	assert.Equal(t, 1, NoRetry.connectBudget(0))
	assert.Equal(t, 6, RetryPolicy{MaxRetries: 1}.connectBudget(3))
}

func TestConnectRefusedFailsWithoutRetry(t *testing.T) {
	addr := closedAddr(t)
	z, err := NewZK(Config{Servers: []string{addr}, Timeout: 10 * time.Second})
	require.NoError(t, err)

	start := time.Now()
	conn, err := z.Connect(context.Background())
	require.Error(t, err)
	assert.Nil(t, conn)
	assert.Less(t, time.Since(start), 5*time.Second, "no-retry connect should give up after one pass")

	var ce *ConnectError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, []string{addr}, ce.Servers)
	assert.ErrorIs(t, err, ErrAttemptsSpent)
	assert.Contains(t, err.Error(), "refused")
}

func TestConnectHonoursContext(t *testing.T) {
	z, err := NewZK(Config{Servers: []string{closedAddr(t)}, Timeout: 10 * time.Second, ConnectRetry: RetryPolicy{MaxRetries: 1000}})
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_, err = z.Connect(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFourLetterWord(t *testing.T) {
	z, err := NewZK(Config{Servers: []string{"unused:2181"}, Timeout: 2 * time.Second})
	require.NoError(t, err)

	reply, err := z.FourLetterWord(context.Background(), fakeFLW(t, "imok"), "ruok")
	require.NoError(t, err)
	assert.Equal(t, "imok", reply)

	reply, err = z.FourLetterWord(context.Background(), fakeFLW(t, ""), "ruok")
	require.NoError(t, err)
	assert.Empty(t, reply)

	_, err = z.FourLetterWord(context.Background(), closedAddr(t), "ruok")
	assert.Error(t, err)
}
