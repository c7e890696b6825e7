package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirimatin/zkping/pkg/config"
	"github.com/amirimatin/zkping/pkg/transport"
	httpjson "github.com/amirimatin/zkping/pkg/transport/httpjson"
)

func execute(args ...string) (string, error) {
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 2, ExitCode(config.Errorf("quorum", "no servers given")))
	assert.Equal(t, 1, ExitCode(errors.New("bind: address in use")))
}

func TestMissingQuorumIsConfigError(t *testing.T) {
	_, err := execute()
	require.Error(t, err)
	assert.Equal(t, 2, ExitCode(err))
}

func TestBadTimeoutIsConfigError(t *testing.T) {
	_, err := execute("--quorum", "zk1:2181", "--timeout", "0")
	require.Error(t, err)
	assert.Equal(t, 2, ExitCode(err))
}

func TestBoundedRunPrintsTwoLinesPerCycle(t *testing.T) {
	out, err := execute("--quorum", "127.0.0.1:1", "--count", "1", "--interval", "1ms", "--timeout", "2", "--log-level", "error")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "RUOK PING - sequence_id: 1 - "))
	assert.True(t, strings.HasPrefix(lines[1], "CRUD PING - sequence_id: 1 - znode_name: /zkping-"))
}

func TestStatusCommand(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv := httpjson.NewServer("127.0.0.1:0", nil)
	require.NoError(t, srv.Start(ctx, transport.Handlers{Status: func(context.Context) ([]byte, error) {
		return []byte(`{"sequence_id":4}`), nil
	}}))
	defer srv.Stop(context.Background())

	out, err := execute("status", "--addr", srv.Addr(), "--timeout", time.Second.String())
	require.NoError(t, err)
	assert.Equal(t, "{\"sequence_id\":4}\n", out)
}

func TestStatusUnknownProto(t *testing.T) {
	_, err := execute("status", "--mgmt-proto", "udp")
	assert.Equal(t, 2, ExitCode(err))
}

func TestMalformedFlagIsConfigError(t *testing.T) {
	_, err := execute("--quorum", "zk1", "--timeout", "thirty")
	require.Error(t, err)
	assert.Equal(t, 2, ExitCode(err))
}
