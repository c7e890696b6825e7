package grpc

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/amirimatin/zkping/pkg/transport"
)

func TestManagementRoundTrip(t *testing.T) {
	var body atomic.Value
	h := transport.Handlers{Status: func(context.Context) ([]byte, error) {
		b, _ := body.Load().([]byte)
		if b == nil {
			return nil, transport.ErrNoStatus
		}
		return b, nil
	}}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := NewServer("127.0.0.1:0", nil)
	require.NoError(t, s.Start(ctx, h))
	defer s.Stop(context.Background())

	c := NewClient(2 * time.Second)
	_, err := c.GetStatus(context.Background(), s.Addr())
	require.Error(t, err)
	assert.Equal(t, codes.Unavailable, status.Code(err))

	body.Store([]byte(`{"sequence_id":7}`))
	b, err := c.GetStatus(context.Background(), s.Addr())
	require.NoError(t, err)
	assert.JSONEq(t, `{"sequence_id":7}`, string(b))
}

func TestHealthServiceFollowsSetServing(t *testing.T) {
	var healthy atomic.Bool
	h := transport.Handlers{
		Status: func(context.Context) ([]byte, error) { return []byte(`{}`), nil },
		Health: healthy.Load,
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := NewServer("127.0.0.1:0", nil)
	require.NoError(t, s.Start(ctx, h))
	defer s.Stop(context.Background())

	c := NewClient(2 * time.Second)
	ok, err := c.Check(context.Background(), s.Addr())
	require.NoError(t, err)
	assert.False(t, ok)

	s.SetServing(true)
	ok, err = c.Check(context.Background(), s.Addr())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestJSONCodec(t *testing.T) {
	b, err := jsonCodec{}.Marshal(&statusBlob{Data: []byte("hi")})
	require.NoError(t, err)
	var out statusBlob
	require.NoError(t, jsonCodec{}.Unmarshal(b, &out))
	assert.Equal(t, "hi", string(out.Data))
	assert.Equal(t, "json", jsonCodec{}.Name())
}
