package probe

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirimatin/zkping/pkg/session"
)

var errRefused = errors.New("dial tcp 10.0.0.1:2181: connect: connection refused")

func TestLivenessClassification(t *testing.T) {
	cases := []struct {
		name     string
		fake     *fakeSession
		kind     Kind
		sentinel error
		closes   int
	}{
		{"imok", &fakeSession{reply: "imok"}, KindSuccess, nil, 1},
		{"other reply", &fakeSession{reply: "ruok is not executed because it is not in the whitelist."}, KindFailure, ErrUnhealthyReply, 1},
		{"command error", &fakeSession{commandErr: errors.New("i/o timeout")}, KindIndeterminate, ErrNoReply, 1},
		{"empty reply", &fakeSession{reply: ""}, KindIndeterminate, ErrNoReply, 1},
		{"connect refused", &fakeSession{connectErr: errRefused}, KindFailure, errRefused, 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			out := Liveness{Session: c.fake}.Run(context.Background())
			assert.Equal(t, c.kind, out.Kind)
			assert.GreaterOrEqual(t, out.Elapsed, time.Duration(0))
			if c.sentinel == nil {
				assert.NoError(t, out.Err)
				assert.Equal(t, NoError, out.Detail())
			} else {
				assert.ErrorIs(t, out.Err, c.sentinel)
			}
			assert.Equal(t, c.fake.connects, c.fake.closes, "close must pair with a successful connect")
			assert.Equal(t, c.closes, c.fake.closes)
		})
	}
}

func TestLivenessUnhealthyKeepsElapsedButReportsZero(t *testing.T) {
	out := Liveness{Session: &fakeSession{reply: "nope"}}.Run(context.Background())
	require.Equal(t, KindFailure, out.Kind)
	assert.Zero(t, out.ReportedElapsed())
	assert.Contains(t, out.Detail(), `"nope"`)
}

func TestLivenessSendsRuok(t *testing.T) {
	f := &fakeSession{reply: "imok"}
	Liveness{Session: f}.Run(context.Background())
	assert.Equal(t, []string{"connect", "command:ruok", "close"}, f.calls)
}

func TestNodePath(t *testing.T) {
	assert.Equal(t, "/zkping-ABC", NodePath("/", "ABC"))
	assert.Equal(t, "/probes/zkping-ABC", NodePath("/probes", "ABC"))
	assert.Equal(t, "/probes/zkping-ABC", NodePath("/probes/", "ABC"))
	assert.Equal(t, "/a/b/zkping-ABC", NodePath("/a/b", "ABC"))
	for _, root := range []string{"/", "/probes", "/a/b/"} {
		assert.NotContains(t, NodePath(root, RandomSuffix()), "//")
	}
}

func TestRandomSuffix(t *testing.T) {
	re := regexp.MustCompile(`^[A-Z0-9]{16}$`)
	seen := make(map[string]struct{})
	for i := 0; i < 10000; i++ {
		s := RandomSuffix()
		require.Regexp(t, re, s)
		_, dup := seen[s]
		require.False(t, dup, "duplicate suffix %s", s)
		seen[s] = struct{}{}
	}
}

func TestCrudHappyPath(t *testing.T) {
	f := &fakeSession{}
	res := Crud{Session: f, Root: "/probes", Suffix: func() string { return "AB12CD34EF56GH78" }}.Run(context.Background())

	assert.Equal(t, "/probes/zkping-AB12CD34EF56GH78", res.Node)
	require.Len(t, res.Outcomes, 4)
	for _, op := range Ops {
		o := res.Outcome(op)
		assert.Equal(t, KindSuccess, o.Kind, op)
		assert.GreaterOrEqual(t, o.Elapsed, time.Duration(0))
	}
	assert.Equal(t, []string{
		"connect", "create", "close",
		"connect", "read", "close",
		"connect", "update", "close",
		"connect", "delete", "close",
	}, f.calls)
	assert.Equal(t, []byte(UpdatePayload), f.written)
	for _, p := range f.paths {
		assert.Equal(t, res.Node, p)
	}
}

func TestCrudDefaultRoot(t *testing.T) {
	res := Crud{Session: &fakeSession{}}.Run(context.Background())
	assert.True(t, strings.HasPrefix(res.Node, "/zkping-"), res.Node)
	assert.Len(t, res.Node, len("/zkping-")+SuffixLen)
}

func TestCrudStepsAreIndependent(t *testing.T) {
	createErr := errors.New("zk: not authenticated")
	f := &fakeSession{opErr: map[string]error{"create": createErr, "read": errors.New("zk: node does not exist")}}
	res := Crud{Session: f, Root: "/"}.Run(context.Background())

	assert.Equal(t, KindFailure, res.Outcome(OpCreate).Kind)
	assert.ErrorIs(t, res.Outcome(OpCreate).Err, createErr)
	assert.Zero(t, res.Outcome(OpCreate).Millis())
	assert.Equal(t, KindFailure, res.Outcome(OpRead).Kind)
	assert.Equal(t, KindSuccess, res.Outcome(OpUpdate).Kind)
	assert.Equal(t, KindSuccess, res.Outcome(OpDelete).Kind)
	assert.Equal(t, 4, f.connects)
	assert.Equal(t, 4, f.closes, "close runs even when the operation failed")
}

func TestCrudConnectFailureSkipsOnlyThatStep(t *testing.T) {
	f := &fakeSession{connectErrs: []error{nil, errRefused}}
	res := Crud{Session: f}.Run(context.Background())

	assert.Equal(t, KindSuccess, res.Outcome(OpCreate).Kind)
	assert.Equal(t, KindFailure, res.Outcome(OpRead).Kind)
	var ce *session.ConnectError
	assert.ErrorAs(t, res.Outcome(OpRead).Err, &ce)
	assert.Equal(t, KindSuccess, res.Outcome(OpUpdate).Kind)
	assert.Equal(t, KindSuccess, res.Outcome(OpDelete).Kind)
	assert.Equal(t, 3, f.connects)
	assert.Equal(t, 3, f.closes)
	assert.NotContains(t, f.calls, "read")
}

func TestEngineUnreachableQuorum(t *testing.T) {
	f := &fakeSession{connectErr: errRefused}
	e := NewEngine(f, Options{Root: "/probes"})
	rep := e.RunCycle(context.Background(), 7)

	assert.Equal(t, uint64(7), rep.Sequence)
	assert.Equal(t, e.RunID(), rep.RunID)
	assert.Equal(t, KindFailure, rep.Liveness.Kind)
	assert.Zero(t, rep.Liveness.Millis())
	assert.Contains(t, rep.Liveness.Detail(), "connection refused")
	assert.True(t, strings.HasPrefix(rep.Crud.Node, "/probes/zkping-"))
	for _, op := range Ops {
		o := rep.Crud.Outcome(op)
		assert.Equal(t, KindFailure, o.Kind, op)
		assert.ErrorIs(t, o.Err, errRefused)
		assert.Zero(t, o.Millis())
	}
	assert.Zero(t, f.closes)
}

func TestEngineHealthyEnsemble(t *testing.T) {
	f := &fakeSession{reply: "imok"}
	rep := NewEngine(f, Options{Root: "/probes", RunID: "run-1"}).RunCycle(context.Background(), 1)

	assert.Equal(t, "run-1", rep.RunID)
	assert.True(t, rep.Liveness.OK())
	for _, op := range Ops {
		assert.True(t, rep.Crud.Outcome(op).OK(), op)
	}
	assert.Equal(t, 5, f.connects)
	assert.Equal(t, 5, f.closes)
	assert.False(t, rep.Started.IsZero())
}

func TestNewRunIDIsUnique(t *testing.T) {
	a, b := NewRunID(), NewRunID()
	assert.Len(t, a, 26)
	assert.NotEqual(t, a, b)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "success", KindSuccess.String())
	assert.Equal(t, "indeterminate", KindIndeterminate.String())
	assert.Equal(t, "failure", KindFailure.String())
	assert.Equal(t, "kind(9)", Kind(9).String())
}
