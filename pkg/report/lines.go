package report

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/bytedance/sonic"

	"github.com/amirimatin/zkping/pkg/probe"
)

// Text writes the two classic lines per cycle:
//
//	RUOK PING - sequence_id: 1 - error: none - ruok_time: 1.23 ms
//	CRUD PING - sequence_id: 1 - znode_name: /zkping-... - create_error: none - create_time: 2.34 ms - ...
type Text struct {
	mu sync.Mutex
	w  io.Writer
}

func NewText(w io.Writer) *Text { return &Text{w: w} }

// FormatText renders rep without writing it.
func FormatText(rep probe.CycleReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "RUOK PING - sequence_id: %d - error: %s - ruok_time: %.2f ms\n",
		rep.Sequence, rep.Liveness.Detail(), rep.Liveness.Millis())
	fmt.Fprintf(&b, "CRUD PING - sequence_id: %d - znode_name: %s", rep.Sequence, rep.Crud.Node)
	for _, op := range probe.Ops {
		o := rep.Crud.Outcome(op)
		fmt.Fprintf(&b, " - %s_error: %s - %s_time: %.2f ms", op, o.Detail(), op, o.Millis())
	}
	b.WriteByte('\n')
	return b.String()
}

func (t *Text) Report(_ context.Context, rep probe.CycleReport) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := io.WriteString(t.w, FormatText(rep))
	return err
}

// JSON writes one JSON object per cycle.
type JSON struct {
	mu sync.Mutex
	w  io.Writer
}

func NewJSON(w io.Writer) *JSON { return &JSON{w: w} }

func (j *JSON) Report(_ context.Context, rep probe.CycleReport) error {
	b, err := sonic.ConfigStd.Marshal(NewView(rep))
	if err != nil {
		return fmt.Errorf("encode report %d: %w", rep.Sequence, err)
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	_, err = j.w.Write(append(b, '\n'))
	return err
}

// ForFormat returns the line reporter for format ("text" or "json").
func ForFormat(format string, w io.Writer) (Reporter, error) {
	switch format {
	case "", "text":
		return NewText(w), nil
	case "json":
		return NewJSON(w), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}
