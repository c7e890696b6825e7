package static

import (
	"context"
	"testing"
)

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"zk1:2181", []string{"zk1:2181"}},
		{" zk1:2181 , zk2:2181 ", []string{"zk1:2181", "zk2:2181"}},
		{",,zk1:2181, ,zk2:2181,", []string{"zk1:2181", "zk2:2181"}},
	}
	for _, c := range cases {
		got := Parse(c.in)
		if len(got) != len(c.want) {
			t.Fatalf("len mismatch for %q: got %d want %d", c.in, len(got), len(c.want))
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Fatalf("[%q] item %d: got %q want %q", c.in, i, got[i], c.want[i])
			}
		}
	}
}

func TestServersNormalizes(t *testing.T) {
	d := New(" zk1 ", "", "zk2:2182", "zk1:2181")
	got, err := d.Servers(context.Background())
	if err != nil {
		t.Fatalf("servers: %v", err)
	}
	if len(got) != 2 || got[0] != "zk1:2181" || got[1] != "zk2:2182" {
		t.Fatalf("unexpected servers: %#v", got)
	}
}

func TestServersRejectsBadPort(t *testing.T) {
	if _, err := New("zk1:http").Servers(context.Background()); err == nil {
		t.Fatal("expected error for non-numeric port")
	}
	if _, err := New("zk1:70000").Servers(context.Background()); err == nil {
		t.Fatal("expected error for out of range port")
	}
}
