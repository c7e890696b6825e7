package discovery

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		in, want string
		bad      bool
	}{
		{in: "zk1:2181", want: "zk1:2181"},
		{in: " zk1 ", want: "zk1:2181"},
		{in: "10.0.0.1", want: "10.0.0.1:2181"},
		{in: "[::1]:2182", want: "[::1]:2182"},
		{in: "::1", bad: true},
		{in: ":2181", bad: true},
		{in: "zk1:0", bad: true},
		{in: "", bad: true},
	}
	for _, c := range cases {
		got, err := Normalize(c.in)
		if c.bad {
			if err == nil {
				t.Fatalf("Normalize(%q) = %q, want error", c.in, got)
			}
			continue
		}
		if err != nil || got != c.want {
			t.Fatalf("Normalize(%q) = %q, %v; want %q", c.in, got, err, c.want)
		}
	}
}

func TestNormalizeAllDedups(t *testing.T) {
	got, err := NormalizeAll([]string{"a", "a:2181", "b:1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != "a:2181" || got[1] != "b:1" {
		t.Fatalf("unexpected: %#v", got)
	}
}
