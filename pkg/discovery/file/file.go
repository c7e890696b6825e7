package file

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/amirimatin/zkping/pkg/discovery"
)

// Options configures file/ENV-based discovery.
type Options struct {
	// Path to a file (or glob) containing one server per line or a comma-separated list.
	Path string
	// Env overrides the file when the variable is set and non-empty.
	Env string
}

type impl struct {
	opts Options
}

func New(opts Options) discovery.Discovery { return &impl{opts: opts} }

func (i *impl) Servers(context.Context) ([]string, error) {
	if i.opts.Env != "" {
		if v := strings.TrimSpace(os.Getenv(i.opts.Env)); v != "" {
			return discovery.NormalizeAll(splitList(v))
		}
	}
	if i.opts.Path == "" {
		return nil, fmt.Errorf("file discovery: no path and %q unset", i.opts.Env)
	}
	matches, err := filepath.Glob(i.opts.Path)
	if err != nil {
		return nil, fmt.Errorf("file discovery: %w", err)
	}
	if len(matches) == 0 {
		matches = []string{i.opts.Path}
	}
	var all []string
	for _, m := range matches {
		entries, err := loadFile(m)
		if err != nil {
			return nil, fmt.Errorf("file discovery: %w", err)
		}
		all = append(all, entries...)
	}
	return discovery.NormalizeAll(all)
}

func loadFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []string
	s := bufio.NewScanner(f)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, splitList(line)...)
	}
	return out, s.Err()
}

func splitList(csv string) []string {
	var out []string
	for _, p := range strings.Split(csv, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
