package options

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"budgetfilter/internal/dimension"
)

// Static serves options from memory.
type Static struct {
	mu   sync.RWMutex
	opts map[dimension.Field][]dimension.Option
}

// NewStatic returns a source over catalog. Duplicate codes keep their first
// occurrence.
func NewStatic(catalog Catalog) *Static {
	s := &Static{opts: make(map[dimension.Field][]dimension.Option, len(catalog))}
	for field, opts := range catalog {
		s.opts[field] = dedupe(opts)
	}
	return s
}

// NewStaticFromDir seeds a source from <dir>/<field>.txt files with one
// "code|label" entry per line. Blank lines and lines starting with # are
// skipped; a line without a label uses the code as label. Missing files
// leave the field empty.
func NewStaticFromDir(dir string, fields []dimension.Field) *Static {
	catalog := make(Catalog, len(fields))
	for _, field := range fields {
		catalog[field] = readOptionFile(filepath.Join(dir, string(field)+".txt"))
	}
	return NewStatic(catalog)
}

// Options returns a copy of the field's options; unknown fields yield none.
func (s *Static) Options(_ context.Context, field dimension.Field) ([]dimension.Option, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]dimension.Option{}, s.opts[field]...), nil
}

// Replace swaps the options of one field.
func (s *Static) Replace(field dimension.Field, opts []dimension.Option) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opts[field] = dedupe(opts)
}

func readOptionFile(path string) []dimension.Option {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var out []dimension.Option
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		code, label, _ := strings.Cut(line, "|")
		code, label = strings.TrimSpace(code), strings.TrimSpace(label)
		if label == "" {
			label = code
		}
		out = append(out, dimension.Option{Code: code, Label: label})
	}
	return out
}

func dedupe(in []dimension.Option) []dimension.Option {
	seen := make(map[string]struct{}, len(in))
	out := make([]dimension.Option, 0, len(in))
	for _, o := range in {
		o.Code = strings.TrimSpace(o.Code)
		if o.Code == "" {
			continue
		}
		if _, ok := seen[o.Code]; ok {
			continue
		}
		seen[o.Code] = struct{}{}
		out = append(out, o)
	}
	return out
}
