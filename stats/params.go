package stats

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Parameter is one experiment parameter attached to every row of a run.
type Parameter struct {
	Name  string
	Value string
}

// Parameters is an ordered parameter set. Order defines column order in the
// output and the order of fields in the group key.
type Parameters []Parameter

// Names returns the parameter names in order.
func (p Parameters) Names() []string {
	names := make([]string, len(p))
	for i, param := range p {
		names[i] = param.Name
	}
	return names
}

// set overrides an existing parameter in place or appends a new one.
func (p Parameters) set(name, value string) Parameters {
	for i := range p {
		if p[i].Name == name {
			p[i].Value = value
			return p
		}
	}
	return append(p, Parameter{Name: name, Value: value})
}

// ParameterExtractor derives the experiment parameters of a run from its
// input file path. The returned names become group-by fields.
type ParameterExtractor interface {
	Extract(path string) (Parameters, error)
}

// ExtractorFunc adapts a function to ParameterExtractor.
type ExtractorFunc func(path string) (Parameters, error)

// Extract calls f(path).
func (f ExtractorFunc) Extract(path string) (Parameters, error) { return f(path) }

// StaticParameters attaches the same parameters to every file.
type StaticParameters Parameters

// Extract returns a copy of the static set.
func (s StaticParameters) Extract(string) (Parameters, error) {
	return append(Parameters(nil), s...), nil
}

// Chain merges the parameters of several extractors in order. A later
// extractor overrides a value from an earlier one and keeps its position.
type Chain []ParameterExtractor

// Extract implements ParameterExtractor.
func (c Chain) Extract(path string) (Parameters, error) {
	var params Parameters
	for _, e := range c {
		ps, err := e.Extract(path)
		if err != nil {
			return nil, err
		}
		for _, p := range ps {
			params = params.set(p.Name, p.Value)
		}
	}
	return params, nil
}

// PathParameters reads parameters out of directory and file names below
// Root.
//
// The path is made absolute and only the components under Root are scanned,
// so "x.csv" and "../row_1/x.csv" name the same run the same way. An empty
// Root scans every component of the absolute path.
//
// Each component (the file name without its extension included) is split on
// "__". A token "key=value" is always a parameter; a token "key_value" is one
// when value is numeric. So "row_17__tile_4/vcache_stats.csv" under Root
// yields row=17, tile=4. A key seen again deeper in the path overrides the
// value but keeps its position.
type PathParameters struct {
	Root string
}

// Extract implements ParameterExtractor.
func (p PathParameters) Extract(path string) (Parameters, error) {
	rel, err := p.relative(path)
	if err != nil {
		return nil, err
	}
	rel = filepath.ToSlash(rel)
	if ext := filepath.Ext(rel); len(ext) > 1 {
		// "row_1.5" has no extension to strip.
		if _, numeric := parseNumber(ext[1:]); !numeric {
			rel = strings.TrimSuffix(rel, ext)
		}
	}

	var params Parameters
	for _, component := range strings.Split(rel, "/") {
		for _, token := range strings.Split(component, "__") {
			if name, value, ok := parseToken(token); ok {
				params = params.set(name, value)
			}
		}
	}
	return params, nil
}

func (p PathParameters) relative(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", path, err)
	}
	if p.Root == "" {
		return strings.TrimPrefix(abs, filepath.VolumeName(abs)), nil
	}
	root, err := filepath.Abs(p.Root)
	if err != nil {
		return "", fmt.Errorf("resolving parameter root %s: %w", p.Root, err)
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is not under parameter root %s", path, p.Root)
	}
	return rel, nil
}

// withDefaultRoot fills an unset Root.
func (p PathParameters) withDefaultRoot(root string) ParameterExtractor {
	if p.Root == "" {
		p.Root = root
	}
	return p
}

func (c Chain) withDefaultRoot(root string) ParameterExtractor {
	out := make(Chain, len(c))
	for i, e := range c {
		out[i] = defaultRoot(e, root)
	}
	return out
}

// rootable extractors resolve paths against a root the Aggregator can infer.
type rootable interface {
	withDefaultRoot(root string) ParameterExtractor
}

func defaultRoot(e ParameterExtractor, root string) ParameterExtractor {
	if r, ok := e.(rootable); ok {
		return r.withDefaultRoot(root)
	}
	return e
}

// CommonRoot returns the deepest directory containing every path, made
// absolute.
func CommonRoot(paths []string) (string, error) {
	var root []string
	for i, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("resolving %s: %w", path, err)
		}
		parts := strings.Split(filepath.ToSlash(filepath.Dir(abs)), "/")
		if i == 0 {
			root = parts
			continue
		}
		n := 0
		for n < len(root) && n < len(parts) && root[n] == parts[n] {
			n++
		}
		root = root[:n]
	}
	if len(root) == 0 {
		return "", nil
	}
	joined := strings.Join(root, "/")
	if joined == "" {
		joined = "/"
	}
	return filepath.FromSlash(joined), nil
}

func parseToken(token string) (name, value string, ok bool) {
	if k, v, found := strings.Cut(token, "="); found {
		return k, v, k != ""
	}
	idx := strings.LastIndexByte(token, '_')
	if idx <= 0 || idx == len(token)-1 {
		return "", "", false
	}
	name, value = token[:idx], token[idx+1:]
	if _, ok := parseNumber(value); !ok {
		return "", "", false
	}
	return name, value, true
}
