package grid

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/template"
)

// ErrRuleUnmatched reports a patch rule that matched no line.
var ErrRuleUnmatched = errors.New("patch rule matched no line")

// Rule replaces any line containing Match with Replace.
type Rule struct {
	Match   string
	Replace string
}

// Patcher rewrites text line by line. For each line the first rule whose
// Match occurs in it wins and the whole line becomes Replace; the line
// terminator is kept. Lines no rule matches are copied byte for byte.
type Patcher struct {
	Rules []Rule
}

// PatchResult counts matched lines per rule, indexed like Patcher.Rules.
type PatchResult struct {
	Lines int
	Hits  []int
}

// Unmatched returns the rules that matched no line.
func (r PatchResult) Unmatched(rules []Rule) []Rule {
	var out []Rule
	for i, n := range r.Hits {
		if n == 0 {
			out = append(out, rules[i])
		}
	}
	return out
}

// Patch copies r to w applying the rules.
func (p *Patcher) Patch(r io.Reader, w io.Writer) (PatchResult, error) {
	res := PatchResult{Hits: make([]int, len(p.Rules))}
	reader := bufio.NewReader(r)
	writer := bufio.NewWriter(w)
	for {
		line, err := reader.ReadString('\n')
		if len(line) > 0 {
			res.Lines++
			if _, werr := writer.WriteString(p.apply(line, res.Hits)); werr != nil {
				return res, werr
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return res, err
		}
	}
	return res, writer.Flush()
}

func (p *Patcher) apply(line string, hits []int) string {
	body, eol := splitEOL(line)
	for i, rule := range p.Rules {
		if strings.Contains(body, rule.Match) {
			hits[i]++
			return rule.Replace + eol
		}
	}
	return line
}

func splitEOL(line string) (body, eol string) {
	switch {
	case strings.HasSuffix(line, "\r\n"):
		return line[:len(line)-2], "\r\n"
	case strings.HasSuffix(line, "\n"):
		return line[:len(line)-1], "\n"
	default:
		return line, ""
	}
}

// PatchFile rewrites path in place, keeping its permissions.
func (p *Patcher) PatchFile(path string) (PatchResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return PatchResult{}, fmt.Errorf("patching %s: %w", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return PatchResult{}, fmt.Errorf("patching %s: %w", path, err)
	}

	var buf bytes.Buffer
	res, err := p.Patch(bytes.NewReader(data), &buf)
	if err != nil {
		return res, fmt.Errorf("patching %s: %w", path, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), info.Mode().Perm()); err != nil {
		return res, fmt.Errorf("writing patched %s: %w", path, err)
	}
	return res, nil
}

// RenderRules expands each rule's Replace template with v.
func RenderRules(rules []RuleConfig, v Values) ([]Rule, error) {
	out := make([]Rule, len(rules))
	for i, rc := range rules {
		tmpl, err := template.New("rule").Option("missingkey=error").Parse(rc.Replace)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, v); err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		out[i] = Rule{Match: rc.Match, Replace: buf.String()}
	}
	return out, nil
}
