package lineplugin

import (
	"fmt"
	"regexp"
	"slices"
)

const (
	ruleStatePresent = "present"
	ruleStateAbsent  = "absent"

	onMultipleFirst = "first"
	onMultipleAll   = "all"
	onMultipleError = "error"
)

// Rule keeps one line in the file. Lines matching Match are replaced by Line;
// when nothing matches, Line is appended unless already present. With state
// absent every matching line is removed instead.
type Rule struct {
	Match string `yaml:"match,omitempty"`
	Line  string `yaml:"line,omitempty"`
	State string `yaml:"state,omitempty" validate:"omitempty,oneof=present absent"`

	pattern *regexp.Regexp
}

func (r *Rule) compile() error {
	if r.State == "" {
		r.State = ruleStatePresent
	}
	if r.State == ruleStatePresent && r.Line == "" {
		return fmt.Errorf("line is required")
	}
	if r.Match == "" {
		if r.State == ruleStateAbsent {
			return fmt.Errorf("match is required when state is absent")
		}
		return nil
	}
	pattern, err := regexp.Compile(r.Match)
	if err != nil {
		return fmt.Errorf("invalid match pattern: %w", err)
	}
	r.pattern = pattern
	return nil
}

func findMatches(lines []string, pattern *regexp.Regexp) []int {
	if pattern == nil {
		return nil
	}
	var idx []int
	for i, line := range lines {
		if pattern.MatchString(line) {
			idx = append(idx, i)
		}
	}
	return idx
}

// apply returns lines with rule applied. The input slice is not modified.
func (r *Rule) apply(lines []string, onMultiple string) ([]string, error) {
	matches := findMatches(lines, r.pattern)

	if r.State == ruleStateAbsent {
		if len(matches) == 0 {
			return lines, nil
		}
		out := make([]string, 0, len(lines)-len(matches))
		for i, line := range lines {
			if !slices.Contains(matches, i) {
				out = append(out, line)
			}
		}
		return out, nil
	}

	if len(matches) == 0 {
		if slices.Contains(lines, r.Line) {
			return lines, nil
		}
		return append(slices.Clone(lines), r.Line), nil
	}

	out := slices.Clone(lines)
	switch onMultiple {
	case onMultipleError:
		if len(matches) > 1 {
			return nil, fmt.Errorf("%d lines match %q", len(matches), r.Match)
		}
		out[matches[0]] = r.Line
	case onMultipleFirst:
		out[matches[0]] = r.Line
	default:
		for _, i := range matches {
			out[i] = r.Line
		}
	}
	return out, nil
}

func applyRules(lines []string, rules []Rule, onMultiple string) ([]string, error) {
	var err error
	for i := range rules {
		if lines, err = rules[i].apply(lines, onMultiple); err != nil {
			return nil, fmt.Errorf("rules[%d]: %w", i, err)
		}
	}
	return lines, nil
}
