package threshold

import (
	"fmt"
	"strings"

	"github.com/filerstat/filerstat/internal/counter"
)

// Rule binds one metric name to an alerting range.
type Rule struct {
	Metric string
	Range  *Range
}

// ParseRule parses an operator-supplied "metric=range" pair.
func ParseRule(s string) (Rule, error) {
	name, spec, found := strings.Cut(s, "=")
	if !found || name == "" {
		return Rule{}, fmt.Errorf("invalid threshold rule %q: want metric=range", s)
	}
	r, err := ParseRange(spec)
	if err != nil {
		return Rule{}, err
	}
	return Rule{Metric: name, Range: r}, nil
}

// ParseRules parses a list of "metric=range" pairs.
func ParseRules(specs []string) ([]Rule, error) {
	rules := make([]Rule, 0, len(specs))
	for _, s := range specs {
		r, err := ParseRule(s)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// Outcome holds the violation messages of one evaluation pass. A metric
// may appear in both lists; critical wins for the overall status but both
// messages are kept for the report.
type Outcome struct {
	Warnings  []string
	Criticals []string
}

// Evaluator matches derived metrics against warning and critical rules.
// Metrics without a matching rule are not evaluated.
type Evaluator struct {
	warning  []Rule
	critical []Rule
}

// NewEvaluator creates an evaluator over the given rule sets.
func NewEvaluator(warning, critical []Rule) *Evaluator {
	return &Evaluator{warning: warning, critical: critical}
}

// Evaluate checks every numeric metric against both rule sets.
func (e *Evaluator) Evaluate(metrics []counter.Result) Outcome {
	var out Outcome
	for _, m := range metrics {
		if m.IsText {
			continue
		}
		for _, rule := range e.critical {
			if rule.Metric == m.Name && rule.Range.Violated(m.Value) {
				out.Criticals = append(out.Criticals, violationMessage(m, rule))
			}
		}
		for _, rule := range e.warning {
			if rule.Metric == m.Name && rule.Range.Violated(m.Value) {
				out.Warnings = append(out.Warnings, violationMessage(m, rule))
			}
		}
	}
	return out
}

func violationMessage(m counter.Result, rule Rule) string {
	verb := "outside"
	if rule.Range.Inside {
		verb = "inside"
	}
	return fmt.Sprintf("%s=%.2f %s range %s", m.Name, m.Value, verb, rule.Range)
}
