package threshold

import (
	"testing"

	"github.com/filerstat/filerstat/internal/counter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustRule(t *testing.T, s string) Rule {
	t.Helper()
	r, err := ParseRule(s)
	require.NoError(t, err)
	return r
}

func TestEvaluate(t *testing.T) {
	e := NewEvaluator(
		[]Rule{mustRule(t, "total_ops=0:1000")},
		[]Rule{mustRule(t, "total_ops=0:2000"), mustRule(t, "cpu_busy=0:90")},
	)

	out := e.Evaluate([]counter.Result{
		{Name: "total_ops", Value: 1500},
		{Name: "cpu_busy", Value: 50},
		{Name: "unmatched", Value: 1e12},
	})

	require.Len(t, out.Warnings, 1)
	assert.Contains(t, out.Warnings[0], "total_ops=1500.00")
	assert.Empty(t, out.Criticals)
}

func TestEvaluateBothRetained(t *testing.T) {
	e := NewEvaluator(
		[]Rule{mustRule(t, "cpu_busy=0:50")},
		[]Rule{mustRule(t, "cpu_busy=0:80")},
	)

	out := e.Evaluate([]counter.Result{{Name: "cpu_busy", Value: 95}})
	assert.Len(t, out.Warnings, 1)
	assert.Len(t, out.Criticals, 1)
}

func TestEvaluateSkipsText(t *testing.T) {
	e := NewEvaluator(nil, []Rule{mustRule(t, "version=0:1")})

	out := e.Evaluate([]counter.Result{{Name: "version", IsText: true, Text: "9.14"}})
	assert.Empty(t, out.Criticals)
}

func TestParseRuleInvalid(t *testing.T) {
	_, err := ParseRule("no-equals-sign")
	assert.Error(t, err)

	_, err = ParseRule("=10:20")
	assert.Error(t, err)

	_, err = ParseRule("metric=bogus")
	assert.Error(t, err)
}
