package counter

import (
	"testing"

	"github.com/filerstat/filerstat/internal/filer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func processorMetas() []filer.CounterMeta {
	return []filer.CounterMeta{
		{Name: "domain_busy", Properties: "percent", Type: "array",
			Labels: []string{"idle", "kahuna", "network", "storage"}, BaseCounter: "processor_elapsed_time"},
		{Name: "processor_busy", Properties: "percent", BaseCounter: "processor_elapsed_time"},
		{Name: "processor_elapsed_time", Properties: "nodisplay"},
	}
}

func TestExpandProcessor(t *testing.T) {
	processors := []string{"processor0", "processor1", "processor2"}
	descs := ExpandProcessor(processorMetas(), processors)

	// 3 processors × (4 labels + 2 plain counters)
	assert.Len(t, descs, 18)

	d, ok := descs["processor0_domain_busy_kahuna"]
	require.True(t, ok)
	assert.Equal(t, KindPercent, d.Kind)
	assert.Equal(t, "processor0_processor_elapsed_time", d.Base)

	d, ok = descs["processor2_processor_busy"]
	require.True(t, ok)
	assert.Equal(t, "processor2_processor_elapsed_time", d.Base)

	// The base counter itself is cloned per processor without a base.
	d, ok = descs["processor1_processor_elapsed_time"]
	require.True(t, ok)
	assert.Equal(t, KindNoDisplay, d.Kind)
	assert.Empty(t, d.Base)
}

func TestExpandProcessorIdempotent(t *testing.T) {
	processors := []string{"processor0", "processor1"}

	first := ExpandProcessor(processorMetas(), processors)
	second := ExpandProcessor(processorMetas(), processors)
	assert.Equal(t, first, second)

	// Feeding already-expanded descriptors back in changes nothing.
	var expanded []filer.CounterMeta
	for _, d := range first {
		expanded = append(expanded, filer.CounterMeta{
			Name:        d.Name,
			Properties:  d.Kind.String(),
			Unit:        d.Unit,
			BaseCounter: d.Base,
		})
	}
	third := ExpandProcessor(expanded, processors)
	assert.Equal(t, first, third)
}
