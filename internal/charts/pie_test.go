package charts

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocationPie_RendersSVG(t *testing.T) {
	buf, err := AllocationPie("Allocations by asset", []Slice{
		{Label: "Treasury Bond", Value: decimal.NewFromInt(300)},
		{Label: "Gold", Value: decimal.NewFromInt(100)},
		{Label: "Empty", Value: decimal.Zero},
	})
	require.NoError(t, err)

	svg := string(buf)
	assert.Contains(t, svg, "<svg")
	assert.Contains(t, svg, "Treasury Bond (75.0%)")
	assert.Contains(t, svg, "Gold (25.0%)")
	assert.NotContains(t, svg, "Empty")
}

func TestAllocationPie_NoData(t *testing.T) {
	_, err := AllocationPie("nothing", nil)
	assert.ErrorIs(t, err, ErrNoData)

	_, err = AllocationPie("zeros", []Slice{{Label: "a", Value: decimal.Zero}})
	assert.ErrorIs(t, err, ErrNoData)
}
