// Package charts renders allocation charts as SVG.
package charts

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	gocharts "github.com/vicanso/go-charts/v2"
)

const (
	pieWidth  = 800
	pieHeight = 600
)

// ErrNoData is returned when there is nothing positive to draw
var ErrNoData = errors.New("no allocation data to chart")

// Slice is one labelled share of a pie
type Slice struct {
	Label string
	Value decimal.Decimal
}

// AllocationPie renders slices as an SVG pie chart.
// Slices with a non-positive value are left out; legend labels carry the share.
func AllocationPie(title string, slices []Slice) ([]byte, error) {
	total := decimal.Zero
	kept := make([]Slice, 0, len(slices))
	for _, s := range slices {
		if s.Value.IsPositive() {
			kept = append(kept, s)
			total = total.Add(s.Value)
		}
	}
	if len(kept) == 0 {
		return nil, ErrNoData
	}

	values := make([]float64, len(kept))
	labels := make([]string, len(kept))
	for i, s := range kept {
		values[i] = s.Value.InexactFloat64()
		share := s.Value.Div(total).Shift(2).InexactFloat64()
		labels[i] = fmt.Sprintf("%s (%.1f%%)", s.Label, share)
	}

	p, err := gocharts.PieRender(
		values,
		gocharts.SVGTypeOption(),
		gocharts.TitleTextOptionFunc(title),
		gocharts.LegendOptionFunc(gocharts.LegendOption{
			Data: labels,
			Top:  gocharts.PositionTop,
		}),
		gocharts.ThemeOptionFunc(gocharts.ThemeLight),
		gocharts.WidthOptionFunc(pieWidth),
		gocharts.HeightOptionFunc(pieHeight),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render pie chart: %w", err)
	}

	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to encode pie chart: %w", err)
	}
	return buf, nil
}
