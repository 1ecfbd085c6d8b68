// Package ratetable provides the age-by-year lookup tables that back the
// fertility and mortality rate models.
//
// Both axes use right-closed buckets: a query belongs to the bucket whose
// upper edge is the first breakpoint greater than or equal to it. Queries
// beyond either end of an axis clamp to the edge value.
package ratetable

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidTable is returned (wrapped) for every construction failure.
var ErrInvalidTable = errors.New("invalid rate table")

// Table is an immutable 2-D (age x year) rate table with a scale factor.
type Table struct {
	ages   []float64
	years  []float64
	values [][]float64 // values[age][year]
	scale  float64
}

// New validates and copies its inputs into a Table.
func New(ages, years []float64, values [][]float64, scale float64) (*Table, error) {
	if err := checkAxis("age", ages); err != nil {
		return nil, err
	}
	if err := checkAxis("year", years); err != nil {
		return nil, err
	}
	if len(values) != len(ages) {
		return nil, fmt.Errorf("%w: %d value rows for %d age breakpoints", ErrInvalidTable, len(values), len(ages))
	}
	if math.IsNaN(scale) || math.IsInf(scale, 0) || scale < 0 {
		return nil, fmt.Errorf("%w: scale factor must be a non-negative finite number, got %v", ErrInvalidTable, scale)
	}

	t := &Table{
		ages:   append([]float64(nil), ages...),
		years:  append([]float64(nil), years...),
		values: make([][]float64, len(values)),
		scale:  scale,
	}
	for i, row := range values {
		if len(row) != len(years) {
			return nil, fmt.Errorf("%w: row %d has %d values for %d year breakpoints", ErrInvalidTable, i, len(row), len(years))
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
				return nil, fmt.Errorf("%w: value [%d][%d] must be a non-negative finite number, got %v", ErrInvalidTable, i, j, v)
			}
		}
		t.values[i] = append([]float64(nil), row...)
	}
	return t, nil
}

// MustNew is New for tables known to be valid, such as test fixtures.
func MustNew(ages, years []float64, values [][]float64, scale float64) *Table {
	t, err := New(ages, years, values, scale)
	if err != nil {
		panic(err)
	}
	return t
}

// Constant returns a single-cell table that yields v for every query.
func Constant(v, scale float64) (*Table, error) {
	return New([]float64{0}, []float64{0}, [][]float64{{v}}, scale)
}

func checkAxis(name string, bps []float64) error {
	if len(bps) == 0 {
		return fmt.Errorf("%w: %s axis has no breakpoints", ErrInvalidTable, name)
	}
	for i, b := range bps {
		if math.IsNaN(b) || math.IsInf(b, 0) {
			return fmt.Errorf("%w: %s breakpoint %d is not finite", ErrInvalidTable, name, i)
		}
		if i > 0 && b < bps[i-1] {
			return fmt.Errorf("%w: %s breakpoints decrease at index %d (%v < %v)", ErrInvalidTable, name, i, b, bps[i-1])
		}
	}
	return nil
}

// ScaleFactor returns the table's scale factor. Lookups return raw values;
// callers apply the scale.
func (t *Table) ScaleFactor() float64 { return t.scale }

// AgeBreakpoints returns a copy of the age axis.
func (t *Table) AgeBreakpoints() []float64 { return append([]float64(nil), t.ages...) }

// YearBreakpoints returns a copy of the year axis.
func (t *Table) YearBreakpoints() []float64 { return append([]float64(nil), t.years...) }

// AgeBucketIndex returns the age bucket a query falls in.
func (t *Table) AgeBucketIndex(age float64) int { return bucket(t.ages, age) }

// YearBucketIndex returns the year bucket a query falls in.
func (t *Table) YearBucketIndex(year float64) int { return bucket(t.years, year) }

// Bucket returns the raw value of the cell whose age and year buckets
// contain the query, without interpolation.
func (t *Table) Bucket(age, year float64) float64 {
	return t.values[bucket(t.ages, age)][bucket(t.years, year)]
}

// AgeInterpolated interpolates linearly along the age axis within year column col.
func (t *Table) AgeInterpolated(age float64, col int) float64 {
	lo, hi, w := bracket(t.ages, age)
	return lerp(t.values[lo][col], t.values[hi][col], w)
}

// Fertility selects the year column by bucket (clamped to the last column)
// and interpolates along age within it.
func (t *Table) Fertility(age, year float64) float64 {
	return t.AgeInterpolated(age, bucket(t.years, year))
}

// Bilinear interpolates along both axes, clamping outside the table.
func (t *Table) Bilinear(age, year float64) float64 {
	alo, ahi, aw := bracket(t.ages, age)
	ylo, yhi, yw := bracket(t.years, year)
	low := lerp(t.values[alo][ylo], t.values[ahi][ylo], aw)
	high := lerp(t.values[alo][yhi], t.values[ahi][yhi], aw)
	return lerp(low, high, yw)
}

// bucket returns the index of the first breakpoint >= v, or the last index
// when v is beyond the axis.
func bucket(bps []float64, v float64) int {
	for i, b := range bps {
		if v <= b {
			return i
		}
	}
	return len(bps) - 1
}

// bracket returns the breakpoints enclosing v and the weight of hi.
// The weight is exactly 0 on a breakpoint and outside the axis.
func bracket(bps []float64, v float64) (lo, hi int, w float64) {
	i := bucket(bps, v)
	if i == 0 || v == bps[i] || v > bps[i] {
		return i, i, 0
	}
	lo = i - 1
	span := bps[i] - bps[lo]
	if span <= 0 {
		return i, i, 0
	}
	return lo, i, (v - bps[lo]) / span
}

func lerp(a, b, w float64) float64 {
	if w == 0 {
		return a
	}
	return a + (b-a)*w
}
