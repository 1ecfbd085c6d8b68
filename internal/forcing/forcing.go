// Package forcing provides seasonal multipliers applied to aggregate birth rates.
package forcing

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/nvandessel/vitaldyn/internal/constants"
)

// ErrInvalidForcing is returned (wrapped) for unusable forcing parameters.
var ErrInvalidForcing = errors.New("invalid time forcing")

// Kind names a forcing function in configuration.
type Kind string

const (
	KindNone       Kind = "NONE"
	KindSinusoidal Kind = "SINUSOIDAL_FUNCTION_OF_TIME"
	KindBoxcar     Kind = "ANNUAL_BOXCAR_FUNCTION"
)

// Forcing multiplies a base rate by a factor that depends on the simulation day.
type Forcing interface {
	Multiplier(day int) float64
}

// Params carries the union of configuration values for every Kind.
type Params struct {
	Amplitude float64
	Phase     float64 // sinusoidal, in days
	Start     float64 // boxcar, day of year
	End       float64 // boxcar, day of year
}

// New builds the forcing function named by kind. An empty kind means NONE.
func New(kind Kind, p Params) (Forcing, error) {
	switch Kind(strings.ToUpper(strings.TrimSpace(string(kind)))) {
	case "", KindNone:
		return None{}, nil
	case KindSinusoidal:
		return NewSinusoidal(p.Amplitude, p.Phase)
	case KindBoxcar:
		return NewBoxcar(p.Amplitude, p.Start, p.End)
	}
	return nil, fmt.Errorf("%w: unknown kind %q (valid: %s, %s, %s)", ErrInvalidForcing, kind, KindNone, KindSinusoidal, KindBoxcar)
}

// None leaves rates unchanged.
type None struct{}

// Multiplier always returns 1.
func (None) Multiplier(int) float64 { return 1 }

// Sinusoidal modulates a rate as 1 + A*sin(2*pi*((t mod 365) - phase)/365).
type Sinusoidal struct {
	Amplitude float64
	Phase     float64
}

// NewSinusoidal validates that the multiplier never goes negative.
func NewSinusoidal(amplitude, phase float64) (Sinusoidal, error) {
	if err := checkAmplitude(amplitude); err != nil {
		return Sinusoidal{}, err
	}
	if math.Abs(amplitude) > 1 {
		return Sinusoidal{}, fmt.Errorf("%w: sinusoidal amplitude %v outside [-1, 1]", ErrInvalidForcing, amplitude)
	}
	return Sinusoidal{Amplitude: amplitude, Phase: phase}, nil
}

// Multiplier implements Forcing.
func (s Sinusoidal) Multiplier(day int) float64 {
	t := float64(dayOfYear(day))
	return 1 + s.Amplitude*math.Sin(2*math.Pi*(t-s.Phase)/constants.DaysPerYear)
}

// BoxcarMode says how a boxcar window is tested against the day of year.
type BoxcarMode int

const (
	// Less is a window inside one year: start <= t <= end.
	Less BoxcarMode = iota
	// Larger is a window that wraps the new year: t <= end or t >= start.
	Larger
)

// String returns "LESS" or "LARGER".
func (m BoxcarMode) String() string {
	if m == Larger {
		return "LARGER"
	}
	return "LESS"
}

// Boxcar boosts a rate by 1 + Amplitude inside an annual window.
type Boxcar struct {
	Amplitude float64
	Start     float64
	End       float64
	Mode      BoxcarMode
}

// NewBoxcar picks Less when start <= end and Larger otherwise.
func NewBoxcar(amplitude, start, end float64) (Boxcar, error) {
	if err := checkAmplitude(amplitude); err != nil {
		return Boxcar{}, err
	}
	for _, d := range []float64{start, end} {
		if d < 0 || d >= constants.DaysPerYear || math.IsNaN(d) {
			return Boxcar{}, fmt.Errorf("%w: boxcar day %v outside [0, %d)", ErrInvalidForcing, d, constants.DaysPerYear)
		}
	}
	mode := Less
	if end < start {
		mode = Larger
	}
	return Boxcar{Amplitude: amplitude, Start: start, End: end, Mode: mode}, nil
}

// Active reports whether day falls inside the window.
func (b Boxcar) Active(day int) bool {
	t := float64(dayOfYear(day))
	if b.Mode == Larger {
		return t <= b.End || t >= b.Start
	}
	return b.Start <= t && t <= b.End
}

// Multiplier implements Forcing.
func (b Boxcar) Multiplier(day int) float64 {
	if b.Active(day) {
		return 1 + b.Amplitude
	}
	return 1
}

func checkAmplitude(a float64) error {
	if math.IsNaN(a) || math.IsInf(a, 0) || a < -1 {
		return fmt.Errorf("%w: amplitude %v must be finite and >= -1", ErrInvalidForcing, a)
	}
	return nil
}

func dayOfYear(day int) int {
	d := day % constants.DaysPerYear
	if d < 0 {
		d += constants.DaysPerYear
	}
	return d
}
