package logic

import (
	"fmt"
	"time"
)

// Curve is a measured calibration table mapping raw ADC readings to
// potentiometer positions, linearly interpolated between entries. It exists
// because cheap logarithmic pots are wildly non-linear: the table is built
// by recording the raw reading at known knob angles. Readings below the
// first entry or above the last clamp to the end positions.
type Curve struct {
	points [][2]int // [raw, position], both columns strictly increasing
}

// NewCurve validates and wraps a calibration table.
func NewCurve(points [][2]int) (*Curve, error) {
	if len(points) < 2 {
		return nil, fmt.Errorf("curve needs at least 2 points, got %d", len(points))
	}
	for i := 1; i < len(points); i++ {
		if points[i][0] <= points[i-1][0] || points[i][1] <= points[i-1][1] {
			return nil, fmt.Errorf("curve entry %d not strictly increasing", i)
		}
	}
	return &Curve{points: points}, nil
}

// Position maps a raw reading onto the position scale.
func (c *Curve) Position(raw int) float64 {
	first := c.points[0]
	last := c.points[len(c.points)-1]
	if raw <= first[0] {
		return float64(first[1])
	}
	if raw >= last[0] {
		return float64(last[1])
	}

	for i := 1; i < len(c.points); i++ {
		if c.points[i][0] == raw {
			return float64(c.points[i][1])
		}
		if c.points[i][0] > raw {
			lower, upper := c.points[i-1], c.points[i]
			frac := float64(raw-lower[0]) / float64(upper[0]-lower[0])
			return float64(lower[1]) + frac*float64(upper[1]-lower[1])
		}
	}
	return float64(last[1])
}

// PosRange returns the position scale bounds.
func (c *Curve) PosRange() (min, max float64) {
	return float64(c.points[0][1]), float64(c.points[len(c.points)-1][1])
}

// VolumeFilter converts a noisy continuous signal into a small number of
// discrete levels that do not chatter. Raw readings are clamped into range,
// optionally mapped through a calibration curve, smoothed with an
// exponentially weighted moving average, then quantized with hysteresis at
// the band boundaries. State is owned by the sampling step; not safe for
// concurrent use.
type VolumeFilter struct {
	alpha  float64
	levels int
	hyst   float64 // position units
	curve  *Curve

	rawMin, rawMax int
	posMin, posMax float64

	// rolling filtered estimate, in position units
	est    float64
	seeded bool

	lastLevel int
	emitted   bool
}

// NewVolumeFilter creates a filter quantizing into levels bands over the raw
// range. alpha is the EWMA weight of the newest sample. hysteresis is in
// position units; zero selects a quarter of one band. curve may be nil for a
// linear pot.
func NewVolumeFilter(rawMin, rawMax, levels int, alpha, hysteresis float64, curve *Curve) *VolumeFilter {
	f := &VolumeFilter{
		alpha:  alpha,
		levels: levels,
		curve:  curve,
		rawMin: rawMin,
		rawMax: rawMax,
	}
	if curve != nil {
		f.posMin, f.posMax = curve.PosRange()
	} else {
		f.posMin, f.posMax = float64(rawMin), float64(rawMax)
	}
	f.hyst = hysteresis
	if f.hyst <= 0 {
		f.hyst = (f.posMax - f.posMin) / float64(levels) / 4
	}
	return f
}

// Observe feeds one raw sample. It returns the new quantized level when the
// filtered estimate has settled into a different band by more than the
// hysteresis margin, nil otherwise. The very first sample seeds the filter
// and emits the initial level once, so the player and the knob agree at
// startup.
func (f *VolumeFilter) Observe(raw int, now time.Time) *int {
	pos := f.position(raw)

	if !f.seeded {
		f.est = pos
		f.seeded = true
		f.lastLevel = f.quantize(f.est)
		f.emitted = true
		level := f.lastLevel
		return &level
	}

	f.est = f.alpha*pos + (1-f.alpha)*f.est

	candidate := f.quantize(f.est)
	if candidate == f.lastLevel {
		return nil
	}

	// The estimate must sit past the band boundary by the hysteresis margin
	// before the new level is accepted. A value resting exactly on a
	// boundary must not toggle on sample noise alone.
	if candidate > f.lastLevel {
		boundary := f.bandStart(candidate)
		if f.est < boundary+f.hyst {
			return nil
		}
	} else {
		boundary := f.bandStart(candidate + 1)
		if f.est > boundary-f.hyst {
			return nil
		}
	}

	f.lastLevel = candidate
	level := candidate
	return &level
}

// Level returns the last emitted level. ok is false before the first sample.
func (f *VolumeFilter) Level() (level int, ok bool) {
	return f.lastLevel, f.emitted
}

// Levels returns the number of quantization bands.
func (f *VolumeFilter) Levels() int {
	return f.levels
}

func (f *VolumeFilter) position(raw int) float64 {
	if f.curve != nil {
		return f.curve.Position(raw)
	}
	// Out-of-range raw samples are clamped, not rejected.
	if raw < f.rawMin {
		raw = f.rawMin
	}
	if raw > f.rawMax {
		raw = f.rawMax
	}
	return float64(raw)
}

func (f *VolumeFilter) quantize(pos float64) int {
	span := f.posMax - f.posMin
	level := int((pos - f.posMin) * float64(f.levels) / span)
	if level < 0 {
		level = 0
	}
	if level > f.levels-1 {
		level = f.levels - 1
	}
	return level
}

// bandStart returns the lower boundary of the given band, in position units.
func (f *VolumeFilter) bandStart(level int) float64 {
	span := f.posMax - f.posMin
	return f.posMin + span*float64(level)/float64(f.levels)
}
