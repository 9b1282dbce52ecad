package compat

import (
	"errors"
	"fmt"
	"math"
)

var errCalibration = errors.New("calibration failed")

// floorInput replaces a non-positive raw score before calibration, so a
// pairing with no overlap at all still reports a small positive score.
const floorInput = 1.0

// targetBand is an output score range and the share of comparisons that
// should land in it.
type targetBand struct {
	low, high float64
	mass      float64
}

// targetBands lists the target distribution from the highest band down.
var targetBands = []targetBand{
	{low: 90, high: 100, mass: 0.10},
	{low: 80, high: 90, mass: 0.20},
	{low: 70, high: 80, mass: 0.35},
	{low: 60, high: 70, mass: 0.15},
	{low: 50, high: 60, mass: 0.10},
	{low: 40, high: 50, mass: 0.06},
	{low: 0, high: 40, mass: 0.04},
}

// segment maps the input slice [srcLow, srcHigh] linearly onto the output
// band [dstLow, dstHigh].
type segment struct {
	srcLow, srcHigh float64
	dstLow, dstHigh float64
}

var segments = buildSegments(targetBands)

// buildSegments lays the band masses out as contiguous input slices starting
// at 0 with the lowest band, so the curve is non-decreasing and the top
// slice ends at 100.
func buildSegments(bands []targetBand) []segment {
	segs := make([]segment, 0, len(bands))
	low := 0.0
	for i := len(bands) - 1; i >= 0; i-- {
		b := bands[i]
		high := low + b.mass*100
		segs = append(segs, segment{srcLow: low, srcHigh: high, dstLow: b.low, dstHigh: b.high})
		low = high
	}
	if n := len(segs); n > 0 {
		segs[n-1].srcHigh = 100
	}
	return segs
}

// Calibrate maps a raw score in [0,100] onto the target score distribution.
// A raw score of 0 or less is calibrated as 1.0, inputs above 100 are clamped,
// and a non-finite input yields 0.
func Calibrate(rawScore float64) float64 {
	v, err := calibrate(rawScore)
	if err != nil {
		return 0
	}
	return v
}

func calibrate(rawScore float64) (float64, error) {
	if math.IsNaN(rawScore) || math.IsInf(rawScore, 0) {
		return 0, fmt.Errorf("%w: raw score %v", errCalibration, rawScore)
	}
	if rawScore <= 0 {
		rawScore = floorInput
	}
	p := clamp(rawScore, 0, 100)
	for _, s := range segments {
		if p < s.srcLow || p > s.srcHigh {
			continue
		}
		span := s.srcHigh - s.srcLow
		if span <= 0 {
			span = 1
		}
		frac := (p - s.srcLow) / span
		return clamp(s.dstLow+frac*(s.dstHigh-s.dstLow), 0, 100), nil
	}
	return 0, fmt.Errorf("%w: no segment covers %v", errCalibration, p)
}

// calibrateScores calibrates the total and rescales the components so they
// stay proportional to the raw components and sum to the calibrated total.
func calibrateScores(r raw) (float64, Breakdown, error) {
	total, err := calibrate(r.total)
	if err != nil {
		return 0, Breakdown{}, err
	}

	parts := Breakdown{
		Artist: math.Max(0, r.parts.Artist),
		Genre:  math.Max(0, r.parts.Genre),
		Track:  math.Max(0, r.parts.Track),
	}
	partSum := parts.sum()
	if math.IsNaN(partSum) || math.IsInf(partSum, 0) {
		return 0, Breakdown{}, fmt.Errorf("%w: component sum %v", errCalibration, partSum)
	}

	if partSum <= 0 {
		return round1(total), Breakdown{
			Artist: round1(total * ArtistWeight),
			Genre:  round1(total * GenreWeight),
			Track:  round1(total * TrackWeight),
		}, nil
	}

	scale := total / partSum
	return round1(total), Breakdown{
		Artist: round1(parts.Artist * scale),
		Genre:  round1(parts.Genre * scale),
		Track:  round1(parts.Track * scale),
	}, nil
}

// uncalibrated is the result used when calibration fails: the raw total and
// components, rounded, with non-finite values zeroed.
func uncalibrated(r raw) (float64, Breakdown) {
	return round1(finite(clamp(r.total, 0, 100))), Breakdown{
		Artist: round1(finite(math.Max(0, r.parts.Artist))),
		Genre:  round1(finite(math.Max(0, r.parts.Genre))),
		Track:  round1(finite(math.Max(0, r.parts.Track))),
	}
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
