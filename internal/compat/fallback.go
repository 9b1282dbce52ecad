package compat

import "math"

// minRankWeight is the floor of the linear rank weight used by the
// fallback path.
const minRankWeight = 0.02

// FallbackInput is the partial listening data available for a user when a
// full profile is not: either list may be empty.
type FallbackInput struct {
	Artists []RankedItem
	Tracks  []RankedItem
}

func (f FallbackInput) empty() bool {
	return len(f.Artists) == 0 && len(f.Tracks) == 0
}

// linearRankWeight maps ranks 1..50 linearly from ~1.0 down to the floor.
func linearRankWeight(rank int) float64 {
	return math.Max(minRankWeight, float64(MaxListSize+1-rank)/float64(MaxListSize+1))
}

// computeFallbackRaw approximates the main scores from whatever lists are
// available: weighted overlap for artists and tracks, plain Jaccard for genres.
func computeFallbackRaw(a, b FallbackInput) raw {
	artistsA, artistsB := truncate(a.Artists), truncate(b.Artists)
	tracksA, tracksB := truncate(a.Tracks), truncate(b.Tracks)

	parts := Breakdown{
		Artist: symmetric(artistsA, artistsB, directionalOverlap),
		Genre:  genreJaccard(artistsA, artistsB),
		Track:  symmetric(tracksA, tracksB, directionalOverlap),
	}
	return raw{parts: parts, total: math.Min(100, weightedTotal(parts))}
}

// directionalOverlap weighs each item of "from" by its linear rank weight and
// credits a match with both sides' weights multiplied.
func directionalOverlap(from, to []RankedItem) float64 {
	toRanks := rankIndex(to)
	var numerator, denominator float64
	for i, item := range from {
		weight := linearRankWeight(rankAt(item, i))
		denominator += weight
		if item.ID == "" {
			continue
		}
		if rankB, ok := toRanks[item.ID]; ok {
			numerator += weight * linearRankWeight(rankB)
		}
	}
	if denominator == 0 {
		return 0
	}
	return numerator / denominator * 100
}

func genreJaccard(a, b []RankedItem) float64 {
	countsA, _ := genreCounts(a)
	countsB, _ := genreCounts(b)
	shared := 0
	for genre := range countsA {
		if _, ok := countsB[genre]; ok {
			shared++
		}
	}
	union := len(countsA) + len(countsB) - shared
	if union == 0 {
		return 0
	}
	return float64(shared) / float64(union) * 100
}

func truncate(items []RankedItem) []RankedItem {
	if len(items) > MaxListSize {
		return items[:MaxListSize]
	}
	return items
}
