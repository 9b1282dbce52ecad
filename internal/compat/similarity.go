package compat

import "math"

// Component weights of the total score.
const (
	ArtistWeight = 0.45
	GenreWeight  = 0.30
	TrackWeight  = 0.25
)

// Genre score blend between set overlap and shared-genre frequency.
const (
	jaccardShare   = 0.6
	frequencyShare = 0.4
)

// raw is the uncalibrated outcome of comparing two users.
type raw struct {
	parts Breakdown
	total float64
}

func weightedTotal(parts Breakdown) float64 {
	return clamp(parts.Artist*ArtistWeight+parts.Genre*GenreWeight+parts.Track*TrackWeight, 0, 100)
}

// computeRaw runs every directional metric both ways and averages each pair.
func computeRaw(a, b UserMusicProfile) raw {
	parts := Breakdown{
		Artist: symmetric(a.Artists, b.Artists, directionalRankScore),
		Genre:  symmetric(a.Artists, b.Artists, genreScore),
		Track:  symmetric(a.Tracks, b.Tracks, directionalRankScore),
	}
	return raw{parts: parts, total: weightedTotal(parts)}
}

func symmetric(a, b []RankedItem, directional func(from, to []RankedItem) float64) float64 {
	return (directional(a, b) + directional(b, a)) / 2
}

// directionalRankScore scores how well "to" reproduces the ordering of "from".
// Each item of "from" weighs 1/rank and adds that weight to the normalizer
// whether or not it matches; a match adds weight/(rank distance + 1).
func directionalRankScore(from, to []RankedItem) float64 {
	toRanks := rankIndex(to)
	if !sharesID(from, toRanks) {
		return 0
	}

	var numerator, maxPossible float64
	for i, item := range from {
		rankA := rankAt(item, i)
		weight := 1 / float64(rankA)
		maxPossible += weight
		if item.ID == "" {
			continue
		}
		rankB, ok := toRanks[item.ID]
		if !ok {
			continue
		}
		penalty := 1 / (math.Abs(float64(rankA-rankB)) + 1)
		numerator += weight * penalty
	}

	if maxPossible == 0 {
		return 0
	}
	return math.Min(100, numerator/maxPossible*100)
}

// genreScore blends the Jaccard index of both genre vocabularies with the
// frequency share of the shared genres. Both directions give the same value.
func genreScore(from, to []RankedItem) float64 {
	fromCounts, fromTotal := genreCounts(from)
	toCounts, toTotal := genreCounts(to)
	if fromTotal == 0 || toTotal == 0 {
		return 0
	}

	shared := 0
	var weighted, totalWeight float64
	for genre, count := range fromCounts {
		other, ok := toCounts[genre]
		if !ok {
			continue
		}
		shared++
		w := float64(count + other)
		weighted += w
		totalWeight += w
	}
	union := len(fromCounts) + len(toCounts) - shared

	var jaccard, frequency float64
	if union > 0 {
		jaccard = float64(shared) / float64(union)
	}
	if totalWeight > 0 {
		frequency = weighted / totalWeight
	}
	return math.Min(100, (jaccard*jaccardShare+frequency*frequencyShare)*100)
}

// genreCounts counts every genre tag across the artists, returning the
// counts and the number of tags seen.
func genreCounts(artists []RankedItem) (map[string]int, int) {
	counts := make(map[string]int)
	total := 0
	for _, artist := range artists {
		for _, genre := range artist.Genres {
			counts[genre]++
			total++
		}
	}
	return counts, total
}

// rankIndex maps each id to the rank of its first occurrence.
func rankIndex(items []RankedItem) map[string]int {
	ranks := make(map[string]int, len(items))
	for i, item := range items {
		if item.ID == "" {
			continue
		}
		if _, ok := ranks[item.ID]; !ok {
			ranks[item.ID] = rankAt(item, i)
		}
	}
	return ranks
}

func sharesID(items []RankedItem, ranks map[string]int) bool {
	for _, item := range items {
		if item.ID == "" {
			continue
		}
		if _, ok := ranks[item.ID]; ok {
			return true
		}
	}
	return false
}

// rankAt returns the item's rank, or its 1-based list position when the
// rank was never set.
func rankAt(item RankedItem, index int) int {
	if item.Rank > 0 {
		return item.Rank
	}
	return index + 1
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
