package compat

import (
	"sort"
	"strings"
)

// MaxCommon caps each list of common items in a Result.
const MaxCommon = 10

type commonCandidate struct {
	item    RankedItem
	rankSum int
	best    int
}

// mergeCommon lists the items whose ids appear in both lists, most prominent
// first: ascending rankA+rankB, then the better of the two ranks, then id.
// Every tie-break is symmetric so both users see the same order. Display
// fields come from a's copy.
func mergeCommon(a, b []RankedItem, limit int) []CommonItem {
	ranksB := rankIndex(b)
	seen := make(map[string]bool, len(a))

	var candidates []commonCandidate
	for i, item := range a {
		if item.ID == "" || seen[item.ID] {
			continue
		}
		seen[item.ID] = true
		rankB, ok := ranksB[item.ID]
		if !ok {
			continue
		}
		rankA := rankAt(item, i)
		candidates = append(candidates, commonCandidate{
			item:    item,
			rankSum: rankA + rankB,
			best:    min(rankA, rankB),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		ci, cj := candidates[i], candidates[j]
		if ci.rankSum != cj.rankSum {
			return ci.rankSum < cj.rankSum
		}
		if ci.best != cj.best {
			return ci.best < cj.best
		}
		return ci.item.ID < cj.item.ID
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	out := make([]CommonItem, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, CommonItem{
			ID:         c.item.ID,
			Name:       c.item.Name,
			Genres:     cloneStrings(c.item.Genres),
			Artists:    cloneStrings(c.item.Artists),
			Popularity: c.item.Popularity,
		})
	}
	return out
}

// mergeGenres lists the genres both users' artists carry, sorted by combined
// tag count descending and then alphabetically.
func mergeGenres(a, b []RankedItem, limit int) []string {
	countsA, _ := genreCounts(a)
	countsB, _ := genreCounts(b)

	type genreCount struct {
		genre string
		count int
	}
	var shared []genreCount
	for genre, countA := range countsA {
		if countB, ok := countsB[genre]; ok {
			shared = append(shared, genreCount{genre: genre, count: countA + countB})
		}
	}

	sort.Slice(shared, func(i, j int) bool {
		if shared[i].count != shared[j].count {
			return shared[i].count > shared[j].count
		}
		return strings.Compare(shared[i].genre, shared[j].genre) < 0
	})
	if len(shared) > limit {
		shared = shared[:limit]
	}

	out := make([]string, 0, len(shared))
	for _, g := range shared {
		out = append(out, g.genre)
	}
	return out
}

func cloneStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
