package compat

import "sort"

// summaryLimit caps each list in a TasteSummary.
const summaryLimit = 10

// GenreCount is how many of a user's top artists carry a genre.
type GenreCount struct {
	Genre string `json:"genre" yaml:"genre"`
	Count int    `json:"count" yaml:"count"`
}

// SummaryItem is one artist or track in a TasteSummary.
type SummaryItem struct {
	Name       string   `json:"name" yaml:"name"`
	Artists    []string `json:"artists,omitempty" yaml:"artists,omitempty"`
	Popularity int      `json:"popularity" yaml:"popularity"`
}

// TasteSummary describes one user's listening profile.
type TasteSummary struct {
	TopGenres    []GenreCount  `json:"top_genres" yaml:"top_genres"`
	TopArtists   []SummaryItem `json:"top_artists" yaml:"top_artists"`
	TopTracks    []SummaryItem `json:"top_tracks" yaml:"top_tracks"`
	TotalArtists int           `json:"total_artists" yaml:"total_artists"`
	TotalTracks  int           `json:"total_tracks" yaml:"total_tracks"`
	TimeRange    TimeRange     `json:"time_range" yaml:"time_range"`
}

// Summarize builds the taste summary of a profile.
func Summarize(p UserMusicProfile) TasteSummary {
	counts, _ := genreCounts(p.Artists)
	genres := make([]GenreCount, 0, len(counts))
	for genre, count := range counts {
		genres = append(genres, GenreCount{Genre: genre, Count: count})
	}
	sort.Slice(genres, func(i, j int) bool {
		if genres[i].Count != genres[j].Count {
			return genres[i].Count > genres[j].Count
		}
		return genres[i].Genre < genres[j].Genre
	})
	if len(genres) > summaryLimit {
		genres = genres[:summaryLimit]
	}

	return TasteSummary{
		TopGenres:    genres,
		TopArtists:   summarizeItems(p.Artists),
		TopTracks:    summarizeItems(p.Tracks),
		TotalArtists: len(p.Artists),
		TotalTracks:  len(p.Tracks),
		TimeRange:    p.TimeRange,
	}
}

func summarizeItems(items []RankedItem) []SummaryItem {
	n := min(len(items), summaryLimit)
	out := make([]SummaryItem, 0, n)
	for _, item := range items[:n] {
		out = append(out, SummaryItem{
			Name:       item.Name,
			Artists:    cloneStrings(item.Artists),
			Popularity: item.Popularity,
		})
	}
	return out
}
