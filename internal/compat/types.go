package compat

import "fmt"

// MaxListSize is the longest top-N list a profile carries.
const MaxListSize = 50

// TimeRange selects the lookback window the top lists were built from.
type TimeRange string

const (
	ShortTerm  TimeRange = "short_term"
	MediumTerm TimeRange = "medium_term"
	LongTerm   TimeRange = "long_term"
)

// ParseTimeRange validates a time range string. An empty string means long_term.
func ParseTimeRange(s string) (TimeRange, error) {
	switch TimeRange(s) {
	case ShortTerm, MediumTerm, LongTerm:
		return TimeRange(s), nil
	case "":
		return LongTerm, nil
	}
	return "", fmt.Errorf("invalid time range %q: expected short_term, medium_term or long_term", s)
}

// RankedItem is one entry of a user's top artists or top tracks.
type RankedItem struct {
	ID         string   `json:"id,omitempty" yaml:"id,omitempty"`
	Name       string   `json:"name" yaml:"name"`
	Rank       int      `json:"rank" yaml:"rank"`
	Genres     []string `json:"genres,omitempty" yaml:"genres,omitempty"`
	Artists    []string `json:"artists,omitempty" yaml:"artists,omitempty"`
	Popularity int      `json:"popularity" yaml:"popularity"`
}

// UserMusicProfile is a user's ranked listening data for one time range.
// Ranks within Artists and within Tracks start at 1 and follow list order.
type UserMusicProfile struct {
	Artists   []RankedItem `json:"artists" yaml:"artists"`
	Tracks    []RankedItem `json:"tracks" yaml:"tracks"`
	TimeRange TimeRange    `json:"time_range" yaml:"time_range"`
}

// Breakdown holds the per-component scores of a Result.
type Breakdown struct {
	Artist float64 `json:"artist_compatibility" yaml:"artist_compatibility"`
	Genre  float64 `json:"genre_compatibility" yaml:"genre_compatibility"`
	Track  float64 `json:"track_compatibility" yaml:"track_compatibility"`
}

func (b Breakdown) sum() float64 {
	return b.Artist + b.Genre + b.Track
}

// CommonItem is an artist or track present in both users' top lists.
type CommonItem struct {
	ID         string   `json:"id" yaml:"id"`
	Name       string   `json:"name" yaml:"name"`
	Genres     []string `json:"genres,omitempty" yaml:"genres,omitempty"`
	Artists    []string `json:"artists,omitempty" yaml:"artists,omitempty"`
	Popularity int      `json:"popularity" yaml:"popularity"`
}

// Result is a calibrated compatibility score between two users.
type Result struct {
	TotalScore    float64      `json:"total_score" yaml:"total_score"`
	Breakdown     Breakdown    `json:"breakdown" yaml:"breakdown"`
	CommonArtists []CommonItem `json:"common_artists" yaml:"common_artists"`
	CommonTracks  []CommonItem `json:"common_tracks" yaml:"common_tracks"`
	CommonGenres  []string     `json:"common_genres" yaml:"common_genres"`
}
