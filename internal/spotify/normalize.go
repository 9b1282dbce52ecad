package spotify

import (
	spotifyapi "github.com/zmb3/spotify/v2"

	"github.com/yogendrarau/Matchify/internal/compat"
)

// ProfileFromPages builds a profile from raw API items. Ranks follow list
// order, lists are cut to compat.MaxListSize, missing ids stay empty and
// missing genres become an empty slice.
func ProfileFromPages(artists []spotifyapi.FullArtist, tracks []spotifyapi.FullTrack, tr compat.TimeRange) compat.UserMusicProfile {
	return compat.UserMusicProfile{
		Artists:   NormalizeArtists(artists),
		Tracks:    NormalizeTracks(tracks),
		TimeRange: tr,
	}
}

func NormalizeArtists(artists []spotifyapi.FullArtist) []compat.RankedItem {
	if len(artists) > compat.MaxListSize {
		artists = artists[:compat.MaxListSize]
	}
	out := make([]compat.RankedItem, 0, len(artists))
	for i, a := range artists {
		genres := make([]string, 0, len(a.Genres))
		genres = append(genres, a.Genres...)
		out = append(out, compat.RankedItem{
			ID:         string(a.ID),
			Name:       a.Name,
			Rank:       i + 1,
			Genres:     genres,
			Popularity: int(a.Popularity),
		})
	}
	return out
}

func NormalizeTracks(tracks []spotifyapi.FullTrack) []compat.RankedItem {
	if len(tracks) > compat.MaxListSize {
		tracks = tracks[:compat.MaxListSize]
	}
	out := make([]compat.RankedItem, 0, len(tracks))
	for i, t := range tracks {
		artists := make([]string, 0, len(t.Artists))
		for _, a := range t.Artists {
			artists = append(artists, a.Name)
		}
		out = append(out, compat.RankedItem{
			ID:         string(t.ID),
			Name:       t.Name,
			Rank:       i + 1,
			Artists:    artists,
			Popularity: int(t.Popularity),
		})
	}
	return out
}
