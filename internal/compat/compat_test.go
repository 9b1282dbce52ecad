package compat

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func artist(id string, rank int, genres ...string) RankedItem {
	return RankedItem{ID: id, Name: "Artist " + id, Rank: rank, Genres: genres, Popularity: 50}
}

func track(id string, rank int, artists ...string) RankedItem {
	return RankedItem{ID: id, Name: "Track " + id, Rank: rank, Artists: artists, Popularity: 50}
}

// randomProfile draws ids from a small pool so two random profiles overlap.
// Display fields depend only on the id.
func randomProfile(r *rand.Rand, n int) UserMusicProfile {
	genrePool := []string{"pop", "rock", "jazz", "indie", "metal", "folk", "house", "techno"}
	var p UserMusicProfile
	for _, i := range r.Perm(n * 2)[:n] {
		g := []string{genrePool[i%len(genrePool)], genrePool[(i*3+1)%len(genrePool)]}
		p.Artists = append(p.Artists, artist(fmt.Sprintf("a%d", i), len(p.Artists)+1, g...))
	}
	for _, i := range r.Perm(n * 2)[:n] {
		p.Tracks = append(p.Tracks, track(fmt.Sprintf("t%d", i), len(p.Tracks)+1, fmt.Sprintf("a%d", i)))
	}
	p.TimeRange = LongTerm
	return p
}

func scenarioProfiles() (UserMusicProfile, UserMusicProfile) {
	a := UserMusicProfile{
		Artists: []RankedItem{artist("x", 1, "pop"), artist("y", 2, "rock")},
		Tracks:  []RankedItem{track("t1", 1, "x")},
	}
	b := UserMusicProfile{
		Artists: []RankedItem{artist("x", 1, "pop"), artist("z", 2, "jazz")},
		Tracks:  []RankedItem{track("t2", 1, "z")},
	}
	return a, b
}

func TestScenarioRawScores(t *testing.T) {
	a, b := scenarioProfiles()
	r := computeRaw(a, b)

	assert.InDelta(t, 100.0/1.5, r.parts.Artist, 1e-9)
	assert.InDelta(t, 60.0, r.parts.Genre, 1e-9)
	assert.Equal(t, 0.0, r.parts.Track)
	assert.InDelta(t, 48.0, r.total, 1e-9)
}

func TestScenarioCalibrated(t *testing.T) {
	a, b := scenarioProfiles()
	res := Score(a, b)

	assert.InDelta(t, 73.7, res.TotalScore, 1e-9)
	assert.InDelta(t, 38.8, res.Breakdown.Artist, 1e-9)
	assert.InDelta(t, 34.9, res.Breakdown.Genre, 1e-9)
	assert.Equal(t, 0.0, res.Breakdown.Track)

	require.Len(t, res.CommonArtists, 1)
	assert.Equal(t, "x", res.CommonArtists[0].ID)
	assert.Equal(t, "Artist x", res.CommonArtists[0].Name)
	assert.Equal(t, []string{"pop"}, res.CommonArtists[0].Genres)
	assert.Empty(t, res.CommonTracks)
	assert.Equal(t, []string{"pop"}, res.CommonGenres)
}

func TestScoreSymmetric(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		a := randomProfile(r, 1+r.Intn(MaxListSize))
		b := randomProfile(r, 1+r.Intn(MaxListSize))

		ab := Score(a, b)
		ba := Score(b, a)
		assert.Equal(t, ab, ba, "iteration %d", i)
	}
}

func TestScoreBounds(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	for i := 0; i < 100; i++ {
		a := randomProfile(r, 1+r.Intn(MaxListSize))
		b := randomProfile(r, 1+r.Intn(MaxListSize))
		res := Score(a, b)

		assert.GreaterOrEqual(t, res.TotalScore, 0.0)
		assert.LessOrEqual(t, res.TotalScore, 100.0)
		for _, part := range []float64{res.Breakdown.Artist, res.Breakdown.Genre, res.Breakdown.Track} {
			assert.GreaterOrEqual(t, part, 0.0)
			assert.LessOrEqual(t, part, 100.0)
		}
		// Each part is rounded separately.
		assert.InDelta(t, res.TotalScore, res.Breakdown.Artist+res.Breakdown.Genre+res.Breakdown.Track, 0.2)
	}
}

func TestNoOverlapFloor(t *testing.T) {
	a := UserMusicProfile{
		Artists: []RankedItem{artist("a1", 1, "pop"), artist("a2", 2, "rock")},
		Tracks:  []RankedItem{track("t1", 1)},
	}
	b := UserMusicProfile{
		Artists: []RankedItem{artist("b1", 1, "jazz")},
		Tracks:  []RankedItem{track("t2", 1), track("t3", 2)},
	}

	res := Score(a, b)
	assert.Equal(t, round1(Calibrate(1.0)), res.TotalScore)
	assert.InDelta(t, 10.0, res.TotalScore, 1e-9)
	assert.InDelta(t, 4.5, res.Breakdown.Artist, 1e-9)
	assert.InDelta(t, 3.0, res.Breakdown.Genre, 1e-9)
	assert.InDelta(t, 2.5, res.Breakdown.Track, 1e-9)
	assert.Empty(t, res.CommonArtists)
	assert.Empty(t, res.CommonTracks)
	assert.Empty(t, res.CommonGenres)
}

func TestEmptyProfilesFloor(t *testing.T) {
	res := Score(UserMusicProfile{}, UserMusicProfile{})
	assert.InDelta(t, 10.0, res.TotalScore, 1e-9)
	assert.NotNil(t, res.CommonArtists)
	assert.NotNil(t, res.CommonTracks)
	assert.NotNil(t, res.CommonGenres)
}

func TestFullOverlapCeiling(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	p := randomProfile(r, 20)

	res := Score(p, p)
	assert.InDelta(t, 100.0, res.TotalScore, 1e-9)
	// Equal raw parts stay equal after rescaling.
	assert.InDelta(t, 33.3, res.Breakdown.Artist, 1e-9)
	assert.InDelta(t, 33.3, res.Breakdown.Genre, 1e-9)
	assert.InDelta(t, 33.3, res.Breakdown.Track, 1e-9)
	assert.Len(t, res.CommonArtists, MaxCommon)
	assert.Equal(t, p.Artists[0].ID, res.CommonArtists[0].ID)
	assert.Equal(t, p.Tracks[0].ID, res.CommonTracks[0].ID)
}

func TestListSizeBounds(t *testing.T) {
	var a, b UserMusicProfile
	for i := 1; i <= 60; i++ {
		id := fmt.Sprintf("id%d", i)
		a.Artists = append(a.Artists, artist(id, i, fmt.Sprintf("g%d", i)))
		b.Artists = append(b.Artists, artist(id, i, fmt.Sprintf("g%d", i)))
		a.Tracks = append(a.Tracks, track(id, i))
		b.Tracks = append(b.Tracks, track(id, i))
	}

	res := Score(a, b)
	assert.Len(t, res.CommonArtists, MaxCommon)
	assert.Len(t, res.CommonTracks, MaxCommon)
	assert.Len(t, res.CommonGenres, MaxCommon)
	assert.Equal(t, "id1", res.CommonArtists[0].ID)
	assert.Equal(t, "id10", res.CommonArtists[9].ID)
}

func TestCommonItemOrder(t *testing.T) {
	a := UserMusicProfile{Artists: []RankedItem{artist("p", 1), artist("q", 2), artist("r", 3), artist("s", 4)}}
	b := UserMusicProfile{Artists: []RankedItem{artist("s", 1), artist("r", 2), artist("q", 3), artist("p", 4)}}

	// Every shared artist has rank sum 5; the better single rank breaks ties.
	res := Score(a, b)
	ids := make([]string, 0, len(res.CommonArtists))
	for _, c := range res.CommonArtists {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"p", "s", "q", "r"}, ids)
}

func TestCommonGenreOrder(t *testing.T) {
	a := UserMusicProfile{Artists: []RankedItem{
		artist("a1", 1, "rock", "pop"),
		artist("a2", 2, "rock", "indie"),
	}}
	b := UserMusicProfile{Artists: []RankedItem{
		artist("b1", 1, "indie", "pop"),
		artist("b2", 2, "rock"),
	}}

	res := Score(a, b)
	assert.Equal(t, []string{"rock", "indie", "pop"}, res.CommonGenres)
}

func TestDuplicateAndMissingIDs(t *testing.T) {
	a := UserMusicProfile{Artists: []RankedItem{
		{Name: "no id", Rank: 1},
		artist("x", 2),
		artist("x", 3),
	}}
	b := UserMusicProfile{Artists: []RankedItem{artist("x", 1)}}

	res := Score(a, b)
	require.Len(t, res.CommonArtists, 1)
	assert.Equal(t, "x", res.CommonArtists[0].ID)

	// The id-less item still counts in the normalizer.
	assert.Less(t, directionalRankScore(a.Artists, b.Artists), 100.0)
}

func TestCalibrateMonotonic(t *testing.T) {
	prev := Calibrate(0.25)
	for x := 0.5; x <= 100; x += 0.25 {
		v := Calibrate(x)
		assert.GreaterOrEqual(t, v, prev, "calibrate(%v)", x)
		prev = v
	}
}

func TestCalibratePoints(t *testing.T) {
	for _, tc := range []struct {
		in, want float64
	}{
		{0, 10},
		{0.5, 5},
		{1, 10},
		{4, 40},
		{10, 50},
		{20, 60},
		{35, 70},
		{48, 70 + 13.0/35*10},
		{70, 80},
		{90, 90},
		{100, 100},
		{-5, 10},
		{150, 100},
	} {
		assert.InDelta(t, tc.want, Calibrate(tc.in), 1e-9, "calibrate(%v)", tc.in)
	}
	assert.Equal(t, 0.0, Calibrate(math.NaN()))
	assert.Equal(t, Calibrate(1), Calibrate(0))
	assert.Equal(t, Calibrate(1), Calibrate(-3))
}

func TestCalibrationFailureFallsBack(t *testing.T) {
	e := NewEngine(nil)
	res := e.finalize(raw{
		parts: Breakdown{Artist: 12.34, Genre: math.Inf(1), Track: 5},
		total: math.NaN(),
	})

	assert.Equal(t, 0.0, res.TotalScore)
	assert.InDelta(t, 12.3, res.Breakdown.Artist, 1e-9)
	assert.Equal(t, 0.0, res.Breakdown.Genre)
	assert.InDelta(t, 5.0, res.Breakdown.Track, 1e-9)
}

func TestCalibrationFailureOnComponentSum(t *testing.T) {
	_, _, err := calibrateScores(raw{parts: Breakdown{Artist: math.NaN()}, total: 50})
	assert.ErrorIs(t, err, errCalibration)
}

func TestScoreFallback(t *testing.T) {
	a := FallbackInput{Artists: []RankedItem{artist("x", 1, "pop"), artist("y", 2, "rock")}}
	b := FallbackInput{
		Artists: []RankedItem{artist("x", 1, "pop")},
		Tracks:  []RankedItem{track("t1", 1)},
	}

	r := computeFallbackRaw(a, b)
	assert.InDelta(t, 50.0, r.parts.Genre, 1e-9)
	assert.Equal(t, 0.0, r.parts.Track)
	assert.Greater(t, r.parts.Artist, 0.0)

	res := ScoreFallback(a, b)
	assert.Equal(t, ScoreFallback(b, a), res)
	assert.GreaterOrEqual(t, res.TotalScore, 0.0)
	assert.LessOrEqual(t, res.TotalScore, 100.0)
	require.Len(t, res.CommonArtists, 1)
	assert.Equal(t, "x", res.CommonArtists[0].ID)
	assert.Equal(t, []string{"pop"}, res.CommonGenres)
	assert.Empty(t, res.CommonTracks)
}

func TestScoreFallbackNoOverlap(t *testing.T) {
	res := ScoreFallback(FallbackInput{Artists: []RankedItem{artist("x", 1)}}, FallbackInput{})
	assert.InDelta(t, 10.0, res.TotalScore, 1e-9)
}

func TestLinearRankWeight(t *testing.T) {
	assert.InDelta(t, 50.0/51, linearRankWeight(1), 1e-12)
	assert.InDelta(t, 2.0/51, linearRankWeight(49), 1e-12)
	assert.Equal(t, minRankWeight, linearRankWeight(50))
	assert.Equal(t, minRankWeight, linearRankWeight(51))
}

func TestParseTimeRange(t *testing.T) {
	tr, err := ParseTimeRange("")
	require.NoError(t, err)
	assert.Equal(t, LongTerm, tr)

	tr, err = ParseTimeRange("short_term")
	require.NoError(t, err)
	assert.Equal(t, ShortTerm, tr)

	_, err = ParseTimeRange("forever")
	assert.Error(t, err)
}
