// Package compat scores how compatible two users' music tastes are.
//
// A score compares the users' ranked top artists, top tracks and the genres
// of those artists, each in both directions, and calibrates the weighted
// total onto a fixed target distribution. Scoring is pure and safe to call
// concurrently; only Engine.Compare talks to a Source.
package compat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// ErrProfileUnavailable reports that listening data for a user could not be
// obtained.
var ErrProfileUnavailable = errors.New("profile unavailable")

// UnavailableError is returned by Compare when neither user has any usable
// listening data.
type UnavailableError struct {
	UserA, UserB string
	Reason       string
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("compatibility of %q and %q unavailable: %s", e.UserA, e.UserB, e.Reason)
}

func (e *UnavailableError) Unwrap() error {
	return ErrProfileUnavailable
}

// Source supplies listening data. Profile returns an error wrapping
// ErrProfileUnavailable when a complete profile cannot be built; TopArtists
// and TopTracks return whatever single list is available.
type Source interface {
	Profile(ctx context.Context, user string, tr TimeRange) (UserMusicProfile, error)
	TopArtists(ctx context.Context, user string, tr TimeRange) ([]RankedItem, error)
	TopTracks(ctx context.Context, user string, tr TimeRange) ([]RankedItem, error)
}

// Engine compares users through a Source.
type Engine struct {
	src Source
	log zerolog.Logger
}

type Option func(*Engine)

// WithLogger sets the logger used for fallback and calibration diagnostics.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) {
		e.log = l
	}
}

// NewEngine returns an Engine reading listening data from src.
func NewEngine(src Source, opts ...Option) *Engine {
	e := &Engine{src: src, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var defaultEngine = NewEngine(nil)

// Score compares two complete profiles. See Engine.Score.
func Score(a, b UserMusicProfile) Result {
	return defaultEngine.Score(a, b)
}

// ScoreFallback compares two partial inputs. See Engine.ScoreFallback.
func ScoreFallback(a, b FallbackInput) Result {
	return defaultEngine.ScoreFallback(a, b)
}

// Score compares two complete profiles. The result does not depend on the
// argument order.
func (e *Engine) Score(a, b UserMusicProfile) Result {
	a.Artists, a.Tracks = truncate(a.Artists), truncate(a.Tracks)
	b.Artists, b.Tracks = truncate(b.Artists), truncate(b.Tracks)

	r := computeRaw(a, b)
	res := e.finalize(r)
	res.CommonArtists = mergeCommon(a.Artists, b.Artists, MaxCommon)
	res.CommonTracks = mergeCommon(a.Tracks, b.Tracks, MaxCommon)
	res.CommonGenres = mergeGenres(a.Artists, b.Artists, MaxCommon)
	return res
}

// ScoreFallback compares two users from partial data with the coarser
// linear-weight metrics. The result has the same shape as Score's.
func (e *Engine) ScoreFallback(a, b FallbackInput) Result {
	r := computeFallbackRaw(a, b)
	res := e.finalize(r)
	artistsA, artistsB := truncate(a.Artists), truncate(b.Artists)
	res.CommonArtists = mergeCommon(artistsA, artistsB, MaxCommon)
	res.CommonTracks = mergeCommon(truncate(a.Tracks), truncate(b.Tracks), MaxCommon)
	res.CommonGenres = mergeGenres(artistsA, artistsB, MaxCommon)
	return res
}

func (e *Engine) finalize(r raw) Result {
	total, parts, err := calibrateScores(r)
	if err != nil {
		e.log.Warn().Err(err).Float64("raw_total", r.total).Msg("calibration failed, using raw scores")
		total, parts = uncalibrated(r)
	}
	return Result{
		TotalScore:    total,
		Breakdown:     parts,
		CommonArtists: []CommonItem{},
		CommonTracks:  []CommonItem{},
		CommonGenres:  []string{},
	}
}

// Compare scores userA against userB for the time range. When both complete
// profiles are available the main metrics are used; otherwise the fallback
// metrics run on whatever ranked lists the Source can still supply. Only when
// no data at all exists for either user does it return an *UnavailableError.
func (e *Engine) Compare(ctx context.Context, userA, userB string, tr TimeRange) (Result, error) {
	if e.src == nil {
		return Result{}, &UnavailableError{UserA: userA, UserB: userB, Reason: "no listening data source"}
	}

	pa, errA := e.src.Profile(ctx, userA, tr)
	pb, errB := e.src.Profile(ctx, userB, tr)
	if errA == nil && errB == nil {
		return e.Score(pa, pb), nil
	}

	e.log.Debug().
		AnErr("user_a_error", errA).
		AnErr("user_b_error", errB).
		Str("user_a", userA).
		Str("user_b", userB).
		Msg("falling back to ranking-overlap compatibility")

	fa, reasonA := e.fallbackInput(ctx, userA, tr, pa, errA)
	fb, reasonB := e.fallbackInput(ctx, userB, tr, pb, errB)
	if fa.empty() && fb.empty() {
		reasons := make([]string, 0, 2)
		for _, r := range []string{reasonA, reasonB} {
			if r != "" {
				reasons = append(reasons, r)
			}
		}
		if len(reasons) == 0 {
			reasons = append(reasons, "no listening data")
		}
		return Result{}, &UnavailableError{UserA: userA, UserB: userB, Reason: strings.Join(reasons, "; ")}
	}
	return e.ScoreFallback(fa, fb), nil
}

// fallbackInput collects the partial lists for one user, returning a reason
// when nothing was obtainable.
func (e *Engine) fallbackInput(ctx context.Context, user string, tr TimeRange, p UserMusicProfile, profileErr error) (FallbackInput, string) {
	if profileErr == nil {
		return FallbackInput{Artists: p.Artists, Tracks: p.Tracks}, ""
	}

	var in FallbackInput
	artists, artistErr := e.src.TopArtists(ctx, user, tr)
	if artistErr == nil {
		in.Artists = artists
	}
	tracks, trackErr := e.src.TopTracks(ctx, user, tr)
	if trackErr == nil {
		in.Tracks = tracks
	}
	if !in.empty() {
		return in, ""
	}

	reason := profileErr.Error()
	if artistErr != nil {
		reason = artistErr.Error()
	}
	e.log.Debug().Str("user", user).Str("reason", reason).Msg("no listening data")
	return in, fmt.Sprintf("%s: %s", user, reason)
}
