package compat

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// Match is one candidate's compatibility with the user being matched.
type Match struct {
	User   string `json:"user" yaml:"user"`
	Result Result `json:"result" yaml:"result"`
}

// RankMatches compares user against every candidate and returns the best
// matches, highest total score first. Candidates without listening data and
// those scoring below minScore are skipped. A limit of zero or less returns
// every remaining match.
func (e *Engine) RankMatches(ctx context.Context, user string, candidates []string, tr TimeRange, limit int, minScore float64) ([]Match, error) {
	matches := make([]Match, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate == user {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res, err := e.Compare(ctx, user, candidate, tr)
		if errors.Is(err, ErrProfileUnavailable) {
			e.log.Debug().Str("user", user).Str("candidate", candidate).Err(err).Msg("skipping candidate")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("comparing %q with %q: %w", user, candidate, err)
		}
		if res.TotalScore < minScore {
			continue
		}
		matches = append(matches, Match{User: candidate, Result: res})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Result.TotalScore != matches[j].Result.TotalScore {
			return matches[i].Result.TotalScore > matches[j].Result.TotalScore
		}
		return matches[i].User < matches[j].User
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}
