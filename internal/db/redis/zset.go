package redis

import (
	"context"
	"strconv"

	"github.com/kailas-cloud/mediasearch/internal/db"
)

// ZAddGT updates the member's score only when the new score is greater (ZADD GT).
// A missing member is always added.
func (s *Store) ZAddGT(ctx context.Context, key, member string, score float64) error {
	cmd := s.b().Arbitrary("ZADD").Keys(key).
		Args("GT", strconv.FormatFloat(score, 'f', -1, 64), member).
		Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpZAdd, Err: err}
	}
	return nil
}

// ZRangeWithScores returns every member of the sorted set in ascending score order.
func (s *Store) ZRangeWithScores(ctx context.Context, key string) ([]db.ScoredMember, error) {
	cmd := s.b().Zrange().Key(key).Min("0").Max("-1").Withscores().Build()
	scores, err := s.do(ctx, cmd).AsZScores()
	if err != nil {
		return nil, &db.Error{Op: db.OpZRange, Err: err}
	}
	out := make([]db.ScoredMember, len(scores))
	for i, z := range scores {
		out[i] = db.ScoredMember{Member: z.Member, Score: z.Score}
	}
	return out, nil
}
