// Package feed scores candidate content items and assembles diversified feed
// pages. Ranking and diversification are pure transformations over
// caller-supplied inputs; they own no persistent state and are safe for
// concurrent use across requests.
package feed

import (
	"math/rand"
	"sort"
	"time"
)

// Engagement carries raw interaction aggregates for one candidate.
type Engagement struct {
	Views    int64 `json:"views"`
	Likes    int64 `json:"likes"`
	Comments int64 `json:"comments"`
	Shares   int64 `json:"shares"`
	Saves    int64 `json:"saves"`
}

// Candidate is a content item eligible for one feed request, already joined
// with engagement aggregates and social-graph flags by the candidate source.
type Candidate struct {
	ID                 string     `json:"id"`
	AuthorID           string     `json:"author_id"`
	CreatedAt          time.Time  `json:"created_at"`
	Engagement         Engagement `json:"engagement"`
	FromFollowedAuthor bool       `json:"from_followed_author"`
	VerifiedAuthor     bool       `json:"verified_author"`
}

// Scored is a candidate with its relevance score.
type Scored struct {
	Candidate
	Score float64 `json:"score"`
}

// Ranker computes relevance scores. It is stateless; randomness comes from
// the rng handed to each call, so fixing the seed fixes the output.
type Ranker struct {
	cfg ScoreConfig
}

func NewRanker(cfg ScoreConfig) *Ranker {
	return &Ranker{cfg: cfg}
}

// Score computes one candidate's relevance at the given instant. The rng
// draw is the only non-deterministic term.
func (r *Ranker) Score(c Candidate, now time.Time, rng *rand.Rand) float64 {
	score := r.recencyBonus(now.Sub(c.CreatedAt))

	eng := c.Engagement
	score += float64(eng.Views)*r.cfg.ViewWeight +
		float64(eng.Likes)*r.cfg.LikeWeight +
		float64(eng.Comments)*r.cfg.CommentWeight +
		float64(eng.Shares)*r.cfg.ShareWeight +
		float64(eng.Saves)*r.cfg.SaveWeight

	if c.FromFollowedAuthor {
		score += r.cfg.FollowedBonus
	}
	if c.VerifiedAuthor {
		score += r.cfg.VerifiedBonus
	}

	if r.cfg.ExplorationMax > 0 {
		score += rng.Float64() * r.cfg.ExplorationMax
	}

	return score
}

func (r *Ranker) recencyBonus(age time.Duration) float64 {
	for _, bucket := range r.cfg.RecencyBuckets {
		if age <= bucket.MaxAge {
			return bucket.Bonus
		}
	}
	return 0
}

// Rank scores every candidate and returns them ordered best-first. Ties
// break by recency (newer first), then by item id, so a fixed seed yields a
// fully deterministic ordering.
func (r *Ranker) Rank(candidates []Candidate, now time.Time, rng *rand.Rand) []Scored {
	scored := make([]Scored, len(candidates))
	for i, c := range candidates {
		scored[i] = Scored{Candidate: c, Score: r.Score(c, now, rng)}
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		if !scored[i].CreatedAt.Equal(scored[j].CreatedAt) {
			return scored[i].CreatedAt.After(scored[j].CreatedAt)
		}
		return scored[i].ID < scored[j].ID
	})

	return scored
}
