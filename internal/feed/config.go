package feed

import (
	"time"

	"aniflixx/engage/pkg/config"
)

// RecencyBucket awards a flat bonus to items younger than MaxAge. Buckets are
// evaluated in order; the first match wins, and items older than every bucket
// score no recency bonus.
type RecencyBucket struct {
	MaxAge time.Duration
	Bonus  float64
}

// ScoreConfig holds every ranking constant. The exact values are tuning
// knobs, not contracts; defaults can be overridden via environment.
type ScoreConfig struct {
	RecencyBuckets []RecencyBucket

	// Engagement weights, ordered by the cost of the action
	ViewWeight    float64
	LikeWeight    float64
	CommentWeight float64
	ShareWeight   float64
	SaveWeight    float64

	// Social-graph and authority bonuses
	FollowedBonus float64
	VerifiedBonus float64

	// ExplorationMax bounds the uniform random addend per candidate
	ExplorationMax float64
}

// DefaultScoreConfig returns the stock ranking constants.
func DefaultScoreConfig() ScoreConfig {
	return ScoreConfig{
		RecencyBuckets: []RecencyBucket{
			{MaxAge: time.Hour, Bonus: 100},
			{MaxAge: 6 * time.Hour, Bonus: 60},
			{MaxAge: 24 * time.Hour, Bonus: 40},
			{MaxAge: 72 * time.Hour, Bonus: 20},
		},
		ViewWeight:     0.01,
		LikeWeight:     0.5,
		CommentWeight:  2,
		ShareWeight:    3,
		SaveWeight:     2.5,
		FollowedBonus:  50,
		VerifiedBonus:  10,
		ExplorationMax: 5,
	}
}

// ScoreConfigFromEnv overlays environment overrides on the defaults.
func ScoreConfigFromEnv() ScoreConfig {
	cfg := DefaultScoreConfig()
	cfg.ViewWeight = config.GetEnvFloat("FEED_WEIGHT_VIEW", cfg.ViewWeight)
	cfg.LikeWeight = config.GetEnvFloat("FEED_WEIGHT_LIKE", cfg.LikeWeight)
	cfg.CommentWeight = config.GetEnvFloat("FEED_WEIGHT_COMMENT", cfg.CommentWeight)
	cfg.ShareWeight = config.GetEnvFloat("FEED_WEIGHT_SHARE", cfg.ShareWeight)
	cfg.SaveWeight = config.GetEnvFloat("FEED_WEIGHT_SAVE", cfg.SaveWeight)
	cfg.FollowedBonus = config.GetEnvFloat("FEED_BONUS_FOLLOWED", cfg.FollowedBonus)
	cfg.VerifiedBonus = config.GetEnvFloat("FEED_BONUS_VERIFIED", cfg.VerifiedBonus)
	cfg.ExplorationMax = config.GetEnvFloat("FEED_EXPLORATION_MAX", cfg.ExplorationMax)
	return cfg
}
