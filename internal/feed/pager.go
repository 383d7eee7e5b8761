package feed

import (
	"context"
	"math/rand"
	"time"

	"aniflixx/engage/pkg/cache"
	"aniflixx/engage/pkg/pagination"
)

// DefaultCacheTTL bounds how long one viewer's assembled ordering is reused
// across page requests.
const DefaultCacheTTL = 2 * time.Minute

// PageRequest asks for one feed page for a viewer.
type PageRequest struct {
	ViewerID   string
	Page       int
	PageSize   int
	Candidates []Candidate
}

// Page is the assembled result. HasMore reports whether candidates remained
// beyond what this page consumed.
type Page struct {
	Items   []Scored
	HasMore bool
}

// BuilderConfig bundles the tuning knobs for page assembly.
type BuilderConfig struct {
	Score         ScoreConfig
	SpacingWindow int
	CacheTTL      time.Duration
	CacheSize     int
}

func DefaultBuilderConfig() BuilderConfig {
	return BuilderConfig{
		Score:         DefaultScoreConfig(),
		SpacingWindow: DefaultSpacingWindow,
		CacheTTL:      DefaultCacheTTL,
		CacheSize:     10_000,
	}
}

// Builder turns candidate sets into ranked, diversified pages. The full
// ranked-and-diversified sequence is memoized per viewer for CacheTTL and
// pages are slices of it, so consecutive pages of one browsing session never
// repeat or skip an item; after the TTL the exploration term reshuffles.
type Builder struct {
	ranker      *Ranker
	diversifier *Diversifier
	sequences   *cache.Cache

	now  func() time.Time
	seed func() int64
}

func NewBuilder(cfg BuilderConfig) *Builder {
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Builder{
		ranker:      NewRanker(cfg.Score),
		diversifier: NewDiversifier(cfg.SpacingWindow),
		sequences:   cache.New(cache.Options{TTL: ttl, MaxEntries: cfg.CacheSize}),
		now:         time.Now,
		seed:        func() int64 { return time.Now().UnixNano() },
	}
}

// BuildPage assembles the viewer's full diversified sequence (or reuses the
// cached one) and returns the requested slice of it.
func (b *Builder) BuildPage(ctx context.Context, req PageRequest) (Page, error) {
	p := pagination.Normalize(req.Page, req.PageSize)

	val, _, err := b.sequences.Get(ctx, req.ViewerID, func(ctx context.Context, _ string) (interface{}, bool, error) {
		rng := rand.New(rand.NewSource(b.seed()))
		ranked := b.ranker.Rank(req.Candidates, b.now(), rng)
		return b.diversifier.Diversify(ranked, len(ranked)), true, nil
	})
	if err != nil {
		return Page{}, err
	}
	sequence := val.([]Scored)

	offset := p.Offset()
	if offset >= len(sequence) {
		return Page{Items: []Scored{}, HasMore: false}, nil
	}

	end := offset + p.Size
	if end > len(sequence) {
		end = len(sequence)
	}

	return Page{
		Items:   sequence[offset:end],
		HasMore: end < len(sequence),
	}, nil
}

// Invalidate drops a viewer's cached sequence, forcing the next request to
// re-rank fresh candidates.
func (b *Builder) Invalidate(viewerID string) {
	b.sequences.Delete(viewerID)
}
