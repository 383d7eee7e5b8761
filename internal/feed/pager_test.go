package feed

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func testBuilder() *Builder {
	cfg := DefaultBuilderConfig()
	b := NewBuilder(cfg)
	b.now = func() time.Time { return testNow }
	b.seed = func() int64 { return 0 }
	return b
}

func builderCandidates(n, authorCount int) []Candidate {
	out := make([]Candidate, 0, n)
	for i := 0; i < n; i++ {
		c := Candidate{
			ID:        fmt.Sprintf("item-%02d", i),
			AuthorID:  fmt.Sprintf("author-%d", i%authorCount),
			CreatedAt: testNow.Add(-time.Duration(i) * time.Minute),
		}
		c.Engagement.Likes = int64((n - i) * 10)
		out = append(out, c)
	}
	return out
}

func TestBuildPageReturnsRequestedSize(t *testing.T) {
	b := testBuilder()

	page, err := b.BuildPage(context.Background(), PageRequest{
		ViewerID:   "viewer-1",
		Page:       1,
		PageSize:   5,
		Candidates: builderCandidates(30, 10),
	})
	if err != nil {
		t.Fatalf("build page: %v", err)
	}
	if len(page.Items) != 5 {
		t.Fatalf("expected 5 items, got %d", len(page.Items))
	}
	if !page.HasMore {
		t.Fatalf("expected has_more with 30 candidates and page size 5")
	}
}

func TestBuildPageExhaustsCandidates(t *testing.T) {
	b := testBuilder()

	page, err := b.BuildPage(context.Background(), PageRequest{
		ViewerID:   "viewer-1",
		Page:       1,
		PageSize:   20,
		Candidates: builderCandidates(8, 4),
	})
	if err != nil {
		t.Fatalf("build page: %v", err)
	}
	if len(page.Items) != 8 {
		t.Fatalf("expected all 8 items, got %d", len(page.Items))
	}
	if page.HasMore {
		t.Fatalf("expected has_more false when everything was returned")
	}
}

func TestBuildPageBeyondEndIsEmpty(t *testing.T) {
	b := testBuilder()

	page, err := b.BuildPage(context.Background(), PageRequest{
		ViewerID:   "viewer-1",
		Page:       9,
		PageSize:   10,
		Candidates: builderCandidates(8, 4),
	})
	if err != nil {
		t.Fatalf("build page: %v", err)
	}
	if len(page.Items) != 0 || page.HasMore {
		t.Fatalf("expected empty final page, got %d items has_more=%v", len(page.Items), page.HasMore)
	}
}

func TestConsecutivePagesDoNotOverlap(t *testing.T) {
	b := testBuilder()
	candidates := builderCandidates(40, 10)

	seen := map[string]int{}
	for pageNum := 1; pageNum <= 3; pageNum++ {
		page, err := b.BuildPage(context.Background(), PageRequest{
			ViewerID:   "viewer-1",
			Page:       pageNum,
			PageSize:   5,
			Candidates: candidates,
		})
		if err != nil {
			t.Fatalf("build page %d: %v", pageNum, err)
		}
		for _, item := range page.Items {
			if prev, dup := seen[item.ID]; dup {
				t.Fatalf("item %q on pages %d and %d", item.ID, prev, pageNum)
			}
			seen[item.ID] = pageNum
		}
	}
}

func TestPagesPartitionCandidatesWithFewAuthors(t *testing.T) {
	b := testBuilder()

	// Two authors, with the minority author holding scattered ranks, forces
	// the diversifier to pull items from deep in the ordering.
	minority := map[int]bool{4: true, 5: true, 14: true, 15: true, 24: true, 25: true}
	candidates := make([]Candidate, 0, 30)
	for i := 0; i < 30; i++ {
		author := "author-a"
		if minority[i] {
			author = "author-b"
		}
		c := Candidate{
			ID:        fmt.Sprintf("item-%02d", i),
			AuthorID:  author,
			CreatedAt: testNow.Add(-time.Duration(i) * time.Minute),
		}
		c.Engagement.Likes = int64((30 - i) * 10)
		candidates = append(candidates, c)
	}

	seen := map[string]int{}
	total := 0
	for pageNum := 1; pageNum <= 10; pageNum++ {
		page, err := b.BuildPage(context.Background(), PageRequest{
			ViewerID:   "viewer-1",
			Page:       pageNum,
			PageSize:   5,
			Candidates: candidates,
		})
		if err != nil {
			t.Fatalf("build page %d: %v", pageNum, err)
		}
		for _, item := range page.Items {
			if prev, dup := seen[item.ID]; dup {
				t.Fatalf("item %q emitted on pages %d and %d", item.ID, prev, pageNum)
			}
			seen[item.ID] = pageNum
			total++
		}
		if !page.HasMore {
			break
		}
	}

	if total != len(candidates) {
		t.Fatalf("pages covered %d of %d candidates", total, len(candidates))
	}
}

func TestCachedRankingIsStableAcrossPages(t *testing.T) {
	b := testBuilder()
	seeds := []int64{0, 1, 2}
	next := 0
	b.seed = func() int64 { s := seeds[next%len(seeds)]; next++; return s }

	candidates := builderCandidates(20, 5)
	first, err := b.BuildPage(context.Background(), PageRequest{ViewerID: "viewer-1", Page: 1, PageSize: 5, Candidates: candidates})
	if err != nil {
		t.Fatalf("build page: %v", err)
	}
	again, err := b.BuildPage(context.Background(), PageRequest{ViewerID: "viewer-1", Page: 1, PageSize: 5, Candidates: candidates})
	if err != nil {
		t.Fatalf("build page: %v", err)
	}

	for i := range first.Items {
		if first.Items[i].ID != again.Items[i].ID {
			t.Fatalf("cached ranking changed between identical requests at %d", i)
		}
	}
	if next != 1 {
		t.Fatalf("expected a single ranking pass, got %d", next)
	}
}

func TestInvalidateForcesRerank(t *testing.T) {
	b := testBuilder()
	ranks := 0
	b.seed = func() int64 { ranks++; return 0 }

	candidates := builderCandidates(10, 5)
	req := PageRequest{ViewerID: "viewer-1", Page: 1, PageSize: 5, Candidates: candidates}

	if _, err := b.BuildPage(context.Background(), req); err != nil {
		t.Fatalf("build page: %v", err)
	}
	b.Invalidate("viewer-1")
	if _, err := b.BuildPage(context.Background(), req); err != nil {
		t.Fatalf("build page: %v", err)
	}
	if ranks != 2 {
		t.Fatalf("expected re-rank after invalidate, got %d passes", ranks)
	}
}

func TestViewersGetIndependentRankings(t *testing.T) {
	b := testBuilder()
	ranks := 0
	b.seed = func() int64 { ranks++; return int64(ranks) }

	candidates := builderCandidates(10, 5)
	if _, err := b.BuildPage(context.Background(), PageRequest{ViewerID: "viewer-1", Page: 1, PageSize: 5, Candidates: candidates}); err != nil {
		t.Fatalf("build page: %v", err)
	}
	if _, err := b.BuildPage(context.Background(), PageRequest{ViewerID: "viewer-2", Page: 1, PageSize: 5, Candidates: candidates}); err != nil {
		t.Fatalf("build page: %v", err)
	}
	if ranks != 2 {
		t.Fatalf("expected one ranking per viewer, got %d", ranks)
	}
}
