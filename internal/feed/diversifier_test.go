package feed

import (
	"fmt"
	"testing"
	"time"
)

// rankedForAuthors builds a descending-score list where item i belongs to
// authors[i].
func rankedForAuthors(authors []string) []Scored {
	out := make([]Scored, len(authors))
	for i, author := range authors {
		out[i] = Scored{
			Candidate: Candidate{
				ID:        fmt.Sprintf("item-%02d", i),
				AuthorID:  author,
				CreatedAt: testNow.Add(-time.Duration(i) * time.Minute),
			},
			Score: float64(100 - i),
		}
	}
	return out
}

func TestDistinctAuthorsOnePerAuthorInRankedOrder(t *testing.T) {
	authors := make([]string, 10)
	for i := range authors {
		authors[i] = fmt.Sprintf("author-%d", i)
	}
	ranked := rankedForAuthors(authors)

	out := NewDiversifier(0).Diversify(ranked, 5)
	if len(out) != 5 {
		t.Fatalf("expected 5 items, got %d", len(out))
	}
	seen := map[string]bool{}
	for i, item := range out {
		if item.ID != ranked[i].ID {
			t.Fatalf("expected ranked order preserved, got %q at %d", item.ID, i)
		}
		if seen[item.AuthorID] {
			t.Fatalf("author %q repeated", item.AuthorID)
		}
		seen[item.AuthorID] = true
	}
}

func TestSingleAuthorNeverFabricatesItems(t *testing.T) {
	ranked := rankedForAuthors([]string{"a", "a", "a", "a", "a", "a", "a", "a", "a", "a"})

	out := NewDiversifier(0).Diversify(ranked, 5)
	if len(out) != 5 {
		t.Fatalf("expected 5 items from single author, got %d", len(out))
	}
	for i, item := range out {
		if item.ID != ranked[i].ID {
			t.Fatalf("expected author's internal order preserved, got %q at %d", item.ID, i)
		}
	}
}

func TestTinyInputIsTruncatedUntouched(t *testing.T) {
	ranked := rankedForAuthors([]string{"a", "a", "b"})

	out := NewDiversifier(0).Diversify(ranked, 2)
	if len(out) != 2 {
		t.Fatalf("expected truncation to 2, got %d", len(out))
	}
	if out[0].ID != ranked[0].ID || out[1].ID != ranked[1].ID {
		t.Fatalf("expected ranked order for tiny input, got %v", out)
	}
}

func TestFewerResultsThanRequestedIsValid(t *testing.T) {
	ranked := rankedForAuthors([]string{"a", "b", "c", "d"})

	out := NewDiversifier(0).Diversify(ranked, 10)
	if len(out) != 4 {
		t.Fatalf("expected all 4 available items, got %d", len(out))
	}
}

func TestNeverExceedsTargetSize(t *testing.T) {
	authors := make([]string, 30)
	for i := range authors {
		authors[i] = fmt.Sprintf("author-%d", i%3)
	}
	ranked := rankedForAuthors(authors)

	for _, limit := range []int{1, 5, 7, 29, 30, 50} {
		out := NewDiversifier(0).Diversify(ranked, limit)
		want := limit
		if want > len(ranked) {
			want = len(ranked)
		}
		if len(out) > want {
			t.Fatalf("limit %d exceeded: got %d items", limit, len(out))
		}
	}
}

func TestTwoAuthorsInterleave(t *testing.T) {
	// Author a holds the top ranks; diversification should still slot b's
	// items between a's runs rather than appending them at the end.
	ranked := rankedForAuthors([]string{"a", "a", "a", "a", "b", "b", "a", "a"})

	out := NewDiversifier(0).Diversify(ranked, 6)
	if len(out) != 6 {
		t.Fatalf("expected 6 items, got %d", len(out))
	}

	bPositions := []int{}
	for i, item := range out {
		if item.AuthorID == "b" {
			bPositions = append(bPositions, i)
		}
	}
	if len(bPositions) != 2 {
		t.Fatalf("expected both b items present, got positions %v", bPositions)
	}
	if bPositions[0] > 2 {
		t.Fatalf("expected b's first item near the front, got position %d", bPositions[0])
	}
}

func TestEmitsEachItemAtMostOnce(t *testing.T) {
	ranked := rankedForAuthors([]string{"a", "b", "a", "b", "c", "a", "c", "b"})

	out := NewDiversifier(0).Diversify(ranked, 8)
	seen := map[string]bool{}
	for _, item := range out {
		if seen[item.ID] {
			t.Fatalf("item %q emitted twice", item.ID)
		}
		seen[item.ID] = true
	}
	if len(out) != 8 {
		t.Fatalf("expected all items placed, got %d", len(out))
	}
}

func TestZeroLimit(t *testing.T) {
	ranked := rankedForAuthors([]string{"a", "b", "c", "d"})
	if out := NewDiversifier(0).Diversify(ranked, 0); len(out) != 0 {
		t.Fatalf("expected empty result for zero limit, got %d", len(out))
	}
}
