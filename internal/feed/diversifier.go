package feed

// DefaultSpacingWindow drives the minimum gap between two items from the
// same author: gap = max(1, window / distinct authors). More authors allow a
// tighter gap; a near-monopoly forces a wide one.
const DefaultSpacingWindow = 6

// Diversifier reorders a ranked list so no single author dominates
// consecutive positions.
type Diversifier struct {
	spacingWindow int
}

func NewDiversifier(spacingWindow int) *Diversifier {
	if spacingWindow <= 0 {
		spacingWindow = DefaultSpacingWindow
	}
	return &Diversifier{spacingWindow: spacingWindow}
}

// Diversify selects up to limit items from ranked, spacing out same-author
// runs. Each author's internal order is preserved (their best item first).
// Very small inputs (3 or fewer candidates) are passed through truncated:
// there is nothing meaningful to rebalance.
func (d *Diversifier) Diversify(ranked []Scored, limit int) []Scored {
	if limit <= 0 {
		return nil
	}
	if len(ranked) <= 3 {
		if len(ranked) > limit {
			return ranked[:limit]
		}
		return ranked
	}

	// Group by author, keeping ranking order inside each queue and ordering
	// authors by their best candidate.
	queues := make(map[string][]Scored)
	authorOrder := make([]string, 0)
	for _, item := range ranked {
		if _, seen := queues[item.AuthorID]; !seen {
			authorOrder = append(authorOrder, item.AuthorID)
		}
		queues[item.AuthorID] = append(queues[item.AuthorID], item)
	}

	minGap := d.spacingWindow / len(authorOrder)
	if minGap < 1 {
		minGap = 1
	}

	out := make([]Scored, 0, limit)
	lastEmitted := make(map[string]int)

	emit := func(author string) {
		out = append(out, queues[author][0])
		queues[author] = queues[author][1:]
		lastEmitted[author] = len(out) - 1
	}

	// First pass: one item per distinct author, best authors first.
	for _, author := range authorOrder {
		if len(out) == limit {
			return out
		}
		emit(author)
	}

	// Second pass: round-robin under the gap rule; when a full scan places
	// nothing, relax the rule for one placement so we always make progress.
	for len(out) < limit {
		progressed := false
		for _, author := range authorOrder {
			if len(out) == limit {
				return out
			}
			if len(queues[author]) == 0 {
				continue
			}
			if len(out)-lastEmitted[author] >= minGap {
				emit(author)
				progressed = true
			}
		}
		if progressed {
			continue
		}

		// Relaxed placement: pick the author idle the longest so the run
		// stays as spread out as the input allows.
		relaxCandidate := ""
		for _, author := range authorOrder {
			if len(queues[author]) == 0 {
				continue
			}
			if relaxCandidate == "" || lastEmitted[author] < lastEmitted[relaxCandidate] {
				relaxCandidate = author
			}
		}
		if relaxCandidate == "" {
			// All queues drained; fewer results than requested is valid.
			break
		}
		emit(relaxCandidate)
	}

	return out
}
