package extract

import (
	"sort"

	"solana-mention-tracker/internal/domain"
)

// Dedup collapses matches sharing a token key into a single survivor.
// A contract match always wins its group; otherwise the higher confidence wins,
// and the earlier match breaks ties. Survivors are ordered by the first
// appearance of their group.
func Dedup(matches []Match) []Match {
	type group struct {
		best     Match
		firstPos int
	}

	groups := make(map[string]*group, len(matches))
	order := make([]string, 0, len(matches))

	for _, m := range matches {
		key := m.Candidate.TokenKey
		g, ok := groups[key]
		if !ok {
			groups[key] = &group{best: m, firstPos: m.Pos}
			order = append(order, key)
			continue
		}
		if m.Pos < g.firstPos {
			g.firstPos = m.Pos
		}
		if outranks(m, g.best) {
			g.best = m
		}
	}

	out := make([]Match, 0, len(order))
	for _, key := range order {
		out = append(out, groups[key].best)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return groups[out[i].Candidate.TokenKey].firstPos < groups[out[j].Candidate.TokenKey].firstPos
	})
	return out
}

// DedupCandidates applies Dedup to bare candidates, keeping input order as position.
func DedupCandidates(cands []domain.MentionCandidate) []domain.MentionCandidate {
	matches := make([]Match, len(cands))
	for i, c := range cands {
		matches[i] = Match{Candidate: c, Pos: i}
	}
	deduped := Dedup(matches)
	out := make([]domain.MentionCandidate, len(deduped))
	for i, m := range deduped {
		out[i] = m.Candidate
	}
	return out
}

// outranks reports whether a should replace b as the group survivor.
func outranks(a, b Match) bool {
	aContract := a.Candidate.Source == domain.SourceContract
	bContract := b.Candidate.Source == domain.SourceContract
	if aContract != bContract {
		return aContract
	}
	if a.Candidate.Confidence != b.Candidate.Confidence {
		return a.Candidate.Confidence > b.Candidate.Confidence
	}
	return a.Pos < b.Pos
}
