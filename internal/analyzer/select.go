package analyzer

import (
	"sort"

	"github.com/portops/triage-cli/internal/model"
	"github.com/portops/triage-cli/internal/scorer"
)

// Default context limits for one analysis.
const (
	defaultTrainingLimit  = 3
	defaultKnowledgeLimit = 5
)

// SelectTraining ranks the corpus by similarity to the query and returns
// the top limit examples. Selection never thresholds: low-scoring
// candidates still rank when the corpus is small, and the caller decides
// whether thin context is worth using.
func SelectTraining(sc *scorer.Scorer, query string, corpus []model.TrainingExample, limit int) []model.TrainingExample {
	return topRanked(corpus, limit, func(ex model.TrainingExample) float64 {
		return sc.TrainingSimilarity(query, ex)
	})
}

// SelectKnowledge ranks the corpus by relevance to the query and returns
// the top limit entries.
func SelectKnowledge(sc *scorer.Scorer, query string, corpus []model.KnowledgeEntry, limit int) []model.KnowledgeEntry {
	return topRanked(corpus, limit, func(entry model.KnowledgeEntry) float64 {
		return sc.KnowledgeRelevance(query, entry)
	})
}

// MergeKnowledge appends extras whose IDs are not already selected,
// preserving order. Enrichment candidates fold into a ranked selection
// without re-scoring.
func MergeKnowledge(selected, extras []model.KnowledgeEntry) []model.KnowledgeEntry {
	seen := make(map[string]bool, len(selected))
	for _, entry := range selected {
		seen[entry.ID] = true
	}
	for _, entry := range extras {
		if seen[entry.ID] {
			continue
		}
		seen[entry.ID] = true
		selected = append(selected, entry)
	}
	return selected
}

// topRanked returns the limit highest-scoring items, descending. Equal
// scores keep corpus order so selection is deterministic.
func topRanked[T any](items []T, limit int, score func(T) float64) []T {
	if limit <= 0 || len(items) == 0 {
		return nil
	}

	scores := make([]float64, len(items))
	for i, item := range items {
		scores[i] = score(item)
	}

	idx := make([]int, len(items))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return scores[idx[a]] > scores[idx[b]]
	})

	if limit > len(idx) {
		limit = len(idx)
	}
	out := make([]T, 0, limit)
	for _, i := range idx[:limit] {
		out = append(out, items[i])
	}
	return out
}
