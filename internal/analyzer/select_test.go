package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portops/triage-cli/internal/model"
	"github.com/portops/triage-cli/internal/scorer"
)

func TestSelectTraining_RanksAndLimits(t *testing.T) {
	sc := scorer.New()
	corpus := []model.TrainingExample{
		{ID: "low", Description: "container stuck"},                 // jaccard 1/4
		{ID: "none", Description: "unrelated berthing note"},        // 0
		{ID: "exact", Description: "container crane failure"},       // 1.0 + phrase bonus, clamped
		{ID: "partial", Description: "crane failure"},               // jaccard 2/3
		{ID: "alsonone", Description: "completely different topic"}, // 0
	}

	got := SelectTraining(sc, "container crane failure", corpus, 3)

	require.Len(t, got, 3)
	assert.Equal(t, "exact", got[0].ID)
	assert.Equal(t, "partial", got[1].ID)
	assert.Equal(t, "low", got[2].ID)
}

func TestSelectTraining_StableOnTies(t *testing.T) {
	sc := scorer.New()
	// All candidates score zero against this query; corpus order must
	// survive selection.
	corpus := []model.TrainingExample{
		{ID: "first", Description: "alpha"},
		{ID: "second", Description: "beta"},
		{ID: "third", Description: "gamma"},
	}

	got := SelectTraining(sc, "unrelated query text", corpus, 2)

	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].ID)
	assert.Equal(t, "second", got[1].ID)
}

func TestSelectTraining_LimitLargerThanCorpus(t *testing.T) {
	sc := scorer.New()
	corpus := []model.TrainingExample{
		{ID: "a", Description: "gate jam"},
		{ID: "b", Description: "gate sensor fault"},
	}

	got := SelectTraining(sc, "gate", corpus, 10)
	assert.Len(t, got, 2)
}

func TestSelectTraining_ZeroLimit(t *testing.T) {
	sc := scorer.New()
	corpus := []model.TrainingExample{{ID: "a", Description: "gate jam"}}

	assert.Nil(t, SelectTraining(sc, "gate", corpus, 0))
}

func TestSelectKnowledge_RanksByRelevance(t *testing.T) {
	sc := scorer.New()
	corpus := []model.KnowledgeEntry{
		{ID: "billing", Title: "Billing adjustment guide", Priority: 1},
		{ID: "edi", Title: "EDI timeout troubleshooting", Priority: 1},
	}

	got := SelectKnowledge(sc, "edi timeout", corpus, 2)

	require.Len(t, got, 2)
	assert.Equal(t, "edi", got[0].ID)
	assert.Equal(t, "billing", got[1].ID)
}

func TestSelectKnowledge_EmptyCorpus(t *testing.T) {
	sc := scorer.New()

	entries := SelectKnowledge(sc, "anything", nil, 5)
	assert.Empty(t, entries)

	// An empty knowledge corpus never blocks training selection.
	examples := SelectTraining(sc, "gate jam", []model.TrainingExample{
		{ID: "a", Description: "gate jam at lane 4"},
	}, 3)
	assert.Len(t, examples, 1)
}

func TestMergeKnowledge(t *testing.T) {
	selected := []model.KnowledgeEntry{{ID: "k1"}, {ID: "k2"}}
	extras := []model.KnowledgeEntry{{ID: "k2"}, {ID: "k3"}, {ID: "k3"}}

	merged := MergeKnowledge(selected, extras)

	require.Len(t, merged, 3)
	assert.Equal(t, "k1", merged[0].ID)
	assert.Equal(t, "k2", merged[1].ID)
	assert.Equal(t, "k3", merged[2].ID)
}

func TestMergeKnowledge_NoExtras(t *testing.T) {
	selected := []model.KnowledgeEntry{{ID: "k1"}}

	assert.Equal(t, selected, MergeKnowledge(selected, nil))
	assert.Len(t, MergeKnowledge(nil, selected), 1)
}
