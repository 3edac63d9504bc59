package scorer

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/portops/triage-cli/internal/model"
)

func TestTrainingSimilarity(t *testing.T) {
	s := New()

	tests := []struct {
		name  string
		query string
		ex    model.TrainingExample
		want  float64
	}{
		{
			name:  "jaccard plus phrase bonus",
			query: "container error",
			ex:    model.TrainingExample{Description: "container error in yard"},
			// 2/4 token overlap + 0.2 phrase hit
			want: 0.7,
		},
		{
			name:  "category bonus without phrase hit",
			query: "vessel arrival delayed",
			ex: model.TrainingExample{
				Description: "ship arrival reported late",
				Category:    "vessel",
			},
			want: 1.0/6.0 + 0.1,
		},
		{
			name:  "disjoint tokens score zero",
			query: "alpha beta",
			ex:    model.TrainingExample{Description: "gamma delta"},
			want:  0,
		},
		{
			name:  "empty query scores zero",
			query: "   ",
			ex:    model.TrainingExample{Description: "anything at all"},
			want:  0,
		},
		{
			name:  "identical text clamps at one",
			query: "gate access denied for truck",
			ex:    model.TrainingExample{Description: "gate access denied for truck"},
			want:  1.0,
		},
		{
			name:  "empty category adds nothing",
			query: "billing dispute",
			ex:    model.TrainingExample{Description: "invoice question", Category: ""},
			want:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.TrainingSimilarity(tt.query, tt.ex)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 1.0)
		})
	}
}

func TestTrainingSimilarityCaseInsensitive(t *testing.T) {
	s := New()
	ex := model.TrainingExample{Description: "Container CMAU123456 stuck in processing", Category: "Container"}

	lower := s.TrainingSimilarity("container stuck in processing", ex)
	upper := s.TrainingSimilarity("CONTAINER STUCK IN PROCESSING", ex)

	assert.InDelta(t, lower, upper, 1e-9)
	assert.Greater(t, lower, 0.0)
}

func TestKnowledgeRelevance(t *testing.T) {
	s := New()

	tests := []struct {
		name  string
		query string
		entry model.KnowledgeEntry
		want  float64
	}{
		{
			name:  "title and content substring hits clamp at one",
			query: "container stuck",
			entry: model.KnowledgeEntry{
				Title:    "Container stuck procedures",
				Content:  "steps to release a container stuck in yard processing",
				Keywords: "container, stuck, yard",
				Priority: 2,
			},
			// 0.4 + 0.3 + full title overlap 0.2 + content overlap 0.1 + priority 0.1
			want: 1.0,
		},
		{
			name:  "keywords substring only",
			query: "demurrage",
			entry: model.KnowledgeEntry{
				Title:    "Billing disputes",
				Content:  "standard invoice checks",
				Keywords: "billing, demurrage, charges",
				Priority: 1,
			},
			want: keywordSubstringWeight + 1*priorityWeight,
		},
		{
			name:  "partial token overlap",
			query: "vessel advice error",
			entry: model.KnowledgeEntry{
				Title:    "Vessel advice creation guide",
				Content:  "how to create an advice for arriving vessels",
				Priority: 3,
			},
			// title overlap 2/3 * 0.2 + content overlap 1/3 * 0.1 + priority 0.15
			want: 0.2*2.0/3.0 + 0.1*1.0/3.0 + 0.15,
		},
		{
			name:  "empty query scores zero",
			query: "",
			entry: model.KnowledgeEntry{Title: "anything", Content: "anything", Priority: 4},
			want:  0,
		},
		{
			name:  "no match leaves only priority",
			query: "reefer plug",
			entry: model.KnowledgeEntry{Title: "gate pass rules", Content: "truck entry checks", Priority: 2},
			want:  2 * priorityWeight,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.KnowledgeRelevance(tt.query, tt.entry)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 1.0)
		})
	}
}

func TestKnowledgeRelevanceUsageBonus(t *testing.T) {
	now := time.Date(2024, 10, 15, 12, 0, 0, 0, time.UTC)
	s := New(WithNow(func() time.Time { return now }))

	twoDaysAgo := now.Add(-48 * time.Hour)
	oneHourAgo := now.Add(-1 * time.Hour)

	tests := []struct {
		name  string
		entry model.KnowledgeEntry
		want  float64
	}{
		{
			name: "views divided by whole days since use",
			entry: model.KnowledgeEntry{
				Title: "mooring guide", Priority: 1,
				ViewCount: 10, LastUsed: &twoDaysAgo,
			},
			want: priorityWeight + 10*usageWeight/2,
		},
		{
			name: "same day counts as one day and bonus caps",
			entry: model.KnowledgeEntry{
				Title: "mooring guide", Priority: 1,
				ViewCount: 1000, LastUsed: &oneHourAgo,
			},
			want: priorityWeight + usageBonusCap,
		},
		{
			name: "no last used means no bonus",
			entry: model.KnowledgeEntry{
				Title: "mooring guide", Priority: 1,
				ViewCount: 50,
			},
			want: priorityWeight,
		},
		{
			name: "zero views means no bonus",
			entry: model.KnowledgeEntry{
				Title: "mooring guide", Priority: 1,
				ViewCount: 0, LastUsed: &twoDaysAgo,
			},
			want: priorityWeight,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.KnowledgeRelevance("berth", tt.entry)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestTokenize(t *testing.T) {
	set := tokenize("Container  CONTAINER stuck\tstuck\n")
	assert.Len(t, set, 2)
	_, ok := set["container"]
	assert.True(t, ok)
	_, ok = set["stuck"]
	assert.True(t, ok)

	assert.Nil(t, tokenize("   "))
}

func TestScoreBoundsFuzzish(t *testing.T) {
	s := New()
	queries := []string{"", "a", strings.Repeat("error ", 200), "Container CMAU123456 stuck in processing with error"}
	descs := []string{"", "error", strings.Repeat("x ", 500), "Container CMAU123456 stuck in processing with error"}

	for _, q := range queries {
		for _, d := range descs {
			got := s.TrainingSimilarity(q, model.TrainingExample{Description: d, Category: "error"})
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 1.0)

			got = s.KnowledgeRelevance(q, model.KnowledgeEntry{Title: d, Content: d, Keywords: d, Priority: 4})
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 1.0)
		}
	}
}
