package analyzer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/portops/triage-cli/internal/model"
)

func TestComposeAnalysisPrompt_VerbatimDescription(t *testing.T) {
	desc := "Container CMAU123456 stuck in processing with error"
	prompt := ComposeAnalysisPrompt(desc, nil, nil)

	assert.Contains(t, prompt, "INCIDENT DESCRIPTION: "+desc)
	// The JSON instruction block is a contract with ParseAnalysis.
	assert.Contains(t, prompt, `"incident_type"`)
	assert.Contains(t, prompt, `"pattern_match"`)
	assert.Contains(t, prompt, `"root_cause"`)
	assert.Contains(t, prompt, `"impact"`)
	assert.Contains(t, prompt, `"urgency"`)
	assert.Contains(t, prompt, `"affected_systems"`)
}

func TestComposeAnalysisPrompt_NoCorpusNoHeaders(t *testing.T) {
	prompt := ComposeAnalysisPrompt("gate camera offline", nil, nil)

	assert.NotContains(t, prompt, "TRAINING EXAMPLES")
	assert.NotContains(t, prompt, "KNOWLEDGE BASE")
}

func TestComposeAnalysisPrompt_TrainingBlock(t *testing.T) {
	examples := []model.TrainingExample{
		{
			Description:     "Vessel advice rejected with VESSEL_ERR_4",
			IncidentType:    "Vessel Operations",
			PatternMatch:    "Advice validation failure",
			RootCause:       "Schedule conflict",
			Impact:          "Berthing delayed",
			Urgency:         model.UrgencyHigh,
			AffectedSystems: []string{"Vessel Management System", "PORTNET"},
		},
		{
			Description:  "Container release stuck",
			IncidentType: "Container Management",
		},
	}

	prompt := ComposeAnalysisPrompt("vessel advice error", examples, nil)

	assert.Contains(t, prompt, "TRAINING EXAMPLES (Use these as reference for similar incidents):")
	assert.Contains(t, prompt, "Example 1:\nDescription: Vessel advice rejected with VESSEL_ERR_4")
	assert.Contains(t, prompt, "Affected Systems: Vessel Management System, PORTNET")
	assert.Contains(t, prompt, "Urgency: High")
	assert.Contains(t, prompt, "Example 2:\nDescription: Container release stuck")
	assert.Contains(t, prompt, "---")
}

func TestComposeAnalysisPrompt_KnowledgeBlock(t *testing.T) {
	entries := []model.KnowledgeEntry{
		{
			Title:    "EDI resubmission procedure",
			Type:     model.KnowledgeProcedure,
			Content:  "Open the message monitor and requeue the failed transmission.",
			Category: "EDI",
			Keywords: "edi, resubmit, queue",
		},
	}

	prompt := ComposeAnalysisPrompt("edi failure", nil, entries)

	assert.Contains(t, prompt, "KNOWLEDGE BASE (Use this information to enhance your analysis):")
	assert.Contains(t, prompt, "Knowledge 1 - EDI resubmission procedure (Procedure):")
	assert.Contains(t, prompt, "Open the message monitor and requeue the failed transmission.")
	assert.Contains(t, prompt, "Category: EDI")
	assert.Contains(t, prompt, "Keywords: edi, resubmit, queue")
}

func TestComposeAnalysisPrompt_ExcerptTruncation(t *testing.T) {
	long := strings.Repeat("a", 600)
	entries := []model.KnowledgeEntry{{Title: "Long entry", Type: model.KnowledgeReference, Content: long}}

	prompt := ComposeAnalysisPrompt("query", nil, entries)

	assert.Contains(t, prompt, strings.Repeat("a", excerptLimit)+"...")
	assert.NotContains(t, prompt, strings.Repeat("a", excerptLimit+1))
}

func TestExcerpt(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		limit int
		want  string
	}{
		{"short passes through", "short", 500, "short"},
		{"exact limit no ellipsis", strings.Repeat("x", 500), 500, strings.Repeat("x", 500)},
		{"over limit truncated", strings.Repeat("x", 501), 500, strings.Repeat("x", 500) + "..."},
		{"multibyte counted as characters", strings.Repeat("é", 10), 4, strings.Repeat("é", 4) + "..."},
		{"empty", "", 500, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, excerpt(tt.in, tt.limit))
		})
	}
}
