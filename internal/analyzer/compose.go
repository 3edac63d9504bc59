package analyzer

import (
	"fmt"
	"strings"

	"github.com/portops/triage-cli/internal/model"
)

// excerptLimit caps how much of a knowledge entry's content the prompt
// carries.
const excerptLimit = 500

// analysisSystemPrompt frames every triage completion.
const analysisSystemPrompt = "You are an expert maritime operations analyst for PORTNET®."

// analysisPromptFormat is the fixed analysis instruction. The JSON field
// names are a contract with ParseAnalysis; change both together or
// neither.
const analysisPromptFormat = `Analyze this maritime/port operations incident and provide a structured analysis:

INCIDENT DESCRIPTION: %s
%s
%s

Please provide your analysis in the following JSON format:
{
    "incident_type": "Brief categorization (e.g., Container Management, Vessel Operations, EDI Processing, etc.)",
    "pattern_match": "What pattern or category this incident matches",
    "root_cause": "Likely root cause based on the description and knowledge base",
    "impact": "Potential impact on operations",
    "urgency": "Low/Medium/High/Critical based on operational impact",
    "affected_systems": ["List of systems that might be affected"]
}

Focus on maritime operations context including PORTNET®, container management, vessel operations, EDI messaging, terminal operations, and billing systems.`

// ComposeAnalysisPrompt builds the analysis request for one incident.
// The description is embedded verbatim; the selected corpus records
// follow in fixed reference sections.
func ComposeAnalysisPrompt(description string, examples []model.TrainingExample, entries []model.KnowledgeEntry) string {
	return fmt.Sprintf(analysisPromptFormat, description, trainingSection(examples), knowledgeSection(entries))
}

// trainingSection renders the selected training examples. Empty input
// yields an empty string so the prompt carries no header for an empty
// section.
func trainingSection(examples []model.TrainingExample) string {
	if len(examples) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\nTRAINING EXAMPLES (Use these as reference for similar incidents):\n")
	for i, ex := range examples {
		fmt.Fprintf(&b, "\nExample %d:\nDescription: %s\nType: %s\nPattern: %s\nRoot Cause: %s\nImpact: %s\nUrgency: %s\nAffected Systems: %s\n---",
			i+1, ex.Description, ex.IncidentType, ex.PatternMatch, ex.RootCause, ex.Impact, ex.Urgency,
			strings.Join(ex.AffectedSystems, ", "))
	}
	return b.String()
}

// knowledgeSection renders the selected knowledge entries with their
// content capped at excerptLimit characters.
func knowledgeSection(entries []model.KnowledgeEntry) string {
	if len(entries) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\nKNOWLEDGE BASE (Use this information to enhance your analysis):\n")
	for i, entry := range entries {
		fmt.Fprintf(&b, "\nKnowledge %d - %s (%s):\n%s\nCategory: %s\nKeywords: %s\n---",
			i+1, entry.Title, entry.Type, excerpt(entry.Content, excerptLimit), entry.Category, entry.Keywords)
	}
	return b.String()
}

// excerpt caps s at limit characters and marks truncation with an
// ellipsis. Content at or under the limit passes through untouched.
func excerpt(s string, limit int) string {
	if t := truncate(s, limit); len(t) < len(s) {
		return t + "..."
	}
	return s
}
