package analyzer

import (
	"encoding/json"
	"strings"

	"github.com/portops/triage-cli/internal/model"
)

// Canonical defaults for analysis fields the response did not supply.
const (
	defaultIncidentType = "System Issue"
	defaultPatternMatch = "General incident"
	defaultRootCause    = "Under investigation"
	defaultImpact       = "Operational impact being assessed"
)

// Field caps applied on both parse paths.
const (
	maxIncidentTypeLen = 100
	maxRootCauseLen    = 500
	maxAffectedSystems = 10
)

// ParseAnalysis extracts a structured analysis from raw model output. The
// primary path decodes the substring between the outermost braces and
// fills a fixed default for every missing field; when no decodable object
// is present the secondary path scrapes "key: value" lines instead. It
// never fails: garbage input yields an analysis carrying all defaults.
func ParseAnalysis(raw string) model.Analysis {
	if obj, ok := extractJSONObject(raw); ok {
		var fields map[string]any
		if err := json.Unmarshal([]byte(obj), &fields); err == nil {
			return analysisFromFields(fields)
		}
	}
	return scrapeAnalysis(raw)
}

// extractJSONObject returns the substring spanning the first '{' through
// the last '}'. That tolerates code fences and surrounding prose without
// needing to understand either.
func extractJSONObject(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

func analysisFromFields(fields map[string]any) model.Analysis {
	return model.Analysis{
		IncidentType:    truncate(stringField(fields, "incident_type", defaultIncidentType), maxIncidentTypeLen),
		PatternMatch:    stringField(fields, "pattern_match", defaultPatternMatch),
		RootCause:       truncate(stringField(fields, "root_cause", defaultRootCause), maxRootCauseLen),
		Impact:          stringField(fields, "impact", defaultImpact),
		Urgency:         canonicalUrgency(stringField(fields, "urgency", "")),
		AffectedSystems: stringSliceField(fields, "affected_systems"),
	}
}

// scrapeAnalysis recovers fields from line-oriented "key: value" output.
// Each line feeds at most one field, later lines win, and fields never
// captured keep their defaults.
func scrapeAnalysis(raw string) model.Analysis {
	analysis := model.Analysis{
		IncidentType:    defaultIncidentType,
		PatternMatch:    defaultPatternMatch,
		RootCause:       defaultRootCause,
		Impact:          defaultImpact,
		Urgency:         model.UrgencyMedium,
		AffectedSystems: []string{},
	}

	for _, line := range strings.Split(raw, "\n") {
		lower := strings.ToLower(line)
		switch {
		case strings.Contains(lower, "type:") || strings.Contains(lower, "category:"):
			if v := lineValue(line); v != "" {
				analysis.IncidentType = truncate(v, maxIncidentTypeLen)
			}
		case strings.Contains(lower, "cause:"):
			if v := lineValue(line); v != "" {
				analysis.RootCause = truncate(v, maxRootCauseLen)
			}
		case strings.Contains(lower, "urgency:") || strings.Contains(lower, "priority:"):
			if v := lineValue(line); model.ValidUrgency(v) {
				analysis.Urgency = model.Urgency(v)
			}
		case strings.Contains(lower, "systems:"):
			if systems := splitSystems(lineValue(line)); len(systems) > 0 {
				analysis.AffectedSystems = systems
			}
		}
	}
	return analysis
}

// stringField returns the trimmed string at key, or fallback when the key
// is absent, not a string, or blank.
func stringField(fields map[string]any, key, fallback string) string {
	if v, ok := fields[key]; ok {
		if s, ok := v.(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return fallback
}

// stringSliceField collects the string elements at key, dropping blanks
// and non-strings. Always returns a non-nil slice.
func stringSliceField(fields map[string]any, key string) []string {
	systems := []string{}
	items, ok := fields[key].([]any)
	if !ok {
		return systems
	}
	for _, item := range items {
		if s, ok := item.(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				systems = append(systems, s)
			}
		}
	}
	return systems
}

// canonicalUrgency accepts only an exact canonical value after trimming;
// anything else becomes Medium.
func canonicalUrgency(s string) model.Urgency {
	s = strings.TrimSpace(s)
	if model.ValidUrgency(s) {
		return model.Urgency(s)
	}
	return model.UrgencyMedium
}

// lineValue returns the trimmed text after the first colon in line.
func lineValue(line string) string {
	idx := strings.Index(line, ":")
	if idx < 0 {
		return ""
	}
	return strings.TrimSpace(line[idx+1:])
}

// splitSystems comma-splits a scraped systems value, trimming entries and
// capping the list at maxAffectedSystems.
func splitSystems(v string) []string {
	systems := []string{}
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			systems = append(systems, part)
		}
		if len(systems) == maxAffectedSystems {
			break
		}
	}
	return systems
}

// truncate caps s at n characters.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
