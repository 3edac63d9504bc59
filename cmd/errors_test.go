//go:build !integration

package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/portops/triage-cli/internal/errmatch"
	"github.com/portops/triage-cli/internal/model"
)

func TestFormatErrorMatch_NoContext(t *testing.T) {
	var buf bytes.Buffer
	formatErrorMatch(&buf, &errmatch.Match{Codes: []string{"GENERAL_ERROR"}})

	out := buf.String()
	assert.Contains(t, out, "codes: GENERAL_ERROR")
	assert.Contains(t, out, "no known-error context recorded")
}

func TestFormatErrorMatch_WithContext(t *testing.T) {
	match := &errmatch.Match{
		Codes: []string{"VESSEL_ERR_4", "REF-IFT-0007"},
		Knowledge: []model.KnowledgeEntry{
			{Title: "VESSEL_ERR_4 berth conflict procedure", Category: "vessel", Type: model.KnowledgeProcedure},
		},
		Incidents: []model.Incident{
			{
				Reference: "INC-20240301-101500",
				Status:    model.IncidentClosed,
				Analysis:  model.Analysis{IncidentType: "Vessel Operations", Urgency: model.UrgencyHigh},
			},
		},
	}

	var buf bytes.Buffer
	formatErrorMatch(&buf, match)

	out := buf.String()
	assert.Contains(t, out, "codes: VESSEL_ERR_4, REF-IFT-0007")
	assert.Contains(t, out, "KNOWLEDGE")
	assert.Contains(t, out, "VESSEL_ERR_4 berth conflict procedure")
	assert.Contains(t, out, "INC-20240301-101500")
	assert.Contains(t, out, "Vessel Operations")
	assert.NotContains(t, out, "no known-error context recorded")
}
