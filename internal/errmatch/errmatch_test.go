package errmatch

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portops/triage-cli/internal/model"
	"github.com/portops/triage-cli/internal/store"
)

func TestExtractCodes(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name        string
		description string
		want        []string
	}{
		{"underscore with digit", "VESSEL_ERR_4 reported while berthing", []string{"VESSEL_ERR_4"}},
		{"hyphen with digits", "EDI message REF-IFT-0007 rejected.", []string{"REF-IFT-0007"}},
		{"all caps without digit", "gate kiosk shows ACCESS-DENIED banner", []string{"ACCESS-DENIED"}},
		{"lowercase prose hyphen", "please re-try the overnight sync", []string{GeneralCode}},
		{"lowercase code uppercased", "feed failed with ref-ift-0007 again", []string{"REF-IFT-0007"}},
		{"parenthesized code", "crane halted (CRANE_FAULT_12) at berth 3", []string{"CRANE_FAULT_12"}},
		{"dedupes keeping order", "VESSEL_ERR_4 after REF-IFT-0007 then VESSEL_ERR_4", []string{"VESSEL_ERR_4", "REF-IFT-0007"}},
		{"no codes", "container is stuck in the yard", []string{GeneralCode}},
		{"empty description", "", []string{GeneralCode}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ExtractCodes(tt.description))
		})
	}
}

// --- Matcher ---

type fakeSource struct {
	entries    []model.KnowledgeEntry
	incidents  []model.Incident
	entriesErr error
}

func (f *fakeSource) KnowledgeEntries(ctx context.Context) ([]model.KnowledgeEntry, error) {
	return f.entries, f.entriesErr
}

func (f *fakeSource) ListIncidents(ctx context.Context, filter store.IncidentFilter) ([]model.Incident, error) {
	return f.incidents, nil
}

func TestMatcher_Match(t *testing.T) {
	src := &fakeSource{
		entries: []model.KnowledgeEntry{
			{ID: "k1", Title: "VESSEL_ERR_4 recovery procedure", Keywords: "vessel, berthing"},
			{ID: "k2", Title: "Gate transaction checklist", Keywords: "gate, rfid"},
			{ID: "k3", Title: "EDI rejection handling", Keywords: "edi, ref-ift-0007"},
		},
		incidents: []model.Incident{
			{ID: "i1", Description: "MV Lion City 07 berthing failed with VESSEL_ERR_4"},
			{ID: "i2", Description: "container stuck in yard block C"},
		},
	}
	m := NewMatcher(src)

	match, err := m.Match(context.Background(), "VESSEL_ERR_4 raised, suspect REF-IFT-0007 fallout")
	require.NoError(t, err)

	assert.Equal(t, []string{"VESSEL_ERR_4", "REF-IFT-0007"}, match.Codes)
	require.Len(t, match.Knowledge, 2)
	assert.Equal(t, "k1", match.Knowledge[0].ID)
	assert.Equal(t, "k3", match.Knowledge[1].ID)
	require.Len(t, match.Incidents, 1)
	assert.Equal(t, "i1", match.Incidents[0].ID)
}

func TestMatcher_Match_NoKnownCode(t *testing.T) {
	src := &fakeSource{
		entries:   []model.KnowledgeEntry{{ID: "k1", Title: "Billing dispute workflow"}},
		incidents: []model.Incident{{ID: "i1", Description: "invoice totals look wrong"}},
	}
	m := NewMatcher(src)

	match, err := m.Match(context.Background(), "everything looks slow today")
	require.NoError(t, err)

	assert.Equal(t, []string{GeneralCode}, match.Codes)
	assert.Empty(t, match.Knowledge)
	assert.Empty(t, match.Incidents)
}

func TestMatcher_Match_LimitsResults(t *testing.T) {
	src := &fakeSource{}
	for i := 0; i < 8; i++ {
		src.entries = append(src.entries, model.KnowledgeEntry{
			ID:    string(rune('a' + i)),
			Title: "VESSEL_ERR_4 note",
		})
	}
	m := NewMatcher(src)

	match, err := m.Match(context.Background(), "VESSEL_ERR_4")
	require.NoError(t, err)
	assert.Len(t, match.Knowledge, defaultKnowledgeLimit)
}

func TestMatcher_EnrichKnowledge(t *testing.T) {
	src := &fakeSource{
		entries: []model.KnowledgeEntry{
			{ID: "k1", Title: "VESSEL_ERR_4 recovery procedure"},
			{ID: "k2", Title: "Unrelated tariff table"},
		},
	}
	m := NewMatcher(src)

	entries := m.EnrichKnowledge(context.Background(), "vessel advice failed: VESSEL_ERR_4")
	require.Len(t, entries, 1)
	assert.Equal(t, "k1", entries[0].ID)
}

func TestMatcher_EnrichKnowledge_SourceError(t *testing.T) {
	m := NewMatcher(&fakeSource{entriesErr: eris.New("boom")})

	entries := m.EnrichKnowledge(context.Background(), "VESSEL_ERR_4")
	assert.Nil(t, entries)
}
