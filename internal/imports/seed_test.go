package imports

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portops/triage-cli/internal/model"
	"github.com/portops/triage-cli/internal/store"
)

func TestSeed_Defaults(t *testing.T) {
	st := newTestStore(t)
	im := New(st)

	res, err := im.Seed(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 6, res.TrainingAdded)
	assert.Equal(t, 6, res.KnowledgeAdded)
	assert.Zero(t, res.TrainingSkipped)
	assert.Zero(t, res.KnowledgeSkipped)

	id := deterministicID(trainingNamespace, "VESSEL_ERR_4 when creating vessel advice for MV Lion City 07")
	got, err := st.GetTraining(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, model.UrgencyHigh, got.Urgency)
	assert.True(t, got.Validated)

	entries, err := st.ListKnowledge(context.Background(), store.KnowledgeFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 6)
	for _, entry := range entries {
		assert.Equal(t, model.KnowledgeActive, entry.Status)
	}
}

func TestSeed_Idempotent(t *testing.T) {
	st := newTestStore(t)
	im := New(st)

	_, err := im.Seed(context.Background(), "")
	require.NoError(t, err)

	res, err := im.Seed(context.Background(), "")
	require.NoError(t, err)
	assert.Zero(t, res.TrainingAdded)
	assert.Zero(t, res.KnowledgeAdded)
	assert.Equal(t, 6, res.TrainingSkipped)
	assert.Equal(t, 6, res.KnowledgeSkipped)

	count, err := st.CountTraining(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, count)
}

func TestSeed_SkipPreservesCuratorEdits(t *testing.T) {
	st := newTestStore(t)
	im := New(st)

	_, err := im.Seed(context.Background(), "")
	require.NoError(t, err)

	id := deterministicID(trainingNamespace, "VESSEL_ERR_4 when creating vessel advice for MV Lion City 07")
	got, err := st.GetTraining(context.Background(), id)
	require.NoError(t, err)
	got.RootCause = "Rotation table missing the outbound leg"
	require.NoError(t, st.UpdateTraining(context.Background(), *got))

	_, err = im.Seed(context.Background(), "")
	require.NoError(t, err)

	got, err = st.GetTraining(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Rotation table missing the outbound leg", got.RootCause)
}

func TestSeed_CustomFile(t *testing.T) {
	st := newTestStore(t)
	im := New(st)

	seedYAML := `training:
  - description: "Pilot boarding delayed for MV Harbor Crest"
    incident_type: "Vessel Operations"
    urgency: "low"
    category: "Vessel Operations"
knowledge:
  - title: "Pilot boarding windows"
    content: "Boarding windows shift with the tide table; confirm with marine control."
    category: "Vessel Operations"
    type: "Reference"
    priority: 9
`
	path := filepath.Join(t.TempDir(), "seeds.yaml")
	require.NoError(t, os.WriteFile(path, []byte(seedYAML), 0o644))

	res, err := im.Seed(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, res.TrainingAdded)
	assert.Equal(t, 1, res.KnowledgeAdded)

	id := deterministicID(trainingNamespace, "Pilot boarding delayed for MV Harbor Crest")
	got, err := st.GetTraining(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, model.UrgencyLow, got.Urgency)

	kid := deterministicID(knowledgeNamespace, "Pilot boarding windows")
	entry, err := st.GetKnowledge(context.Background(), kid)
	require.NoError(t, err)
	assert.Equal(t, model.PriorityMax, entry.Priority)
}

func TestSeed_FileMissing(t *testing.T) {
	im := New(newTestStore(t))

	_, err := im.Seed(context.Background(), filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read seed file")
}

func TestSeed_InvalidYAML(t *testing.T) {
	im := New(newTestStore(t))

	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("training: [not: closed"), 0o644))

	_, err := im.Seed(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse seed file")
}
