//go:build !integration

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portops/triage-cli/internal/analyzer"
	"github.com/portops/triage-cli/internal/errmatch"
	"github.com/portops/triage-cli/internal/llm"
	"github.com/portops/triage-cli/internal/model"
	"github.com/portops/triage-cli/internal/store"
	"github.com/portops/triage-cli/internal/ticketing"
)

// newTestAPI builds the API over a real sqlite store and an unconfigured
// provider client, so every analysis takes the deterministic rule-based
// path without touching the network.
func newTestAPI(t *testing.T) (*api, store.Store) {
	t.Helper()

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = st.Close()
	})
	require.NoError(t, st.Migrate(context.Background()))

	an := analyzer.New(llm.New(llm.Settings{}), st,
		analyzer.WithUsageReporter(st),
		analyzer.WithEnricher(errmatch.NewMatcher(st)),
	)
	tickets := ticketing.NewService(ticketing.NewLocalBackend())

	return newAPI(st, an, tickets, 24), st
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), v), "body: %s", rr.Body.String())
}

func seedAPIIncident(t *testing.T, st store.Store, reference, description string) *model.Incident {
	t.Helper()
	incident, err := st.CreateIncident(context.Background(), model.Incident{
		Reference:   reference,
		Description: description,
		Source:      model.SourceAPI,
		Analysis:    analyzer.Classify(description),
	})
	require.NoError(t, err)
	return incident
}

func TestAPIRouter_Health(t *testing.T) {
	a, _ := newTestAPI(t)
	router := a.router(nil)

	rr := doJSON(t, router, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")

	var body map[string]string
	decodeBody(t, rr, &body)
	assert.Equal(t, "ok", body["status"])
}

func TestAPIRouter_Analyze_PersistsIncident(t *testing.T) {
	a, st := newTestAPI(t)
	router := a.router(nil)

	rr := doJSON(t, router, http.MethodPost, "/api/v1/analyze", map[string]any{
		"description": "Container CMAU1234567 stuck at yard crane 12",
		"reporter":    "ops@psa.example",
	})

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp struct {
		Incident model.Incident        `json:"incident"`
		Plan     *model.ResolutionPlan `json:"plan"`
	}
	decodeBody(t, rr, &resp)

	assert.True(t, strings.HasPrefix(resp.Incident.Reference, "INC-"))
	assert.Equal(t, "Container Management", resp.Incident.Analysis.IncidentType)
	assert.Equal(t, model.UrgencyHigh, resp.Incident.Analysis.Urgency)
	assert.True(t, resp.Incident.Analysis.Fallback, "unconfigured provider must take the rule-based path")
	assert.Equal(t, model.SourceAPI, resp.Incident.Source)
	assert.Equal(t, "ops@psa.example", resp.Incident.Reporter)
	assert.Nil(t, resp.Plan)

	stored, err := st.GetIncident(context.Background(), resp.Incident.ID)
	require.NoError(t, err)
	assert.Equal(t, model.IncidentOpen, stored.Status)
}

func TestAPIRouter_Analyze_WithPlan(t *testing.T) {
	a, _ := newTestAPI(t)
	router := a.router(nil)

	rr := doJSON(t, router, http.MethodPost, "/api/v1/analyze", map[string]any{
		"description": "EDI message REF-IFT-0007 rejected during vessel advice processing",
		"plan":        true,
	})

	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Incident model.Incident        `json:"incident"`
		Plan     *model.ResolutionPlan `json:"plan"`
	}
	decodeBody(t, rr, &resp)

	require.NotNil(t, resp.Plan)
	assert.NotEmpty(t, resp.Plan.Steps)
	assert.False(t, resp.Plan.Generated, "fallback plan is not model-generated")
}

func TestAPIRouter_Analyze_BadRequests(t *testing.T) {
	a, _ := newTestAPI(t)
	router := a.router(nil)

	tests := []struct {
		name string
		body any
		want string
	}{
		{name: "empty description", body: map[string]string{"description": "   "}, want: "description is required"},
		{name: "missing description", body: map[string]string{"reporter": "x"}, want: "description is required"},
		{name: "invalid json", body: "not json", want: "invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doJSON(t, router, http.MethodPost, "/api/v1/analyze", tt.body)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.want)
		})
	}
}

func TestAPIRouter_Incidents_ListAndGet(t *testing.T) {
	a, st := newTestAPI(t)
	router := a.router(nil)

	first := seedAPIIncident(t, st, "INC-20240101-000001", "Vessel advice submission failing in PORTNET")
	seedAPIIncident(t, st, "INC-20240101-000002", "Gate access denied for truck PA9923X")

	rr := doJSON(t, router, http.MethodGet, "/api/v1/incidents", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var list struct {
		Incidents []model.Incident `json:"incidents"`
		Count     int              `json:"count"`
	}
	decodeBody(t, rr, &list)
	assert.Equal(t, 2, list.Count)
	assert.Len(t, list.Incidents, 2)

	// Lookup works by reference as well as by id.
	rr = doJSON(t, router, http.MethodGet, "/api/v1/incidents/INC-20240101-000001", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var got struct {
		Incident model.Incident `json:"incident"`
	}
	decodeBody(t, rr, &got)
	assert.Equal(t, first.ID, got.Incident.ID)

	rr = doJSON(t, router, http.MethodGet, "/api/v1/incidents/"+first.ID, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, router, http.MethodGet, "/api/v1/incidents/no-such-incident", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "incident not found")
}

func TestAPIRouter_Incidents_ListEmpty(t *testing.T) {
	a, _ := newTestAPI(t)
	router := a.router(nil)

	rr := doJSON(t, router, http.MethodGet, "/api/v1/incidents", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"incidents":[]`)
}

func TestAPIRouter_Incidents_Escalate(t *testing.T) {
	a, st := newTestAPI(t)
	router := a.router(nil)

	incident := seedAPIIncident(t, st, "", "Vessel MV Lion City 07 arrival not processing, VESSEL_ERR_4")

	rr := doJSON(t, router, http.MethodPost, "/api/v1/incidents/"+incident.ID+"/escalate", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp struct {
		Reference string                  `json:"reference"`
		Status    model.IncidentStatus    `json:"status"`
		Summary   model.EscalationSummary `json:"summary"`
	}
	decodeBody(t, rr, &resp)
	assert.Equal(t, incident.Reference, resp.Reference)
	assert.Equal(t, model.IncidentEscalated, resp.Status)
	assert.Equal(t, "Level 2", resp.Summary.EscalationLevel)
	assert.NotEmpty(t, resp.Summary.ExecutiveSummary)

	stored, err := st.GetIncident(context.Background(), incident.ID)
	require.NoError(t, err)
	assert.Equal(t, model.IncidentEscalated, stored.Status)
}

func TestAPIRouter_Incidents_Ticket(t *testing.T) {
	a, st := newTestAPI(t)
	router := a.router(nil)

	incident := seedAPIIncident(t, st, "", "Billing run produced duplicate demurrage charges")

	rr := doJSON(t, router, http.MethodPost, "/api/v1/incidents/"+incident.ID+"/ticket", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp struct {
		TicketKey string `json:"ticket_key"`
		Backend   string `json:"backend"`
	}
	decodeBody(t, rr, &resp)
	assert.True(t, strings.HasPrefix(resp.TicketKey, "INC_"))
	assert.Equal(t, "local", resp.Backend)

	stored, err := st.GetIncident(context.Background(), incident.ID)
	require.NoError(t, err)
	assert.Equal(t, model.IncidentTicketed, stored.Status)
	assert.Equal(t, resp.TicketKey, stored.TicketKey)
}

func TestAPIRouter_Incidents_EscalateUnknown(t *testing.T) {
	a, _ := newTestAPI(t)
	router := a.router(nil)

	rr := doJSON(t, router, http.MethodPost, "/api/v1/incidents/missing/escalate", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAPIRouter_Training_CRUD(t *testing.T) {
	a, _ := newTestAPI(t)
	router := a.router(nil)

	rr := doJSON(t, router, http.MethodPost, "/api/v1/training", map[string]any{
		"description":      "Container release blocked by customs hold flag",
		"incident_type":    "Container Management",
		"urgency":          "Medium",
		"affected_systems": []string{"PORTNET"},
		"category":         "customs",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var created struct {
		Training model.TrainingExample `json:"training"`
	}
	decodeBody(t, rr, &created)
	require.NotEmpty(t, created.Training.ID)

	rr = doJSON(t, router, http.MethodGet, "/api/v1/training?category=customs", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var list struct {
		Training []model.TrainingExample `json:"training"`
		Count    int                     `json:"count"`
	}
	decodeBody(t, rr, &list)
	assert.Equal(t, 1, list.Count)

	updated := created.Training
	updated.Urgency = model.UrgencyHigh
	updated.Validated = true
	rr = doJSON(t, router, http.MethodPut, "/api/v1/training/"+created.Training.ID, updated)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var afterUpdate struct {
		Training model.TrainingExample `json:"training"`
	}
	decodeBody(t, rr, &afterUpdate)
	assert.Equal(t, model.UrgencyHigh, afterUpdate.Training.Urgency)
	assert.True(t, afterUpdate.Training.Validated)

	rr = doJSON(t, router, http.MethodDelete, "/api/v1/training/"+created.Training.ID, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = doJSON(t, router, http.MethodDelete, "/api/v1/training/"+created.Training.ID, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAPIRouter_Training_CreateRequiresFields(t *testing.T) {
	a, _ := newTestAPI(t)
	router := a.router(nil)

	rr := doJSON(t, router, http.MethodPost, "/api/v1/training", map[string]string{
		"description": "no incident type on this one",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "incident_type")
}

func TestAPIRouter_Training_UpdateUnknown(t *testing.T) {
	a, _ := newTestAPI(t)
	router := a.router(nil)

	rr := doJSON(t, router, http.MethodPut, "/api/v1/training/ghost", map[string]string{
		"description":   "desc",
		"incident_type": "Vessel Operations",
	})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAPIRouter_Knowledge_CRUD(t *testing.T) {
	a, _ := newTestAPI(t)
	router := a.router(nil)

	rr := doJSON(t, router, http.MethodPost, "/api/v1/knowledge", map[string]any{
		"title":    "PORTNET session timeout recovery",
		"content":  "Re-authenticate and resubmit the vessel advice from the saved draft.",
		"category": "portnet",
		"type":     "Procedure",
		"keywords": "portnet, timeout, session",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var created struct {
		Knowledge model.KnowledgeEntry `json:"knowledge"`
	}
	decodeBody(t, rr, &created)
	require.NotEmpty(t, created.Knowledge.ID)
	assert.Equal(t, model.KnowledgeActive, created.Knowledge.Status)

	updated := created.Knowledge
	updated.Priority = 3
	rr = doJSON(t, router, http.MethodPut, "/api/v1/knowledge/"+created.Knowledge.ID, updated)
	require.Equal(t, http.StatusOK, rr.Code)
	var afterUpdate struct {
		Knowledge model.KnowledgeEntry `json:"knowledge"`
	}
	decodeBody(t, rr, &afterUpdate)
	assert.Equal(t, 3, afterUpdate.Knowledge.Priority)

	rr = doJSON(t, router, http.MethodGet, "/api/v1/knowledge", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var list struct {
		Knowledge []model.KnowledgeEntry `json:"knowledge"`
		Count     int                    `json:"count"`
	}
	decodeBody(t, rr, &list)
	assert.Equal(t, 1, list.Count)

	rr = doJSON(t, router, http.MethodDelete, "/api/v1/knowledge/"+created.Knowledge.ID, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestAPIRouter_Knowledge_CreateRequiresFields(t *testing.T) {
	a, _ := newTestAPI(t)
	router := a.router(nil)

	rr := doJSON(t, router, http.MethodPost, "/api/v1/knowledge", map[string]string{
		"title": "content missing",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "title and content are required")
}

func TestAPIRouter_Knowledge_Import(t *testing.T) {
	a, st := newTestAPI(t)
	router := a.router(nil)

	doc := "PORTNET vessel advice troubleshooting guide for duty officers.\n\n" +
		"When VESSEL_ERR_4 appears during arrival processing, verify the berth allocation first and resubmit the advice once the schedule conflict clears."

	req := httptest.NewRequest(http.MethodPost, "/api/v1/knowledge/import?filename=bulletin.txt", strings.NewReader(doc))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp struct {
		Knowledge []model.KnowledgeEntry `json:"knowledge"`
		Count     int                    `json:"count"`
	}
	decodeBody(t, rr, &resp)
	require.NotZero(t, resp.Count)

	stored, err := st.ListKnowledge(context.Background(), store.KnowledgeFilter{})
	require.NoError(t, err)
	assert.Len(t, stored, resp.Count)
}

func TestAPIRouter_Knowledge_ImportEmptyBody(t *testing.T) {
	a, _ := newTestAPI(t)
	router := a.router(nil)

	rr := doJSON(t, router, http.MethodPost, "/api/v1/knowledge/import", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "request body is empty")
}

func TestAPIRouter_Metrics(t *testing.T) {
	a, st := newTestAPI(t)
	router := a.router(nil)

	seedAPIIncident(t, st, "", "EDI queue stuck, messages backing up")

	rr := doJSON(t, router, http.MethodGet, "/api/v1/metrics", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var snap struct {
		IncidentsTotal int `json:"incidents_total"`
		LookbackHours  int `json:"lookback_hours"`
		TrainingCorpus int `json:"training_corpus"`
	}
	decodeBody(t, rr, &snap)
	assert.Equal(t, 1, snap.IncidentsTotal)
	assert.Equal(t, 24, snap.LookbackHours)
}

func TestAPIRouter_MetricsCustomWindow(t *testing.T) {
	a, _ := newTestAPI(t)
	router := a.router(nil)

	rr := doJSON(t, router, http.MethodGet, "/api/v1/metrics?hours=6", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"lookback_hours":6`)
}

func TestAPIRouter_CORSPreflight(t *testing.T) {
	a, _ := newTestAPI(t)
	router := a.router([]string{"*"})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/analyze", nil)
	req.Header.Set("Origin", "https://ops.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}
