package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/portops/triage-cli/internal/model"
)

// ErrNotFound reports a lookup for a row that does not exist. Both drivers
// wrap it with entity context so callers can branch with errors.Is.
var ErrNotFound = eris.New("not found")

// TrainingFilter specifies criteria for listing training examples.
type TrainingFilter struct {
	Category string `json:"category,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
}

// KnowledgeFilter specifies criteria for listing knowledge entries.
type KnowledgeFilter struct {
	Status   model.KnowledgeStatus `json:"status,omitempty"`
	Category string                `json:"category,omitempty"`
	Limit    int                   `json:"limit,omitempty"`
	Offset   int                   `json:"offset,omitempty"`
}

// IncidentFilter specifies criteria for listing incidents. Since bounds the
// window by created_at and is ignored when zero.
type IncidentFilter struct {
	Status model.IncidentStatus `json:"status,omitempty"`
	Source model.IncidentSource `json:"source,omitempty"`
	Since  time.Time            `json:"since,omitempty"`
	Limit  int                  `json:"limit,omitempty"`
	Offset int                  `json:"offset,omitempty"`
}

// Store defines the persistence interface for the triage corpus and
// incident log. TrainingExamples and KnowledgeEntries are the snapshot
// reads the analyzer ranks against; RecordKnowledgeUsage is the only
// write the analysis path performs.
type Store interface {
	// Training corpus
	CreateTraining(ctx context.Context, example model.TrainingExample) (*model.TrainingExample, error)
	GetTraining(ctx context.Context, id string) (*model.TrainingExample, error)
	UpdateTraining(ctx context.Context, example model.TrainingExample) error
	DeleteTraining(ctx context.Context, id string) error
	ListTraining(ctx context.Context, filter TrainingFilter) ([]model.TrainingExample, error)
	CountTraining(ctx context.Context) (int, error)

	// Knowledge base
	CreateKnowledge(ctx context.Context, entry model.KnowledgeEntry) (*model.KnowledgeEntry, error)
	GetKnowledge(ctx context.Context, id string) (*model.KnowledgeEntry, error)
	UpdateKnowledge(ctx context.Context, entry model.KnowledgeEntry) error
	DeleteKnowledge(ctx context.Context, id string) error
	ListKnowledge(ctx context.Context, filter KnowledgeFilter) ([]model.KnowledgeEntry, error)
	CountKnowledge(ctx context.Context) (int, error)
	RecordKnowledgeUsage(ctx context.Context, entryID string) error
	CountKnowledgeUsedSince(ctx context.Context, since time.Time) (int, error)

	// Corpus snapshots served as analysis context. Training examples come
	// back in insertion order; knowledge entries are Active only.
	TrainingExamples(ctx context.Context) ([]model.TrainingExample, error)
	KnowledgeEntries(ctx context.Context) ([]model.KnowledgeEntry, error)

	// Incidents. GetIncident accepts either the row id or the human-facing
	// INC reference.
	CreateIncident(ctx context.Context, incident model.Incident) (*model.Incident, error)
	GetIncident(ctx context.Context, key string) (*model.Incident, error)
	ListIncidents(ctx context.Context, filter IncidentFilter) ([]model.Incident, error)
	UpdateIncidentStatus(ctx context.Context, id string, status model.IncidentStatus) error
	SetIncidentTicket(ctx context.Context, id string, ticketKey string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
