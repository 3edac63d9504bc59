package ticketing

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/portops/triage-cli/internal/model"
)

// LocalBackend issues timestamp-derived ticket keys without calling any
// external system. It is the default when no ticketing backend is
// configured, so escalation always produces a trackable reference.
type LocalBackend struct {
	now func() time.Time
}

// NewLocalBackend creates a local backend.
func NewLocalBackend() *LocalBackend {
	return &LocalBackend{now: time.Now}
}

func (b *LocalBackend) Name() string { return "local" }

func (b *LocalBackend) CreateTicket(_ context.Context, incident model.Incident) (string, error) {
	key := "INC_" + b.now().UTC().Format("20060102_150405")
	zap.L().Info("local ticket recorded",
		zap.String("key", key),
		zap.String("incident", incident.Reference),
		zap.String("summary", Summary(incident)))
	return key, nil
}
