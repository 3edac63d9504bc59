package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/portops/triage-cli/internal/db"
	"github.com/portops/triage-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the analysis hot path.
var preparedStatements = map[string]string{
	"training_snapshot":  `SELECT id, description, incident_type, pattern_match, root_cause, impact, urgency, affected_systems, category, tags, validated, created_at, updated_at FROM training_examples ORDER BY created_at ASC, id ASC`,
	"knowledge_snapshot": `SELECT id, title, content, category, type, tags, keywords, priority, status, view_count, last_used, created_at, updated_at FROM knowledge_entries WHERE status = $1 ORDER BY created_at ASC, id ASC`,
	"record_usage":       `UPDATE knowledge_entries SET view_count = view_count + 1, last_used = $1 WHERE id = $2`,
	"insert_incident":    `INSERT INTO incidents (id, reference, description, source, reporter, analysis, status, ticket_key, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
	"get_incident":       `SELECT id, reference, description, source, reporter, analysis, status, ticket_key, created_at, updated_at FROM incidents WHERE id = $1 OR reference = $1 ORDER BY created_at DESC LIMIT 1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool for use by subsystems
// that need direct query access (e.g., bulk corpus imports).
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS training_examples (
	id               TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	description      TEXT NOT NULL,
	incident_type    TEXT NOT NULL,
	pattern_match    TEXT NOT NULL DEFAULT '',
	root_cause       TEXT NOT NULL DEFAULT '',
	impact           TEXT NOT NULL DEFAULT '',
	urgency          TEXT NOT NULL DEFAULT 'Medium',
	affected_systems JSONB NOT NULL DEFAULT '[]',
	category         TEXT NOT NULL DEFAULT '',
	tags             JSONB NOT NULL DEFAULT '[]',
	validated        BOOLEAN NOT NULL DEFAULT false,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS knowledge_entries (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	title      TEXT NOT NULL,
	content    TEXT NOT NULL,
	category   TEXT NOT NULL DEFAULT '',
	type       TEXT NOT NULL DEFAULT 'Reference',
	tags       JSONB NOT NULL DEFAULT '[]',
	keywords   TEXT NOT NULL DEFAULT '',
	priority   INTEGER NOT NULL DEFAULT 1,
	status     TEXT NOT NULL DEFAULT 'Active',
	view_count INTEGER NOT NULL DEFAULT 0,
	last_used  TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS incidents (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	reference   TEXT NOT NULL,
	description TEXT NOT NULL,
	source      TEXT NOT NULL DEFAULT 'api',
	reporter    TEXT NOT NULL DEFAULT '',
	analysis    JSONB NOT NULL,
	status      TEXT NOT NULL DEFAULT 'open',
	ticket_key  TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_training_category ON training_examples(category);
CREATE INDEX IF NOT EXISTS idx_training_created_at ON training_examples(created_at);
CREATE INDEX IF NOT EXISTS idx_knowledge_status ON knowledge_entries(status);
CREATE INDEX IF NOT EXISTS idx_knowledge_category ON knowledge_entries(category);
CREATE INDEX IF NOT EXISTS idx_knowledge_last_used ON knowledge_entries(last_used);
CREATE INDEX IF NOT EXISTS idx_incidents_reference ON incidents(reference);
CREATE INDEX IF NOT EXISTS idx_incidents_status ON incidents(status);
CREATE INDEX IF NOT EXISTS idx_incidents_source ON incidents(source);
CREATE INDEX IF NOT EXISTS idx_incidents_created_at ON incidents(created_at);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// --- Training corpus ---

func (s *PostgresStore) CreateTraining(ctx context.Context, example model.TrainingExample) (*model.TrainingExample, error) {
	if example.ID == "" {
		example.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	example.CreatedAt = now
	example.UpdatedAt = now
	example.Normalize()

	systemsJSON, err := json.Marshal(example.AffectedSystems)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal affected systems")
	}
	tagsJSON, err := json.Marshal(example.Tags)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal tags")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO training_examples
		 (id, description, incident_type, pattern_match, root_cause, impact, urgency, affected_systems, category, tags, validated, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		example.ID, example.Description, example.IncidentType, example.PatternMatch,
		example.RootCause, example.Impact, string(example.Urgency), systemsJSON,
		example.Category, tagsJSON, example.Validated, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert training example")
	}
	return &example, nil
}

func (s *PostgresStore) GetTraining(ctx context.Context, id string) (*model.TrainingExample, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, description, incident_type, pattern_match, root_cause, impact, urgency, affected_systems, category, tags, validated, created_at, updated_at
		 FROM training_examples WHERE id = $1`,
		id,
	)
	return scanTrainingPg(row)
}

func (s *PostgresStore) UpdateTraining(ctx context.Context, example model.TrainingExample) error {
	example.Normalize()

	systemsJSON, err := json.Marshal(example.AffectedSystems)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal affected systems")
	}
	tagsJSON, err := json.Marshal(example.Tags)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal tags")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE training_examples
		 SET description = $1, incident_type = $2, pattern_match = $3, root_cause = $4, impact = $5, urgency = $6, affected_systems = $7, category = $8, tags = $9, validated = $10, updated_at = $11
		 WHERE id = $12`,
		example.Description, example.IncidentType, example.PatternMatch, example.RootCause,
		example.Impact, string(example.Urgency), systemsJSON, example.Category,
		tagsJSON, example.Validated, time.Now().UTC(), example.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update training example %s", example.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "training example %s", example.ID)
	}
	return nil
}

func (s *PostgresStore) DeleteTraining(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM training_examples WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete training example %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "training example %s", id)
	}
	return nil
}

func (s *PostgresStore) ListTraining(ctx context.Context, filter TrainingFilter) ([]model.TrainingExample, error) {
	query := `SELECT id, description, incident_type, pattern_match, root_cause, impact, urgency, affected_systems, category, tags, validated, created_at, updated_at
	          FROM training_examples WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Category != "" {
		query += fmt.Sprintf(` AND category = $%d`, argIdx)
		args = append(args, filter.Category)
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list training examples")
	}
	defer rows.Close()

	var examples []model.TrainingExample
	for rows.Next() {
		ex, err := scanTrainingPg(rows)
		if err != nil {
			return nil, err
		}
		examples = append(examples, *ex)
	}
	return examples, eris.Wrap(rows.Err(), "postgres: list training examples iterate")
}

func (s *PostgresStore) CountTraining(ctx context.Context) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM training_examples`).Scan(&count)
	return count, eris.Wrap(err, "postgres: count training examples")
}

// TrainingExamples returns the full training corpus in insertion order.
func (s *PostgresStore) TrainingExamples(ctx context.Context) ([]model.TrainingExample, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, description, incident_type, pattern_match, root_cause, impact, urgency, affected_systems, category, tags, validated, created_at, updated_at FROM training_examples ORDER BY created_at ASC, id ASC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: training snapshot")
	}
	defer rows.Close()

	var examples []model.TrainingExample
	for rows.Next() {
		ex, err := scanTrainingPg(rows)
		if err != nil {
			return nil, err
		}
		examples = append(examples, *ex)
	}
	return examples, eris.Wrap(rows.Err(), "postgres: training snapshot iterate")
}

// BulkImportTraining upserts a batch of training examples in one COPY round
// trip. Callers supply deterministic ids when a re-import should update
// existing rows instead of duplicating them.
func (s *PostgresStore) BulkImportTraining(ctx context.Context, examples []model.TrainingExample) (int64, error) {
	if len(examples) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	rows := make([][]any, 0, len(examples))
	for _, ex := range examples {
		if ex.ID == "" {
			ex.ID = uuid.New().String()
		}
		ex.Normalize()

		systemsJSON, err := json.Marshal(ex.AffectedSystems)
		if err != nil {
			return 0, eris.Wrap(err, "postgres: marshal affected systems")
		}
		tagsJSON, err := json.Marshal(ex.Tags)
		if err != nil {
			return 0, eris.Wrap(err, "postgres: marshal tags")
		}

		createdAt := ex.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		rows = append(rows, []any{
			ex.ID, ex.Description, ex.IncidentType, ex.PatternMatch, ex.RootCause,
			ex.Impact, string(ex.Urgency), systemsJSON, ex.Category, tagsJSON,
			ex.Validated, createdAt, now,
		})
	}

	// created_at is excluded from the update set so re-imports keep the
	// original insertion time.
	return db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table: "training_examples",
		Columns: []string{
			"id", "description", "incident_type", "pattern_match", "root_cause",
			"impact", "urgency", "affected_systems", "category", "tags",
			"validated", "created_at", "updated_at",
		},
		ConflictKeys: []string{"id"},
		UpdateCols: []string{
			"description", "incident_type", "pattern_match", "root_cause",
			"impact", "urgency", "affected_systems", "category", "tags",
			"validated", "updated_at",
		},
	}, rows)
}

// --- Knowledge base ---

func (s *PostgresStore) CreateKnowledge(ctx context.Context, entry model.KnowledgeEntry) (*model.KnowledgeEntry, error) {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	entry.CreatedAt = now
	entry.UpdatedAt = now
	entry.Normalize()

	tagsJSON, err := json.Marshal(entry.Tags)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal tags")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO knowledge_entries
		 (id, title, content, category, type, tags, keywords, priority, status, view_count, last_used, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		entry.ID, entry.Title, entry.Content, entry.Category, string(entry.Type),
		tagsJSON, entry.Keywords, entry.Priority, string(entry.Status),
		entry.ViewCount, entry.LastUsed, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert knowledge entry")
	}
	return &entry, nil
}

func (s *PostgresStore) GetKnowledge(ctx context.Context, id string) (*model.KnowledgeEntry, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, title, content, category, type, tags, keywords, priority, status, view_count, last_used, created_at, updated_at
		 FROM knowledge_entries WHERE id = $1`,
		id,
	)
	return scanKnowledgePg(row)
}

func (s *PostgresStore) UpdateKnowledge(ctx context.Context, entry model.KnowledgeEntry) error {
	entry.Normalize()

	tagsJSON, err := json.Marshal(entry.Tags)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal tags")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE knowledge_entries
		 SET title = $1, content = $2, category = $3, type = $4, tags = $5, keywords = $6, priority = $7, status = $8, updated_at = $9
		 WHERE id = $10`,
		entry.Title, entry.Content, entry.Category, string(entry.Type), tagsJSON,
		entry.Keywords, entry.Priority, string(entry.Status), time.Now().UTC(), entry.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update knowledge entry %s", entry.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "knowledge entry %s", entry.ID)
	}
	return nil
}

func (s *PostgresStore) DeleteKnowledge(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM knowledge_entries WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete knowledge entry %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "knowledge entry %s", id)
	}
	return nil
}

func (s *PostgresStore) ListKnowledge(ctx context.Context, filter KnowledgeFilter) ([]model.KnowledgeEntry, error) {
	query := `SELECT id, title, content, category, type, tags, keywords, priority, status, view_count, last_used, created_at, updated_at
	          FROM knowledge_entries WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.Category != "" {
		query += fmt.Sprintf(` AND category = $%d`, argIdx)
		args = append(args, filter.Category)
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list knowledge entries")
	}
	defer rows.Close()

	var entries []model.KnowledgeEntry
	for rows.Next() {
		entry, err := scanKnowledgePg(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, eris.Wrap(rows.Err(), "postgres: list knowledge entries iterate")
}

func (s *PostgresStore) CountKnowledge(ctx context.Context) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM knowledge_entries`).Scan(&count)
	return count, eris.Wrap(err, "postgres: count knowledge entries")
}

// RecordKnowledgeUsage bumps the view counter and stamps last_used for an
// entry that was served as analysis context.
func (s *PostgresStore) RecordKnowledgeUsage(ctx context.Context, entryID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE knowledge_entries SET view_count = view_count + 1, last_used = $1 WHERE id = $2`,
		time.Now().UTC(), entryID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: record knowledge usage %s", entryID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "knowledge entry %s", entryID)
	}
	return nil
}

func (s *PostgresStore) CountKnowledgeUsedSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM knowledge_entries WHERE last_used IS NOT NULL AND last_used >= $1`,
		since.UTC(),
	).Scan(&count)
	return count, eris.Wrap(err, "postgres: count knowledge used")
}

// KnowledgeEntries returns the Active entries in insertion order.
func (s *PostgresStore) KnowledgeEntries(ctx context.Context) ([]model.KnowledgeEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, title, content, category, type, tags, keywords, priority, status, view_count, last_used, created_at, updated_at FROM knowledge_entries WHERE status = $1 ORDER BY created_at ASC, id ASC`,
		string(model.KnowledgeActive),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: knowledge snapshot")
	}
	defer rows.Close()

	var entries []model.KnowledgeEntry
	for rows.Next() {
		entry, err := scanKnowledgePg(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, eris.Wrap(rows.Err(), "postgres: knowledge snapshot iterate")
}

// BulkImportKnowledge COPYs a batch of knowledge entries. COPY has no
// conflict handling, so callers dedupe against existing titles first.
func (s *PostgresStore) BulkImportKnowledge(ctx context.Context, entries []model.KnowledgeEntry) (int64, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	rows := make([][]any, 0, len(entries))
	for _, entry := range entries {
		if entry.ID == "" {
			entry.ID = uuid.New().String()
		}
		entry.Normalize()

		tagsJSON, err := json.Marshal(entry.Tags)
		if err != nil {
			return 0, eris.Wrap(err, "postgres: marshal tags")
		}
		rows = append(rows, []any{
			entry.ID, entry.Title, entry.Content, entry.Category, string(entry.Type),
			tagsJSON, entry.Keywords, entry.Priority, string(entry.Status),
			entry.ViewCount, entry.LastUsed, now, now,
		})
	}

	return db.CopyFrom(ctx, s.pool, "knowledge_entries", []string{
		"id", "title", "content", "category", "type", "tags", "keywords",
		"priority", "status", "view_count", "last_used", "created_at", "updated_at",
	}, rows)
}

// --- Incidents ---

func (s *PostgresStore) CreateIncident(ctx context.Context, incident model.Incident) (*model.Incident, error) {
	if incident.ID == "" {
		incident.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	incident.CreatedAt = now
	incident.UpdatedAt = now
	if incident.Reference == "" {
		incident.Reference = model.IncidentReference(now)
	}
	if incident.Status == "" {
		incident.Status = model.IncidentOpen
	}
	if incident.Source == "" {
		incident.Source = model.SourceAPI
	}

	analysisJSON, err := json.Marshal(incident.Analysis)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal analysis")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO incidents (id, reference, description, source, reporter, analysis, status, ticket_key, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		incident.ID, incident.Reference, incident.Description, string(incident.Source),
		incident.Reporter, analysisJSON, string(incident.Status), incident.TicketKey,
		now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert incident")
	}
	return &incident, nil
}

func (s *PostgresStore) GetIncident(ctx context.Context, key string) (*model.Incident, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, reference, description, source, reporter, analysis, status, ticket_key, created_at, updated_at FROM incidents WHERE id = $1 OR reference = $1 ORDER BY created_at DESC LIMIT 1`,
		key,
	)
	return scanIncidentPg(row)
}

func (s *PostgresStore) ListIncidents(ctx context.Context, filter IncidentFilter) ([]model.Incident, error) {
	query := `SELECT id, reference, description, source, reporter, analysis, status, ticket_key, created_at, updated_at
	          FROM incidents WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.Source != "" {
		query += fmt.Sprintf(` AND source = $%d`, argIdx)
		args = append(args, string(filter.Source))
		argIdx++
	}
	if !filter.Since.IsZero() {
		query += fmt.Sprintf(` AND created_at >= $%d`, argIdx)
		args = append(args, filter.Since.UTC())
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list incidents")
	}
	defer rows.Close()

	var incidents []model.Incident
	for rows.Next() {
		inc, err := scanIncidentPg(rows)
		if err != nil {
			return nil, err
		}
		incidents = append(incidents, *inc)
	}
	return incidents, eris.Wrap(rows.Err(), "postgres: list incidents iterate")
}

func (s *PostgresStore) UpdateIncidentStatus(ctx context.Context, id string, status model.IncidentStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE incidents SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update incident status %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "incident %s", id)
	}
	return nil
}

func (s *PostgresStore) SetIncidentTicket(ctx context.Context, id string, ticketKey string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE incidents SET ticket_key = $1, status = $2, updated_at = $3 WHERE id = $4`,
		ticketKey, string(model.IncidentTicketed), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set incident ticket %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "incident %s", id)
	}
	return nil
}

// pgx row scanners

func scanTrainingPg(row scannable) (*model.TrainingExample, error) {
	var ex model.TrainingExample
	var systemsJSON, tagsJSON []byte

	err := row.Scan(&ex.ID, &ex.Description, &ex.IncidentType, &ex.PatternMatch, &ex.RootCause,
		&ex.Impact, &ex.Urgency, &systemsJSON, &ex.Category, &tagsJSON, &ex.Validated,
		&ex.CreatedAt, &ex.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrap(ErrNotFound, "training example")
		}
		return nil, eris.Wrap(err, "postgres: scan training example")
	}

	if err := json.Unmarshal(systemsJSON, &ex.AffectedSystems); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal affected systems")
	}
	if err := json.Unmarshal(tagsJSON, &ex.Tags); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal tags")
	}
	ex.Normalize()
	return &ex, nil
}

func scanKnowledgePg(row scannable) (*model.KnowledgeEntry, error) {
	var entry model.KnowledgeEntry
	var tagsJSON []byte
	var lastUsed *time.Time

	err := row.Scan(&entry.ID, &entry.Title, &entry.Content, &entry.Category, &entry.Type,
		&tagsJSON, &entry.Keywords, &entry.Priority, &entry.Status, &entry.ViewCount,
		&lastUsed, &entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrap(ErrNotFound, "knowledge entry")
		}
		return nil, eris.Wrap(err, "postgres: scan knowledge entry")
	}

	if err := json.Unmarshal(tagsJSON, &entry.Tags); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal tags")
	}
	entry.LastUsed = lastUsed
	entry.Normalize()
	return &entry, nil
}

func scanIncidentPg(row scannable) (*model.Incident, error) {
	var inc model.Incident
	var analysisJSON []byte

	err := row.Scan(&inc.ID, &inc.Reference, &inc.Description, &inc.Source, &inc.Reporter,
		&analysisJSON, &inc.Status, &inc.TicketKey, &inc.CreatedAt, &inc.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrap(ErrNotFound, "incident")
		}
		return nil, eris.Wrap(err, "postgres: scan incident")
	}

	if err := json.Unmarshal(analysisJSON, &inc.Analysis); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal analysis")
	}
	return &inc, nil
}
