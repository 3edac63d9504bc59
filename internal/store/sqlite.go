package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/portops/triage-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS training_examples (
	id               TEXT PRIMARY KEY,
	description      TEXT NOT NULL,
	incident_type    TEXT NOT NULL,
	pattern_match    TEXT NOT NULL DEFAULT '',
	root_cause       TEXT NOT NULL DEFAULT '',
	impact           TEXT NOT NULL DEFAULT '',
	urgency          TEXT NOT NULL DEFAULT 'Medium',
	affected_systems TEXT NOT NULL DEFAULT '[]',
	category         TEXT NOT NULL DEFAULT '',
	tags             TEXT NOT NULL DEFAULT '[]',
	validated        INTEGER NOT NULL DEFAULT 0,
	created_at       DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at       DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS knowledge_entries (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	content    TEXT NOT NULL,
	category   TEXT NOT NULL DEFAULT '',
	type       TEXT NOT NULL DEFAULT 'Reference',
	tags       TEXT NOT NULL DEFAULT '[]',
	keywords   TEXT NOT NULL DEFAULT '',
	priority   INTEGER NOT NULL DEFAULT 1,
	status     TEXT NOT NULL DEFAULT 'Active',
	view_count INTEGER NOT NULL DEFAULT 0,
	last_used  DATETIME,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS incidents (
	id          TEXT PRIMARY KEY,
	reference   TEXT NOT NULL,
	description TEXT NOT NULL,
	source      TEXT NOT NULL DEFAULT 'api',
	reporter    TEXT NOT NULL DEFAULT '',
	analysis    TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'open',
	ticket_key  TEXT NOT NULL DEFAULT '',
	created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at  DATETIME NOT NULL DEFAULT (datetime('now'))
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

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Training corpus ---

func (s *SQLiteStore) CreateTraining(ctx context.Context, example model.TrainingExample) (*model.TrainingExample, error) {
	if example.ID == "" {
		example.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	example.CreatedAt = now
	example.UpdatedAt = now
	example.Normalize()

	systemsJSON, err := json.Marshal(example.AffectedSystems)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal affected systems")
	}
	tagsJSON, err := json.Marshal(example.Tags)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal tags")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO training_examples
		 (id, description, incident_type, pattern_match, root_cause, impact, urgency, affected_systems, category, tags, validated, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		example.ID, example.Description, example.IncidentType, example.PatternMatch,
		example.RootCause, example.Impact, string(example.Urgency), string(systemsJSON),
		example.Category, string(tagsJSON), example.Validated, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert training example")
	}
	return &example, nil
}

func (s *SQLiteStore) GetTraining(ctx context.Context, id string) (*model.TrainingExample, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, description, incident_type, pattern_match, root_cause, impact, urgency, affected_systems, category, tags, validated, created_at, updated_at
		 FROM training_examples WHERE id = ?`,
		id,
	)
	return scanTraining(row)
}

func (s *SQLiteStore) UpdateTraining(ctx context.Context, example model.TrainingExample) error {
	example.Normalize()

	systemsJSON, err := json.Marshal(example.AffectedSystems)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal affected systems")
	}
	tagsJSON, err := json.Marshal(example.Tags)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal tags")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE training_examples
		 SET description = ?, incident_type = ?, pattern_match = ?, root_cause = ?, impact = ?, urgency = ?, affected_systems = ?, category = ?, tags = ?, validated = ?, updated_at = ?
		 WHERE id = ?`,
		example.Description, example.IncidentType, example.PatternMatch, example.RootCause,
		example.Impact, string(example.Urgency), string(systemsJSON), example.Category,
		string(tagsJSON), example.Validated, time.Now().UTC(), example.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update training example %s", example.ID)
	}
	return checkRowsAffected(res, "training example", example.ID)
}

func (s *SQLiteStore) DeleteTraining(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM training_examples WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete training example %s", id)
	}
	return checkRowsAffected(res, "training example", id)
}

func (s *SQLiteStore) ListTraining(ctx context.Context, filter TrainingFilter) ([]model.TrainingExample, error) {
	query := `SELECT id, description, incident_type, pattern_match, root_cause, impact, urgency, affected_systems, category, tags, validated, created_at, updated_at
	          FROM training_examples WHERE 1=1`
	var args []any

	if filter.Category != "" {
		query += ` AND category = ?`
		args = append(args, filter.Category)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list training examples")
	}
	defer rows.Close()

	var examples []model.TrainingExample
	for rows.Next() {
		ex, err := scanTraining(rows)
		if err != nil {
			return nil, err
		}
		examples = append(examples, *ex)
	}
	return examples, eris.Wrap(rows.Err(), "sqlite: list training examples iterate")
}

func (s *SQLiteStore) CountTraining(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM training_examples`).Scan(&count)
	return count, eris.Wrap(err, "sqlite: count training examples")
}

// TrainingExamples returns the full training corpus in insertion order.
func (s *SQLiteStore) TrainingExamples(ctx context.Context) ([]model.TrainingExample, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, description, incident_type, pattern_match, root_cause, impact, urgency, affected_systems, category, tags, validated, created_at, updated_at
		 FROM training_examples ORDER BY created_at ASC, id ASC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: training snapshot")
	}
	defer rows.Close()

	var examples []model.TrainingExample
	for rows.Next() {
		ex, err := scanTraining(rows)
		if err != nil {
			return nil, err
		}
		examples = append(examples, *ex)
	}
	return examples, eris.Wrap(rows.Err(), "sqlite: training snapshot iterate")
}

// --- Knowledge base ---

func (s *SQLiteStore) CreateKnowledge(ctx context.Context, entry model.KnowledgeEntry) (*model.KnowledgeEntry, error) {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	entry.CreatedAt = now
	entry.UpdatedAt = now
	entry.Normalize()

	tagsJSON, err := json.Marshal(entry.Tags)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal tags")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO knowledge_entries
		 (id, title, content, category, type, tags, keywords, priority, status, view_count, last_used, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Title, entry.Content, entry.Category, string(entry.Type),
		string(tagsJSON), entry.Keywords, entry.Priority, string(entry.Status),
		entry.ViewCount, nullableTime(entry.LastUsed), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert knowledge entry")
	}
	return &entry, nil
}

func (s *SQLiteStore) GetKnowledge(ctx context.Context, id string) (*model.KnowledgeEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, content, category, type, tags, keywords, priority, status, view_count, last_used, created_at, updated_at
		 FROM knowledge_entries WHERE id = ?`,
		id,
	)
	return scanKnowledge(row)
}

func (s *SQLiteStore) UpdateKnowledge(ctx context.Context, entry model.KnowledgeEntry) error {
	entry.Normalize()

	tagsJSON, err := json.Marshal(entry.Tags)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal tags")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE knowledge_entries
		 SET title = ?, content = ?, category = ?, type = ?, tags = ?, keywords = ?, priority = ?, status = ?, updated_at = ?
		 WHERE id = ?`,
		entry.Title, entry.Content, entry.Category, string(entry.Type), string(tagsJSON),
		entry.Keywords, entry.Priority, string(entry.Status), time.Now().UTC(), entry.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update knowledge entry %s", entry.ID)
	}
	return checkRowsAffected(res, "knowledge entry", entry.ID)
}

func (s *SQLiteStore) DeleteKnowledge(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM knowledge_entries WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete knowledge entry %s", id)
	}
	return checkRowsAffected(res, "knowledge entry", id)
}

func (s *SQLiteStore) ListKnowledge(ctx context.Context, filter KnowledgeFilter) ([]model.KnowledgeEntry, error) {
	query := `SELECT id, title, content, category, type, tags, keywords, priority, status, view_count, last_used, created_at, updated_at
	          FROM knowledge_entries WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Category != "" {
		query += ` AND category = ?`
		args = append(args, filter.Category)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list knowledge entries")
	}
	defer rows.Close()

	var entries []model.KnowledgeEntry
	for rows.Next() {
		entry, err := scanKnowledge(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, eris.Wrap(rows.Err(), "sqlite: list knowledge entries iterate")
}

func (s *SQLiteStore) CountKnowledge(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM knowledge_entries`).Scan(&count)
	return count, eris.Wrap(err, "sqlite: count knowledge entries")
}

// RecordKnowledgeUsage bumps the view counter and stamps last_used for an
// entry that was served as analysis context. updated_at is untouched so
// usage does not masquerade as a content edit.
func (s *SQLiteStore) RecordKnowledgeUsage(ctx context.Context, entryID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE knowledge_entries SET view_count = view_count + 1, last_used = ? WHERE id = ?`,
		time.Now().UTC(), entryID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: record knowledge usage %s", entryID)
	}
	return checkRowsAffected(res, "knowledge entry", entryID)
}

func (s *SQLiteStore) CountKnowledgeUsedSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM knowledge_entries WHERE last_used IS NOT NULL AND last_used >= ?`,
		since.UTC(),
	).Scan(&count)
	return count, eris.Wrap(err, "sqlite: count knowledge used")
}

// KnowledgeEntries returns the Active entries in insertion order.
func (s *SQLiteStore) KnowledgeEntries(ctx context.Context) ([]model.KnowledgeEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, content, category, type, tags, keywords, priority, status, view_count, last_used, created_at, updated_at
		 FROM knowledge_entries WHERE status = ? ORDER BY created_at ASC, id ASC`,
		string(model.KnowledgeActive),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: knowledge snapshot")
	}
	defer rows.Close()

	var entries []model.KnowledgeEntry
	for rows.Next() {
		entry, err := scanKnowledge(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, eris.Wrap(rows.Err(), "sqlite: knowledge snapshot iterate")
}

// --- Incidents ---

func (s *SQLiteStore) CreateIncident(ctx context.Context, incident model.Incident) (*model.Incident, error) {
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
		return nil, eris.Wrap(err, "sqlite: marshal analysis")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO incidents
		 (id, reference, description, source, reporter, analysis, status, ticket_key, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		incident.ID, incident.Reference, incident.Description, string(incident.Source),
		incident.Reporter, string(analysisJSON), string(incident.Status), incident.TicketKey,
		now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert incident")
	}
	return &incident, nil
}

func (s *SQLiteStore) GetIncident(ctx context.Context, key string) (*model.Incident, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, reference, description, source, reporter, analysis, status, ticket_key, created_at, updated_at
		 FROM incidents WHERE id = ? OR reference = ?
		 ORDER BY created_at DESC LIMIT 1`,
		key, key,
	)
	return scanIncident(row)
}

func (s *SQLiteStore) ListIncidents(ctx context.Context, filter IncidentFilter) ([]model.Incident, error) {
	query := `SELECT id, reference, description, source, reporter, analysis, status, ticket_key, created_at, updated_at
	          FROM incidents WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Source != "" {
		query += ` AND source = ?`
		args = append(args, string(filter.Source))
	}
	if !filter.Since.IsZero() {
		query += ` AND created_at >= ?`
		args = append(args, filter.Since.UTC())
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list incidents")
	}
	defer rows.Close()

	var incidents []model.Incident
	for rows.Next() {
		inc, err := scanIncident(rows)
		if err != nil {
			return nil, err
		}
		incidents = append(incidents, *inc)
	}
	return incidents, eris.Wrap(rows.Err(), "sqlite: list incidents iterate")
}

func (s *SQLiteStore) UpdateIncidentStatus(ctx context.Context, id string, status model.IncidentStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE incidents SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update incident status %s", id)
	}
	return checkRowsAffected(res, "incident", id)
}

func (s *SQLiteStore) SetIncidentTicket(ctx context.Context, id string, ticketKey string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE incidents SET ticket_key = ?, status = ?, updated_at = ? WHERE id = ?`,
		ticketKey, string(model.IncidentTicketed), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set incident ticket %s", id)
	}
	return checkRowsAffected(res, "incident", id)
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanTraining(row scannable) (*model.TrainingExample, error) {
	var ex model.TrainingExample
	var systemsJSON, tagsJSON string

	err := row.Scan(&ex.ID, &ex.Description, &ex.IncidentType, &ex.PatternMatch, &ex.RootCause,
		&ex.Impact, &ex.Urgency, &systemsJSON, &ex.Category, &tagsJSON, &ex.Validated,
		&ex.CreatedAt, &ex.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Wrap(ErrNotFound, "training example")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan training example")
	}

	if err := json.Unmarshal([]byte(systemsJSON), &ex.AffectedSystems); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal affected systems")
	}
	if err := json.Unmarshal([]byte(tagsJSON), &ex.Tags); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal tags")
	}
	ex.Normalize()
	return &ex, nil
}

func scanKnowledge(row scannable) (*model.KnowledgeEntry, error) {
	var entry model.KnowledgeEntry
	var tagsJSON string
	var lastUsed sql.NullTime

	err := row.Scan(&entry.ID, &entry.Title, &entry.Content, &entry.Category, &entry.Type,
		&tagsJSON, &entry.Keywords, &entry.Priority, &entry.Status, &entry.ViewCount,
		&lastUsed, &entry.CreatedAt, &entry.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Wrap(ErrNotFound, "knowledge entry")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan knowledge entry")
	}

	if err := json.Unmarshal([]byte(tagsJSON), &entry.Tags); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal tags")
	}
	if lastUsed.Valid {
		t := lastUsed.Time
		entry.LastUsed = &t
	}
	entry.Normalize()
	return &entry, nil
}

func scanIncident(row scannable) (*model.Incident, error) {
	var inc model.Incident
	var analysisJSON string

	err := row.Scan(&inc.ID, &inc.Reference, &inc.Description, &inc.Source, &inc.Reporter,
		&analysisJSON, &inc.Status, &inc.TicketKey, &inc.CreatedAt, &inc.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Wrap(ErrNotFound, "incident")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan incident")
	}

	if err := json.Unmarshal([]byte(analysisJSON), &inc.Analysis); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal analysis")
	}
	return &inc, nil
}
