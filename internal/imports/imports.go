// Package imports loads the triage corpus from operator-supplied sources:
// training spreadsheets, knowledge documents, and YAML seed bundles.
package imports

import (
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/portops/triage-cli/internal/fetcher"
	"github.com/portops/triage-cli/internal/model"
	"github.com/portops/triage-cli/internal/store"
)

// Importer writes imported corpus rows through the store. When the store
// exposes the postgres bulk-load methods they are used; otherwise rows go
// through per-row upserts.
type Importer struct {
	store    store.Store
	resolver *fetcher.Resolver
	tempDir  string
}

// Option configures an Importer.
type Option func(*Importer)

// WithResolver overrides the source resolver.
func WithResolver(r *fetcher.Resolver) Option {
	return func(im *Importer) { im.resolver = r }
}

// WithTempDir sets the scratch directory for downloads and archive
// unpacking.
func WithTempDir(dir string) Option {
	return func(im *Importer) { im.tempDir = dir }
}

// New creates an Importer over the given store.
func New(st store.Store, opts ...Option) *Importer {
	im := &Importer{
		store:    st,
		resolver: fetcher.NewResolver(),
		tempDir:  os.TempDir(),
	}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// Content-derived ids make re-imports update rows in place rather than
// duplicate them.
var (
	trainingNamespace  = uuid.NewSHA1(uuid.NameSpaceOID, []byte("triage.training"))
	knowledgeNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("triage.knowledge"))
)

func deterministicID(ns uuid.UUID, content string) string {
	return uuid.NewSHA1(ns, []byte(content)).String()
}

func mapColumns(header []string) map[string]int {
	m := make(map[string]int, len(header))
	for i, col := range header {
		m[strings.ToLower(strings.TrimSpace(col))] = i
	}
	return m
}

// getCol gets a column value by name from a row, returning empty string
// when the column is absent or the row is short.
func getCol(row []string, colIdx map[string]int, name string) string {
	idx, ok := colIdx[name]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// splitList splits a joined cell on semicolons or commas.
func splitList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ';' || r == ',' })
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// canonUrgency maps a free-form urgency cell onto the canonical scale,
// case-insensitively. Unknown values pass through for Normalize to settle.
func canonUrgency(s string) model.Urgency {
	s = strings.TrimSpace(s)
	for _, u := range []model.Urgency{model.UrgencyLow, model.UrgencyMedium, model.UrgencyHigh, model.UrgencyCritical} {
		if strings.EqualFold(s, string(u)) {
			return u
		}
	}
	return model.Urgency(s)
}

func titleKey(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}
