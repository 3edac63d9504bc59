package imports

import (
	"context"
	"errors"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/portops/triage-cli/internal/docparse"
	"github.com/portops/triage-cli/internal/model"
	"github.com/portops/triage-cli/internal/store"
)

// KnowledgeResult summarizes a knowledge import.
type KnowledgeResult struct {
	Documents  int   `json:"documents"`
	Drafts     int   `json:"drafts"`
	Imported   int64 `json:"imported"`
	Duplicates int   `json:"duplicates"`
}

// knowledgeBulkStore is the postgres fast path for knowledge imports.
type knowledgeBulkStore interface {
	BulkImportKnowledge(ctx context.Context, entries []model.KnowledgeEntry) (int64, error)
}

// ImportKnowledge loads a knowledge source into the base. The source may
// be a local path, an http(s) URL, or an ftp URL; .zip archives are
// unpacked and each member parsed. Drafts whose title already exists in
// the base are skipped as duplicates.
func (im *Importer) ImportKnowledge(ctx context.Context, source string) (*KnowledgeResult, error) {
	log := zap.L().With(zap.String("component", "imports"))

	tmp, err := os.MkdirTemp(im.tempDir, "triage-import-*")
	if err != nil {
		return nil, eris.Wrap(err, "imports: create temp dir")
	}
	defer os.RemoveAll(tmp) //nolint:errcheck

	docs, err := im.collectDocuments(ctx, source, tmp)
	if err != nil {
		return nil, err
	}

	existing, err := im.knownTitles(ctx)
	if err != nil {
		return nil, err
	}

	res := &KnowledgeResult{Documents: len(docs)}
	var entries []model.KnowledgeEntry
	for _, doc := range docs {
		drafts := docparse.ParseDocument(doc.name, doc.data)
		res.Drafts += len(drafts)

		for _, draft := range drafts {
			key := titleKey(draft.Title)
			if existing[key] {
				res.Duplicates++
				continue
			}
			existing[key] = true

			entry := draft.Entry()
			entry.ID = deterministicID(knowledgeNamespace, draft.Title)
			entries = append(entries, entry)
		}
	}

	n, err := im.writeKnowledge(ctx, entries)
	if err != nil {
		return nil, err
	}
	res.Imported = n

	log.Info("knowledge import complete",
		zap.String("source", sourceName(source)),
		zap.Int("documents", res.Documents),
		zap.Int("drafts", res.Drafts),
		zap.Int64("imported", res.Imported),
		zap.Int("duplicates", res.Duplicates),
	)
	return res, nil
}

// knownTitles pages through the base collecting lowercased titles.
func (im *Importer) knownTitles(ctx context.Context) (map[string]bool, error) {
	titles := make(map[string]bool)
	const page = 500
	for offset := 0; ; offset += page {
		batch, err := im.store.ListKnowledge(ctx, store.KnowledgeFilter{Limit: page, Offset: offset})
		if err != nil {
			return nil, eris.Wrap(err, "imports: list existing knowledge")
		}
		for _, entry := range batch {
			titles[titleKey(entry.Title)] = true
		}
		if len(batch) < page {
			return titles, nil
		}
	}
}

func (im *Importer) writeKnowledge(ctx context.Context, entries []model.KnowledgeEntry) (int64, error) {
	if bulk, ok := im.store.(knowledgeBulkStore); ok {
		n, err := bulk.BulkImportKnowledge(ctx, entries)
		if err != nil {
			return n, eris.Wrap(err, "imports: bulk import knowledge")
		}
		return n, nil
	}

	var n int64
	for _, entry := range entries {
		_, err := im.store.GetKnowledge(ctx, entry.ID)
		switch {
		case err == nil:
			if err := im.store.UpdateKnowledge(ctx, entry); err != nil {
				return n, eris.Wrapf(err, "imports: update knowledge %s", entry.ID)
			}
		case errors.Is(err, store.ErrNotFound):
			if _, err := im.store.CreateKnowledge(ctx, entry); err != nil {
				return n, eris.Wrapf(err, "imports: create knowledge %s", entry.ID)
			}
		default:
			return n, eris.Wrapf(err, "imports: check knowledge %s", entry.ID)
		}
		n++
	}
	return n, nil
}
