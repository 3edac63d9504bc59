package imports

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/portops/triage-cli/internal/model"
	"github.com/portops/triage-cli/internal/store"
)

// TrainingResult summarizes a training corpus import.
type TrainingResult struct {
	Rows     int   `json:"rows"`
	Imported int64 `json:"imported"`
	Skipped  int   `json:"skipped"`
}

// trainingBulkStore is the postgres fast path for training imports.
type trainingBulkStore interface {
	BulkImportTraining(ctx context.Context, examples []model.TrainingExample) (int64, error)
}

// ImportTraining loads a training spreadsheet (.xlsx or .csv with a header
// row) into the corpus. Ids derive from the description, so re-importing a
// corrected file updates rows in place. Rows without a description are
// skipped and counted.
func (im *Importer) ImportTraining(ctx context.Context, source string) (*TrainingResult, error) {
	log := zap.L().With(zap.String("component", "imports"))

	tmp, err := os.MkdirTemp(im.tempDir, "triage-import-*")
	if err != nil {
		return nil, eris.Wrap(err, "imports: create temp dir")
	}
	defer os.RemoveAll(tmp) //nolint:errcheck

	filePath, err := im.localPath(ctx, source, tmp)
	if err != nil {
		return nil, err
	}

	header, rows, err := readTable(filePath)
	if err != nil {
		return nil, err
	}

	cols := mapColumns(header)
	if _, ok := cols["description"]; !ok {
		return nil, eris.Errorf("imports: %s has no description column", sourceName(source))
	}

	res := &TrainingResult{Rows: len(rows)}
	examples := make([]model.TrainingExample, 0, len(rows))
	for _, row := range rows {
		desc := getCol(row, cols, "description")
		if desc == "" {
			res.Skipped++
			continue
		}

		ex := model.TrainingExample{
			ID:              deterministicID(trainingNamespace, desc),
			Description:     desc,
			IncidentType:    getCol(row, cols, "incident_type"),
			PatternMatch:    getCol(row, cols, "pattern_match"),
			RootCause:       getCol(row, cols, "root_cause"),
			Impact:          getCol(row, cols, "impact"),
			Urgency:         canonUrgency(getCol(row, cols, "urgency")),
			AffectedSystems: splitList(getCol(row, cols, "affected_systems")),
			Category:        getCol(row, cols, "category"),
			Tags:            splitList(getCol(row, cols, "tags")),
			Validated:       parseBool(getCol(row, cols, "validated")),
		}
		ex.Normalize()
		examples = append(examples, ex)
	}

	n, err := im.writeTraining(ctx, examples)
	if err != nil {
		return nil, err
	}
	res.Imported = n

	log.Info("training import complete",
		zap.String("source", sourceName(source)),
		zap.Int("rows", res.Rows),
		zap.Int64("imported", res.Imported),
		zap.Int("skipped", res.Skipped),
	)
	return res, nil
}

func (im *Importer) writeTraining(ctx context.Context, examples []model.TrainingExample) (int64, error) {
	if bulk, ok := im.store.(trainingBulkStore); ok {
		n, err := bulk.BulkImportTraining(ctx, examples)
		if err != nil {
			return n, eris.Wrap(err, "imports: bulk import training")
		}
		return n, nil
	}

	var n int64
	for _, ex := range examples {
		_, err := im.store.GetTraining(ctx, ex.ID)
		switch {
		case err == nil:
			if err := im.store.UpdateTraining(ctx, ex); err != nil {
				return n, eris.Wrapf(err, "imports: update training %s", ex.ID)
			}
		case errors.Is(err, store.ErrNotFound):
			if _, err := im.store.CreateTraining(ctx, ex); err != nil {
				return n, eris.Wrapf(err, "imports: create training %s", ex.ID)
			}
		default:
			return n, eris.Wrapf(err, "imports: check training %s", ex.ID)
		}
		n++
	}
	return n, nil
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "y", "yes", "true":
		return true
	}
	return false
}
