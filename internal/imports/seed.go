package imports

import (
	"context"
	_ "embed"
	"errors"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/portops/triage-cli/internal/model"
	"github.com/portops/triage-cli/internal/store"
)

//go:embed seeds.yaml
var defaultSeeds []byte

// SeedResult summarizes a seed run.
type SeedResult struct {
	TrainingAdded    int `json:"training_added"`
	TrainingSkipped  int `json:"training_skipped"`
	KnowledgeAdded   int `json:"knowledge_added"`
	KnowledgeSkipped int `json:"knowledge_skipped"`
}

// seedFile is the YAML shape of a seed bundle.
type seedFile struct {
	Training  []seedTraining  `yaml:"training"`
	Knowledge []seedKnowledge `yaml:"knowledge"`
}

type seedTraining struct {
	Description     string   `yaml:"description"`
	IncidentType    string   `yaml:"incident_type"`
	PatternMatch    string   `yaml:"pattern_match"`
	RootCause       string   `yaml:"root_cause"`
	Impact          string   `yaml:"impact"`
	Urgency         string   `yaml:"urgency"`
	AffectedSystems []string `yaml:"affected_systems"`
	Category        string   `yaml:"category"`
	Tags            []string `yaml:"tags"`
}

type seedKnowledge struct {
	Title    string   `yaml:"title"`
	Content  string   `yaml:"content"`
	Category string   `yaml:"category"`
	Type     string   `yaml:"type"`
	Tags     []string `yaml:"tags"`
	Keywords string   `yaml:"keywords"`
	Priority int      `yaml:"priority"`
}

// Seed loads a YAML seed bundle into the corpus, or the built-in starter
// bundle when path is empty. Seeding never overwrites existing rows:
// training examples are keyed by description, knowledge entries by title,
// and matches are skipped so curator edits survive re-runs.
func (im *Importer) Seed(ctx context.Context, path string) (*SeedResult, error) {
	log := zap.L().With(zap.String("component", "imports"))

	data := defaultSeeds
	if path != "" {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, eris.Wrapf(err, "imports: read seed file %s", path)
		}
	}

	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, eris.Wrap(err, "imports: parse seed file")
	}

	res := &SeedResult{}
	for _, seed := range file.Training {
		added, err := im.seedTrainingExample(ctx, seed)
		if err != nil {
			return res, err
		}
		if added {
			res.TrainingAdded++
		} else {
			res.TrainingSkipped++
		}
	}

	existing, err := im.knownTitles(ctx)
	if err != nil {
		return res, err
	}
	for _, seed := range file.Knowledge {
		if existing[titleKey(seed.Title)] {
			res.KnowledgeSkipped++
			continue
		}
		existing[titleKey(seed.Title)] = true

		entry := model.KnowledgeEntry{
			ID:       deterministicID(knowledgeNamespace, seed.Title),
			Title:    seed.Title,
			Content:  seed.Content,
			Category: seed.Category,
			Type:     model.KnowledgeType(seed.Type),
			Tags:     seed.Tags,
			Keywords: seed.Keywords,
			Priority: seed.Priority,
			Status:   model.KnowledgeActive,
		}
		entry.Normalize()
		if _, err := im.store.CreateKnowledge(ctx, entry); err != nil {
			return res, eris.Wrapf(err, "imports: seed knowledge %q", seed.Title)
		}
		res.KnowledgeAdded++
	}

	log.Info("seed complete",
		zap.Int("training_added", res.TrainingAdded),
		zap.Int("training_skipped", res.TrainingSkipped),
		zap.Int("knowledge_added", res.KnowledgeAdded),
		zap.Int("knowledge_skipped", res.KnowledgeSkipped),
	)
	return res, nil
}

func (im *Importer) seedTrainingExample(ctx context.Context, seed seedTraining) (bool, error) {
	id := deterministicID(trainingNamespace, seed.Description)

	_, err := im.store.GetTraining(ctx, id)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return false, eris.Wrapf(err, "imports: check seed training %q", seed.Description)
	}

	ex := model.TrainingExample{
		ID:              id,
		Description:     seed.Description,
		IncidentType:    seed.IncidentType,
		PatternMatch:    seed.PatternMatch,
		RootCause:       seed.RootCause,
		Impact:          seed.Impact,
		Urgency:         canonUrgency(seed.Urgency),
		AffectedSystems: seed.AffectedSystems,
		Category:        seed.Category,
		Tags:            seed.Tags,
		Validated:       true,
	}
	ex.Normalize()
	if _, err := im.store.CreateTraining(ctx, ex); err != nil {
		return false, eris.Wrapf(err, "imports: seed training %q", seed.Description)
	}
	return true, nil
}
