// Package analyzer implements the incident triage flow: relevance-ranked
// context selection over the training and knowledge corpus, bounded prompt
// composition, model completion, two-stage response parsing, and a
// deterministic rule-based fallback for when the model is unavailable.
package analyzer

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/portops/triage-cli/internal/llm"
	"github.com/portops/triage-cli/internal/model"
	"github.com/portops/triage-cli/internal/scorer"
)

// Analysis completion budget.
const (
	analysisMaxTokens   = 800
	analysisTemperature = 0.3
)

// CorpusProvider supplies point-in-time snapshots of the triage corpus.
// The analyzer treats both lists as read-only for the duration of a call.
type CorpusProvider interface {
	TrainingExamples(ctx context.Context) ([]model.TrainingExample, error)
	KnowledgeEntries(ctx context.Context) ([]model.KnowledgeEntry, error)
}

// UsageReporter records that a knowledge entry was selected into an
// analysis context. Calls are fire and forget: failures are logged and
// never abort the analysis.
type UsageReporter interface {
	RecordKnowledgeUsage(ctx context.Context, entryID string) error
}

// Enricher contributes extra knowledge candidates for a description,
// independent of relevance ranking. The known-error matcher implements
// it to pull entries recorded against extracted error codes.
type Enricher interface {
	EnrichKnowledge(ctx context.Context, description string) []model.KnowledgeEntry
}

// Analyzer runs triage for incident descriptions. Construct once per
// process and share; it holds no per-call state.
type Analyzer struct {
	client         llm.Client
	corpus         CorpusProvider
	scorer         *scorer.Scorer
	usage          UsageReporter
	enricher       Enricher
	trainingLimit  int
	knowledgeLimit int
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithScorer replaces the default relevance scorer.
func WithScorer(sc *scorer.Scorer) Option {
	return func(a *Analyzer) {
		a.scorer = sc
	}
}

// WithUsageReporter wires the collaborator that tracks knowledge usage.
func WithUsageReporter(r UsageReporter) Option {
	return func(a *Analyzer) {
		a.usage = r
	}
}

// WithEnricher adds a knowledge enrichment hook. Enriched entries join
// the context after ranked selection, deduplicated by ID.
func WithEnricher(e Enricher) Option {
	return func(a *Analyzer) {
		a.enricher = e
	}
}

// WithLimits overrides how many training examples and knowledge entries
// are selected into one analysis context.
func WithLimits(training, knowledge int) Option {
	return func(a *Analyzer) {
		a.trainingLimit = training
		a.knowledgeLimit = knowledge
	}
}

// New creates an Analyzer. The client may be nil or unconfigured; every
// analysis then takes the rule-based path.
func New(client llm.Client, corpus CorpusProvider, opts ...Option) *Analyzer {
	a := &Analyzer{
		client:         client,
		corpus:         corpus,
		scorer:         scorer.New(),
		trainingLimit:  defaultTrainingLimit,
		knowledgeLimit: defaultKnowledgeLimit,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze classifies one incident description. Provider-side failures
// never propagate: the result degrades to the rule-based fallback and is
// always fully populated. The only error is an empty description, which
// is a caller bug rather than a runtime condition.
func (a *Analyzer) Analyze(ctx context.Context, description string) (model.Analysis, error) {
	if strings.TrimSpace(description) == "" {
		return model.Analysis{}, eris.New("analyzer: description is required")
	}

	examples, entries := a.selectContext(ctx, description)

	if a.client == nil || !a.client.Configured() {
		zap.L().Debug("analyzer: model unconfigured, using rule-based classification")
		return Classify(description), nil
	}

	raw, err := a.client.Complete(ctx, llm.Request{
		System:      analysisSystemPrompt,
		Prompt:      ComposeAnalysisPrompt(description, examples, entries),
		MaxTokens:   analysisMaxTokens,
		Temperature: analysisTemperature,
		Operation:   "analysis",
	})
	if err != nil {
		zap.L().Warn("analyzer: completion failed, using rule-based classification", zap.Error(err))
		return Classify(description), nil
	}

	analysis := ParseAnalysis(raw)
	analysis.Provider = a.client.Provider()

	zap.L().Info("analyzer: analysis complete",
		zap.String("incident_type", analysis.IncidentType),
		zap.String("urgency", string(analysis.Urgency)),
		zap.Int("training_examples", len(examples)),
		zap.Int("knowledge_entries", len(entries)),
	)
	return analysis, nil
}

// selectContext loads the corpus and ranks it against the description.
// Corpus load failures degrade to an empty snapshot: triage still
// answers, the context is just thinner.
func (a *Analyzer) selectContext(ctx context.Context, description string) ([]model.TrainingExample, []model.KnowledgeEntry) {
	if a.corpus == nil {
		return nil, nil
	}

	training, err := a.corpus.TrainingExamples(ctx)
	if err != nil {
		zap.L().Warn("analyzer: load training examples", zap.Error(err))
	}
	knowledge, err := a.corpus.KnowledgeEntries(ctx)
	if err != nil {
		zap.L().Warn("analyzer: load knowledge entries", zap.Error(err))
	}

	examples := SelectTraining(a.scorer, description, training, a.trainingLimit)
	entries := SelectKnowledge(a.scorer, description, knowledge, a.knowledgeLimit)
	if a.enricher != nil {
		entries = MergeKnowledge(entries, a.enricher.EnrichKnowledge(ctx, description))
	}

	a.reportUsage(ctx, entries)
	return examples, entries
}

// reportUsage records each selected knowledge entry with the usage
// collaborator. Failures are logged and swallowed.
func (a *Analyzer) reportUsage(ctx context.Context, entries []model.KnowledgeEntry) {
	if a.usage == nil {
		return
	}
	for _, entry := range entries {
		if err := a.usage.RecordKnowledgeUsage(ctx, entry.ID); err != nil {
			zap.L().Warn("analyzer: record knowledge usage",
				zap.String("entry_id", entry.ID),
				zap.Error(err))
		}
	}
}
