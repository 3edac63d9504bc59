// Package scorer computes relevance scores between a free-text incident
// description and stored triage records. All scores land in [0, 1].
package scorer

import (
	"strings"
	"time"

	"github.com/portops/triage-cli/internal/model"
)

// Scoring weights. The substring bonuses reward exact phrase hits; the
// token overlaps reward partial matches proportional to query coverage.
const (
	phraseBonus   = 0.2
	categoryBonus = 0.1

	titleSubstringWeight   = 0.4
	contentSubstringWeight = 0.3
	keywordSubstringWeight = 0.2
	titleOverlapWeight     = 0.2
	contentOverlapWeight   = 0.1
	priorityWeight         = 0.05

	usageWeight   = 0.01
	usageBonusCap = 0.1
)

// Scorer scores corpus records against a query. It holds no corpus state;
// the clock is injectable so the usage-recency bonus is testable.
type Scorer struct {
	now func() time.Time
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithNow overrides the clock used for the usage-recency bonus.
func WithNow(now func() time.Time) Option {
	return func(s *Scorer) {
		s.now = now
	}
}

// New creates a Scorer.
func New(opts ...Option) *Scorer {
	s := &Scorer{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TrainingSimilarity scores a query against a training example. The base is
// the Jaccard index of the whitespace token sets, plus a phrase bonus when
// the whole query appears in the description and a category bonus when the
// example's category appears in the query. An empty query scores 0.
func (s *Scorer) TrainingSimilarity(query string, ex model.TrainingExample) float64 {
	q := strings.ToLower(strings.TrimSpace(query))
	qTokens := tokenize(q)
	if len(qTokens) == 0 {
		return 0
	}

	desc := strings.ToLower(ex.Description)
	dTokens := tokenize(desc)

	inter := intersection(qTokens, dTokens)
	union := len(qTokens) + len(dTokens) - inter

	score := 0.0
	if union > 0 {
		score = float64(inter) / float64(union)
	}

	if strings.Contains(desc, q) {
		score += phraseBonus
	}
	if cat := strings.ToLower(ex.Category); cat != "" && strings.Contains(q, cat) {
		score += categoryBonus
	}

	return clamp01(score)
}

// KnowledgeRelevance scores a query against a knowledge entry: substring
// hits on title, content, and keywords; token overlap fractions on title
// and content; a priority bonus; and a usage-recency bonus capped at 0.1.
// An empty query scores 0.
func (s *Scorer) KnowledgeRelevance(query string, entry model.KnowledgeEntry) float64 {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return 0
	}

	title := strings.ToLower(entry.Title)
	content := strings.ToLower(entry.Content)
	keywords := strings.ToLower(entry.Keywords)

	score := 0.0
	if strings.Contains(title, q) {
		score += titleSubstringWeight
	}
	if strings.Contains(content, q) {
		score += contentSubstringWeight
	}
	if keywords != "" && strings.Contains(keywords, q) {
		score += keywordSubstringWeight
	}

	qTokens := tokenize(q)
	if len(qTokens) > 0 {
		if m := intersection(qTokens, tokenize(title)); m > 0 {
			score += titleOverlapWeight * float64(m) / float64(len(qTokens))
		}
		if m := intersection(qTokens, tokenize(content)); m > 0 {
			score += contentOverlapWeight * float64(m) / float64(len(qTokens))
		}
	}

	score += float64(entry.Priority) * priorityWeight

	if entry.LastUsed != nil && entry.ViewCount > 0 {
		// Whole days only; same-day usage counts as one day so heavy
		// same-day traffic cannot dominate the score.
		days := int(s.now().Sub(*entry.LastUsed).Hours() / 24)
		if days < 1 {
			days = 1
		}
		bonus := float64(entry.ViewCount) * usageWeight / float64(days)
		if bonus > usageBonusCap {
			bonus = usageBonusCap
		}
		score += bonus
	}

	return clamp01(score)
}

// tokenize splits s on whitespace into a lower-cased token set.
// Duplicates collapse; order is irrelevant.
func tokenize(s string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(s))
	if len(fields) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

func intersection(a, b map[string]struct{}) int {
	if len(b) < len(a) {
		a, b = b, a
	}
	n := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			n++
		}
	}
	return n
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
