// Package docparse splits operational documents into knowledge entry
// drafts: plain-text runbooks, pasted bulk notes, and the text members
// of imported archives all flow through here before persistence.
package docparse

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/portops/triage-cli/internal/model"
)

// Draft shaping limits.
const (
	maxTitleChars   = 120
	maxContentChars = 5000
	minBlockChars   = 10
)

// EntryDraft is a knowledge entry candidate parsed out of a document.
type EntryDraft struct {
	Title    string              `json:"title"`
	Content  string              `json:"content"`
	Category string              `json:"category"`
	Type     model.KnowledgeType `json:"type"`
	Keywords string              `json:"keywords"`
	Tags     []string            `json:"tags"`
}

// Entry converts the draft into a persistable knowledge entry.
func (d EntryDraft) Entry() model.KnowledgeEntry {
	entry := model.KnowledgeEntry{
		Title:    d.Title,
		Content:  d.Content,
		Category: d.Category,
		Type:     d.Type,
		Keywords: d.Keywords,
		Tags:     d.Tags,
		Status:   model.KnowledgeActive,
		Priority: model.PriorityMin,
	}
	entry.Normalize()
	return entry
}

// ParseDocument decodes a document and splits it into entry drafts.
// Blocks break on blank lines and list markers; blocks shorter than
// minBlockChars are dropped. The name is only used for logging.
func ParseDocument(name string, data []byte) []EntryDraft {
	text := decodeText(data)
	if strings.TrimSpace(text) == "" {
		return nil
	}

	blocks := splitBlocks(text)
	drafts := make([]EntryDraft, 0, len(blocks))
	for _, block := range blocks {
		draft, ok := draftFromBlock(block, len(drafts)+1)
		if !ok {
			continue
		}
		drafts = append(drafts, draft)
	}

	zap.L().Debug("docparse: parsed document",
		zap.String("name", name),
		zap.Int("blocks", len(blocks)),
		zap.Int("drafts", len(drafts)))
	return drafts
}

// decodeText returns the document text as UTF-8. Non-UTF-8 input is
// decoded as windows-1252, which covers the latin-1 exports the legacy
// port systems produce.
func decodeText(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	enc, err := htmlindex.Get("windows-1252")
	if err != nil {
		return string(data)
	}
	decoded, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		zap.L().Warn("docparse: charset decode", zap.Error(err))
		return string(data)
	}
	return string(decoded)
}

// splitBlocks splits text into blocks on blank lines and list markers.
// A marker line starts a new block rather than extending the previous
// one, so each list item drafts separately.
func splitBlocks(text string) []string {
	var blocks []string
	var current []string

	flush := func() {
		if len(current) == 0 {
			return
		}
		block := strings.TrimSpace(strings.Join(current, "\n"))
		if block != "" {
			blocks = append(blocks, block)
		}
		current = current[:0]
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || isListMarker(trimmed) {
			flush()
		}
		current = append(current, line)
	}
	flush()
	return blocks
}

func isListMarker(line string) bool {
	for _, prefix := range []string{"- ", "* ", "• "} {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return isNumberedItem(line)
}

// isNumberedItem reports whether the line starts like "3. " numbering.
func isNumberedItem(line string) bool {
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	return i > 0 && strings.HasPrefix(line[i:], ". ")
}

func draftFromBlock(block string, ordinal int) (EntryDraft, bool) {
	if utf8.RuneCountInString(block) < minBlockChars {
		return EntryDraft{}, false
	}

	firstLine := strings.TrimSpace(strings.SplitN(block, "\n", 2)[0])
	title := truncateRunes(firstLine, maxTitleChars)
	if title == "" {
		title = fmt.Sprintf("Entry %d", ordinal)
	}

	category, keywords := inferCategory(block)
	return EntryDraft{
		Title:    title,
		Content:  truncateRunes(block, maxContentChars),
		Category: category,
		Type:     inferType(block, firstLine),
		Keywords: strings.Join(keywords, ", "),
		Tags:     keywords,
	}, true
}

// categoryHint maps keyword hits to a knowledge category. Hints are
// checked in order and the first hit names the category; every matched
// keyword is kept for indexing.
type categoryHint struct {
	category string
	keywords []string
}

var categoryHints = []categoryHint{
	{"EDI Processing", []string{"edi", "iftmin", "baplie", "coparn", "codeco"}},
	{"Container Management", []string{"container", "yard", "reefer"}},
	{"Vessel Operations", []string{"vessel", "berth", "voyage", "stowage"}},
	{"Terminal Operations", []string{"gate", "crane", "truck", "rfid"}},
	{"Financial Operations", []string{"billing", "invoice", "demurrage", "tariff"}},
}

// defaultCategory matches what the bulk importer historically assigned.
const defaultCategory = "General"

func inferCategory(block string) (string, []string) {
	lower := strings.ToLower(block)

	category := defaultCategory
	var matched []string
	for _, hint := range categoryHints {
		hits := keywordHits(lower, hint.keywords)
		if len(hits) == 0 {
			continue
		}
		if category == defaultCategory {
			category = hint.category
		}
		matched = append(matched, hits...)
	}
	return category, matched
}

func keywordHits(lower string, keywords []string) []string {
	var hits []string
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			hits = append(hits, kw)
		}
	}
	return hits
}

// inferType classifies the block shape: step language and numbered
// items read as procedures, question-shaped first lines as FAQ, fix
// language as solutions, everything else as reference material.
func inferType(block, firstLine string) model.KnowledgeType {
	lower := strings.ToLower(block)
	switch {
	case strings.Contains(lower, "procedure") || strings.Contains(lower, "step") || isNumberedItem(firstLine):
		return model.KnowledgeProcedure
	case strings.Contains(firstLine, "?") || strings.HasPrefix(lower, "q:") || strings.Contains(lower, "faq"):
		return model.KnowledgeFAQ
	case containsAny(lower, "fix", "resolve", "resolution", "workaround", "solution"):
		return model.KnowledgeSolution
	default:
		return model.KnowledgeReference
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}
