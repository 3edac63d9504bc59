package model

import "time"

// KnowledgeType categorizes a knowledge entry.
type KnowledgeType string

const (
	KnowledgeProcedure KnowledgeType = "Procedure"
	KnowledgeFAQ       KnowledgeType = "FAQ"
	KnowledgeSolution  KnowledgeType = "Solution"
	KnowledgeReference KnowledgeType = "Reference"
)

// KnowledgeStatus gates whether an entry is served as analysis context.
type KnowledgeStatus string

const (
	KnowledgeActive   KnowledgeStatus = "Active"
	KnowledgeInactive KnowledgeStatus = "Inactive"
	KnowledgeDraft    KnowledgeStatus = "Draft"
)

// Knowledge priority bounds. 1 is Low, 4 is Critical.
const (
	PriorityMin = 1
	PriorityMax = 4
)

// KnowledgeEntry is a curated procedure, FAQ, solution, or reference
// fragment usable as analysis context. ViewCount and LastUsed are mutated
// only by the usage-recording read path, never by scoring.
type KnowledgeEntry struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Content   string          `json:"content"`
	Category  string          `json:"category"`
	Type      KnowledgeType   `json:"type"`
	Tags      []string        `json:"tags"`
	Keywords  string          `json:"keywords"`
	Priority  int             `json:"priority"`
	Status    KnowledgeStatus `json:"status"`
	ViewCount int             `json:"view_count"`
	LastUsed  *time.Time      `json:"last_used,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Normalize clamps priority into [PriorityMin, PriorityMax], defaults the
// status to Active, and replaces nil tags with an empty slice.
func (k *KnowledgeEntry) Normalize() {
	if k.Priority < PriorityMin {
		k.Priority = PriorityMin
	}
	if k.Priority > PriorityMax {
		k.Priority = PriorityMax
	}
	if k.Status == "" {
		k.Status = KnowledgeActive
	}
	if k.Tags == nil {
		k.Tags = []string{}
	}
}
