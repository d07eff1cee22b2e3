package model

import (
	"sort"
	"strings"
)

// Summary derives the index projection of p.
func (p PersistedSession) Summary() SessionSummary {
	tags := make([]string, len(p.Tags))
	copy(tags, p.Tags)
	return SessionSummary{
		ID:           p.ID,
		Title:        p.Title,
		ProjectPath:  p.ProjectPath,
		Model:        p.Model,
		Pinned:       p.Pinned,
		Tags:         tags,
		MessageCount: len(p.Messages),
		TotalCostUSD: p.TotalCostUSD,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

// Normalize puts p into canonical form: non-nil slices, normalized tags and UTC timestamps.
// Records are always stored normalized so that a decoded record equals the one written.
func (p *PersistedSession) Normalize() {
	p.Tags = NormalizeTags(p.Tags)
	if p.Messages == nil {
		p.Messages = []Message{}
	}
	for i := range p.Messages {
		p.Messages[i].Timestamp = utc(p.Messages[i].Timestamp)
	}
	p.CreatedAt = utc(p.CreatedAt)
	p.UpdatedAt = utc(p.UpdatedAt)
}

// Clone returns a deep copy of p.
func (p PersistedSession) Clone() PersistedSession {
	out := p
	out.Tags = append([]string{}, p.Tags...)
	out.Messages = append([]Message{}, p.Messages...)
	return out
}

// Matches reports whether s satisfies every filter set in o.
func (o SearchOptions) Matches(s SessionSummary) bool {
	if o.PinnedOnly && !s.Pinned {
		return false
	}
	if o.StartDate != nil && s.CreatedAt.Before(*o.StartDate) {
		return false
	}
	if o.EndDate != nil && s.CreatedAt.After(*o.EndDate) {
		return false
	}
	if o.ProjectPath != "" && s.ProjectPath != o.ProjectPath {
		return false
	}
	if tag := strings.TrimSpace(o.Tag); tag != "" && !HasTag(s.Tags, tag) {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(o.Query)); q != "" {
		if strings.Contains(strings.ToLower(s.Title), q) {
			return true
		}
		for _, t := range s.Tags {
			if strings.Contains(strings.ToLower(t), q) {
				return true
			}
		}
		return false
	}
	return true
}

// SortSummaries orders summaries most-recently-updated first, breaking ties by id.
func SortSummaries(summaries []SessionSummary) {
	sort.Slice(summaries, func(i, j int) bool {
		a, b := summaries[i], summaries[j]
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.After(b.UpdatedAt)
		}
		return a.ID < b.ID
	})
}
