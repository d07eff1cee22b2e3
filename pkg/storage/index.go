package storage

import (
	"github.com/harun/chronicle/pkg/model"
)

// summaryIndex is an immutable snapshot of every stored summary. Mutations build a new
// snapshot and publish it with a single pointer swap.
type summaryIndex struct {
	byID map[string]model.SessionSummary
}

func newSummaryIndex(summaries map[string]model.SessionSummary) *summaryIndex {
	if summaries == nil {
		summaries = make(map[string]model.SessionSummary)
	}
	return &summaryIndex{byID: summaries}
}

func (ix *summaryIndex) clone(extra int) map[string]model.SessionSummary {
	out := make(map[string]model.SessionSummary, len(ix.byID)+extra)
	for id, s := range ix.byID {
		out[id] = s
	}
	return out
}

// with returns a snapshot in which s replaces any entry with the same id.
func (ix *summaryIndex) with(s model.SessionSummary) *summaryIndex {
	next := ix.clone(1)
	next[s.ID] = s
	return &summaryIndex{byID: next}
}

// without returns a snapshot lacking id. The receiver is returned if id is absent.
func (ix *summaryIndex) without(id string) *summaryIndex {
	if _, ok := ix.byID[id]; !ok {
		return ix
	}
	next := ix.clone(0)
	delete(next, id)
	return &summaryIndex{byID: next}
}

func (ix *summaryIndex) get(id string) (model.SessionSummary, bool) {
	s, ok := ix.byID[id]
	return s, ok
}

func (ix *summaryIndex) len() int {
	return len(ix.byID)
}

// search returns copies of the matching summaries in display order.
func (ix *summaryIndex) search(opts model.SearchOptions) []model.SessionSummary {
	out := make([]model.SessionSummary, 0, len(ix.byID))
	for _, s := range ix.byID {
		if opts.Matches(s) {
			out = append(out, copySummary(s))
		}
	}
	model.SortSummaries(out)
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out
}

func copySummary(s model.SessionSummary) model.SessionSummary {
	s.Tags = append([]string{}, s.Tags...)
	return s
}
