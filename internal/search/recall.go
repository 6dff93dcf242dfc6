package search

import (
	"sort"
	"unicode/utf8"

	"github.com/Paintersrp/recall/internal/recall"
)

const (
	oversampleFactor = 25
	oversampleFloor  = 200
)

// Recall runs a validated request: fuzzy match with oversampling, category
// and date filtering, then excerpt and context extraction for the survivors.
func (idx *Index) Recall(req Request) []Result {
	if idx == nil {
		return []Result{}
	}

	limit := req.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	candidates := idx.Match(req.Query, max(limit*oversampleFactor, oversampleFloor))

	allowed := make(map[recall.Category]struct{}, len(req.Categories))
	for _, c := range req.Categories {
		allowed[c] = struct{}{}
	}

	filtered := make([]Match, 0, len(candidates))
	for _, m := range candidates {
		if len(allowed) > 0 {
			if _, ok := allowed[m.Document.Category]; !ok {
				continue
			}
		}
		if !inRange(m.Document, req) {
			continue
		}
		filtered = append(filtered, m)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Score < filtered[j].Score
	})
	if len(filtered) > limit {
		filtered = filtered[:limit]
	}

	results := make([]Result, 0, len(filtered))
	queryLen := utf8.RuneCountInString(req.Query)
	for _, m := range filtered {
		doc := m.Document
		offset := MatchOffset(doc.Content, req.Query, m.Offset)

		context := doc.ContextSource
		if doc.Kind != recall.KindSession {
			context = MarkdownContext(doc.Content, offset)
		}

		results = append(results, Result{
			Path:     doc.Path,
			Name:     doc.Name,
			Category: doc.Category,
			Excerpt:  Excerpt(doc.Content, offset, queryLen),
			Context:  context,
			Score:    m.Score,
		})
	}
	return results
}

// inRange applies the date bounds. Documents without a timestamp only pass
// when neither bound is set.
func inRange(doc recall.Document, req Request) bool {
	if req.From == nil && req.To == nil {
		return true
	}
	ts, ok := doc.Time()
	if !ok {
		return false
	}
	if req.From != nil && ts.Before(*req.From) {
		return false
	}
	if req.To != nil && ts.After(*req.To) {
		return false
	}
	return true
}
