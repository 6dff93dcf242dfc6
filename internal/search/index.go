package search

import (
	"math"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/Paintersrp/recall/internal/recall"
)

type field uint8

const (
	fieldName field = iota
	fieldContent
	fieldContext
	fieldCount
)

// epsilon stands in for a perfect field score so it still contributes to
// the weighted product.
const epsilon = 1e-3

type posting struct {
	doc    int32
	field  field
	offset int32
}

type token struct {
	text   string
	offset int
}

// Index is a fuzzy token index over a recall corpus. It is immutable once
// built and safe for concurrent readers.
type Index struct {
	cfg      Config
	corpus   recall.Corpus
	words    []string
	postings [][]posting
	lookup   map[string]int
}

// Match is one candidate produced by the fuzzy engine.
type Match struct {
	Document recall.Document
	Score    float64
	// Offset is the byte offset in Document.Content of the earliest matched
	// token, or -1 when only other fields matched.
	Offset int
}

// NewIndex tokenizes every document field into a shared vocabulary.
func NewIndex(corpus recall.Corpus, cfg Config) *Index {
	idx := &Index{
		cfg:    cfg.withDefaults(),
		corpus: corpus,
		lookup: make(map[string]int),
	}

	for i, doc := range corpus.Documents {
		idx.add(int32(i), fieldName, doc.Name)
		idx.add(int32(i), fieldContent, doc.Content)
		if doc.Kind == recall.KindSession {
			idx.add(int32(i), fieldContext, doc.ContextSource)
		}
	}
	return idx
}

func (idx *Index) add(doc int32, f field, text string) {
	for _, tok := range tokenize(text) {
		wi, ok := idx.lookup[tok.text]
		if !ok {
			wi = len(idx.words)
			idx.lookup[tok.text] = wi
			idx.words = append(idx.words, tok.text)
			idx.postings = append(idx.postings, nil)
		}
		idx.postings[wi] = append(idx.postings[wi], posting{doc: doc, field: f, offset: int32(tok.offset)})
	}
}

// Version reports the snapshot version the index was built from.
func (idx *Index) Version() int64 {
	if idx == nil {
		return 0
	}
	return idx.corpus.Version
}

// Corpus returns the corpus metadata the index was built from.
func (idx *Index) Corpus() recall.Corpus {
	return idx.corpus
}

func (idx *Index) BuiltAt() time.Time {
	return idx.corpus.BuiltAt
}

// Len reports the number of indexed documents.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.corpus.Documents)
}

type hit struct {
	best   [fieldCount][]float64
	offset int
}

// Match runs the fuzzy engine and returns up to limit candidates ordered by
// ascending score. A non-positive limit returns every candidate.
func (idx *Index) Match(query string, limit int) []Match {
	if idx == nil || len(idx.corpus.Documents) == 0 {
		return nil
	}

	terms := idx.queryTerms(query)
	if len(terms) == 0 {
		return nil
	}

	hits := make(map[int32]*hit)
	for qi, term := range terms {
		for wi, word := range idx.words {
			score, ok := idx.tokenScore(term, word)
			if !ok {
				continue
			}
			for _, p := range idx.postings[wi] {
				h := hits[p.doc]
				if h == nil {
					h = &hit{offset: -1}
					hits[p.doc] = h
				}
				scores := h.best[p.field]
				if scores == nil {
					scores = make([]float64, len(terms))
					for i := range scores {
						scores[i] = 1
					}
					h.best[p.field] = scores
				}
				if score < scores[qi] {
					scores[qi] = score
				}
				if p.field == fieldContent && (h.offset < 0 || int(p.offset) < h.offset) {
					h.offset = int(p.offset)
				}
			}
		}
	}

	docs := make([]int32, 0, len(hits))
	for doc := range hits {
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i] < docs[j] })

	weights := [fieldCount]float64{idx.cfg.Weights.Name, idx.cfg.Weights.Content, idx.cfg.Weights.Context}
	total := weights[fieldName] + weights[fieldContent] + weights[fieldContext]

	matches := make([]Match, 0, len(docs))
	for _, doc := range docs {
		h := hits[doc]
		score := 1.0
		matched := false
		contentMatched := false
		for f := field(0); f < fieldCount; f++ {
			if h.best[f] == nil {
				continue
			}
			fs := mean(h.best[f])
			if fs > idx.cfg.Threshold {
				continue
			}
			matched = true
			if f == fieldContent {
				contentMatched = true
			}
			score *= math.Pow(math.Max(fs, epsilon), weights[f]/total)
		}
		if !matched {
			continue
		}

		offset := h.offset
		if !contentMatched {
			offset = -1
		}
		matches = append(matches, Match{
			Document: idx.corpus.Documents[doc],
			Score:    score,
			Offset:   offset,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score < matches[j].Score
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

func (idx *Index) queryTerms(query string) []string {
	seen := make(map[string]struct{})
	terms := make([]string, 0)
	for _, tok := range tokenize(query) {
		if utf8.RuneCountInString(tok.text) < idx.cfg.MinTokenLength {
			continue
		}
		if _, dup := seen[tok.text]; dup {
			continue
		}
		seen[tok.text] = struct{}{}
		terms = append(terms, tok.text)
	}
	return terms
}

// tokenScore rates how well word answers term: 0 for identical words, a
// small penalty for containment and a normalized edit distance otherwise.
func (idx *Index) tokenScore(term, word string) (float64, bool) {
	if term == word {
		return 0, true
	}

	termLen := utf8.RuneCountInString(term)
	wordLen := utf8.RuneCountInString(word)

	if wordLen > termLen {
		ratio := 1 - float64(termLen)/float64(wordLen)
		if strings.HasPrefix(word, term) {
			return 0.1 * ratio, true
		}
		if strings.Contains(word, term) {
			return 0.15 + 0.1*ratio, true
		}
	}

	// Words far shorter than the term cannot come within the threshold.
	if float64(termLen-wordLen)/float64(termLen) > idx.cfg.TokenThreshold {
		return 0, false
	}

	distance := levenshtein.ComputeDistance(term, word)
	if wordLen > termLen {
		prefix := string([]rune(word)[:termLen])
		if d := levenshtein.ComputeDistance(term, prefix); d < distance {
			distance = d
		}
	}

	score := float64(distance) / float64(termLen)
	if score > idx.cfg.TokenThreshold {
		return 0, false
	}
	return score, true
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 1
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// tokenize splits text into lowercase runs of letters and digits, keeping
// each run's byte offset in the original text.
func tokenize(text string) []token {
	tokens := make([]token, 0)
	start := -1
	for i, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			tokens = append(tokens, token{text: strings.ToLower(text[start:i]), offset: start})
			start = -1
		}
	}
	if start >= 0 {
		tokens = append(tokens, token{text: strings.ToLower(text[start:]), offset: start})
	}
	return tokens
}
