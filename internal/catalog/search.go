package catalog

import (
	"cmp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/Aimecol/hforher/internal/domain"
)

// DefaultMinScore drops matches weaker than this.
const DefaultMinScore = 0.02

// Field weights for fuzzy search.
const (
	weightName        = 0.3
	weightDescription = 0.2
	weightTags        = 0.3
	weightVendor      = 0.1
	weightColors      = 0.1
)

// Hit is a search match.
type Hit struct {
	Product domain.Product `json:"product"`
	Score   float64        `json:"score"`
}

// Searcher ranks products against a free-text query. Matching is a case and
// accent insensitive subsequence match scored by closeness to each field.
type Searcher struct {
	MinScore float64
}

// NewSearcher creates a searcher. A non-positive minScore uses
// DefaultMinScore.
func NewSearcher(minScore float64) Searcher {
	if minScore <= 0 {
		minScore = DefaultMinScore
	}
	return Searcher{MinScore: minScore}
}

// Search returns products scoring at least MinScore, best first. Equal
// scores keep catalog order. A blank query matches nothing.
func (s Searcher) Search(products []domain.Product, query string) []Hit {
	query = strings.TrimSpace(query)
	hits := []Hit{}
	if query == "" {
		return hits
	}

	for i := range products {
		score := Score(&products[i], query)
		if score > 0 && score >= s.MinScore {
			hits = append(hits, Hit{Product: products[i], Score: score})
		}
	}
	slices.SortStableFunc(hits, func(a, b Hit) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return hits
}

// Score is the weighted sum of the query's closeness to each searchable
// field. Multi-valued fields count their best value.
func Score(p *domain.Product, query string) float64 {
	colors := make([]string, 0, len(p.Variants))
	for _, v := range p.Variants {
		colors = append(colors, v.Color)
	}

	return weightName*closeness(query, p.Name) +
		weightDescription*closeness(query, p.Description) +
		weightTags*best(query, p.Tags) +
		weightVendor*closeness(query, p.Vendor) +
		weightColors*best(query, colors)
}

// closeness is 1 for an exact match, falling towards 0 as the target grows
// around the query, and 0 when the query is not a subsequence.
func closeness(query, target string) float64 {
	if target == "" {
		return 0
	}
	dist := fuzzy.RankMatchNormalizedFold(query, target)
	if dist < 0 {
		return 0
	}
	n := utf8.RuneCountInString(target)
	return max(1-float64(dist)/float64(n), 0)
}

func best(query string, targets []string) float64 {
	var top float64
	for _, t := range targets {
		top = max(top, closeness(query, t))
	}
	return top
}
