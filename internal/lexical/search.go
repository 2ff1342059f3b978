package lexical

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/nyctaxi/trip-analytics/internal/triptable"
)

// BM25 parameters, conventional values.
const (
	k1 = 1.2
	b  = 0.75
)

// Filters narrows a search to documents matching exact field values. Fare
// bounds are inclusive and applied to the candidate set before ranking is
// truncated.
type Filters struct {
	TaxiType       triptable.TaxiType
	PickupBorough  string
	DropoffBorough string
	Period         triptable.Period
	Day            *time.Weekday
	MinFare        *float64
	MaxFare        *float64
}

func (f Filters) matches(d Document) bool {
	if f.TaxiType != "" && d.TaxiType != f.TaxiType {
		return false
	}
	if f.PickupBorough != "" && !strings.EqualFold(d.PickupBorough, f.PickupBorough) {
		return false
	}
	if f.DropoffBorough != "" && !strings.EqualFold(d.DropoffBorough, f.DropoffBorough) {
		return false
	}
	if f.Period != "" && d.Period != f.Period {
		return false
	}
	if f.Day != nil && d.Day != f.Day.String() {
		return false
	}
	if f.MinFare != nil && d.Fare < *f.MinFare {
		return false
	}
	if f.MaxFare != nil && d.Fare > *f.MaxFare {
		return false
	}
	return true
}

// Match is one ranked hit: the document plus its relevance score.
type Match struct {
	Doc   Document `json:"document"`
	Score float64  `json:"score"`
}

// Search runs a ranked free-text query. All query terms must occur in a
// document for it to match (conjunctive, like the original engine's
// default); candidates are scored with BM25 and ordered by descending
// score, ties broken by most-recent pickup time. limit <= 0 returns every
// match, which the hybrid path relies on.
func (ix *Index) Search(text string, f Filters, limit int) []Match {
	terms := tokenize(text)
	if len(terms) == 0 {
		return nil
	}

	// Intersect postings starting from the rarest term.
	sort.Slice(terms, func(i, j int) bool {
		return len(ix.postings[terms[i]]) < len(ix.postings[terms[j]])
	})
	if len(ix.postings[terms[0]]) == 0 {
		return nil
	}
	candidates := make(map[int32]float64, len(ix.postings[terms[0]]))
	for i, term := range terms {
		postings := ix.postings[term]
		if len(postings) == 0 {
			return nil
		}
		idf := ix.idf(len(postings))
		next := make(map[int32]float64, len(candidates))
		for _, p := range postings {
			score, seen := candidates[p.doc]
			if i > 0 && !seen {
				continue
			}
			next[p.doc] = score + idf*ix.tfNorm(p)
		}
		candidates = next
	}

	matches := make([]Match, 0, len(candidates))
	for docID, score := range candidates {
		doc := ix.docs[docID]
		if !f.matches(doc) {
			continue
		}
		matches = append(matches, Match{
			Doc:   doc,
			Score: math.Round(score*10000) / 10000,
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		if !matches[i].Doc.PickupTime.Equal(matches[j].Doc.PickupTime) {
			return matches[i].Doc.PickupTime.After(matches[j].Doc.PickupTime)
		}
		return matches[i].Doc.TripID < matches[j].Doc.TripID
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

func (ix *Index) idf(docFreq int) float64 {
	numerator := float64(len(ix.docs)) - float64(docFreq) + 0.5
	denominator := float64(docFreq) + 0.5
	return math.Log(numerator/denominator + 1)
}

func (ix *Index) tfNorm(p posting) float64 {
	if ix.avgDocLen == 0 {
		return 0
	}
	tf := float64(p.freq)
	lengthRatio := float64(ix.docLen[p.doc]) / ix.avgDocLen
	return (tf * (k1 + 1)) / (tf + k1*(1-b+b*lengthRatio))
}
