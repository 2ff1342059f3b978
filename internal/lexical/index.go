package lexical

import (
	"fmt"
	"log/slog"

	"github.com/nyctaxi/trip-analytics/internal/triptable"
	apperrors "github.com/nyctaxi/trip-analytics/pkg/errors"
)

type posting struct {
	doc  int32
	freq int32
}

// Index is the in-memory inverted index over the sampled trip documents.
// Read-only after Build; safe for concurrent searches without locking.
type Index struct {
	docs      []Document
	postings  map[string][]posting
	docLen    []int
	avgDocLen float64
	byType    map[triptable.TaxiType]int
	sampleCap int
}

// Stats describes the index for the dataset-info report.
type Stats struct {
	Documents    int            `json:"documents"`
	ByType       map[string]int `json:"taxi_type_distribution"`
	SampleCap    int            `json:"sample_cap_per_type"`
	Fields       []string       `json:"fields"`
	AvgDocLength float64        `json:"avg_doc_length"`
}

// Build indexes a bounded, deterministic sample of the table: up to
// sampleCap trips per taxi type, taken at a fixed stride so the sample
// spans the whole period. The index holds a textual surrogate per sampled
// trip and is never updated afterwards.
func Build(table *triptable.Table, sampleCap int) (*Index, error) {
	if table == nil || table.RowCount() == 0 {
		return nil, fmt.Errorf("%w: no trips to index", apperrors.ErrIndexUnavailable)
	}
	if sampleCap <= 0 {
		return nil, fmt.Errorf("%w: sample size must be positive, got %d", apperrors.ErrIndexUnavailable, sampleCap)
	}

	ix := &Index{
		postings:  make(map[string][]posting),
		byType:    make(map[triptable.TaxiType]int, 2),
		sampleCap: sampleCap,
	}

	totalLen := 0
	for _, tt := range []triptable.TaxiType{triptable.TaxiYellow, triptable.TaxiGreen} {
		count := table.CountByType(tt)
		stride := 1
		if count > sampleCap {
			stride = count / sampleCap
		}
		seen := 0
		for trip := range table.Iterate(func(t *triptable.Trip) bool { return t.Type == tt }) {
			if seen%stride != 0 {
				seen++
				continue
			}
			seen++
			if ix.byType[tt] >= sampleCap {
				break
			}
			totalLen += ix.add(trip)
			ix.byType[tt]++
		}
	}

	if len(ix.docs) == 0 {
		return nil, fmt.Errorf("%w: sampling produced no documents", apperrors.ErrIndexUnavailable)
	}
	ix.avgDocLen = float64(totalLen) / float64(len(ix.docs))
	slog.Default().With("component", "lexical-index").Info("index built",
		"documents", len(ix.docs),
		"terms", len(ix.postings),
		"yellow", ix.byType[triptable.TaxiYellow],
		"green", ix.byType[triptable.TaxiGreen],
	)
	return ix, nil
}

// add indexes one trip and returns its token count.
func (ix *Index) add(t *triptable.Trip) int {
	doc := newDocument(t)
	docID := int32(len(ix.docs))
	ix.docs = append(ix.docs, doc)

	tokens := tokenize(doc.searchText())
	freq := make(map[string]int32, len(tokens))
	for _, term := range tokens {
		freq[term]++
	}
	for term, f := range freq {
		ix.postings[term] = append(ix.postings[term], posting{doc: docID, freq: f})
	}
	ix.docLen = append(ix.docLen, len(tokens))
	return len(tokens)
}

// DocCount returns the number of indexed documents.
func (ix *Index) DocCount() int {
	return len(ix.docs)
}

// Snapshot returns the index metadata for dataset-info.
func (ix *Index) Snapshot() Stats {
	byType := make(map[string]int, len(ix.byType))
	for tt, n := range ix.byType {
		byType[string(tt)] = n
	}
	return Stats{
		Documents:    len(ix.docs),
		ByType:       byType,
		SampleCap:    ix.sampleCap,
		Fields:       indexedFields,
		AvgDocLength: ix.avgDocLen,
	}
}
