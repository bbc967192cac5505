package store

import (
	"fmt"
	"math"
	"sort"

	"github.com/katakuxiko/luminarag/internal/model"
)

// cosine similarity in [-1, 1]; zero vectors score 0. a and b have equal
// length.
func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// rank scores recs against vec and returns the best k. Ties keep the
// order of recs, so scans over ordered storage stay deterministic. A record
// embedded with a different dimension means the embedding model changed
// under the collection, which is an ErrEmbedding.
func rank(recs []Record, vec []float32, k int) ([]model.Hit, error) {
	hits := make([]model.Hit, len(recs))
	for i, r := range recs {
		if len(r.Embedding) != len(vec) {
			return nil, fmt.Errorf("%w: query has dimension %d, chunk %s has %d",
				model.ErrEmbedding, len(vec), r.ID, len(r.Embedding))
		}
		hits[i] = model.Hit{ID: r.ID, Text: r.Text, Metadata: r.Metadata, Score: cosine(r.Embedding, vec)}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}
