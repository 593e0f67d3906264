// Package vectormath holds the vector arithmetic shared by the embedded
// vector indexes and the hashing embedder.
package vectormath

import (
	"cmp"
	"encoding/binary"
	"math"
	"slices"

	"github.com/custodia-labs/wikirag/internal/core/domain"
)

// Cosine returns the cosine similarity of a and b.
// Vectors of different length or with zero norm score 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
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

// Dot returns the dot product of a and b, or 0 for mismatched lengths.
func Dot(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

// Euclid returns the Euclidean distance between a and b.
func Euclid(a, b []float32) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Score returns a similarity where higher is better for any distance.
// Euclidean distance is mapped to 1/(1+d) so thresholds stay in (0, 1].
func Score(distance domain.Distance, a, b []float32) float64 {
	switch distance {
	case domain.DistanceDot:
		return Dot(a, b)
	case domain.DistanceEuclid:
		return 1 / (1 + Euclid(a, b))
	default:
		return Cosine(a, b)
	}
}

// Normalize scales v to unit length in place. A zero vector is left as is.
func Normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
}

// Encode converts a []float32 to little-endian bytes for storage.
func Encode(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// Decode converts bytes written by Encode back to []float32.
func Decode(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

// Rank keeps the hits scoring at least threshold, orders them by descending
// score and returns at most topK. hits must be in insertion order: the sort
// is stable, so equal scores keep that order.
func Rank(hits []domain.ScoredChunk, topK int, threshold float64) []domain.ScoredChunk {
	kept := make([]domain.ScoredChunk, 0, len(hits))
	for _, h := range hits {
		if h.Score >= threshold {
			kept = append(kept, h)
		}
	}
	slices.SortStableFunc(kept, func(a, b domain.ScoredChunk) int {
		return cmp.Compare(b.Score, a.Score)
	})
	if topK >= 0 && len(kept) > topK {
		kept = kept[:topK]
	}
	return kept
}
