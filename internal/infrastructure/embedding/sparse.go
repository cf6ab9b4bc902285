package embedding

import (
	"hash/fnv"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/medassist/chat-backend/internal/core/domain"
)

const (
	bm25K          = 1.2
	maxSparseTerms = 256
)

// SparseEncoder turns free text into a BM25-weighted sparse vector. Tokens
// are hashed onto uint32 indices with FNV-32a, so no vocabulary has to be
// shared between indexing and querying.
type SparseEncoder struct{}

func NewSparseEncoder() *SparseEncoder {
	return &SparseEncoder{}
}

func (SparseEncoder) Encode(text string) domain.SparseVector {
	termFreq := make(map[uint32]float64, 32)
	for _, token := range tokenizeAlphaNum(text) {
		if token == "" {
			continue
		}
		termFreq[hashToken(token)]++
	}
	return termFreqToSparse(termFreq)
}

func termFreqToSparse(tf map[uint32]float64) domain.SparseVector {
	if len(tf) == 0 {
		return domain.SparseVector{}
	}

	indices := make([]uint32, 0, len(tf))
	for idx := range tf {
		indices = append(indices, idx)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })
	if len(indices) > maxSparseTerms {
		indices = indices[:maxSparseTerms]
	}

	values := make([]float32, 0, len(indices))
	for _, idx := range indices {
		tfValue := tf[idx]
		weight := (tfValue * (bm25K + 1.0)) / (tfValue + bm25K)
		if math.IsNaN(weight) || math.IsInf(weight, 0) {
			weight = 0
		}
		values = append(values, float32(weight))
	}

	return domain.SparseVector{Indices: indices, Values: values}
}

func hashToken(token string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(token))
	sum := h.Sum32()
	if sum == 0 {
		return 1
	}
	return sum
}

func tokenizeAlphaNum(s string) []string {
	if s == "" {
		return nil
	}
	out := make([]string, 0, 24)
	var b strings.Builder
	for _, r := range s {
		r = unicode.ToLower(r)
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			continue
		}
		if b.Len() > 0 {
			out = append(out, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		out = append(out, b.String())
	}
	return out
}
