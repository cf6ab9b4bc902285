package usecase

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/medassist/chat-backend/internal/core/domain"
)

const defaultRRFK = 60

// Fuse merges a dense and a sparse ranked list into a single relevance
// ordering and keeps the top n documents. Scores from the two runs live on
// incompatible scales, so each run is min-max normalized over the id union
// (documents missing from a run count as zero) and converted to ranks; the
// combined score of a document is the sum of 1/(rrfK+rank) over both runs.
// Ties keep first-seen order with the dense list enumerated first, which
// makes the result deterministic for identical inputs.
func Fuse(dense, sparse domain.RankedList, n int) domain.FusedContext {
	return FuseWithK(dense, sparse, n, defaultRRFK)
}

// FuseWithK is Fuse with an explicit rank smoothing constant.
func FuseWithK(dense, sparse domain.RankedList, n, rrfK int) domain.FusedContext {
	if rrfK <= 0 {
		rrfK = defaultRRFK
	}

	order := make([]string, 0, len(dense)+len(sparse))
	docs := make(map[string]domain.CandidateDocument, len(dense)+len(sparse))
	firstSeen := make(map[string]int, len(dense)+len(sparse))
	denseScores := make(map[string]float64, len(dense))
	sparseScores := make(map[string]float64, len(sparse))

	collect := func(list domain.RankedList, scores map[string]float64) {
		for _, doc := range list {
			if _, seen := docs[doc.ID]; !seen {
				docs[doc.ID] = doc
				firstSeen[doc.ID] = len(order)
				order = append(order, doc.ID)
			}
			if _, dup := scores[doc.ID]; !dup {
				scores[doc.ID] = doc.Score
			}
		}
	}
	collect(dense, denseScores)
	collect(sparse, sparseScores)

	if len(order) == 0 {
		return domain.FusedContext{Documents: []domain.CandidateDocument{}}
	}

	combined := make(map[string]float64, len(order))
	for _, run := range []map[string]float64{denseScores, sparseScores} {
		for id, rank := range rankRun(order, run, firstSeen) {
			combined[id] += 1.0 / float64(rrfK+rank)
		}
	}

	ids := make([]string, len(order))
	copy(ids, order)
	sort.SliceStable(ids, func(i, j int) bool {
		si, sj := combined[ids[i]], combined[ids[j]]
		if si != sj {
			return si > sj
		}
		return firstSeen[ids[i]] < firstSeen[ids[j]]
	})

	if n < 0 {
		n = 0
	}
	if n > len(ids) {
		n = len(ids)
	}
	ids = ids[:n]

	fused := make([]domain.CandidateDocument, 0, len(ids))
	for _, id := range ids {
		doc := docs[id]
		doc.Score = combined[id]
		fused = append(fused, doc)
	}

	return domain.FusedContext{
		Documents: fused,
		Context:   BuildContext(fused, "text"),
	}
}

// rankRun assigns 1-based ranks over the whole id union for a single run.
// Ids absent from the run carry a zero score and sink to the bottom; equal
// normalized scores keep first-seen order.
func rankRun(order []string, scores map[string]float64, firstSeen map[string]int) map[string]int {
	normalized := normalizeMinMax(order, scores)

	ids := make([]string, len(order))
	copy(ids, order)
	sort.SliceStable(ids, func(i, j int) bool {
		si, sj := normalized[ids[i]], normalized[ids[j]]
		if si != sj {
			return si > sj
		}
		return firstSeen[ids[i]] < firstSeen[ids[j]]
	})

	ranks := make(map[string]int, len(ids))
	for i, id := range ids {
		ranks[id] = i + 1
	}
	return ranks
}

func normalizeMinMax(order []string, scores map[string]float64) map[string]float64 {
	low, high := math.Inf(1), math.Inf(-1)
	for _, id := range order {
		score := scores[id]
		if score < low {
			low = score
		}
		if score > high {
			high = score
		}
	}

	out := make(map[string]float64, len(order))
	span := high - low
	for _, id := range order {
		if span <= 0 {
			out[id] = 0
			continue
		}
		out[id] = (scores[id] - low) / span
	}
	return out
}

// BuildContext concatenates the named payload fields of the documents in
// ranked order, one line per non-empty value. With no fields given it reads
// the "text" field used by the knowledge collections.
func BuildContext(docs []domain.CandidateDocument, fields ...string) string {
	if len(fields) == 0 {
		fields = []string{"text"}
	}

	lines := make([]string, 0, len(docs)*len(fields))
	for _, doc := range docs {
		for _, field := range fields {
			value, ok := doc.Payload[field]
			if !ok {
				continue
			}
			text := strings.TrimSpace(payloadString(value))
			if text == "" {
				continue
			}
			lines = append(lines, text)
		}
	}
	return strings.Join(lines, "\n")
}

func payloadString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
