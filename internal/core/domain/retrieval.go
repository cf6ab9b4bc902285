package domain

// CandidateDocument is a single scored point returned by one vector-store query.
type CandidateDocument struct {
	ID      string         `json:"id"`
	Score   float64        `json:"score"`
	Payload map[string]any `json:"payload,omitempty"`
}

// RankedList is the ordered output of one retrieval method (dense or sparse).
type RankedList []CandidateDocument

// FusedContext is the immutable result of fusing two ranked lists: the
// documents in final ranking order plus the newline-joined context string
// consumed by prompt building.
type FusedContext struct {
	Documents []CandidateDocument `json:"documents"`
	Context   string              `json:"context"`
}

// SparseVector holds lexical (index, value) pairs for a sparse vector query.
type SparseVector struct {
	Indices []uint32  `json:"indices"`
	Values  []float32 `json:"values"`
}

func (v SparseVector) Empty() bool {
	return len(v.Indices) == 0
}

// VectorPoint is a point to upsert into a vector-store collection.
type VectorPoint struct {
	ID      string
	Dense   []float32
	Sparse  SparseVector
	Payload map[string]any
}
