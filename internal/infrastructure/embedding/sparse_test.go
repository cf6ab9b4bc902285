package embedding

import (
	"testing"
)

func TestSparseEncodeDeterministic(t *testing.T) {
	encoder := NewSparseEncoder()

	first := encoder.Encode("itchy red patch on the elbow")
	second := encoder.Encode("itchy red patch on the elbow")

	if len(first.Indices) == 0 {
		t.Fatal("expected non-empty sparse vector")
	}
	if len(first.Indices) != len(second.Indices) {
		t.Fatalf("expected identical encodings, got %d and %d terms", len(first.Indices), len(second.Indices))
	}
	for i := range first.Indices {
		if first.Indices[i] != second.Indices[i] || first.Values[i] != second.Values[i] {
			t.Fatalf("encoding differs at %d", i)
		}
	}
}

func TestSparseEncodeIndicesSortedAndAligned(t *testing.T) {
	vector := NewSparseEncoder().Encode("dermatitis treatment dermatitis")

	if len(vector.Indices) != len(vector.Values) {
		t.Fatalf("indices/values length mismatch: %d vs %d", len(vector.Indices), len(vector.Values))
	}
	for i := 1; i < len(vector.Indices); i++ {
		if vector.Indices[i-1] >= vector.Indices[i] {
			t.Fatalf("indices not strictly increasing at %d", i)
		}
	}
}

func TestSparseEncodeRepeatedTermSaturates(t *testing.T) {
	encoder := NewSparseEncoder()

	once := encoder.Encode("eczema")
	many := encoder.Encode("eczema eczema eczema eczema eczema")

	if len(once.Values) != 1 || len(many.Values) != 1 {
		t.Fatalf("expected single-term vectors, got %d and %d", len(once.Values), len(many.Values))
	}
	if many.Values[0] <= once.Values[0] {
		t.Fatalf("expected higher weight for repeated term, got %f <= %f", many.Values[0], once.Values[0])
	}
	if many.Values[0] >= bm25K+1.0 {
		t.Fatalf("expected weight saturation below %f, got %f", bm25K+1.0, many.Values[0])
	}
}

func TestSparseEncodeEmptyAndSymbolOnlyText(t *testing.T) {
	encoder := NewSparseEncoder()

	if !encoder.Encode("").Empty() {
		t.Fatal("expected empty vector for empty text")
	}
	if !encoder.Encode("!!! ??? ---").Empty() {
		t.Fatal("expected empty vector for symbol-only text")
	}
}

func TestSparseEncodeCaseInsensitive(t *testing.T) {
	encoder := NewSparseEncoder()

	upper := encoder.Encode("ECZEMA")
	lower := encoder.Encode("eczema")

	if len(upper.Indices) != 1 || len(lower.Indices) != 1 || upper.Indices[0] != lower.Indices[0] {
		t.Fatalf("expected case-insensitive hashing, got %v vs %v", upper.Indices, lower.Indices)
	}
}
