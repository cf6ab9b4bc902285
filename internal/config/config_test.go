package config

import "testing"

func TestLoadRetrievalDefaults(t *testing.T) {
	t.Setenv("HYBRID_CANDIDATES", "")
	t.Setenv("CONTEXT_TOP_N", "")
	t.Setenv("MEMORY_TOP_K", "")
	t.Setenv("MEMORY_RECALL_CANDIDATES", "")
	t.Setenv("KNOWLEDGE_BASE_INDEX", "")
	t.Setenv("MEMORY_COLLECTION_PREFIX", "")

	cfg := Load()
	if cfg.HybridCandidates != 10 {
		t.Fatalf("expected default hybrid candidates 10, got %d", cfg.HybridCandidates)
	}
	if cfg.ContextTopN != 2 {
		t.Fatalf("expected default context top n 2, got %d", cfg.ContextTopN)
	}
	if cfg.MemoryTopK != 5 {
		t.Fatalf("expected default memory top k 5, got %d", cfg.MemoryTopK)
	}
	if cfg.MemoryCandidates != 20 {
		t.Fatalf("expected default memory recall candidates 20, got %d", cfg.MemoryCandidates)
	}
	if cfg.KnowledgeBaseIndex != "dermatology" {
		t.Fatalf("expected default knowledge base index dermatology, got %q", cfg.KnowledgeBaseIndex)
	}
	if cfg.MemoryPrefix != "memory_" {
		t.Fatalf("expected default memory prefix memory_, got %q", cfg.MemoryPrefix)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("HYBRID_CANDIDATES", "25")
	t.Setenv("CONTEXT_TOP_N", "4")
	t.Setenv("GENERATION_TIMEOUT_SECONDS", "300")
	t.Setenv("BREAKER_ENABLED", "false")
	t.Setenv("BREAKER_FAILURE_RATIO", "0.75")

	cfg := Load()
	if cfg.HybridCandidates != 25 {
		t.Fatalf("expected hybrid candidates 25, got %d", cfg.HybridCandidates)
	}
	if cfg.ContextTopN != 4 {
		t.Fatalf("expected context top n 4, got %d", cfg.ContextTopN)
	}
	if cfg.GenerationSeconds != 300 {
		t.Fatalf("expected generation timeout 300, got %d", cfg.GenerationSeconds)
	}
	if cfg.BreakerEnabled {
		t.Fatal("expected breaker disabled")
	}
	if cfg.BreakerFailureRatio != 0.75 {
		t.Fatalf("expected breaker failure ratio 0.75, got %v", cfg.BreakerFailureRatio)
	}
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("HYBRID_CANDIDATES", "not-a-number")
	t.Setenv("BREAKER_FAILURE_RATIO", "half")

	cfg := Load()
	if cfg.HybridCandidates != 10 {
		t.Fatalf("expected fallback hybrid candidates 10, got %d", cfg.HybridCandidates)
	}
	if cfg.BreakerFailureRatio != 0.5 {
		t.Fatalf("expected fallback breaker failure ratio 0.5, got %v", cfg.BreakerFailureRatio)
	}
}
