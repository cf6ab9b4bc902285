package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/rueidis"

	"github.com/medassist/chat-backend/internal/core/domain"
)

const keyPrefix = "prompt:"

// Store resolves prompt profiles from Redis with compiled-in defaults as
// fallback. Operators can tune instructions, candidate labels and sampling
// parameters at runtime by writing JSON under prompt:<role>; a missing or
// malformed value degrades to the default instead of failing the request.
type Store struct {
	client rueidis.Client
	logger *slog.Logger
}

func NewStore(client rueidis.Client, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{client: client, logger: logger}
}

func (s *Store) Profile(ctx context.Context, role string) (domain.PromptProfile, error) {
	fallback, hasDefault := defaultProfiles[role]

	if s.client != nil {
		raw, err := s.client.Do(ctx, s.client.B().Get().Key(keyPrefix+role).Build()).ToString()
		switch {
		case err == nil:
			profile, parseErr := parseProfile([]byte(raw), fallback)
			if parseErr != nil {
				s.logger.Warn("prompt_profile_malformed", "role", role, "error", parseErr)
			} else {
				return profile, nil
			}
		case !rueidis.IsRedisNil(err):
			s.logger.Warn("prompt_profile_fetch_failed", "role", role, "error", err)
		}
	}

	if !hasDefault {
		return domain.PromptProfile{}, fmt.Errorf("unknown prompt role %q", role)
	}
	return fallback, nil
}

// parseProfile decodes a stored profile, filling unset fields from the
// default so operators can override just the instruction.
func parseProfile(raw []byte, fallback domain.PromptProfile) (domain.PromptProfile, error) {
	var profile domain.PromptProfile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return domain.PromptProfile{}, fmt.Errorf("decode prompt profile: %w", err)
	}

	if profile.Instruction == "" {
		profile.Instruction = fallback.Instruction
	}
	if len(profile.Fields) == 0 {
		profile.Fields = fallback.Fields
	}
	if profile.MaxTokens <= 0 {
		profile.MaxTokens = fallback.MaxTokens
	}
	if profile.Temperature <= 0 {
		profile.Temperature = fallback.Temperature
	}
	return profile, nil
}
