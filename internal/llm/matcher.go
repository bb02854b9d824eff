package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonathan/cv-matcher/internal/logger"
	"github.com/jonathan/cv-matcher/internal/schemas"
	"github.com/jonathan/cv-matcher/internal/types"
	"go.uber.org/zap"
)

// ErrInvalidResponse is returned when the model's answer is not a usable verdict
var ErrInvalidResponse = errors.New("invalid match response")

var matchResultValidator = schemas.MustCompile("match_result", schemas.MatchResult)

// Matcher scores CVs against job listings with a language model.
type Matcher struct {
	client Client
	tier   ModelTier
	logger *zap.Logger
}

// NewMatcher creates a Matcher using the standard tier.
func NewMatcher(client Client, log *zap.Logger) *Matcher {
	return &Matcher{
		client: client,
		tier:   TierStandard,
		logger: logger.OrNop(log),
	}
}

// WithTier returns a copy of m using tier
func (m *Matcher) WithTier(tier ModelTier) *Matcher {
	out := *m
	out.tier = tier
	return &out
}

// Match compares one redacted profile with a listing.
func (m *Matcher) Match(ctx context.Context, profile types.ExtractedProfile, listing types.JobListing) (*types.MatchResult, error) {
	prompt, err := BuildMatchPrompt(profile, listing)
	if err != nil {
		return nil, err
	}

	log := m.logger.With(zap.String(logger.FieldFile, profile.Title), zap.String(logger.FieldModel, m.client.GetModel(m.tier)))
	start := time.Now()

	raw, err := m.client.GenerateJSON(ctx, prompt, m.tier)
	if err != nil {
		return nil, fmt.Errorf("match request failed: %w", err)
	}

	result, err := ParseMatchResult(raw)
	if err != nil {
		log.Warn("model returned an unusable verdict", zap.Error(err), zap.String("response", logger.Truncate(raw, 300)))
		return nil, err
	}

	log.Info("matched cv",
		zap.Duration("duration", time.Since(start)),
		zap.String("percentage_match", string(result.PercentageMatch)),
		zap.Int("skills", len(result.Skills)),
	)
	return result, nil
}

// ParseMatchResult strips code fences from a model answer, validates it
// against the match result schema and decodes it. Match labels are
// upper-cased; unknown labels become UNSURE.
func ParseMatchResult(raw string) (*types.MatchResult, error) {
	cleaned := CleanJSONBlock(raw)
	if cleaned == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidResponse)
	}

	if err := matchResultValidator.Validate(cleaned); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	var result types.MatchResult
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	if result.Skills == nil {
		result.Skills = []types.SkillMatch{}
	}
	for i := range result.Skills {
		s := &result.Skills[i]
		s.Skill = strings.TrimSpace(s.Skill)
		s.MatchLabel = normalizeLabel(s.MatchLabel)
	}

	return &result, nil
}

func normalizeLabel(label string) string {
	switch l := strings.ToUpper(strings.TrimSpace(label)); l {
	case types.MatchLabelMatch, types.MatchLabelPartial, types.MatchLabelMissing, types.MatchLabelUnsure:
		return l
	default:
		return types.MatchLabelUnsure
	}
}
