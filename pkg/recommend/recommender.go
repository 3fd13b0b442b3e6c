package recommend

import (
	"context"
	"strings"

	"github.com/openskills/openskills/pkg/apierrors"
	"github.com/openskills/openskills/pkg/catalog"
	"github.com/openskills/openskills/pkg/logger"
)

const (
	// InvalidPromptMessage is returned for empty or non-string prompts.
	InvalidPromptMessage = "Prompt is required and must be a non-empty string"
	// NoMatchMessage is reported when no skill scores above zero.
	NoMatchMessage = "No matching skill found for your prompt"
	// MatchMessage is reported alongside a recommended skill.
	MatchMessage = "Skill recommendation found"
)

// ContentLoader returns the descriptive document of a skill, if it has one.
type ContentLoader interface {
	LoadContent(ctx context.Context, id string) (string, bool)
}

// RecommendedSkill is the best match with its score and document.
type RecommendedSkill struct {
	catalog.Skill
	MatchScore float64 `json:"matchScore"`
	Content    *string `json:"content"`
}

// Recommendation is the result of a recommendation request. RecommendedSkill
// is nil when nothing matched.
type Recommendation struct {
	Message          string            `json:"message"`
	RecommendedSkill *RecommendedSkill `json:"recommendedSkill"`
}

// Recommender picks the most relevant catalog skill for a prompt.
type Recommender struct {
	repo    catalog.Repository
	content ContentLoader
}

// NewRecommender creates a Recommender over repo. content may be nil, in which
// case recommendations carry no document.
func NewRecommender(repo catalog.Repository, content ContentLoader) *Recommender {
	return &Recommender{
		repo:    repo,
		content: content,
	}
}

// Recommend returns the highest scoring skill for prompt.
func (r *Recommender) Recommend(ctx context.Context, prompt string) (*Recommendation, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, apierrors.Validation(InvalidPromptMessage)
	}

	matches := Rank(prompt, r.repo.All())
	if len(matches) == 0 {
		logger.G(ctx).WithField("prompt_tokens", len(Tokenize(prompt))).Debug("no skill matched prompt")
		return &Recommendation{Message: NoMatchMessage}, nil
	}

	best := matches[0]
	logger.G(ctx).WithFields(map[string]any{
		"skill_id":   best.Skill.ID,
		"score":      best.Score,
		"candidates": len(matches),
	}).Debug("recommended skill")

	recommended := &RecommendedSkill{
		Skill:      best.Skill,
		MatchScore: best.Score,
	}
	if r.content != nil {
		if content, ok := r.content.LoadContent(ctx, best.Skill.ID); ok {
			recommended.Content = &content
		}
	}

	return &Recommendation{
		Message:          MatchMessage,
		RecommendedSkill: recommended,
	}, nil
}
