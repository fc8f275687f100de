// Package serviceinterfaces defines service interfaces for dependency injection and testing.
package serviceinterfaces

import (
	"context"

	"quizengine/internal/models"
)

// AICapability defines the external AI surface the engine consumes.
// Implementations include the OpenAI-compatible AIService and the
// deterministic MockAIService used in tests and test-mode deployments.
type AICapability interface {
	// GradeOpenAnswer grades an open-form answer against the question's
	// rubric, returning a credit fraction in [0, 1], free-text feedback, and
	// an optional confidence. May fail or time out; the caller applies the
	// fallback-credit policy.
	GradeOpenAnswer(ctx context.Context, req *models.OpenGradingRequest) (*models.OpenGradingResult, error)

	// GenerateHint produces a hint for the question. The hint must never
	// include the literal correct answer.
	GenerateHint(ctx context.Context, question *models.Question) (string, error)
}
