package services

import (
	"context"
	"fmt"
	"strings"

	"quizengine/internal/config"
	"quizengine/internal/models"
	"quizengine/internal/observability"
	"quizengine/internal/serviceinterfaces"
	"quizengine/internal/session"
	contextutils "quizengine/internal/utils"
)

// genericHint is returned when the AI capability yields nothing usable and
// the question carries no static hint text
const genericHint = "Focus on what the question is really asking and rule out the answers that clearly do not fit."

// HintService tracks hint usage per (user, question) and produces hint text.
// Usage counting is the source of truth for the grader's hint penalty; grants
// past the configured limit are rejected, never silently capped.
type HintService struct {
	cfg    *config.Config
	ai     serviceinterfaces.AICapability
	usage  session.HintUsageStore
	logger *observability.Logger
}

// NewHintService creates a new hint service
func NewHintService(cfg *config.Config, ai serviceinterfaces.AICapability, usage session.HintUsageStore, logger *observability.Logger) *HintService {
	return &HintService{cfg: cfg, ai: ai, usage: usage, logger: logger}
}

// RequestHint grants and returns one hint for the question, or fails with a
// hint-limit error once the per-question cap is reached. The grant is counted
// even when hint generation falls back to static text; the learner still
// received help.
func (s *HintService) RequestHint(ctx context.Context, userID int, question *models.Question) (result0 *models.HintGrant, err error) {
	ctx, span := observability.TraceHintFunction(ctx, "request_hint",
		observability.AttributeUserID(userID),
		observability.AttributeQuestionID(question.ID),
	)
	defer observability.FinishSpan(span, &err)

	max := s.cfg.Engine.MaxHintsPerQuestion
	count, granted, err := s.usage.Increment(ctx, userID, question.ID, max)
	if err != nil {
		return nil, err
	}
	if !granted {
		return nil, contextutils.NewAppError(
			contextutils.ErrorCodeHintLimitExceeded,
			contextutils.SeverityWarn,
			fmt.Sprintf("hint limit of %d reached for this question", max),
			fmt.Sprintf("user_id: %d, question_id: %d", userID, question.ID),
		)
	}

	hint := s.generateHint(ctx, question)

	s.logger.Info(ctx, "Hint granted", map[string]interface{}{
		"user_id":     userID,
		"question_id": question.ID,
		"usage_count": count,
		"remaining":   max - count,
	})

	return &models.HintGrant{
		Hint:       hint,
		UsageCount: count,
		Remaining:  max - count,
	}, nil
}

// Usage returns how many hints the user has consumed for the question
func (s *HintService) Usage(ctx context.Context, userID, questionID int) (result0 int, err error) {
	ctx, span := observability.TraceHintFunction(ctx, "usage",
		observability.AttributeUserID(userID),
		observability.AttributeQuestionID(questionID),
	)
	defer observability.FinishSpan(span, &err)

	return s.usage.Usage(ctx, userID, questionID)
}

// Reset clears the user's hint counter for the question. Dev and test use only.
func (s *HintService) Reset(ctx context.Context, userID, questionID int) (err error) {
	ctx, span := observability.TraceHintFunction(ctx, "reset",
		observability.AttributeUserID(userID),
		observability.AttributeQuestionID(questionID),
	)
	defer observability.FinishSpan(span, &err)

	return s.usage.Reset(ctx, userID, questionID)
}

// generateHint asks the AI capability for a hint and falls back to the
// question's static hint text, then to a generic hint. AI failures are never
// surfaced to the caller.
func (s *HintService) generateHint(ctx context.Context, question *models.Question) string {
	if s.ai != nil {
		hintCtx, cancel := context.WithTimeout(ctx, config.AIHintTimeout)
		defer cancel()

		hint, err := s.ai.GenerateHint(hintCtx, question)
		if err == nil {
			hint = strings.TrimSpace(hint)
			if hint != "" && !leaksAnswer(hint, question.CorrectAnswer) {
				return hint
			}
		} else {
			s.logger.Warn(ctx, "AI hint generation failed, using fallback", map[string]interface{}{
				"question_id": question.ID,
				"error":       err.Error(),
			})
		}
	}

	if question.HintText != "" && !leaksAnswer(question.HintText, question.CorrectAnswer) {
		return question.HintText
	}
	return genericHint
}

// leaksAnswer reports whether the hint contains the correct answer verbatim,
// ignoring case and surrounding whitespace
func leaksAnswer(hint, correctAnswer string) bool {
	answer := strings.TrimSpace(correctAnswer)
	if answer == "" {
		return false
	}
	return strings.Contains(strings.ToLower(hint), strings.ToLower(answer))
}
