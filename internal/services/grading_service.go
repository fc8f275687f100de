// Package services implements the evaluation engine: answer grading,
// submission aggregation, hint tracking, and the adaptive difficulty policy.
package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"quizengine/internal/config"
	"quizengine/internal/models"
	"quizengine/internal/observability"
	"quizengine/internal/serviceinterfaces"
	contextutils "quizengine/internal/utils"
)

// GradingService grades a single submitted answer against its question.
// Closed-form questions are graded by exact comparison; open-form questions
// are delegated to the AI capability with a fallback-credit policy when the
// capability fails or times out.
type GradingService struct {
	cfg      *config.Config
	ai       serviceinterfaces.AICapability
	logger   *observability.Logger
	validate *validator.Validate
}

// NewGradingService creates a new grading service
func NewGradingService(cfg *config.Config, ai serviceinterfaces.AICapability, logger *observability.Logger) *GradingService {
	return &GradingService{
		cfg:      cfg,
		ai:       ai,
		logger:   logger,
		validate: validator.New(),
	}
}

// Grade grades one submitted answer. The returned GradedAnswer is always
// usable for aggregation; a degraded result (fallback credit after an AI
// failure) is reported via the Degraded flag, not an error.
func (s *GradingService) Grade(ctx context.Context, question *models.Question, answer *models.SubmittedAnswer) (result0 *models.GradedAnswer, err error) {
	ctx, span := observability.TraceGradingFunction(ctx, "grade",
		observability.AttributeQuestionID(question.ID),
		observability.AttributeQuestionType(question.Type),
	)
	defer observability.FinishSpan(span, &err)

	if err := s.validateAnswer(question, answer); err != nil {
		return nil, err
	}

	maxPoints := question.MaxPoints()

	var graded *models.GradedAnswer
	switch {
	case question.Type.IsClosedForm():
		graded = s.gradeClosedForm(question, answer, maxPoints)
	case question.Type.IsValid():
		graded = s.gradeOpenForm(ctx, question, answer, maxPoints)
	default:
		return nil, contextutils.NewAppError(
			contextutils.ErrorCodeUnknownQuestionType,
			contextutils.SeverityError,
			fmt.Sprintf("unknown question type: %s", question.Type),
			fmt.Sprintf("question_id: %d", question.ID),
		)
	}

	s.applyHintPenalty(graded, answer.HintsUsed, maxPoints)

	s.logger.Debug(ctx, "Graded answer", map[string]interface{}{
		"question_id":   question.ID,
		"question_type": string(question.Type),
		"points_earned": graded.PointsEarned,
		"max_points":    graded.MaxPoints,
		"degraded":      graded.Degraded,
		"hints_used":    answer.HintsUsed,
	})

	return graded, nil
}

// GradeSubmission grades a full answer set against the quiz, preserving
// answer order. Fails fast on answers referencing unknown questions.
func (s *GradingService) GradeSubmission(ctx context.Context, quiz *models.Quiz, answers []models.SubmittedAnswer) (result0 []models.GradedAnswer, err error) {
	ctx, span := observability.TraceGradingFunction(ctx, "grade_submission",
		observability.AttributeQuizID(quiz.ID),
	)
	defer observability.FinishSpan(span, &err)

	byID := quiz.QuestionsByID()
	graded := make([]models.GradedAnswer, 0, len(answers))
	for i := range answers {
		question, ok := byID[answers[i].QuestionID]
		if !ok {
			return nil, contextutils.NewAppError(
				contextutils.ErrorCodeQuestionNotFound,
				contextutils.SeverityWarn,
				fmt.Sprintf("question %d not found in quiz %d", answers[i].QuestionID, quiz.ID),
				"",
			)
		}
		one, err := s.Grade(ctx, question, &answers[i])
		if err != nil {
			return nil, err
		}
		graded = append(graded, *one)
	}
	return graded, nil
}

func (s *GradingService) validateAnswer(question *models.Question, answer *models.SubmittedAnswer) error {
	if err := s.validate.Struct(answer); err != nil {
		return contextutils.NewAppErrorWithCause(
			contextutils.ErrorCodeValidationFailed,
			contextutils.SeverityWarn,
			"invalid submitted answer",
			err.Error(),
			err,
		)
	}
	if answer.QuestionID != question.ID {
		return contextutils.NewAppError(
			contextutils.ErrorCodeValidationFailed,
			contextutils.SeverityWarn,
			"answer does not belong to question",
			fmt.Sprintf("answer question_id %d, question id %d", answer.QuestionID, question.ID),
		)
	}
	if question.Type.IsClosedForm() && answer.SelectedOption == nil {
		return contextutils.NewAppError(
			contextutils.ErrorCodeValidationFailed,
			contextutils.SeverityWarn,
			"closed-form answer requires selected_option",
			fmt.Sprintf("question_id: %d", question.ID),
		)
	}
	if question.Type.IsValid() && !question.Type.IsClosedForm() && answer.FreeText == nil {
		return contextutils.NewAppError(
			contextutils.ErrorCodeValidationFailed,
			contextutils.SeverityWarn,
			"open-form answer requires free_text",
			fmt.Sprintf("question_id: %d", question.ID),
		)
	}
	return nil
}

// normalizeResponse canonicalizes an answer string for comparison. True/false
// responses fold case so "True" and "true" match.
func normalizeResponse(qType models.QuestionType, response string) string {
	normalized := strings.TrimSpace(response)
	if qType == models.TrueFalse {
		normalized = strings.ToLower(normalized)
	}
	return normalized
}

func (s *GradingService) gradeClosedForm(question *models.Question, answer *models.SubmittedAnswer, maxPoints float64) *models.GradedAnswer {
	selected := normalizeResponse(question.Type, *answer.SelectedOption)
	expected := normalizeResponse(question.Type, question.CorrectAnswer)
	correct := selected == expected

	points := 0.0
	if correct {
		points = maxPoints
	}
	return &models.GradedAnswer{
		QuestionID:   question.ID,
		IsCorrect:    &correct,
		PointsEarned: points,
		MaxPoints:    maxPoints,
		Confidence:   1.0,
	}
}

func (s *GradingService) gradeOpenForm(ctx context.Context, question *models.Question, answer *models.SubmittedAnswer, maxPoints float64) *models.GradedAnswer {
	text := *answer.FreeText

	if strings.TrimSpace(text) == "" {
		correct := false
		return &models.GradedAnswer{
			QuestionID: question.ID,
			IsCorrect:  &correct,
			MaxPoints:  maxPoints,
			Feedback:   "No answer provided.",
			Confidence: 1.0,
		}
	}

	// A reference answer enables an exact-match short circuit that skips the
	// external capability entirely
	if question.CorrectAnswer != "" &&
		strings.EqualFold(strings.TrimSpace(text), strings.TrimSpace(question.CorrectAnswer)) {
		correct := true
		return &models.GradedAnswer{
			QuestionID:   question.ID,
			IsCorrect:    &correct,
			PointsEarned: maxPoints,
			MaxPoints:    maxPoints,
			Confidence:   1.0,
		}
	}

	gradeCtx, cancel := context.WithTimeout(ctx, s.cfg.Engine.GradingTimeout)
	defer cancel()

	result, err := s.ai.GradeOpenAnswer(gradeCtx, &models.OpenGradingRequest{
		QuestionText:    question.Text,
		Rubric:          question.Rubric,
		ReferenceAnswer: question.CorrectAnswer,
		StudentAnswer:   text,
		MaxPoints:       maxPoints,
	})
	if err != nil {
		s.logger.Warn(ctx, "AI grading failed, applying fallback credit", map[string]interface{}{
			"question_id": question.ID,
			"error":       err.Error(),
		})
		return &models.GradedAnswer{
			QuestionID:   question.ID,
			PointsEarned: s.cfg.Engine.FallbackCreditFraction * maxPoints,
			MaxPoints:    maxPoints,
			Feedback:     "Your answer was recorded but could not be fully graded. Partial credit has been applied.",
			Confidence:   s.cfg.Engine.DefaultAIConfidence,
			Degraded:     true,
		}
	}

	fraction := clamp01(result.Fraction)
	confidence := s.cfg.Engine.DefaultAIConfidence
	if result.Confidence != nil {
		confidence = clamp01(*result.Confidence)
	}

	return &models.GradedAnswer{
		QuestionID:   question.ID,
		PointsEarned: fraction * maxPoints,
		MaxPoints:    maxPoints,
		Feedback:     result.Feedback,
		Confidence:   confidence,
	}
}

// applyHintPenalty deducts a fixed fraction of max points per hint used,
// never dropping points below zero
func (s *GradingService) applyHintPenalty(graded *models.GradedAnswer, hintsUsed int, maxPoints float64) {
	if hintsUsed <= 0 || graded.PointsEarned <= 0 {
		return
	}
	penalty := float64(hintsUsed) * s.cfg.Engine.HintPenaltyPerHint * maxPoints
	if penalty > graded.PointsEarned {
		penalty = graded.PointsEarned
	}
	graded.PointsEarned -= penalty
	graded.HintPenaltyApplied = penalty / maxPoints
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
