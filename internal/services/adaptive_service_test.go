package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quizengine/internal/config"
	"quizengine/internal/models"
	"quizengine/internal/observability"
	"quizengine/internal/session"
	contextutils "quizengine/internal/utils"
)

func newAdaptiveService() *AdaptiveService {
	return NewAdaptiveService(config.NewDefaultConfig(), session.NewMemoryStore(), observability.NewLogger(nil))
}

// adaptiveQuiz has two questions per difficulty so stepping has somewhere to go
func adaptiveQuiz() *models.Quiz {
	return &models.Quiz{
		ID:       1,
		Adaptive: true,
		Questions: []models.Question{
			{ID: 1, Difficulty: models.Easy, Order: 0},
			{ID: 2, Difficulty: models.Easy, Order: 1},
			{ID: 3, Difficulty: models.Medium, Order: 2},
			{ID: 4, Difficulty: models.Medium, Order: 3},
			{ID: 5, Difficulty: models.Hard, Order: 4},
			{ID: 6, Difficulty: models.Hard, Order: 5},
		},
	}
}

func TestAdaptiveService_StartSession(t *testing.T) {
	svc := newAdaptiveService()
	ctx := context.Background()
	quiz := adaptiveQuiz()

	decision, err := svc.StartSession(ctx, 1, quiz)
	require.NoError(t, err)
	assert.Equal(t, models.Medium, decision.CurrentDifficulty)
	require.NotNil(t, decision.NextQuestionID)
	assert.Equal(t, 3, *decision.NextQuestionID)
	assert.False(t, decision.IsComplete)
	assert.Equal(t, models.Progress{Answered: 0, Total: 6}, decision.Progress)
}

func TestAdaptiveService_StartSession_BaseDifficulty(t *testing.T) {
	svc := newAdaptiveService()
	quiz := adaptiveQuiz()
	quiz.BaseDifficulty = models.Hard

	decision, err := svc.StartSession(context.Background(), 1, quiz)
	require.NoError(t, err)
	assert.Equal(t, models.Hard, decision.CurrentDifficulty)
	assert.Equal(t, 5, *decision.NextQuestionID)
}

func TestAdaptiveService_StartSession_NonAdaptiveQuiz(t *testing.T) {
	svc := newAdaptiveService()
	quiz := adaptiveQuiz()
	quiz.Adaptive = false

	_, err := svc.StartSession(context.Background(), 1, quiz)
	assert.ErrorIs(t, err, contextutils.ErrAdaptiveNotSupported)
}

func TestAdaptiveService_RecordAnswer_StepsUpOnSuccess(t *testing.T) {
	svc := newAdaptiveService()
	ctx := context.Background()
	quiz := adaptiveQuiz()

	_, err := svc.StartSession(ctx, 1, quiz)
	require.NoError(t, err)

	// One correct answer puts window accuracy at 1.0, stepping medium to hard
	decision, err := svc.RecordAnswer(ctx, 1, quiz, 3, true)
	require.NoError(t, err)
	assert.Equal(t, models.Hard, decision.CurrentDifficulty)
	assert.Equal(t, 5, *decision.NextQuestionID)

	// Further successes keep it clamped at hard
	decision, err = svc.RecordAnswer(ctx, 1, quiz, 5, true)
	require.NoError(t, err)
	assert.Equal(t, models.Hard, decision.CurrentDifficulty)
	assert.Equal(t, 6, *decision.NextQuestionID)
}

func TestAdaptiveService_RecordAnswer_StepsDownOnFailure(t *testing.T) {
	svc := newAdaptiveService()
	ctx := context.Background()
	quiz := adaptiveQuiz()

	_, err := svc.StartSession(ctx, 1, quiz)
	require.NoError(t, err)

	decision, err := svc.RecordAnswer(ctx, 1, quiz, 3, false)
	require.NoError(t, err)
	assert.Equal(t, models.Easy, decision.CurrentDifficulty)
	assert.Equal(t, 1, *decision.NextQuestionID)

	// Clamped at easy
	decision, err = svc.RecordAnswer(ctx, 1, quiz, 1, false)
	require.NoError(t, err)
	assert.Equal(t, models.Easy, decision.CurrentDifficulty)
	assert.Equal(t, 2, *decision.NextQuestionID)
}

func TestAdaptiveService_RecordAnswer_MixedWindowHolds(t *testing.T) {
	svc := newAdaptiveService()
	ctx := context.Background()
	quiz := adaptiveQuiz()

	_, err := svc.StartSession(ctx, 1, quiz)
	require.NoError(t, err)

	// correct: window [t], accuracy 1.0, medium -> hard
	decision, err := svc.RecordAnswer(ctx, 1, quiz, 3, true)
	require.NoError(t, err)
	assert.Equal(t, models.Hard, decision.CurrentDifficulty)

	// wrong: window [t f], accuracy 0.5, holds
	decision, err = svc.RecordAnswer(ctx, 1, quiz, 5, false)
	require.NoError(t, err)
	assert.Equal(t, models.Hard, decision.CurrentDifficulty)

	// correct: window [t f t], accuracy 0.67, hard clamps
	decision, err = svc.RecordAnswer(ctx, 1, quiz, 6, true)
	require.NoError(t, err)
	assert.Equal(t, models.Hard, decision.CurrentDifficulty)

	// wrong twice: window slides through [f t f] and [t f f], accuracy 1/3
	// sits just above the step-down threshold, so difficulty holds
	decision, err = svc.RecordAnswer(ctx, 1, quiz, 4, false)
	require.NoError(t, err)
	assert.Equal(t, models.Hard, decision.CurrentDifficulty)

	decision, err = svc.RecordAnswer(ctx, 1, quiz, 2, false)
	require.NoError(t, err)
	assert.Equal(t, models.Hard, decision.CurrentDifficulty)

	// third straight wrong: window [f f f], accuracy 0, steps down
	decision, err = svc.RecordAnswer(ctx, 1, quiz, 1, false)
	require.NoError(t, err)
	assert.Equal(t, models.Medium, decision.CurrentDifficulty)
	assert.True(t, decision.IsComplete)
}

func TestAdaptiveService_RecordAnswer_DuplicateRejected(t *testing.T) {
	svc := newAdaptiveService()
	ctx := context.Background()
	quiz := adaptiveQuiz()

	_, err := svc.StartSession(ctx, 1, quiz)
	require.NoError(t, err)

	_, err = svc.RecordAnswer(ctx, 1, quiz, 3, true)
	require.NoError(t, err)

	_, err = svc.RecordAnswer(ctx, 1, quiz, 3, false)
	assert.ErrorIs(t, err, contextutils.ErrValidationFailed)
}

func TestAdaptiveService_RecordAnswer_UnknownQuestion(t *testing.T) {
	svc := newAdaptiveService()
	ctx := context.Background()
	quiz := adaptiveQuiz()

	_, err := svc.StartSession(ctx, 1, quiz)
	require.NoError(t, err)

	_, err = svc.RecordAnswer(ctx, 1, quiz, 99, true)
	assert.ErrorIs(t, err, contextutils.ErrQuestionNotFound)
}

func TestAdaptiveService_RecordAnswer_WithoutSession(t *testing.T) {
	svc := newAdaptiveService()

	_, err := svc.RecordAnswer(context.Background(), 1, adaptiveQuiz(), 3, true)
	assert.ErrorIs(t, err, contextutils.ErrSessionNotFound)
}

func TestAdaptiveService_FallbackAcrossDifficulties(t *testing.T) {
	svc := newAdaptiveService()
	ctx := context.Background()
	// Only hard questions besides the medium one; medium exhausts immediately
	quiz := &models.Quiz{
		ID:       2,
		Adaptive: true,
		Questions: []models.Question{
			{ID: 1, Difficulty: models.Medium, Order: 0},
			{ID: 2, Difficulty: models.Hard, Order: 1},
			{ID: 3, Difficulty: models.Hard, Order: 2},
		},
	}

	_, err := svc.StartSession(ctx, 1, quiz)
	require.NoError(t, err)

	// Wrong answer steps medium down to easy; no easy or medium questions
	// remain, so the easier-first fallback walks to hard
	decision, err := svc.RecordAnswer(ctx, 1, quiz, 1, false)
	require.NoError(t, err)
	assert.Equal(t, models.Easy, decision.CurrentDifficulty)
	require.NotNil(t, decision.NextQuestionID)
	assert.Equal(t, 2, *decision.NextQuestionID)
}

func TestAdaptiveService_TieBreakOnOrderThenID(t *testing.T) {
	svc := newAdaptiveService()
	ctx := context.Background()
	quiz := &models.Quiz{
		ID:       3,
		Adaptive: true,
		Questions: []models.Question{
			{ID: 9, Difficulty: models.Medium, Order: 1},
			{ID: 4, Difficulty: models.Medium, Order: 1},
			{ID: 7, Difficulty: models.Medium, Order: 0},
		},
	}

	decision, err := svc.StartSession(ctx, 1, quiz)
	require.NoError(t, err)
	// Lowest order wins
	assert.Equal(t, 7, *decision.NextQuestionID)

	decision, err = svc.RecordAnswer(ctx, 1, quiz, 7, false)
	require.NoError(t, err)
	// Equal order falls back to lowest ID
	assert.Equal(t, 4, *decision.NextQuestionID)
}

func TestAdaptiveService_Completion(t *testing.T) {
	svc := newAdaptiveService()
	ctx := context.Background()
	quiz := &models.Quiz{
		ID:       4,
		Adaptive: true,
		Questions: []models.Question{
			{ID: 1, Difficulty: models.Medium, Order: 0},
			{ID: 2, Difficulty: models.Medium, Order: 1},
		},
	}

	_, err := svc.StartSession(ctx, 1, quiz)
	require.NoError(t, err)

	decision, err := svc.RecordAnswer(ctx, 1, quiz, 1, true)
	require.NoError(t, err)
	assert.False(t, decision.IsComplete)

	decision, err = svc.RecordAnswer(ctx, 1, quiz, 2, true)
	require.NoError(t, err)
	assert.True(t, decision.IsComplete)
	assert.Nil(t, decision.NextQuestionID)
	assert.Equal(t, models.Progress{Answered: 2, Total: 2}, decision.Progress)

	// NextQuestion keeps reporting completion
	decision, err = svc.NextQuestion(ctx, 1, quiz)
	require.NoError(t, err)
	assert.True(t, decision.IsComplete)
}

func TestAdaptiveService_NextQuestionDoesNotConsumeSignals(t *testing.T) {
	svc := newAdaptiveService()
	ctx := context.Background()
	quiz := adaptiveQuiz()

	_, err := svc.StartSession(ctx, 1, quiz)
	require.NoError(t, err)

	first, err := svc.NextQuestion(ctx, 1, quiz)
	require.NoError(t, err)
	second, err := svc.NextQuestion(ctx, 1, quiz)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestAdaptiveService_EndSession(t *testing.T) {
	svc := newAdaptiveService()
	ctx := context.Background()
	quiz := adaptiveQuiz()

	_, err := svc.StartSession(ctx, 1, quiz)
	require.NoError(t, err)
	require.NoError(t, svc.EndSession(ctx, 1, quiz.ID))

	_, err = svc.NextQuestion(ctx, 1, quiz)
	assert.ErrorIs(t, err, contextutils.ErrSessionNotFound)
}
