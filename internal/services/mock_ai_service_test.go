package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quizengine/internal/models"
)

func TestMockAIService_GradeOpenAnswer_Deterministic(t *testing.T) {
	mock := NewMockAIService()
	req := &models.OpenGradingRequest{
		QuestionText:  "Explain gravity.",
		StudentAnswer: "Gravity is the force that attracts masses toward each other.",
		MaxPoints:     2,
	}

	first, err := mock.GradeOpenAnswer(context.Background(), req)
	require.NoError(t, err)
	second, err := mock.GradeOpenAnswer(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestMockAIService_GradeOpenAnswer_Tiers(t *testing.T) {
	mock := NewMockAIService()

	tests := []struct {
		name         string
		answer       string
		wantFraction float64
		wantFeedback string
	}{
		{name: "empty answer", answer: "", wantFraction: 0, wantFeedback: "No answer provided."},
		{name: "whitespace only", answer: "   ", wantFraction: 0, wantFeedback: "No answer provided."},
		{name: "too brief", answer: "short", wantFraction: 0.3, wantFeedback: "Answer is too brief. Provide more detail."},
		{name: "self-declared wrong", answer: "this is probably wrong but here goes", wantFraction: 0.2, wantFeedback: "Answer contains incorrect information."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := mock.GradeOpenAnswer(context.Background(), &models.OpenGradingRequest{
				QuestionText:  "Explain gravity.",
				StudentAnswer: tt.answer,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.wantFraction, result.Fraction)
			assert.Equal(t, tt.wantFeedback, result.Feedback)
		})
	}
}

func TestMockAIService_GradeOpenAnswer_SubstantiveAnswerInRange(t *testing.T) {
	mock := NewMockAIService()

	result, err := mock.GradeOpenAnswer(context.Background(), &models.OpenGradingRequest{
		QuestionText:  "Explain gravity.",
		StudentAnswer: "Gravity is the attraction between masses, proportional to their product and inversely proportional to distance squared.",
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, result.Fraction, 0.0)
	assert.LessOrEqual(t, result.Fraction, 1.0)
	assert.NotEmpty(t, result.Feedback)
	require.NotNil(t, result.Confidence)
	assert.GreaterOrEqual(t, *result.Confidence, 0.7)
	assert.LessOrEqual(t, *result.Confidence, 0.95)
}

func TestMockAIService_GradeOpenAnswer_Failure(t *testing.T) {
	mock := &MockAIService{FailGrading: true}
	_, err := mock.GradeOpenAnswer(context.Background(), &models.OpenGradingRequest{StudentAnswer: "anything"})
	assert.Error(t, err)
}

func TestMockAIService_GenerateHint(t *testing.T) {
	mock := NewMockAIService()
	question := &models.Question{
		ID:            1,
		Type:          models.MultipleChoice,
		Text:          "What is the capital of France?",
		Topic:         "geography",
		CorrectAnswer: "Paris",
	}

	first, err := mock.GenerateHint(context.Background(), question)
	require.NoError(t, err)
	second, err := mock.GenerateHint(context.Background(), question)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.NotEmpty(t, first)
	assert.False(t, strings.Contains(strings.ToLower(first), "paris"))
}

func TestMockAIService_GenerateHint_Failure(t *testing.T) {
	mock := &MockAIService{FailHints: true}
	_, err := mock.GenerateHint(context.Background(), &models.Question{ID: 1})
	assert.Error(t, err)
}
