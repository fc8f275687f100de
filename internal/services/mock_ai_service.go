package services

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"

	"quizengine/internal/models"
)

// MockAIService is a deterministic AI capability for tests and test-mode
// deployments. The same inputs always produce the same grade and hint, so
// test runs and local development are reproducible without a provider.
type MockAIService struct {
	// FailGrading forces GradeOpenAnswer to fail, for exercising the
	// grader's fallback-credit path
	FailGrading bool
	// FailHints forces GenerateHint to fail
	FailHints bool
}

// NewMockAIService creates a deterministic mock AI capability
func NewMockAIService() *MockAIService {
	return &MockAIService{}
}

// seededUnit maps a seed string and salt to a deterministic value in [0, 1)
func seededUnit(seed, salt string) float64 {
	h := fnv.New64a()
	h.Write([]byte(salt))
	h.Write([]byte(seed))
	return float64(h.Sum64()%10000) / 10000
}

// GradeOpenAnswer implements serviceinterfaces.AICapability with simple
// length-based scoring plus a bounded deterministic variation
func (m *MockAIService) GradeOpenAnswer(_ context.Context, req *models.OpenGradingRequest) (*models.OpenGradingResult, error) {
	if m.FailGrading {
		return nil, fmt.Errorf("mock grading failure")
	}

	seed := fmt.Sprintf("%s_%s_%s", req.QuestionText, req.ReferenceAnswer, req.StudentAnswer)
	answer := strings.TrimSpace(req.StudentAnswer)

	var fraction float64
	var feedback string
	switch {
	case answer == "":
		fraction = 0.0
		feedback = "No answer provided."
	case len(answer) < 10:
		fraction = 0.3
		feedback = "Answer is too brief. Provide more detail."
	case strings.Contains(strings.ToLower(answer), "wrong"),
		strings.Contains(strings.ToLower(answer), "incorrect"):
		fraction = 0.2
		feedback = "Answer contains incorrect information."
	default:
		base := float64(len(answer)) / 100
		if base > 0.8 {
			base = 0.8
		}
		variation := seededUnit(seed, "variation")*0.4 - 0.2
		fraction = clamp01(base + variation)

		switch {
		case fraction > 0.8:
			feedback = "Excellent answer with good understanding."
		case fraction > 0.6:
			feedback = "Good answer but could be more comprehensive."
		case fraction > 0.4:
			feedback = "Adequate answer but missing key points."
		default:
			feedback = "Weak answer. Review the topic and try again."
		}
	}

	confidence := 0.7 + seededUnit(seed, "confidence")*0.25
	return &models.OpenGradingResult{
		Fraction:   fraction,
		Feedback:   feedback,
		Confidence: &confidence,
	}, nil
}

// GenerateHint implements serviceinterfaces.AICapability by picking a hint
// template deterministically from the question's content
func (m *MockAIService) GenerateHint(_ context.Context, question *models.Question) (string, error) {
	if m.FailHints {
		return "", fmt.Errorf("mock hint failure")
	}

	topic := question.Topic
	if topic == "" {
		topic = "this topic"
	}

	templates := []string{
		fmt.Sprintf("Think about the fundamental concepts of %s.", topic),
		fmt.Sprintf("Consider how %s relates to the broader subject area.", topic),
		fmt.Sprintf("Review the key definitions and principles of %s.", topic),
	}
	switch question.Type {
	case models.MultipleChoice:
		templates = append(templates,
			"Try to eliminate obviously incorrect options first.",
			"Look for keywords in the question that might point to the answer.",
		)
	case models.TrueFalse:
		templates = append(templates,
			"Think about whether the statement is always true or if there are exceptions.",
		)
	case models.ShortAnswer, models.Essay:
		templates = append(templates,
			"Structure your answer with clear main points.",
			"Include specific examples or details to support your answer.",
		)
	}

	seed := fmt.Sprintf("%s_%s_%s_%s", question.Text, question.Type, question.Difficulty, topic)
	h := fnv.New64a()
	h.Write([]byte(seed))
	return templates[h.Sum64()%uint64(len(templates))], nil
}
