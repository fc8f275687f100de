package services

import (
	"context"
	"fmt"
	"sort"

	"quizengine/internal/config"
	"quizengine/internal/models"
	"quizengine/internal/observability"
	contextutils "quizengine/internal/utils"
)

// EvaluationService aggregates graded answers into a submission-level report:
// totals, per-dimension score breakdowns, a qualitative performance level, and
// deterministic strengths, weaknesses, and suggestions. Evaluating the same
// graded answers twice yields byte-identical output.
type EvaluationService struct {
	cfg    *config.Config
	logger *observability.Logger
}

// NewEvaluationService creates a new evaluation service
func NewEvaluationService(cfg *config.Config, logger *observability.Logger) *EvaluationService {
	return &EvaluationService{cfg: cfg, logger: logger}
}

// dimensionTotals accumulates earned/max sums for one score dimension value
type dimensionTotals struct {
	earned float64
	max    float64
}

func (d dimensionTotals) percentage() float64 {
	if d.max <= 0 {
		return 0
	}
	return models.RoundPercentage(100 * d.earned / d.max)
}

// Evaluate builds the submission report for graded answers against their
// quiz. Every graded answer must reference a question in the quiz.
func (s *EvaluationService) Evaluate(ctx context.Context, quiz *models.Quiz, graded []models.GradedAnswer) (result0 *models.SubmissionEvaluation, err error) {
	ctx, span := observability.TraceEvaluationFunction(ctx, "evaluate",
		observability.AttributeQuizID(quiz.ID),
	)
	defer observability.FinishSpan(span, &err)

	byID := quiz.QuestionsByID()

	var totalEarned, totalMax float64
	correctCount := 0
	typeTotals := make(map[models.QuestionType]dimensionTotals)
	difficultyTotals := make(map[models.Difficulty]dimensionTotals)
	topicTotals := make(map[string]dimensionTotals)

	for i := range graded {
		g := &graded[i]
		question, ok := byID[g.QuestionID]
		if !ok {
			return nil, contextutils.NewAppError(
				contextutils.ErrorCodeQuestionNotFound,
				contextutils.SeverityWarn,
				fmt.Sprintf("graded answer references unknown question %d", g.QuestionID),
				"",
			)
		}

		totalEarned += g.PointsEarned
		totalMax += g.MaxPoints
		if g.CorrectAt(s.cfg.Engine.OpenCorrectThreshold) {
			correctCount++
		}

		t := typeTotals[question.Type]
		t.earned += g.PointsEarned
		t.max += g.MaxPoints
		typeTotals[question.Type] = t

		if question.Difficulty != "" {
			d := difficultyTotals[question.Difficulty]
			d.earned += g.PointsEarned
			d.max += g.MaxPoints
			difficultyTotals[question.Difficulty] = d
		}

		if question.Topic != "" {
			tp := topicTotals[question.Topic]
			tp.earned += g.PointsEarned
			tp.max += g.MaxPoints
			topicTotals[question.Topic] = tp
		}
	}

	percentage := 0.0
	if totalMax > 0 {
		percentage = models.RoundPercentage(100 * totalEarned / totalMax)
	}

	eval := &models.SubmissionEvaluation{
		TotalScore:       totalEarned,
		MaxPossibleScore: totalMax,
		Percentage:       percentage,
		CorrectCount:     correctCount,
		TotalCount:       len(graded),
		PerformanceLevel: performanceLevel(percentage),
		TypeScores:       make(map[models.QuestionType]float64, len(typeTotals)),
		DifficultyScores: make(map[models.Difficulty]float64, len(difficultyTotals)),
		TopicScores:      make(map[string]float64, len(topicTotals)),
	}
	for qType, totals := range typeTotals {
		eval.TypeScores[qType] = totals.percentage()
	}
	for difficulty, totals := range difficultyTotals {
		eval.DifficultyScores[difficulty] = totals.percentage()
	}
	for topic, totals := range topicTotals {
		eval.TopicScores[topic] = totals.percentage()
	}

	eval.Strengths = s.buildStrengths(eval)
	eval.Weaknesses = s.buildWeaknesses(eval)
	eval.Suggestions = s.buildSuggestions(eval)

	s.logger.Info(ctx, "Evaluated submission", map[string]interface{}{
		"quiz_id":           quiz.ID,
		"percentage":        eval.Percentage,
		"correct_count":     eval.CorrectCount,
		"total_count":       eval.TotalCount,
		"performance_level": string(eval.PerformanceLevel),
	})

	return eval, nil
}

func performanceLevel(percentage float64) models.PerformanceLevel {
	switch {
	case percentage >= config.PerformanceExcellentThreshold:
		return models.PerformanceExcellent
	case percentage >= config.PerformanceGoodThreshold:
		return models.PerformanceGood
	case percentage >= config.PerformanceAverageThreshold:
		return models.PerformanceAverage
	default:
		return models.PerformancePoor
	}
}

// typeLabel renders a question type for learner-facing text
func typeLabel(t models.QuestionType) string {
	switch t {
	case models.MultipleChoice:
		return "multiple-choice"
	case models.TrueFalse:
		return "true/false"
	case models.ShortAnswer:
		return "short answer"
	case models.Essay:
		return "essay"
	default:
		return string(t)
	}
}

func sortedTypes(scores map[models.QuestionType]float64) []models.QuestionType {
	types := make([]models.QuestionType, 0, len(scores))
	for t := range scores {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// sortedDifficulties returns the difficulties present in scores in easy,
// medium, hard order
func sortedDifficulties(scores map[models.Difficulty]float64) []models.Difficulty {
	difficulties := make([]models.Difficulty, 0, len(scores))
	for _, d := range []models.Difficulty{models.Easy, models.Medium, models.Hard} {
		if _, ok := scores[d]; ok {
			difficulties = append(difficulties, d)
		}
	}
	return difficulties
}

func sortedTopics(scores map[string]float64) []string {
	topics := make([]string, 0, len(scores))
	for t := range scores {
		topics = append(topics, t)
	}
	sort.Strings(topics)
	return topics
}

func (s *EvaluationService) buildStrengths(eval *models.SubmissionEvaluation) []string {
	strengths := []string{}
	for _, t := range sortedTypes(eval.TypeScores) {
		if eval.TypeScores[t] >= config.StrengthScoreThreshold {
			strengths = append(strengths, fmt.Sprintf("Strong performance on %s questions", typeLabel(t)))
		}
	}
	for _, difficulty := range sortedDifficulties(eval.DifficultyScores) {
		if eval.DifficultyScores[difficulty] >= config.StrengthScoreThreshold {
			strengths = append(strengths, fmt.Sprintf("Excellent handling of %s questions", difficulty))
		}
	}
	for _, topic := range sortedTopics(eval.TopicScores) {
		if eval.TopicScores[topic] >= config.StrengthScoreThreshold {
			strengths = append(strengths, fmt.Sprintf("Solid grasp of %s", topic))
		}
	}
	if len(strengths) == 0 {
		strengths = append(strengths, "Shows effort and engagement with the material")
	}
	return strengths
}

func (s *EvaluationService) buildWeaknesses(eval *models.SubmissionEvaluation) []string {
	weaknesses := []string{}
	for _, t := range sortedTypes(eval.TypeScores) {
		if eval.TypeScores[t] <= config.WeaknessScoreThreshold {
			weaknesses = append(weaknesses, fmt.Sprintf("Needs improvement on %s questions", typeLabel(t)))
		}
	}
	for _, difficulty := range sortedDifficulties(eval.DifficultyScores) {
		if eval.DifficultyScores[difficulty] <= config.WeaknessScoreThreshold {
			weaknesses = append(weaknesses, fmt.Sprintf("Struggles with %s questions", difficulty))
		}
	}
	for _, topic := range sortedTopics(eval.TopicScores) {
		if eval.TopicScores[topic] <= config.WeaknessScoreThreshold {
			weaknesses = append(weaknesses, fmt.Sprintf("Needs more work on %s", topic))
		}
	}
	return weaknesses
}

// suggestionCandidate pairs a suggestion with the score that motivated it so
// candidates can be ranked weakest-first
type suggestionCandidate struct {
	score float64
	text  string
}

// buildSuggestions returns exactly SuggestionCount suggestions, weakest
// dimensions first, padded with generic advice when fewer dimensions qualify
func (s *EvaluationService) buildSuggestions(eval *models.SubmissionEvaluation) []string {
	candidates := []suggestionCandidate{}
	for _, topic := range sortedTopics(eval.TopicScores) {
		if eval.TopicScores[topic] <= config.WeaknessScoreThreshold {
			candidates = append(candidates, suggestionCandidate{
				score: eval.TopicScores[topic],
				text:  fmt.Sprintf("Review the fundamentals of %s", topic),
			})
		}
	}
	for _, t := range sortedTypes(eval.TypeScores) {
		if eval.TypeScores[t] <= config.WeaknessScoreThreshold {
			candidates = append(candidates, suggestionCandidate{
				score: eval.TypeScores[t],
				text:  fmt.Sprintf("Practice more %s questions", typeLabel(t)),
			})
		}
	}
	for _, difficulty := range sortedDifficulties(eval.DifficultyScores) {
		if eval.DifficultyScores[difficulty] <= config.WeaknessScoreThreshold {
			candidates = append(candidates, suggestionCandidate{
				score: eval.DifficultyScores[difficulty],
				text:  fmt.Sprintf("Work through more %s-level questions", difficulty),
			})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score < candidates[j].score })

	suggestions := make([]string, 0, config.SuggestionCount)
	for _, c := range candidates {
		if len(suggestions) == config.SuggestionCount {
			break
		}
		suggestions = append(suggestions, c.text)
	}

	generic := []string{
		"Review the explanations for the questions you missed",
		"Keep practicing regularly to reinforce what you have learned",
	}
	if len(candidates) == 0 && eval.PerformanceLevel == models.PerformanceExcellent {
		generic = []string{
			"Continue practicing with more challenging questions to deepen your understanding",
			"Keep practicing regularly to reinforce what you have learned",
		}
	}
	for _, g := range generic {
		if len(suggestions) == config.SuggestionCount {
			break
		}
		suggestions = append(suggestions, g)
	}
	return suggestions
}
