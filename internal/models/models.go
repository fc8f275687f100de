// Package models contains the domain types of the evaluation engine.
package models

import "math"

// QuestionType represents the type of question
type QuestionType string

const (
	// MultipleChoice is a closed-form question with a fixed option list
	MultipleChoice QuestionType = "mcq"
	// TrueFalse is a closed-form boolean question
	TrueFalse QuestionType = "true_false"
	// ShortAnswer is an open-form question graded against a rubric
	ShortAnswer QuestionType = "short_answer"
	// Essay is an open-form long answer graded against a rubric
	Essay QuestionType = "essay"
)

// AllQuestionTypes lists every known question type in a stable order
var AllQuestionTypes = []QuestionType{MultipleChoice, TrueFalse, ShortAnswer, Essay}

// IsValid reports whether the question type is one of the known variants
func (t QuestionType) IsValid() bool {
	switch t {
	case MultipleChoice, TrueFalse, ShortAnswer, Essay:
		return true
	}
	return false
}

// IsClosedForm reports whether answers of this type are graded by exact match
func (t QuestionType) IsClosedForm() bool {
	return t == MultipleChoice || t == TrueFalse
}

// Difficulty represents a question difficulty level
type Difficulty string

const (
	// Easy is the lowest difficulty level
	Easy Difficulty = "easy"
	// Medium is the middle difficulty level
	Medium Difficulty = "medium"
	// Hard is the highest difficulty level
	Hard Difficulty = "hard"
)

// AllDifficulties lists the levels in ascending order
var AllDifficulties = []Difficulty{Easy, Medium, Hard}

// IsValid reports whether the difficulty is one of the three levels
func (d Difficulty) IsValid() bool {
	return d == Easy || d == Medium || d == Hard
}

// rank maps difficulties onto the ordering easy < medium < hard
func (d Difficulty) rank() int {
	switch d {
	case Easy:
		return 0
	case Medium:
		return 1
	case Hard:
		return 2
	}
	return 1 // treat unknown as medium
}

// StepUp returns the next level up, clamped at hard
func (d Difficulty) StepUp() Difficulty {
	switch d {
	case Easy:
		return Medium
	case Medium, Hard:
		return Hard
	}
	return Medium
}

// StepDown returns the next level down, clamped at easy
func (d Difficulty) StepDown() Difficulty {
	switch d {
	case Hard:
		return Medium
	case Medium, Easy:
		return Easy
	}
	return Medium
}

// DistanceTo returns the absolute distance between two levels in the
// easy<medium<hard ordering
func (d Difficulty) DistanceTo(other Difficulty) int {
	dist := d.rank() - other.rank()
	if dist < 0 {
		return -dist
	}
	return dist
}

// Question is an immutable quiz question. Owned by a Quiz; read-only to the engine.
type Question struct {
	ID         int          `json:"id" yaml:"id"`
	QuizID     int          `json:"quiz_id" yaml:"quiz_id"`
	Text       string       `json:"text" yaml:"text"`
	Type       QuestionType `json:"type" yaml:"type"`
	Difficulty Difficulty   `json:"difficulty" yaml:"difficulty"`
	Topic      string       `json:"topic" yaml:"topic"`
	// Order is the question's insertion index within its quiz; the adaptive
	// tie-break is lowest order first
	Order  int     `json:"order" yaml:"order"`
	Points float64 `json:"points" yaml:"points"`
	// Options holds the option list for multiple-choice questions
	Options []string `json:"options,omitempty" yaml:"options,omitempty"`
	// CorrectAnswer is the expected answer for closed-form questions, or an
	// optional reference answer enabling the open-form exact-match short circuit
	CorrectAnswer string `json:"correct_answer,omitempty" yaml:"correct_answer,omitempty"`
	// Rubric guides external grading of open-form answers
	Rubric      string `json:"rubric,omitempty" yaml:"rubric,omitempty"`
	HintText    string `json:"hint_text,omitempty" yaml:"hint_text,omitempty"`
	Explanation string `json:"explanation,omitempty" yaml:"explanation,omitempty"`
}

// MaxPoints returns the question's point value, defaulting to 1 when unset
func (q *Question) MaxPoints() float64 {
	if q.Points <= 0 {
		return 1
	}
	return q.Points
}

// Quiz is the read-only container of questions the engine evaluates against
type Quiz struct {
	ID       int    `json:"id" yaml:"id"`
	Title    string `json:"title" yaml:"title"`
	Adaptive bool   `json:"adaptive" yaml:"adaptive"`
	// BaseDifficulty is the requested starting difficulty for adaptive
	// sessions; empty means medium
	BaseDifficulty Difficulty `json:"base_difficulty,omitempty" yaml:"base_difficulty,omitempty"`
	Questions      []Question `json:"questions" yaml:"questions"`
}

// QuestionsByID indexes the quiz's questions by ID
func (qz *Quiz) QuestionsByID() map[int]*Question {
	byID := make(map[int]*Question, len(qz.Questions))
	for i := range qz.Questions {
		byID[qz.Questions[i].ID] = &qz.Questions[i]
	}
	return byID
}

// SubmittedAnswer is a learner's answer to one question. Exactly one of
// SelectedOption (closed-form) or FreeText (open-form) must be present.
type SubmittedAnswer struct {
	QuestionID       int     `json:"question_id" validate:"required"`
	SelectedOption   *string `json:"selected_option,omitempty" validate:"required_without=FreeText"`
	FreeText         *string `json:"free_text,omitempty" validate:"required_without=SelectedOption"`
	TimeSpentSeconds *int    `json:"time_spent_seconds,omitempty" validate:"omitempty,gte=0"`
	// HintsUsed is filled from the hint tracker by the caller; 0 if none
	HintsUsed int `json:"hints_used" validate:"gte=0"`
}

// GradedAnswer is the grader's output for one answer
type GradedAnswer struct {
	QuestionID int `json:"question_id"`
	// IsCorrect is nil for partially scored open-form answers
	IsCorrect    *bool   `json:"is_correct,omitempty"`
	PointsEarned float64 `json:"points_earned"`
	MaxPoints    float64 `json:"max_points"`
	// Feedback carries free-text feedback from the grading capability
	Feedback string `json:"feedback,omitempty"`
	// Confidence is 1.0 for rule-based grading, provider-reported otherwise
	Confidence float64 `json:"confidence"`
	// HintPenaltyApplied is the fraction of MaxPoints actually deducted
	HintPenaltyApplied float64 `json:"hint_penalty_applied"`
	// Degraded marks results where the external capability failed and
	// fallback credit was applied
	Degraded bool `json:"degraded"`
}

// CorrectAt reports whether the answer counts as correct given the
// partial-credit threshold on the earned/max ratio. Explicit correctness
// from rule-based grading wins over the ratio.
func (g *GradedAnswer) CorrectAt(threshold float64) bool {
	if g.IsCorrect != nil {
		return *g.IsCorrect
	}
	if g.MaxPoints <= 0 {
		return false
	}
	return g.PointsEarned/g.MaxPoints >= threshold
}

// PerformanceLevel is the qualitative bucket for an overall percentage
type PerformanceLevel string

const (
	// PerformanceExcellent is the top performance bucket
	PerformanceExcellent PerformanceLevel = "excellent"
	// PerformanceGood is the second performance bucket
	PerformanceGood PerformanceLevel = "good"
	// PerformanceAverage is the third performance bucket
	PerformanceAverage PerformanceLevel = "average"
	// PerformancePoor is the lowest performance bucket
	PerformancePoor PerformanceLevel = "poor"
)

// SubmissionEvaluation aggregates graded answers into a submission-level report
type SubmissionEvaluation struct {
	TotalScore       float64          `json:"total_score"`
	MaxPossibleScore float64          `json:"max_possible_score"`
	Percentage       float64          `json:"percentage"`
	CorrectCount     int              `json:"correct_count"`
	TotalCount       int              `json:"total_count"`
	PerformanceLevel PerformanceLevel `json:"performance_level"`
	// Per-dimension score maps; dimensions with no attempted questions are omitted
	TypeScores       map[QuestionType]float64 `json:"type_scores"`
	DifficultyScores map[Difficulty]float64   `json:"difficulty_scores"`
	TopicScores      map[string]float64       `json:"topic_scores"`
	// Suggestions always holds exactly two entries
	Suggestions []string `json:"suggestions"`
	Strengths   []string `json:"strengths"`
	Weaknesses  []string `json:"weaknesses"`
}

// Progress reports how far through a quiz an adaptive session is
type Progress struct {
	Answered int `json:"answered"`
	Total    int `json:"total"`
}

// AdaptiveDecision is the adaptive policy's output for "what next"
type AdaptiveDecision struct {
	CurrentDifficulty Difficulty `json:"current_difficulty"`
	// NextQuestionID is nil when the session is complete
	NextQuestionID *int     `json:"next_question_id,omitempty"`
	IsComplete     bool     `json:"is_complete"`
	Progress       Progress `json:"progress"`
}

// HintGrant is the hint tracker's response to a granted hint request
type HintGrant struct {
	Hint       string `json:"hint"`
	UsageCount int    `json:"usage_count"`
	Remaining  int    `json:"remaining"`
}

// OpenGradingRequest is the input to the external grading capability for an
// open-form answer
type OpenGradingRequest struct {
	QuestionText    string  `json:"question_text"`
	Rubric          string  `json:"rubric"`
	ReferenceAnswer string  `json:"reference_answer,omitempty"`
	StudentAnswer   string  `json:"student_answer"`
	MaxPoints       float64 `json:"max_points"`
}

// OpenGradingResult is the external grading capability's verdict
type OpenGradingResult struct {
	// Fraction of full credit in [0, 1]
	Fraction float64 `json:"fraction"`
	Feedback string  `json:"feedback"`
	// Confidence is nil when the capability reports none; the grader
	// substitutes a conservative default
	Confidence *float64 `json:"confidence,omitempty"`
}

// RoundPercentage rounds a percentage to two decimal places
func RoundPercentage(p float64) float64 {
	return math.Round(p*100) / 100
}
