package config

import "time"

// Timeout constants
const (
	// AIGradingTimeout bounds a single external grading call; on expiry the
	// grader applies fallback credit instead of failing the submission
	AIGradingTimeout = 30 * time.Second
	// AIHintTimeout bounds a single hint generation call
	AIHintTimeout = 15 * time.Second
	// DefaultHTTPTimeout applies to the AI provider HTTP client as a whole
	DefaultHTTPTimeout = 60 * time.Second
	// TestTimeout is used by tests exercising timeout paths
	TestTimeout = 100 * time.Millisecond
)

// Grading constants
const (
	// DefaultMaxPoints is the point value of a question that does not declare one
	DefaultMaxPoints = 1.0
	// DefaultHintPenaltyPerHint is the fraction of max points deducted per hint used
	DefaultHintPenaltyPerHint = 0.10
	// DefaultFallbackCreditFraction is the fraction of max points awarded when the
	// external grading capability fails or times out
	DefaultFallbackCreditFraction = 0.5
	// DefaultAIConfidence is assumed when the grading capability reports no confidence
	DefaultAIConfidence = 0.5
	// DefaultOpenCorrectThreshold is the earned/max ratio at which a partially
	// scored open-form answer counts as correct for correct_count purposes
	DefaultOpenCorrectThreshold = 0.5
)

// Performance level thresholds, applied to the submission percentage in
// descending order
const (
	PerformanceExcellentThreshold = 85.0
	PerformanceGoodThreshold      = 65.0
	PerformanceAverageThreshold   = 40.0
)

// Strength and weakness cutoffs for per-dimension scores (percentages)
const (
	StrengthScoreThreshold = 80.0
	WeaknessScoreThreshold = 40.0
)

// SuggestionCount is the exact number of improvement suggestions an
// evaluation carries, regardless of performance
const SuggestionCount = 2

// Hint constants
const (
	// DefaultMaxHintsPerQuestion caps hint grants per (user, question)
	DefaultMaxHintsPerQuestion = 3
)

// Adaptive constants
const (
	// DefaultAdaptiveWindowSize is the number of recent correctness signals
	// considered when stepping difficulty
	DefaultAdaptiveWindowSize = 3
	// DefaultStepUpAccuracy steps difficulty up when window accuracy reaches it
	DefaultStepUpAccuracy = 0.66
	// DefaultStepDownAccuracy steps difficulty down when window accuracy falls to it
	DefaultStepDownAccuracy = 0.33
)
