package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"quizengine/internal/config"
	"quizengine/internal/models"
	"quizengine/internal/observability"
	"quizengine/internal/session"
	contextutils "quizengine/internal/utils"
)

// difficultyFallbacks is the search order when no unanswered question exists
// at the session's current difficulty, preferring the easier neighbor
var difficultyFallbacks = map[models.Difficulty][]models.Difficulty{
	models.Easy:   {models.Medium, models.Hard},
	models.Medium: {models.Easy, models.Hard},
	models.Hard:   {models.Medium, models.Easy},
}

// AdaptiveService drives adaptive quiz sessions: it tracks a sliding window
// of recent correctness, steps the session difficulty on window accuracy, and
// selects the next unanswered question at (or nearest to) that difficulty.
type AdaptiveService struct {
	cfg    *config.Config
	store  session.Store
	logger *observability.Logger
}

// NewAdaptiveService creates a new adaptive service
func NewAdaptiveService(cfg *config.Config, store session.Store, logger *observability.Logger) *AdaptiveService {
	return &AdaptiveService{cfg: cfg, store: store, logger: logger}
}

// StartSession begins an adaptive session for the user on the quiz, replacing
// any previous session for the same pair. The starting difficulty is the
// quiz's base difficulty, or medium when unset.
func (s *AdaptiveService) StartSession(ctx context.Context, userID int, quiz *models.Quiz) (result0 *models.AdaptiveDecision, err error) {
	ctx, span := observability.TraceAdaptiveFunction(ctx, "start_session",
		observability.AttributeUserID(userID),
		observability.AttributeQuizID(quiz.ID),
	)
	defer observability.FinishSpan(span, &err)

	if !quiz.Adaptive {
		return nil, contextutils.NewAppError(
			contextutils.ErrorCodeAdaptiveNotSupported,
			contextutils.SeverityWarn,
			fmt.Sprintf("quiz %d is not adaptive", quiz.ID),
			"",
		)
	}

	difficulty := quiz.BaseDifficulty
	if !difficulty.IsValid() {
		difficulty = models.Medium
	}

	state := &session.State{
		SessionID:         uuid.NewString(),
		CurrentDifficulty: difficulty,
	}
	if err := s.store.Put(ctx, userID, quiz.ID, state); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "Started adaptive session", map[string]interface{}{
		"user_id":    userID,
		"quiz_id":    quiz.ID,
		"session_id": state.SessionID,
		"difficulty": string(difficulty),
	})

	return s.decide(quiz, state), nil
}

// RecordAnswer feeds one correctness signal into the session, steps the
// difficulty when the window accuracy crosses a threshold, and returns the
// next-question decision. Repeated signals for the same question are rejected.
func (s *AdaptiveService) RecordAnswer(ctx context.Context, userID int, quiz *models.Quiz, questionID int, correct bool) (result0 *models.AdaptiveDecision, err error) {
	ctx, span := observability.TraceAdaptiveFunction(ctx, "record_answer",
		observability.AttributeUserID(userID),
		observability.AttributeQuizID(quiz.ID),
		observability.AttributeQuestionID(questionID),
	)
	defer observability.FinishSpan(span, &err)

	if _, ok := quiz.QuestionsByID()[questionID]; !ok {
		return nil, contextutils.NewAppError(
			contextutils.ErrorCodeQuestionNotFound,
			contextutils.SeverityWarn,
			fmt.Sprintf("question %d not found in quiz %d", questionID, quiz.ID),
			"",
		)
	}

	state, err := s.store.Update(ctx, userID, quiz.ID, func(st *session.State) error {
		if st.HasAnswered(questionID) {
			return contextutils.NewAppError(
				contextutils.ErrorCodeValidationFailed,
				contextutils.SeverityWarn,
				fmt.Sprintf("question %d was already answered in this session", questionID),
				"",
			)
		}
		st.AnsweredQuestionIDs = append(st.AnsweredQuestionIDs, questionID)
		st.PushOutcome(correct, s.cfg.Engine.AdaptiveWindowSize)
		st.CurrentDifficulty = s.stepDifficulty(st)
		return nil
	})
	if err != nil {
		return nil, err
	}

	decision := s.decide(quiz, state)

	s.logger.Debug(ctx, "Recorded adaptive answer", map[string]interface{}{
		"user_id":     userID,
		"quiz_id":     quiz.ID,
		"question_id": questionID,
		"correct":     correct,
		"difficulty":  string(state.CurrentDifficulty),
		"is_complete": decision.IsComplete,
	})

	return decision, nil
}

// NextQuestion re-derives the current decision without consuming a signal
func (s *AdaptiveService) NextQuestion(ctx context.Context, userID int, quiz *models.Quiz) (result0 *models.AdaptiveDecision, err error) {
	ctx, span := observability.TraceAdaptiveFunction(ctx, "next_question",
		observability.AttributeUserID(userID),
		observability.AttributeQuizID(quiz.ID),
	)
	defer observability.FinishSpan(span, &err)

	state, err := s.store.Get(ctx, userID, quiz.ID)
	if err != nil {
		return nil, err
	}
	return s.decide(quiz, state), nil
}

// EndSession discards the session state for the (user, quiz) pair
func (s *AdaptiveService) EndSession(ctx context.Context, userID, quizID int) (err error) {
	ctx, span := observability.TraceAdaptiveFunction(ctx, "end_session",
		observability.AttributeUserID(userID),
		observability.AttributeQuizID(quizID),
	)
	defer observability.FinishSpan(span, &err)

	return s.store.Delete(ctx, userID, quizID)
}

// stepDifficulty applies the window accuracy thresholds to the current
// difficulty, clamped at the easy and hard ends
func (s *AdaptiveService) stepDifficulty(st *session.State) models.Difficulty {
	accuracy, ok := st.WindowAccuracy()
	if !ok {
		return st.CurrentDifficulty
	}
	switch {
	case accuracy >= s.cfg.Engine.StepUpAccuracy:
		return st.CurrentDifficulty.StepUp()
	case accuracy <= s.cfg.Engine.StepDownAccuracy:
		return st.CurrentDifficulty.StepDown()
	default:
		return st.CurrentDifficulty
	}
}

// decide selects the next unanswered question at the session difficulty,
// walking the fallback order when that difficulty is exhausted. Ties break on
// lowest order, then lowest ID, so the choice is deterministic.
func (s *AdaptiveService) decide(quiz *models.Quiz, st *session.State) *models.AdaptiveDecision {
	decision := &models.AdaptiveDecision{
		CurrentDifficulty: st.CurrentDifficulty,
		Progress: models.Progress{
			Answered: len(st.AnsweredQuestionIDs),
			Total:    len(quiz.Questions),
		},
	}

	unanswered := make([]*models.Question, 0, len(quiz.Questions))
	for i := range quiz.Questions {
		if !st.HasAnswered(quiz.Questions[i].ID) {
			unanswered = append(unanswered, &quiz.Questions[i])
		}
	}
	if len(unanswered) == 0 {
		decision.IsComplete = true
		return decision
	}

	next := pickAtDifficulty(unanswered, st.CurrentDifficulty)
	if next == nil {
		for _, fallback := range difficultyFallbacks[st.CurrentDifficulty] {
			if next = pickAtDifficulty(unanswered, fallback); next != nil {
				break
			}
		}
	}
	if next == nil {
		// Questions with no declared difficulty are served last
		next = pickAny(unanswered)
	}

	id := next.ID
	decision.NextQuestionID = &id
	return decision
}

func pickAtDifficulty(questions []*models.Question, difficulty models.Difficulty) *models.Question {
	var best *models.Question
	for _, q := range questions {
		if q.Difficulty != difficulty {
			continue
		}
		if best == nil || q.Order < best.Order || (q.Order == best.Order && q.ID < best.ID) {
			best = q
		}
	}
	return best
}

func pickAny(questions []*models.Question) *models.Question {
	var best *models.Question
	for _, q := range questions {
		if best == nil || q.Order < best.Order || (q.Order == best.Order && q.ID < best.ID) {
			best = q
		}
	}
	return best
}
