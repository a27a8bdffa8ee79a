package service

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"course_quiz_backend/internal/model"
	"course_quiz_backend/internal/repository"
	"course_quiz_backend/internal/util"
	"course_quiz_backend/pkg/logger"
	"course_quiz_backend/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const DefaultQuestionsToShow = 10

// QuestionPoolService 按尝试次数从题库中选出本次要展示的题目
type QuestionPoolService struct {
	QuizRepo     *repository.QuizRepository
	QuestionRepo *repository.QuestionRepository
	AttemptRepo  *repository.AttemptRepository
	Settings     *QuizSettings

	// NewRand returns the random source of one selection. Each call gets its
	// own source; nothing random is shared across requests.
	NewRand func() *rand.Rand
}

func NewQuestionPoolService(
	quizRepo *repository.QuizRepository,
	questionRepo *repository.QuestionRepository,
	attemptRepo *repository.AttemptRepository,
	settings *QuizSettings,
) *QuestionPoolService {
	return &QuestionPoolService{
		QuizRepo:     quizRepo,
		QuestionRepo: questionRepo,
		AttemptRepo:  attemptRepo,
		Settings:     settings,
		NewRand: func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		},
	}
}

// QuestionsToShow caps the configured count at the pool size. A nil or
// non-positive configured value falls back to defaultCount.
func QuestionsToShow(configured *int, total, defaultCount int) int {
	n := defaultCount
	if configured != nil && *configured > 0 {
		n = *configured
	}
	if n > total {
		n = total
	}
	return n
}

// PickQuestions selects the questions of one attempt from the position-ordered
// pool. Randomized quizzes get an independent shuffle; the others walk the
// pool round-robin so repeated attempts cover every question.
func PickQuestions(pool []model.Question, toShow int, randomize bool, attemptNumber int, rng *rand.Rand) []model.Question {
	total := len(pool)
	if total == 0 || toShow <= 0 {
		return []model.Question{}
	}

	if toShow >= total {
		out := append([]model.Question(nil), pool...)
		if randomize {
			rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
		}
		return out
	}

	if randomize {
		shuffled := append([]model.Question(nil), pool...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		return shuffled[:toShow]
	}

	if attemptNumber < 1 {
		attemptNumber = 1
	}
	start := ((attemptNumber - 1) * toShow) % total
	out := make([]model.Question, 0, toShow)
	for i := 0; i < toShow; i++ {
		out = append(out, pool[(start+i)%total])
	}
	return out
}

// SelectQuestionsForAttempt 返回用户第 attemptNumber 次尝试的题目列表
func (s *QuestionPoolService) SelectQuestionsForAttempt(ctx context.Context, quizID string, userID uint, attemptNumber int) ([]model.Question, error) {
	ctx, span := tracing.Tracer.Start(ctx, "QuestionPoolService.SelectQuestionsForAttempt")
	defer span.End()
	span.SetAttributes(
		attribute.String("quiz.id", quizID),
		attribute.Int64("user.id", int64(userID)),
		attribute.Int("attempt.number", attemptNumber),
	)

	quiz, err := s.QuizRepo.FindByID(ctx, quizID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, util.ErrQuizNotFound
		}
		return nil, fmt.Errorf("load quiz %s: %w", quizID, err)
	}

	pool, err := s.QuestionRepo.ListByQuiz(ctx, quizID)
	if err != nil {
		return nil, fmt.Errorf("load questions of quiz %s: %w", quizID, err)
	}
	if len(pool) == 0 {
		return nil, util.ErrNoQuestionsFound
	}

	settings := s.Settings.Load()
	toShow := QuestionsToShow(quiz.QuestionsToShow, len(pool), settings.DefaultQuestionsToShow)

	if !quiz.RandomizeQuestions || !settings.PinRandomSelection {
		return PickQuestions(pool, toShow, quiz.RandomizeQuestions, attemptNumber, s.NewRand()), nil
	}
	return s.pinnedSelection(ctx, quiz, userID, attemptNumber, pool, toShow)
}

// pinnedSelection keeps a randomized selection stable while its attempt is
// open: the first selection is stored on the attempt and replayed afterwards.
func (s *QuestionPoolService) pinnedSelection(ctx context.Context, quiz *model.Quiz, userID uint, attemptNumber int, pool []model.Question, toShow int) ([]model.Question, error) {
	active, err := s.AttemptRepo.FindActive(ctx, userID, quiz.ID)
	if err != nil {
		return nil, fmt.Errorf("load active attempt: %w", err)
	}
	if active == nil || active.AttemptNumber != attemptNumber {
		return PickQuestions(pool, toShow, true, attemptNumber, s.NewRand()), nil
	}

	if pinned := replayOrder(pool, active.QuestionOrder); len(pinned) > 0 {
		return pinned, nil
	}

	picked := PickQuestions(pool, toShow, true, attemptNumber, s.NewRand())
	ids := make([]string, len(picked))
	for i, q := range picked {
		ids[i] = q.ID
	}
	stored, err := s.AttemptRepo.PinQuestionOrder(ctx, active.ID, ids)
	if err != nil {
		return nil, fmt.Errorf("pin question order of attempt %s: %w", active.ID, err)
	}
	if stored {
		return picked, nil
	}

	// a concurrent request pinned first; serve its order
	latest, err := s.AttemptRepo.FindByID(ctx, active.ID)
	if err != nil {
		return nil, fmt.Errorf("reload attempt %s: %w", active.ID, err)
	}
	if pinned := replayOrder(pool, latest.QuestionOrder); len(pinned) > 0 {
		return pinned, nil
	}
	logger.Log.Warn("pinned question order unavailable, serving fresh selection",
		zap.String("attempt_id", active.ID), zap.String("status", string(latest.Status)))
	return picked, nil
}

// replayOrder maps pinned ids back onto the pool. Questions deleted since the
// pin are skipped.
func replayOrder(pool []model.Question, ids []string) []model.Question {
	if len(ids) == 0 {
		return nil
	}
	byID := make(map[string]model.Question, len(pool))
	for _, q := range pool {
		byID[q.ID] = q
	}
	out := make([]model.Question, 0, len(ids))
	for _, id := range ids {
		if q, ok := byID[id]; ok {
			out = append(out, q)
		}
	}
	return out
}
