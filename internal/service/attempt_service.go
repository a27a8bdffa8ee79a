package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"course_quiz_backend/internal/event"
	"course_quiz_backend/internal/model"
	"course_quiz_backend/internal/repository"
	"course_quiz_backend/internal/util"
	"course_quiz_backend/pkg/logger"
	"course_quiz_backend/pkg/monitoring"

	"github.com/jinzhu/copier"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type AttemptService struct {
	DB           *gorm.DB
	QuizRepo     *repository.QuizRepository
	QuestionRepo *repository.QuestionRepository
	AttemptRepo  *repository.AttemptRepository
	ResponseRepo *repository.ResponseRepository
	Locker       AttemptLocker
	Publisher    event.Publisher
	Now          func() time.Time
}

func NewAttemptService(
	db *gorm.DB,
	quizRepo *repository.QuizRepository,
	questionRepo *repository.QuestionRepository,
	attemptRepo *repository.AttemptRepository,
	responseRepo *repository.ResponseRepository,
	locker AttemptLocker,
	publisher event.Publisher,
) *AttemptService {
	if publisher == nil {
		publisher = event.NopPublisher{}
	}
	return &AttemptService{
		DB:           db,
		QuizRepo:     quizRepo,
		QuestionRepo: questionRepo,
		AttemptRepo:  attemptRepo,
		ResponseRepo: responseRepo,
		Locker:       locker,
		Publisher:    publisher,
		Now:          time.Now,
	}
}

// AttemptView is an attempt together with the attempts the user has left.
type AttemptView struct {
	model.QuizAttempt
	AttemptsLeft int `json:"attemptsLeft"`
}

// AttemptPatch lists the fields UpdateAttempt may change. Nil fields are kept.
type AttemptPatch struct {
	Status       *model.AttemptStatus `json:"status,omitempty"`
	FinishedAt   *time.Time           `json:"finishedAt,omitempty"`
	ScoreDetails *model.ScoreSnapshot `json:"scoreDetails,omitempty"`
}

type AttemptStartedEvent struct {
	AttemptID     string `json:"attemptId"`
	UserID        uint   `json:"userId"`
	QuizID        string `json:"quizId"`
	AttemptNumber int    `json:"attemptNumber"`
}

// CreateAttempt 创建或恢复测验尝试
// An open attempt is returned unchanged; otherwise a new one is created when
// the quiz has questions and the user still has attempts left.
func (s *AttemptService) CreateAttempt(ctx context.Context, userID uint, quizID string) (*AttemptView, error) {
	unlock, err := s.Locker.Lock(ctx, attemptLockKey(userID, quizID))
	if err != nil {
		if errors.Is(err, ErrLockTimeout) {
			monitoring.LockTimeouts.Inc()
		}
		return nil, fmt.Errorf("lock attempts of user %d quiz %s: %w", userID, quizID, err)
	}
	defer unlock()

	quiz, err := s.QuizRepo.FindByID(ctx, quizID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, util.ErrQuizNotFound
		}
		return nil, fmt.Errorf("load quiz %s: %w", quizID, err)
	}

	if active, err := s.AttemptRepo.FindActive(ctx, userID, quizID); err != nil {
		return nil, fmt.Errorf("load active attempt: %w", err)
	} else if active != nil {
		return s.view(ctx, quiz, active)
	}

	if !quiz.Active {
		return nil, util.ErrQuizInactive
	}

	questionCount, err := s.QuestionRepo.CountByQuiz(ctx, quizID)
	if err != nil {
		return nil, fmt.Errorf("count questions of quiz %s: %w", quizID, err)
	}
	if questionCount == 0 {
		return nil, util.ErrNoQuestionsAvailable
	}

	finished, err := s.AttemptRepo.CountFinished(ctx, userID, quizID)
	if err != nil {
		return nil, fmt.Errorf("count finished attempts: %w", err)
	}
	if int(finished) >= quiz.AllowedAttempts() {
		return nil, util.ErrAttemptsExhausted
	}

	lastNumber, err := s.AttemptRepo.MaxFinishedNumber(ctx, userID, quizID)
	if err != nil {
		return nil, fmt.Errorf("load last attempt number: %w", err)
	}

	activeKey := model.ActiveAttemptKey(userID, quizID)
	attempt := &model.QuizAttempt{
		UserID:        userID,
		QuizID:        quizID,
		AttemptNumber: lastNumber + 1,
		Status:        model.AttemptInProgress,
		StartedAt:     s.Now(),
		ActiveKey:     &activeKey,
	}
	if err := s.AttemptRepo.Create(ctx, attempt); err != nil {
		if !repository.IsDuplicateKey(err) {
			return nil, fmt.Errorf("create attempt: %w", err)
		}
		// another instance created the open attempt first
		winner, findErr := s.AttemptRepo.FindActive(ctx, userID, quizID)
		if findErr != nil || winner == nil {
			return nil, fmt.Errorf("create attempt: %w", err)
		}
		logger.Log.Info("attempt creation lost race, resuming",
			zap.Uint("user_id", userID), zap.String("quiz_id", quizID), zap.String("attempt_id", winner.ID))
		return s.view(ctx, quiz, winner)
	}

	monitoring.AttemptsCreated.Inc()
	logger.Log.Info("attempt started",
		zap.Uint("user_id", userID),
		zap.String("quiz_id", quizID),
		zap.String("attempt_id", attempt.ID),
		zap.Int("attempt_number", attempt.AttemptNumber))

	if err := s.Publisher.Publish(event.AttemptStarted, AttemptStartedEvent{
		AttemptID:     attempt.ID,
		UserID:        userID,
		QuizID:        quizID,
		AttemptNumber: attempt.AttemptNumber,
	}); err != nil {
		logger.Log.Warn("publish attempt started event failed", zap.String("attempt_id", attempt.ID), zap.Error(err))
	}

	return &AttemptView{QuizAttempt: *attempt, AttemptsLeft: quiz.AllowedAttempts() - int(finished)}, nil
}

func (s *AttemptService) view(ctx context.Context, quiz *model.Quiz, attempt *model.QuizAttempt) (*AttemptView, error) {
	finished, err := s.AttemptRepo.CountFinished(ctx, attempt.UserID, quiz.ID)
	if err != nil {
		return nil, fmt.Errorf("count finished attempts: %w", err)
	}
	left := quiz.AllowedAttempts() - int(finished)
	if left < 0 {
		left = 0
	}
	return &AttemptView{QuizAttempt: *attempt, AttemptsLeft: left}, nil
}

func (s *AttemptService) GetAttempt(ctx context.Context, attemptID string) (*model.QuizAttempt, error) {
	attempt, err := s.AttemptRepo.FindByID(ctx, attemptID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, util.ErrAttemptNotFound
		}
		return nil, fmt.Errorf("load attempt %s: %w", attemptID, err)
	}
	return attempt, nil
}

// GetAttemptByNumber returns the user's attempt with the given number.
func (s *AttemptService) GetAttemptByNumber(ctx context.Context, userID uint, quizID string, number int) (*model.QuizAttempt, error) {
	attempt, err := s.AttemptRepo.FindByNumber(ctx, userID, quizID, number)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, util.ErrAttemptNotFound
		}
		return nil, fmt.Errorf("load attempt %d of quiz %s: %w", number, quizID, err)
	}
	return attempt, nil
}

// ListAttempts 返回用户在测验中的全部尝试，按尝试序号排序
func (s *AttemptService) ListAttempts(ctx context.Context, userID uint, quizID string) ([]model.QuizAttempt, error) {
	if _, err := s.QuizRepo.FindByID(ctx, quizID); err != nil {
		if repository.IsNotFound(err) {
			return nil, util.ErrQuizNotFound
		}
		return nil, fmt.Errorf("load quiz %s: %w", quizID, err)
	}
	attempts, err := s.AttemptRepo.ListByUserAndQuiz(ctx, userID, quizID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	return attempts, nil
}

func (s *AttemptService) CompleteAttempt(ctx context.Context, attemptID string, score *model.ScoreSnapshot) (*model.QuizAttempt, error) {
	return s.finish(ctx, attemptID, model.AttemptCompleted, score)
}

func (s *AttemptService) AbandonAttempt(ctx context.Context, attemptID string, score *model.ScoreSnapshot) (*model.QuizAttempt, error) {
	return s.finish(ctx, attemptID, model.AttemptAbandoned, score)
}

func (s *AttemptService) TimeoutAttempt(ctx context.Context, attemptID string, score *model.ScoreSnapshot) (*model.QuizAttempt, error) {
	return s.finish(ctx, attemptID, model.AttemptTimedOut, score)
}

func (s *AttemptService) finish(ctx context.Context, attemptID string, status model.AttemptStatus, score *model.ScoreSnapshot) (*model.QuizAttempt, error) {
	return s.UpdateAttempt(ctx, attemptID, AttemptPatch{Status: &status, ScoreDetails: score})
}

// UpdateAttempt 按补丁更新尝试；已结束的尝试不可再修改
func (s *AttemptService) UpdateAttempt(ctx context.Context, attemptID string, patch AttemptPatch) (*model.QuizAttempt, error) {
	var updated *model.QuizAttempt
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.AttemptRepo.WithTx(tx)
		attempt, err := repo.FindByIDForUpdate(ctx, attemptID)
		if err != nil {
			if repository.IsNotFound(err) {
				return util.ErrAttemptNotFound
			}
			return fmt.Errorf("load attempt %s: %w", attemptID, err)
		}
		if err := applyPatch(attempt, patch, s.Now()); err != nil {
			return err
		}
		if err := repo.Update(ctx, attempt); err != nil {
			return fmt.Errorf("update attempt %s: %w", attemptID, err)
		}
		updated = attempt
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Info("attempt updated",
		zap.String("attempt_id", updated.ID),
		zap.Uint("user_id", updated.UserID),
		zap.String("quiz_id", updated.QuizID),
		zap.String("status", string(updated.Status)))
	return updated, nil
}

// applyPatch mutates attempt in memory. Any patch on a terminal attempt is
// rejected.
func applyPatch(attempt *model.QuizAttempt, patch AttemptPatch, now time.Time) error {
	if attempt.Status.IsTerminal() {
		return fmt.Errorf("%w: attempt %s is %s", util.ErrInvalidStatusTransition, attempt.ID, attempt.Status)
	}
	if patch.Status != nil && !patch.Status.IsValid() {
		return fmt.Errorf("%w: unknown status %q", util.ErrInvalidStatusTransition, *patch.Status)
	}

	if patch.FinishedAt != nil {
		t := *patch.FinishedAt
		attempt.FinishedAt = &t
	}
	if patch.ScoreDetails != nil {
		attempt.ScoreDetails = model.NewScoreDetails(*patch.ScoreDetails)
	}
	if patch.Status != nil {
		attempt.Status = *patch.Status
	}
	if attempt.Status.IsTerminal() {
		attempt.ActiveKey = nil
		if attempt.FinishedAt == nil {
			t := now
			attempt.FinishedAt = &t
		}
	}
	return nil
}

// ResponseView is a stored response as shown to the attempt owner. Correct
// and Points are nil when the quiz hides results.
type ResponseView struct {
	ID         string           `json:"id"`
	QuestionID string           `json:"questionId"`
	UserAnswer string           `json:"userAnswer"`
	AnsweredAt time.Time        `json:"answeredAt"`
	Correct    *bool            `json:"isCorrect,omitempty"`
	Points     *decimal.Decimal `json:"pointsEarned,omitempty"`
}

type AttemptResult struct {
	Attempt       model.QuizAttempt    `json:"attempt"`
	Score         *model.ScoreSnapshot `json:"score,omitempty"`
	Responses     []ResponseView       `json:"responses"`
	ResultsHidden bool                 `json:"resultsHidden"`
}

// GetAttemptResult 返回尝试及其作答记录
// Viewers that may not see results get the responses without correctness,
// points or score snapshot.
func (s *AttemptService) GetAttemptResult(ctx context.Context, attemptID string, viewerIsAdmin bool) (*AttemptResult, error) {
	attempt, err := s.GetAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	quiz, err := s.QuizRepo.FindByID(ctx, attempt.QuizID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, util.ErrQuizNotFound
		}
		return nil, fmt.Errorf("load quiz %s: %w", attempt.QuizID, err)
	}
	responses, err := s.ResponseRepo.ListByAttempt(ctx, attempt.UserID, attempt.QuizID, attempt.AttemptNumber)
	if err != nil {
		return nil, fmt.Errorf("list responses of attempt %s: %w", attemptID, err)
	}

	reveal := quiz.ShowResults || viewerIsAdmin
	result := &AttemptResult{
		Attempt:       *attempt,
		Responses:     make([]ResponseView, 0, len(responses)),
		ResultsHidden: !reveal,
	}
	if reveal && attempt.ScoreDetails.Valid {
		snap := attempt.ScoreDetails.Snapshot
		result.Score = &snap
	}
	if !reveal {
		result.Attempt.ScoreDetails = model.ScoreDetails{}
	}

	for i := range responses {
		var rv ResponseView
		if err := copier.Copy(&rv, &responses[i]); err != nil {
			return nil, fmt.Errorf("map response %s: %w", responses[i].ID, err)
		}
		if reveal {
			correct := responses[i].IsCorrect
			points := responses[i].PointsEarned
			rv.Correct = &correct
			rv.Points = &points
		}
		result.Responses = append(result.Responses, rv)
	}
	return result, nil
}

// IsAttemptOwner reports whether userID owns the attempt.
func IsAttemptOwner(attempt *model.QuizAttempt, userID uint) bool {
	return attempt != nil && attempt.UserID == userID
}
