package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"course_quiz_backend/internal/event"
	"course_quiz_backend/internal/grading"
	"course_quiz_backend/internal/model"
	"course_quiz_backend/internal/repository"
	"course_quiz_backend/internal/util"
	"course_quiz_backend/pkg/logger"
	"course_quiz_backend/pkg/monitoring"
	"course_quiz_backend/pkg/tracing"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// UserResponse 用户对单题提交的原始答案
type UserResponse struct {
	QuestionID string `json:"questionId"`
	UserAnswer string `json:"userAnswer"`
}

type SubmissionResult struct {
	Attempt          model.QuizAttempt    `json:"attempt"`
	Responses        []model.QuizResponse `json:"responses"`
	TotalScore       decimal.Decimal      `json:"totalScore"`
	MaxPossibleScore decimal.Decimal      `json:"maxPossibleScore"`
	CorrectAnswers   int                  `json:"correctAnswers"`
	TotalQuestions   int                  `json:"totalQuestions"`
	PercentageScore  decimal.Decimal      `json:"percentageScore"`
}

type AttemptSubmittedEvent struct {
	AttemptID     string              `json:"attemptId"`
	UserID        uint                `json:"userId"`
	QuizID        string              `json:"quizId"`
	AttemptNumber int                 `json:"attemptNumber"`
	Status        model.AttemptStatus `json:"status"`
	Snapshot      model.ScoreSnapshot `json:"snapshot"`
}

type SubmissionService struct {
	DB           *gorm.DB
	AttemptRepo  *repository.AttemptRepository
	QuestionRepo *repository.QuestionRepository
	ResponseRepo *repository.ResponseRepository
	Publisher    event.Publisher
	Now          func() time.Time
}

func NewSubmissionService(
	db *gorm.DB,
	attemptRepo *repository.AttemptRepository,
	questionRepo *repository.QuestionRepository,
	responseRepo *repository.ResponseRepository,
	publisher event.Publisher,
) *SubmissionService {
	if publisher == nil {
		publisher = event.NopPublisher{}
	}
	return &SubmissionService{
		DB:           db,
		AttemptRepo:  attemptRepo,
		QuestionRepo: questionRepo,
		ResponseRepo: responseRepo,
		Publisher:    publisher,
		Now:          time.Now,
	}
}

// SubmitQuiz 评分并提交一次尝试
// Responses are stored, the score is aggregated and the attempt is closed in
// one transaction; any failure leaves the attempt open with no new responses.
func (s *SubmissionService) SubmitQuiz(ctx context.Context, attemptID string, responses []UserResponse, submissionType string) (*SubmissionResult, error) {
	ctx, span := tracing.Tracer.Start(ctx, "SubmissionService.SubmitQuiz")
	defer span.End()
	span.SetAttributes(
		attribute.String("attempt.id", attemptID),
		attribute.String("submission.type", submissionType),
		attribute.Int("responses.count", len(responses)),
	)

	if submissionType == "" {
		submissionType = model.SubmissionManual
	}

	var result *SubmissionResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		result, err = s.submitTx(ctx, tx, attemptID, responses, submissionType)
		return err
	})
	if err != nil {
		if isConflict(err) {
			monitoring.ResponseConflicts.Inc()
		}
		logger.Log.Warn("quiz submission failed",
			zap.String("attempt_id", attemptID),
			zap.String("submission_type", submissionType),
			zap.Error(err))
		return nil, err
	}

	attempt := result.Attempt
	monitoring.Submissions.WithLabelValues(string(attempt.Status)).Inc()
	pct, _ := result.PercentageScore.Float64()
	monitoring.ScorePercentage.Observe(pct)

	logger.Log.Info("quiz submitted",
		zap.String("attempt_id", attempt.ID),
		zap.Uint("user_id", attempt.UserID),
		zap.String("quiz_id", attempt.QuizID),
		zap.String("status", string(attempt.Status)),
		zap.String("total_score", result.TotalScore.String()),
		zap.String("max_score", result.MaxPossibleScore.String()),
		zap.String("percentage", result.PercentageScore.String()))

	if err := s.Publisher.Publish(event.AttemptSubmitted, AttemptSubmittedEvent{
		AttemptID:     attempt.ID,
		UserID:        attempt.UserID,
		QuizID:        attempt.QuizID,
		AttemptNumber: attempt.AttemptNumber,
		Status:        attempt.Status,
		Snapshot:      attempt.ScoreDetails.Snapshot,
	}); err != nil {
		logger.Log.Warn("publish attempt submitted event failed", zap.String("attempt_id", attempt.ID), zap.Error(err))
	}

	return result, nil
}

// SubmitQuizOnTimeout submits whatever was answered when the time ran out.
func (s *SubmissionService) SubmitQuizOnTimeout(ctx context.Context, attemptID string, responses []UserResponse) (*SubmissionResult, error) {
	return s.SubmitQuiz(ctx, attemptID, responses, model.SubmissionAutoTimeout)
}

func (s *SubmissionService) submitTx(ctx context.Context, tx *gorm.DB, attemptID string, responses []UserResponse, submissionType string) (*SubmissionResult, error) {
	attemptRepo := s.AttemptRepo.WithTx(tx)
	questionRepo := s.QuestionRepo.WithTx(tx)
	responseRepo := s.ResponseRepo.WithTx(tx)

	attempt, err := attemptRepo.FindByIDForUpdate(ctx, attemptID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, util.ErrAttemptNotFound
		}
		return nil, fmt.Errorf("load attempt %s: %w", attemptID, err)
	}
	if attempt.Status != model.AttemptInProgress {
		return nil, fmt.Errorf("%w: attempt %s is %s", util.ErrInvalidStatusTransition, attempt.ID, attempt.Status)
	}

	now := s.Now()
	seen := make(map[string]struct{}, len(responses))
	saved := make([]model.QuizResponse, 0, len(responses))
	for _, r := range responses {
		if _, dup := seen[r.QuestionID]; dup {
			return nil, fmt.Errorf("%w: question %s", util.ErrResponseAlreadyExists, r.QuestionID)
		}
		seen[r.QuestionID] = struct{}{}

		exists, err := responseRepo.Exists(ctx, attempt.UserID, r.QuestionID, attempt.AttemptNumber)
		if err != nil {
			return nil, fmt.Errorf("check response for question %s: %w", r.QuestionID, err)
		}
		if exists {
			return nil, fmt.Errorf("%w: question %s", util.ErrResponseAlreadyExists, r.QuestionID)
		}

		question, err := questionRepo.FindByID(ctx, r.QuestionID)
		if err != nil {
			if repository.IsNotFound(err) {
				return nil, fmt.Errorf("%w: %s", util.ErrQuestionNotFound, r.QuestionID)
			}
			return nil, fmt.Errorf("load question %s: %w", r.QuestionID, err)
		}
		if question.QuizID != attempt.QuizID {
			return nil, fmt.Errorf("%w: %s is not part of quiz %s", util.ErrQuestionNotFound, r.QuestionID, attempt.QuizID)
		}

		correct, points := grading.Score(r.UserAnswer, question)
		resp := model.QuizResponse{
			UserID:       attempt.UserID,
			QuizID:       attempt.QuizID,
			QuestionID:   question.ID,
			Attempt:      attempt.AttemptNumber,
			UserAnswer:   r.UserAnswer,
			IsCorrect:    correct,
			PointsEarned: points,
			AnsweredAt:   now,
		}
		if err := responseRepo.Create(ctx, &resp); err != nil {
			if repository.IsDuplicateKey(err) {
				return nil, fmt.Errorf("%w: question %s", util.ErrResponseAlreadyExists, r.QuestionID)
			}
			return nil, fmt.Errorf("save response for question %s: %w", r.QuestionID, err)
		}
		saved = append(saved, resp)
	}

	stored, err := responseRepo.ListByAttempt(ctx, attempt.UserID, attempt.QuizID, attempt.AttemptNumber)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	considered, err := consideredQuestions(ctx, questionRepo, attempt.QuizID, stored)
	if err != nil {
		return nil, err
	}

	snapshot := aggregate(stored, considered)
	snapshot.SubmissionType = submissionType
	snapshot.SubmittedAt = now

	status := model.AttemptCompleted
	if submissionType == model.SubmissionAutoTimeout {
		status = model.AttemptTimedOut
	}
	if err := applyPatch(attempt, AttemptPatch{Status: &status, ScoreDetails: &snapshot}, now); err != nil {
		return nil, err
	}
	if err := attemptRepo.Update(ctx, attempt); err != nil {
		return nil, fmt.Errorf("update attempt %s: %w", attempt.ID, err)
	}

	return &SubmissionResult{
		Attempt:          *attempt,
		Responses:        saved,
		TotalScore:       snapshot.TotalScore,
		MaxPossibleScore: snapshot.MaxPossibleScore,
		CorrectAnswers:   snapshot.CorrectAnswers,
		TotalQuestions:   snapshot.TotalQuestions,
		PercentageScore:  snapshot.PercentageScore,
	}, nil
}

// consideredQuestions are the answered questions, or every question of the
// quiz when nothing was answered.
func consideredQuestions(ctx context.Context, repo *repository.QuestionRepository, quizID string, stored []model.QuizResponse) ([]model.Question, error) {
	if len(stored) == 0 {
		questions, err := repo.ListByQuiz(ctx, quizID)
		if err != nil {
			return nil, fmt.Errorf("load questions of quiz %s: %w", quizID, err)
		}
		return questions, nil
	}
	ids := make([]string, 0, len(stored))
	seen := make(map[string]struct{}, len(stored))
	for _, r := range stored {
		if _, ok := seen[r.QuestionID]; ok {
			continue
		}
		seen[r.QuestionID] = struct{}{}
		ids = append(ids, r.QuestionID)
	}
	questions, err := repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load answered questions: %w", err)
	}
	return questions, nil
}

var hundred = decimal.NewFromInt(100)

// aggregate builds the score figures; SubmissionType and SubmittedAt are left
// to the caller.
func aggregate(stored []model.QuizResponse, considered []model.Question) model.ScoreSnapshot {
	total := decimal.Zero
	correct := 0
	for _, r := range stored {
		total = total.Add(r.PointsEarned)
		if r.IsCorrect {
			correct++
		}
	}
	max := decimal.Zero
	for _, q := range considered {
		max = max.Add(q.Points)
	}
	pct := decimal.Zero
	if !max.IsZero() {
		pct = total.Div(max).Mul(hundred).Round(2)
	}
	return model.ScoreSnapshot{
		TotalScore:       total,
		MaxPossibleScore: max,
		CorrectAnswers:   correct,
		TotalQuestions:   len(considered),
		PercentageScore:  pct,
	}
}

func isConflict(err error) bool {
	return err != nil && errors.Is(err, util.ErrResponseAlreadyExists)
}
