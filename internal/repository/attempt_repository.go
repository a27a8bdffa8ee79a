package repository

import (
	"context"

	"course_quiz_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AttemptRepository struct {
	DB *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: db}
}

func (r *AttemptRepository) WithTx(tx *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: tx}
}

// question_order is written only by PinQuestionOrder.
func (r *AttemptRepository) Create(ctx context.Context, attempt *model.QuizAttempt) error {
	return r.DB.WithContext(ctx).Omit("question_order").Create(attempt).Error
}

func (r *AttemptRepository) Update(ctx context.Context, attempt *model.QuizAttempt) error {
	return r.DB.WithContext(ctx).Omit("question_order").Save(attempt).Error
}

func (r *AttemptRepository) FindByID(ctx context.Context, id string) (*model.QuizAttempt, error) {
	var a model.QuizAttempt
	if err := r.DB.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// FindByIDForUpdate locks the attempt row for the rest of the transaction.
// Dialectors without row locks (sqlite) ignore the clause.
func (r *AttemptRepository) FindByIDForUpdate(ctx context.Context, id string) (*model.QuizAttempt, error) {
	var a model.QuizAttempt
	err := r.DB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&a, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// FindActive returns the IN_PROGRESS attempt of the user for the quiz, or nil.
func (r *AttemptRepository) FindActive(ctx context.Context, userID uint, quizID string) (*model.QuizAttempt, error) {
	var attempts []model.QuizAttempt
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND quiz_id = ? AND status = ?", userID, quizID, model.AttemptInProgress).
		Limit(1).
		Find(&attempts).Error
	if err != nil || len(attempts) == 0 {
		return nil, err
	}
	return &attempts[0], nil
}

func (r *AttemptRepository) FindByNumber(ctx context.Context, userID uint, quizID string, number int) (*model.QuizAttempt, error) {
	var a model.QuizAttempt
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND quiz_id = ? AND attempt_number = ?", userID, quizID, number).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AttemptRepository) CountFinished(ctx context.Context, userID uint, quizID string) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.QuizAttempt{}).
		Where("user_id = ? AND quiz_id = ? AND status <> ?", userID, quizID, model.AttemptInProgress).
		Count(&count).Error
	return count, err
}

func (r *AttemptRepository) MaxFinishedNumber(ctx context.Context, userID uint, quizID string) (int, error) {
	var max *int
	err := r.DB.WithContext(ctx).Model(&model.QuizAttempt{}).
		Where("user_id = ? AND quiz_id = ? AND status <> ?", userID, quizID, model.AttemptInProgress).
		Select("MAX(attempt_number)").
		Scan(&max).Error
	if err != nil || max == nil {
		return 0, err
	}
	return *max, nil
}

func (r *AttemptRepository) ListByUserAndQuiz(ctx context.Context, userID uint, quizID string) ([]model.QuizAttempt, error) {
	var attempts []model.QuizAttempt
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND quiz_id = ?", userID, quizID).
		Order("attempt_number asc").
		Find(&attempts).Error
	return attempts, err
}

// PinQuestionOrder stores the selection only while the attempt is still open
// and has no pinned order yet. It reports whether the row was updated.
func (r *AttemptRepository) PinQuestionOrder(ctx context.Context, attemptID string, ids []string) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&model.QuizAttempt{}).
		Where("id = ? AND status = ? AND question_order IS NULL", attemptID, model.AttemptInProgress).
		Update("question_order", model.QuestionOrder(ids))
	return res.RowsAffected > 0, res.Error
}
