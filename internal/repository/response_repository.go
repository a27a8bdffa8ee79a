package repository

import (
	"context"

	"course_quiz_backend/internal/model"

	"gorm.io/gorm"
)

type ResponseRepository struct {
	DB *gorm.DB
}

func NewResponseRepository(db *gorm.DB) *ResponseRepository {
	return &ResponseRepository{DB: db}
}

func (r *ResponseRepository) WithTx(tx *gorm.DB) *ResponseRepository {
	return &ResponseRepository{DB: tx}
}

func (r *ResponseRepository) Create(ctx context.Context, resp *model.QuizResponse) error {
	return r.DB.WithContext(ctx).Create(resp).Error
}

func (r *ResponseRepository) Exists(ctx context.Context, userID uint, questionID string, attempt int) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.QuizResponse{}).
		Where("user_id = ? AND question_id = ? AND attempt = ?", userID, questionID, attempt).
		Count(&count).Error
	return count > 0, err
}

func (r *ResponseRepository) ListByAttempt(ctx context.Context, userID uint, quizID string, attempt int) ([]model.QuizResponse, error) {
	var responses []model.QuizResponse
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND quiz_id = ? AND attempt = ?", userID, quizID, attempt).
		Order("answered_at asc").
		Find(&responses).Error
	return responses, err
}
