package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// QuizResponse 用户在某次尝试中对单题的作答
// Attempt holds the attempt number rather than the attempt id so history
// queries do not depend on the attempt row.
type QuizResponse struct {
	UUIDBase

	UserID       uint            `gorm:"uniqueIndex:idx_response_user_question_attempt;type:bigint unsigned;not null" json:"userId"`
	QuizID       string          `gorm:"size:36;index;not null" json:"quizId"`
	QuestionID   string          `gorm:"size:36;uniqueIndex:idx_response_user_question_attempt;not null" json:"questionId"`
	Attempt      int             `gorm:"uniqueIndex:idx_response_user_question_attempt;not null" json:"attempt"`
	UserAnswer   string          `gorm:"type:text" json:"userAnswer"`
	IsCorrect    bool            `json:"isCorrect"`
	PointsEarned decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"pointsEarned"`
	AnsweredAt   time.Time       `json:"answeredAt"`
}

func (QuizResponse) TableName() string {
	return "quiz_responses"
}
