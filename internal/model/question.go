package model

import (
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type QuestionType string

const (
	QuestionMCQSingle   QuestionType = "MCQ_SINGLE"
	QuestionMCQMultiple QuestionType = "MCQ_MULTIPLE"
	QuestionShortAnswer QuestionType = "SHORT_ANSWER"
)

// swagger:model Question
type Question struct {
	UUIDBase

	QuizID        string          `gorm:"size:36;not null;uniqueIndex:idx_question_quiz_position" json:"quizId"`
	Position      int             `gorm:"not null;uniqueIndex:idx_question_quiz_position" json:"position"`
	QuestionType  QuestionType    `gorm:"size:32;not null" json:"questionType"`
	Content       string          `gorm:"type:text" json:"content"`
	Options       datatypes.JSON  `gorm:"not null" json:"options"` // 选择题选项（JSON array），简答题为 []
	CorrectAnswer string          `gorm:"type:text" json:"-"`      // JSON 数组/对象/字符串或纯文本
	Points        decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"points"`
}

func (Question) TableName() string {
	return "quiz_questions"
}
