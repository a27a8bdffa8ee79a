package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "IN_PROGRESS"
	AttemptCompleted  AttemptStatus = "COMPLETED"
	AttemptAbandoned  AttemptStatus = "ABANDONED"
	AttemptTimedOut   AttemptStatus = "TIMED_OUT"
)

func (s AttemptStatus) IsTerminal() bool {
	switch s {
	case AttemptCompleted, AttemptAbandoned, AttemptTimedOut:
		return true
	}
	return false
}

func (s AttemptStatus) IsValid() bool {
	return s == AttemptInProgress || s.IsTerminal()
}

// swagger:model QuizAttempt
type QuizAttempt struct {
	UUIDBase

	UserID        uint          `gorm:"index:idx_attempt_user_quiz;uniqueIndex:idx_attempt_user_quiz_number;type:bigint unsigned;not null" json:"userId"`
	QuizID        string        `gorm:"size:36;index:idx_attempt_user_quiz;uniqueIndex:idx_attempt_user_quiz_number;not null" json:"quizId"`
	AttemptNumber int           `gorm:"uniqueIndex:idx_attempt_user_quiz_number;not null" json:"attemptNumber"`
	Status        AttemptStatus `gorm:"size:20;index;not null" json:"status"`
	StartedAt     time.Time     `json:"startedAt"`
	FinishedAt    *time.Time    `json:"finishedAt,omitempty"`
	ScoreDetails  ScoreDetails  `json:"scoreDetails"`

	// ActiveKey is "<user>:<quiz>" while IN_PROGRESS and NULL afterwards; its
	// unique index allows a single open attempt per user and quiz.
	ActiveKey *string `gorm:"size:80;uniqueIndex:idx_attempt_active" json:"-"`

	// QuestionOrder pins the randomized question selection of an open attempt.
	QuestionOrder QuestionOrder `json:"-"`
}

func (QuizAttempt) TableName() string {
	return "quiz_attempts"
}

func ActiveAttemptKey(userID uint, quizID string) string {
	return fmt.Sprintf("%d:%s", userID, quizID)
}

// QuestionOrder is the pinned list of question ids. An empty order is stored
// as NULL.
type QuestionOrder []string

func (QuestionOrder) GormDataType() string {
	return "json"
}

func (o *QuestionOrder) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*o = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported question order value %T", value)
	}
	if len(raw) == 0 || string(raw) == "null" {
		*o = nil
		return nil
	}
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return fmt.Errorf("decode question order: %w", err)
	}
	*o = ids
	return nil
}

func (o QuestionOrder) Value() (driver.Value, error) {
	if len(o) == 0 {
		return nil, nil
	}
	b, err := json.Marshal([]string(o))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
