package model

const (
	ParentTypeCourse        = "course"
	ParentTypeCourseContent = "course-content"
)

// swagger:model Quiz
type Quiz struct {
	UUIDBase

	Title              string `gorm:"size:255;not null" json:"title"`
	ParentType         string `gorm:"size:32;index:idx_quiz_parent" json:"parentType"`
	ParentID           string `gorm:"size:36;index:idx_quiz_parent" json:"parentId"`
	AttemptsAllowed    int    `gorm:"not null" json:"attemptsAllowed"`
	QuestionsToShow    *int   `json:"questionsToShow,omitempty"` // nil 或 <=0 时使用默认值
	RandomizeQuestions bool   `json:"randomizeQuestions"`
	ShowResults        bool   `json:"showResults"`
	Active             bool   `json:"active"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

// AllowedAttempts never reports fewer than one attempt.
func (q *Quiz) AllowedAttempts() int {
	if q.AttemptsAllowed < 1 {
		return 1
	}
	return q.AttemptsAllowed
}
