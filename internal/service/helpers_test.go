package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"course_quiz_backend/internal/config"
	"course_quiz_backend/internal/model"
	"course_quiz_backend/internal/repository"
	"course_quiz_backend/pkg/database"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var dbSeq int64

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, atomic.AddInt64(&dbSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

type fixture struct {
	db         *gorm.DB
	quizzes    *repository.QuizRepository
	questions  *repository.QuestionRepository
	attempts   *repository.AttemptRepository
	responses  *repository.ResponseRepository
	pool       *QuestionPoolService
	attemptSvc *AttemptService
	submitSvc  *SubmissionService
	events     *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	f := &fixture{
		db:        db,
		quizzes:   repository.NewQuizRepository(db),
		questions: repository.NewQuestionRepository(db),
		attempts:  repository.NewAttemptRepository(db),
		responses: repository.NewResponseRepository(db),
		events:    &recordingPublisher{},
	}
	settings := NewQuizSettings(config.QuizConfig{DefaultQuestionsToShow: DefaultQuestionsToShow, PinRandomSelection: true})
	f.pool = NewQuestionPoolService(f.quizzes, f.questions, f.attempts, settings)
	f.attemptSvc = NewAttemptService(db, f.quizzes, f.questions, f.attempts, f.responses, NewLocalLocker(), f.events)
	f.submitSvc = NewSubmissionService(db, f.attempts, f.questions, f.responses, f.events)
	return f
}

func (f *fixture) seedQuiz(t *testing.T, quiz model.Quiz, questions ...model.Question) *model.Quiz {
	t.Helper()
	ctx := context.Background()
	if quiz.Title == "" {
		quiz.Title = "quiz"
	}
	if err := f.quizzes.Create(ctx, &quiz); err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	for i := range questions {
		questions[i].QuizID = quiz.ID
		if questions[i].Position == 0 {
			questions[i].Position = i + 1
		}
		if questions[i].QuestionType == "" {
			questions[i].QuestionType = model.QuestionMCQSingle
		}
		if questions[i].Options == nil {
			questions[i].Options = datatypes.JSON(`[]`)
		}
	}
	if err := f.questions.CreateBatch(ctx, questions); err != nil {
		t.Fatalf("create questions: %v", err)
	}
	return &quiz
}

// numbered returns n single choice questions worth one point whose correct
// answer is "a".
func numbered(n int) []model.Question {
	qs := make([]model.Question, n)
	for i := range qs {
		qs[i] = model.Question{
			Content:       fmt.Sprintf("question %d", i+1),
			CorrectAnswer: `["a"]`,
			Points:        decimal.NewFromInt(1),
		}
	}
	return qs
}

func (f *fixture) listQuestions(t *testing.T, quizID string) []model.Question {
	t.Helper()
	qs, err := f.questions.ListByQuiz(context.Background(), quizID)
	if err != nil {
		t.Fatalf("list questions: %v", err)
	}
	return qs
}

func positions(qs []model.Question) []int {
	out := make([]int, len(qs))
	for i, q := range qs {
		out[i] = q.Position
	}
	return out
}

func intPtr(v int) *int { return &v }

type recordingPublisher struct {
	mu    sync.Mutex
	types []string
}

func (p *recordingPublisher) Publish(eventType string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.types = append(p.types, eventType)
	return nil
}

func (p *recordingPublisher) count(eventType string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, t := range p.types {
		if t == eventType {
			n++
		}
	}
	return n
}

func (p *recordingPublisher) Close() {}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
