package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"course_quiz_backend/docs"
	"course_quiz_backend/internal/config"
	"course_quiz_backend/internal/model"
	"course_quiz_backend/internal/util"
	"course_quiz_backend/pkg/database"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const testSecret = "test-secret"

var dbSeq int64

func newTestApp(t *testing.T) *App {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:app_%d?mode=memory&cache=shared", atomic.AddInt64(&dbSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	cfg := &config.Config{
		Server:    config.ServerConfig{Mode: gin.TestMode},
		JWT:       config.JWTConfig{Secret: testSecret},
		RateLimit: config.RateLimitConfig{MaxRequests: 1000, WindowMinutes: 1},
		CORS:      config.CORSConfig{AllowedOrigins: []string{"*"}},
		Quiz: config.QuizConfig{
			DefaultQuestionsToShow: 10,
			PinRandomSelection:     true,
			LockBackend:            config.LockBackendLocal,
		},
	}
	a := newApp(cfg, db, nil, nil)
	t.Cleanup(func() {
		a.Close(context.Background())
		sqlDB.Close()
	})
	return a
}

func seedQuiz(t *testing.T, a *App, questions int) *model.Quiz {
	t.Helper()
	quiz := &model.Quiz{Title: "http quiz", AttemptsAllowed: 2, ShowResults: true, Active: true}
	if err := a.DB.Create(quiz).Error; err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	for i := 1; i <= questions; i++ {
		q := &model.Question{
			QuizID:        quiz.ID,
			Position:      i,
			QuestionType:  model.QuestionMCQSingle,
			Options:       datatypes.JSON(`["a","b"]`),
			CorrectAnswer: `["a"]`,
			Points:        decimal.NewFromInt(1),
		}
		if err := a.DB.Create(q).Error; err != nil {
			t.Fatalf("create question: %v", err)
		}
	}
	return quiz
}

func token(t *testing.T, userID uint, role model.UserRole) string {
	t.Helper()
	tok, err := util.GenerateJWT(userID, role, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}
	return tok
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func do(t *testing.T, a *App, method, path, tok string, body interface{}) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 && strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode %s %s: %v (%s)", method, path, err, w.Body.String())
		}
	}
	return w.Code, env
}

func TestHealth(t *testing.T) {
	a := newTestApp(t)
	code, env := do(t, a, http.MethodGet, "/api/health", "", nil)
	if code != http.StatusOK {
		t.Fatalf("health = %d %s", code, env.Message)
	}
}

func TestAuthRequired(t *testing.T) {
	a := newTestApp(t)
	code, _ := do(t, a, http.MethodPost, "/api/quizzes/x/attempts", "", nil)
	if code != http.StatusUnauthorized {
		t.Errorf("no token = %d, want 401", code)
	}
	code, _ = do(t, a, http.MethodPost, "/api/quizzes/x/attempts", "garbage", nil)
	if code != http.StatusUnauthorized {
		t.Errorf("bad token = %d, want 401", code)
	}
}

func TestAttemptFlow(t *testing.T) {
	a := newTestApp(t)
	quiz := seedQuiz(t, a, 2)
	student := token(t, 7, model.Student)

	code, env := do(t, a, http.MethodPost, "/api/quizzes/"+quiz.ID+"/attempts", student, nil)
	if code != http.StatusOK {
		t.Fatalf("create attempt = %d %s", code, env.Message)
	}
	var view struct {
		ID            string `json:"id"`
		AttemptNumber int    `json:"attemptNumber"`
		Status        string `json:"status"`
		AttemptsLeft  int    `json:"attemptsLeft"`
	}
	if err := json.Unmarshal(env.Data, &view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if view.AttemptNumber != 1 || view.Status != string(model.AttemptInProgress) || view.AttemptsLeft != 2 {
		t.Fatalf("unexpected view %+v", view)
	}

	code, env = do(t, a, http.MethodGet, "/api/quizzes/"+quiz.ID+"/attempts/1/questions", student, nil)
	if code != http.StatusOK {
		t.Fatalf("questions = %d %s", code, env.Message)
	}
	var questions []struct {
		ID            string `json:"id"`
		CorrectAnswer string `json:"correctAnswer"`
	}
	if err := json.Unmarshal(env.Data, &questions); err != nil {
		t.Fatalf("decode questions: %v", err)
	}
	if len(questions) != 2 {
		t.Fatalf("got %d questions, want 2", len(questions))
	}
	if strings.Contains(string(env.Data), "correctAnswer") {
		t.Error("correct answers leaked to the client")
	}

	other := token(t, 8, model.Student)
	code, _ = do(t, a, http.MethodGet, "/api/attempts/"+view.ID, other, nil)
	if code != http.StatusForbidden {
		t.Errorf("foreign read = %d, want 403", code)
	}
	teacher := token(t, 9, model.Teacher)
	code, _ = do(t, a, http.MethodGet, "/api/attempts/"+view.ID, teacher, nil)
	if code != http.StatusOK {
		t.Errorf("teacher read = %d, want 200", code)
	}
	code, _ = do(t, a, http.MethodPost, "/api/attempts/"+view.ID+"/abandon", teacher, nil)
	if code != http.StatusForbidden {
		t.Errorf("teacher abandon = %d, want 403", code)
	}

	submit := map[string]interface{}{
		"responses": []map[string]interface{}{
			{"questionId": questions[0].ID, "userAnswer": []string{"a"}},
			{"questionId": questions[1].ID, "userAnswer": "b"},
		},
	}
	code, env = do(t, a, http.MethodPost, "/api/attempts/"+view.ID+"/submit", student, submit)
	if code != http.StatusOK {
		t.Fatalf("submit = %d %s", code, env.Message)
	}
	var result struct {
		CorrectAnswers  int             `json:"correctAnswers"`
		PercentageScore decimal.Decimal `json:"percentageScore"`
	}
	if err := json.Unmarshal(env.Data, &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.CorrectAnswers != 1 || !result.PercentageScore.Equal(decimal.NewFromInt(50)) {
		t.Errorf("unexpected result %+v", result)
	}

	code, _ = do(t, a, http.MethodPost, "/api/attempts/"+view.ID+"/submit", student, submit)
	if code != http.StatusConflict {
		t.Errorf("second submit = %d, want 409", code)
	}

	code, env = do(t, a, http.MethodGet, "/api/attempts/"+view.ID+"/result", student, nil)
	if code != http.StatusOK {
		t.Fatalf("result = %d %s", code, env.Message)
	}
	if !strings.Contains(string(env.Data), `"isCorrect":true`) {
		t.Errorf("visible result should carry correctness: %s", env.Data)
	}

	code, env = do(t, a, http.MethodGet, "/api/quizzes/"+quiz.ID+"/attempts", student, nil)
	if code != http.StatusOK {
		t.Fatalf("list = %d %s", code, env.Message)
	}
	var list []json.RawMessage
	if err := json.Unmarshal(env.Data, &list); err != nil || len(list) != 1 {
		t.Errorf("list = %s (%v)", env.Data, err)
	}
}

func TestErrorMapping(t *testing.T) {
	a := newTestApp(t)
	student := token(t, 7, model.Student)

	code, _ := do(t, a, http.MethodPost, "/api/quizzes/missing/attempts", student, nil)
	if code != http.StatusNotFound {
		t.Errorf("missing quiz = %d, want 404", code)
	}
	code, _ = do(t, a, http.MethodGet, "/api/attempts/missing", student, nil)
	if code != http.StatusNotFound {
		t.Errorf("missing attempt = %d, want 404", code)
	}

	quiz := seedQuiz(t, a, 1)
	code, _ = do(t, a, http.MethodGet, "/api/quizzes/"+quiz.ID+"/attempts/zero/questions", student, nil)
	if code != http.StatusBadRequest {
		t.Errorf("bad attempt number = %d, want 400", code)
	}

	code, env := do(t, a, http.MethodPost, "/api/quizzes/"+quiz.ID+"/attempts", student, nil)
	if code != http.StatusOK {
		t.Fatalf("create = %d %s", code, env.Message)
	}
	var view struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(env.Data, &view)

	bad := map[string]interface{}{"submissionType": "LATE"}
	code, _ = do(t, a, http.MethodPost, "/api/attempts/"+view.ID+"/submit", student, bad)
	if code != http.StatusBadRequest {
		t.Errorf("unknown submission type = %d, want 400", code)
	}

	code, _ = do(t, a, http.MethodPost, "/api/attempts/"+view.ID+"/abandon", student, nil)
	if code != http.StatusOK {
		t.Fatalf("abandon = %d", code)
	}
	admin := token(t, 1, model.Admin)
	code, _ = do(t, a, http.MethodPost, "/api/attempts/"+view.ID+"/complete", admin, nil)
	if code != http.StatusConflict {
		t.Errorf("complete after abandon = %d, want 409", code)
	}
}

func createAttempt(t *testing.T, a *App, quizID, tok string) string {
	t.Helper()
	code, env := do(t, a, http.MethodPost, "/api/quizzes/"+quizID+"/attempts", tok, nil)
	if code != http.StatusOK {
		t.Fatalf("create attempt = %d %s", code, env.Message)
	}
	var view struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(env.Data, &view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	return view.ID
}

func TestStudentCannotWriteScore(t *testing.T) {
	a := newTestApp(t)
	quiz := seedQuiz(t, a, 2)
	student := token(t, 7, model.Student)
	id := createAttempt(t, a, quiz.ID, student)

	forged := map[string]interface{}{
		"status": "COMPLETED",
		"scoreDetails": map[string]interface{}{
			"totalScore":       "2",
			"maxPossibleScore": "2",
			"correctAnswers":   2,
			"percentageScore":  "100",
		},
	}
	tests := []struct {
		method string
		path   string
	}{
		{http.MethodPatch, "/api/attempts/" + id},
		{http.MethodPost, "/api/attempts/" + id + "/complete"},
		{http.MethodPost, "/api/attempts/" + id + "/timeout"},
		{http.MethodPost, "/api/attempts/" + id + "/abandon"},
	}
	for _, tt := range tests {
		code, _ := do(t, a, tt.method, tt.path, student, forged)
		if code != http.StatusForbidden {
			t.Errorf("%s %s = %d, want 403", tt.method, tt.path, code)
		}
	}

	var stored model.QuizAttempt
	if err := a.DB.First(&stored, "id = ?", id).Error; err != nil {
		t.Fatalf("reload attempt: %v", err)
	}
	if stored.Status != model.AttemptInProgress || stored.ScoreDetails.Valid {
		t.Fatalf("attempt changed: status %s, score valid %v", stored.Status, stored.ScoreDetails.Valid)
	}

	admin := token(t, 1, model.Admin)
	code, env := do(t, a, http.MethodPatch, "/api/attempts/"+id, admin, forged)
	if code != http.StatusOK {
		t.Fatalf("admin patch = %d %s", code, env.Message)
	}
}

func TestSubmitStringWrappedAnswers(t *testing.T) {
	a := newTestApp(t)
	quiz := seedQuiz(t, a, 2)
	student := token(t, 7, model.Student)
	id := createAttempt(t, a, quiz.ID, student)

	var questions []model.Question
	if err := a.DB.Where("quiz_id = ?", quiz.ID).Order("position").Find(&questions).Error; err != nil {
		t.Fatalf("load questions: %v", err)
	}
	submit := map[string]interface{}{
		"responses": []map[string]interface{}{
			{"questionId": questions[0].ID, "userAnswer": `["a"]`},
			{"questionId": questions[1].ID, "userAnswer": `{"answer":"a"}`},
		},
	}
	code, env := do(t, a, http.MethodPost, "/api/attempts/"+id+"/submit", student, submit)
	if code != http.StatusOK {
		t.Fatalf("submit = %d %s", code, env.Message)
	}
	var result struct {
		CorrectAnswers int `json:"correctAnswers"`
		Responses      []struct {
			UserAnswer string `json:"userAnswer"`
		} `json:"responses"`
	}
	if err := json.Unmarshal(env.Data, &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.CorrectAnswers != 2 {
		t.Errorf("correct answers = %d, want 2", result.CorrectAnswers)
	}
	if len(result.Responses) != 2 || result.Responses[0].UserAnswer != `["a"]` {
		t.Errorf("stored answers = %+v, want unwrapped json", result.Responses)
	}
}

func TestQuestionsLimitedToOwnAttempts(t *testing.T) {
	a := newTestApp(t)
	quiz := seedQuiz(t, a, 3)
	student := token(t, 7, model.Student)

	path := func(n int) string {
		return fmt.Sprintf("/api/quizzes/%s/attempts/%d/questions", quiz.ID, n)
	}
	code, _ := do(t, a, http.MethodGet, path(1), student, nil)
	if code != http.StatusNotFound {
		t.Errorf("questions before starting = %d, want 404", code)
	}

	createAttempt(t, a, quiz.ID, student)
	code, _ = do(t, a, http.MethodGet, path(1), student, nil)
	if code != http.StatusOK {
		t.Errorf("own attempt questions = %d, want 200", code)
	}
	code, _ = do(t, a, http.MethodGet, path(2), student, nil)
	if code != http.StatusNotFound {
		t.Errorf("future attempt questions = %d, want 404", code)
	}

	teacher := token(t, 9, model.Teacher)
	code, _ = do(t, a, http.MethodGet, path(2), teacher, nil)
	if code != http.StatusOK {
		t.Errorf("staff preview = %d, want 200", code)
	}
}

func TestSwaggerDocCoversRoutes(t *testing.T) {
	a := newTestApp(t)

	var doc struct {
		Paths map[string]map[string]json.RawMessage `json:"paths"`
	}
	if err := json.Unmarshal([]byte(docs.SwaggerInfo.ReadDoc()), &doc); err != nil {
		t.Fatalf("swagger doc is not valid json: %v", err)
	}

	for _, r := range a.Router.Routes() {
		if !strings.HasPrefix(r.Path, "/api/") {
			continue
		}
		segments := strings.Split(r.Path, "/")
		for i, seg := range segments {
			if strings.HasPrefix(seg, ":") {
				segments[i] = "{" + seg[1:] + "}"
			}
		}
		path := strings.Join(segments, "/")
		if _, ok := doc.Paths[path][strings.ToLower(r.Method)]; !ok {
			t.Errorf("route %s %s is missing from docs/docs.go; run go generate", r.Method, path)
		}
	}
}
