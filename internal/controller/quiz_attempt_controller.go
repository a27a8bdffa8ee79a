package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"course_quiz_backend/internal/grading"
	"course_quiz_backend/internal/model"
	"course_quiz_backend/internal/service"
	"course_quiz_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type QuizAttemptController struct {
	AttemptService    *service.AttemptService
	PoolService       *service.QuestionPoolService
	SubmissionService *service.SubmissionService
}

func NewQuizAttemptController(
	attemptService *service.AttemptService,
	poolService *service.QuestionPoolService,
	submissionService *service.SubmissionService,
) *QuizAttemptController {
	return &QuizAttemptController{
		AttemptService:    attemptService,
		PoolService:       poolService,
		SubmissionService: submissionService,
	}
}

// SubmitAnswerReq userAnswer 原样保存，可以是数组、对象、字符串或数字
type SubmitAnswerReq struct {
	QuestionID string          `json:"questionId" binding:"required"`
	UserAnswer json.RawMessage `json:"userAnswer" swaggertype:"object"`
}

type SubmitReq struct {
	Responses      []SubmitAnswerReq `json:"responses"`
	SubmissionType string            `json:"submissionType" binding:"omitempty,oneof=MANUAL AUTO_TIMEOUT"`
}

type FinishReq struct {
	ScoreDetails *model.ScoreSnapshot `json:"scoreDetails"`
}

func (r SubmitReq) userResponses() []service.UserResponse {
	out := make([]service.UserResponse, 0, len(r.Responses))
	for _, a := range r.Responses {
		out = append(out, service.UserResponse{
			QuestionID: a.QuestionID,
			UserAnswer: grading.UnwrapAnswer(string(a.UserAnswer)),
		})
	}
	return out
}

// @Summary 开始或恢复测验尝试
// @Tags 测验尝试
// @Produce json
// @Security BearerAuth
// @Param quizId path string true "测验ID"
// @Success 200 {object} util.Response{data=service.AttemptView}
// @Failure 400 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/quizzes/{quizId}/attempts [post]
func (c *QuizAttemptController) CreateAttempt(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	view, err := c.AttemptService.CreateAttempt(ctx.Request.Context(), user.UserID, ctx.Param("quizId"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// @Summary 获取用户在测验中的尝试历史
// @Tags 测验尝试
// @Produce json
// @Security BearerAuth
// @Param quizId path string true "测验ID"
// @Success 200 {object} util.Response{data=[]model.QuizAttempt}
// @Failure 404 {object} util.Response
// @Router /api/quizzes/{quizId}/attempts [get]
func (c *QuizAttemptController) ListAttempts(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	attempts, err := c.AttemptService.ListAttempts(ctx.Request.Context(), user.UserID, ctx.Param("quizId"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, attempts)
}

// @Summary 获取某次尝试的题目
// @Description 学生只能获取自己已开始的尝试
// @Tags 测验尝试
// @Produce json
// @Security BearerAuth
// @Param quizId path string true "测验ID"
// @Param attemptNumber path int true "尝试序号"
// @Success 200 {object} util.Response{data=[]model.Question}
// @Failure 404 {object} util.Response
// @Router /api/quizzes/{quizId}/attempts/{attemptNumber}/questions [get]
func (c *QuizAttemptController) GetQuestions(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	attemptNumber, ok := util.ParsePositiveInt(ctx.Param("attemptNumber"))
	if !ok {
		util.BadRequest(ctx, "attemptNumber must be a positive integer")
		return
	}

	// 学生只能查看自己已开始的尝试，避免提前浏览后续尝试的题目
	if !user.Role.CanSeeAllResults() {
		if _, err := c.AttemptService.GetAttemptByNumber(ctx.Request.Context(), user.UserID, ctx.Param("quizId"), attemptNumber); err != nil {
			respondError(ctx, err)
			return
		}
	}

	questions, err := c.PoolService.SelectQuestionsForAttempt(ctx.Request.Context(), ctx.Param("quizId"), user.UserID, attemptNumber)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, questions)
}

// @Summary 获取尝试详情
// @Tags 测验尝试
// @Produce json
// @Security BearerAuth
// @Param attemptId path string true "尝试ID"
// @Success 200 {object} util.Response{data=model.QuizAttempt}
// @Failure 403 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/attempts/{attemptId} [get]
func (c *QuizAttemptController) GetAttempt(ctx *gin.Context) {
	attempt, _, ok := c.loadAttempt(ctx, false)
	if !ok {
		return
	}
	util.Success(ctx, attempt)
}

// @Summary 获取尝试成绩与作答
// @Description 测验不公开成绩时，学生只能看到作答内容
// @Tags 测验尝试
// @Produce json
// @Security BearerAuth
// @Param attemptId path string true "尝试ID"
// @Success 200 {object} util.Response{data=service.AttemptResult}
// @Failure 403 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/attempts/{attemptId}/result [get]
func (c *QuizAttemptController) GetResult(ctx *gin.Context) {
	attempt, user, ok := c.loadAttempt(ctx, false)
	if !ok {
		return
	}

	result, err := c.AttemptService.GetAttemptResult(ctx.Request.Context(), attempt.ID, user.Role.CanSeeAllResults())
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// @Summary 更新尝试
// @Description 仅管理员
// @Tags 测验尝试
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param attemptId path string true "尝试ID"
// @Param body body service.AttemptPatch true "更新字段"
// @Success 200 {object} util.Response{data=model.QuizAttempt}
// @Failure 403 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /api/attempts/{attemptId} [patch]
func (c *QuizAttemptController) UpdateAttempt(ctx *gin.Context) {
	var patch service.AttemptPatch
	if err := ctx.ShouldBindJSON(&patch); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	attempt, user, ok := c.loadAttempt(ctx, true)
	if !ok {
		return
	}
	if !user.IsAdmin() {
		respondError(ctx, util.ErrPermissionDenied)
		return
	}

	updated, err := c.AttemptService.UpdateAttempt(ctx.Request.Context(), attempt.ID, patch)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, updated)
}

// @Summary 完成尝试
// @Description 仅管理员
// @Tags 测验尝试
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param attemptId path string true "尝试ID"
// @Param body body FinishReq false "成绩快照"
// @Success 200 {object} util.Response{data=model.QuizAttempt}
// @Failure 403 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /api/attempts/{attemptId}/complete [post]
func (c *QuizAttemptController) CompleteAttempt(ctx *gin.Context) {
	c.finish(ctx, c.AttemptService.CompleteAttempt)
}

// @Summary 放弃尝试
// @Description 非管理员不能携带成绩快照
// @Tags 测验尝试
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param attemptId path string true "尝试ID"
// @Param body body FinishReq false "成绩快照"
// @Success 200 {object} util.Response{data=model.QuizAttempt}
// @Failure 403 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /api/attempts/{attemptId}/abandon [post]
func (c *QuizAttemptController) AbandonAttempt(ctx *gin.Context) {
	c.finish(ctx, c.AttemptService.AbandonAttempt)
}

// @Summary 标记尝试超时
// @Description 仅管理员
// @Tags 测验尝试
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param attemptId path string true "尝试ID"
// @Param body body FinishReq false "成绩快照"
// @Success 200 {object} util.Response{data=model.QuizAttempt}
// @Failure 403 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /api/attempts/{attemptId}/timeout [post]
func (c *QuizAttemptController) TimeoutAttempt(ctx *gin.Context) {
	c.finish(ctx, c.AttemptService.TimeoutAttempt)
}

type finishFunc func(ctx context.Context, attemptID string, score *model.ScoreSnapshot) (*model.QuizAttempt, error)

func (c *QuizAttemptController) finish(ctx *gin.Context, fn finishFunc) {
	var req FinishReq
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			util.BadRequest(ctx, err.Error())
			return
		}
	}

	attempt, user, ok := c.loadAttempt(ctx, true)
	if !ok {
		return
	}
	if req.ScoreDetails != nil && !user.IsAdmin() {
		// 学生的成绩只能来自提交评分
		respondError(ctx, util.ErrPermissionDenied)
		return
	}

	updated, err := fn(ctx.Request.Context(), attempt.ID, req.ScoreDetails)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, updated)
}

// @Summary 提交测验
// @Tags 测验尝试
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param attemptId path string true "尝试ID"
// @Param body body SubmitReq true "作答列表"
// @Success 200 {object} util.Response{data=service.SubmissionResult}
// @Failure 404 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /api/attempts/{attemptId}/submit [post]
func (c *QuizAttemptController) Submit(ctx *gin.Context) {
	var req SubmitReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	attempt, _, ok := c.loadAttempt(ctx, true)
	if !ok {
		return
	}

	submissionType := req.SubmissionType
	if submissionType == "" {
		submissionType = model.SubmissionManual
	}
	result, err := c.SubmissionService.SubmitQuiz(ctx.Request.Context(), attempt.ID, req.userResponses(), submissionType)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// @Summary 超时自动提交
// @Tags 测验尝试
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param attemptId path string true "尝试ID"
// @Param body body SubmitReq false "已作答的题目"
// @Success 200 {object} util.Response{data=service.SubmissionResult}
// @Failure 409 {object} util.Response
// @Router /api/attempts/{attemptId}/submit-timeout [post]
func (c *QuizAttemptController) SubmitOnTimeout(ctx *gin.Context) {
	var req SubmitReq
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			util.BadRequest(ctx, err.Error())
			return
		}
	}

	attempt, _, ok := c.loadAttempt(ctx, true)
	if !ok {
		return
	}

	result, err := c.SubmissionService.SubmitQuizOnTimeout(ctx.Request.Context(), attempt.ID, req.userResponses())
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// loadAttempt resolves :attemptId and checks access. Owners always pass;
// staff may read any attempt and only admins may change someone else's.
func (c *QuizAttemptController) loadAttempt(ctx *gin.Context, write bool) (*model.QuizAttempt, *util.Claims, bool) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return nil, nil, false
	}

	attempt, err := c.AttemptService.GetAttempt(ctx.Request.Context(), ctx.Param("attemptId"))
	if err != nil {
		respondError(ctx, err)
		return nil, nil, false
	}

	allowed := service.IsAttemptOwner(attempt, user.UserID) || user.IsAdmin()
	if !write && user.Role.CanSeeAllResults() {
		allowed = true
	}
	if !allowed {
		respondError(ctx, util.ErrPermissionDenied)
		return nil, nil, false
	}
	return attempt, user, true
}

func respondError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrPermissionDenied):
		util.Forbidden(ctx)
	case errors.Is(err, util.ErrNotFound):
		util.NotFound(ctx, err.Error())
	case errors.Is(err, util.ErrAlreadyExists):
		util.Conflict(ctx, err.Error())
	case errors.Is(err, util.ErrInvalidStatusTransition):
		util.Conflict(ctx, err.Error())
	case errors.Is(err, util.ErrInvalidState):
		util.BadRequest(ctx, err.Error())
	case errors.Is(err, service.ErrLockTimeout):
		util.Error(ctx, http.StatusTooManyRequests, "attempt is being created, retry shortly")
	default:
		util.LogInternalError(ctx, err)
	}
}
