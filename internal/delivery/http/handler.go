package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/foodlog/backend/internal/domain"
	"github.com/foodlog/backend/internal/usecase"
)

const (
	serviceName = "foodlog-backend"
	version     = "1.0.0"

	analyzeErrorMessage  = "Error analyzing food intake"
	internalErrorMessage = "Internal server error"
)

// Diary is the caller-side persistence the day-log endpoints need
type Diary interface {
	GetProfile(ctx context.Context, userID string) (*domain.UserProfile, error)
	SaveProfile(ctx context.Context, profile *domain.UserProfile) (*domain.UserProfile, error)
	GetDay(ctx context.Context, userID, date string) (*domain.DailyLog, error)
	ListDays(ctx context.Context, userID, month string) ([]domain.DailyLog, error)
	AnalyzeIntoDay(ctx context.Context, userID, date, text string, goals *domain.UserGoals) (*usecase.DayAnalysis, error)
	AddFood(ctx context.Context, userID, date string, item domain.ResolvedFoodItem) (*domain.DailyLog, error)
	UpdateFood(ctx context.Context, userID, date, foodID string, item domain.ResolvedFoodItem) (*domain.DailyLog, error)
	DeleteFood(ctx context.Context, userID, date, foodID string) (*domain.DailyLog, error)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	analyzer usecase.Analyzer
	diary    Diary
	logger   *zap.Logger
}

// NewHandler creates a new HTTP handler. A nil analyzer or diary makes the
// corresponding endpoints answer 503.
func NewHandler(analyzer usecase.Analyzer, diary Diary, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		analyzer: analyzer,
		diary:    diary,
		logger:   logger,
	}
}

// profileRequest is the body of PUT /users/:userId
type profileRequest struct {
	Name   string            `json:"name"`
	Age    *domain.FlexFloat `json:"age"`
	Weight *domain.FlexFloat `json:"weight"`
	Height *domain.FlexFloat `json:"height"`
	Goals  *domain.UserGoals `json:"goals"`
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": serviceName,
		"version": version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// AnalyzeFood runs the analysis pipeline on free text
func (h *Handler) AnalyzeFood(c *gin.Context) {
	if h.analyzer == nil {
		h.notConfigured(c, "analysis")
		return
	}

	var req domain.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Text input is required"})
		return
	}

	result, err := h.analyzer.Analyze(c.Request.Context(), req.Text, req.UserGoals)
	if err != nil {
		h.respondError(c, err, analyzeErrorMessage)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetProfile returns a stored user profile
func (h *Handler) GetProfile(c *gin.Context) {
	if !h.diaryReady(c) {
		return
	}

	profile, err := h.diary.GetProfile(c.Request.Context(), c.Param("userId"))
	if err != nil {
		h.respondError(c, err, internalErrorMessage)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// SaveProfile creates or replaces a user profile
func (h *Handler) SaveProfile(c *gin.Context) {
	if !h.diaryReady(c) {
		return
	}

	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid profile body"})
		return
	}

	profile, err := h.diary.SaveProfile(c.Request.Context(), &domain.UserProfile{
		ID:     c.Param("userId"),
		Name:   req.Name,
		Age:    req.Age,
		Weight: req.Weight,
		Height: req.Height,
		Goals:  req.Goals,
	})
	if err != nil {
		h.respondError(c, err, internalErrorMessage)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// ListDays returns the user's day logs for ?month=YYYY-MM, or all of them
func (h *Handler) ListDays(c *gin.Context) {
	if !h.diaryReady(c) {
		return
	}

	days, err := h.diary.ListDays(c.Request.Context(), c.Param("userId"), c.Query("month"))
	if err != nil {
		h.respondError(c, err, internalErrorMessage)
		return
	}
	c.JSON(http.StatusOK, gin.H{"days": days})
}

// GetDay returns one day log
func (h *Handler) GetDay(c *gin.Context) {
	if !h.diaryReady(c) {
		return
	}

	day, err := h.diary.GetDay(c.Request.Context(), c.Param("userId"), c.Param("date"))
	if err != nil {
		h.respondError(c, err, internalErrorMessage)
		return
	}
	c.JSON(http.StatusOK, day)
}

// AnalyzeIntoDay analyzes text and merges the result into a day log
func (h *Handler) AnalyzeIntoDay(c *gin.Context) {
	if !h.diaryReady(c) {
		return
	}

	var req domain.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Text input is required"})
		return
	}

	analysis, err := h.diary.AnalyzeIntoDay(c.Request.Context(), c.Param("userId"), c.Param("date"), req.Text, req.UserGoals)
	if err != nil {
		h.respondError(c, err, analyzeErrorMessage)
		return
	}
	c.JSON(http.StatusOK, analysis)
}

// AddFood appends a manually entered food to a day log
func (h *Handler) AddFood(c *gin.Context) {
	if !h.diaryReady(c) {
		return
	}

	var item domain.ResolvedFoodItem
	if err := c.ShouldBindJSON(&item); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid food body"})
		return
	}

	day, err := h.diary.AddFood(c.Request.Context(), c.Param("userId"), c.Param("date"), item)
	if err != nil {
		h.respondError(c, err, internalErrorMessage)
		return
	}
	c.JSON(http.StatusCreated, day)
}

// UpdateFood replaces a logged food
func (h *Handler) UpdateFood(c *gin.Context) {
	if !h.diaryReady(c) {
		return
	}

	var item domain.ResolvedFoodItem
	if err := c.ShouldBindJSON(&item); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid food body"})
		return
	}

	day, err := h.diary.UpdateFood(c.Request.Context(), c.Param("userId"), c.Param("date"), c.Param("foodId"), item)
	if err != nil {
		h.respondError(c, err, internalErrorMessage)
		return
	}
	c.JSON(http.StatusOK, day)
}

// DeleteFood removes a logged food
func (h *Handler) DeleteFood(c *gin.Context) {
	if !h.diaryReady(c) {
		return
	}

	day, err := h.diary.DeleteFood(c.Request.Context(), c.Param("userId"), c.Param("date"), c.Param("foodId"))
	if err != nil {
		h.respondError(c, err, internalErrorMessage)
		return
	}
	c.JSON(http.StatusOK, day)
}

func (h *Handler) diaryReady(c *gin.Context) bool {
	if h.diary == nil {
		h.notConfigured(c, "diary")
		return false
	}
	return true
}

func (h *Handler) notConfigured(c *gin.Context, what string) {
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": what + " service not configured"})
}

// respondError maps domain errors to status codes. Server-side failures
// answer with the generic message and are logged with the cause.
func (h *Handler) respondError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
	default:
		fields := []zap.Field{
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		}
		var pe *domain.PipelineError
		if errors.As(err, &pe) {
			fields = append(fields, zap.String("stage", pe.Stage))
		}
		h.logger.Error("request failed", fields...)
		c.JSON(http.StatusInternalServerError, gin.H{"error": message})
	}
}
