package api

import (
	"alcyxob/wellness-app/internal/domain"
	"alcyxob/wellness-app/internal/logger"
	"alcyxob/wellness-app/internal/quota"
	"alcyxob/wellness-app/internal/service"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PlanHandler struct {
	planService service.PlanService
	log         *logger.Logger
}

func NewPlanHandler(planService service.PlanService, log *logger.Logger) *PlanHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &PlanHandler{planService: planService, log: log}
}

// --- Request/Response Structs ---

type CreatePlanRequest struct {
	Kind       domain.PlanKind     `json:"kind" binding:"required,oneof=exercise nutrition"`
	Name       string              `json:"name"`
	TotalDays  int                 `json:"totalDays"`
	Difficulty domain.Difficulty   `json:"difficulty" binding:"omitempty,oneof=beginner intermediate advanced"`
	Category   string              `json:"category"`
	Profile    domain.UserProfile  `json:"profile"`
	Settings   domain.PlanSettings `json:"settings"`
	StartDate  *time.Time          `json:"startDate"`
}

// PlanSummaryResponse is the list view of a plan.
type PlanSummaryResponse struct {
	ID         string                  `json:"id"`
	Kind       domain.PlanKind         `json:"kind"`
	Name       string                  `json:"name,omitempty"`
	TotalDays  int                     `json:"totalDays"`
	CurrentDay int                     `json:"currentDay"`
	Status     domain.PlanStatus       `json:"status"`
	Generation domain.GenerationStatus `json:"generation"`
	Degraded   bool                    `json:"degraded"`
	Progress   domain.PlanProgress     `json:"progress"`
	CreatedAt  time.Time               `json:"createdAt"`
}

type CompleteDayRequest struct {
	Status          domain.CompletionStatus `json:"status" binding:"omitempty,oneof=completed partially_completed"`
	Rating          int                     `json:"rating" binding:"min=0,max=5"`
	Feedback        string                  `json:"feedback"`
	CompletedItems  int                     `json:"completedItems" binding:"min=0"`
	DurationMinutes int                     `json:"durationMinutes" binding:"min=0"`
	Performance     domain.DayPerformance   `json:"performance"`
}

type SkipDayRequest struct {
	Reason string `json:"reason"`
}

type UpdateStatusRequest struct {
	Status domain.PlanStatus `json:"status" binding:"required,oneof=active paused cancelled completed"`
}

func mapPlansToResponse(plans []domain.Plan) []PlanSummaryResponse {
	out := make([]PlanSummaryResponse, 0, len(plans))
	for _, p := range plans {
		out = append(out, PlanSummaryResponse{
			ID:         p.ID.Hex(),
			Kind:       p.Kind,
			Name:       p.Name,
			TotalDays:  p.TotalDays,
			CurrentDay: p.CurrentDay,
			Status:     p.Status,
			Generation: p.Generation.Status,
			Degraded:   p.Generation.Degraded,
			Progress:   p.Progress,
			CreatedAt:  p.CreatedAt,
		})
	}
	return out
}

// --- Handler Methods ---

// CreatePlan godoc
// @Summary Create a multi-day plan
// @Description Validates quota, rate and fraud gates, stores the plan and generates its days in the background.
// @Tags Plans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param plan body CreatePlanRequest true "Plan details"
// @Success 202 {object} domain.Plan "Plan accepted, generation pending"
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 403 {object} gin.H "Quota exceeded"
// @Failure 429 {object} gin.H "Rate limited or suspicious activity"
// @Router /plans [post]
func (h *PlanHandler) CreatePlan(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user.")
		return
	}

	var req CreatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	pr := service.PlanRequest{
		UserID:     userID,
		Tier:       getUserTierFromContext(c),
		Kind:       req.Kind,
		Name:       req.Name,
		TotalDays:  req.TotalDays,
		Difficulty: req.Difficulty,
		Category:   req.Category,
		Profile:    req.Profile,
		Settings:   req.Settings,
	}
	if req.StartDate != nil {
		pr.StartDate = *req.StartDate
	}

	plan, err := h.planService.CreatePlan(c.Request.Context(), pr)
	if err != nil {
		h.respondError(c, err, "Failed to create plan.")
		return
	}
	c.JSON(http.StatusAccepted, plan)
}

// ListPlans godoc
// @Summary List my plans
// @Tags Plans
// @Produce json
// @Security BearerAuth
// @Success 200 {array} PlanSummaryResponse
// @Router /plans [get]
func (h *PlanHandler) ListPlans(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user.")
		return
	}
	plans, err := h.planService.ListPlans(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err, "Failed to retrieve plans.")
		return
	}
	c.JSON(http.StatusOK, mapPlansToResponse(plans))
}

// GetPlan godoc
// @Summary Get one of my plans
// @Tags Plans
// @Produce json
// @Security BearerAuth
// @Param planId path string true "Plan's ObjectID Hex"
// @Success 200 {object} domain.Plan
// @Failure 403 {object} gin.H "Plan belongs to another user"
// @Failure 404 {object} gin.H "Plan not found"
// @Router /plans/{planId} [get]
func (h *PlanHandler) GetPlan(c *gin.Context) {
	userID, planID, ok := h.planParams(c)
	if !ok {
		return
	}
	plan, err := h.planService.GetPlan(c.Request.Context(), userID, planID)
	if err != nil {
		h.respondError(c, err, "Failed to retrieve plan.")
		return
	}
	c.JSON(http.StatusOK, plan)
}

// ListDays godoc
// @Summary List the generated days of a plan
// @Tags Plans
// @Produce json
// @Security BearerAuth
// @Param planId path string true "Plan's ObjectID Hex"
// @Success 200 {array} domain.Day
// @Router /plans/{planId}/days [get]
func (h *PlanHandler) ListDays(c *gin.Context) {
	userID, planID, ok := h.planParams(c)
	if !ok {
		return
	}
	days, err := h.planService.ListDays(c.Request.Context(), userID, planID)
	if err != nil {
		h.respondError(c, err, "Failed to retrieve days.")
		return
	}
	if days == nil {
		c.JSON(http.StatusOK, []domain.Day{})
		return
	}
	c.JSON(http.StatusOK, days)
}

// GetDay godoc
// @Summary Get one day of a plan
// @Tags Plans
// @Produce json
// @Security BearerAuth
// @Param planId path string true "Plan's ObjectID Hex"
// @Param day path int true "Day number"
// @Success 200 {object} domain.Day
// @Failure 404 {object} gin.H "Plan or day not found"
// @Router /plans/{planId}/days/{day} [get]
func (h *PlanHandler) GetDay(c *gin.Context) {
	userID, planID, day, ok := h.dayParams(c)
	if !ok {
		return
	}
	d, err := h.planService.GetDay(c.Request.Context(), userID, planID, day)
	if err != nil {
		h.respondError(c, err, "Failed to retrieve day.")
		return
	}
	c.JSON(http.StatusOK, d)
}

// StartDay godoc
// @Summary Mark a day as in progress
// @Tags Days
// @Produce json
// @Security BearerAuth
// @Param planId path string true "Plan's ObjectID Hex"
// @Param day path int true "Day number"
// @Success 200 {object} domain.Day
// @Failure 409 {object} gin.H "Day already finished or plan not active"
// @Router /plans/{planId}/days/{day}/start [post]
func (h *PlanHandler) StartDay(c *gin.Context) {
	userID, planID, day, ok := h.dayParams(c)
	if !ok {
		return
	}
	d, err := h.planService.StartDay(c.Request.Context(), userID, planID, day)
	if err != nil {
		h.respondError(c, err, "Failed to start day.")
		return
	}
	c.JSON(http.StatusOK, d)
}

// CompleteDay godoc
// @Summary Complete a day and report how it went
// @Tags Days
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param planId path string true "Plan's ObjectID Hex"
// @Param day path int true "Day number"
// @Param completion body CompleteDayRequest true "Completion details"
// @Success 200 {object} service.CompletionResult
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 409 {object} gin.H "Day already finished or plan not active"
// @Failure 429 {object} gin.H "Rate limited"
// @Router /plans/{planId}/days/{day}/complete [post]
func (h *PlanHandler) CompleteDay(c *gin.Context) {
	userID, planID, day, ok := h.dayParams(c)
	if !ok {
		return
	}
	var req CompleteDayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	res, err := h.planService.CompleteDay(c.Request.Context(), userID, planID, day, service.CompletionInput{
		Status:          req.Status,
		Rating:          req.Rating,
		Feedback:        req.Feedback,
		CompletedItems:  req.CompletedItems,
		DurationMinutes: req.DurationMinutes,
		Performance:     req.Performance,
	})
	if err != nil {
		h.respondError(c, err, "Failed to complete day.")
		return
	}
	c.JSON(http.StatusOK, res)
}

// SkipDay godoc
// @Summary Skip a day
// @Tags Days
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param planId path string true "Plan's ObjectID Hex"
// @Param day path int true "Day number"
// @Param skip body SkipDayRequest false "Optional reason"
// @Success 200 {object} domain.Day
// @Router /plans/{planId}/days/{day}/skip [post]
func (h *PlanHandler) SkipDay(c *gin.Context) {
	userID, planID, day, ok := h.dayParams(c)
	if !ok {
		return
	}
	var req SkipDayRequest
	// the body is optional
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
			return
		}
	}
	d, err := h.planService.SkipDay(c.Request.Context(), userID, planID, day, req.Reason)
	if err != nil {
		h.respondError(c, err, "Failed to skip day.")
		return
	}
	c.JSON(http.StatusOK, d)
}

// UpdateStatus godoc
// @Summary Pause, resume or cancel a plan
// @Tags Plans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param planId path string true "Plan's ObjectID Hex"
// @Param status body UpdateStatusRequest true "New status"
// @Success 200 {object} domain.Plan
// @Failure 409 {object} gin.H "Transition not allowed"
// @Router /plans/{planId}/status [patch]
func (h *PlanHandler) UpdateStatus(c *gin.Context) {
	userID, planID, ok := h.planParams(c)
	if !ok {
		return
	}
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	plan, err := h.planService.UpdateStatus(c.Request.Context(), userID, planID, req.Status)
	if err != nil {
		h.respondError(c, err, "Failed to update plan status.")
		return
	}
	c.JSON(http.StatusOK, plan)
}

// ResumeGeneration godoc
// @Summary Continue generating a partially generated plan
// @Tags Plans
// @Produce json
// @Security BearerAuth
// @Param planId path string true "Plan's ObjectID Hex"
// @Success 202 {object} domain.Plan
// @Failure 409 {object} gin.H "Plan is not resumable"
// @Router /plans/{planId}/resume [post]
func (h *PlanHandler) ResumeGeneration(c *gin.Context) {
	userID, planID, ok := h.planParams(c)
	if !ok {
		return
	}
	plan, err := h.planService.ResumeGeneration(c.Request.Context(), userID, planID)
	if err != nil {
		h.respondError(c, err, "Failed to resume generation.")
		return
	}
	c.JSON(http.StatusAccepted, plan)
}

// ExportPlan godoc
// @Summary Export a plan snapshot
// @Description Writes the plan and its days as JSON to object storage and returns a presigned download URL.
// @Tags Plans
// @Produce json
// @Security BearerAuth
// @Param planId path string true "Plan's ObjectID Hex"
// @Success 201 {object} domain.PlanExport
// @Failure 503 {object} gin.H "Export storage not configured"
// @Router /plans/{planId}/export [post]
func (h *PlanHandler) ExportPlan(c *gin.Context) {
	userID, planID, ok := h.planParams(c)
	if !ok {
		return
	}
	export, err := h.planService.ExportPlan(c.Request.Context(), userID, planID)
	if err != nil {
		h.respondError(c, err, "Failed to export plan.")
		return
	}
	c.JSON(http.StatusCreated, export)
}

// DeletePlan godoc
// @Summary Delete a plan with its days and exports
// @Tags Plans
// @Security BearerAuth
// @Param planId path string true "Plan's ObjectID Hex"
// @Success 204 "Deleted"
// @Router /plans/{planId} [delete]
func (h *PlanHandler) DeletePlan(c *gin.Context) {
	userID, planID, ok := h.planParams(c)
	if !ok {
		return
	}
	if err := h.planService.DeletePlan(c.Request.Context(), userID, planID); err != nil {
		h.respondError(c, err, "Failed to delete plan.")
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Helpers ---

func (h *PlanHandler) planParams(c *gin.Context) (string, primitive.ObjectID, bool) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user.")
		return "", primitive.NilObjectID, false
	}
	planID, err := primitive.ObjectIDFromHex(c.Param("planId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid plan ID format.")
		return "", primitive.NilObjectID, false
	}
	return userID, planID, true
}

func (h *PlanHandler) dayParams(c *gin.Context) (string, primitive.ObjectID, int, bool) {
	userID, planID, ok := h.planParams(c)
	if !ok {
		return "", primitive.NilObjectID, 0, false
	}
	day, err := strconv.Atoi(c.Param("day"))
	if err != nil || day < 1 {
		abortWithError(c, http.StatusBadRequest, "Invalid day number.")
		return "", primitive.NilObjectID, 0, false
	}
	return userID, planID, day, true
}

// respondError maps service errors to HTTP responses. Unknown errors are
// logged and reported with the generic message.
func (h *PlanHandler) respondError(c *gin.Context, err error, message string) {
	var (
		qe *service.QuotaExceededError
		rl *service.RateLimitedError
		se *service.SuspiciousActivityError
	)
	switch {
	case errors.As(err, &qe):
		code := http.StatusForbidden
		if qe.Code == quota.CodeInvalidDays {
			code = http.StatusBadRequest
		}
		c.AbortWithStatusJSON(code, gin.H{
			"error":   qe.Reason,
			"code":    qe.Code,
			"current": qe.Current,
			"limit":   qe.Limit,
		})
	case errors.As(err, &rl):
		secs := int((rl.RetryAfter + time.Second - 1) / time.Second)
		c.Header("Retry-After", strconv.Itoa(secs))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error":             err.Error(),
			"code":              "rate_limited",
			"window":            rl.Window,
			"current":           rl.Current,
			"limit":             rl.Limit,
			"retryAfterSeconds": secs,
		})
	case errors.As(err, &se):
		secs := int(se.CoolDown / time.Second)
		c.Header("Retry-After", strconv.Itoa(secs))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error":           "Unusual activity detected on this account. Please try again later.",
			"code":            "suspicious_activity",
			"reason":          se.Reason,
			"coolDownSeconds": secs,
		})
	case errors.Is(err, service.ErrPlanNotFound), errors.Is(err, service.ErrDayNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrPlanAccessDenied):
		abortWithError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrInvalidPlanRequest),
		errors.Is(err, service.ErrInvalidCompletion),
		errors.Is(err, service.ErrUnsupportedKind):
		abortWithError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvalidTransition), errors.Is(err, service.ErrNotResumable):
		abortWithError(c, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrExportUnavailable):
		abortWithError(c, http.StatusServiceUnavailable, err.Error())
	default:
		h.log.Error(message, "path", c.FullPath(), "error", err)
		abortWithError(c, http.StatusInternalServerError, message)
	}
}
