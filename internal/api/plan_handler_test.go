package api

import (
	"alcyxob/wellness-app/internal/domain"
	"alcyxob/wellness-app/internal/quota"
	"alcyxob/wellness-app/internal/ratelimit"
	"alcyxob/wellness-app/internal/service"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const testSecret = "test-secret"

// fakePlanService returns plan or err from every method and remembers the
// last arguments it saw.
type fakePlanService struct {
	plan       *domain.Plan
	err        error
	lastReq    service.PlanRequest
	lastUser   string
	lastDay    int
	lastInput  service.CompletionInput
	lastStatus domain.PlanStatus
}

func (f *fakePlanService) CreatePlan(_ context.Context, req service.PlanRequest) (*domain.Plan, error) {
	f.lastReq = req
	return f.plan, f.err
}

func (f *fakePlanService) ResumeGeneration(_ context.Context, userID string, _ primitive.ObjectID) (*domain.Plan, error) {
	f.lastUser = userID
	return f.plan, f.err
}

func (f *fakePlanService) GetPlan(_ context.Context, userID string, _ primitive.ObjectID) (*domain.Plan, error) {
	f.lastUser = userID
	return f.plan, f.err
}

func (f *fakePlanService) ListPlans(_ context.Context, userID string) ([]domain.Plan, error) {
	f.lastUser = userID
	if f.plan == nil {
		return nil, f.err
	}
	return []domain.Plan{*f.plan}, f.err
}

func (f *fakePlanService) ListDays(_ context.Context, userID string, _ primitive.ObjectID) ([]domain.Day, error) {
	f.lastUser = userID
	return nil, f.err
}

func (f *fakePlanService) GetDay(_ context.Context, userID string, _ primitive.ObjectID, day int) (*domain.Day, error) {
	f.lastUser, f.lastDay = userID, day
	return &domain.Day{DayNumber: day}, f.err
}

func (f *fakePlanService) StartDay(_ context.Context, userID string, _ primitive.ObjectID, day int) (*domain.Day, error) {
	f.lastUser, f.lastDay = userID, day
	return &domain.Day{DayNumber: day}, f.err
}

func (f *fakePlanService) CompleteDay(_ context.Context, userID string, _ primitive.ObjectID, day int, in service.CompletionInput) (*service.CompletionResult, error) {
	f.lastUser, f.lastDay, f.lastInput = userID, day, in
	return &service.CompletionResult{Day: &domain.Day{DayNumber: day}, Plan: f.plan}, f.err
}

func (f *fakePlanService) SkipDay(_ context.Context, userID string, _ primitive.ObjectID, day int, _ string) (*domain.Day, error) {
	f.lastUser, f.lastDay = userID, day
	return &domain.Day{DayNumber: day}, f.err
}

func (f *fakePlanService) UpdateStatus(_ context.Context, userID string, _ primitive.ObjectID, status domain.PlanStatus) (*domain.Plan, error) {
	f.lastUser, f.lastStatus = userID, status
	return f.plan, f.err
}

func (f *fakePlanService) DeletePlan(_ context.Context, userID string, _ primitive.ObjectID) error {
	f.lastUser = userID
	return f.err
}

func (f *fakePlanService) ExportPlan(_ context.Context, userID string, planID primitive.ObjectID) (*domain.PlanExport, error) {
	f.lastUser = userID
	return &domain.PlanExport{PlanID: planID, DownloadURL: "https://example.test/x"}, f.err
}

func newTestRouter(svc service.PlanService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	SetupRoutes(r, testSecret, svc, nil)
	return r
}

func signToken(t *testing.T, uid, tier string, ttl time.Duration) string {
	t.Helper()
	claims := jwtClaims{
		UserID: uid,
		Tier:   tier,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func do(t *testing.T, r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestPing(t *testing.T) {
	r := newTestRouter(&fakePlanService{})
	w := do(t, r, http.MethodGet, "/ping", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthMiddleware(t *testing.T) {
	r := newTestRouter(&fakePlanService{})

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header"},
		{name: "wrong scheme", header: "Token abc"},
		{name: "garbage token", header: "Bearer not.a.jwt"},
		{name: "expired", header: "Bearer " + signToken(t, "u1", "", -time.Minute)},
		{name: "no user id", header: "Bearer " + signToken(t, "", "free", time.Hour)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/plans", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestMeDefaultsTier(t *testing.T) {
	r := newTestRouter(&fakePlanService{})
	w := do(t, r, http.MethodGet, "/api/v1/me", signToken(t, "u1", "", time.Hour), nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "u1", body["userId"])
	assert.Equal(t, quota.TierFree, body["tier"])
}

func TestCreatePlanAccepted(t *testing.T) {
	plan := &domain.Plan{ID: primitive.NewObjectID(), OwnerID: "u1", Kind: domain.PlanKindExercise, TotalDays: 30}
	svc := &fakePlanService{plan: plan}
	r := newTestRouter(svc)

	w := do(t, r, http.MethodPost, "/api/v1/plans", signToken(t, "u1", "Premium", time.Hour), map[string]any{
		"kind":       "exercise",
		"totalDays":  30,
		"difficulty": "beginner",
		"category":   "home",
		"settings":   map[string]any{"restDays": []string{"saturday", "sunday"}, "autoAdapt": true},
	})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	assert.Equal(t, plan.ID.Hex(), decodeBody(t, w)["id"])

	assert.Equal(t, "u1", svc.lastReq.UserID)
	assert.Equal(t, "premium", svc.lastReq.Tier)
	assert.Equal(t, 30, svc.lastReq.TotalDays)
	assert.Equal(t, []string{"saturday", "sunday"}, svc.lastReq.Settings.RestDays)
	assert.True(t, svc.lastReq.Settings.AutoAdapt)
}

func TestCreatePlanValidation(t *testing.T) {
	r := newTestRouter(&fakePlanService{})
	token := signToken(t, "u1", "", time.Hour)

	w := do(t, r, http.MethodPost, "/api/v1/plans", token, map[string]any{"kind": "yoga", "totalDays": 7})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = do(t, r, http.MethodPost, "/api/v1/plans", token, map[string]any{"kind": "exercise", "difficulty": "extreme"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   int
		wantRetry  string
		wantFields map[string]any
	}{
		{
			name:       "quota",
			err:        &service.QuotaExceededError{Reason: "too many", Code: quota.CodeConcurrentPlans, Current: 3, Limit: 3},
			wantCode:   http.StatusForbidden,
			wantFields: map[string]any{"code": quota.CodeConcurrentPlans, "current": float64(3), "limit": float64(3)},
		},
		{
			name:     "invalid length",
			err:      &service.QuotaExceededError{Reason: "at least one day", Code: quota.CodeInvalidDays, Limit: 30},
			wantCode: http.StatusBadRequest,
		},
		{
			name:       "rate limited",
			err:        &service.RateLimitedError{Action: domain.ActionPlanCreation, Window: ratelimit.WindowMinute, RetryAfter: time.Minute, Current: 2, Limit: 2},
			wantCode:   http.StatusTooManyRequests,
			wantRetry:  "60",
			wantFields: map[string]any{"code": "rate_limited", "window": "minute", "retryAfterSeconds": float64(60)},
		},
		{
			name:       "suspicious",
			err:        &service.SuspiciousActivityError{Reason: ratelimit.ReasonBurst, CoolDown: time.Hour},
			wantCode:   http.StatusTooManyRequests,
			wantRetry:  "3600",
			wantFields: map[string]any{"code": "suspicious_activity", "reason": "rapid_fire", "coolDownSeconds": float64(3600)},
		},
		{name: "not found", err: service.ErrPlanNotFound, wantCode: http.StatusNotFound},
		{name: "access denied", err: service.ErrPlanAccessDenied, wantCode: http.StatusForbidden},
		{name: "invalid request", err: fmt.Errorf("%w: bad", service.ErrInvalidPlanRequest), wantCode: http.StatusBadRequest},
		{name: "unexpected", err: fmt.Errorf("mongo down"), wantCode: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(&fakePlanService{err: tt.err})
			w := do(t, r, http.MethodPost, "/api/v1/plans", signToken(t, "u1", "", time.Hour), map[string]any{"kind": "exercise", "totalDays": 7})
			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, tt.wantRetry, w.Header().Get("Retry-After"))
			body := decodeBody(t, w)
			assert.NotEmpty(t, body["error"])
			for k, v := range tt.wantFields {
				assert.Equal(t, v, body[k], k)
			}
		})
	}
}

func TestDayRoutes(t *testing.T) {
	plan := &domain.Plan{ID: primitive.NewObjectID(), OwnerID: "u1"}
	svc := &fakePlanService{plan: plan}
	r := newTestRouter(svc)
	token := signToken(t, "u1", "", time.Hour)
	base := "/api/v1/plans/" + plan.ID.Hex()

	w := do(t, r, http.MethodGet, base+"/days/3", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, svc.lastDay)

	w = do(t, r, http.MethodPost, base+"/days/2/start", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, http.MethodPost, base+"/days/2/complete", token, map[string]any{
		"rating":      4,
		"performance": map[string]any{"energy": 7},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 4, svc.lastInput.Rating)
	assert.Equal(t, 7, svc.lastInput.Performance.Energy)

	w = do(t, r, http.MethodPost, base+"/days/2/complete", token, map[string]any{"rating": 7})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodPost, base+"/days/4/skip", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 4, svc.lastDay)

	w = do(t, r, http.MethodGet, base+"/days/zero", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = do(t, r, http.MethodGet, "/api/v1/plans/not-an-id/days", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodGet, base+"/days", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", w.Body.String())
}

func TestPlanRoutes(t *testing.T) {
	plan := &domain.Plan{ID: primitive.NewObjectID(), OwnerID: "u1", Status: domain.PlanStatusPaused}
	svc := &fakePlanService{plan: plan}
	r := newTestRouter(svc)
	token := signToken(t, "u1", "", time.Hour)
	base := "/api/v1/plans/" + plan.ID.Hex()

	w := do(t, r, http.MethodGet, "/api/v1/plans", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []PlanSummaryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, plan.ID.Hex(), list[0].ID)

	w = do(t, r, http.MethodPatch, base+"/status", token, map[string]any{"status": "paused"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.PlanStatusPaused, svc.lastStatus)
	w = do(t, r, http.MethodPatch, base+"/status", token, map[string]any{"status": "archived"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodPost, base+"/resume", token, nil)
	assert.Equal(t, http.StatusAccepted, w.Code)

	w = do(t, r, http.MethodPost, base+"/export", token, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "https://example.test/x", decodeBody(t, w)["downloadUrl"])

	w = do(t, r, http.MethodDelete, base, token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	svc.err = service.ErrInvalidTransition
	w = do(t, r, http.MethodPatch, base+"/status", token, map[string]any{"status": "active"})
	assert.Equal(t, http.StatusConflict, w.Code)
	svc.err = service.ErrExportUnavailable
	w = do(t, r, http.MethodPost, base+"/export", token, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
