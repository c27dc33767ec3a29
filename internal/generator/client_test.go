package generator

import (
	"alcyxob/wellness-app/internal/config"
	"alcyxob/wellness-app/internal/domain"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClientWithHTTP(config.GeneratorConfig{
		BaseURL: srv.URL,
		APIKey:  "test-key",
		Model:   "test-model",
	}, srv.Client())
}

func completion(content string) map[string]any {
	return map[string]any{
		"choices": []any{
			map[string]any{"message": map[string]any{"role": "assistant", "content": content}},
		},
	}
}

func TestGenerateDaySendsRequest(t *testing.T) {
	var got chatCompletionRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, chatCompletionsPath, r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(completion(`{"title":"Legs"}`))
	})

	raw, err := client.GenerateDay(context.Background(), Request{
		Kind:          domain.PlanKindExercise,
		DayNumber:     3,
		TotalDays:     30,
		DayType:       domain.DayTypeWorkout,
		MemoryContext: "- Trends: stable",
	})
	require.NoError(t, err)
	assert.Equal(t, `{"title":"Legs"}`, raw)

	assert.Equal(t, "test-model", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Contains(t, got.Messages[0].Content, "exercise program")

	var sent Request
	require.NoError(t, json.Unmarshal([]byte(got.Messages[1].Content), &sent))
	assert.Equal(t, 3, sent.DayNumber)
	assert.Equal(t, "- Trends: stable", sent.MemoryContext)
}

func TestGenerateDayErrors(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantStage  string
		wantStatus int
	}{
		{
			name: "non-2xx",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"error":"overloaded"}`, http.StatusServiceUnavailable)
			},
			wantStage:  StageStatus,
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name: "empty choices",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"choices":[]}`))
			},
			wantStage: StageEmpty,
		},
		{
			name: "garbage envelope",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`not json`))
			},
			wantStage: StageParse,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, tt.handler)
			_, err := client.GenerateDay(context.Background(), Request{Kind: domain.PlanKindNutrition})
			require.Error(t, err)

			var ge *GenerationError
			require.True(t, errors.As(err, &ge))
			assert.Equal(t, tt.wantStage, ge.Stage)
			assert.Equal(t, tt.wantStatus, ge.StatusCode)
			assert.True(t, IsGenerationError(err))
		})
	}
}

func TestGenerateDayTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := NewClient(config.GeneratorConfig{BaseURL: url, RequestsPerSec: 100, Burst: 1})
	_, err := client.GenerateDay(context.Background(), Request{Kind: domain.PlanKindExercise})

	var ge *GenerationError
	require.True(t, errors.As(err, &ge))
	assert.Equal(t, StageTransport, ge.Stage)
}

func TestRequestPosition(t *testing.T) {
	plan := &domain.Plan{StartDate: mustDate("2025-03-03")} // a Monday
	r := Request{DayNumber: 13}
	r.Position(plan)

	assert.Equal(t, 2, r.WeekOfProgram)
	assert.Equal(t, 6, r.DayInWeek)
	assert.Equal(t, "Saturday", r.DayOfWeek)
}
