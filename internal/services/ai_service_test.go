package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quizengine/internal/config"
	"quizengine/internal/models"
	"quizengine/internal/observability"
	contextutils "quizengine/internal/utils"
)

func newAIServiceForURL(url string) *AIService {
	cfg := config.NewDefaultConfig()
	cfg.Engine.Provider = "test"
	cfg.Engine.Model = "test-model"
	cfg.Providers = []config.ProviderConfig{
		{Name: "Test", Code: "test", URL: url},
	}
	return NewAIService(cfg, observability.NewLogger(nil))
}

func chatCompletionBody(content string) string {
	resp := map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"content": content}},
		},
	}
	data, _ := json.Marshal(resp)
	return string(data)
}

func gradingRequest() *models.OpenGradingRequest {
	return &models.OpenGradingRequest{
		QuestionText:  "Explain photosynthesis.",
		Rubric:        "Mentions light, water, and carbon dioxide.",
		StudentAnswer: "Plants convert light into chemical energy.",
		MaxPoints:     4,
	}
}

func TestAIService_GradeOpenAnswer(t *testing.T) {
	var gotPath string
	var gotBody OpenAIRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chatCompletionBody(`{"fraction": 0.75, "feedback": "Good start.", "confidence": 0.9}`)))
	}))
	defer server.Close()

	svc := newAIServiceForURL(server.URL)
	result, err := svc.GradeOpenAnswer(context.Background(), gradingRequest())
	require.NoError(t, err)

	assert.Equal(t, "/chat/completions", gotPath)
	assert.Equal(t, "test-model", gotBody.Model)
	require.Len(t, gotBody.Messages, 1)
	assert.Contains(t, gotBody.Messages[0].Content, "Explain photosynthesis.")

	assert.Equal(t, 0.75, result.Fraction)
	assert.Equal(t, "Good start.", result.Feedback)
	require.NotNil(t, result.Confidence)
	assert.Equal(t, 0.9, *result.Confidence)
}

func TestAIService_GradeOpenAnswer_CodeFencedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		content := "Here is the grade:\n```json\n{\"fraction\": 0.5, \"feedback\": \"Halfway there.\"}\n```"
		_, _ = w.Write([]byte(chatCompletionBody(content)))
	}))
	defer server.Close()

	svc := newAIServiceForURL(server.URL)
	result, err := svc.GradeOpenAnswer(context.Background(), gradingRequest())
	require.NoError(t, err)
	assert.Equal(t, 0.5, result.Fraction)
	assert.Nil(t, result.Confidence)
}

func TestAIService_GradeOpenAnswer_SchemaViolation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "fraction out of range", content: `{"fraction": 1.5, "feedback": "too much"}`},
		{name: "missing feedback", content: `{"fraction": 0.5}`},
		{name: "not json at all", content: "I would give this a B+"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(chatCompletionBody(tt.content)))
			}))
			defer server.Close()

			svc := newAIServiceForURL(server.URL)
			_, err := svc.GradeOpenAnswer(context.Background(), gradingRequest())
			assert.ErrorIs(t, err, contextutils.ErrAIResponseInvalid)
		})
	}
}

func TestAIService_GradeOpenAnswer_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	svc := newAIServiceForURL(server.URL)
	_, err := svc.GradeOpenAnswer(context.Background(), gradingRequest())
	assert.ErrorIs(t, err, contextutils.ErrAIRequestFailed)
}

func TestAIService_GradeOpenAnswer_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"error": {"message": "model overloaded", "type": "server_error"}}`))
	}))
	defer server.Close()

	svc := newAIServiceForURL(server.URL)
	_, err := svc.GradeOpenAnswer(context.Background(), gradingRequest())
	assert.ErrorIs(t, err, contextutils.ErrAIRequestFailed)
}

func TestAIService_GradeOpenAnswer_NoProviderURL(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Engine.Provider = "missing"
	cfg.Engine.Model = "test-model"
	svc := NewAIService(cfg, observability.NewLogger(nil))

	_, err := svc.GradeOpenAnswer(context.Background(), gradingRequest())
	assert.ErrorIs(t, err, contextutils.ErrAIConfigInvalid)
}

func TestAIService_GradeOpenAnswer_MissingConfig(t *testing.T) {
	cfg := config.NewDefaultConfig()
	svc := NewAIService(cfg, observability.NewLogger(nil))

	_, err := svc.GradeOpenAnswer(context.Background(), gradingRequest())
	assert.ErrorIs(t, err, contextutils.ErrAIConfigInvalid)
}

func TestAIService_GenerateHint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body OpenAIRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Contains(t, body.Messages[0].Content, "without stating the answer")
		_, _ = w.Write([]byte(chatCompletionBody("  Think about European capitals. \n")))
	}))
	defer server.Close()

	svc := newAIServiceForURL(server.URL)
	hint, err := svc.GenerateHint(context.Background(), &models.Question{
		ID:      1,
		Type:    models.MultipleChoice,
		Text:    "What is the capital of France?",
		Options: []string{"Paris", "London"},
		Topic:   "geography",
	})
	require.NoError(t, err)
	assert.Equal(t, "Think about European capitals.", hint)
}

func TestAIService_SendsAuthorizationHeader(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(chatCompletionBody(`{"fraction": 1, "feedback": "ok"}`)))
	}))
	defer server.Close()

	svc := newAIServiceForURL(server.URL)
	svc.cfg.Engine.APIKey = "secret-key"

	_, err := svc.GradeOpenAnswer(context.Background(), gradingRequest())
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret-key", gotAuth)
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "bare object", content: `{"a": 1}`, want: `{"a": 1}`},
		{name: "fenced", content: "```json\n{\"a\": 1}\n```", want: `{"a": 1}`},
		{name: "fenced without language", content: "```\n{\"a\": 1}\n```", want: `{"a": 1}`},
		{name: "surrounding prose", content: "Sure: {\"a\": 1} hope that helps", want: `{"a": 1}`},
		{name: "no json", content: "no object here", want: "no object here"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractJSON(tt.content))
		})
	}
}
