package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"quizengine/internal/config"
	"quizengine/internal/models"
	"quizengine/internal/observability"
	contextutils "quizengine/internal/utils"
)

// OpenGradingResultSchema enforces the JSON structure the grading prompt asks
// the model to return. Responses failing validation are rejected rather than
// partially trusted.
const OpenGradingResultSchema = `{
	"type": "object",
	"properties": {
		"fraction": {"type": "number", "minimum": 0, "maximum": 1},
		"feedback": {"type": "string"},
		"confidence": {"type": "number", "minimum": 0, "maximum": 1}
	},
	"required": ["fraction", "feedback"]
}`

// Message represents a chat message in the OpenAI-compatible wire format
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// OpenAIRequest is the request body for OpenAI-compatible chat completions
type OpenAIRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

// OpenAIResponse is the response body from OpenAI-compatible chat completions
type OpenAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// AIService implements the AI capability over any OpenAI-compatible
// chat-completions endpoint. Provider and model come from the engine config;
// the HTTP transport is instrumented so provider latency shows up in traces.
type AIService struct {
	cfg        *config.Config
	logger     *observability.Logger
	httpClient *http.Client
}

// NewAIService creates a new AI service instance
func NewAIService(cfg *config.Config, logger *observability.Logger) *AIService {
	httpClient := &http.Client{
		Timeout: config.DefaultHTTPTimeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport,
			otelhttp.WithSpanOptions(trace.WithSpanKind(trace.SpanKindClient)),
		),
	}
	return &AIService{
		cfg:        cfg,
		logger:     logger,
		httpClient: httpClient,
	}
}

// GradeOpenAnswer implements serviceinterfaces.AICapability
func (s *AIService) GradeOpenAnswer(ctx context.Context, req *models.OpenGradingRequest) (result0 *models.OpenGradingResult, err error) {
	ctx, span := observability.TraceAIFunction(ctx, "grade_open_answer",
		attribute.String("ai.provider", s.cfg.Engine.Provider),
		attribute.String("ai.model", s.cfg.Engine.Model),
		attribute.Int("answer.length", len(req.StudentAnswer)),
	)
	defer observability.FinishSpan(span, &err)

	prompt := buildGradingPrompt(req)
	content, err := s.callOpenAI(ctx, prompt)
	if err != nil {
		return nil, err
	}

	payload := extractJSON(content)
	if err := validateGradingPayload(payload); err != nil {
		return nil, err
	}

	var result models.OpenGradingResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrAIResponseInvalid, "failed to parse grading response: %v", err)
	}
	return &result, nil
}

// GenerateHint implements serviceinterfaces.AICapability
func (s *AIService) GenerateHint(ctx context.Context, question *models.Question) (result0 string, err error) {
	ctx, span := observability.TraceAIFunction(ctx, "generate_hint",
		attribute.String("ai.provider", s.cfg.Engine.Provider),
		attribute.String("ai.model", s.cfg.Engine.Model),
		observability.AttributeQuestionID(question.ID),
	)
	defer observability.FinishSpan(span, &err)

	prompt := buildHintPrompt(question)
	content, err := s.callOpenAI(ctx, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(content), nil
}

func buildGradingPrompt(req *models.OpenGradingRequest) string {
	var b strings.Builder
	b.WriteString("You are grading a student's answer to a quiz question.\n\n")
	fmt.Fprintf(&b, "Question: %s\n", req.QuestionText)
	if req.Rubric != "" {
		fmt.Fprintf(&b, "Grading rubric: %s\n", req.Rubric)
	}
	if req.ReferenceAnswer != "" {
		fmt.Fprintf(&b, "Reference answer: %s\n", req.ReferenceAnswer)
	}
	fmt.Fprintf(&b, "Student answer: %s\n\n", req.StudentAnswer)
	b.WriteString("Respond with only a JSON object of the form ")
	b.WriteString(`{"fraction": <number between 0 and 1>, "feedback": "<one or two sentences for the student>", "confidence": <number between 0 and 1>}`)
	b.WriteString(". fraction is the share of full credit earned. Do not include any text outside the JSON object.")
	return b.String()
}

func buildHintPrompt(question *models.Question) string {
	var b strings.Builder
	b.WriteString("Write a single short hint for the quiz question below. ")
	b.WriteString("The hint must guide the student toward the answer without stating the answer itself.\n\n")
	fmt.Fprintf(&b, "Question: %s\n", question.Text)
	if len(question.Options) > 0 {
		fmt.Fprintf(&b, "Options: %s\n", strings.Join(question.Options, "; "))
	}
	if question.Topic != "" {
		fmt.Fprintf(&b, "Topic: %s\n", question.Topic)
	}
	b.WriteString("\nRespond with only the hint text.")
	return b.String()
}

// validateGradingPayload checks the model's JSON against the grading schema
func validateGradingPayload(payload string) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(OpenGradingResultSchema),
		gojsonschema.NewStringLoader(payload),
	)
	if err != nil {
		return contextutils.WrapErrorf(contextutils.ErrAIResponseInvalid, "grading response is not valid JSON: %v", err)
	}
	if !result.Valid() {
		var errorMessages []string
		for _, e := range result.Errors() {
			errorMessages = append(errorMessages, e.String())
		}
		return contextutils.WrapErrorf(contextutils.ErrAIResponseInvalid, "grading response failed schema validation: %s", strings.Join(errorMessages, "; "))
	}
	return nil
}

// extractJSON strips markdown code fences and surrounding prose, returning
// the first JSON object in the content
func extractJSON(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		if idx := strings.LastIndex(content, "```"); idx >= 0 {
			content = content[:idx]
		}
		content = strings.TrimSpace(content)
	}
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start >= 0 && end > start {
		return content[start : end+1]
	}
	return content
}

// callOpenAI makes a request to the OpenAI-compatible API
func (s *AIService) callOpenAI(ctx context.Context, prompt string) (result0 string, err error) {
	_, span := observability.TraceAIFunction(ctx, "call_openai",
		attribute.String("ai.provider", s.cfg.Engine.Provider),
		attribute.String("ai.model", s.cfg.Engine.Model),
		attribute.Int("prompt.length", len(prompt)),
	)
	defer observability.FinishSpan(span, &err)

	provider := s.cfg.Engine.Provider
	model := s.cfg.Engine.Model
	if provider == "" {
		span.SetAttributes(attribute.String("call.result", "empty_provider"))
		return "", contextutils.WrapError(contextutils.ErrAIConfigInvalid, "provider is required")
	}
	if model == "" {
		span.SetAttributes(attribute.String("call.result", "empty_model"))
		return "", contextutils.WrapError(contextutils.ErrAIConfigInvalid, "model is required")
	}
	if prompt == "" {
		span.SetAttributes(attribute.String("call.result", "empty_prompt"))
		return "", contextutils.WrapError(contextutils.ErrAIConfigInvalid, "prompt cannot be empty")
	}

	apiURL := s.cfg.ProviderURL(provider)
	if apiURL == "" {
		span.SetAttributes(attribute.String("call.result", "no_url_configured"), attribute.String("provider", provider))
		return "", contextutils.WrapErrorf(contextutils.ErrAIConfigInvalid, "no base URL configured for provider '%s'", provider)
	}

	reqBody := OpenAIRequest{
		Model:       model,
		Messages:    []Message{{Role: "user", Content: prompt}},
		Temperature: 0.2,
		MaxTokens:   s.cfg.MaxTokensForModel(provider, model),
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		span.SetAttributes(attribute.String("call.result", "marshal_failed"), attribute.String("error", err.Error()))
		return "", contextutils.WrapErrorf(err, "failed to marshal request body")
	}

	s.logger.Debug(ctx, "Making AI HTTP request", map[string]interface{}{
		"url":      apiURL + "/chat/completions",
		"model":    model,
		"provider": provider,
	})

	req, err := http.NewRequestWithContext(ctx, "POST", apiURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		span.SetAttributes(attribute.String("call.result", "request_creation_failed"), attribute.String("error", err.Error()))
		return "", contextutils.WrapErrorf(err, "failed to create HTTP request")
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "quizengine/1.0")
	if s.cfg.Engine.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.Engine.APIKey)
	}

	startTime := time.Now()
	resp, err := s.httpClient.Do(req)
	duration := time.Since(startTime)
	if err != nil {
		span.SetAttributes(attribute.String("call.result", "http_request_failed"), attribute.String("error", err.Error()), attribute.String("duration", duration.String()))
		return "", contextutils.WrapErrorf(contextutils.ErrAIProviderUnavailable, "HTTP request failed after %v: %v", duration, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			s.logger.Warn(ctx, "Failed to close response body", map[string]interface{}{
				"error": cerr.Error(),
			})
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		span.SetAttributes(attribute.String("call.result", "body_read_failed"), attribute.String("error", err.Error()))
		return "", contextutils.WrapErrorf(err, "failed to read response body")
	}

	if resp.StatusCode != http.StatusOK {
		span.SetAttributes(attribute.String("call.result", "http_error"), attribute.Int("status_code", resp.StatusCode))
		return "", contextutils.WrapErrorf(contextutils.ErrAIRequestFailed, "API request failed with status %d to %s: %s", resp.StatusCode, apiURL+"/chat/completions", string(body))
	}

	var openAIResp OpenAIResponse
	if err := json.Unmarshal(body, &openAIResp); err != nil {
		span.SetAttributes(attribute.String("call.result", "json_unmarshal_failed"), attribute.String("error", err.Error()))
		return "", contextutils.WrapErrorf(contextutils.ErrAIResponseInvalid, "failed to parse AI response as JSON: %v", err)
	}
	if openAIResp.Error != nil {
		span.SetAttributes(attribute.String("call.result", "api_error"), attribute.String("error_message", openAIResp.Error.Message))
		return "", contextutils.WrapErrorf(contextutils.ErrAIRequestFailed, "API error: %s", openAIResp.Error.Message)
	}
	if len(openAIResp.Choices) == 0 {
		span.SetAttributes(attribute.String("call.result", "no_choices"))
		return "", contextutils.WrapError(contextutils.ErrAIResponseInvalid, "no choices in response")
	}
	content := openAIResp.Choices[0].Message.Content
	if content == "" {
		span.SetAttributes(attribute.String("call.result", "empty_content"))
		return "", contextutils.WrapError(contextutils.ErrAIResponseInvalid, "empty content in response")
	}

	span.SetAttributes(attribute.String("call.result", "success"), attribute.Int("content_length", len(content)), attribute.String("duration", duration.String()))
	return content, nil
}
