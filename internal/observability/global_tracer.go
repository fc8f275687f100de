package observability

import (
	"context"
	"fmt"

	"quizengine/internal/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var globalTracer trace.Tracer

// InitGlobalTracer initializes the global tracer for the engine.
func InitGlobalTracer() {
	globalTracer = otel.Tracer("quiz-engine")
}

// GetGlobalTracer returns the global tracer instance for the engine.
func GetGlobalTracer() trace.Tracer {
	if globalTracer == nil {
		// Fallback to default tracer if not initialized
		globalTracer = otel.Tracer("quiz-engine")
	}
	return globalTracer
}

// TraceFunction starts a new span with a descriptive name for the given service and function.
func TraceFunction(ctx context.Context, serviceName, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := GetGlobalTracer()
	spanName := fmt.Sprintf("%s.%s", serviceName, functionName)
	return tracer.Start(ctx, spanName, trace.WithAttributes(attributes...))
}

// TraceGradingFunction starts a new span for a grading service function.
func TraceGradingFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "grading", functionName, attributes...)
}

// TraceEvaluationFunction starts a new span for an evaluation service function.
func TraceEvaluationFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "evaluation", functionName, attributes...)
}

// TraceHintFunction starts a new span for a hint service function.
func TraceHintFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "hint", functionName, attributes...)
}

// TraceAdaptiveFunction starts a new span for an adaptive service function.
func TraceAdaptiveFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "adaptive", functionName, attributes...)
}

// TraceAIFunction starts a new span for an AI capability function.
func TraceAIFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "ai", functionName, attributes...)
}

// TraceSessionFunction starts a new span for a session store function.
func TraceSessionFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "session", functionName, attributes...)
}

// AttributeUserID returns a tracing attribute for a user ID.
func AttributeUserID(id int) attribute.KeyValue {
	return attribute.Int("user.id", id)
}

// AttributeQuestionID returns a tracing attribute for a question ID.
func AttributeQuestionID(id int) attribute.KeyValue {
	return attribute.Int("question.id", id)
}

// AttributeQuizID returns a tracing attribute for a quiz ID.
func AttributeQuizID(id int) attribute.KeyValue {
	return attribute.Int("quiz.id", id)
}

// AttributeQuestionType returns a tracing attribute for a question type.
func AttributeQuestionType(qType models.QuestionType) attribute.KeyValue {
	return attribute.String("question.type", string(qType))
}

// AttributeDifficulty returns a tracing attribute for a difficulty level.
func AttributeDifficulty(d models.Difficulty) attribute.KeyValue {
	return attribute.String("question.difficulty", string(d))
}

// AttributeTopic returns a tracing attribute for a question topic.
func AttributeTopic(topic string) attribute.KeyValue {
	return attribute.String("question.topic", topic)
}
