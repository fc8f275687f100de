package observability

import (
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// FinishSpan ends a span opened by one of the Trace*Function helpers and
// records any error pointed to by errPtr, so a failed grade, evaluation,
// hint grant, or adaptive step shows up as an error span with a stack
// trace. Services pair it with a named error return:
//
//	func (s *GradingService) Grade(ctx context.Context, ...) (result0 *models.GradedAnswer, err error) {
//		ctx, span := observability.TraceGradingFunction(ctx, "grade", ...)
//		defer observability.FinishSpan(span, &err)
//		...
//	}
func FinishSpan(span trace.Span, errPtr *error) {
	if span == nil {
		return
	}
	if errPtr != nil && *errPtr != nil {
		span.RecordError(*errPtr, trace.WithStackTrace(true))
		span.SetStatus(codes.Error, (*errPtr).Error())
	}
	span.End()
}
