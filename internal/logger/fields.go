package logger

import (
	"strings"

	"go.uber.org/zap"
)

// Structured field keys shared by the matching pipeline
const (
	FieldProvider   = "llm_provider"
	FieldModel      = "llm_model"
	FieldGroupID    = "match_group_id"
	FieldResponseID = "match_response_id"
	FieldFile       = "file"
	FieldListingURL = "listing_url"
)

// LLMFields describes the model in use. Empty values are skipped.
func LLMFields(provider, model string) []zap.Field {
	fields := make([]zap.Field, 0, 2)
	if p := strings.TrimSpace(provider); p != "" {
		fields = append(fields, zap.String(FieldProvider, p))
	}
	if m := strings.TrimSpace(model); m != "" {
		fields = append(fields, zap.String(FieldModel, m))
	}
	return fields
}

// With attaches fields to l, tolerating a nil logger.
func With(l *zap.Logger, fields ...zap.Field) *zap.Logger {
	l = OrNop(l)
	if len(fields) == 0 {
		return l
	}
	return l.With(fields...)
}
