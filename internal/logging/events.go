package logging

import "log/slog"

const defaultErrorHint = "check logs for details"

// WarnWithContext logs a warning that always names its event type, a next
// step, and the user-facing impact. Missing fields are filled with defaults.
func WarnWithContext(logger *slog.Logger, msg, eventType string, attrs ...slog.Attr) {
	if logger == nil {
		return
	}
	attrs = withEventDefaults(attrs, eventType)
	if !hasKey(attrs, FieldImpact) {
		attrs = append(attrs, slog.String(FieldImpact, "operation completed with warnings"))
	}
	logger.Warn(msg, asArgs(attrs)...)
}

// ErrorWithContext logs an error that always names its event type and a
// next step.
func ErrorWithContext(logger *slog.Logger, msg, eventType string, attrs ...slog.Attr) {
	if logger == nil {
		return
	}
	logger.Error(msg, asArgs(withEventDefaults(attrs, eventType))...)
}

func withEventDefaults(attrs []slog.Attr, eventType string) []slog.Attr {
	if !hasKey(attrs, FieldEventType) {
		attrs = append(attrs, slog.String(FieldEventType, eventType))
	}
	if !hasKey(attrs, FieldErrorHint) {
		attrs = append(attrs, slog.String(FieldErrorHint, defaultErrorHint))
	}
	return attrs
}

func hasKey(attrs []slog.Attr, key string) bool {
	for _, attr := range attrs {
		if attr.Key == key {
			return true
		}
	}
	return false
}
