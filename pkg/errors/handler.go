package errors

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Fields describes err as structured log fields.
func Fields(err error) []zap.Field {
	if err == nil {
		return nil
	}
	appErr := GetAppError(err)
	if appErr == nil {
		return []zap.Field{zap.Error(err)}
	}

	fields := []zap.Field{
		zap.String("error_type", string(appErr.Type)),
		zap.String("error_message", appErr.Message),
		zap.Bool("retryable", appErr.Retryable),
	}
	if appErr.Code != "" {
		fields = append(fields, zap.String("error_code", appErr.Code))
	}
	if appErr.Backoff != "" && appErr.Backoff != BackoffNone {
		fields = append(fields, zap.String("backoff", string(appErr.Backoff)))
	}
	if len(appErr.Details) > 0 {
		fields = append(fields, zap.Any("details", appErr.Details))
	}
	if appErr.Cause != nil {
		fields = append(fields, zap.NamedError("cause", appErr.Cause))
	}
	return fields
}

// Level picks the log level for err. Conflicts and validation failures are
// expected during normal operation.
func Level(err error) zapcore.Level {
	appErr := GetAppError(err)
	if appErr == nil {
		return zapcore.ErrorLevel
	}
	switch appErr.Type {
	case ErrorTypeConflict, ErrorTypeValidation, ErrorTypeNotFound, ErrorTypeUnsupported:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}

// Log writes err to logger at the level chosen by Level.
func Log(logger *zap.Logger, msg string, err error, fields ...zap.Field) {
	if logger == nil || err == nil {
		return
	}
	all := append(Fields(err), fields...)
	if ce := logger.Check(Level(err), msg); ce != nil {
		ce.Write(all...)
	}
}
