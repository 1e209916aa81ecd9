package types

import (
	"fmt"
	"time"
)

// WarningLevel represents the severity of a warning
type WarningLevel string

const (
	WarningLevelInfo    WarningLevel = "info"
	WarningLevelWarning WarningLevel = "warning"
	WarningLevelError   WarningLevel = "error" // Non-fatal error that should be reported
)

// Warning codes emitted while stamping
const (
	WarnPageSkipped        = "PAGE_SKIPPED"
	WarnRotationNormalized = "ROTATION_NORMALIZED"
	WarnDefaultBox         = "DEFAULT_BOX"
)

// Warning represents a non-fatal issue encountered while stamping a document
type Warning struct {
	Level     WarningLevel
	Message   string
	Code      string
	Context   map[string]interface{}
	Timestamp time.Time
}

// Error implements the error interface so warnings can be used as errors if needed
func (w *Warning) Error() string {
	if w.Code != "" {
		return fmt.Sprintf("[%s] %s: %s", w.Level, w.Code, w.Message)
	}
	return fmt.Sprintf("[%s] %s", w.Level, w.Message)
}

// WithContext adds context to the warning and returns the same warning for chaining
func (w *Warning) WithContext(key string, value interface{}) *Warning {
	if w.Context == nil {
		w.Context = make(map[string]interface{})
	}
	w.Context[key] = value
	return w
}

// NewWarningf creates a new coded warning with a formatted message
func NewWarningf(level WarningLevel, code, format string, args ...interface{}) *Warning {
	return &Warning{
		Level:     level,
		Code:      code,
		Message:   fmt.Sprintf(format, args...),
		Timestamp: time.Now(),
		Context:   make(map[string]interface{}),
	}
}
