package logger

import (
	"strings"

	"go.uber.org/zap"
)

// Scope names the tenant objects a log line is about. Blank members are
// left out of the fields.
type Scope struct {
	Org       string
	Job       string
	Candidate string
	Interview string
}

func (s Scope) Fields() []zap.Field {
	return nonEmpty(
		"org_id", s.Org,
		"job_id", s.Job,
		"candidate_id", s.Candidate,
		"interview_id", s.Interview,
	)
}

// Provider describes the model backing a component.
func Provider(name, model string) []zap.Field {
	return nonEmpty("ai_provider", name, "ai_model", model)
}

// Attach returns l with fields added. A nil l yields a no-op logger so
// components can be built without one.
func Attach(l *zap.Logger, fields ...zap.Field) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	if len(fields) == 0 {
		return l
	}
	return l.With(fields...)
}

func nonEmpty(pairs ...string) []zap.Field {
	fields := make([]zap.Field, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		if v := strings.TrimSpace(pairs[i+1]); v != "" {
			fields = append(fields, zap.String(pairs[i], v))
		}
	}
	return fields
}
