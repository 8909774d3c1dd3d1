// Package audit records verifications and year changes to best-effort sinks.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"registration-bot/internal/models"
)

type Kind string

const (
	KindVerification Kind = "verification"
	KindYearCreated  Kind = "year_created"
	KindYearArchived Kind = "year_archived"
)

type Entry struct {
	ID   string
	Kind Kind
	At   time.Time
	Year string
	// User is the verified member, or the admin who ran a saga.
	User             models.DiscordUser
	RegistrationName string
	Roles            []string
	Summary          string
	Failed           bool
}

func (e Entry) Title() string {
	switch e.Kind {
	case KindVerification:
		return "User Verified"
	case KindYearCreated:
		if e.Failed {
			return "Year Setup Incomplete"
		}
		return "Year Created"
	case KindYearArchived:
		if e.Failed {
			return "Year Archive Incomplete"
		}
		return "Year Archived"
	}
	return string(e.Kind)
}

// Sink delivers entries somewhere durable or visible.
type Sink interface {
	Name() string
	Send(ctx context.Context, e Entry) error
}

// Logger fans entries out to every sink. Sink failures are logged and never
// returned.
type Logger struct {
	sinks  []Sink
	logger *slog.Logger
	now    func() time.Time
}

func NewLogger(logger *slog.Logger, sinks ...Sink) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{sinks: sinks, logger: logger, now: time.Now}
}

// Log reports whether at least one sink accepted the entry.
func (l *Logger) Log(ctx context.Context, e Entry) bool {
	if l == nil {
		return false
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.At.IsZero() {
		e.At = l.now()
	}

	ok := false
	for _, s := range l.sinks {
		if err := s.Send(ctx, e); err != nil {
			l.logger.Warn("audit sink failed", "sink", s.Name(), "entry", e.ID, "kind", e.Kind, "err", err)
			continue
		}
		ok = true
	}
	if !ok {
		l.logger.Warn("audit entry not recorded", "entry", e.ID, "kind", e.Kind, "year", e.Year)
	}
	return ok
}
