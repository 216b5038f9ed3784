// Package notify carries user-facing notices (the "toasts" of the UI) from
// the core to whatever is listening.
package notify

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dukerupert/aisle/internal/model"
	"github.com/dukerupert/aisle/internal/validation"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Kind classifies a failure so the UI can tell an actionable rejection from a
// generic network problem.
type Kind string

const (
	KindNone       Kind = ""
	KindValidation Kind = "validation"
	KindConstraint Kind = "constraint"
	KindNotFound   Kind = "not_found"
	KindNetwork    Kind = "network"
)

type Notice struct {
	Level   Level  `json:"level"`
	Kind    Kind   `json:"kind,omitempty"`
	Message string `json:"message"`
}

type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

// Func adapts a plain function to a Notifier.
type Func func(ctx context.Context, n Notice)

func (f Func) Notify(ctx context.Context, n Notice) { f(ctx, n) }

// Classify maps an error to the kind of notice it should produce.
func Classify(err error) Kind {
	var violations validation.Violations
	switch {
	case err == nil:
		return KindNone
	case errors.As(err, &violations):
		return KindValidation
	case errors.Is(err, model.ErrDuplicate), errors.Is(err, model.ErrReferenced):
		return KindConstraint
	case errors.Is(err, model.ErrNotFound):
		return KindNotFound
	default:
		return KindNetwork
	}
}

// Failure builds an error notice for err. Validation and constraint errors
// carry their own readable message; everything else gets the fallback.
func Failure(fallback string, err error) Notice {
	kind := Classify(err)
	msg := fallback
	if kind == KindValidation || kind == KindConstraint {
		msg = err.Error()
	}
	return Notice{Level: LevelError, Kind: kind, Message: msg}
}

func Success(msg string) Notice {
	return Notice{Level: LevelSuccess, Message: msg}
}

// Logger writes notices to a slog.Logger.
type Logger struct {
	logger *slog.Logger
}

func NewLogger(logger *slog.Logger) *Logger {
	return &Logger{logger: logger}
}

func (l *Logger) Notify(ctx context.Context, n Notice) {
	level := slog.LevelInfo
	if n.Level == LevelError {
		level = slog.LevelWarn
	}
	l.logger.Log(ctx, level, "notice", "kind", string(n.Kind), "message", n.Message)
}

// Multi fans a notice out to several notifiers in order.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notice) {
	for _, nt := range m {
		if nt != nil {
			nt.Notify(ctx, n)
		}
	}
}

// Discard drops every notice.
var Discard Notifier = Func(func(context.Context, Notice) {})
