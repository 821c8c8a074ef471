// Package audit records decision points twice: as a structured console line
// and as a row in the log store, so the dashboard can show what the worker
// did.
package audit

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/shuaiyuancn/2026-better-booking/internal/domain"
	"github.com/shuaiyuancn/2026-better-booking/internal/store"
)

const writeTimeout = 5 * time.Second

type Logger struct {
	log    zerolog.Logger
	store  store.LogStore
	source string
	taskID *int64
}

func New(log zerolog.Logger, s store.LogStore, source string) *Logger {
	return &Logger{
		log:    log.With().Str("component", source).Logger(),
		store:  s,
		source: source,
	}
}

// ForTask returns a logger whose lines and rows carry the task and run ids.
func (l *Logger) ForTask(taskID int64, runID string) *Logger {
	id := taskID
	return &Logger{
		log:    l.log.With().Int64("task_id", taskID).Str("run_id", runID).Logger(),
		store:  l.store,
		source: l.source,
		taskID: &id,
	}
}

// Zerolog exposes the console logger for debug lines that are not audited.
func (l *Logger) Zerolog() *zerolog.Logger { return &l.log }

func (l *Logger) Info(ctx context.Context, msg string) {
	l.write(ctx, domain.LevelInfo, msg, nil)
}

func (l *Logger) Warn(ctx context.Context, msg string, err error) {
	l.write(ctx, domain.LevelWarn, msg, err)
}

func (l *Logger) Error(ctx context.Context, msg string, err error) {
	l.write(ctx, domain.LevelError, msg, err)
}

func (l *Logger) write(ctx context.Context, level domain.LogLevel, msg string, err error) {
	var ev *zerolog.Event
	switch level {
	case domain.LevelWarn:
		ev = l.log.Warn()
	case domain.LevelError:
		ev = l.log.Error()
	default:
		ev = l.log.Info()
	}
	ev.Err(err).Msg(msg)

	if l.store == nil {
		return
	}
	text := msg
	if err != nil {
		text = msg + ": " + err.Error()
	}

	// A run that timed out still gets its last words recorded.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()
	entry := domain.LogEntry{
		Level:     level,
		Source:    l.source,
		Message:   text,
		TaskID:    l.taskID,
		Timestamp: time.Now().UTC(),
	}
	if serr := l.store.Append(ctx, entry); serr != nil {
		l.log.Error().Err(serr).Str("lost_message", text).Msg("write log entry")
	}
}
