package logging

import "github.com/rs/zerolog"

// CommandLogger writes dispatcher events through zerolog. Values that are
// errors land under their key as error strings; a non-string key is skipped
// together with its value.
type CommandLogger struct {
	logger zerolog.Logger
}

func NewCommandLogger(logger zerolog.Logger) *CommandLogger {
	return &CommandLogger{logger: logger}
}

func (l *CommandLogger) Debug(msg string, keysAndValues ...any) {
	emit(l.logger.Debug(), msg, keysAndValues)
}

func (l *CommandLogger) Info(msg string, keysAndValues ...any) {
	emit(l.logger.Info(), msg, keysAndValues)
}

func (l *CommandLogger) Error(msg string, keysAndValues ...any) {
	emit(l.logger.Error(), msg, keysAndValues)
}

func emit(e *zerolog.Event, msg string, kv []any) {
	// nil when the level is disabled
	if e == nil {
		return
	}
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		if err, isErr := kv[i+1].(error); isErr {
			e = e.AnErr(key, err)
			continue
		}
		e = e.Interface(key, kv[i+1])
	}
	e.Msg(msg)
}
