package logx

import (
	"io"
	"os"

	"github.com/ax5-sect/server/internal/core"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var DefaultLoggerOpts = &LoggerOpts{
	Environment: core.Development,
}

type LoggerOpts struct {
	Environment core.Environment
	// Level overrides the environment default when set (debug, info, warn, error).
	Level string
	// Output defaults to stderr.
	Output io.Writer
}

func safe(otps ...LoggerOpts) *LoggerOpts {
	if len(otps) == 0 {
		return DefaultLoggerOpts
	}
	return &otps[0]
}

func Init(otps ...LoggerOpts) {
	opts := safe(otps...)
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	level := zerolog.DebugLevel
	if opts.Environment.IsProduction() {
		log.Logger = zerolog.New(out).With().Timestamp().Str("service", "ax5-sect").Logger()
		level = zerolog.InfoLevel
	} else {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: out}).With().Timestamp().Caller().Logger()
	}

	if opts.Level != "" {
		if parsed, err := zerolog.ParseLevel(opts.Level); err == nil {
			level = parsed
		}
	}
	log.Logger = log.Logger.Level(level)
}

// Conversation returns a child logger tagged with the conversation id.
func Conversation(conversationID string) zerolog.Logger {
	return log.Logger.With().Str("conversation_id", conversationID).Logger()
}

func Debug() *zerolog.Event {
	return log.Debug()
}

func Info() *zerolog.Event {
	return log.Info()
}

func Warn() *zerolog.Event {
	return log.Warn()
}

func Error() *zerolog.Event {
	return log.Error()
}

func Fatal() *zerolog.Event {
	return log.Fatal()
}
