package log

import (
	"fmt"
	"os"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/weaveworks/common/logging"
	"github.com/weaveworks/common/server"
)

var (
	Logger = log.NewNopLogger()
)

// InitLogger sets the global Logger and cfg.Log from the log level and
// format flags the server config registers.
func InitLogger(cfg *server.Config) {
	l := NewLogger(cfg.LogFormat)

	Logger = level.NewFilter(log.With(l, "caller", log.Caller(5)), cfg.LogLevel.Gokit)
	cfg.Log = logging.GoKit(level.NewFilter(log.With(l, "caller", log.Caller(6)), cfg.LogLevel.Gokit))
}

// NewLogger returns an unfiltered logger writing to stderr in format.
func NewLogger(format logging.Format) log.Logger {
	var logger log.Logger
	if format.String() == "json" {
		logger = log.NewJSONLogger(log.NewSyncWriter(os.Stderr))
	} else {
		logger = log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	}

	return log.With(logger, "ts", log.DefaultTimestampUTC, "app", "stockpile")
}

// WithService tags l with the name of the module it logs for.
func WithService(l log.Logger, service string) log.Logger {
	return log.With(l, "service", service)
}

func CheckFatal(location string, err error) {
	if err != nil {
		logger := level.Error(Logger)
		if location != "" {
			logger = log.With(logger, "msg", "error "+location)
		}

		_ = logger.Log("err", fmt.Sprintf("%+v", err))
		os.Exit(1)
	}
}
