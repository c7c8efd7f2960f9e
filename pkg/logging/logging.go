package logging

import (
	"fmt"

	"github.com/onrik/logrus/filename"
	"github.com/onrik/logrus/formatter"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Settings type holds the logging config properties
type Settings struct {
	Level  string `mapstructure:"level" description:"minimum level for log messages"`
	Format string `mapstructure:"format" description:"format of log messages. Allowed values - text, json"`
}

// DefaultSettings returns the default logging settings
func DefaultSettings() *Settings {
	return &Settings{
		Level:  "info",
		Format: "text",
	}
}

// Validate validates the logging settings
func (s *Settings) Validate() error {
	if _, err := logrus.ParseLevel(s.Level); err != nil {
		return errors.Wrap(err, "log configuration Level is invalid")
	}
	if s.Format != "text" && s.Format != "json" {
		return errors.Errorf("log configuration Format must be text or json, got %q", s.Format)
	}
	return nil
}

// Setup sets up the logrus logging for the gallery based on the provided settings.
func Setup(settings *Settings) {
	logrus.AddHook(&ErrorLocationHook{})
	hook := filename.NewHook()
	hook.Field = "logSource"
	logrus.AddHook(hook)
	level, err := logrus.ParseLevel(settings.Level)
	if err != nil {
		logrus.SetLevel(logrus.DebugLevel)
		logrus.WithError(err).Debug("Could not parse log level configuration")
	} else {
		logrus.SetLevel(level)
	}
	if settings.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		textFormatter := formatter.New()
		logrus.SetFormatter(textFormatter)
	}
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// ErrorLocationHook adds the location where an error logged with WithError was created,
// when the error carries a stack trace from github.com/pkg/errors
type ErrorLocationHook struct{}

// Levels returns the levels the hook fires for
func (h *ErrorLocationHook) Levels() []logrus.Level {
	return []logrus.Level{logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel, logrus.WarnLevel}
}

// Fire adds the errorSource field
func (h *ErrorLocationHook) Fire(entry *logrus.Entry) error {
	err, ok := entry.Data[logrus.ErrorKey].(error)
	if !ok {
		return nil
	}
	tracer, ok := errors.Cause(err).(stackTracer)
	if !ok {
		tracer, ok = err.(stackTracer)
	}
	if !ok || len(tracer.StackTrace()) == 0 {
		return nil
	}
	entry.Data["errorSource"] = fmt.Sprintf("%v", tracer.StackTrace()[0])
	return nil
}
