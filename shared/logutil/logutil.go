// Package logutil creates a logrus file logger instance that
// mirrors all logs that are written to stdout.
package logutil

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// WriterHook is a hook that writes logs of specified LogLevels to specified Writer.
type WriterHook struct {
	Writer    io.Writer
	LogLevels []logrus.Level
}

// Fire will be called when some logging function is called with current hook.
// It will format log entry to string and write it to appropriate writer.
func (hook *WriterHook) Fire(entry *logrus.Entry) error {
	line, err := entry.String()
	if err != nil {
		return err
	}
	line = strings.TrimSuffix(line, "\n") + "\n"
	_, err = hook.Writer.Write([]byte(line))
	return err
}

// Levels defines on which log levels this hook would trigger.
func (hook *WriterHook) Levels() []logrus.Level {
	return hook.LogLevels
}

// ConfigurePersistentLogging adds a log-to-file writer hook to the logrus
// logger. The writer hook appends new logs to the specified log file.
func ConfigurePersistentLogging(logFileName string) error {
	logrus.WithField("logFileName", logFileName).Info("Logs will be made persistent")
	f, err := os.OpenFile(logFileName, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600) // #nosec G302
	if err != nil {
		return err
	}

	logrus.AddHook(&WriterHook{
		Writer:    f,
		LogLevels: logrus.AllLevels,
	})
	return nil
}
