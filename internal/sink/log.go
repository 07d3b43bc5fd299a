package sink

import (
	log "github.com/sirupsen/logrus"

	"github.com/sweeney/tv-remote/internal/keys"
)

// LogSink is an always-connected sink that only logs key reports. It is
// used for bench runs without a paired host.
type LogSink struct {
	logger log.FieldLogger
}

// NewLogSink creates a LogSink writing to logger.
func NewLogSink(logger log.FieldLogger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) IsConnected() bool { return true }

func (s *LogSink) Write(code keys.Code) error {
	s.logger.WithField("key", code).Info("key tap")
	return nil
}

func (s *LogSink) Press(code keys.Code) error {
	s.logger.WithField("key", code).Info("key down")
	return nil
}

func (s *LogSink) Release(code keys.Code) error {
	s.logger.WithField("key", code).Info("key up")
	return nil
}

func (s *LogSink) ReleaseAll() error {
	s.logger.Info("all keys up")
	return nil
}
