package sprucedb

import (
	"io"

	"github.com/sirupsen/logrus"
)

func newSilentLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
