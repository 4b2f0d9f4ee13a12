package testutil

import (
	"bytes"

	"github.com/sirupsen/logrus"
)

// NewBufferLogger returns a debug-level logger writing text lines to the
// returned buffer.
func NewBufferLogger() (*logrus.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	l := logrus.New()
	l.SetOutput(buf)
	l.SetLevel(logrus.DebugLevel)
	l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true, DisableQuote: true})
	return l, buf
}
