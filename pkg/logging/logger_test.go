package logging

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
)

func TestLogger(t *testing.T) {

	logger := NewLogger(slog.LevelDebug, nil)

	logger.Info("info test")
	logger.Warn("warn test")
	logger.Debug("debug test")
	logger.Debugf("debug test %d", 1)
}

func TestError(t *testing.T) {

	logger := NewLogger(slog.LevelDebug, nil)

	err := errors.New("an error occurred")

	logger.Info("info test")
	logger.Warn("warn test")
	logger.Error(err)
	logger.Debug("debug test")
}

func TestLogFile(t *testing.T) {

	fs := afero.NewMemMapFs()
	logFile, err := fs.Create("/var/log/test.log")
	assert.Nil(t, err)

	logger := NewLogger(slog.LevelInfo, logFile)
	logger.Info("issued certificate", "cn", "server.example.com")
	logger.Error(errors.New("an error occurred"))

	bytes, err := afero.ReadFile(fs, "/var/log/test.log")
	assert.Nil(t, err)
	assert.Contains(t, string(bytes), "issued certificate")
	assert.Contains(t, string(bytes), "server.example.com")
	assert.Contains(t, string(bytes), "an error occurred")
}
