package helpers

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "error.log")

	logger := NewLogger(tmpFile)

	logger.LogError("Steam", errors.New("test error"))
	logger.LogError("discord", errors.New("send failed"))

	data, err := os.ReadFile(tmpFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[Steam] test error")
	assert.Contains(t, string(data), "[discord] send failed")
	assert.Equal(t, 2, strings.Count(string(data), "\n"))

	// Info messages go to the structured logger only
	logger.LogInfo("Test info message: %s", "hello")
}

func TestLoggerWithoutFile(t *testing.T) {
	logger := NewLogger("")
	assert.NotPanics(t, func() {
		logger.LogError("Epic", errors.New("ignored"))
	})
}
