package logger_test

import (
	"bytes"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/dexer/internal/adapters/logger"
)

// captureStderr captures output written to os.Stderr during the execution of fn.
func captureStderr(t *testing.T, fn func()) string {
	t.Helper()
	originalStderr := os.Stderr

	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stderr = w
	defer func() { os.Stderr = originalStderr }()

	done := make(chan string, 1)
	go func() {
		buf, _ := io.ReadAll(r)
		done <- string(buf)
	}()

	fn()

	require.NoError(t, w.Close())
	output := <-done
	require.NoError(t, r.Close())
	return output
}

func TestLogger_InfoToStderr(t *testing.T) {
	output := captureStderr(t, func() {
		logger.New().Info("Compiled 3 class file(s) to DEX format")
	})

	assert.Contains(t, output, "level=INFO")
	assert.Contains(t, output, "Compiled 3 class file(s) to DEX format")
}

func TestLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New()
	log.SetOutput(&buf)

	log.Debug("hidden")
	log.Warn("careful")
	log.Error(errors.New("broken"))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "level=WARN msg=careful")
	assert.Contains(t, out, "level=ERROR")
	assert.Contains(t, out, "error=broken")
}

func TestLogger_Verbose(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New()
	log.SetOutput(&buf)

	log.SetVerbose(true)
	log.Debug("visible")
	log.SetVerbose(false)
	log.Debug("hidden again")

	assert.Equal(t, 1, strings.Count(buf.String(), "level=DEBUG"))
	assert.Contains(t, buf.String(), "visible")
}

func TestLogger_OmitsTimestamps(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New()
	log.SetOutput(&buf)

	log.Info("wrote 2 classes")

	assert.Equal(t, "level=INFO msg=\"wrote 2 classes\"\n", buf.String())
}
