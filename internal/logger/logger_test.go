/**
 * Logger Tests
 *
 * Unit tests for the zerolog-based logging facade.
 *
 * Author: SqlProvider Team
 * Created: 2025-01-29
 */

package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var output map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &output))
	return output
}

func TestLoggerCreation(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		log := New(nil)
		assert.NotNil(t, log)
		assert.NotNil(t, log.config)
		assert.Equal(t, "info", log.Level())
	})

	t.Run("CustomConfig", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := New(&Config{
			Level:  "debug",
			Output: buf,
			Fields: map[string]interface{}{
				"app": "sqlprovider",
				"env": "test",
			},
		})

		log.Info("test message")

		output := decode(t, buf)
		assert.Equal(t, "info", output["level"])
		assert.Equal(t, "test message", output["message"])
		assert.Equal(t, "sqlprovider", output["app"])
		assert.Equal(t, "test", output["env"])
	})

	t.Run("InvalidLevelFallsBackToInfo", func(t *testing.T) {
		log := New(&Config{Level: "loud", Output: &bytes.Buffer{}})
		assert.Equal(t, "info", log.Level())
	})
}

func TestLoggingMethods(t *testing.T) {
	testCases := []struct {
		logFunc func(*Logger, string, ...interface{})
		name    string
		level   string
	}{
		{func(l *Logger, msg string, fields ...interface{}) { l.Debug(msg, fields...) }, "Debug", "debug"},
		{func(l *Logger, msg string, fields ...interface{}) { l.Info(msg, fields...) }, "Info", "info"},
		{func(l *Logger, msg string, fields ...interface{}) { l.Warn(msg, fields...) }, "Warn", "warn"},
		{func(l *Logger, msg string, fields ...interface{}) { l.Trace(msg, fields...) }, "Trace", "trace"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			log := New(&Config{
				Level:  "trace",
				Output: buf,
			})

			tc.logFunc(log, "test message", "key1", "value1", "key2", 123)

			output := decode(t, buf)
			assert.Equal(t, tc.level, output["level"])
			assert.Equal(t, "test message", output["message"])
			assert.Equal(t, "value1", output["key1"])
			assert.Equal(t, float64(123), output["key2"])
		})
	}
}

func TestEnabledChecks(t *testing.T) {
	log := New(&Config{Level: "warn", Output: &bytes.Buffer{}})

	assert.False(t, log.IsTraceEnabled())
	assert.False(t, log.IsDebugEnabled())
	assert.False(t, log.IsInfoEnabled())
	assert.True(t, log.IsWarnEnabled())
	assert.True(t, log.IsErrorEnabled())
	assert.True(t, log.IsFatalEnabled())
}

func TestDisabledLevelWritesNothing(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(&Config{Level: "error", Output: buf})

	log.Debug("debug")
	log.Info("info")
	log.Warn("warn")
	assert.Empty(t, buf.String())

	log.Error(errors.New("boom"), "error")
	assert.NotEmpty(t, buf.String())
}

func TestErrorLogging(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(&Config{
		Level:  "debug",
		Output: buf,
	})

	log.Error(errors.New("test error"), "error occurred", "operation", "ExecuteCommand")

	output := decode(t, buf)
	assert.Equal(t, "error", output["level"])
	assert.Equal(t, "error occurred", output["message"])
	assert.Equal(t, "test error", output["error"])
	assert.Equal(t, "ExecuteCommand", output["operation"])
}

func TestContextIntegration(t *testing.T) {
	log := New(&Config{Level: "debug", Output: &bytes.Buffer{}})

	ctx := log.WithContext(context.Background())
	assert.Same(t, log, FromContext(ctx))
	assert.NotNil(t, FromContext(context.Background()))
}

func TestChildLoggers(t *testing.T) {
	buf := &bytes.Buffer{}
	parent := New(&Config{
		Level:  "debug",
		Output: buf,
	})

	t.Run("WithField", func(t *testing.T) {
		buf.Reset()
		parent.WithField("session", "s-1").Info("child log")
		assert.Equal(t, "s-1", decode(t, buf)["session"])
	})

	t.Run("With", func(t *testing.T) {
		buf.Reset()
		parent.With("driver", "sqlite3", "table", "users").Info("child log")

		output := decode(t, buf)
		assert.Equal(t, "sqlite3", output["driver"])
		assert.Equal(t, "users", output["table"])
	})

	t.Run("WithFields", func(t *testing.T) {
		buf.Reset()
		parent.WithFields(map[string]interface{}{"rows": 3}).Info("child log")
		assert.Equal(t, float64(3), decode(t, buf)["rows"])
	})

	t.Run("ForComponent", func(t *testing.T) {
		buf.Reset()
		parent.ForComponent("dataprovider").Info("child log")
		assert.Equal(t, "dataprovider", decode(t, buf)["component"])
	})
}

func TestLogOperation(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(&Config{
		Level:  "debug",
		Output: buf,
	})

	t.Run("Success", func(t *testing.T) {
		buf.Reset()
		err := log.LogOperation("query", func() error {
			time.Sleep(time.Millisecond)
			return nil
		})
		assert.NoError(t, err)

		logs := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, logs, 2)

		var endLog map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(logs[1]), &endLog))
		assert.Equal(t, "Operation completed", endLog["message"])
		assert.Equal(t, "query", endLog["operation"])
		assert.NotNil(t, endLog["duration"])
	})

	t.Run("Failure", func(t *testing.T) {
		buf.Reset()
		testErr := errors.New("operation failed")
		err := log.LogOperation("exec", func() error {
			return testErr
		})
		assert.Equal(t, testErr, err)

		logs := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, logs, 2)

		var failLog map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(logs[1]), &failLog))
		assert.Equal(t, "error", failLog["level"])
		assert.Equal(t, "operation failed", failLog["error"])
	})
}

func TestSetLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(&Config{
		Level:  "info",
		Output: buf,
	})

	log.Debug("debug message")
	assert.Empty(t, buf.String())

	require.NoError(t, log.SetLevel("debug"))
	log.Debug("debug message")
	assert.NotEmpty(t, buf.String())

	assert.Error(t, log.SetLevel("invalid"))
}

func TestGlobalLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	Init(&Config{
		Level:  "debug",
		Output: buf,
	})

	Info("global info")
	output := decode(t, buf)
	assert.Equal(t, "info", output["level"])
	assert.Equal(t, "global info", output["message"])

	buf.Reset()
	Debug("debug message", "key", "value")
	assert.NotEmpty(t, buf.String())

	buf.Reset()
	Warn("warning message")
	assert.NotEmpty(t, buf.String())

	buf.Reset()
	Error(errors.New("test error"), "error message")
	assert.NotEmpty(t, buf.String())

	other := Nop()
	SetGlobal(other)
	assert.Same(t, other, Global())
}

func TestPredefinedConfigs(t *testing.T) {
	dev := NewDevelopmentConfig()
	assert.Equal(t, "debug", dev.Level)
	assert.True(t, dev.Pretty)
	assert.Equal(t, "development", dev.Fields["env"])

	prod := NewProductionConfig()
	assert.Equal(t, "info", prod.Level)
	assert.False(t, prod.Pretty)
	assert.Equal(t, "production", prod.Fields["env"])
}

func TestNewFromOutput(t *testing.T) {
	t.Run("File", func(t *testing.T) {
		logFile := filepath.Join(t.TempDir(), "logs", "provider.log")
		log, closeFn, err := NewFromOutput(OutputConfig{
			Level:  "info",
			Format: "json",
			Output: "file",
			File:   logFile,
		})
		require.NoError(t, err)

		log.Info("to file")
		require.NoError(t, closeFn())

		contents, err := os.ReadFile(logFile)
		require.NoError(t, err)
		assert.Contains(t, string(contents), "to file")
	})

	t.Run("FileWithoutPath", func(t *testing.T) {
		_, _, err := NewFromOutput(OutputConfig{Output: "file"})
		assert.Error(t, err)
	})

	t.Run("UnknownOutput", func(t *testing.T) {
		_, _, err := NewFromOutput(OutputConfig{Output: "syslog"})
		assert.Error(t, err)
	})
}

func TestFileWriter(t *testing.T) {
	tempDir := t.TempDir()

	t.Run("BasicWrite", func(t *testing.T) {
		logFile := filepath.Join(tempDir, "test.log")
		fw, err := NewFileWriter(logFile, 1024*1024, 3)
		require.NoError(t, err)
		defer fw.Close()

		data := []byte("test log entry\n")
		n, err := fw.Write(data)
		assert.NoError(t, err)
		assert.Equal(t, len(data), n)

		contents, err := os.ReadFile(logFile)
		require.NoError(t, err)
		assert.Equal(t, string(data), string(contents))
	})

	t.Run("Rotation", func(t *testing.T) {
		rotateFile := filepath.Join(tempDir, "rotate.log")
		fw, err := NewFileWriter(rotateFile, 50, 2)
		require.NoError(t, err)
		defer fw.Close()

		_, err = fw.Write([]byte("First line of log data that is long\n"))
		require.NoError(t, err)
		_, err = fw.Write([]byte("Second line that triggers rotation\n"))
		require.NoError(t, err)

		_, err = os.Stat(rotateFile + ".1")
		assert.NoError(t, err)
	})
}

func TestPrettyLogging(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(&Config{
		Level:  "info",
		Output: buf,
		Pretty: true,
	})

	log.Info("pretty message", "key", "value")

	output := buf.String()
	assert.Contains(t, output, "INF")
	assert.Contains(t, output, "pretty message")
	assert.Contains(t, output, "key=value")
}
