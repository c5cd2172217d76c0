package logging

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		in   string
		want logrus.Level
	}{
		{"", logrus.InfoLevel},
		{"debug", logrus.DebugLevel},
		{"WARN", logrus.WarnLevel},
		{"error", logrus.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			logger, err := New(Options{Level: tt.in, Output: &bytes.Buffer{}})
			require.NoError(t, err)
			assert.Equal(t, tt.want, logger.GetLevel())
		})
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(Options{Level: "chatty"})
	assert.Error(t, err)
}

func TestNew_WritesFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "debug", NoColors: true, Output: &buf})
	require.NoError(t, err)

	logger.WithField("status", "matched").Info("frame analyzed")

	out := buf.String()
	assert.Contains(t, out, "frame analyzed")
	assert.Contains(t, out, "matched")
	assert.Contains(t, out, "logging_test.go")
}

func TestNew_File(t *testing.T) {
	file := filepath.Join(t.TempDir(), "frame-guide.log")
	logger, err := New(Options{File: file, Output: &bytes.Buffer{}})
	require.NoError(t, err)

	logger.Info("hello")
	assert.FileExists(t, file)
}

func TestWithCall(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{NoColors: true, Output: &buf})
	require.NoError(t, err)

	entry := WithCall(logger, "frame_guide")
	id, ok := entry.Data[CallIDKey].(string)
	require.True(t, ok)
	_, err = uuid.Parse(id)
	assert.NoError(t, err)
	assert.Equal(t, "frame_guide", entry.Data["tool"])

	other := WithCall(logger, "frame_guide")
	assert.NotEqual(t, id, other.Data[CallIDKey])
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	logger.Error("dropped")
}
