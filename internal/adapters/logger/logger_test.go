package logger_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/buildrules/internal/adapters/logger"
	"go.trai.ch/zerr"
)

func TestLogger_Info(t *testing.T) {
	l := logger.New()
	var buf bytes.Buffer
	l.SetOutput(&buf)

	l.Info("rule state transition", "rule", "t1/zlib", "from", "Pending", "to", "Scheduled")

	out := buf.String()
	assert.Contains(t, out, "level=INFO")
	assert.Contains(t, out, "msg=\"rule state transition\"")
	assert.Contains(t, out, "rule=t1/zlib")
	assert.Contains(t, out, "from=Pending")
	assert.Contains(t, out, "to=Scheduled")
}

func TestLogger_Warn(t *testing.T) {
	l := logger.New()
	var buf bytes.Buffer
	l.SetOutput(&buf)

	l.Warn("target worker unreachable", "target", "t2")

	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "target=t2")
}

func TestLogger_Error(t *testing.T) {
	l := logger.New()
	var buf bytes.Buffer
	l.SetOutput(&buf)

	l.Error(zerr.New("boom"), "rule", "t1/zlib")

	out := buf.String()
	assert.Contains(t, out, "level=ERROR")
	assert.Contains(t, out, "boom")
	assert.Contains(t, out, "rule=t1/zlib")
}
