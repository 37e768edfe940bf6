package logsvc

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryaedu/tutor/core"
	"github.com/aryaedu/tutor/core/auth"
)

func newTestLogger(t *testing.T, debug bool) (*RollbarLogger, *bytes.Buffer) {
	conf := core.NewTestConfig()
	conf.Debug = debug
	var buf bytes.Buffer
	logger := NewRollbarLogger(&buf, conf)
	logger.Enable(false)
	return logger, &buf
}

func lastLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var line map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &line))
	return line
}

func TestRollbarLogger(t *testing.T) {
	logger, buf := newTestLogger(t, false)

	tests := []struct {
		name      string
		log       func(msg string, args ...interface{})
		args      []interface{}
		wantLevel string
		wantKeys  map[string]interface{}
	}{
		{name: "info", log: logger.Info, wantLevel: "info"},
		{name: "warn", log: logger.Warn, wantLevel: "warn"},
		{
			name:      "error with cause",
			log:       logger.Error,
			args:      []interface{}{errors.New("boom")},
			wantLevel: "error",
			wantKeys:  map[string]interface{}{"error": "boom"},
		},
		{
			name:      "fields",
			log:       logger.Info,
			args:      []interface{}{map[string]interface{}{"video_id": "V123"}},
			wantLevel: "info",
			wantKeys:  map[string]interface{}{"video_id": "V123"},
		},
		{
			name:      "identity",
			log:       logger.Warn,
			args:      []interface{}{auth.Identity{Role: auth.RoleStudent, ID: "STU00000001"}},
			wantLevel: "warn",
			wantKeys:  map[string]interface{}{"role": "student", "identity": "STU00000001"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.log(tt.name, tt.args...)
			line := lastLine(t, buf)
			assert.Equal(t, tt.wantLevel, line["level"])
			assert.Equal(t, tt.name, line["message"])
			assert.Equal(t, "Arya Educations", line["app"])
			for k, v := range tt.wantKeys {
				assert.Equal(t, v, line[k])
			}
		})
	}
}

func TestRollbarLogger_Debug(t *testing.T) {
	logger, buf := newTestLogger(t, false)
	logger.Debug("hidden")
	assert.Empty(t, buf.String())

	logger, buf = newTestLogger(t, true)
	logger.Debug("shown")
	assert.Equal(t, "debug", lastLine(t, buf)["level"])
}

func TestRollbarLogger_Fatal(t *testing.T) {
	var code int
	orig := exitFunc
	exitFunc = func(c int) { code = c }
	defer func() { exitFunc = orig }()

	logger, buf := newTestLogger(t, false)
	logger.Fatal("cannot start")
	assert.Equal(t, 1, code)
	assert.Equal(t, "fatal", lastLine(t, buf)["level"])
}

func TestRollbarLogger_Named(t *testing.T) {
	logger, buf := newTestLogger(t, false)
	logger.Named("db").Info("connected")
	line := lastLine(t, buf)
	assert.Equal(t, "db", line["component"])
	assert.Equal(t, "connected", line["message"])
}
