package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		m := map[string]any{}
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		out = append(out, m)
	}
	return out
}

func TestZerologLogger_FieldsAndLevels(t *testing.T) {
	var buf bytes.Buffer
	log := NewZerologLogger(zerolog.New(&buf).Level(zerolog.InfoLevel))
	ctx := context.Background()

	log.Debug(ctx, "hidden", "a", 1)
	log.Info(ctx, "card created", "id", "c-1")
	log.Error(ctx, "import failed", "err", errors.New("boom"), "dangling")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2, "debug must be filtered at info level")

	assert.Equal(t, "info", lines[0]["level"])
	assert.Equal(t, "card created", lines[0]["message"])
	assert.Equal(t, "c-1", lines[0]["id"])

	assert.Equal(t, "error", lines[1]["level"])
	assert.Equal(t, "boom", lines[1]["err"])
	assert.Equal(t, "dangling", lines[1]["!BADKEY"])
}

func TestZerologLogger_With(t *testing.T) {
	var buf bytes.Buffer
	log := NewZerologLogger(zerolog.New(&buf)).With("component", "keys")
	log.Warn(context.Background(), "unlock failed", "attempts", 2)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "keys", lines[0]["component"])
	assert.EqualValues(t, 2, lines[0]["attempts"])
}

func TestNew_Formats(t *testing.T) {
	tests := []struct {
		format string
		want   string
	}{
		{FormatText, "msg=hello"},
		{FormatJSON, `"msg":"hello"`},
		{FormatZerolog, `"message":"hello"`},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			log, err := New("info", tt.format, &buf)
			require.NoError(t, err)
			log.Debug(context.Background(), "quiet")
			log.Info(context.Background(), "hello")
			assert.Contains(t, buf.String(), tt.want)
			assert.NotContains(t, buf.String(), "quiet")
		})
	}
}

func TestNew_Errors(t *testing.T) {
	_, err := New("loud", FormatText, &bytes.Buffer{})
	require.Error(t, err)

	_, err = New("info", "xml", &bytes.Buffer{})
	require.Error(t, err)
}

func TestDiscard_DoesNotPanic(t *testing.T) {
	l := Discard()
	l.With("k", "v").Info(context.Background(), "dropped")
}
