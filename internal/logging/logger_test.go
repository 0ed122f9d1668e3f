// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zerolog.Level
		wantErr bool
	}{
		{"", zerolog.WarnLevel, false},
		{"debug", zerolog.DebugLevel, false},
		{" INFO ", zerolog.InfoLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"loud", zerolog.NoLevel, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewJSONRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, zerolog.WarnLevel, FormatJSON)

	log.Info().Msg("hidden")
	log.Warn().Str("path", "/a/b.txt").Msg("shown")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "shown", entry["message"])
	assert.Equal(t, "/a/b.txt", entry["path"])
	assert.Equal(t, "warn", entry["level"])
}

func TestNewConsole(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, zerolog.DebugLevel, FormatConsole)
	log.Debug().Msg("cache miss")
	assert.Contains(t, buf.String(), "cache miss")
}

func TestOrNop(t *testing.T) {
	l := OrNop(nil)
	assert.Equal(t, zerolog.Disabled, l.GetLevel())

	var buf bytes.Buffer
	real := New(&buf, zerolog.InfoLevel, FormatJSON)
	got := OrNop(&real)
	got.Info().Msg("x")
	assert.NotEmpty(t, buf.String())
}
