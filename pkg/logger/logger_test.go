package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("supply-service", "production", &buf)

	log.WithTenant("t-1").WithRecord("r-9").WithComponent("coverage").
		WithError(errors.New("boom")).Info().Msg("recomputed")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "supply-service", entry["service"])
	assert.Equal(t, "t-1", entry["tenant_id"])
	assert.Equal(t, "r-9", entry["record_id"])
	assert.Equal(t, "coverage", entry["component"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "recomputed", entry["message"])
}

func TestSetLevel(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	SetLevel("DEBUG")
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())

	SetLevel("warn")
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())

	SetLevel("loud")
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())

	SetLevel("")
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}

func TestNop(t *testing.T) {
	assert.NotPanics(t, func() {
		Nop().WithUserID("u").Info().Msg("ignored")
	})
}
