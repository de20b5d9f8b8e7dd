package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter_ProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("production", &buf)

	log.Debug().Msg("hidden")
	log.Info().Int64("job_id", 3).Msg("job paid")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "job paid", line["message"])
	assert.Equal(t, "contractor-payments", line["service"])
	assert.EqualValues(t, 3, line["job_id"])
}

func TestNewWithWriter_TestEnvironmentOnlyWarns(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("test", &buf)

	log.Info().Msg("quiet")
	assert.Zero(t, buf.Len())

	log.Warn().Msg("loud")
	assert.Contains(t, buf.String(), "loud")
}
