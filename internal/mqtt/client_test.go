package mqtt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePayload_PlainObject(t *testing.T) {
	raw := []byte(`{"cmd":"buzz","duration_ms":800,"intensity":0.5,"beep":true}`)

	cmd, err := parsePayload(&raw)
	require.NoError(t, err)
	assert.Equal(t, "buzz", cmd.Cmd)
	assert.Equal(t, 800, cmd.DurationMS)
	assert.Equal(t, 0.5, cmd.Intensity)
	assert.True(t, cmd.Beep)
}

func TestParsePayload_StringWrapped(t *testing.T) {
	// Some publishers double-encode, sending the JSON object as a JSON
	// string.
	raw := []byte(`"{\"cmd\":\"stop\"}"`)

	cmd, err := parsePayload(&raw)
	require.NoError(t, err)
	assert.Equal(t, "stop", cmd.Cmd)
}

func TestParsePayload_Garbage(t *testing.T) {
	raw := []byte("not even close")
	_, err := parsePayload(&raw)
	assert.Error(t, err)

	raw = []byte(`"still not json inside"`)
	_, err = parsePayload(&raw)
	assert.Error(t, err)
}
