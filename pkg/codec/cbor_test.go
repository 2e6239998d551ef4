package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleEnvelope struct {
	Type     string `cbor:"type"`
	ClientID int64  `cbor:"client_id"`
	Note     string `cbor:"note,omitempty"`
}

func TestMarshalDeterministic(t *testing.T) {
	msg := sampleEnvelope{Type: "LIST_BASKET", ClientID: 7}

	first, err := Marshal(msg)
	require.NoError(t, err)
	second, err := Marshal(msg)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestUnmarshalIgnoresUnknownFields(t *testing.T) {
	data, err := Marshal(map[string]any{"type": "LOGIN", "client_id": -1, "extra": true})
	require.NoError(t, err)

	var decoded sampleEnvelope
	require.NoError(t, Unmarshal(data, &decoded))
	assert.Equal(t, "LOGIN", decoded.Type)
	assert.Equal(t, int64(-1), decoded.ClientID)
}

func TestUnmarshalGenericUsesStringKeys(t *testing.T) {
	data, err := Marshal(sampleEnvelope{Type: "CONFIRM_BOOKING", ClientID: 2})
	require.NoError(t, err)

	var decoded any
	require.NoError(t, Unmarshal(data, &decoded))
	m, ok := decoded.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "CONFIRM_BOOKING", m["type"])
}

func TestUnmarshalRejectsGarbage(t *testing.T) {
	var decoded sampleEnvelope
	assert.Error(t, Unmarshal([]byte{0xff, 0x00, 0x13}, &decoded))
}
