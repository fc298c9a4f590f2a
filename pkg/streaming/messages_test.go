package streaming

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitwall/pitwall/pkg/core"
)

func TestMarshal(t *testing.T) {
	data, err := Marshal(TypeFrame, core.Frame{Seq: 9, Phase: "playing"})
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, TypeFrame, env.Type)

	var f core.Frame
	require.NoError(t, Decode(env, TypeFrame, &f))
	assert.Equal(t, uint64(9), f.Seq)
	assert.Equal(t, "playing", f.Phase)
}

func TestMarshal_NilPayload(t *testing.T) {
	data, err := Marshal(TypeEndRecording, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"end_recording","payload":null}`, string(data))
}

func TestMarshal_Unsupported(t *testing.T) {
	_, err := Marshal(TypeStatus, make(chan int))
	assert.Error(t, err)
}

func TestDecode_WrongType(t *testing.T) {
	err := Decode(Envelope{Type: TypeStatus, Payload: json.RawMessage(`{}`)}, TypeFrame, &core.Frame{})
	assert.ErrorContains(t, err, "unexpected message type")
}

func TestDecode_BadPayload(t *testing.T) {
	err := Decode(Envelope{Type: TypeStatus, Payload: json.RawMessage(`[`)}, TypeStatus, &StatusPayload{})
	assert.Error(t, err)
}

func TestAckMessage(t *testing.T) {
	var ack AckMessage
	require.NoError(t, json.Unmarshal([]byte(`{"type":"ack","for":"start_recording"}`), &ack))
	assert.Equal(t, AckMessage{Type: TypeAck, For: TypeStartRecording}, ack)
}
