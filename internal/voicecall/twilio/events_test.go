package twilio

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInboundStartEventParsing(t *testing.T) {
	raw := `{"event":"start","start":{"callSid":"CA1","streamSid":"S1","customParameters":{"Name":"Ann"}}}`

	var event MediaEvent
	require.NoError(t, json.Unmarshal([]byte(raw), &event))

	assert.Equal(t, EventStart, event.Event)
	assert.Equal(t, "CA1", event.Start.CallSID)
	assert.Equal(t, "S1", event.Start.StreamSID)
	assert.Equal(t, map[string]string{"Name": "Ann"}, event.Start.CustomParameters)
}

func TestOutboundMediaFrameShape(t *testing.T) {
	frame := NewMediaFrame("S1", "BBBB")

	payload, err := json.Marshal(frame)
	require.NoError(t, err)

	assert.JSONEq(t, `{"event":"media","streamSid":"S1","media":{"payload":"BBBB"}}`, string(payload))
}

func TestConnectStreamTwiML(t *testing.T) {
	result, err := ConnectStreamTwiML("Hello", "wss://example.com/media-stream", true)
	require.NoError(t, err)

	assert.Contains(t, result, "<Say>Hello</Say>")
	assert.Contains(t, result, `url="wss://example.com/media-stream"`)
	assert.Contains(t, result, "<Pause")
	assert.Contains(t, result, "<Connect>")
}
