package twilio

// MediaEvent is an inbound media-stream frame. The Event tag selects which
// variant payload is populated; unknown tags fall through to the bridge's
// catch-all logging path.
type MediaEvent struct {
	Event string       `json:"event"`
	Start StartPayload `json:"start,omitempty"`
	Media MediaPayload `json:"media,omitempty"`
	Stop  StopPayload  `json:"stop,omitempty"`
}

// StartPayload announces the call and stream identifiers and any custom
// parameters attached to the stream by the TwiML that opened it.
type StartPayload struct {
	CallSID          string            `json:"callSid"`
	StreamSID        string            `json:"streamSid"`
	CustomParameters map[string]string `json:"customParameters,omitempty"`
}

// MediaPayload carries one base64-encoded audio chunk.
type MediaPayload struct {
	Payload string `json:"payload"`
}

// StopPayload announces the end of a stream leg.
type StopPayload struct {
	StreamSID string `json:"streamSid"`
}

// Inbound event tags.
const (
	EventStart = "start"
	EventMedia = "media"
	EventStop  = "stop"
)

// OutboundMediaFrame is an outbound audio frame, tagged with the stream it
// belongs to so Twilio routes it to the correct leg.
type OutboundMediaFrame struct {
	Event     string       `json:"event"`
	StreamSID string       `json:"streamSid"`
	Media     MediaPayload `json:"media"`
}

// NewMediaFrame builds an outbound media frame for the given stream.
func NewMediaFrame(streamSID, payload string) OutboundMediaFrame {
	return OutboundMediaFrame{
		Event:     EventMedia,
		StreamSID: streamSID,
		Media:     MediaPayload{Payload: payload},
	}
}
