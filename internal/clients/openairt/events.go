package openairt

// Server event types consumed by the bridge. Anything else is logged and
// ignored for forward compatibility.
const (
	EventTypeTranscriptionCompleted = "conversation.item.input_audio_transcription.completed"
	EventTypeResponseDone           = "response.done"
	EventTypeAudioDelta             = "response.audio.delta"
	EventTypeFunctionCallDone       = "response.function_call_arguments.done"
	EventTypeSessionUpdated         = "session.updated"
	EventTypeError                  = "error"
)

// ServerEvent is a realtime event received from the AI session. The Type
// tag selects which of the variant fields are populated.
type ServerEvent struct {
	Type string `json:"type"`

	// EventTypeTranscriptionCompleted
	Transcript string `json:"transcript,omitempty"`

	// EventTypeAudioDelta
	Delta string `json:"delta,omitempty"`

	// EventTypeFunctionCallDone
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
	CallID    string `json:"call_id,omitempty"`

	// EventTypeResponseDone
	Response *Response `json:"response,omitempty"`
}

// Response is the structured payload of a response.done event.
type Response struct {
	Output []ResponseItem `json:"output"`
}

// ResponseItem is one output item of a completed response.
type ResponseItem struct {
	Content []ContentPart `json:"content"`
}

// ContentPart is one content element of an output item. Only the transcript
// field is consumed.
type ContentPart struct {
	Transcript string `json:"transcript"`
}

// SessionConfig is the session.update payload configuring voice, audio
// formats, instructions and optional tool declarations.
type SessionConfig struct {
	TurnDetection           *TurnDetection      `json:"turn_detection,omitempty"`
	InputAudioFormat        string              `json:"input_audio_format,omitempty"`
	OutputAudioFormat       string              `json:"output_audio_format,omitempty"`
	Voice                   string              `json:"voice,omitempty"`
	Instructions            string              `json:"instructions,omitempty"`
	Modalities              []string            `json:"modalities,omitempty"`
	Temperature             float64             `json:"temperature,omitempty"`
	InputAudioTranscription *AudioTranscription `json:"input_audio_transcription,omitempty"`
	Tools                   []Tool              `json:"tools,omitempty"`
	ToolChoice              string              `json:"tool_choice,omitempty"`
}

// TurnDetection configures server-side voice activity detection.
type TurnDetection struct {
	Type string `json:"type"`
}

// AudioTranscription selects the model transcribing caller audio.
type AudioTranscription struct {
	Model string `json:"model"`
}

// Tool declares one function the session may call mid-conversation.
type Tool struct {
	Type        string                 `json:"type"`
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// sessionUpdateEvent is the outbound session.update frame.
type sessionUpdateEvent struct {
	Type    string        `json:"type"`
	Session SessionConfig `json:"session"`
}

// audioAppendEvent is the outbound input_audio_buffer.append frame.
type audioAppendEvent struct {
	Type  string `json:"type"`
	Audio string `json:"audio"`
}

// functionOutputEvent is the outbound conversation.item.create frame
// carrying a completed function call result.
type functionOutputEvent struct {
	Type string             `json:"type"`
	Item functionOutputItem `json:"item"`
}

type functionOutputItem struct {
	Type   string `json:"type"`
	Status string `json:"status"`
	CallID string `json:"call_id"`
	Output string `json:"output"`
}
