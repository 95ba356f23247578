package openairt

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"voicebridge-server/internal/observability"

	"github.com/gorilla/websocket"
)

const realtimeBaseURL = "wss://api.openai.com/v1/realtime"

// Client dials realtime sessions against the OpenAI API.
type Client struct {
	apiKey string
	model  string
	logger *observability.Logger
}

// NewClient creates a realtime session client.
func NewClient(apiKey, model string, logger *observability.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	return &Client{apiKey: apiKey, model: model, logger: logger}, nil
}

// Dial opens a websocket connection to a new realtime session.
func (c *Client) Dial(ctx context.Context) (*Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+c.apiKey)
	headers.Set("OpenAI-Beta", "realtime=v1")

	url := fmt.Sprintf("%s?model=%s", realtimeBaseURL, c.model)
	ws, _, err := dialer.DialContext(ctx, url, headers)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to realtime endpoint: %w", err)
	}

	return &Conn{ws: ws, logger: c.logger}, nil
}

// Conn is one live realtime session connection. Writes are serialized with
// a mutex since the bridge sends from more than one goroutine.
type Conn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
	logger  *observability.Logger
}

// ReadEvent blocks until the next well-formed server event arrives.
// Unparseable frames are logged and skipped; only a socket-level failure
// is returned as an error.
func (c *Conn) ReadEvent(ctx context.Context) (ServerEvent, error) {
	for {
		_, msg, err := c.ws.ReadMessage()
		if err != nil {
			return ServerEvent{}, err
		}

		var event ServerEvent
		if err := json.Unmarshal(msg, &event); err != nil {
			c.logger.Error(ctx, "Failed to parse realtime event, dropping frame", err)
			continue
		}
		return event, nil
	}
}

// SendSessionUpdate configures the session.
func (c *Conn) SendSessionUpdate(session SessionConfig) error {
	return c.send(sessionUpdateEvent{Type: "session.update", Session: session})
}

// SendAudioAppend forwards one base64 audio payload to the input buffer.
func (c *Conn) SendAudioAppend(audio string) error {
	return c.send(audioAppendEvent{Type: "input_audio_buffer.append", Audio: audio})
}

// SendFunctionOutput delivers a completed function call result so the
// session can resume generating a response that incorporates it.
func (c *Conn) SendFunctionOutput(callID, output string) error {
	return c.send(functionOutputEvent{
		Type: "conversation.item.create",
		Item: functionOutputItem{
			Type:   "function_call_output",
			Status: "completed",
			CallID: callID,
			Output: output,
		},
	})
}

func (c *Conn) send(v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal realtime event: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, payload)
}

// Close closes the underlying websocket.
func (c *Conn) Close() error {
	c.writeMu.Lock()
	c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()
	return c.ws.Close()
}
