package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"voicebridge-server/internal/clients/openairt"
	"voicebridge-server/internal/clients/voiceflow"
	"voicebridge-server/internal/observability"
	"voicebridge-server/internal/prompts"
	"voicebridge-server/internal/sessions"
	"voicebridge-server/internal/voicecall/twilio"

	"github.com/gorilla/websocket"
)

// agentMessageFallback is appended when a completed response carries no
// transcript. A response without one is a valid, if degenerate, outcome.
const agentMessageFallback = "Agent message not found"

// DownstreamConn is the telephony-side websocket. *websocket.Conn
// satisfies it.
type DownstreamConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// UpstreamConn is an established realtime session connection.
type UpstreamConn interface {
	ReadEvent(ctx context.Context) (openairt.ServerEvent, error)
	SendSessionUpdate(session openairt.SessionConfig) error
	SendAudioAppend(audio string) error
	SendFunctionOutput(callID, output string) error
	Close() error
}

// UpstreamDialer opens realtime session connections.
type UpstreamDialer interface {
	Dial(ctx context.Context) (UpstreamConn, error)
}

// ToolDispatcher answers knowledge-base questions mid-conversation.
type ToolDispatcher interface {
	Query(ctx context.Context, question string) (voiceflow.QueryResult, error)
}

// Finalizer runs the post-call teardown for a call.
type Finalizer interface {
	Finalize(ctx context.Context, callSID string)
}

// Config carries the per-process bridge settings. Tool availability is
// decided once at startup, not per call.
type Config struct {
	// Session is the base realtime session configuration; the bridge fills
	// in Instructions (from the template and client info) and Tools.
	Session openairt.SessionConfig

	// InstructionsTemplate is rendered with the session's client info.
	InstructionsTemplate string

	// ToolDescription enables the knowledge-base function when non-empty.
	ToolDescription string

	// SessionUpdateDelay defers session.update after connect so it does not
	// race the upstream's own setup handshake.
	SessionUpdateDelay time.Duration

	// DialTimeout bounds the upstream connection attempt.
	DialTimeout time.Duration
}

func (c Config) sessionUpdateDelay() time.Duration {
	if c.SessionUpdateDelay > 0 {
		return c.SessionUpdateDelay
	}
	return 250 * time.Millisecond
}

func (c Config) dialTimeout() time.Duration {
	if c.DialTimeout > 0 {
		return c.DialTimeout
	}
	return 10 * time.Second
}

// Bridge relays one call between the telephony media stream and a realtime
// AI session. It exclusively owns both sockets: nothing else writes to
// them. One Bridge services exactly one call.
type Bridge struct {
	downstream DownstreamConn
	dialer     UpstreamDialer
	store      *sessions.Store
	dispatcher ToolDispatcher
	finalizer  Finalizer
	cfg        Config
	logger     *observability.Logger

	mu       sync.Mutex
	upstream UpstreamConn      // nil until connected, nil again after upstream failure
	sess     *sessions.Session // nil until the start event arrives

	downWriteMu sync.Mutex
}

// New creates a bridge for one inbound media-stream connection.
func New(downstream DownstreamConn, dialer UpstreamDialer, store *sessions.Store,
	dispatcher ToolDispatcher, finalizer Finalizer, cfg Config, logger *observability.Logger) *Bridge {
	return &Bridge{
		downstream: downstream,
		dialer:     dialer,
		store:      store,
		dispatcher: dispatcher,
		finalizer:  finalizer,
		cfg:        cfg,
		logger:     logger,
	}
}

// Run services the call until the downstream side closes, then tears down
// the upstream leg and triggers the post-call pipeline. It blocks for the
// lifetime of the call.
func (b *Bridge) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		b.runUpstream(ctx)
	}()

	// The downstream loop returning means the caller hung up or the socket
	// failed; either way the telephony leg governs call termination.
	b.readDownstream(ctx)

	b.closeUpstream(ctx)
	cancel()
	wg.Wait()

	b.terminate()
}

// runUpstream connects the realtime session, configures it after a short
// delay, and consumes its events until the connection fails. Upstream
// failure never cascades to the downstream leg; the bridge just stops
// forwarding media.
func (b *Bridge) runUpstream(ctx context.Context) {
	dialCtx, cancel := context.WithTimeout(ctx, b.cfg.dialTimeout())
	conn, err := b.dialer.Dial(dialCtx)
	cancel()
	if err != nil {
		b.logger.Error(ctx, "Failed to connect to realtime session", err)
		return
	}
	b.logger.Info(ctx, "Connected to realtime session")

	b.mu.Lock()
	b.upstream = conn
	b.mu.Unlock()

	// Let the upstream finish its own setup before configuring the session.
	select {
	case <-time.After(b.cfg.sessionUpdateDelay()):
	case <-ctx.Done():
		return
	}
	if err := conn.SendSessionUpdate(b.buildSessionConfig()); err != nil {
		b.logger.Error(ctx, "Failed to send session update", err)
	}

	for {
		event, err := conn.ReadEvent(ctx)
		if err != nil {
			if ctx.Err() == nil {
				b.logger.InfoWithError(ctx, "Realtime session closed", err)
			}
			b.mu.Lock()
			b.upstream = nil
			b.mu.Unlock()
			return
		}
		b.handleUpstreamEvent(ctx, event)
	}
}

// buildSessionConfig renders the instruction template with whatever client
// info has arrived and declares the knowledge-base tool when enabled.
func (b *Bridge) buildSessionConfig() openairt.SessionConfig {
	clientInfo := map[string]string{}
	if sess := b.session(); sess != nil {
		clientInfo = sess.ClientInfo()
	}

	session := b.cfg.Session
	session.Instructions = prompts.Fill(b.cfg.InstructionsTemplate, clientInfo)

	if b.cfg.ToolDescription != "" {
		session.Tools = []openairt.Tool{
			{
				Type:        "function",
				Name:        prompts.KnowledgeBaseToolName,
				Description: b.cfg.ToolDescription,
				Parameters: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"question": map[string]interface{}{
							"type":        "string",
							"description": "The question to ask the knowledge base",
						},
					},
					"required": []string{"question"},
				},
			},
		}
		session.ToolChoice = "auto"
	}

	return session
}

// readDownstream consumes media-stream frames until the socket closes.
// Malformed frames are dropped; a parse failure never closes either side.
func (b *Bridge) readDownstream(ctx context.Context) {
	for {
		_, msg, err := b.downstream.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				b.logger.Info(ctx, "Media stream closed normally")
			} else if ctx.Err() == nil {
				b.logger.InfoWithError(ctx, "Media stream read ended", err)
			}
			return
		}

		var event twilio.MediaEvent
		if err := json.Unmarshal(msg, &event); err != nil {
			b.logger.Error(ctx, "Failed to parse media-stream frame, dropping", err)
			continue
		}

		switch event.Event {
		case twilio.EventStart:
			b.handleStart(ctx, event.Start)

		case twilio.EventMedia:
			b.forwardAudio(ctx, event.Media.Payload)

		default:
			b.logger.Debug(ctx, fmt.Sprintf("Ignoring media-stream event: %s", event.Event))
		}
	}
}

// handleStart creates or fetches the session for the call and records the
// stream leg. This is the only point where downstream metadata may
// populate client info; info supplied at call initiation wins.
func (b *Bridge) handleStart(ctx context.Context, start twilio.StartPayload) {
	sess, created := b.store.GetOrCreate(start.CallSID)
	if len(start.CustomParameters) > 0 {
		sess.MergeClientInfo(start.CustomParameters)
	}
	sess.SetStreamSID(start.StreamSID)

	b.mu.Lock()
	b.sess = sess
	b.mu.Unlock()

	ctx = observability.WithFields(ctx,
		observability.Field{Key: "call_sid", Value: start.CallSID},
		observability.Field{Key: "stream_sid", Value: start.StreamSID},
		observability.Field{Key: "session_created", Value: created},
	)
	b.logger.Info(ctx, "Media stream started")
}

// forwardAudio relays one inbound audio chunk to the realtime session.
// Frames arriving before the start event or before the upstream connection
// is open are dropped, never queued: queuing risks unbounded growth if the
// upstream never connects.
func (b *Bridge) forwardAudio(ctx context.Context, payload string) {
	b.mu.Lock()
	up, sess := b.upstream, b.sess
	b.mu.Unlock()

	if sess == nil || up == nil {
		return
	}
	if err := up.SendAudioAppend(payload); err != nil {
		b.logger.Error(ctx, "Failed to forward audio upstream", err)
	}
}

// handleUpstreamEvent translates one realtime event. Audio deltas are the
// latency-critical path and touch nothing but the downstream socket.
func (b *Bridge) handleUpstreamEvent(ctx context.Context, event openairt.ServerEvent) {
	switch event.Type {
	case openairt.EventTypeAudioDelta:
		if event.Delta != "" {
			b.sendAudioDownstream(ctx, event.Delta)
		}

	case openairt.EventTypeTranscriptionCompleted:
		if sess := b.session(); sess != nil {
			text := strings.TrimSpace(event.Transcript)
			sess.AppendUtterance(sessions.SpeakerUser, text)
			b.logger.Info(ctx, fmt.Sprintf("User (%s): %s", sess.CallSID, text))
		}

	case openairt.EventTypeResponseDone:
		if sess := b.session(); sess != nil {
			text := agentTranscript(event.Response)
			sess.AppendUtterance(sessions.SpeakerAgent, text)
			b.logger.Info(ctx, fmt.Sprintf("Agent (%s): %s", sess.CallSID, text))
		}

	case openairt.EventTypeFunctionCallDone:
		b.handleFunctionCall(ctx, event)

	case openairt.EventTypeSessionUpdated:
		b.logger.Info(ctx, "Realtime session configured")

	default:
		b.logger.Debug(ctx, fmt.Sprintf("Ignoring realtime event: %s", event.Type))
	}
}

// agentTranscript finds the first content item bearing a transcript in a
// completed response.
func agentTranscript(response *openairt.Response) string {
	if response == nil {
		return agentMessageFallback
	}
	for _, item := range response.Output {
		for _, content := range item.Content {
			if content.Transcript != "" {
				return content.Transcript
			}
		}
	}
	return agentMessageFallback
}

// sendAudioDownstream re-encodes an audio delta as an outbound media frame
// tagged with the current stream leg.
func (b *Bridge) sendAudioDownstream(ctx context.Context, delta string) {
	sess := b.session()
	if sess == nil {
		return
	}

	frame := twilio.NewMediaFrame(sess.StreamSID(), delta)
	payload, err := json.Marshal(frame)
	if err != nil {
		b.logger.Error(ctx, "Failed to marshal media frame", err)
		return
	}

	b.downWriteMu.Lock()
	err = b.downstream.WriteMessage(websocket.TextMessage, payload)
	b.downWriteMu.Unlock()
	if err != nil {
		b.logger.Error(ctx, "Failed to send audio downstream", err)
	}
}

// handleFunctionCall answers a knowledge-base tool call and feeds the
// result back into the conversation. A dispatcher failure is logged and no
// output is sent; substituting a default answer could mislead the caller.
func (b *Bridge) handleFunctionCall(ctx context.Context, event openairt.ServerEvent) {
	if b.cfg.ToolDescription == "" || b.dispatcher == nil {
		b.logger.Warn(ctx, fmt.Sprintf("Function call received with tools disabled: %s", event.Name))
		return
	}
	if event.Name != prompts.KnowledgeBaseToolName {
		b.logger.Warn(ctx, fmt.Sprintf("Unknown function call: %s", event.Name))
		return
	}

	var args struct {
		Question string `json:"question"`
	}
	if err := json.Unmarshal([]byte(event.Arguments), &args); err != nil {
		b.logger.Error(ctx, "Failed to parse function call arguments", err)
		return
	}

	result, err := b.dispatcher.Query(ctx, args.Question)
	if err != nil {
		b.logger.Error(ctx, "Knowledge base query failed", err)
		return
	}

	up := b.currentUpstream()
	if up == nil {
		return
	}
	if err := up.SendFunctionOutput(event.CallID, result.Output); err != nil {
		b.logger.Error(ctx, "Failed to send function call output", err)
	}
}

// closeUpstream closes the AI leg after the caller hung up.
func (b *Bridge) closeUpstream(ctx context.Context) {
	b.mu.Lock()
	up := b.upstream
	b.upstream = nil
	b.mu.Unlock()

	if up != nil {
		if err := up.Close(); err != nil {
			b.logger.Debug(ctx, fmt.Sprintf("Error closing realtime session: %v", err))
		}
	}
}

// terminate triggers the post-call pipeline. The pipeline itself guards
// against double invocation, so racing the telephony status callback is
// safe. Runs on a fresh context: the request context died with the socket.
func (b *Bridge) terminate() {
	sess := b.session()
	if sess == nil {
		return
	}
	b.finalizer.Finalize(context.Background(), sess.CallSID)
}

func (b *Bridge) session() *sessions.Session {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sess
}

func (b *Bridge) currentUpstream() UpstreamConn {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.upstream
}
