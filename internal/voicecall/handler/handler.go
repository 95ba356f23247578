package handler

import (
	"context"
	"net/http"

	"voicebridge-server/internal/observability"
	"voicebridge-server/internal/sessions"
	"voicebridge-server/internal/voicecall/bridge"

	"github.com/gorilla/websocket"
)

// CallCreator places outbound calls.
type CallCreator interface {
	InitiateCall(ctx context.Context, to, webhookURL, statusCallbackURL string) (string, error)
}

// Handler owns the voice-call HTTP surface: call initiation, the TwiML
// webhooks, the status callback and the media-stream websocket.
type Handler struct {
	calls      CallCreator
	store      *sessions.Store
	dialer     bridge.UpstreamDialer
	dispatcher bridge.ToolDispatcher
	finalizer  bridge.Finalizer
	bridgeCfg  bridge.Config
	logger     *observability.Logger
}

// New creates the voice-call handler.
func New(calls CallCreator, store *sessions.Store, dialer bridge.UpstreamDialer,
	dispatcher bridge.ToolDispatcher, finalizer bridge.Finalizer, bridgeCfg bridge.Config,
	logger *observability.Logger) Handler {
	return Handler{
		calls:      calls,
		store:      store,
		dialer:     dialer,
		dispatcher: dispatcher,
		finalizer:  finalizer,
		bridgeCfg:  bridgeCfg,
		logger:     logger,
	}
}

// upgrader is a shared WebSocket upgrader. Twilio connects without an
// Origin header, so origin checks stay open.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}
