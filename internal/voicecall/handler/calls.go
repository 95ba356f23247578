package handler

import (
	"fmt"
	"net/http"

	"voicebridge-server/internal/apierrors"
	"voicebridge-server/internal/observability"
	"voicebridge-server/internal/voicecall/twilio"

	"github.com/gin-gonic/gin"
)

const (
	outgoingGreeting = "Hi! We are connecting you, wait a moment"
	incomingGreeting = "Hi! Connecting you to our assistant. One moment please."
)

// InitiateCallRequest is the body of POST /initiate-call.
type InitiateCallRequest struct {
	PhoneNumber string            `json:"phoneNumber" binding:"required"`
	ClientInfo  map[string]string `json:"clientInfo"`
}

// HandleInitiateCall places an outbound call and pre-creates its session
// carrying the supplied client info.
func (h Handler) HandleInitiateCall(c *gin.Context) {
	ctx := c.Request.Context()

	var req InitiateCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, apierrors.CodeInvalidInput, "Phone number is required")
		return
	}

	webhookURL := fmt.Sprintf("https://%s/outgoing-call-webhook", c.Request.Host)
	statusCallbackURL := fmt.Sprintf("https://%s/call-status", c.Request.Host)

	callSID, err := h.calls.InitiateCall(ctx, req.PhoneNumber, webhookURL, statusCallbackURL)
	if err != nil {
		h.logger.Error(ctx, "Failed to initiate call", err)
		apierrors.RespondWithError(c, err)
		return
	}

	sess, _ := h.store.GetOrCreate(callSID)
	sess.MergeClientInfo(req.ClientInfo)

	ctx = observability.WithFields(ctx, observability.Field{Key: "call_sid", Value: callSID})
	h.logger.Info(ctx, "Call initiated")

	c.JSON(http.StatusOK, gin.H{"message": "Call initiated", "callSid": callSID})
}

// HandleOutgoingCallWebhook answers Twilio's TwiML fetch for an outbound
// call by connecting the audio to the media-stream websocket.
func (h Handler) HandleOutgoingCallWebhook(c *gin.Context) {
	h.respondWithStreamTwiML(c, outgoingGreeting, true)
}

// HandleIncomingCall answers an inbound call the same way.
func (h Handler) HandleIncomingCall(c *gin.Context) {
	h.respondWithStreamTwiML(c, incomingGreeting, false)
}

func (h Handler) respondWithStreamTwiML(c *gin.Context, greeting string, pause bool) {
	streamURL := fmt.Sprintf("wss://%s/media-stream", c.Request.Host)

	twimlResult, err := twilio.ConnectStreamTwiML(greeting, streamURL, pause)
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}

	c.Header("Content-Type", "text/xml")
	c.String(http.StatusOK, twimlResult)
}

// HandleCallStatus consumes Twilio status callbacks. "completed" finalizes
// the call; the pipeline guard makes racing the socket-close path safe.
func (h Handler) HandleCallStatus(c *gin.Context) {
	callSID := c.PostForm("CallSid")
	callStatus := c.PostForm("CallStatus")

	ctx := observability.WithFields(c.Request.Context(),
		observability.Field{Key: "call_sid", Value: callSID},
		observability.Field{Key: "call_status", Value: callStatus},
	)
	h.logger.Info(ctx, "Call status update")

	if callStatus == "completed" {
		h.finalizer.Finalize(ctx, callSID)
	}

	c.JSON(http.StatusOK, gin.H{"message": "Status received"})
}
