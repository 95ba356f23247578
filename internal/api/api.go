package api

import (
	"net/http"

	voicecallHandler "voicebridge-server/internal/voicecall/handler"

	"github.com/gin-gonic/gin"
)

type API struct {
	router           *gin.RouterGroup
	voiceCallHandler voicecallHandler.Handler
}

func New(router *gin.RouterGroup, voiceCallHandler voicecallHandler.Handler) API {
	return API{
		router:           router,
		voiceCallHandler: voiceCallHandler,
	}
}

func (a *API) RegisterRoutes() {
	a.Health()

	a.router.POST("/initiate-call", a.voiceCallHandler.HandleInitiateCall)
	a.router.POST("/call-status", a.voiceCallHandler.HandleCallStatus)

	// Twilio fetches TwiML with either GET or POST depending on settings.
	a.router.GET("/outgoing-call-webhook", a.voiceCallHandler.HandleOutgoingCallWebhook)
	a.router.POST("/outgoing-call-webhook", a.voiceCallHandler.HandleOutgoingCallWebhook)
	a.router.GET("/incoming-call", a.voiceCallHandler.HandleIncomingCall)
	a.router.POST("/incoming-call", a.voiceCallHandler.HandleIncomingCall)

	a.router.GET("/media-stream", a.voiceCallHandler.HandleMediaStream)
}

func (a *API) Health() {
	a.router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Twilio Media Stream Server is running!"})
	})
	a.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})
}
