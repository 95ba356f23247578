package handler

import (
	"voicebridge-server/internal/voicecall/bridge"

	"github.com/gin-gonic/gin"
)

// HandleMediaStream upgrades the connection and hands it to a new bridge,
// which owns the call from here until either side closes.
func (h Handler) HandleMediaStream(c *gin.Context) {
	ctx := c.Request.Context()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error(ctx, "WebSocket upgrade failed", err)
		return
	}
	defer conn.Close()

	h.logger.Info(ctx, "Media stream connection established")

	b := bridge.New(conn, h.dialer, h.store, h.dispatcher, h.finalizer, h.bridgeCfg, h.logger)
	b.Run(ctx)

	h.logger.Info(ctx, "Media stream connection ended")
}
