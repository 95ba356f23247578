package bridge

import (
	"context"

	"voicebridge-server/internal/clients/openairt"
)

// RealtimeDialer adapts the openairt client to the UpstreamDialer interface.
type RealtimeDialer struct {
	Client *openairt.Client
}

func (d RealtimeDialer) Dial(ctx context.Context) (UpstreamConn, error) {
	conn, err := d.Client.Dial(ctx)
	if err != nil {
		return nil, err
	}
	return conn, nil
}
