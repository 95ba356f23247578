package twilio

import (
	"context"
	"fmt"

	"voicebridge-server/internal/apierrors"
	"voicebridge-server/internal/observability"

	twiliosdk "github.com/twilio/twilio-go"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"
	"github.com/twilio/twilio-go/twiml"
)

// statusCallbackEvents are the call lifecycle events we ask Twilio to
// report. "completed" drives the post-call pipeline.
var statusCallbackEvents = []string{"initiated", "ringing", "answered", "completed"}

// CallClient creates outbound calls through the Twilio REST API.
type CallClient struct {
	client *twiliosdk.RestClient
	from   string
	logger *observability.Logger
}

// NewCallClient creates a call client using the given account credentials
// and outbound caller number.
func NewCallClient(accountSID, authToken, from string, logger *observability.Logger) *CallClient {
	client := twiliosdk.NewRestClientWithParams(twiliosdk.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &CallClient{client: client, from: from, logger: logger}
}

// InitiateCall places an outbound call that fetches its TwiML from
// webhookURL and reports status changes to statusCallbackURL. Returns the
// new call SID.
func (c *CallClient) InitiateCall(ctx context.Context, to, webhookURL, statusCallbackURL string) (string, error) {
	params := &twilioapi.CreateCallParams{}
	params.SetTo(to)
	params.SetFrom(c.from)
	params.SetUrl(webhookURL)
	params.SetStatusCallback(statusCallbackURL)
	params.SetStatusCallbackEvent(statusCallbackEvents)

	resp, err := c.client.Api.CreateCall(params)
	if err != nil {
		c.logger.Error(ctx, "Failed to create call", err)
		return "", fmt.Errorf("failed to create call: %w", apierrors.ErrExternalService)
	}
	if resp.Sid == nil {
		return "", fmt.Errorf("call created without a SID: %w", apierrors.ErrExternalService)
	}

	ctx = observability.WithFields(ctx, observability.Field{Key: "call_sid", Value: *resp.Sid})
	c.logger.Info(ctx, "Outbound call created")
	return *resp.Sid, nil
}

// ConnectStreamTwiML renders the TwiML that greets the callee and connects
// the call audio to the media-stream websocket.
func ConnectStreamTwiML(greeting, streamURL string, pauseBeforeConnect bool) (string, error) {
	say := &twiml.VoiceSay{
		Message: greeting,
	}

	stream := twiml.VoiceStream{
		Url: streamURL,
	}
	connect := twiml.VoiceConnect{
		InnerElements: []twiml.Element{stream},
	}

	elements := []twiml.Element{say}
	if pauseBeforeConnect {
		elements = append(elements, &twiml.VoicePause{Length: "1"})
	}
	elements = append(elements, connect)

	return twiml.Voice(elements)
}
