package bootstrap

import (
	"context"
	"fmt"

	"voicebridge-server/internal/clients/openairt"
	"voicebridge-server/internal/clients/voiceflow"
	"voicebridge-server/internal/clients/webhook"
	"voicebridge-server/internal/config"
	"voicebridge-server/internal/extraction"
	"voicebridge-server/internal/observability"
	"voicebridge-server/internal/sessions"
	"voicebridge-server/internal/voicecall/bridge"
	voicecallHandler "voicebridge-server/internal/voicecall/handler"
	"voicebridge-server/internal/voicecall/postcall"
	twilioClient "voicebridge-server/internal/voicecall/twilio"
)

// Dependencies holds all initialized application dependencies
type Dependencies struct {
	Logger       *observability.Logger
	SessionStore *sessions.Store

	VoiceCallHandler voicecallHandler.Handler
}

// Initialize sets up all application dependencies
func Initialize(ctx context.Context, cfg *config.Config, logger *observability.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Logger:       logger,
		SessionStore: sessions.NewStore(),
	}

	// External clients
	realtimeClient, err := openairt.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.RealtimeModel, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create realtime client: %w", err)
	}

	voiceflowClient := voiceflow.NewClient(cfg.Voiceflow.APIKey, cfg.Voiceflow.BaseURL, logger)
	callClient := twilioClient.NewCallClient(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.PhoneNumber, logger)
	notifier := webhook.NewNotifier(cfg.PostCall.WebhookURL, logger)
	extractor := extraction.New(cfg.OpenAI.APIKey, cfg.OpenAI.ExtractionModel, logger)

	// Post-call pipeline
	pipeline := postcall.New(deps.SessionStore, extractor, notifier, cfg.PostCall.Extraction, logger)

	// Bridge configuration, fixed for the process lifetime
	bridgeCfg := bridge.Config{
		Session: openairt.SessionConfig{
			TurnDetection:           &openairt.TurnDetection{Type: "server_vad"},
			InputAudioFormat:        "g711_ulaw",
			OutputAudioFormat:       "g711_ulaw",
			Voice:                   cfg.OpenAI.Voice,
			Modalities:              []string{"text", "audio"},
			Temperature:             0.8,
			InputAudioTranscription: &openairt.AudioTranscription{Model: "whisper-1"},
		},
		InstructionsTemplate: cfg.OpenAI.SystemMessage,
		ToolDescription:      cfg.Voiceflow.ToolDescription,
	}

	if !cfg.ToolsEnabled() {
		logger.Info(ctx, "VOICEFLOW_TOOL_DESCRIPTION is not provided, function calling is disabled")
	}

	deps.VoiceCallHandler = voicecallHandler.New(
		callClient,
		deps.SessionStore,
		bridge.RealtimeDialer{Client: realtimeClient},
		voiceflowClient,
		pipeline,
		bridgeCfg,
		logger,
	)

	return deps, nil
}
