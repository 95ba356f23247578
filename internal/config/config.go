package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

var ErrEmptyEnvironmentVariable = errors.New("empty environment variable")

// Config holds all application configuration
type Config struct {
	Twilio    TwilioConfig
	OpenAI    OpenAIConfig
	Voiceflow VoiceflowConfig
	PostCall  PostCallConfig
	Server    ServerConfig
}

// TwilioConfig holds telephony credentials and the outbound caller number
type TwilioConfig struct {
	AccountSID  string
	AuthToken   string
	PhoneNumber string
}

// OpenAIConfig holds the API key, model selection and the instruction template
type OpenAIConfig struct {
	APIKey          string
	RealtimeModel   string
	ExtractionModel string
	Voice           string
	SystemMessage   string // instruction template, loaded from SystemMessageFile
}

// VoiceflowConfig holds the knowledge-base query endpoint settings.
// ToolDescription being non-empty enables function calling for the whole
// process; tools are declared once at startup, not per call.
type VoiceflowConfig struct {
	APIKey          string
	BaseURL         string
	ToolDescription string
}

// PostCallConfig controls what happens after a call terminates
type PostCallConfig struct {
	WebhookURL string // empty disables the webhook send
	Extraction bool   // post the extracted record instead of the raw transcript
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int
}

const defaultVoiceflowURL = "https://general-runtime.voiceflow.com/knowledge-base/query"

// Load reads and validates all required environment variables
func Load() (*Config, error) {
	// Load env.local in non-production environments
	if os.Getenv("GO_ENV") != "production" {
		if err := godotenv.Load("env.local"); err != nil {
			return nil, fmt.Errorf("failed to load env.local: %w", err)
		}
	}

	cfg := &Config{}

	// Twilio configuration
	var err error
	if cfg.Twilio.AccountSID, err = requireEnv("TWILIO_ACCOUNT_SID"); err != nil {
		return nil, err
	}
	if cfg.Twilio.AuthToken, err = requireEnv("TWILIO_AUTH_TOKEN"); err != nil {
		return nil, err
	}
	if cfg.Twilio.PhoneNumber, err = requireEnv("TWILIO_PHONE_NUMBER"); err != nil {
		return nil, err
	}

	// OpenAI configuration
	if cfg.OpenAI.APIKey, err = requireEnv("OPENAI_API_KEY"); err != nil {
		return nil, err
	}
	cfg.OpenAI.RealtimeModel = getEnvWithDefault("OPENAI_REALTIME_MODEL", "gpt-4o-realtime-preview-2024-10-01")
	cfg.OpenAI.ExtractionModel = getEnvWithDefault("OPENAI_EXTRACTION_MODEL", "gpt-4o")
	cfg.OpenAI.Voice = getEnvWithDefault("OPENAI_VOICE", "alloy")

	systemMessageFile := getEnvWithDefault("SYSTEM_MESSAGE_FILE", "main_prompt.md")
	systemMessage, err := os.ReadFile(systemMessageFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read system message file %s: %w", systemMessageFile, err)
	}
	cfg.OpenAI.SystemMessage = string(systemMessage)

	// Voiceflow configuration
	if cfg.Voiceflow.APIKey, err = requireEnv("VOICEFLOW_API_KEY"); err != nil {
		return nil, err
	}
	cfg.Voiceflow.BaseURL = getEnvWithDefault("VOICEFLOW_URL", defaultVoiceflowURL)
	cfg.Voiceflow.ToolDescription = os.Getenv("VOICEFLOW_TOOL_DESCRIPTION")

	// Post-call configuration
	cfg.PostCall.WebhookURL = os.Getenv("WEBHOOK_URL")
	extraction := getEnvWithDefault("POST_CALL_EXTRACTION", "false")
	cfg.PostCall.Extraction, err = strconv.ParseBool(extraction)
	if err != nil {
		return nil, fmt.Errorf("failed to parse POST_CALL_EXTRACTION: %w", err)
	}

	// Server configuration
	serverPort := getEnvWithDefault("PORT", "5050")
	cfg.Server.Port, err = strconv.Atoi(serverPort)
	if err != nil {
		return nil, fmt.Errorf("failed to parse PORT: %w", err)
	}

	return cfg, nil
}

// ToolsEnabled reports whether function calling should be declared on the
// realtime session.
func (c *Config) ToolsEnabled() bool {
	return c.Voiceflow.ToolDescription != ""
}

// requireEnv retrieves an environment variable or returns an error if empty
func requireEnv(key string) (string, error) {
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("%s is not set: %w", key, ErrEmptyEnvironmentVariable)
	}
	return value, nil
}

// getEnvWithDefault retrieves an environment variable or returns a default value
func getEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
