package voiceflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"voicebridge-server/internal/apierrors"
	"voicebridge-server/internal/observability"
	"voicebridge-server/internal/prompts"
)

const (
	chunkLimit     = 3
	synthesisModel = "gpt-4"
	synthesisTemp  = 0.7
	defaultTimeout = 15 * time.Second
)

// QuerySettings is the synthesis configuration sent with every query.
type QuerySettings struct {
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	System      string  `json:"system"`
}

// QueryRequest is the fixed-shape knowledge-base query payload.
type QueryRequest struct {
	ChunkLimit int           `json:"chunkLimit"`
	Synthesis  bool          `json:"synthesis"`
	Settings   QuerySettings `json:"settings"`
	Question   string        `json:"question"`
}

// QueryResult is the knowledge-base answer. Only the synthesized output is
// consumed; the raw chunks are ignored.
type QueryResult struct {
	Output string `json:"output"`
}

// Client queries the Voiceflow knowledge base on behalf of a live call.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *observability.Logger
}

// NewClient creates a knowledge-base query client.
func NewClient(apiKey, baseURL string, logger *observability.Logger) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger: logger,
	}
}

// Query asks the knowledge base a question and returns the synthesized
// answer. The caller suspends until the answer arrives. Failures are
// returned to the caller: answering a live conversation with a made-up
// default would be worse than not answering at all.
func (c *Client) Query(ctx context.Context, question string) (QueryResult, error) {
	ctx = observability.WithFields(ctx,
		observability.Field{Key: "tool", Value: prompts.KnowledgeBaseToolName},
	)
	c.logger.Info(ctx, fmt.Sprintf("Querying knowledge base: %s", question))

	reqBody := QueryRequest{
		ChunkLimit: chunkLimit,
		Synthesis:  true,
		Settings: QuerySettings{
			Model:       synthesisModel,
			Temperature: synthesisTemp,
			System:      prompts.ToolSynthesisSystem,
		},
		Question: question,
	}

	jsonPayload, err := json.Marshal(reqBody)
	if err != nil {
		return QueryResult{}, fmt.Errorf("failed to marshal query request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewBuffer(jsonPayload))
	if err != nil {
		return QueryResult{}, fmt.Errorf("failed to create query request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error(ctx, "Knowledge base request failed", err)
		return QueryResult{}, fmt.Errorf("knowledge base request failed: %w", apierrors.ErrExternalService)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error(ctx, "Knowledge base returned non-success status",
			fmt.Errorf("status %d", resp.StatusCode))
		return QueryResult{}, fmt.Errorf("knowledge base returned status %d: %w",
			resp.StatusCode, apierrors.ErrExternalService)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return QueryResult{}, fmt.Errorf("failed to read knowledge base response: %w", apierrors.ErrExternalService)
	}

	var result QueryResult
	if err := json.Unmarshal(body, &result); err != nil {
		c.logger.Error(ctx, "Failed to parse knowledge base response", err)
		return QueryResult{}, fmt.Errorf("malformed knowledge base response: %w", apierrors.ErrExternalService)
	}

	c.logger.Info(ctx, "Knowledge base query answered")
	return result, nil
}
