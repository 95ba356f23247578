package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"voicebridge-server/internal/apierrors"
	"voicebridge-server/internal/observability"
	"voicebridge-server/internal/prompts"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const extractionTimeout = 30 * time.Second

// CustomerDetails is the structured record extracted from a completed call.
type CustomerDetails struct {
	CustomerName         string `json:"customerName"`
	CustomerAvailability string `json:"customerAvailability"`
	SpecialNotes         string `json:"specialNotes"`
}

var customerDetailsSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"customerName":         map[string]interface{}{"type": "string"},
		"customerAvailability": map[string]interface{}{"type": "string"},
		"specialNotes":         map[string]interface{}{"type": "string"},
	},
	"required":             []string{"customerName", "customerAvailability", "specialNotes"},
	"additionalProperties": false,
}

// Extractor turns a finished call transcript into a CustomerDetails record
// with a single schema-constrained completion.
type Extractor struct {
	client openai.Client
	model  string
	logger *observability.Logger
}

// New creates an Extractor. Extra request options are passed through to the
// OpenAI client, which lets tests point it at a mock endpoint.
func New(apiKey, model string, logger *observability.Logger, opts ...option.RequestOption) *Extractor {
	options := append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &Extractor{
		client: openai.NewClient(options...),
		model:  model,
		logger: logger,
	}
}

// Extract sends the transcript to the completion endpoint and parses the
// three-field record out of the response. A response with missing content
// or content that does not match the schema yields an extraction error;
// no partial record is ever returned.
func (e *Extractor) Extract(ctx context.Context, transcript string) (CustomerDetails, error) {
	ctx, cancel := context.WithTimeout(ctx, extractionTimeout)
	defer cancel()

	e.logger.Info(ctx, "Extracting customer details from transcript")

	completion, err := e.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(e.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(prompts.ExtractionSystem),
			openai.UserMessage(transcript),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   "customer_details",
					Schema: customerDetailsSchema,
					Strict: openai.Bool(true),
				},
			},
		},
	})
	if err != nil {
		e.logger.Error(ctx, "Extraction completion failed", err)
		return CustomerDetails{}, fmt.Errorf("extraction completion failed: %w", apierrors.ErrExtraction)
	}

	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		return CustomerDetails{}, fmt.Errorf("extraction response has no message content: %w", apierrors.ErrExtraction)
	}

	details, err := parseDetails(completion.Choices[0].Message.Content)
	if err != nil {
		e.logger.Error(ctx, "Extraction response did not match schema", err)
		return CustomerDetails{}, err
	}

	return details, nil
}

// parseDetails validates that the content is a JSON object carrying exactly
// the three required string fields before converting it to a record.
func parseDetails(content string) (CustomerDetails, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content), &fields); err != nil {
		return CustomerDetails{}, fmt.Errorf("extraction content is not valid JSON: %w", apierrors.ErrExtraction)
	}

	var details CustomerDetails
	for key, dst := range map[string]*string{
		"customerName":         &details.CustomerName,
		"customerAvailability": &details.CustomerAvailability,
		"specialNotes":         &details.SpecialNotes,
	} {
		raw, ok := fields[key]
		if !ok {
			return CustomerDetails{}, fmt.Errorf("extraction content is missing %s: %w", key, apierrors.ErrExtraction)
		}
		if err := json.Unmarshal(raw, dst); err != nil {
			return CustomerDetails{}, fmt.Errorf("extraction field %s is not a string: %w", key, apierrors.ErrExtraction)
		}
	}

	return details, nil
}
