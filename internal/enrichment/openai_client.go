// Package enrichment provides the client for the remote advice enrichment
// service. The orchestrator treats enrichment as strictly optional: any
// failure here degrades the analysis to local advice, it never fails it.
package enrichment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/blaisecz/sleepsense/internal/domain"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

var (
	// ErrUnavailable indicates the enrichment service is not configured.
	ErrUnavailable = errors.New("enrichment service unavailable")
	// ErrRequest indicates an error during the enrichment request.
	ErrRequest = errors.New("enrichment request failed")
	// ErrResponse indicates a malformed enrichment response.
	ErrResponse = errors.New("failed to parse enrichment response")
)

const defaultSystemPrompt = `You are a non-medical sleep assistant.

You receive computed sleep metrics for one person (a single night or a weekly
aggregate) together with locally generated advice. Base every statement only
on the provided data.

Your goals:
- Add tips and warnings the local analysis missed, grounded in the numbers.
- Do not repeat tips or warnings already present in "local_advice".
- Offer brief positive reinforcement when the data supports it.

Rules:
- Do NOT provide medical advice or diagnoses.
- Do NOT mention diseases, disorders, doctors, or treatment.
- Focus only on behavior and routines.
- Be concise and concrete.

You must respond as strict JSON with exactly this shape:

{
  "tips": ["0-4 additional behavioral tips"],
  "warnings": ["0-3 additional warnings grounded in the data"],
  "positive_reinforcement": "one encouraging sentence, or empty string"
}

No extra fields. No comments. No backticks.`

const userPromptTemplate = `Here is JSON describing the computed sleep data.

- "session" is present for a single-night analysis.
- "trend" is present for a weekly analysis.
- "local_advice" is what the local engine already concluded.

JSON:

%s

Based on this data, respond in the required JSON format.`

// AdviceEnricher is the interface the orchestrator consumes.
type AdviceEnricher interface {
	// Enrich sends the aggregate metrics and returns remote tips/warnings.
	Enrich(ctx context.Context, req *domain.EnrichmentRequest) (*domain.EnrichmentResponse, error)
}

// OpenAIClient implements AdviceEnricher against the OpenAI API.
type OpenAIClient struct {
	client       openai.Client
	model        string
	systemPrompt string
}

// NewOpenAIClient creates a new enrichment client.
// Returns nil if apiKey is empty.
func NewOpenAIClient(apiKey, model string) *OpenAIClient {
	if apiKey == "" {
		return nil
	}
	if model == "" {
		model = "gpt-4o-mini"
	}

	return &OpenAIClient{
		client:       openai.NewClient(option.WithAPIKey(apiKey)),
		model:        model,
		systemPrompt: defaultSystemPrompt,
	}
}

// SetSystemPrompt overrides the built-in system prompt, e.g. with one
// managed in Langfuse.
func (c *OpenAIClient) SetSystemPrompt(prompt string) {
	if c != nil && prompt != "" {
		c.systemPrompt = prompt
	}
}

// Enrich calls the remote model with the computed aggregate.
func (c *OpenAIClient) Enrich(ctx context.Context, req *domain.EnrichmentRequest) (*domain.EnrichmentResponse, error) {
	if c == nil {
		return nil, ErrUnavailable
	}

	payload, err := json.MarshalIndent(req, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to serialize request: %v", ErrRequest, err)
	}

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(c.systemPrompt),
			openai.UserMessage(fmt.Sprintf(userPromptTemplate, string(payload))),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequest, err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices in response", ErrResponse)
	}

	var output domain.EnrichmentResponse
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &output); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResponse, err)
	}

	return &output, nil
}
