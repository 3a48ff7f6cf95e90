package provider

import (
	"context"
	"errors"
	"net/http"

	"github.com/sashabaranov/go-openai"

	"github.com/coachwell-ai/coaching-engine/internal/prompt"
)

// OpenAIClient is the OpenAI vendor implementation.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient creates a new OpenAI client.
func NewOpenAIClient(apiKey, model string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}
	if model == "" {
		model = "gpt-4o"
	}
	return &OpenAIClient{
		client: openai.NewClient(apiKey),
		model:  model,
	}, nil
}

// Name returns the vendor name.
func (c *OpenAIClient) Name() string {
	return "openai"
}

// Generate produces a completion for the prompt.
func (c *OpenAIClient) Generate(ctx context.Context, p *prompt.Prompt, cons Constraints) (*Response, error) {
	maxTokens := cons.MaxTokens
	if maxTokens == 0 {
		maxTokens = 1024
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(p.Turns)+1)
	if p.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: p.System,
		})
	}
	for _, turn := range p.Turns {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    turn.Role,
			Content: turn.Content,
		})
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: float32(cons.Temperature),
	})
	if err != nil {
		return nil, c.classify(ctx, err)
	}

	var content string
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
	}

	return &Response{
		Text:         content,
		Model:        resp.Model,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}

// classify maps OpenAI errors onto the fault taxonomy.
func (c *OpenAIClient) classify(ctx context.Context, err error) *Fault {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &Fault{Class: FaultTransient, Reason: ReasonTimeout, Provider: c.Name(), Err: err}
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests:
			return &Fault{Class: FaultTransient, Reason: ReasonRateLimit, Provider: c.Name(), Err: err}
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusBadRequest, http.StatusNotFound:
			return &Fault{Class: FaultPermanent, Reason: ReasonProviderError, Provider: c.Name(), Err: err}
		}
	}
	return &Fault{Class: FaultTransient, Reason: ReasonProviderError, Provider: c.Name(), Err: err}
}
