package provider

import (
	"context"
	"errors"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/coachwell-ai/coaching-engine/internal/prompt"
)

// AnthropicClient is the Anthropic vendor implementation.
type AnthropicClient struct {
	client *anthropic.Client
	model  string
}

// NewAnthropicClient creates a new Anthropic client.
func NewAnthropicClient(apiKey, model string) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, errors.New("Anthropic API key is required")
	}
	if model == "" {
		model = "claude-3-5-sonnet-20241022"
	}
	return &AnthropicClient{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}, nil
}

// Name returns the vendor name.
func (c *AnthropicClient) Name() string {
	return "anthropic"
}

// Generate produces a completion for the prompt.
func (c *AnthropicClient) Generate(ctx context.Context, p *prompt.Prompt, cons Constraints) (*Response, error) {
	maxTokens := cons.MaxTokens
	if maxTokens == 0 {
		maxTokens = 1024
	}

	messages := make([]anthropic.MessageParam, len(p.Turns))
	for i, turn := range p.Turns {
		messages[i] = anthropic.MessageParam{
			Role: anthropic.F(anthropic.MessageParamRole(turn.Role)),
			Content: anthropic.F([]anthropic.ContentBlockParamUnion{
				anthropic.TextBlockParam{
					Type: anthropic.F(anthropic.TextBlockParamTypeText),
					Text: anthropic.F(turn.Content),
				},
			}),
		}
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.F(c.model),
		MaxTokens:   anthropic.F(int64(maxTokens)),
		Messages:    anthropic.F(messages),
		Temperature: anthropic.F(cons.Temperature),
	}
	if p.System != "" {
		params.System = anthropic.F([]anthropic.TextBlockParam{
			{
				Type: anthropic.F(anthropic.TextBlockParamTypeText),
				Text: anthropic.F(p.System),
			},
		})
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, c.classify(ctx, err)
	}

	var content string
	for _, block := range resp.Content {
		if block.Type == anthropic.ContentBlockTypeText {
			content += block.Text
		}
	}

	return &Response{
		Text:         content,
		Model:        resp.Model,
		InputTokens:  int(resp.Usage.InputTokens),
		OutputTokens: int(resp.Usage.OutputTokens),
	}, nil
}

// classify maps Anthropic errors onto the fault taxonomy.
func (c *AnthropicClient) classify(ctx context.Context, err error) *Fault {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &Fault{Class: FaultTransient, Reason: ReasonTimeout, Provider: c.Name(), Err: err}
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusTooManyRequests:
			return &Fault{Class: FaultTransient, Reason: ReasonRateLimit, Provider: c.Name(), Err: err}
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusBadRequest, http.StatusNotFound:
			return &Fault{Class: FaultPermanent, Reason: ReasonProviderError, Provider: c.Name(), Err: err}
		}
	}
	return &Fault{Class: FaultTransient, Reason: ReasonProviderError, Provider: c.Name(), Err: err}
}
