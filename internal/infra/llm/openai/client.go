package openai

import (
	"context"
	"errors"
	"net/http"
	"strings"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/yanqian/usage-forecaster/internal/domain/analysis"
	apperrors "github.com/yanqian/usage-forecaster/pkg/errors"
)

const defaultModel = "gpt-4o-mini"

// Config holds the chat completion settings.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
}

// Client answers prompts with a single chat completion.
type Client struct {
	client      sdk.Client
	model       string
	temperature float64
}

// NewClient constructs the adapter. SDK retries are disabled.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("openai api key cannot be empty")
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	return &Client{
		client:      sdk.NewClient(opts...),
		model:       model,
		temperature: cfg.Temperature,
	}, nil
}

// Generate sends the prompt as one user message.
func (c *Client) Generate(ctx context.Context, req analysis.GenerateRequest) (string, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	resp, err := c.client.Chat.Completions.New(ctx, sdk.ChatCompletionNewParams{
		Model:       sdk.ChatModel(c.model),
		Messages:    []sdk.ChatCompletionMessageParamUnion{sdk.UserMessage(req.Prompt)},
		Temperature: sdk.Float(c.temperature),
	})
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", apperrors.Wrap(analysis.CodeResponderProtocolError, "openai returned no choices", nil)
	}
	return resp.Choices[0].Message.Content, nil
}

func classify(err error) error {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode >= 500 || apiErr.StatusCode == http.StatusTooManyRequests {
			return apperrors.Wrap(analysis.CodeResponderUnavailable, "openai unavailable", err)
		}
		return apperrors.Wrap(analysis.CodeResponderProtocolError, "openai rejected request", err)
	}
	return apperrors.Wrap(analysis.CodeResponderUnavailable, "openai request failed", err)
}

var _ analysis.Responder = (*Client)(nil)
