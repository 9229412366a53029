package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/yanqian/usage-forecaster/internal/domain/analysis"
	apperrors "github.com/yanqian/usage-forecaster/pkg/errors"
)

const defaultModel = "gemini-2.0-flash"

// Config holds the Gemini settings.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
}

// Client answers prompts with Models.GenerateContent.
type Client struct {
	client      *genai.Client
	model       string
	temperature float32
}

// NewClient constructs the adapter.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("gemini api key cannot be empty")
	}
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	return &Client{client: client, model: model, temperature: cfg.Temperature}, nil
}

// Generate sends the prompt and concatenates the text parts of the first
// candidate.
func (c *Client) Generate(ctx context.Context, req analysis.GenerateRequest) (string, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(req.Prompt), &genai.GenerateContentConfig{
		Temperature: genai.Ptr(c.temperature),
	})
	if err != nil {
		return "", classify(err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", apperrors.Wrap(analysis.CodeResponderProtocolError, "gemini returned no candidates", nil)
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	if b.Len() == 0 {
		return "", apperrors.Wrap(analysis.CodeResponderProtocolError, "gemini candidate has no text", nil)
	}
	return b.String(), nil
}

func classify(err error) error {
	code := 0
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		code = apiErr.Code
	case errors.As(err, &apiErrPtr):
		code = apiErrPtr.Code
	default:
		return apperrors.Wrap(analysis.CodeResponderUnavailable, "gemini request failed", err)
	}
	if code >= 500 || code == http.StatusTooManyRequests {
		return apperrors.Wrap(analysis.CodeResponderUnavailable, "gemini unavailable", err)
	}
	return apperrors.Wrap(analysis.CodeResponderProtocolError, "gemini rejected request", err)
}

var _ analysis.Responder = (*Client)(nil)
