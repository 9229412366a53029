package httpgen

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/yanqian/usage-forecaster/internal/domain/analysis"
	apperrors "github.com/yanqian/usage-forecaster/pkg/errors"
)

// Defaults match the Ollama /api/generate envelope.
const (
	DefaultEndpoint     = "http://localhost:11434/api/generate"
	DefaultBodyTemplate = `{"stream":false}`
	DefaultModelPath    = "model"
	DefaultPromptPath   = "prompt"
	DefaultOptionsPath  = "options"
	DefaultResponsePath = "response"
)

// Config describes the responder endpoint and its envelope. Paths use
// gjson/sjson syntax.
type Config struct {
	Endpoint     string
	APIKey       string
	Model        string
	BodyTemplate string
	ModelPath    string
	PromptPath   string
	OptionsPath  string
	ResponsePath string
	Options      map[string]any
	Timeout      time.Duration
}

// Client posts prompts to a text generation endpoint.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient constructs a generic HTTP responder.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if strings.TrimSpace(cfg.BodyTemplate) == "" {
		cfg.BodyTemplate = DefaultBodyTemplate
	}
	if !gjson.Valid(cfg.BodyTemplate) {
		return nil, errors.New("httpgen body template must be valid JSON")
	}
	cfg.ModelPath = firstNonEmpty(cfg.ModelPath, DefaultModelPath)
	cfg.PromptPath = firstNonEmpty(cfg.PromptPath, DefaultPromptPath)
	cfg.OptionsPath = firstNonEmpty(cfg.OptionsPath, DefaultOptionsPath)
	cfg.ResponsePath = firstNonEmpty(cfg.ResponsePath, DefaultResponsePath)
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}, nil
}

// Generate sends one prompt and returns the reply text.
func (c *Client) Generate(ctx context.Context, req analysis.GenerateRequest) (string, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	payload, err := c.buildBody(req.Prompt)
	if err != nil {
		return "", apperrors.Wrap(analysis.CodeResponderProtocolError, "build responder request", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", apperrors.Wrap(analysis.CodeResponderProtocolError, "build responder request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", apperrors.Wrap(analysis.CodeResponderUnavailable, "responder request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		detail := fmt.Errorf("status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body)))
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return "", apperrors.Wrap(analysis.CodeResponderUnavailable, "responder unavailable", detail)
		}
		return "", apperrors.Wrap(analysis.CodeResponderProtocolError, "responder rejected request", detail)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperrors.Wrap(analysis.CodeResponderUnavailable, "read responder reply", err)
	}
	return c.parseReply(body)
}

func (c *Client) buildBody(prompt string) ([]byte, error) {
	body := c.cfg.BodyTemplate
	var err error
	if c.cfg.Model != "" {
		if body, err = sjson.Set(body, c.cfg.ModelPath, c.cfg.Model); err != nil {
			return nil, fmt.Errorf("set model: %w", err)
		}
	}
	if body, err = sjson.Set(body, c.cfg.PromptPath, prompt); err != nil {
		return nil, fmt.Errorf("set prompt: %w", err)
	}
	if len(c.cfg.Options) > 0 {
		if body, err = sjson.Set(body, c.cfg.OptionsPath, c.cfg.Options); err != nil {
			return nil, fmt.Errorf("set options: %w", err)
		}
	}
	return []byte(body), nil
}

func (c *Client) parseReply(body []byte) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", apperrors.Wrap(analysis.CodeResponderProtocolError, "responder envelope is not valid JSON", errors.New(truncate(string(body))))
	}
	result := gjson.GetBytes(body, c.cfg.ResponsePath)
	if !result.Exists() {
		return "", apperrors.Wrap(analysis.CodeResponderProtocolError, fmt.Sprintf("responder envelope has no %q field", c.cfg.ResponsePath), nil)
	}
	if result.Type != gjson.String {
		return "", apperrors.Wrap(analysis.CodeResponderProtocolError, fmt.Sprintf("responder field %q is not a string", c.cfg.ResponsePath), nil)
	}
	return result.String(), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func truncate(s string) string {
	if len(s) > 256 {
		return s[:256] + "..."
	}
	return s
}

var _ analysis.Responder = (*Client)(nil)
