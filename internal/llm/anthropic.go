package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/dgallion1/pdfqa/internal/credentials"
)

const DefaultAnthropicBaseURL = "https://api.anthropic.com/v1"

// AnthropicClient calls the Anthropic Messages API.
type AnthropicClient struct {
	opts       Options
	creds      credentials.Provider
	httpClient *http.Client
}

func NewAnthropicClient(opts Options, creds credentials.Provider) *AnthropicClient {
	opts = opts.withDefaults(DefaultAnthropicBaseURL)
	if creds == nil {
		creds = credentials.None{}
	}
	return &AnthropicClient{
		opts:  opts,
		creds: creds,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
	}
}

type anthropicRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	System      string    `json:"system,omitempty"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

type anthropicResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends one Messages API request.
func (c *AnthropicClient) Complete(ctx context.Context, req Request) (Response, error) {
	key, err := c.creds.APIKey(ctx)
	if err != nil {
		return Response{}, &APIError{StatusCode: http.StatusUnauthorized, Message: "api key: " + err.Error()}
	}

	payload := anthropicRequest{
		Model:       c.opts.Model,
		MaxTokens:   orDefault(req.MaxTokens, c.opts.MaxTokens),
		System:      req.System,
		Messages:    req.Messages,
		Temperature: c.opts.Temperature,
	}
	if req.Temperature > 0 {
		payload.Temperature = req.Temperature
	}

	headers := map[string]string{"anthropic-version": "2023-06-01"}
	if key != "" {
		headers["x-api-key"] = key
	}

	start := time.Now()
	body, err := postJSON(ctx, c.httpClient, strings.TrimRight(c.opts.BaseURL, "/")+"/messages", headers, payload)
	if err != nil {
		return Response{}, err
	}

	var out anthropicResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return Response{}, &MalformedResponseError{Reason: "decode: " + err.Error(), Body: string(body)}
	}
	if out.Error != nil {
		return Response{}, &APIError{StatusCode: http.StatusOK, Message: out.Error.Type + ": " + out.Error.Message}
	}

	var sb strings.Builder
	for _, block := range out.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return Response{}, &MalformedResponseError{Reason: "empty content", Body: string(body)}
	}

	model := out.Model
	if model == "" {
		model = c.opts.Model
	}
	return Response{Text: text, Model: model, Duration: time.Since(start)}, nil
}

// Close releases resources.
func (c *AnthropicClient) Close() {
	c.httpClient.CloseIdleConnections()
}
