package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/dgallion1/pdfqa/internal/credentials"
)

const DefaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIClient calls an OpenAI-compatible chat/completions endpoint.
type OpenAIClient struct {
	opts       Options
	creds      credentials.Provider
	httpClient *http.Client
}

func NewOpenAIClient(opts Options, creds credentials.Provider) *OpenAIClient {
	opts = opts.withDefaults(DefaultOpenAIBaseURL)
	if creds == nil {
		creds = credentials.None{}
	}
	return &OpenAIClient{
		opts:  opts,
		creds: creds,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
	}
}

type openAIRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

type openAIResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends one chat completion request.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (Response, error) {
	key, err := c.creds.APIKey(ctx)
	if err != nil {
		return Response{}, &APIError{StatusCode: http.StatusUnauthorized, Message: "api key: " + err.Error()}
	}

	msgs := make([]Message, 0, len(req.Messages)+1)
	if req.System != "" {
		msgs = append(msgs, Message{Role: "system", Content: req.System})
	}
	msgs = append(msgs, req.Messages...)

	payload := openAIRequest{
		Model:       c.opts.Model,
		Messages:    msgs,
		MaxTokens:   orDefault(req.MaxTokens, c.opts.MaxTokens),
		Temperature: c.opts.Temperature,
	}
	if req.Temperature > 0 {
		payload.Temperature = req.Temperature
	}

	headers := map[string]string{}
	if key != "" {
		headers["Authorization"] = "Bearer " + key
	}

	start := time.Now()
	body, err := postJSON(ctx, c.httpClient, strings.TrimRight(c.opts.BaseURL, "/")+"/chat/completions", headers, payload)
	if err != nil {
		return Response{}, err
	}

	var out openAIResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return Response{}, &MalformedResponseError{Reason: "decode: " + err.Error(), Body: string(body)}
	}
	if out.Error != nil {
		return Response{}, &APIError{StatusCode: http.StatusOK, Message: out.Error.Type + ": " + out.Error.Message}
	}
	if len(out.Choices) == 0 {
		return Response{}, &MalformedResponseError{Reason: "no choices", Body: string(body)}
	}
	text := strings.TrimSpace(out.Choices[0].Message.Content)
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
func (c *OpenAIClient) Close() {
	c.httpClient.CloseIdleConnections()
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
