package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Veraticus/ingredient-moderator/internal/common"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// openAIClient talks to the OpenAI Responses API.
type openAIClient struct {
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	model       string
	temperature float64
}

// newOpenAIClient creates a new OpenAI Responses API client.
func newOpenAIClient(cfg Config) (*openAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required: %w", common.ErrMissingConfig)
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.1
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}

	return &openAIClient{
		apiKey:      cfg.APIKey,
		baseURL:     baseURL,
		model:       model,
		temperature: temperature,
		httpClient: &http.Client{
			Timeout: 90 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

type openAIRequest struct {
	Model       string  `json:"model"`
	Input       string  `json:"input"`
	Temperature float64 `json:"temperature"`
}

// openAIResponse represents the parts of the Responses API reply we read.
type openAIResponse struct {
	ID     string `json:"id"`
	Model  string `json:"model"`
	Output []struct {
		Type    string `json:"type"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

// Complete sends prompt as the input of a single response.
func (c *openAIClient) Complete(ctx context.Context, prompt string) (Completion, error) {
	body, err := json.Marshal(openAIRequest{
		Model:       c.model,
		Input:       prompt,
		Temperature: c.temperature,
	})
	if err != nil {
		return Completion{}, common.Permanent(fmt.Errorf("failed to marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/responses", bytes.NewReader(body))
	if err != nil {
		return Completion{}, common.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Completion{}, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Completion{}, fmt.Errorf("failed to read response: %w", err)
	}

	if err := statusError("OpenAI", resp.StatusCode, data); err != nil {
		return Completion{}, err
	}

	var response openAIResponse
	if err := json.Unmarshal(data, &response); err != nil {
		return Completion{}, common.Permanent(fmt.Errorf("%w: failed to parse response: %w", common.ErrAdapterResponse, err))
	}

	if len(response.Output) == 0 || len(response.Output[0].Content) == 0 || response.Output[0].Content[0].Text == "" {
		return Completion{}, common.Permanent(fmt.Errorf("%w: empty response from AI", common.ErrAdapterResponse))
	}

	return Completion{
		Text:       response.Output[0].Content[0].Text,
		TokensUsed: response.Usage.TotalTokens,
	}, nil
}

// statusError maps an HTTP status onto the retry taxonomy.
func statusError(provider string, status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}

	snippet := string(body)
	if len(snippet) > 512 {
		snippet = snippet[:512]
	}
	err := fmt.Errorf("%s API error (status %d): %s", provider, status, snippet)

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return common.Permanent(fmt.Errorf("%w: %w", common.ErrAdapterAuth, err))
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", common.ErrRateLimit, err)
	case status >= 500:
		return &common.RetryableError{Err: err, Retryable: true}
	default:
		return common.Permanent(err)
	}
}
