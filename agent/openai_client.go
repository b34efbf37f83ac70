package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// OpenAIClient is an agent.Client backed by an OpenAI-compatible chat
// completions endpoint — covers openai, cerebras, vercel, browser-use, and
// ollama, all of which speak the same /v1/chat/completions shape. Grounded
// on horos47/services/gpufeeder's VLLMHTTPClient.
type OpenAIClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	logger     *slog.Logger
}

// NewOpenAIClient builds a client against baseURL (no trailing slash) using
// model, authenticating with apiKey (empty for unauthenticated endpoints
// like a local Ollama).
func NewOpenAIClient(baseURL, apiKey, model string, logger *slog.Logger) *OpenAIClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &OpenAIClient{
		httpClient: &http.Client{Timeout: 120 * time.Second},
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		logger:     logger,
	}
}

func (c *OpenAIClient) Name() string { return c.model }

type chatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float32         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type chatCompletionError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Invoke sends prompt as a single user message and decodes the model's JSON
// reply into a StructuredAgentOutput, per spec.md §6's "LLM interface
// (consumed)".
func (c *OpenAIClient) Invoke(ctx context.Context, prompt string) (StructuredAgentOutput, error) {
	reqBody := chatCompletionRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: "Respond with a single JSON object matching the agent output schema: {thinking?, current_state:{evaluation_previous_goal, memory, next_goal}, action:[...]}. No prose outside the JSON."},
			{Role: "user", Content: prompt},
		},
		Temperature:    0,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	reqJSON, err := json.Marshal(reqBody)
	if err != nil {
		return StructuredAgentOutput{}, fmt.Errorf("agent: marshal llm request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(reqJSON))
	if err != nil {
		return StructuredAgentOutput{}, fmt.Errorf("agent: build llm request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return StructuredAgentOutput{}, &ModelProviderError{StatusCode: 0, Wrapped: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return StructuredAgentOutput{}, &ModelProviderError{StatusCode: resp.StatusCode, Wrapped: err}
	}

	c.logger.Debug("agent: llm response", "model", c.model, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode == http.StatusTooManyRequests {
		return StructuredAgentOutput{}, &ModelRateLimitError{Wrapped: fmt.Errorf("rate limited: %s", string(body))}
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr chatCompletionError
		_ = json.Unmarshal(body, &apiErr)
		msg := apiErr.Error.Message
		if msg == "" {
			msg = string(body)
		}
		return StructuredAgentOutput{}, &ModelProviderError{StatusCode: resp.StatusCode, Wrapped: fmt.Errorf("%s", msg)}
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(body, &completion); err != nil || len(completion.Choices) == 0 {
		return StructuredAgentOutput{}, &ParseError{Wrapped: fmt.Errorf("agent: no choices in llm response")}
	}

	var out StructuredAgentOutput
	if err := json.Unmarshal([]byte(completion.Choices[0].Message.Content), &out); err != nil {
		return StructuredAgentOutput{}, &ParseError{Wrapped: err}
	}
	return out, nil
}
