package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"quoteflow-backend/internal/oracle"
)

const apiURL = "https://api.openai.com/v1/chat/completions"

// Client implements oracle.Client using OpenAI Chat Completions with a JSON
// response format.
type Client struct {
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewClient constructs a new OpenAI-backed analysis client.
func NewClient(apiKey, model string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("ORACLE_MODEL is required for OpenAI")
	}
	return &Client{
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: 90 * time.Second},
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	ResponseFormat responseFormat `json:"response_format"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

const systemPrompt = `You are a document intake analyst for a translation service.
Given a source document, respond with a single JSON object:
{"detectedLanguage": ISO 639-1 code, "documentType": short label such as "birth_certificate",
"complexity": one of "low" | "medium" | "high",
"pageCount": integer >= 1, "wordCount": integer >= 0, "confidence": 0..1}`

// AnalyzeDocument sends the document content for analysis and decodes the
// fixed attribute shape.
func (c *Client) AnalyzeDocument(ctx context.Context, input oracle.AnalyzeInput) (oracle.Result, error) {
	userContent := fmt.Sprintf("File name: %s\nMIME type: %s\nContent (base64, may be truncated):\n%s",
		input.FileName, input.MimeType, truncateBase64(input.Content, 180_000))

	payload := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userContent},
		},
		ResponseFormat: responseFormat{Type: "json_object"},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return oracle.Result{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(body))
	if err != nil {
		return oracle.Result{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return oracle.Result{}, fmt.Errorf("openai request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return oracle.Result{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return oracle.Result{}, fmt.Errorf("openai status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return oracle.Result{}, fmt.Errorf("decode response: %w", err)
	}
	if parsed.Error != nil {
		return oracle.Result{}, fmt.Errorf("openai error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return oracle.Result{}, fmt.Errorf("openai returned no choices")
	}

	var result oracle.Result
	if err := json.Unmarshal([]byte(parsed.Choices[0].Message.Content), &result); err != nil {
		return oracle.Result{}, fmt.Errorf("oracle output invalid: %w", err)
	}
	if result.PageCount < 1 {
		result.PageCount = 1
	}
	if result.WordCount < 0 {
		result.WordCount = 0
	}
	return result, nil
}

func truncateBase64(content []byte, maxChars int) string {
	encoded := base64.StdEncoding.EncodeToString(content)
	if len(encoded) > maxChars {
		return encoded[:maxChars]
	}
	return encoded
}
