package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/autoorder/autoorder/internal/domain/convert/mapping"
)

const (
	// ChatCompletionsURL is the OpenAI chat completions endpoint
	ChatCompletionsURL = "https://api.openai.com/v1/chat/completions"

	// RequestTimeout for suggestion requests
	RequestTimeout = 30 * time.Second

	// DefaultModel is used when none is configured
	DefaultModel = "gpt-3.5-turbo"
)

// Client calls the OpenAI chat completions API to propose a mapping.
type Client struct {
	apiKey string
	model  string
	client *http.Client
}

// NewClient creates an OpenAI-backed suggestion client. Returns nil when
// no API key is configured, which callers treat as "AI unavailable".
func NewClient(apiKey, model string) *Client {
	if apiKey == "" {
		return nil
	}
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		apiKey: apiKey,
		model:  model,
		client: &http.Client{Timeout: RequestTimeout},
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
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

// SuggestMapping asks the model to pair template target fields with source
// fields and validates the answer against both lists. Pairs the model
// invents are dropped; an answer with no valid pair is an error.
func (c *Client) SuggestMapping(ctx context.Context, sourceFields, targetFields []string) (*mapping.Spec, error) {
	if len(sourceFields) == 0 || len(targetFields) == 0 {
		return nil, errors.New("both source and target fields are required")
	}

	prompt := buildPrompt(sourceFields, targetFields)
	payload, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: "You map spreadsheet columns between two schemas. Respond with a single JSON object and nothing else."},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", ChatCompletionsURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call openai: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read openai response: %w", err)
	}

	var chat chatResponse
	if err := json.Unmarshal(body, &chat); err != nil {
		return nil, fmt.Errorf("failed to parse openai response: %w", err)
	}
	if chat.Error != nil {
		return nil, fmt.Errorf("openai error: %s", chat.Error.Message)
	}
	if len(chat.Choices) == 0 {
		return nil, errors.New("openai returned no choices")
	}

	pairs, err := parseMappingJSON(chat.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	return validatePairs(pairs, sourceFields, targetFields)
}

func buildPrompt(sourceFields, targetFields []string) string {
	var b strings.Builder
	b.WriteString("Source file columns:\n")
	for _, f := range sourceFields {
		fmt.Fprintf(&b, "- %s\n", f)
	}
	b.WriteString("\nPurchase order template columns:\n")
	for _, f := range targetFields {
		fmt.Fprintf(&b, "- %s\n", f)
	}
	b.WriteString("\nReturn a JSON object whose keys are template columns and whose values are the best-matching source column. ")
	b.WriteString("Column names may be Korean or English. Omit template columns with no reasonable match.")
	return b.String()
}

// parseMappingJSON extracts the JSON object from the model answer,
// tolerating markdown code fences.
func parseMappingJSON(content string) (map[string]string, error) {
	content = strings.TrimSpace(content)
	if start := strings.Index(content, "{"); start >= 0 {
		if end := strings.LastIndex(content, "}"); end > start {
			content = content[start : end+1]
		}
	}

	var pairs map[string]string
	if err := json.Unmarshal([]byte(content), &pairs); err != nil {
		return nil, fmt.Errorf("model answer is not a JSON object: %w", err)
	}
	return pairs, nil
}

func validatePairs(pairs map[string]string, sourceFields, targetFields []string) (*mapping.Spec, error) {
	sources := make(map[string]struct{}, len(sourceFields))
	for _, f := range sourceFields {
		sources[f] = struct{}{}
	}

	spec := mapping.NewSpec()
	for _, target := range targetFields {
		source, ok := pairs[target]
		if !ok {
			continue
		}
		if _, known := sources[source]; !known {
			continue // hallucinated source column
		}
		spec.Set(target, mapping.Directive{Kind: mapping.Passthrough, Source: source})
	}

	if spec.Len() == 0 {
		return nil, errors.New("model produced no valid mapping pairs")
	}
	return spec, nil
}
