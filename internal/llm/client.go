package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/fieldlink/feedback-engine/internal/config"
)

// ErrUnavailable signals that no AI endpoint is configured.
var ErrUnavailable = errors.New("llm: no endpoint configured")

// ClassifyRequest carries the free text and allowed label space for a
// constrained classification call.
type ClassifyRequest struct {
	Text           string              `json:"text"`
	SubjectContext string              `json:"subject_context,omitempty"`
	Buckets        []string            `json:"buckets"`
	CodesByBucket  map[string][]string `json:"codes_by_bucket"`
}

// ClassifyResult is the structured classification answer.
type ClassifyResult struct {
	Bucket       string  `json:"bucket"`
	ReasonCode   string  `json:"reason_code"`
	Confidence   float64 `json:"confidence"`
	Priority     string  `json:"priority"`
	UrgencyScore int     `json:"urgency_score"`
	ChurnRisk    string  `json:"churn_risk"`
	Sentiment    string  `json:"sentiment"`
	Summary      string  `json:"summary"`
}

// ScriptRequest asks for a communication script for a delivered response.
type ScriptRequest struct {
	SubmitterName string `json:"submitter_name"`
	SubjectName   string `json:"subject_name"`
	Bucket        string `json:"bucket"`
	ReasonName    string `json:"reason_name"`
	ResponseText  string `json:"response_text"`
}

// Client calls the external AI service. Both methods honor ctx deadlines
// and return an error on any failure; callers always have a
// deterministic fallback.
type Client interface {
	Classify(ctx context.Context, req ClassifyRequest) (*ClassifyResult, error)
	GenerateScript(ctx context.Context, req ScriptRequest) (string, error)
}

type httpClient struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewHTTPClient builds the default client from config.
func NewHTTPClient(cfg config.LLMConfig) Client {
	return &httpClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		client:  &http.Client{Timeout: cfg.Timeout()},
	}
}

func (c *httpClient) Classify(ctx context.Context, req ClassifyRequest) (*ClassifyResult, error) {
	var result ClassifyResult
	if err := c.post(ctx, "/v1/classify", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *httpClient) GenerateScript(ctx context.Context, req ScriptRequest) (string, error) {
	var result struct {
		Script string `json:"script"`
	}
	if err := c.post(ctx, "/v1/scripts", req, &result); err != nil {
		return "", err
	}
	if result.Script == "" {
		return "", errors.New("llm: empty script")
	}
	return result.Script, nil
}

func (c *httpClient) post(ctx context.Context, path string, payload any, out any) error {
	if c.baseURL == "" {
		return ErrUnavailable
	}

	body := struct {
		Model string `json:"model"`
		Input any    `json:"input"`
	}{Model: c.model, Input: payload}

	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("llm: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("llm: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("llm: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("llm: endpoint returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("llm: decode response: %w", err)
	}
	return nil
}
