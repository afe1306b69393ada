package script

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"shortform-pipeline/config"
	"shortform-pipeline/types"
)

const groqEndpoint = "https://api.groq.com/openai/v1/chat/completions"

// GroqGenerator generates scripts via the Groq OpenAI-compatible chat API.
// Groq has no schema enforcement, so the response is fence-stripped, parsed,
// and validated with a bounded retry loop.
type GroqGenerator struct {
	cfg        *config.ScriptConfig
	apiKey     string
	endpoint   string
	httpClient *http.Client
}

// NewGroqGenerator reads GROQ_API_KEY from the environment.
func NewGroqGenerator(cfg *config.ScriptConfig) (*GroqGenerator, error) {
	apiKey := os.Getenv("GROQ_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GROQ_API_KEY not set")
	}
	return &GroqGenerator{
		cfg:        cfg,
		apiKey:     apiKey,
		endpoint:   groqEndpoint,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

type groqRequest struct {
	Model          string        `json:"model"`
	Messages       []groqMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	MaxTokens      int           `json:"max_tokens"`
	ResponseFormat groqFormat    `json:"response_format"`
}

type groqMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type groqFormat struct {
	Type string `json:"type"`
}

type groqResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate produces a validated script for the topic, retrying when the
// model returns output that fails to parse or validate.
func (g *GroqGenerator) Generate(ctx context.Context, topic string) (*types.Script, error) {
	var lastErr error
	for attempt := 1; attempt <= g.cfg.MaxRetries; attempt++ {
		content, err := g.call(ctx, topic)
		if err != nil {
			return nil, err
		}

		var s types.Script
		if err := json.Unmarshal([]byte(cleanJSON(content)), &s); err != nil {
			lastErr = fmt.Errorf("parse script JSON: %w", err)
		} else if err := finalize(&s, topic); err != nil {
			lastErr = err
		} else {
			return &s, nil
		}

		log.Warnf("[script] Attempt %d produced an invalid script: %v", attempt, lastErr)
	}

	return nil, fmt.Errorf("groq failed after %d attempts: %w", g.cfg.MaxRetries, lastErr)
}

func (g *GroqGenerator) call(ctx context.Context, topic string) (string, error) {
	reqBody := groqRequest{
		Model: g.cfg.GroqModel,
		Messages: []groqMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt(topic)},
		},
		Temperature:    g.cfg.Temperature,
		MaxTokens:      4096,
		ResponseFormat: groqFormat{Type: "json_object"},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", g.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("groq request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var groqResp groqResponse
	if err := json.Unmarshal(respBytes, &groqResp); err != nil {
		return "", fmt.Errorf("parse groq response: %w", err)
	}
	if groqResp.Error != nil {
		return "", fmt.Errorf("groq error: %s", groqResp.Error.Message)
	}
	if len(groqResp.Choices) == 0 {
		return "", fmt.Errorf("groq returned no choices")
	}
	return groqResp.Choices[0].Message.Content, nil
}

// cleanJSON strips markdown fences if the model wraps its response in
// ```json ... ``` despite being asked for plain JSON.
func cleanJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
