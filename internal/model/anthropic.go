/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package model provides the language model backends the narrator speaks
// through.
package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

const (
	defaultAnthropicURL     = "https://api.anthropic.com/v1/messages"
	defaultAnthropicVersion = "2023-06-01"
	defaultAnthropicModel   = "claude-sonnet-4-20250514"
	defaultMaxTokens        = 300
)

// AnthropicConfig configures the Messages API endpoint and HTTP behavior.
type AnthropicConfig struct {
	APIKey     string
	Model      string
	MaxTokens  int
	URL        string
	Version    string
	HTTPClient *http.Client
}

type Anthropic struct {
	cfg AnthropicConfig
}

// NewAnthropic fills in defaults for every unset field.
func NewAnthropic(cfg AnthropicConfig) *Anthropic {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if strings.TrimSpace(cfg.URL) == "" {
		cfg.URL = defaultAnthropicURL
	}
	if strings.TrimSpace(cfg.Version) == "" {
		cfg.Version = defaultAnthropicVersion
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = defaultAnthropicModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	return &Anthropic{cfg: cfg}
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system"`
	Messages  []anthropicMessage `json:"messages"`
}

func (a *Anthropic) Generate(ctx context.Context, persona, prompt string) (string, error) {
	apiKey := strings.TrimSpace(a.cfg.APIKey)
	if apiKey == "" {
		return "", fmt.Errorf("anthropic api key is required")
	}
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("prompt is required")
	}

	requestBody, err := json.Marshal(anthropicRequest{
		Model:     a.cfg.Model,
		MaxTokens: a.cfg.MaxTokens,
		System:    persona,
		Messages:  []anthropicMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal messages request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.URL, bytes.NewReader(requestBody))
	if err != nil {
		return "", fmt.Errorf("build messages request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", apiKey)
	req.Header.Set("anthropic-version", a.cfg.Version)

	res, err := a.cfg.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("messages request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, err := io.ReadAll(io.LimitReader(res.Body, 4096))
		if err != nil {
			return "", fmt.Errorf("read messages error body: %w", err)
		}
		return "", fmt.Errorf("messages request status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read messages response: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("decode messages response: invalid json")
	}

	text := strings.TrimSpace(gjson.GetBytes(body, `content.#(type=="text").text`).String())
	if text == "" {
		return "", fmt.Errorf("messages response missing text content")
	}
	return text, nil
}
