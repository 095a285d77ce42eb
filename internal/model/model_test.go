package model

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Seednode/parlor/internal/narrator"
)

type roundTripFunc func(req *http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func response(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     make(http.Header),
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestNewAnthropicDefaults(t *testing.T) {
	a := NewAnthropic(AnthropicConfig{})
	assert.NotNil(t, a.cfg.HTTPClient)
	assert.Equal(t, defaultAnthropicURL, a.cfg.URL)
	assert.Equal(t, defaultAnthropicVersion, a.cfg.Version)
	assert.Equal(t, defaultAnthropicModel, a.cfg.Model)
	assert.Equal(t, defaultMaxTokens, a.cfg.MaxTokens)
}

func TestAnthropicGenerate(t *testing.T) {
	var got anthropicRequest
	client := &http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "secret", req.Header.Get("x-api-key"))
			assert.Equal(t, defaultAnthropicVersion, req.Header.Get("anthropic-version"))
			require.NoError(t, json.NewDecoder(req.Body).Decode(&got))
			return response(http.StatusOK, `{"content":[{"type":"thinking","thinking":"..."},{"type":"text","text":"  Henry stayed late.  "}]}`), nil
		}),
	}

	a := NewAnthropic(AnthropicConfig{APIKey: "secret", HTTPClient: client})
	text, err := a.Generate(context.Background(), "persona", "who stayed late?")
	require.NoError(t, err)

	assert.Equal(t, "Henry stayed late.", text)
	assert.Equal(t, "persona", got.System)
	assert.Equal(t, defaultMaxTokens, got.MaxTokens)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, "who stayed late?", got.Messages[0].Content)
}

func TestAnthropicGenerateErrors(t *testing.T) {
	tests := []struct {
		name    string
		apiKey  string
		res     *http.Response
		wantErr string
	}{
		{"missing key", "", nil, "api key is required"},
		{"status", "k", response(http.StatusTooManyRequests, `{"error":"rate limited"}`), "status 429"},
		{"invalid json", "k", response(http.StatusOK, `not json`), "invalid json"},
		{"no text", "k", response(http.StatusOK, `{"content":[]}`), "missing text content"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &http.Client{
				Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
					if tt.res == nil {
						t.Fatalf("round trip should not execute: %v", req.URL)
					}
					return tt.res, nil
				}),
			}
			a := NewAnthropic(AnthropicConfig{APIKey: tt.apiKey, HTTPClient: client})
			_, err := a.Generate(context.Background(), "persona", "question")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestOpenAIGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"), r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "test-model", body["model"])
		assert.Len(t, body["messages"], 2)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"x","object":"chat.completion","created":1,"model":"test-model","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"Clara left early."}}]}`)
	}))
	defer srv.Close()

	o := NewOpenAI(OpenAIConfig{APIKey: "secret", Model: "test-model", BaseURL: srv.URL + "/v1/"})
	text, err := o.Generate(context.Background(), "persona", "when did Clara leave?")
	require.NoError(t, err)
	assert.Equal(t, "Clara left early.", text)
}

func TestOpenAIGenerateUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"quota"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	o := NewOpenAI(OpenAIConfig{APIKey: "secret", BaseURL: srv.URL + "/v1/"})
	_, err := o.Generate(context.Background(), "persona", "question")
	assert.Error(t, err)

	_, err = NewOpenAI(OpenAIConfig{}).Generate(context.Background(), "persona", "question")
	assert.ErrorContains(t, err, "api key is required")
}

func TestScriptedRevealsThroughClassifier(t *testing.T) {
	s := NewScripted()
	c := narrator.DefaultClassifier()

	tests := []struct {
		question string
		clue     string
	}{
		{"who saw Eleanor last", narrator.ClueHenryArgument},
		{"what was the argument about", narrator.ClueEmbezzlement},
		{"can we examine the body", narrator.ClueSurgicalWound},
		{"is there evidence on the knife", narrator.ClueFingerprintsExist},
		{"whose fingerprints are they", narrator.ClueWebbFingerprints},
		{"what did Clara see", narrator.ClueClaraWitness},
	}
	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			prompt := narrator.BuildContext([]string{"embezzlement"}, nil, "Ava", tt.question)
			text, err := s.Generate(context.Background(), narrator.Persona, prompt)
			require.NoError(t, err)
			assert.Contains(t, c.MatchClues(text), tt.clue)
		})
	}
}

func TestScriptedFallbackAndCancel(t *testing.T) {
	s := NewScripted()

	text, err := s.Generate(context.Background(), "", narrator.BuildContext(nil, nil, "", "nice weather today"))
	require.NoError(t, err)
	assert.Equal(t, s.fallback, text)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Generate(ctx, "", "anything")
	assert.ErrorIs(t, err, context.Canceled)
}
