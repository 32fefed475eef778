package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"gameboard-server/core"
	"gameboard-server/vault"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

const defaultTimeout = 5 * time.Minute

// KeySource yields the upstream API key for a vault slot.
type KeySource interface {
	GetSecret(ctx context.Context, slot string) (string, error)
}

// Proxy forwards requests to an OpenAI-compatible API using keys held in the vault.
type Proxy struct {
	keys    KeySource
	baseURL string
	client  *http.Client
}

func NewProxy(keys KeySource, baseURL string) *Proxy {
	return &Proxy{
		keys:    keys,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: defaultTimeout},
	}
}

// Only the fields the proxy inspects are decoded; the body is forwarded untouched.

type ChatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"` // Can be string or a slice of content parts
	Name    string `json:"name,omitempty"`
}

type ChatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
	Stream   *bool         `json:"stream"`
}

type ImageGenerationRequest struct {
	Model  string `json:"model,omitempty"`
	Prompt string `json:"prompt"`
	N      *int   `json:"n,omitempty"`
	Size   string `json:"size,omitempty"`
}

// FlusherWriter is a helper to ensure that data is flushed to the client for streaming
type FlusherWriter struct {
	w http.ResponseWriter
	f http.Flusher
}

func (fw *FlusherWriter) Write(p []byte) (int, error) {
	n, err := fw.w.Write(p)
	if fw.f != nil {
		fw.f.Flush()
	}
	return n, err
}

func jsonError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, map[string]string{"error": msg})
}

// apiKey resolves the key for slot, writing the error response itself when it cannot.
func (p *Proxy) apiKey(w http.ResponseWriter, r *http.Request, slot, label string) (string, bool) {
	key, err := p.keys.GetSecret(r.Context(), slot)
	if err == nil {
		return key, true
	}

	log := logrus.WithField("slot", slot)
	switch {
	case errors.Is(err, core.ErrNotFound):
		log.Warn("Upstream API key is not configured")
		jsonError(w, r, http.StatusServiceUnavailable, label+" API key is not configured")
	case errors.Is(err, core.ErrDecryption):
		log.WithError(err).Error("Upstream API key could not be decrypted")
		jsonError(w, r, http.StatusInternalServerError, "stored secret could not be decrypted")
	default:
		log.WithError(err).Error("Failed to load upstream API key")
		jsonError(w, r, http.StatusInternalServerError, "Failed to load API key")
	}
	return "", false
}

func (p *Proxy) forward(ctx context.Context, path, apiKey string, body []byte) (*http.Response, error) {
	proxyReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	proxyReq.Header.Set("Authorization", "Bearer "+apiKey)
	proxyReq.Header.Set("Content-Type", "application/json")
	proxyReq.Header.Set("Accept", "application/json")

	return p.client.Do(proxyReq)
}

func copyResponse(w http.ResponseWriter, resp *http.Response) {
	for key, values := range resp.Header {
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		logrus.WithError(err).Warn("Error copying upstream response")
	}
}

func (p *Proxy) HandleChatCompletion() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			jsonError(w, r, http.StatusInternalServerError, "Failed to read request body")
			return
		}
		defer r.Body.Close()

		// Unmarshal to check if it's a streaming request
		var req ChatCompletionRequest
		if err := json.Unmarshal(body, &req); err != nil {
			jsonError(w, r, http.StatusBadRequest, "Invalid JSON in request body")
			return
		}

		apiKey, ok := p.apiKey(w, r, vault.SlotChat, "Chat")
		if !ok {
			return
		}

		resp, err := p.forward(r.Context(), "/v1/chat/completions", apiKey, body)
		if err != nil {
			logrus.WithError(err).Error("Failed to reach chat completion API")
			jsonError(w, r, http.StatusBadGateway, "Failed to communicate with OpenAI API")
			return
		}
		defer resp.Body.Close()

		if req.Stream == nil || !*req.Stream {
			copyResponse(w, resp)
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "Streaming unsupported!", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(resp.StatusCode)

		fw := &FlusherWriter{w: w, f: flusher}
		if _, err := io.Copy(fw, resp.Body); err != nil {
			// The response is likely already sent/broken.
			logrus.WithError(err).Warn("Error streaming response from OpenAI")
		}
	}
}

func (p *Proxy) HandleImageGeneration() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			jsonError(w, r, http.StatusInternalServerError, "Failed to read request body")
			return
		}
		defer r.Body.Close()

		var req ImageGenerationRequest
		if err := json.Unmarshal(body, &req); err != nil {
			jsonError(w, r, http.StatusBadRequest, "Invalid JSON in request body")
			return
		}
		if strings.TrimSpace(req.Prompt) == "" {
			jsonError(w, r, http.StatusBadRequest, "prompt is required")
			return
		}

		apiKey, ok := p.apiKey(w, r, vault.SlotImage, "Image")
		if !ok {
			return
		}

		resp, err := p.forward(r.Context(), "/v1/images/generations", apiKey, body)
		if err != nil {
			logrus.WithError(err).Error("Failed to reach image generation API")
			jsonError(w, r, http.StatusBadGateway, "Failed to communicate with OpenAI API")
			return
		}
		defer resp.Body.Close()

		copyResponse(w, resp)
	}
}
