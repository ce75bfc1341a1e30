package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/tarslinks/linkhive/internal/models"
)

// Hosted calls a managed embedding HTTP API in the Ollama embedding
// style: POST {model, prompt} to baseURL + "/api/embeddings", decode a
// flat float32 vector back.
type Hosted struct {
	baseURL string
	model   string
	logger  arbor.ILogger
	client  *http.Client
}

func NewHosted(baseURL, model string, logger arbor.ILogger) *Hosted {
	return &Hosted{
		baseURL: baseURL,
		model:   model,
		logger:  logger,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (h *Hosted) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, models.ErrEmbed("cannot embed empty text", nil)
	}
	if runes := []rune(text); len(runes) > models.EmbedMaxInputChars {
		text = string(runes[:models.EmbedMaxInputChars])
	}

	reqBody, err := json.Marshal(map[string]any{
		"model":  h.model,
		"prompt": text,
	})
	if err != nil {
		return nil, models.ErrEmbed("failed to marshal embed request: "+err.Error(), err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+"/api/embeddings", bytes.NewReader(reqBody))
	if err != nil {
		return nil, models.ErrEmbed("failed to build embed request: "+err.Error(), err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, models.ErrEmbed("embedding service unreachable: "+err.Error(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, models.ErrEmbed(fmt.Sprintf("embedding service returned status %d", resp.StatusCode), nil)
	}

	var decoded struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, models.ErrEmbed("failed to decode embed response: "+err.Error(), err)
	}
	if len(decoded.Embedding) == 0 {
		return nil, models.ErrEmbed("embedding service returned an empty vector", nil)
	}

	h.logger.Debug().Int("dim", len(decoded.Embedding)).Msg("generated embedding")
	return decoded.Embedding, nil
}

// Available reports whether the hosted embedding service is reachable
// (GET baseURL + "/api/tags" answers 200). Nothing in this repository
// calls it.
func (h *Hosted) Available(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := h.client.Do(req)
	if err != nil {
		h.logger.Debug().Err(err).Msg("embedding service not available")
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
