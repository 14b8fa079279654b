package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/salekh/genseo-workshop/internal/config"
	"github.com/salekh/genseo-workshop/internal/domain"
	"github.com/salekh/genseo-workshop/pkg/httpclient"
)

// Jina extracts page content through the Jina Reader API.
type Jina struct {
	baseURL string
	apiKey  string
	client  *httpclient.Client
}

// NewJina builds a Jina Reader client. The API key is optional.
func NewJina(cfg config.ExtractorConfig) (*Jina, error) {
	client, err := httpclient.New(httpclient.Config{
		Timeout:      cfg.Timeout,
		MaxBodyBytes: cfg.MaxBodyBytes,
	})
	if err != nil {
		return nil, err
	}
	return &Jina{baseURL: cfg.JinaBaseURL, apiKey: cfg.JinaAPIKey, client: client}, nil
}

type jinaPayload struct {
	Title   *string `json:"title"`
	Content string  `json:"content"`
	URL     string  `json:"url"`
}

type jinaEnvelope struct {
	Data *jinaPayload `json:"data"`
	jinaPayload
}

// Extract fetches targetURL through the reader and returns its content.
func (j *Jina) Extract(ctx context.Context, targetURL string) (domain.ExtractedContent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, j.baseURL+targetURL, nil)
	if err != nil {
		return domain.ExtractedContent{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-Retain-Images", "none")
	req.Header.Set("Accept", "application/json")
	if j.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+j.apiKey)
	}

	resp, err := j.client.Do(ctx, req)
	if err != nil {
		return domain.ExtractedContent{}, err
	}
	body, err := j.client.ReadBody(resp)
	if err != nil {
		return domain.ExtractedContent{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.ExtractedContent{}, &httpclient.StatusError{StatusCode: resp.StatusCode, Body: httpclient.Excerpt(body, 256)}
	}
	return parseJina(targetURL, body), nil
}

func parseJina(targetURL string, body []byte) domain.ExtractedContent {
	var env jinaEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		content := string(body)
		title := markdownTitle(content)
		if title == "" {
			title = noTitle
		}
		return domain.ExtractedContent{
			URL:         targetURL,
			Title:       title,
			WordCount:   WordCount(content),
			MainContent: content,
		}
	}

	payload := env.jinaPayload
	if env.Data != nil && (env.Data.Title != nil || env.Data.Content != "" || env.Data.URL != "") {
		payload = *env.Data
	}

	out := domain.ExtractedContent{
		URL:         targetURL,
		Title:       noTitle,
		WordCount:   WordCount(payload.Content),
		MainContent: payload.Content,
	}
	if payload.Title != nil {
		out.Title = *payload.Title
	}
	if payload.URL != "" {
		out.URL = payload.URL
	}
	return out
}

