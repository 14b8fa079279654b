package serp

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/salekh/genseo-workshop/internal/config"
	"github.com/salekh/genseo-workshop/internal/domain"
	"github.com/salekh/genseo-workshop/pkg/httpclient"
)

const (
	// customSearchPage is the most results the API returns per request.
	customSearchPage = 10
	// customSearchMax is the deepest result index the API will serve.
	customSearchMax = 100
)

// CustomSearch queries the Google Custom Search JSON API.
type CustomSearch struct {
	apiKey   string
	engineID string
	baseURL  string
	gl       string
	lr       string
	client   *httpclient.Client
}

// NewCustomSearch builds a client from cfg. Both the API key and the
// search engine ID are required.
func NewCustomSearch(cfg config.CustomSearchConfig) (*CustomSearch, error) {
	if cfg.APIKey == "" || cfg.EngineID == "" {
		return nil, fmt.Errorf("custom search key and engine id: %w", config.ErrMissingCredential)
	}
	client, err := httpclient.New(httpclient.Config{Timeout: cfg.Timeout})
	if err != nil {
		return nil, err
	}
	return &CustomSearch{
		apiKey:   cfg.APIKey,
		engineID: cfg.EngineID,
		baseURL:  cfg.BaseURL,
		gl:       cfg.GL,
		lr:       cfg.LR,
		client:   client,
	}, nil
}

type customSearchResponse struct {
	Items []struct {
		Title string `json:"title"`
		Link  string `json:"link"`
	} `json:"items"`
}

// Search returns up to num organic results for query, paging through the
// API ten results at a time. A failure on the first page is returned as an
// error; a failure on a later page ends pagination and the results gathered
// so far are returned.
func (c *CustomSearch) Search(ctx context.Context, query string, num int) ([]domain.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errNoQuery
	}
	if num <= 0 {
		num = customSearchPage
	}
	num = min(num, customSearchMax)

	var results []domain.SearchResult
	for start := 1; start <= num; start += customSearchPage {
		batch := min(customSearchPage, num-start+1)
		items, err := c.page(ctx, query, start, batch)
		if err != nil {
			if start == 1 {
				return nil, err
			}
			break
		}
		results = append(results, items...)
		if len(items) < batch {
			break
		}
	}
	return results, nil
}

func (c *CustomSearch) page(ctx context.Context, query string, start, batch int) ([]domain.SearchResult, error) {
	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("cx", c.engineID)
	params.Set("q", query)
	if c.gl != "" {
		params.Set("gl", c.gl)
	}
	if c.lr != "" {
		params.Set("lr", c.lr)
	}
	params.Set("num", strconv.Itoa(batch))
	params.Set("start", strconv.Itoa(start))

	var body customSearchResponse
	if err := c.client.GetJSON(ctx, c.baseURL+"?"+params.Encode(), nil, &body); err != nil {
		return nil, fmt.Errorf("custom search start=%d: %w", start, err)
	}

	out := make([]domain.SearchResult, 0, len(body.Items))
	for _, item := range body.Items {
		if r, ok := organic(item.Title, item.Link); ok {
			out = append(out, r)
		}
	}
	return out, nil
}
