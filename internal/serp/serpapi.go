package serp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/salekh/genseo-workshop/internal/config"
	"github.com/salekh/genseo-workshop/internal/domain"
	"github.com/salekh/genseo-workshop/pkg/httpclient"
)

// SerpAPI queries Google through serpapi.com.
type SerpAPI struct {
	apiKey  string
	baseURL string
	hl      string
	gl      string
	client  *httpclient.Client
}

// NewSerpAPI builds a client from cfg. It fails with
// config.ErrMissingCredential when no API key is configured.
func NewSerpAPI(cfg config.SerpAPIConfig) (*SerpAPI, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("serpapi api key: %w", config.ErrMissingCredential)
	}
	client, err := httpclient.New(httpclient.Config{Timeout: cfg.Timeout})
	if err != nil {
		return nil, err
	}
	return &SerpAPI{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		hl:      cfg.HL,
		gl:      cfg.GL,
		client:  client,
	}, nil
}

type serpAPIResponse struct {
	Error          string `json:"error"`
	OrganicResults []struct {
		Title string `json:"title"`
		Link  string `json:"link"`
	} `json:"organic_results"`
	RelatedSearches *[]struct {
		Query string `json:"query"`
	} `json:"related_searches"`
	PeopleAlsoAsk *[]struct {
		Question string `json:"question"`
	} `json:"people_also_ask"`
}

// Search runs query for the given location.
func (s *SerpAPI) Search(ctx context.Context, query, location string) (domain.SearchResponse, error) {
	if strings.TrimSpace(query) == "" {
		return domain.SearchResponse{}, errNoQuery
	}

	params := url.Values{}
	params.Set("engine", "google")
	params.Set("q", query)
	if location != "" {
		params.Set("location", location)
	}
	params.Set("hl", s.hl)
	params.Set("gl", s.gl)
	params.Set("api_key", s.apiKey)

	var raw json.RawMessage
	if err := s.client.GetJSON(ctx, s.baseURL+"?"+params.Encode(), nil, &raw); err != nil {
		return domain.SearchResponse{}, fmt.Errorf("serpapi search: %w", err)
	}
	return decodeSerpAPI(raw)
}

func decodeSerpAPI(raw []byte) (domain.SearchResponse, error) {
	var body serpAPIResponse
	if err := json.Unmarshal(raw, &body); err != nil {
		return domain.SearchResponse{}, fmt.Errorf("decode serpapi response: %w", err)
	}
	if body.Error != "" {
		return domain.SearchResponse{}, fmt.Errorf("serpapi: %s", body.Error)
	}

	var out domain.SearchResponse
	for _, item := range body.OrganicResults {
		if r, ok := organic(item.Title, item.Link); ok {
			out.Organic = append(out.Organic, r)
		}
	}
	if body.RelatedSearches != nil {
		out.HasRelatedSearches = true
		for _, rs := range *body.RelatedSearches {
			if rs.Query != "" {
				out.RelatedSearches = append(out.RelatedSearches, rs.Query)
			}
		}
	}
	if body.PeopleAlsoAsk != nil {
		out.HasPeopleAlsoAsk = true
		for _, q := range *body.PeopleAlsoAsk {
			if q.Question != "" {
				out.PeopleAlsoAsk = append(out.PeopleAlsoAsk, q.Question)
			}
		}
	}
	return out, nil
}
