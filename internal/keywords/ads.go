// Package keywords fetches keyword ideas and search volumes from the Google
// Ads KeywordPlanIdeaService.
package keywords

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"

	"github.com/salekh/genseo-workshop/internal/config"
	"github.com/salekh/genseo-workshop/internal/domain"
	"github.com/salekh/genseo-workshop/pkg/httpclient"
)

const (
	googleAuthURL = "https://accounts.google.com/o/oauth2/auth"
	// maxPages bounds how many result pages a single lookup walks.
	maxPages = 5
)

// Client talks to the Google Ads REST API.
type Client struct {
	http            *httpclient.Client
	baseURL         string
	version         string
	developerToken  string
	loginCustomerID string
	customerID      string
	geoTargetID     int64
	languageID      int64
}

// New builds a client authenticated with the configured refresh token.
func New(cfg config.GoogleAdsConfig) (*Client, error) {
	if cfg.DeveloperToken == "" || cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RefreshToken == "" {
		return nil, fmt.Errorf("google ads developer token and oauth client: %w", config.ErrMissingCredential)
	}
	customerID := cfg.CustomerID
	if customerID == "" {
		customerID = cfg.LoginCustomerID
	}
	if customerID == "" {
		return nil, fmt.Errorf("google ads customer id: %w", config.ErrMissingCredential)
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  googleAuthURL,
			TokenURL: cfg.TokenURL,
		},
	}
	source := oauthCfg.TokenSource(context.Background(), &oauth2.Token{RefreshToken: cfg.RefreshToken})

	client, err := httpclient.New(httpclient.Config{
		Timeout:   cfg.Timeout,
		Transport: &oauth2.Transport{Source: source, Base: http.DefaultTransport},
	})
	if err != nil {
		return nil, err
	}

	return &Client{
		http:            client,
		baseURL:         strings.TrimRight(cfg.BaseURL, "/"),
		version:         cfg.APIVersion,
		developerToken:  cfg.DeveloperToken,
		loginCustomerID: stripDashes(cfg.LoginCustomerID),
		customerID:      stripDashes(customerID),
		geoTargetID:     cfg.GeoTargetID,
		languageID:      cfg.LanguageID,
	}, nil
}

type ideasRequest struct {
	KeywordSeed          keywordSeed `json:"keywordSeed"`
	GeoTargetConstants   []string    `json:"geoTargetConstants"`
	Language             string      `json:"language"`
	IncludeAdultKeywords bool        `json:"includeAdultKeywords"`
	KeywordPlanNetwork   string      `json:"keywordPlanNetwork"`
	KeywordAnnotation    []string    `json:"keywordAnnotation"`
	PageToken            string      `json:"pageToken,omitempty"`
}

type keywordSeed struct {
	Keywords []string `json:"keywords"`
}

type ideasResponse struct {
	Results []struct {
		Text    string `json:"text"`
		Metrics struct {
			AvgMonthlySearches json.Number `json:"avgMonthlySearches"`
			Competition        string      `json:"competition"`
		} `json:"keywordIdeaMetrics"`
	} `json:"results"`
	NextPageToken string `json:"nextPageToken"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
		Details []struct {
			Errors []struct {
				Message string `json:"message"`
			} `json:"errors"`
		} `json:"details"`
	} `json:"error"`
}

// Ideas returns keyword ideas for seed. The returned error carries the first
// detailed message the API reported.
func (c *Client) Ideas(ctx context.Context, seed string) (domain.KeywordData, error) {
	seed = strings.TrimSpace(seed)
	if seed == "" {
		return domain.KeywordData{}, errors.New("empty keyword seed")
	}

	body := ideasRequest{
		KeywordSeed:        keywordSeed{Keywords: []string{seed}},
		GeoTargetConstants: []string{fmt.Sprintf("geoTargetConstants/%d", c.geoTargetID)},
		Language:           fmt.Sprintf("languageConstants/%d", c.languageID),
		KeywordPlanNetwork: "GOOGLE_SEARCH",
		KeywordAnnotation:  []string{"KEYWORD_CONCEPT"},
	}

	var ideas []Idea
	for page := 0; page < maxPages; page++ {
		resp, err := c.generate(ctx, body)
		if err != nil {
			return domain.KeywordData{}, err
		}
		for _, r := range resp.Results {
			n, _ := r.Metrics.AvgMonthlySearches.Int64()
			comp := r.Metrics.Competition
			if comp == "" {
				comp = "UNKNOWN"
			}
			ideas = append(ideas, Idea{Text: r.Text, AvgMonthlySearches: n, Competition: comp})
		}
		if resp.NextPageToken == "" {
			break
		}
		body.PageToken = resp.NextPageToken
	}
	return Process(ideas, seed), nil
}

func (c *Client) generate(ctx context.Context, body ideasRequest) (*ideasResponse, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	endpoint := fmt.Sprintf("%s/%s/customers/%s:generateKeywordIdeas", c.baseURL, c.version, c.customerID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("developer-token", c.developerToken)
	if c.loginCustomerID != "" {
		req.Header.Set("login-customer-id", c.loginCustomerID)
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("generate keyword ideas: %w", err)
	}
	data, err := c.http.ReadBody(resp)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, decodeAPIError(resp.StatusCode, data)
	}

	var out ideasResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode keyword ideas: %w", err)
	}
	return &out, nil
}

func decodeAPIError(status int, body []byte) error {
	var e apiError
	if json.Unmarshal(body, &e) == nil {
		for _, d := range e.Error.Details {
			for _, item := range d.Errors {
				if item.Message != "" {
					return fmt.Errorf("google ads: %s", item.Message)
				}
			}
		}
		if e.Error.Message != "" {
			return fmt.Errorf("google ads: %s", e.Error.Message)
		}
	}
	return &httpclient.StatusError{StatusCode: status, Body: strings.TrimSpace(string(body))}
}

func stripDashes(id string) string {
	return strings.ReplaceAll(strings.TrimSpace(id), "-", "")
}
