package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
)

const defaultBaseURL = "https://www.omdbapi.com/"

type omdbClient struct {
	baseURL    string
	httpc      *http.Client
	retryDelay time.Duration
}

func newOMDBClient(baseURL string, httpc *http.Client) *omdbClient {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	if httpc == nil {
		httpc = &http.Client{Timeout: 10 * time.Second}
	}
	return &omdbClient{
		baseURL:    baseURL,
		httpc:      httpc,
		retryDelay: 300 * time.Millisecond,
	}
}

type omdbSearchResponse struct {
	Search       []omdbSearchItem `json:"Search"`
	TotalResults string           `json:"totalResults"`
	Response     string           `json:"Response"`
	Error        string           `json:"Error"`
}

type omdbSearchItem struct {
	Title  string `json:"Title"`
	Year   string `json:"Year"`
	IMDBID string `json:"imdbID"`
	Type   string `json:"Type"`
	Poster string `json:"Poster"`
}

type omdbDetailResponse struct {
	Title    string `json:"Title"`
	Year     string `json:"Year"`
	Genre    string `json:"Genre"`
	Plot     string `json:"Plot"`
	Poster   string `json:"Poster"`
	IMDBID   string `json:"imdbID"`
	Response string `json:"Response"`
	Error    string `json:"Error"`
}

// doGET performs an HTTP GET with retry and exponential backoff. Transport
// errors, 429 and 5xx responses are retried; other client errors fail fast.
func (c *omdbClient) doGET(ctx context.Context, params url.Values, v any) error {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return err
	}
	u.RawQuery = params.Encode()
	endpoint := u.String()

	return retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}

			resp, err := c.httpc.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return fmt.Errorf("omdb request failed: %s", resp.Status)
			}
			if resp.StatusCode >= 400 {
				return retry.Unrecoverable(fmt.Errorf("omdb request failed: %s", resp.Status))
			}

			if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
				return retry.Unrecoverable(err)
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(c.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(attempt uint, err error) {
			log.Printf("[metadata] omdb request retry (attempt %d/3): %v", attempt+1, err)
		}),
	)
}

// search runs a title search. A "not found" answer from the provider is an
// empty result set, not an error.
func (c *omdbClient) search(ctx context.Context, apiKey, query string) ([]omdbSearchItem, error) {
	params := url.Values{}
	params.Set("apikey", apiKey)
	params.Set("s", query)
	params.Set("type", "movie")

	var payload omdbSearchResponse
	if err := c.doGET(ctx, params, &payload); err != nil {
		return nil, err
	}
	if !strings.EqualFold(payload.Response, "True") {
		if isEmptyResultError(payload.Error) {
			return nil, nil
		}
		if isCredentialError(payload.Error) {
			return nil, fmt.Errorf("%w: %s", ErrNoCredential, strings.TrimSpace(payload.Error))
		}
		return nil, fmt.Errorf("omdb search failed: %s", payload.Error)
	}
	return payload.Search, nil
}

func (c *omdbClient) detail(ctx context.Context, apiKey, externalID string) (omdbDetailResponse, error) {
	params := url.Values{}
	params.Set("apikey", apiKey)
	params.Set("i", externalID)
	params.Set("plot", "short")

	var payload omdbDetailResponse
	if err := c.doGET(ctx, params, &payload); err != nil {
		return omdbDetailResponse{}, err
	}
	if !strings.EqualFold(payload.Response, "True") {
		if isCredentialError(payload.Error) {
			return omdbDetailResponse{}, fmt.Errorf("%w: %s", ErrNoCredential, strings.TrimSpace(payload.Error))
		}
		return omdbDetailResponse{}, fmt.Errorf("omdb detail for %s failed: %s", externalID, payload.Error)
	}
	return payload, nil
}

func isEmptyResultError(msg string) bool {
	msg = strings.TrimSpace(msg)
	return strings.EqualFold(msg, "Movie not found!") || strings.EqualFold(msg, "Too many results.")
}

func isCredentialError(msg string) bool {
	return strings.Contains(strings.ToLower(msg), "api key")
}

// normalizeField maps the provider's "N/A" placeholder to an empty string.
func normalizeField(v string) string {
	v = strings.TrimSpace(v)
	if strings.EqualFold(v, "N/A") {
		return ""
	}
	return v
}

func splitGenres(raw string) []string {
	raw = normalizeField(raw)
	if raw == "" {
		return []string{}
	}
	genres := make([]string, 0, maxGenres)
	for _, part := range strings.Split(raw, ",") {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		genres = append(genres, name)
		if len(genres) == maxGenres {
			break
		}
	}
	return genres
}
