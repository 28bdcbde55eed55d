// Package catalog searches a Discogs-style music database for candidate
// albums matching genre/style/country criteria.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/crateguide/crateguide/pkg/models"
)

// DefaultLimit bounds a single search when the caller does not set one.
const DefaultLimit = 10

// Criteria filters one catalog search. Empty fields are omitted from the
// query; a zero Limit falls back to DefaultLimit.
type Criteria struct {
	Genre   string `json:"genre,omitempty"`
	Style   string `json:"style,omitempty"`
	Country string `json:"country,omitempty"`
	Limit   int    `json:"limit,omitempty"`
}

// Searcher is the catalog contract the recommendation pipeline depends on.
// A search with no matches returns an empty slice, not an error.
type Searcher interface {
	Search(ctx context.Context, criteria Criteria) ([]models.CandidateAlbum, error)
}

// Client is an HTTP client for the catalog search API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a catalog client. Every request carries a bounded
// timeout so a slow catalog cannot stall the pipeline.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// searchResponse mirrors the catalog's database search payload.
type searchResponse struct {
	Results []searchResult `json:"results"`
}

type searchResult struct {
	ID      int64    `json:"id"`
	Title   string   `json:"title"`
	Year    string   `json:"year"`
	Genre   []string `json:"genre"`
	Style   []string `json:"style"`
	Country string   `json:"country"`
}

// Search queries the catalog for releases matching the criteria.
func (c *Client) Search(ctx context.Context, criteria Criteria) ([]models.CandidateAlbum, error) {
	limit := criteria.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	params := url.Values{}
	params.Set("type", "release")
	params.Set("per_page", strconv.Itoa(limit))
	if criteria.Genre != "" {
		params.Set("genre", criteria.Genre)
	}
	if criteria.Style != "" {
		params.Set("style", criteria.Style)
	}
	if criteria.Country != "" {
		params.Set("country", criteria.Country)
	}
	if c.token != "" {
		params.Set("token", c.token)
	}

	fullURL := c.baseURL + "/database/search?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "crateguide/0.1")

	log.Debug().
		Str("genre", criteria.Genre).
		Str("style", criteria.Style).
		Str("country", criteria.Country).
		Int("limit", limit).
		Msg("Searching catalog")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("catalog API error (status %d): %s", resp.StatusCode, string(body))
	}

	var payload searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode catalog response: %w", err)
	}

	albums := make([]models.CandidateAlbum, 0, len(payload.Results))
	for _, r := range payload.Results {
		albums = append(albums, r.toCandidate())
	}

	log.Debug().Int("results", len(albums)).Msg("Catalog search completed")
	return albums, nil
}

// toCandidate maps one catalog hit onto the shared candidate shape. The
// catalog formats release titles as "Artist - Title"; when that convention
// is absent the whole string becomes the title.
func (r searchResult) toCandidate() models.CandidateAlbum {
	artist := ""
	title := r.Title
	if idx := strings.Index(r.Title, " - "); idx > 0 {
		artist = strings.TrimSpace(r.Title[:idx])
		title = strings.TrimSpace(r.Title[idx+3:])
	}

	year, _ := strconv.Atoi(r.Year)

	genres := r.Genre
	genres = append(genres, r.Style...)
	if genres == nil {
		genres = []string{}
	}

	return models.CandidateAlbum{
		CatalogID: strconv.FormatInt(r.ID, 10),
		Title:     title,
		Artist:    artist,
		Year:      year,
		Genres:    genres,
		Country:   r.Country,
	}
}

// ReleaseURL builds the public link for a catalog release id.
func ReleaseURL(catalogID string) string {
	return "https://www.discogs.com/release/" + catalogID
}
