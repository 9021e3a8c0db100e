// Package rednote implements the content-source boundary against the note
// platform's JSON API. It performs no request signing or anti-bot work; the
// credential is an opaque cookie string passed through on every call.
package rednote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"noteharvest/internal/harvest"
)

const (
	defaultBaseURL   = "https://edith.xiaohongshu.com"
	defaultTimeout   = 15 * time.Second
	defaultUserAgent = "noteharvest/0.1"

	searchPath   = "/api/sns/web/v1/search/notes"
	notePath     = "/api/sns/web/v1/note"
	commentsPath = "/api/sns/web/v2/comment/page"
	profilePath  = "/api/sns/web/v2/user/me"
)

// Config captures the HTTP client parameters.
type Config struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

// Client is a harvest.ContentSource backed by the platform's web API. It is
// safe for concurrent use.
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
}

// New constructs a Client, filling in defaults for unset config values.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	return &Client{
		baseURL:   cfg.BaseURL,
		userAgent: cfg.UserAgent,
		http:      &http.Client{Timeout: cfg.Timeout},
	}
}

// envelope is the response wrapper every endpoint shares. A false Success
// carries the platform's failure reason in Msg.
type envelope struct {
	Success bool            `json:"success"`
	Msg     string          `json:"msg"`
	Data    json.RawMessage `json:"data"`
}

// Search returns raw hits for a keyword. The response mixes content types;
// callers filter by ModelType.
func (c *Client) Search(
	ctx context.Context,
	keyword string,
	limit int,
	sort harvest.SortOrder,
	filter harvest.NoteTypeFilter,
) ([]harvest.SearchItem, error) {
	body := map[string]any{
		"keyword":   keyword,
		"page":      1,
		"page_size": limit,
		"sort":      sortParam(sort),
		"note_type": int(filter),
	}
	var data struct {
		Items []harvest.SearchItem `json:"items"`
	}
	if err := c.post(ctx, searchPath, "", body, &data); err != nil {
		return nil, fmt.Errorf("search notes: %w", err)
	}
	return data.Items, nil
}

// FetchPost loads one note's metadata from its canonical URL.
func (c *Client) FetchPost(ctx context.Context, noteURL, credential string) (harvest.PostMetadata, error) {
	noteID, token := splitNoteURL(noteURL)
	query := url.Values{}
	query.Set("note_id", noteID)
	query.Set("xsec_token", token)
	var meta harvest.PostMetadata
	if err := c.get(ctx, notePath, query, credential, &meta); err != nil {
		return harvest.PostMetadata{}, fmt.Errorf("fetch note %s: %w", noteID, err)
	}
	return meta, nil
}

// FetchComments loads one page of top-level comments for a note.
func (c *Client) FetchComments(ctx context.Context, noteID, cursor, token, credential string) (harvest.CommentPage, error) {
	query := url.Values{}
	query.Set("note_id", noteID)
	query.Set("cursor", cursor)
	query.Set("xsec_token", token)
	var page harvest.CommentPage
	if err := c.get(ctx, commentsPath, query, credential, &page); err != nil {
		return harvest.CommentPage{}, fmt.Errorf("fetch comments for %s: %w", noteID, err)
	}
	return page, nil
}

// ProbeAuth checks credential liveness by loading the caller's own profile.
func (c *Client) ProbeAuth(ctx context.Context, credential string) (harvest.Profile, error) {
	var profile harvest.Profile
	if err := c.get(ctx, profilePath, nil, credential, &profile); err != nil {
		return harvest.Profile{}, fmt.Errorf("probe auth: %w", err)
	}
	return profile, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, credential string, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	return c.do(req, credential, out)
}

func (c *Client) post(ctx context.Context, path, credential string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, credential, out)
}

func (c *Client) do(req *http.Request, credential string, out any) error {
	req.Header.Set("User-Agent", c.userAgent)
	if credential != "" {
		req.Header.Set("Cookie", credential)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, snippet)
	}
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if !env.Success {
		return fmt.Errorf("source reported failure: %s", env.Msg)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
	}
	return nil
}

func sortParam(sort harvest.SortOrder) string {
	switch sort {
	case harvest.SortMostEngaged:
		return "popularity_descending"
	case harvest.SortNewest:
		return "time_descending"
	default:
		return "general"
	}
}

// splitNoteURL pulls the note id and token from a canonical note URL.
func splitNoteURL(noteURL string) (noteID, token string) {
	u, err := url.Parse(noteURL)
	if err != nil {
		return "", ""
	}
	path := u.Path
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			noteID = path[i+1:]
			break
		}
	}
	return noteID, u.Query().Get("xsec_token")
}
