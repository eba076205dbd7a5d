// Package pocket integrates with the Pocket read-it-later service.
// Credentials live in the catalog's config table.
package pocket

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sobjornstad/rabbitmark/internal/catalog"
	"github.com/sobjornstad/rabbitmark/internal/model"
)

// Default API endpoints.
const (
	AddEndpoint = "https://getpocket.com/v3/add"
	GetEndpoint = "https://getpocket.com/v3/get"
)

// Config table keys.
const (
	consumerKeyConfig = "pocket_consumer_key"
	accessTokenConfig = "pocket_access_token"
	sinceConfig       = "pocket_since"
)

// ErrInvalidConfiguration means the Pocket credentials are missing from
// the config table.
var ErrInvalidConfiguration = errors.New(
	"pocket: consumer key or access token not configured")

// Client talks to the Pocket API on behalf of one catalog.
type Client struct {
	http        *http.Client
	addEndpoint string
	getEndpoint string

	consumerKey string
	accessToken string
}

// NewClient builds a Client from the credentials in the catalog's config
// table. Returns ErrInvalidConfiguration if they are absent.
func NewClient(cat *catalog.Catalog) (*Client, error) {
	return newClient(cat, &http.Client{Timeout: 30 * time.Second},
		AddEndpoint, GetEndpoint)
}

// NewClientWith is NewClient with a custom HTTP client and endpoints,
// for tests.
func NewClientWith(cat *catalog.Catalog, httpClient *http.Client,
	addEndpoint, getEndpoint string) (*Client, error) {
	return newClient(cat, httpClient, addEndpoint, getEndpoint)
}

func newClient(cat *catalog.Catalog, httpClient *http.Client,
	addEndpoint, getEndpoint string) (*Client, error) {

	consumerKey, ok1, err := cat.ConfigGet(consumerKeyConfig)
	if err != nil {
		return nil, err
	}
	accessToken, ok2, err := cat.ConfigGet(accessTokenConfig)
	if err != nil {
		return nil, err
	}
	if !ok1 || !ok2 {
		return nil, ErrInvalidConfiguration
	}

	return &Client{
		http:        httpClient,
		addEndpoint: addEndpoint,
		getEndpoint: getEndpoint,
		consumerKey: consumerKey,
		accessToken: accessToken,
	}, nil
}

// post sends a JSON request and translates Pocket's status codes into
// user-comprehensible errors.
func (c *Client) post(ctx context.Context, endpoint string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf(
			"unable to connect to Pocket, please check your network connection: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return resp, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		resp.Body.Close()
		return nil, errors.New(
			"unable to authenticate to the Pocket API; check your Pocket " +
				"configuration (or wait an hour if you may be rate-limited)")
	case http.StatusServiceUnavailable:
		resp.Body.Close()
		return nil, errors.New("pocket is down for maintenance, please try again later")
	default:
		apiErr := resp.Header.Get("X-Error")
		resp.Body.Close()
		if apiErr == "" {
			apiErr = resp.Status
		}
		return nil, fmt.Errorf("pocket API error: %s", apiErr)
	}
}

// AddURL adds a bookmark's URL to the user's Pocket reading list. The
// tags need not correspond with catalog tags; commas in them are
// replaced since Pocket uses commas as separators.
func (c *Client) AddURL(ctx context.Context, mark model.Bookmark, tags []string) error {
	safe := make([]string, len(tags))
	for i, t := range tags {
		safe[i] = strings.ReplaceAll(t, ",", "_")
	}

	resp, err := c.post(ctx, c.addEndpoint, map[string]string{
		"url":          mark.URL,
		"title":        mark.Name,
		"tags":         strings.Join(safe, ", "),
		"consumer_key": c.consumerKey,
		"access_token": c.accessToken,
	})
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// Article is one Pocket reading-list item mapped to catalog fields.
type Article struct {
	Name        string
	URL         string
	Description string
	Tags        []string
}

// SyncOptions filters and transforms the Pocket items retrieved by SyncItems.
type SyncOptions struct {
	OnlyTag       string // retrieve only items with this Pocket tag
	OnlyFavorites bool
	OnlySince     bool   // resume from the last sync point in the config table
	UseExcerpt    bool   // carry Pocket's excerpt over as the description
	TagWith       string // extra tag to put on every imported item
	TagPassthru   bool   // carry Pocket tags over
	DiscardTags   string // comma-separated Pocket tags to drop during passthru
}

type pocketItem struct {
	ResolvedTitle string                     `json:"resolved_title"`
	GivenTitle    string                     `json:"given_title"`
	ResolvedURL   string                     `json:"resolved_url"`
	Excerpt       string                     `json:"excerpt"`
	Tags          map[string]json.RawMessage `json:"tags"`
}

// SyncItems retrieves reading-list items from Pocket matching the
// options and remembers the sync point in the config table so the next
// call with OnlySince picks up where this one left off.
func (c *Client) SyncItems(ctx context.Context, cat *catalog.Catalog,
	opts SyncOptions) ([]Article, error) {

	params := map[string]any{
		"consumer_key": c.consumerKey,
		"access_token": c.accessToken,
		"state":        "all",      // not just unread
		"detailType":   "complete", // otherwise no tags
	}
	if opts.OnlyFavorites {
		params["favorite"] = 1
	}
	if opts.OnlyTag != "" {
		params["tag"] = opts.OnlyTag
	}
	if opts.OnlySince {
		if since, ok, err := cat.ConfigGet(sinceConfig); err != nil {
			return nil, err
		} else if ok {
			params["since"] = since
		}
	}

	resp, err := c.post(ctx, c.getEndpoint, params)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// The list is an empty JSON array when there are no results, but an
	// object mapping ids to items when there are.
	var response struct {
		List  json.RawMessage `json:"list"`
		Since json.Number     `json:"since"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode Pocket response: %w", err)
	}

	items := map[string]pocketItem{}
	if err := json.Unmarshal(response.List, &items); err != nil || len(items) == 0 {
		return nil, nil
	}

	discard := map[string]bool{}
	if opts.DiscardTags != "" {
		for _, t := range strings.Split(opts.DiscardTags, ",") {
			discard[strings.TrimSpace(t)] = true
		}
	}

	var articles []Article
	for _, item := range items {
		var tags []string
		if opts.TagWith != "" {
			tags = append(tags, opts.TagWith)
		}
		if opts.TagPassthru {
			for t := range item.Tags {
				if !discard[t] {
					tags = append(tags, t)
				}
			}
		}

		name := item.ResolvedTitle
		if name == "" {
			name = item.GivenTitle
		}
		description := ""
		if opts.UseExcerpt {
			description = item.Excerpt
		}

		articles = append(articles, Article{
			Name:        name,
			URL:         item.ResolvedURL,
			Description: description,
			Tags:        tags,
		})
	}

	if err := cat.ConfigPut(sinceConfig, response.Since.String()); err != nil {
		return nil, err
	}
	return articles, nil
}
