// Package wayback retrieves the list of archive.org snapshots of a
// website, which feeds the interactive bisection picker.
package wayback

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// CDXSearchEndpoint is the WayBackMachine capture index API.
const CDXSearchEndpoint = "http://web.archive.org/cdx/search/cdx"

// rawTimestampLayout is the timestamp format the WBM uses to identify snapshots.
const rawTimestampLayout = "20060102150405"

// Snapshot is one capture of a website in the WayBackMachine.
type Snapshot struct {
	OriginalURL string    // the live URL this is a snapshot of
	Time        time.Time // when the snapshot was taken
	PagePath    string    // path to the page within the WBM
}

// RawTimestamp returns the timestamp string used within the WBM to
// identify the snapshot.
func (s Snapshot) RawTimestamp() string {
	return s.Time.Format(rawTimestampLayout)
}

// ArchivedURL returns the URL to view the snapshot's contents on the web.
func (s Snapshot) ArchivedURL() string {
	return fmt.Sprintf("https://web.archive.org/web/%s/%s",
		s.RawTimestamp(), s.PagePath)
}

// FormattedTimestamp renders the snapshot time using the provided layout.
func (s Snapshot) FormattedTimestamp(layout string) string {
	return s.Time.Format(layout)
}

// Client queries the CDX API.
type Client struct {
	http     *http.Client
	endpoint string
}

// NewClient creates a Client against the real archive.org endpoint.
func NewClient() *Client {
	return &Client{
		http:     &http.Client{Timeout: 30 * time.Second},
		endpoint: CDXSearchEndpoint,
	}
}

// NewClientWith creates a Client with a custom HTTP client and endpoint,
// for tests.
func NewClientWith(httpClient *http.Client, endpoint string) *Client {
	return &Client{http: httpClient, endpoint: endpoint}
}

// Snapshots requests the list of snapshots of originalURL, ordered
// oldest first as the CDX API returns them. An empty slice means the
// archives have nothing; an error means we couldn't get a valid answer
// at all.
func (c *Client) Snapshots(ctx context.Context, originalURL string) ([]Snapshot, error) {
	query := url.Values{
		"url":    {originalURL},
		"output": {"json"},
	}
	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, c.endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query wayback machine: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("wayback machine returned HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, nil
	}

	// Rows of strings; the first row is column headers.
	var rows [][]string
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, nil
	}
	if len(rows) < 2 {
		return nil, nil
	}

	snapshots := make([]Snapshot, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) < 3 {
			continue
		}
		t, err := time.Parse(rawTimestampLayout, row[1])
		if err != nil {
			continue
		}
		snapshots = append(snapshots, Snapshot{
			OriginalURL: originalURL,
			Time:        t,
			PagePath:    row[2],
		})
	}
	return snapshots, nil
}
