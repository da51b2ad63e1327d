package zotero

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/openheritage/taglens/pkg/taglens/internalerr"
	"github.com/openheritage/taglens/pkg/taglens/record"
)

const defaultBaseURL = "https://api.zotero.org"

// item is the Zotero Web API v3 item envelope. Only the fields the pipeline
// needs are decoded; the rest of the payload is ignored.
type item struct {
	Key  string `json:"key"`
	Data struct {
		Title       string `json:"title"`
		ItemType    string `json:"itemType"`
		Date        string `json:"date"`
		Publication string `json:"publicationTitle"`
		Pages       string `json:"pages"`
		URL         string `json:"url"`
		Tags        []struct {
			Tag string `json:"tag"`
		} `json:"tags"`
	} `json:"data"`
	Meta struct {
		NumChildren int `json:"numChildren"`
	} `json:"meta"`
}

type child struct {
	Key  string `json:"key"`
	Data struct {
		ItemType    string `json:"itemType"`
		Title       string `json:"title"`
		Filename    string `json:"filename"`
		ContentType string `json:"contentType"`
		LinkMode    string `json:"linkMode"`
		Note        string `json:"note"`
	} `json:"data"`
}

// Client is a read-only Zotero Web API v3 client. Requests are paced through
// a rate limiter and carry a bounded timeout; a single retry is attempted on
// transient network errors, but persistent failures surface immediately.
type Client struct {
	baseURL     string
	libraryID   string
	libraryType string
	apiKey      string
	pageSize    int
	httpClient  *http.Client
	limiter     *rate.Limiter
}

// Options configures a Client.
type Options struct {
	LibraryID   string
	LibraryType string // "group" or "user"
	APIKey      string
	PageSize    int
	BaseURL     string        // override for tests
	Timeout     time.Duration // per-request; defaults to 30s
}

// NewClient creates a Zotero client for one library.
func NewClient(opts Options) *Client {
	if opts.PageSize <= 0 {
		opts.PageSize = 100
	}
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Client{
		baseURL:     opts.BaseURL,
		libraryID:   opts.LibraryID,
		libraryType: opts.LibraryType,
		apiKey:      opts.APIKey,
		pageSize:    opts.PageSize,
		httpClient:  &http.Client{Timeout: opts.Timeout},
		limiter:     rate.NewLimiter(rate.Limit(5), 1),
	}
}

func (c *Client) libraryPrefix() string {
	if c.libraryType == "user" {
		return "/users/" + c.libraryID
	}
	return "/groups/" + c.libraryID
}

// ListRecords retrieves every record in the library. Pages of pageSize are
// fetched with an advancing offset until an empty page signals the end. The
// snapshot is not deduplicated; if the library mutates mid-fetch the result
// may be inconsistent.
func (c *Client) ListRecords(ctx context.Context) ([]record.Record, error) {
	var records []record.Record
	start := 0

	for {
		page, err := c.fetchItemPage(ctx, start)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}

		for _, it := range page {
			records = append(records, toRecord(it))
		}
		start += c.pageSize
		log.Printf("  Retrieved %d records so far...", len(records))
	}

	return records, nil
}

// FetchChildren retrieves all child items (attachments and notes) of one
// record.
func (c *Client) FetchChildren(ctx context.Context, recordID string) ([]record.ChildAttachment, error) {
	endpoint := c.baseURL + c.libraryPrefix() + "/items/" + url.PathEscape(recordID) + "/children"

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("fetch children of %s: %w", recordID, err)
	}

	var children []child
	if err := json.Unmarshal(body, &children); err != nil {
		return nil, fmt.Errorf("decode children of %s: %w", recordID, err)
	}

	out := make([]record.ChildAttachment, 0, len(children))
	for _, ch := range children {
		out = append(out, record.ChildAttachment{
			ID:          ch.Key,
			Type:        ch.Data.ItemType,
			Title:       ch.Data.Title,
			Filename:    ch.Data.Filename,
			ContentType: ch.Data.ContentType,
			LinkMode:    ch.Data.LinkMode,
			Note:        ch.Data.Note,
		})
	}
	return out, nil
}

func (c *Client) fetchItemPage(ctx context.Context, start int) ([]item, error) {
	endpoint := c.baseURL + c.libraryPrefix() + "/items?start=" +
		strconv.Itoa(start) + "&limit=" + strconv.Itoa(c.pageSize)

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("fetch items at offset %d: %w", start, err)
	}

	var page []item
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("decode items at offset %d: %w", start, err)
	}
	return page, nil
}

// get performs one authenticated GET with a single retry on transient
// network errors. Auth failures and other HTTP errors are never retried.
func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Zotero-API-Version", "3")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			if readErr != nil {
				lastErr = readErr
				continue
			}
			return body, nil
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return nil, fmt.Errorf("%w: HTTP %d", internalerr.ErrNotAuthorized, resp.StatusCode)
		case resp.StatusCode == http.StatusNotFound:
			return nil, fmt.Errorf("%w: HTTP 404", internalerr.ErrNotFound)
		default:
			return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, endpoint)
		}
	}
	return nil, lastErr
}

// toRecord converts an API item to the internal record type, substituting
// documented defaults for missing optional fields.
func toRecord(it item) record.Record {
	title := it.Data.Title
	if title == "" {
		title = record.NoTitle
	}

	itemType := it.Data.ItemType
	if itemType == "" {
		itemType = "unknown"
	}

	var tags []string
	for _, t := range it.Data.Tags {
		if t.Tag == "" {
			continue
		}
		tags = append(tags, t.Tag)
	}

	return record.Record{
		ID:          it.Key,
		Title:       title,
		Type:        itemType,
		Date:        it.Data.Date,
		Publication: it.Data.Publication,
		Pages:       it.Data.Pages,
		URL:         it.Data.URL,
		Tags:        tags,
		ChildCount:  it.Meta.NumChildren,
	}
}
