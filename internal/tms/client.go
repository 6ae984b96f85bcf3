package tms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/symphonia/tms-sync/internal/models"
	"github.com/symphonia/tms-sync/internal/secrets"
)

// RemoteUnavailableError indicates the provider could not serve a page:
// a transport failure, timeout, or non-2xx status.
type RemoteUnavailableError struct {
	StatusCode int
	Err        error
}

func (e *RemoteUnavailableError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("tms provider unavailable: status %d", e.StatusCode)
	}
	return fmt.Sprintf("tms provider unavailable: %v", e.Err)
}

func (e *RemoteUnavailableError) Unwrap() error {
	return e.Err
}

// AuthRejectedError indicates the provider rejected the API credentials.
type AuthRejectedError struct {
	StatusCode int
}

func (e *AuthRejectedError) Error() string {
	return fmt.Sprintf("tms provider rejected credentials: status %d", e.StatusCode)
}

// Page is one page of the provider's carrier listing.
type Page struct {
	Results    []Company
	TotalCount int
	// HasNext is derived from the provider's next-page pointer, not from the
	// count, because counts can be approximate or absent.
	HasNext bool
}

// listResponse mirrors the provider's paginated envelope.
type listResponse struct {
	Count   int               `json:"count"`
	Next    *string           `json:"next"`
	Results []json.RawMessage `json:"results"`
}

// Client issues authenticated page requests against a TMS companies listing.
// It does not retry; the caller owns retry policy.
type Client struct {
	httpClient *http.Client
	resolver   secrets.Resolver
	logger     *slog.Logger
}

// NewClient creates a TMS API client. Every request carries the given
// wall-clock timeout so a hung fetch cannot stall a run indefinitely.
func NewClient(timeout time.Duration, resolver secrets.Resolver, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		resolver:   resolver,
		logger:     logger,
	}
}

// FetchPage retrieves one page of carrier companies for the connection.
// Provider-side filters exclude shipper-only companies so most of the noise
// never crosses the wire.
func (c *Client) FetchPage(ctx context.Context, conn *models.TMSConnection, page, pageSize int) (*Page, error) {
	token, err := c.token(conn)
	if err != nil {
		return nil, fmt.Errorf("resolve api token: %w", err)
	}

	endpoint := strings.TrimRight(conn.Credentials.APIURL, "/") + "/companies/"

	params := url.Values{}
	params.Set("is_carrier", "true")
	params.Set("is_shipper", "false")
	params.Set("limit", strconv.Itoa(pageSize))
	params.Set("page", strconv.Itoa(page))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+token)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("fetching companies page", "tms_type", conn.TMSType, "page", page, "page_size", pageSize)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &RemoteUnavailableError{Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &AuthRejectedError{StatusCode: resp.StatusCode}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, &RemoteUnavailableError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RemoteUnavailableError{Err: err}
	}

	var listing listResponse
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, &RemoteUnavailableError{Err: fmt.Errorf("decode page: %w", err)}
	}

	result := &Page{
		Results:    make([]Company, 0, len(listing.Results)),
		TotalCount: listing.Count,
		HasNext:    listing.Next != nil && *listing.Next != "",
	}

	for _, raw := range listing.Results {
		var company Company
		if err := json.Unmarshal(raw, &company); err != nil {
			// A malformed record should not invalidate the page.
			c.logger.Warn("skipping undecodable company record", "tms_type", conn.TMSType, "page", page, "error", err)
			continue
		}
		company.Raw = raw
		result.Results = append(result.Results, company)
	}

	return result, nil
}

// Probe issues a minimal authenticated request to verify the credentials
// and reachability of the provider.
func (c *Client) Probe(ctx context.Context, conn *models.TMSConnection) error {
	_, err := c.FetchPage(ctx, conn, 1, 1)
	return err
}

func (c *Client) token(conn *models.TMSConnection) (string, error) {
	if ref := conn.Credentials.APITokenRef; ref != "" {
		return c.resolver.Resolve(ref)
	}
	if conn.Credentials.APIToken == "" {
		return "", fmt.Errorf("connection %s has no api token", conn.TMSType)
	}
	return conn.Credentials.APIToken, nil
}
