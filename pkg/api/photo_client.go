package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	httputil "github.com/lepinkainen/tabskin/pkg/http"

	"github.com/lepinkainen/tabskin/pkg/errs"
)

// PhotoClient talks to the photo proxy through the retrying transport
type PhotoClient struct {
	baseURL string
	http    *httputil.Client
	now     func() time.Time
}

// NewPhotoClient creates a client for the proxy at baseURL
func NewPhotoClient(baseURL string, client *httputil.Client) *PhotoClient {
	if client == nil {
		client = httputil.NewClient(nil)
	}
	return &PhotoClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    client,
		now:     time.Now,
	}
}

// PhotosURL builds the /photos request URL. A refresh adds a timestamp so the
// proxy skips its own cache.
func (c *PhotoClient) PhotosURL(query string, refresh bool) string {
	params := url.Values{}
	params.Set("query", query)
	if refresh {
		params.Set("refresh", strconv.FormatInt(c.now().UnixMilli(), 10))
	}
	return c.baseURL + "/photos?" + params.Encode()
}

// GetPhoto fetches one random photo for query
func (c *PhotoClient) GetPhoto(ctx context.Context, query string, refresh bool) (*Photo, error) {
	resp, err := c.http.GetWithContext(ctx, c.PhotosURL(query, refresh))
	if err != nil {
		return nil, err
	}

	var photo Photo
	if err := httputil.DecodeJSONResponse(resp, &photo); err != nil {
		return nil, err
	}

	if err := photo.Validate(); err != nil {
		return nil, err
	}

	slog.Debug("Received photo", "url", photo.URLs.Full, "author", photo.User.Name)
	return &photo, nil
}

// TrackDownload reports that a photo was shown. It makes a single attempt.
func (c *PhotoClient) TrackDownload(ctx context.Context, downloadLocation string) error {
	body, err := json.Marshal(DownloadRequest{DownloadLocation: downloadLocation})
	if err != nil {
		return fmt.Errorf("failed to encode download request: %w", err)
	}

	endpoint := c.baseURL + "/download"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create download request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Fetch(req, 1)
	if err != nil {
		return err
	}
	defer httputil.DrainAndClose(resp)

	if !httputil.IsSuccess(resp.StatusCode) {
		return errs.Upstream(resp.StatusCode, endpoint)
	}
	return nil
}
