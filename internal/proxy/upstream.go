package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	platformerrors "github.com/jmgilman/go/errors"

	"github.com/lepinkainen/tabskin/pkg/api"
	"github.com/lepinkainen/tabskin/pkg/errs"
	"github.com/lepinkainen/tabskin/pkg/urlutils"
)

// Upstream is the photo service behind the proxy
type Upstream interface {
	// RandomPhoto returns the raw JSON of one random landscape photo for query
	RandomPhoto(ctx context.Context, query string) ([]byte, error)
	// TrackDownload reports a download to the service
	TrackDownload(ctx context.Context, downloadLocation string) error
}

// UnsplashUpstream calls the Unsplash API with a static access key
type UnsplashUpstream struct {
	baseURL string
	client  *api.EnhancedClient
}

// NewUnsplashUpstream creates an upstream for baseURL, limited to perHour calls
func NewUnsplashUpstream(baseURL, accessKey string, perHour int, httpClient *http.Client) *UnsplashUpstream {
	var limiter api.RateLimiter = api.NewNoOpRateLimiter()
	if perHour > 0 {
		limiter = api.NewHourlyRateLimiter(perHour)
	}
	return &UnsplashUpstream{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  api.NewUnsplashClient(httpClient, accessKey, limiter),
	}
}

// RandomPhoto fetches /photos/random. The body is passed through unchanged
// once it is known to be JSON.
func (u *UnsplashUpstream) RandomPhoto(ctx context.Context, query string) ([]byte, error) {
	params := url.Values{}
	params.Set("orientation", "landscape")
	params.Set("query", query)

	endpoint := u.baseURL + "/photos/random?" + params.Encode()
	var body json.RawMessage
	if err := u.client.GetAndDecode(ctx, endpoint, &body, nil); err != nil {
		return nil, fmt.Errorf("random photo for %q: %w", query, classify(err, u.baseURL+"/photos/random"))
	}
	return body, nil
}

// Ready reports whether a call can be made without waiting on the hourly budget
func (u *UnsplashUpstream) Ready() bool {
	return u.client.CanProceed()
}

// TrackDownload calls the photo's download_location. Relative locations are
// resolved against the upstream; only locations on the upstream host are accepted.
func (u *UnsplashUpstream) TrackDownload(ctx context.Context, downloadLocation string) error {
	location, err := urlutils.ResolveURL(u.baseURL, downloadLocation)
	if err != nil || !u.owns(location) {
		return platformerrors.WithContext(
			platformerrors.New(platformerrors.CodeInvalidInput, "download location is not on the photo service"),
			"downloadLocation", downloadLocation)
	}

	if _, err := u.client.GetBytes(ctx, location, nil); err != nil {
		return fmt.Errorf("track download: %w", classify(err, location))
	}
	return nil
}

// classify turns a status error into the upstream error kind
func classify(err error, endpoint string) error {
	var httpErr *api.HTTPError
	if errors.As(err, &httpErr) {
		return errs.Upstream(httpErr.StatusCode, endpoint)
	}
	return err
}

func (u *UnsplashUpstream) owns(location string) bool {
	base, err := url.Parse(u.baseURL)
	if err != nil {
		return false
	}
	loc, err := url.Parse(location)
	if err != nil {
		return false
	}
	return loc.Scheme == base.Scheme && loc.Host == base.Host
}
