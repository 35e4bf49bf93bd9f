package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/lepinkainen/tabskin/pkg/errs"
)

// ReadResponseBody reads and closes HTTP response body
func ReadResponseBody(resp *http.Response) ([]byte, error) {
	defer closeBody(resp)
	return io.ReadAll(resp.Body)
}

// DecodeJSONResponse decodes a 2xx JSON response into target.
// Other statuses become upstream errors; undecodable bodies become malformed-response errors.
func DecodeJSONResponse(resp *http.Response, target any) error {
	defer closeBody(resp)

	if !IsSuccess(resp.StatusCode) {
		return errs.Upstream(resp.StatusCode, requestURL(resp))
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return errs.MalformedBody(err)
	}
	return nil
}

// DrainAndClose discards the rest of the body so the connection can be reused
func DrainAndClose(resp *http.Response) {
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		slog.Debug("Failed to drain response body", "error", err)
	}
	closeBody(resp)
}

// GetContentType returns the content type of the response
func GetContentType(resp *http.Response) string {
	return resp.Header.Get("Content-Type")
}

func closeBody(resp *http.Response) {
	if closeErr := resp.Body.Close(); closeErr != nil {
		slog.Error("Failed to close response body", "error", closeErr)
	}
}

func requestURL(resp *http.Response) string {
	if resp.Request == nil || resp.Request.URL == nil {
		return ""
	}
	return resp.Request.URL.String()
}
