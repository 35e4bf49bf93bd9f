// Package errs defines the failure taxonomy shared by the image pipeline.
//
// Every failure is a coded platform error, so retry decisions can be made with
// platformerrors.IsRetryable and callers can branch on the kind with the Is* helpers.
package errs

import (
	"errors"
	"fmt"
	"slices"

	platformerrors "github.com/jmgilman/go/errors"
)

// Codes that extend the platform error codes for this application.
const (
	CodeUpstream          platformerrors.ErrorCode = "UPSTREAM_ERROR"
	CodeMalformedResponse platformerrors.ErrorCode = "MALFORMED_RESPONSE"
	CodeCacheWrite        platformerrors.ErrorCode = "CACHE_WRITE_FAILED"
	CodePartialWrite      platformerrors.ErrorCode = "PARTIAL_WRITE"
)

// Network wraps a connection failure. Network errors are retryable.
func Network(err error, url string) error {
	return platformerrors.WithContext(
		platformerrors.Wrap(err, platformerrors.CodeNetwork, "request failed"),
		"url", url)
}

// Timeout wraps an attempt that exceeded its deadline. Timeouts are retryable.
func Timeout(err error, url string) error {
	return platformerrors.WithContext(
		platformerrors.Wrap(err, platformerrors.CodeTimeout, "request timed out"),
		"url", url)
}

// Upstream reports a non-success HTTP status from the photo service.
func Upstream(status int, url string) error {
	return platformerrors.WithContext(
		platformerrors.Newf(CodeUpstream, "server returned status %d", status),
		"url", url)
}

// Malformed reports a response that is missing an expected field.
func Malformed(field string) error {
	return platformerrors.WithContext(
		platformerrors.Newf(CodeMalformedResponse, "invalid API response: missing %s", field),
		"field", field)
}

// MalformedBody reports a response body that could not be decoded at all.
func MalformedBody(err error) error {
	return platformerrors.Wrap(err, CodeMalformedResponse, "invalid API response: undecodable body")
}

// CacheWrite wraps a storage failure while persisting cached bytes.
func CacheWrite(err error, key string) error {
	return platformerrors.WithContext(
		platformerrors.Wrap(err, CodeCacheWrite, "failed to write cache entry"),
		"key", key)
}

// PartialWrite reports a multi-key record where only some keys were found.
func PartialWrite(missing []string) error {
	return platformerrors.WithContext(
		platformerrors.New(CodePartialWrite, fmt.Sprintf("record is incomplete, %d keys missing", len(missing))),
		"missing", missing)
}

// IsNetwork reports whether err is a connection failure or a timeout.
func IsNetwork(err error) bool {
	return hasCode(err, platformerrors.CodeNetwork, platformerrors.CodeTimeout)
}

// IsTimeout reports whether err is an attempt timeout.
func IsTimeout(err error) bool {
	return hasCode(err, platformerrors.CodeTimeout)
}

// IsUpstream reports whether err is a non-success response from the photo service.
func IsUpstream(err error) bool {
	return hasCode(err, CodeUpstream)
}

// IsMalformed reports whether err is a malformed response.
func IsMalformed(err error) bool {
	return hasCode(err, CodeMalformedResponse)
}

// IsCacheWrite reports whether err is a cache storage failure.
func IsCacheWrite(err error) bool {
	return hasCode(err, CodeCacheWrite)
}

// IsPartialWrite reports whether err is an incomplete multi-key record.
func IsPartialWrite(err error) bool {
	return hasCode(err, CodePartialWrite)
}

// hasCode walks every platform error in the chain, not only the outermost one.
func hasCode(err error, codes ...platformerrors.ErrorCode) bool {
	for err != nil {
		var platformErr platformerrors.PlatformError
		if !errors.As(err, &platformErr) {
			return false
		}
		if slices.Contains(codes, platformErr.Code()) {
			return true
		}
		err = platformErr.Unwrap()
	}
	return false
}
