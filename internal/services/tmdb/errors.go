package tmdb

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a catalog failure so callers can choose their wording.
type Kind string

const (
	KindNetwork     Kind = "network"
	KindRateLimited Kind = "rate_limited"
	KindNotFound    Kind = "not_found"
	KindClient      Kind = "client"
	KindServer      Kind = "server"
)

// CatalogError is returned by every Client method.
type CatalogError struct {
	StatusCode int
	Message    string
	Kind       Kind
	Err        error
}

func (e *CatalogError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("catalog %s error: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("catalog %s error (%d): %s", e.Kind, e.StatusCode, e.Message)
}

func (e *CatalogError) Unwrap() error {
	return e.Err
}

// HTTPStatus is the status the proxy answers with for this error.
func (e *CatalogError) HTTPStatus() int {
	if e.StatusCode != 0 {
		return e.StatusCode
	}
	return http.StatusServiceUnavailable
}

// Classify maps a status code to a Kind. Zero means no response was received.
func Classify(status int) Kind {
	switch {
	case status == 0:
		return KindNetwork
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status == http.StatusNotFound:
		return KindNotFound
	case status >= 400 && status < 500:
		return KindClient
	default:
		return KindServer
	}
}

func newError(status int, message string, err error) *CatalogError {
	return &CatalogError{StatusCode: status, Message: message, Kind: Classify(status), Err: err}
}

func networkError(status int, message string, err error) *CatalogError {
	return &CatalogError{StatusCode: status, Message: message, Kind: KindNetwork, Err: err}
}

// KindOf returns the Kind of err, or "" if err is not a catalog error.
func KindOf(err error) Kind {
	var ce *CatalogError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}

func IsNetworkError(err error) bool { return KindOf(err) == KindNetwork }
func IsRateLimited(err error) bool  { return KindOf(err) == KindRateLimited }
func IsNotFound(err error) bool     { return KindOf(err) == KindNotFound }
func IsClientError(err error) bool  { return KindOf(err) == KindClient }
func IsServerError(err error) bool  { return KindOf(err) == KindServer }
