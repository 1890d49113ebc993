package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/AtharvRaotole/reel-picks/internal/models"
	"github.com/AtharvRaotole/reel-picks/internal/services/tmdb"
)

const (
	maxBodyBytes = 1 << 20

	kindInvalid = "invalid_request"
	kindStorage = "storage"
	kindMissing = "not_found"
)

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message, kind string) {
	writeJSON(w, status, ErrorResponse{Error: message, Kind: kind})
}

// writeCatalogError renders a catalog failure with its classified status.
func writeCatalogError(w http.ResponseWriter, err error) {
	var ce *tmdb.CatalogError
	if errors.As(err, &ce) {
		writeError(w, ce.HTTPStatus(), ce.Message, string(ce.Kind))
		return
	}
	writeError(w, http.StatusInternalServerError, "Internal server error", string(tmdb.KindServer))
}

// decodeBody reads a JSON body into dst and validates it.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	body, err := readBody(w, r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if err := models.Validate(dst); err != nil {
		return describeValidation(err)
	}
	return nil
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	return body, nil
}

func describeValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("invalid request: %s", strings.Join(fields, ", "))
}

// orEmpty keeps empty collections rendering as [] rather than null.
func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func pathID(r *http.Request) models.MovieID {
	return models.NewMovieID(r.PathValue("id"))
}
