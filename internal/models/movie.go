package models

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// MovieID is the canonical identifier of a catalog movie.
//
// Identifiers arrive as JSON numbers from the catalog and as strings from
// route parameters and older persisted data. Both decode to the same
// MovieID, so comparisons never depend on the caller's representation.
type MovieID string

// NewMovieID converts a numeric or string identifier into its canonical form.
func NewMovieID(v any) MovieID {
	switch id := v.(type) {
	case MovieID:
		return canonical(string(id))
	case string:
		return canonical(id)
	case int:
		return MovieID(strconv.Itoa(id))
	case int64:
		return MovieID(strconv.FormatInt(id, 10))
	case uint64:
		return MovieID(strconv.FormatUint(id, 10))
	case float64:
		return MovieID(strconv.FormatFloat(id, 'f', -1, 64))
	case json.Number:
		return canonical(id.String())
	case nil:
		return ""
	default:
		return canonical(fmt.Sprint(id))
	}
}

// canonical trims s and rewrites integer text in its shortest decimal form,
// so "0550", "+550" and "550" name the same movie.
func canonical(s string) MovieID {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return MovieID(strconv.Itoa(n))
	}
	return MovieID(s)
}

// String returns the canonical string form.
func (id MovieID) String() string {
	return string(id)
}

// IsZero reports whether the identifier is empty.
func (id MovieID) IsZero() bool {
	return id == ""
}

// Int returns the numeric catalog id, if the identifier is numeric.
func (id MovieID) Int() (int, bool) {
	n, err := strconv.Atoi(string(id))
	if err != nil {
		return 0, false
	}
	return n, true
}

// MarshalJSON writes canonical numeric identifiers as JSON numbers to match
// the catalog. Anything else is written as a string so it decodes unchanged.
func (id MovieID) MarshalJSON() ([]byte, error) {
	if n, ok := id.Int(); ok && strconv.Itoa(n) == string(id) {
		return []byte(string(id)), nil
	}
	return json.Marshal(string(id))
}

// UnmarshalJSON accepts both numbers and strings.
func (id *MovieID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = NewMovieID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid movie id %s: %w", string(data), err)
	}
	*id = NewMovieID(n)
	return nil
}

// Genre is a named catalog genre.
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Movie is a catalog movie as returned by search. It is treated as a
// read-only value everywhere in the application.
type Movie struct {
	ID           MovieID `json:"id" validate:"required"`
	Title        string  `json:"title" validate:"required"`
	Overview     string  `json:"overview,omitempty"`
	ReleaseDate  string  `json:"release_date,omitempty"`
	PosterPath   string  `json:"poster_path,omitempty"`
	BackdropPath string  `json:"backdrop_path,omitempty"`
	VoteAverage  float64 `json:"vote_average,omitempty"`
	VoteCount    int     `json:"vote_count,omitempty"`
	GenreIDs     []int   `json:"genre_ids,omitempty"`
	Genres       []Genre `json:"genres,omitempty"`
}

// ProductionCompany is a studio credited on a movie.
type ProductionCompany struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	LogoPath      string `json:"logo_path,omitempty"`
	OriginCountry string `json:"origin_country,omitempty"`
}

// MovieDetails is the full catalog record for a single movie.
type MovieDetails struct {
	Movie
	IMDBID              string              `json:"imdb_id,omitempty"`
	Runtime             int                 `json:"runtime,omitempty"`
	Tagline             string              `json:"tagline,omitempty"`
	Budget              int64               `json:"budget,omitempty"`
	Revenue             int64               `json:"revenue,omitempty"`
	Status              string              `json:"status,omitempty"`
	Homepage            string              `json:"homepage,omitempty"`
	OriginalLanguage    string              `json:"original_language,omitempty"`
	ProductionCompanies []ProductionCompany `json:"production_companies,omitempty"`
}

// SearchResponse is one page of catalog search results.
type SearchResponse struct {
	Page         int     `json:"page"`
	Results      []Movie `json:"results"`
	TotalPages   int     `json:"total_pages"`
	TotalResults int     `json:"total_results"`
}
