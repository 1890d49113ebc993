package models

import (
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// Rating bounds for a favorite.
const (
	MinRating = 1
	MaxRating = 5
)

// FavoriteEntry is a movie saved to the user's favorites.
type FavoriteEntry struct {
	Movie     Movie     `json:"movie"`
	Rating    int       `json:"rating" validate:"min=1,max=5"`
	Notes     *string   `json:"notes,omitempty"`
	DateAdded time.Time `json:"dateAdded" validate:"required"`
}

// RecentlyViewedEntry records a movie detail view.
type RecentlyViewedEntry struct {
	Movie    Movie     `json:"movie"`
	ViewedAt time.Time `json:"viewedAt" validate:"required"`
}

// Reminder is a scheduled watch reminder for one movie.
type Reminder struct {
	MovieID      MovieID   `json:"movieId" validate:"required"`
	MovieTitle   string    `json:"movieTitle" validate:"required"`
	ReminderTime time.Time `json:"reminderTime" validate:"required"`
	CreatedAt    time.Time `json:"createdAt" validate:"required"`
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared struct validator.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks v against its `validate` struct tags.
func Validate(v any) error {
	return Validator().Struct(v)
}

// ValidRating reports whether r is an accepted favorite rating.
func ValidRating(r int) bool {
	return r >= MinRating && r <= MaxRating
}
